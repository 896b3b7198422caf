package domain

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Hook prepara un registro antes de guardarlo. prev es el estado almacenado
// en un update y nil en un create.
type Hook interface {
	Prepare(ctx context.Context, r *Record, prev *Record) error
}

// HookFunc permite usar funciones como Hook.
type HookFunc func(ctx context.Context, r *Record, prev *Record) error

func (f HookFunc) Prepare(ctx context.Context, r *Record, prev *Record) error {
	return f(ctx, r, prev)
}

// Hooks agrupa los hooks por colección, en orden de ejecución.
type Hooks map[string][]Hook

func (h Hooks) Run(ctx context.Context, r *Record, prev *Record) error {
	for _, hook := range h[r.Collection] {
		if err := hook.Prepare(ctx, r, prev); err != nil {
			return err
		}
	}
	return nil
}

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpaces   = regexp.MustCompile(`[\s-]+`)
)

// Slugify: "Hola, Mundo Ñandú" -> "hola-mundo-nandu".
func Slugify(s string) string {
	var b strings.Builder
	for _, r := range norm.NFD.String(strings.ToLower(strings.TrimSpace(s))) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	out := nonSlugChars.ReplaceAllString(b.String(), "")
	out = slugSpaces.ReplaceAllString(out, "-")
	return strings.Trim(out, "-")
}
