package domain

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

// PathPrefix es el prefijo con el que se guardan las rutas en los registros.
const PathPrefix = "uploads/"

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrInvalidKey     = errors.New("invalid object key")
)

// ObjectInfo describe un fichero almacenado.
type ObjectInfo struct {
	Key         string
	Size        int64
	ContentType string
}

// FileStorage guarda ficheros por clave. Delete de una clave inexistente no
// es un error.
type FileStorage interface {
	Put(ctx context.Context, key string, r io.Reader, info ObjectInfo) (ObjectInfo, error)
	// Debe devolver ErrObjectNotFound si la clave no existe.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	Delete(ctx context.Context, key string) error
}

// CleanKey valida una clave relativa sin "..", barras iniciales ni vacía.
func CleanKey(key string) (string, error) {
	key = strings.ReplaceAll(strings.TrimSpace(key), `\`, "/")
	key = strings.TrimLeft(key, "/")
	if key == "" {
		return "", ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return "", ErrInvalidKey
		}
	}
	return path.Clean(key), nil
}

// KeyFromPath devuelve la clave de una ruta "uploads/..." y false si la ruta
// no es un fichero propio (p.ej. una URL externa).
func KeyFromPath(p string) (string, bool) {
	p = strings.ReplaceAll(p, `\`, "/")
	if !strings.HasPrefix(p, PathPrefix) {
		return "", false
	}
	key, err := CleanKey(strings.TrimPrefix(p, PathPrefix))
	if err != nil {
		return "", false
	}
	return key, true
}

func PathForKey(key string) string {
	return PathPrefix + key
}
