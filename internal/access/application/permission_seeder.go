package application

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	accessDomain "github.com/davicafu/hexacrud/internal/access/domain"
	recordDomain "github.com/davicafu/hexacrud/internal/record/domain"
	sharedDomain "github.com/davicafu/hexacrud/shared/domain"
	"go.uber.org/zap"
)

// DefaultSeedAt coincide con el cron original "30 1 * * *".
const DefaultSeedAt = "01:30"

// PermissionSeeder garantiza que existe un permiso por cada recurso del
// catálogo (salvo permission) y cada acción estándar.
type PermissionSeeder struct {
	records Records
	hour    int
	minute  int
	log     *zap.Logger
	now     func() time.Time
}

// NewPermissionSeeder recibe la hora diaria como "HH:MM" (UTC).
func NewPermissionSeeder(records Records, seedAt string, log *zap.Logger) (*PermissionSeeder, error) {
	hour, minute, err := ParseSeedAt(seedAt)
	if err != nil {
		return nil, err
	}
	return &PermissionSeeder{
		records: records,
		hour:    hour,
		minute:  minute,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func ParseSeedAt(s string) (int, int, error) {
	if strings.TrimSpace(s) == "" {
		s = DefaultSeedAt
	}
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid seed time %q, use HH:MM", s)
	}
	hour, errH := strconv.Atoi(h)
	minute, errM := strconv.Atoi(m)
	if errH != nil || errM != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid seed time %q, use HH:MM", s)
	}
	return hour, minute, nil
}

// Reconcile crea los permisos que falten y devuelve cuántos creó. Es
// idempotente por nombre.
func (s *PermissionSeeder) Reconcile(ctx context.Context) (int, error) {
	created := 0
	for _, resource := range accessDomain.Resources() {
		if resource == accessDomain.ResourcePermission {
			continue
		}
		for _, action := range accessDomain.StandardActions() {
			name := accessDomain.PermissionName(resource, action)

			_, err := s.records.GetBy(ctx, recordDomain.CollectionPermission, "name", name)
			if err == nil {
				continue
			}
			if !sharedDomain.IsNotFound(err) {
				return created, fmt.Errorf("lookup permission %s: %w", name, err)
			}

			_, err = s.records.Create(ctx, recordDomain.CollectionPermission, map[string]interface{}{
				"name":        name,
				"description": accessDomain.PermissionDescription(resource, action),
			})
			if err != nil {
				// Otra instancia lo creó entre la lectura y la escritura.
				if sharedDomain.IsConflict(err) {
					continue
				}
				return created, fmt.Errorf("create permission %s: %w", name, err)
			}
			created++
		}
	}
	return created, nil
}

// NextRun devuelve la siguiente ejecución estrictamente posterior a from.
func (s *PermissionSeeder) NextRun(from time.Time) time.Time {
	from = from.UTC()
	next := time.Date(from.Year(), from.Month(), from.Day(), s.hour, s.minute, 0, 0, time.UTC)
	if !next.After(from) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Start reconcilia al arrancar y después cada día a la hora configurada.
// Bloquea hasta que ctx se cancela.
func (s *PermissionSeeder) Start(ctx context.Context) {
	s.run(ctx)

	for {
		wait := s.NextRun(s.now()).Sub(s.now())
		s.log.Info("⏰ Next permission seeding scheduled", zap.Duration("in", wait))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.log.Info("🛑 Permission seeder detenido.")
			return
		case <-timer.C:
			s.run(ctx)
		}
	}
}

func (s *PermissionSeeder) run(ctx context.Context) {
	created, err := s.Reconcile(ctx)
	if err != nil {
		s.log.Error("⚠️ Permission seeding failed", zap.Int("created", created), zap.Error(err))
		return
	}
	s.log.Info("✅ Permission seeding done", zap.Int("created", created))
}
