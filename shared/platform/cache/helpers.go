package cache

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const backgroundTimeout = 200 * time.Millisecond

// GetOrLoad implementa cache-aside: intenta la caché y, en un 'miss', llama a
// load y rellena la caché en background. Un error de la caché se trata como miss.
func GetOrLoad[T any](ctx context.Context, c Cache, key string, ttl int, log *zap.Logger, load func(ctx context.Context) (T, error)) (T, error) {
	if c != nil {
		var cached T
		hit, err := c.Get(ctx, key, &cached)
		if err != nil {
			log.Debug("Cache read failed", zap.String("key", key), zap.Error(err))
		}
		if hit {
			return cached, nil
		}
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}

	AsyncCacheSet(ctx, c, key, value, ttl, log)
	return value, nil
}

// AsyncCacheSet actualiza caché en background sin bloquear
func AsyncCacheSet(ctx context.Context, cache Cache, key string, value interface{}, ttl int, log *zap.Logger) {
	if cache == nil {
		return
	}

	go func() {
		// Dispara y olvida: no depende del contexto de la petición, que puede
		// estar ya cancelado.
		cacheCtx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
		defer cancel()

		if err := cache.Set(cacheCtx, key, value, ttl); err != nil {
			log.Warn("Cache update failed",
				zap.String("key", key),
				zap.Error(err))
		}
	}()
}

// AsyncCacheDelete elimina de caché en background
func AsyncCacheDelete(ctx context.Context, cache Cache, keys []string, log *zap.Logger) {
	if cache == nil || len(keys) == 0 {
		return
	}

	go func() {
		cacheCtx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
		defer cancel()

		for _, key := range keys {
			if err := cache.Delete(cacheCtx, key); err != nil {
				log.Warn("Cache deletion failed",
					zap.String("key", key),
					zap.Error(err))
			}
		}
	}()
}
