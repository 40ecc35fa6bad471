// limiter.go
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrLimited = errors.New("rate limit excedido")

// Limiter es una ventana fija sobre redis: INCR + EXPIRE en el primer
// hit. El estado vive fuera del proceso, así varias instancias
// comparten el mismo límite.
type Limiter struct {
	rdb    *redis.Client
	prefix string
	limit  int
	window time.Duration
}

func New(rdb *redis.Client, prefix string, limit int, window time.Duration) *Limiter {
	return &Limiter{rdb: rdb, prefix: prefix, limit: limit, window: window}
}

// Allow cuenta un hit para la clave. Devuelve el conteo dentro de la
// ventana y, si se excedió el límite, ErrLimited junto con el tiempo
// restante hasta que la ventana expire.
func (l *Limiter) Allow(ctx context.Context, key string) (int64, time.Duration, error) {
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)

	count, err := l.rdb.Incr(ctx, redisKey).Result()
	if err != nil {
		return 0, 0, err
	}
	if count == 1 {
		if err := l.rdb.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return count, 0, err
		}
	}

	if count > int64(l.limit) {
		retryAfter, err := l.rdb.TTL(ctx, redisKey).Result()
		if err != nil || retryAfter < 0 {
			retryAfter = l.window
		}
		return count, retryAfter, ErrLimited
	}

	return count, 0, nil
}
