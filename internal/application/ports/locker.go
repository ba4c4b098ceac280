package ports

import (
	"context"
	"errors"
	"time"
)

// ErrLockNotObtained otra instancia tiene el lock.
var ErrLockNotObtained = errors.New("lock no obtenido")

// JobLocker exclusión mutua entre instancias para trabajos periódicos.
type JobLocker interface {
	// Obtain toma el lock por ttl; devuelve la función para liberarlo.
	Obtain(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error)
}
