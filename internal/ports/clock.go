package ports

import (
	"context"
	"errors"
	"time"
)

// Clock da la hora actual en la zona horaria de operación.
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

// ErrLockHeld indica que otro proceso tiene el lock del sorteo.
var ErrLockHeld = errors.New("lock held")

// Locker serializa el trabajo sobre un mismo sorteo.
type Locker interface {
	// Acquire toma el lock de key por ttl. Devuelve ErrLockHeld si está tomado.
	// release es idempotente.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error)
}
