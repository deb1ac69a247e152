package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/alejandrodnm/drawbot/internal/ports"
)

// releaseScript borra la clave solo si sigue siendo nuestra.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis implementa ports.Locker con SET NX PX. Sirve para varias réplicas
// del runner apuntando a la misma base.
type Redis struct {
	client *redis.Client
	prefix string
}

var _ ports.Locker = (*Redis)(nil)

// Connect crea el cliente y verifica la conexión con PING.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 2 * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("lock.Connect: ping %s: %w", addr, err)
	}
	return rdb, nil
}

// NewRedis crea un locker sobre un cliente existente.
func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (l *Redis) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	k := l.prefix + key
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, k, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("lock.Redis.Acquire %s: %w", k, err)
	}
	if !ok {
		return nil, fmt.Errorf("lock.Redis.Acquire %s: %w", k, ports.ErrLockHeld)
	}

	var once sync.Once
	release := func(ctx context.Context) error {
		var err error
		once.Do(func() {
			err = releaseScript.Run(ctx, l.client, []string{k}, token).Err()
		})
		if err != nil {
			return fmt.Errorf("lock.Redis.release %s: %w", k, err)
		}
		return nil
	}
	return release, nil
}
