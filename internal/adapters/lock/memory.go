package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alejandrodnm/drawbot/internal/ports"
)

// Memory implementa ports.Locker dentro de un solo proceso.
type Memory struct {
	mu   sync.Mutex
	held map[string]holder
	now  func() time.Time
	seq  uint64
}

type holder struct {
	id      uint64
	expires time.Time
}

var _ ports.Locker = (*Memory)(nil)

// NewMemory crea un locker en memoria.
func NewMemory() *Memory {
	return &Memory{held: make(map[string]holder), now: time.Now}
}

func (m *Memory) Acquire(_ context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if h, ok := m.held[key]; ok && now.Before(h.expires) {
		return nil, fmt.Errorf("lock.Memory.Acquire %s: %w", key, ports.ErrLockHeld)
	}
	m.seq++
	id := m.seq
	m.held[key] = holder{id: id, expires: now.Add(ttl)}

	release := func(context.Context) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		// un lock expirado y retomado por otro no se libera
		if h, ok := m.held[key]; ok && h.id == id {
			delete(m.held, key)
		}
		return nil
	}
	return release, nil
}
