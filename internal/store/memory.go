package store

import (
	"context"
	"sync"
)

// Memory is an in-process Store. It is safe for concurrent use.
type Memory struct {
	mu     sync.RWMutex
	values Values
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{values: Values{}}
}

// Get implements Store.
func (m *Memory) Get(ctx context.Context, keys ...string) (Values, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := Values{}
	if len(keys) == 0 {
		for k, v := range m.values {
			out[k] = v
		}
		return out, nil
	}
	for _, k := range keys {
		if v, ok := m.values[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

// Set implements Store.
func (m *Memory) Set(ctx context.Context, values Values) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, v := range values {
		m.values[k] = v
	}
	return nil
}

// Close implements Store.
func (m *Memory) Close() error {
	return nil
}
