package kv

import "sync"

// Memory is an in-process backend, mostly for tests
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
	// FailWrites makes every Set and Remove fail with a *WriteError.
	FailWrites error
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWrites != nil {
		return &WriteError{Key: key, Err: m.FailWrites}
	}
	m.values[key] = value
	return nil
}

func (m *Memory) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWrites != nil {
		return &WriteError{Key: key, Err: m.FailWrites}
	}
	delete(m.values, key)
	return nil
}

func (m *Memory) Close() error {
	return nil
}
