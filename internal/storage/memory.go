package storage

import (
	"context"
	"sync"
)

// Memory es un Backend en memoria, sin persistencia entre reinicios
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory crea un Backend en memoria
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func memoryKey(namespace, key string) string {
	return namespace + "\x00" + key
}

func (m *Memory) Get(_ context.Context, namespace, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[memoryKey(namespace, key)]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Put(_ context.Context, namespace, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[memoryKey(namespace, key)] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) Delete(_ context.Context, namespace, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, memoryKey(namespace, key))
	return nil
}

func (m *Memory) Close() error { return nil }
