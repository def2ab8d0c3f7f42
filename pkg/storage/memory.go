package storage

import (
	"bytes"
	"context"
	"io"
	"sync"
)

// memoryStore 进程内对象存储，服务单测
type memoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() Store {
	return &memoryStore{objects: make(map[string][]byte)}
}

func (m *memoryStore) Write(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.objects[key] = data
	m.mu.Unlock()
	return nil
}

func (m *memoryStore) Read(_ context.Context, key string) (io.ReadCloser, int64, error) {
	m.mu.RLock()
	data, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, 0, ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

func (m *memoryStore) Exists(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	_, ok := m.objects[key]
	m.mu.RUnlock()
	return ok, nil
}
