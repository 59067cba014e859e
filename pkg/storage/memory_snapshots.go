package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// MemorySnapshots is an in-memory snapshot store for tests and local runs.
type MemorySnapshots struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemorySnapshots() *MemorySnapshots {
	return &MemorySnapshots{objects: make(map[string][]byte)}
}

func (s *MemorySnapshots) Put(ctx context.Context, key string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("failed to read snapshot body: %w", err)
	}
	s.mu.Lock()
	s.objects[key] = data
	s.mu.Unlock()
	return nil
}

func (s *MemorySnapshots) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	data, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("snapshot %s not found", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemorySnapshots) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

func (s *MemorySnapshots) PresignedURL(ctx context.Context, key string, expiration time.Duration) (string, error) {
	s.mu.RLock()
	_, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("snapshot %s not found", key)
	}
	return "memory://" + key, nil
}
