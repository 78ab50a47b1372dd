package storage

import (
	"bytes"
	"context"
	"sync"
)

// MemorySlot 内存槽位，仅在进程生命周期内有效
type MemorySlot struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemorySlot 创建内存槽位
func NewMemorySlot() *MemorySlot {
	return &MemorySlot{values: map[string][]byte{}}
}

// Get 读取槽位
func (s *MemorySlot) Get(_ context.Context, key string) ([]byte, bool, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	raw, ok := s.values[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, true, nil
}

// Set 写入槽位
func (s *MemorySlot) Set(_ context.Context, key string, value []byte) error {
	key, err := normalizeKey(key)
	if err != nil {
		return err
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	s.mu.Lock()
	s.values[key] = stored
	s.mu.Unlock()
	return nil
}

// Delete 删除槽位
func (s *MemorySlot) Delete(_ context.Context, key string) error {
	key, err := normalizeKey(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.values, key)
	s.mu.Unlock()
	return nil
}

// CompareAndSwap 当前内容等于 old 时写入 value，返回是否写入
func (s *MemorySlot) CompareAndSwap(_ context.Context, key string, old, value []byte) (bool, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.values[key]
	if !ok || !bytes.Equal(current, old) {
		return false, nil
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	s.values[key] = stored
	return true, nil
}
