package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileSlot 基于本地文件的槽位，每个 key 对应目录下一个 JSON 文件
//
// 写入在进程内串行，CompareAndSwap 只对同一进程内的写入者原子。
type FileSlot struct {
	dir string
	mu  sync.Mutex
}

// NewFileSlot 创建文件槽位，目录不存在时自动创建
func NewFileSlot(dir string) (*FileSlot, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("file slot dir is empty: %w", ErrUnavailable)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create slot dir failed: %w", err)
	}
	return &FileSlot{dir: dir}, nil
}

// Get 读取槽位
func (s *FileSlot) Get(ctx context.Context, key string) ([]byte, bool, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read slot file failed: %w", err)
	}
	return raw, true, nil
}

// Set 写入槽位（先写临时文件再原子替换）
func (s *FileSlot) Set(ctx context.Context, key string, value []byte) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(path, value)
}

// CompareAndSwap 当前内容等于 old 时写入 value，返回是否写入
func (s *FileSlot) CompareAndSwap(ctx context.Context, key string, old, value []byte) (bool, error) {
	path, err := s.path(key)
	if err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read slot file failed: %w", err)
	}
	if !bytes.Equal(current, old) {
		return false, nil
	}
	if err := s.writeLocked(path, value); err != nil {
		return false, err
	}
	return true, nil
}

func (s *FileSlot) writeLocked(path string, value []byte) error {
	tmp, err := os.CreateTemp(s.dir, ".slot-*")
	if err != nil {
		return fmt.Errorf("create temp slot file failed: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write slot file failed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close slot file failed: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace slot file failed: %w", err)
	}
	return nil
}

// Delete 删除槽位
func (s *FileSlot) Delete(_ context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove slot file failed: %w", err)
	}
	return nil
}

func (s *FileSlot) path(key string) (string, error) {
	if s == nil || s.dir == "" {
		return "", ErrUnavailable
	}
	key, err := normalizeKey(key)
	if err != nil {
		return "", err
	}
	name := unsafeKeyChars.ReplaceAllString(key, "_")
	return filepath.Join(s.dir, name+".json"), nil
}
