package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/fireguard-store/storefront/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type slot interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

func newSlots(t *testing.T) map[string]slot {
	t.Helper()

	fileSlot, err := NewFileSlot(t.TempDir())
	if err != nil {
		t.Fatalf("create file slot failed: %v", err)
	}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})

	db, err := models.OpenDB("sqlite", filepath.Join(t.TempDir(), "slots.db"), models.DBPoolConfig{MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	return map[string]slot{
		"memory": NewMemorySlot(),
		"file":   fileSlot,
		"redis":  NewRedisSlot(client, "test"),
		"sql":    NewSQLSlot(db),
	}
}

func TestSlotsRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range newSlots(t) {
		t.Run(name, func(t *testing.T) {
			if _, found, err := s.Get(ctx, "cart"); err != nil || found {
				t.Fatalf("expected missing slot, found=%v err=%v", found, err)
			}
			if err := s.Set(ctx, "cart", []byte(`{"items":[]}`)); err != nil {
				t.Fatalf("set failed: %v", err)
			}
			if err := s.Set(ctx, "cart", []byte(`{"items":[{"id":"a"}]}`)); err != nil {
				t.Fatalf("overwrite failed: %v", err)
			}
			raw, found, err := s.Get(ctx, "cart")
			if err != nil || !found {
				t.Fatalf("expected stored slot, found=%v err=%v", found, err)
			}
			if string(raw) != `{"items":[{"id":"a"}]}` {
				t.Fatalf("last write should win, got %s", raw)
			}
			if err := s.Delete(ctx, "cart"); err != nil {
				t.Fatalf("delete failed: %v", err)
			}
			if _, found, _ := s.Get(ctx, "cart"); found {
				t.Fatalf("slot should be deleted")
			}
		})
	}
}

func TestSlotsCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	type swapper interface {
		CompareAndSwap(ctx context.Context, key string, old, value []byte) (bool, error)
	}
	for name, s := range newSlots(t) {
		t.Run(name, func(t *testing.T) {
			cas, ok := s.(swapper)
			if !ok {
				t.Fatalf("%s slot does not support compare and swap", name)
			}
			if swapped, err := cas.CompareAndSwap(ctx, "cart", []byte(`[]`), []byte(`{"items":[]}`)); err != nil || swapped {
				t.Fatalf("missing slot must not be swapped, got %v/%v", swapped, err)
			}
			if err := s.Set(ctx, "cart", []byte(`[{"id":"a"}]`)); err != nil {
				t.Fatalf("set failed: %v", err)
			}
			if swapped, err := cas.CompareAndSwap(ctx, "cart", []byte(`[{"id":"b"}]`), []byte(`{"items":[]}`)); err != nil || swapped {
				t.Fatalf("stale old value must not be swapped, got %v/%v", swapped, err)
			}
			if swapped, err := cas.CompareAndSwap(ctx, "cart", []byte(`[{"id":"a"}]`), []byte(`{"items":[{"id":"a"}]}`)); err != nil || !swapped {
				t.Fatalf("matching old value should be swapped, got %v/%v", swapped, err)
			}
			raw, _, err := s.Get(ctx, "cart")
			if err != nil {
				t.Fatalf("get failed: %v", err)
			}
			if string(raw) != `{"items":[{"id":"a"}]}` {
				t.Fatalf("unexpected slot content %s", raw)
			}
		})
	}
}

func TestSlotsRejectEmptyKey(t *testing.T) {
	ctx := context.Background()
	for name, s := range newSlots(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Set(ctx, "  ", []byte("x")); !errors.Is(err, ErrEmptyKey) {
				t.Fatalf("expected ErrEmptyKey, got %v", err)
			}
		})
	}
}

func TestSlotsIsolateSessionKeys(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySlot()
	if err := s.Set(ctx, SessionKey("s1", "cart"), []byte("one")); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if _, found, _ := s.Get(ctx, SessionKey("s2", "cart")); found {
		t.Fatalf("sessions must not share a slot")
	}
	if SessionKey("", "cart") != "cart" {
		t.Fatalf("empty session should use the bare key")
	}
}

func TestNilBackendsAreUnavailable(t *testing.T) {
	ctx := context.Background()
	if _, _, err := NewRedisSlot(nil, "x").Get(ctx, "cart"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable from redis slot, got %v", err)
	}
	if err := NewSQLSlot(nil).Set(ctx, "cart", nil); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable from sql slot, got %v", err)
	}
	if _, err := NewFileSlot(""); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable from file slot, got %v", err)
	}
}

func TestFileSlotSanitizesKeys(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileSlot(dir)
	if err != nil {
		t.Fatalf("create file slot failed: %v", err)
	}
	path, err := s.path("../sess:cart")
	if err != nil {
		t.Fatalf("path failed: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("slot file escaped its directory: %s", path)
	}
}
