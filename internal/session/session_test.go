package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fireguard-store/storefront/internal/cart"
	"github.com/fireguard-store/storefront/internal/models"
	"github.com/fireguard-store/storefront/internal/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestIssueAndParse(t *testing.T) {
	issuer := NewIssuer("test-secret", 1)
	sessionID, token, expiresAt, err := issuer.Issue()
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatalf("token should expire in the future")
	}
	claims, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if claims.SessionID != sessionID {
		t.Fatalf("session id want %s got %s", sessionID, claims.SessionID)
	}
}

func TestParseRejectsForeignAndExpiredTokens(t *testing.T) {
	issuer := NewIssuer("test-secret", 1)
	_, token, _, err := issuer.Issue()
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := NewIssuer("other-secret", 1).Parse(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("foreign token should be invalid, got %v", err)
	}
	if _, err := issuer.Parse("not-a-token"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("garbage should be invalid, got %v", err)
	}

	issuer.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := issuer.Parse(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expired token should be invalid, got %v", err)
	}
}

func TestIssuerRequiresSecret(t *testing.T) {
	issuer := NewIssuer("  ", 0)
	if _, _, _, err := issuer.Issue(); !errors.Is(err, ErrSecretMissing) {
		t.Fatalf("want ErrSecretMissing got %v", err)
	}
	if _, _, _, err := NewIssuer("s", 1).IssueFor("not-a-uuid"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("non-uuid session ids must be rejected, got %v", err)
	}
}

func newTestRegistry(slot *storage.MemorySlot, created *atomic.Int32) *Registry {
	return NewRegistry(func(ctx context.Context, sessionID string) *cart.Manager {
		created.Add(1)
		store := cart.NewStore(slot, cart.StoreOptions{Key: storage.SessionKey(sessionID, "cart")})
		return cart.NewManager(ctx, store, cart.ManagerOptions{})
	}, nil)
}

func TestRegistryAcquireCreatesOncePerSession(t *testing.T) {
	var created atomic.Int32
	registry := newTestRegistry(storage.NewMemorySlot(), &created)
	defer registry.Close(context.Background())
	ctx := context.Background()

	var wg sync.WaitGroup
	managers := make([]*cart.Manager, 10)
	for i := range managers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := registry.Acquire(ctx, "s1")
			if err != nil {
				t.Errorf("acquire failed: %v", err)
				return
			}
			managers[i] = m
		}()
	}
	wg.Wait()

	if created.Load() != 1 {
		t.Fatalf("manager should be created once, got %d", created.Load())
	}
	for _, m := range managers {
		if m != managers[0] {
			t.Fatalf("all callers should share one manager")
		}
	}
	if managers[0].Phase() != cart.PhaseReady {
		t.Fatalf("acquired manager should be hydrated")
	}
}

func TestRegistrySessionsAreIsolated(t *testing.T) {
	var created atomic.Int32
	slot := storage.NewMemorySlot()
	registry := newTestRegistry(slot, &created)
	defer registry.Close(context.Background())
	ctx := context.Background()

	a, err := registry.Acquire(ctx, "a")
	if err != nil {
		t.Fatalf("acquire a failed: %v", err)
	}
	b, err := registry.Acquire(ctx, "b")
	if err != nil {
		t.Fatalf("acquire b failed: %v", err)
	}
	a.Dispatch(cart.AddItem("x", models.NewMoneyFromInt(1), "X", ""))
	if !b.State().IsEmpty() {
		t.Fatalf("session b should not see session a's cart")
	}
}

func TestRegistryEvictsIdleSessions(t *testing.T) {
	var created atomic.Int32
	slot := storage.NewMemorySlot()
	registry := newTestRegistry(slot, &created)
	defer registry.Close(context.Background())
	ctx := context.Background()

	now := time.Now()
	registry.now = func() time.Time { return now }

	m, err := registry.Acquire(ctx, "old")
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	m.Dispatch(cart.AddItem("x", models.NewMoneyFromInt(5), "X", ""))

	now = now.Add(time.Hour)
	if _, err := registry.Acquire(ctx, "fresh"); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if evicted := registry.EvictIdle(ctx, 30*time.Minute); evicted != 1 {
		t.Fatalf("expected one eviction, got %d", evicted)
	}
	if registry.Len() != 1 {
		t.Fatalf("one session should remain, got %d", registry.Len())
	}

	reopened, err := registry.Acquire(ctx, "old")
	if err != nil {
		t.Fatalf("reacquire failed: %v", err)
	}
	if reopened == m {
		t.Fatalf("evicted session should get a new manager")
	}
	if got := reopened.Totals().ItemCount; got != 1 {
		t.Fatalf("reopened cart should be restored from storage, item count %d", got)
	}
}

func TestRegistryClosedRejectsAcquire(t *testing.T) {
	var created atomic.Int32
	registry := newTestRegistry(storage.NewMemorySlot(), &created)
	if err := registry.Close(context.Background()); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if _, err := registry.Acquire(context.Background(), "s"); !errors.Is(err, ErrRegistryClosed) {
		t.Fatalf("want ErrRegistryClosed got %v", err)
	}
}

func TestRegistryHydratesIndependentlyOfRequestContext(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	slot := storage.NewRedisSlot(client, "test")
	key := storage.SessionKey("sess", "cart")
	if err := slot.Set(context.Background(), key, []byte(`{"items":[{"id":"saved","quantity":2,"price":4,"name":"Saved","image":""}]}`)); err != nil {
		t.Fatalf("seed slot failed: %v", err)
	}

	registry := NewRegistry(func(ctx context.Context, sessionID string) *cart.Manager {
		store := cart.NewStore(slot, cart.StoreOptions{Key: storage.SessionKey(sessionID, "cart")})
		return cart.NewManager(ctx, store, cart.ManagerOptions{})
	}, nil)
	defer registry.Close(context.Background())

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	m, err := registry.Acquire(canceled, "sess")
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if m.Detached() {
		t.Fatalf("a canceled request must not detach the session")
	}
	m.Dispatch(cart.AddItem("new", models.NewMoneyFromInt(5), "New", ""))
	flushCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
	defer stop()
	if err := m.Flush(flushCtx); err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	raw, _, err := slot.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("read slot failed: %v", err)
	}
	state, _, err := cart.DecodeSnapshot(raw)
	if err != nil {
		t.Fatalf("decode slot failed: %v", err)
	}
	if _, ok := state.Find("saved"); !ok {
		t.Fatalf("saved line was lost: %s", raw)
	}
	if _, ok := state.Find("new"); !ok {
		t.Fatalf("new line was not persisted: %s", raw)
	}
}
