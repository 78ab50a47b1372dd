package cart

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fireguard-store/storefront/internal/fault"
	"github.com/fireguard-store/storefront/internal/models"
	"github.com/fireguard-store/storefront/internal/storage"
)

func newTestManager(t *testing.T, slot Slot) (*Manager, *Store) {
	t.Helper()
	store := NewStore(slot, StoreOptions{Key: "cart"})
	m := NewManager(context.Background(), store, ManagerOptions{})
	t.Cleanup(func() {
		if err := m.Close(context.Background()); err != nil {
			t.Errorf("close manager failed: %v", err)
		}
	})
	return m, store
}

func flush(t *testing.T, m *Manager) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.Flush(ctx); err != nil {
		t.Fatalf("flush failed: %v", err)
	}
}

func decodeSlot(t *testing.T, slot Slot) *models.CartState {
	t.Helper()
	raw, found := readSlot(t, slot, "cart")
	if !found {
		return nil
	}
	state, _, err := DecodeSnapshot([]byte(raw))
	if err != nil {
		t.Fatalf("decode slot failed: %v", err)
	}
	return state
}

func TestManagerDoesNotClobberStoredCart(t *testing.T) {
	slot := storage.NewMemorySlot()
	seedSlot(t, slot, "cart", `{"items":[{"id":"a","quantity":2,"price":10,"name":"A","image":"a.png"}]}`)

	m, _ := newTestManager(t, slot)
	if err := m.Hydrate(context.Background()); err != nil {
		t.Fatalf("hydrate failed: %v", err)
	}
	flush(t, m)

	want := models.CartState{Items: []models.CartLineItem{
		{ID: "a", Quantity: 2, UnitPrice: money(10), DisplayName: "A", ImageRef: "a.png"},
	}}
	got := decodeSlot(t, slot)
	if got == nil {
		t.Fatalf("stored cart was deleted")
	}
	if diff := diffState(want, *got); diff != "" {
		t.Fatalf("stored cart changed (-want +got):\n%s", diff)
	}
	if diff := diffState(want, m.State()); diff != "" {
		t.Fatalf("manager state mismatch (-want +got):\n%s", diff)
	}
}

func TestManagerLoadsSynchronouslyOnConstruction(t *testing.T) {
	slot := storage.NewMemorySlot()
	seedSlot(t, slot, "cart", `[{"id":"a","qty":3}]`)

	m, _ := newTestManager(t, slot)
	if m.Phase() != PhaseUninitialized {
		t.Fatalf("phase want uninitialized got %s", m.Phase())
	}
	if got := m.Totals().ItemCount; got != 3 {
		t.Fatalf("initial state should come from slot, item count %d", got)
	}
}

func TestManagerSkipsPersistenceBeforeReady(t *testing.T) {
	slot := newFlakySlot()
	m, _ := newTestManager(t, slot)

	m.Dispatch(AddItem("a", money(5), "A", ""))
	m.Dispatch(ClearCart())
	flush(t, m)

	if slot.writes() != 0 {
		t.Fatalf("no writes expected before hydration, got %d", slot.writes())
	}
}

func TestManagerReplaysPendingActionsOverStoredCart(t *testing.T) {
	slot := storage.NewMemorySlot()
	m, _ := newTestManager(t, slot)

	// 构造之后、水合之前另一个标签页写入了内容
	seedSlot(t, slot, "cart", `{"items":[{"id":"stored","quantity":1,"price":100}]}`)
	m.Dispatch(AddItem("new", money(50), "New", ""))

	if err := m.Hydrate(context.Background()); err != nil {
		t.Fatalf("hydrate failed: %v", err)
	}
	flush(t, m)

	want := models.CartState{Items: []models.CartLineItem{
		{ID: "stored", Quantity: 1, UnitPrice: money(100)},
		{ID: "new", Quantity: 1, UnitPrice: money(50), DisplayName: "New"},
	}}
	if diff := diffState(want, m.State()); diff != "" {
		t.Fatalf("state mismatch (-want +got):\n%s", diff)
	}
	got := decodeSlot(t, slot)
	if got == nil {
		t.Fatalf("expected persisted state")
	}
	if diff := diffState(want, *got); diff != "" {
		t.Fatalf("persisted mismatch (-want +got):\n%s", diff)
	}
}

func TestManagerPersistsAfterReady(t *testing.T) {
	slot := storage.NewMemorySlot()
	m, _ := newTestManager(t, slot)
	if err := m.Hydrate(context.Background()); err != nil {
		t.Fatalf("hydrate failed: %v", err)
	}

	m.Dispatch(AddItem("a", money(10), "A", "a.png"))
	m.Dispatch(AddItem("a", money(10), "A", "a.png"))
	m.Dispatch(UpdateQuantity("a", 5))
	flush(t, m)

	got := decodeSlot(t, slot)
	if got == nil || len(got.Items) != 1 || got.Items[0].Quantity != 5 {
		t.Fatalf("unexpected persisted state: %+v", got)
	}
}

func TestManagerPersistsEmptyOnlyAfterClear(t *testing.T) {
	slot := storage.NewMemorySlot()
	seedSlot(t, slot, "cart", `{"items":[{"id":"a","quantity":1,"price":10}]}`)
	m, _ := newTestManager(t, slot)
	if err := m.Hydrate(context.Background()); err != nil {
		t.Fatalf("hydrate failed: %v", err)
	}

	m.Dispatch(RemoveItem("a"))
	flush(t, m)
	if got := decodeSlot(t, slot); got == nil || len(got.Items) != 1 {
		t.Fatalf("removing the last item must not persist an empty cart, got %+v", got)
	}

	m.Dispatch(AddItem("b", money(1), "B", ""))
	m.Dispatch(ClearCart())
	flush(t, m)
	raw, _ := readSlot(t, slot, "cart")
	if raw != `{"items":[]}` {
		t.Fatalf("clear should persist an empty cart, got %s", raw)
	}
}

func TestManagerClearBeforeReadyIsReplayed(t *testing.T) {
	slot := storage.NewMemorySlot()
	seedSlot(t, slot, "cart", `{"items":[{"id":"a","quantity":1,"price":10}]}`)
	m, _ := newTestManager(t, slot)

	m.Dispatch(ClearCart())
	if err := m.Hydrate(context.Background()); err != nil {
		t.Fatalf("hydrate failed: %v", err)
	}
	flush(t, m)

	if !m.State().IsEmpty() {
		t.Fatalf("clear dispatched during hydration should win, got %+v", m.State())
	}
	raw, _ := readSlot(t, slot, "cart")
	if raw != `{"items":[]}` {
		t.Fatalf("clear should be persisted after hydration, got %s", raw)
	}
}

func TestManagerWithoutSlotStaysInMemory(t *testing.T) {
	m, store := newTestManager(t, nil)
	if store.Available() {
		t.Fatalf("store should be unavailable")
	}
	if err := m.Hydrate(context.Background()); err != nil {
		t.Fatalf("hydrate failed: %v", err)
	}
	if m.Phase() != PhaseReady {
		t.Fatalf("phase want ready got %s", m.Phase())
	}
	m.Dispatch(AddItem("a", money(3), "A", ""))
	m.Dispatch(UpdateQuantity("a", 4))
	flush(t, m)
	if got := m.Totals(); got.ItemCount != 4 || got.Subtotal.String() != "12.00" {
		t.Fatalf("unexpected totals %+v", got)
	}
}

func TestManagerDetachesWhenHydrateReadFails(t *testing.T) {
	slot := newFlakySlot()
	seedSlot(t, slot.MemorySlot, "cart", `{"items":[{"id":"saved","quantity":2,"price":4,"name":"Saved","image":""}]}`)
	rec := &fault.Recorder{}
	store := NewStore(slot, StoreOptions{Key: "cart", Hook: rec})
	slot.failGet = true
	m := NewManager(context.Background(), store, ManagerOptions{})
	defer m.Close(context.Background())

	if err := m.Hydrate(context.Background()); err != nil {
		t.Fatalf("hydrate failed: %v", err)
	}
	if m.Phase() != PhaseReady || !m.Detached() {
		t.Fatalf("want ready and detached, got %s/%v", m.Phase(), m.Detached())
	}
	m.Dispatch(AddItem("new", money(5), "New", ""))
	m.Dispatch(ClearCart())
	flush(t, m)

	if slot.writes() != 0 {
		t.Fatalf("detached manager must not write, got %d writes", slot.writes())
	}
	slot.failGet = false
	raw, _ := readSlot(t, slot, "cart")
	if raw != `{"items":[{"id":"saved","quantity":2,"price":4,"name":"Saved","image":""}]}` {
		t.Fatalf("saved cart was overwritten: %s", raw)
	}
	if rec.Count(fault.KindStorageRead) == 0 {
		t.Fatalf("read failure should be reported")
	}
}

func TestManagerDispatchAllCommitsOnce(t *testing.T) {
	slot := newFlakySlot()
	m, _ := newTestManager(t, slot)
	if err := m.Hydrate(context.Background()); err != nil {
		t.Fatalf("hydrate failed: %v", err)
	}

	var versions []uint64
	var mu sync.Mutex
	m.Subscribe(func(s Snapshot) {
		mu.Lock()
		versions = append(versions, s.Version)
		mu.Unlock()
	})
	state := m.DispatchAll(AddItem("a", money(2), "A", ""), AddItem("a", money(2), "A", ""), AddItem("a", money(2), "A", ""))
	flush(t, m)

	if item, _ := state.Find("a"); item.Quantity != 3 {
		t.Fatalf("quantity want 3 got %d", item.Quantity)
	}
	if slot.writes() != 1 {
		t.Fatalf("want one write, got %d", slot.writes())
	}
	mu.Lock()
	defer mu.Unlock()
	if len(versions) != 1 {
		t.Fatalf("want one notification, got %v", versions)
	}
}

func TestManagerReportsWriteFailures(t *testing.T) {
	slot := newFlakySlot()
	slot.failSet = true
	rec := &fault.Recorder{}
	store := NewStore(slot, StoreOptions{Hook: rec})
	m := NewManager(context.Background(), store, ManagerOptions{})
	defer m.Close(context.Background())

	if err := m.Hydrate(context.Background()); err != nil {
		t.Fatalf("hydrate failed: %v", err)
	}
	state := m.Dispatch(AddItem("a", money(1), "A", ""))
	flush(t, m)

	if len(state.Items) != 1 {
		t.Fatalf("write failure must not affect in-memory state")
	}
	if rec.Count(fault.KindStorageWrite) != 1 {
		t.Fatalf("expected one write failure, got %+v", rec.Failures())
	}
}

func TestManagerSubscribersSeeCommittedVersions(t *testing.T) {
	m, _ := newTestManager(t, storage.NewMemorySlot())

	var mu sync.Mutex
	var versions []uint64
	unsubscribe := m.Subscribe(func(s Snapshot) {
		mu.Lock()
		versions = append(versions, s.Version)
		mu.Unlock()
	})

	m.Dispatch(AddItem("a", money(1), "A", ""))
	m.Dispatch(AddItem("b", money(1), "B", ""))
	unsubscribe()
	m.Dispatch(AddItem("c", money(1), "C", ""))

	mu.Lock()
	defer mu.Unlock()
	if len(versions) != 2 || versions[0] != 1 || versions[1] != 2 {
		t.Fatalf("unexpected versions %v", versions)
	}
}

func TestManagerHydrateAfterClose(t *testing.T) {
	store := NewStore(storage.NewMemorySlot(), StoreOptions{})
	m := NewManager(context.Background(), store, ManagerOptions{})
	if err := m.Close(context.Background()); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := m.Hydrate(context.Background()); err != ErrManagerClosed {
		t.Fatalf("want ErrManagerClosed got %v", err)
	}
	if err := m.Close(context.Background()); err != nil {
		t.Fatalf("second close should be a no-op: %v", err)
	}
}

func TestManagerConcurrentDispatch(t *testing.T) {
	m, _ := newTestManager(t, storage.NewMemorySlot())
	if err := m.Hydrate(context.Background()); err != nil {
		t.Fatalf("hydrate failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Dispatch(AddItem("a", money(2), "A", ""))
		}()
	}
	wg.Wait()
	flush(t, m)

	if got := m.Totals().ItemCount; got != 20 {
		t.Fatalf("item count want 20 got %d", got)
	}
}
