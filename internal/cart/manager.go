package cart

import (
	"context"
	"errors"
	"sync"

	"github.com/fireguard-store/storefront/internal/logger"
	"github.com/fireguard-store/storefront/internal/models"

	"go.uber.org/zap"
)

const defaultWriteBuffer = 64

// ErrManagerClosed 管理器已关闭
var ErrManagerClosed = errors.New("cart manager closed")

// Phase 水合阶段
type Phase string

const (
	PhaseUninitialized Phase = "uninitialized"
	PhaseHydrating     Phase = "hydrating"
	PhaseReady         Phase = "ready"
)

// Snapshot 提交后的状态快照，Version 单调递增
type Snapshot struct {
	Version uint64
	State   models.CartState
}

// ManagerOptions 管理器选项
type ManagerOptions struct {
	Logger      *zap.SugaredLogger
	WriteBuffer int
}

type writeJob struct {
	state   models.CartState
	flushed chan struct{}
}

// Manager 购物车管理器：唯一的状态来源，负责与持久化槽位水合及回写
//
// 构造时同步读取一次槽位；Hydrate 再读取一次并以 INIT_STORED 应用，
// 完成后进入 Ready。Ready 之前的持久化全部被抑制；空购物车只有由 CLEAR_CART
// 产生时才会被写入。Ready 之前分发的动作会被记录，并在水合完成后重放到存储内容之上。
// 水合时槽位读取失败则该管理器只在内存中工作，不再回写，避免覆盖读不到的已存购物车。
type Manager struct {
	store *Store
	log   *zap.SugaredLogger

	mu             sync.Mutex
	state          models.CartState
	version        uint64
	phase          Phase
	pending        []Action
	clearRequested bool
	detached       bool
	closed         bool
	subscribers    map[int]func(Snapshot)
	nextSubscriber int

	writes chan writeJob
	wg     sync.WaitGroup
}

// NewManager 创建管理器，槽位可用时立即同步读取一次
func NewManager(ctx context.Context, store *Store, opts ManagerOptions) *Manager {
	buffer := opts.WriteBuffer
	if buffer <= 0 {
		buffer = defaultWriteBuffer
	}
	m := &Manager{
		store:       store,
		log:         logger.Or(opts.Logger, "cart_manager"),
		state:       models.CartState{Items: []models.CartLineItem{}},
		phase:       PhaseUninitialized,
		subscribers: map[int]func(Snapshot){},
		writes:      make(chan writeJob, buffer),
	}
	if store.Available() {
		if stored := store.Load(ctx); stored != nil {
			m.state = Reduce(m.state, InitStored(stored))
		}
	}
	m.wg.Add(1)
	go m.runPersister()
	return m
}

// Hydrate 水合：再次读取槽位，应用 INIT_STORED 并重放水合期间的动作，随后进入 Ready
func (m *Manager) Hydrate(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrManagerClosed
	}
	if m.phase != PhaseUninitialized {
		m.mu.Unlock()
		return nil
	}
	m.phase = PhaseHydrating
	m.mu.Unlock()

	var stored *models.CartState
	var readErr error
	if m.store.Available() {
		stored, readErr = m.store.Reconcile(ctx)
	}

	m.mu.Lock()
	replayed := len(m.pending)
	if readErr != nil {
		m.detached = true
	}
	if stored != nil {
		next := Reduce(m.state, InitStored(stored))
		for _, action := range m.pending {
			next = Reduce(next, action)
		}
		m.state = next
		m.version++
	}
	m.pending = nil
	m.phase = PhaseReady
	m.persistLocked()
	snapshot, subscribers := m.snapshotLocked()
	m.mu.Unlock()

	if readErr != nil {
		m.log.Warnw("cart_hydrate_detached", "key", m.store.Key(), "error", readErr)
	}
	m.log.Debugw("cart_hydrated",
		"key", m.store.Key(),
		"stored", stored != nil,
		"detached", readErr != nil,
		"replayed_actions", replayed,
		"items", len(snapshot.State.Items),
	)
	notify(subscribers, snapshot)
	return nil
}

// Dispatch 按分发顺序应用动作并返回新状态
func (m *Manager) Dispatch(action Action) models.CartState {
	return m.DispatchAll(action)
}

// DispatchAll 在同一次提交中依次应用多个动作：只产生一个版本、一次持久化和一次通知
func (m *Manager) DispatchAll(actions ...Action) models.CartState {
	m.mu.Lock()
	if len(actions) == 0 {
		state := m.state.Clone()
		m.mu.Unlock()
		return state
	}
	for _, action := range actions {
		m.state = Reduce(m.state, action)
		if action.Type == ActionClearCart {
			m.clearRequested = true
		}
		if m.phase != PhaseReady {
			m.pending = append(m.pending, action)
		}
	}
	m.version++
	m.persistLocked()
	snapshot, subscribers := m.snapshotLocked()
	m.mu.Unlock()

	notify(subscribers, snapshot)
	return snapshot.State
}

// State 当前状态副本
func (m *Manager) State() models.CartState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone()
}

// Totals 当前汇总
func (m *Manager) Totals() models.CartTotals {
	return m.State().Totals()
}

// Detached 水合读取失败后是否只在内存中工作
func (m *Manager) Detached() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.detached
}

// Phase 当前水合阶段
func (m *Manager) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Subscribe 订阅状态变化，返回取消函数。回调可能并发触发，以 Version 判断先后。
func (m *Manager) Subscribe(fn func(Snapshot)) func() {
	if fn == nil {
		return func() {}
	}
	m.mu.Lock()
	id := m.nextSubscriber
	m.nextSubscriber++
	m.subscribers[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.subscribers, id)
		m.mu.Unlock()
	}
}

// Flush 等待已排队的写入完成
func (m *Manager) Flush(ctx context.Context) error {
	done := make(chan struct{})
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.writes <- writeJob{flushed: done}
	m.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close 写完队列中的内容后停止后台写入
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	close(m.writes)
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// persistLocked 持久化守卫，调用方需持有 mu
func (m *Manager) persistLocked() {
	if m.phase != PhaseReady || m.closed || m.detached {
		return
	}
	allowEmpty := m.clearRequested
	m.clearRequested = false
	if m.state.IsEmpty() && !allowEmpty {
		m.log.Debugw("cart_persist_skip_empty", "key", m.store.Key())
		return
	}
	if !m.store.Available() {
		return
	}
	m.writes <- writeJob{state: m.state.Clone()}
}

func (m *Manager) snapshotLocked() (Snapshot, []func(Snapshot)) {
	snapshot := Snapshot{Version: m.version, State: m.state.Clone()}
	if len(m.subscribers) == 0 {
		return snapshot, nil
	}
	subscribers := make([]func(Snapshot), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		subscribers = append(subscribers, fn)
	}
	return snapshot, subscribers
}

func (m *Manager) runPersister() {
	defer m.wg.Done()
	ctx := context.Background()
	for job := range m.writes {
		if job.flushed != nil {
			close(job.flushed)
			continue
		}
		m.store.Save(ctx, job.state)
	}
}

func notify(subscribers []func(Snapshot), snapshot Snapshot) {
	for _, fn := range subscribers {
		fn(snapshot)
	}
}
