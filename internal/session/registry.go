package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fireguard-store/storefront/internal/cart"
	"github.com/fireguard-store/storefront/internal/logger"

	"go.uber.org/zap"
)

// hydrateTimeout 首次水合读取槽位的超时，与发起请求的生命周期无关
const hydrateTimeout = 5 * time.Second

// ErrRegistryClosed 注册表已关闭
var ErrRegistryClosed = errors.New("session registry closed")

// ManagerFactory 为会话创建购物车管理器
type ManagerFactory func(ctx context.Context, sessionID string) *cart.Manager

type entry struct {
	ready    chan struct{}
	manager  *cart.Manager
	err      error
	lastSeen time.Time
}

// Registry 会话到购物车管理器的映射，空闲会话会被关闭并移除
type Registry struct {
	factory ManagerFactory
	log     *zap.SugaredLogger
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
	closed  bool
}

// NewRegistry 创建注册表
func NewRegistry(factory ManagerFactory, log *zap.SugaredLogger) *Registry {
	return &Registry{
		factory: factory,
		log:     logger.Or(log, "session_registry"),
		now:     time.Now,
		entries: map[string]*entry{},
	}
}

// Acquire 获取会话的管理器；首次访问时创建并完成水合，同一会话的并发首次访问只创建一次
func (r *Registry) Acquire(ctx context.Context, sessionID string) (*cart.Manager, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrRegistryClosed
	}
	if e, ok := r.entries[sessionID]; ok {
		e.lastSeen = r.now()
		r.mu.Unlock()
		select {
		case <-e.ready:
			return e.manager, e.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	e := &entry{ready: make(chan struct{}), lastSeen: r.now()}
	r.entries[sessionID] = e
	r.mu.Unlock()

	// 管理器会在多个请求间复用，构造与水合不能随首个请求一起被取消
	hydrateCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), hydrateTimeout)
	defer cancel()
	manager := r.factory(hydrateCtx, sessionID)
	err := manager.Hydrate(hydrateCtx)
	if err != nil {
		_ = manager.Close(context.WithoutCancel(ctx))
		r.mu.Lock()
		delete(r.entries, sessionID)
		r.mu.Unlock()
		e.err = err
		close(e.ready)
		return nil, err
	}
	r.mu.Lock()
	e.manager = manager
	r.mu.Unlock()
	close(e.ready)
	r.log.Debugw("cart_session_opened", "session_id", sessionID)
	return manager, nil
}

// Len 活跃会话数
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// EvictIdle 关闭空闲超过 idle 的会话，返回关闭数量
func (r *Registry) EvictIdle(ctx context.Context, idle time.Duration) int {
	cutoff := r.now().Add(-idle)
	var victims []*entry
	r.mu.Lock()
	for id, e := range r.entries {
		if e.manager == nil || e.lastSeen.After(cutoff) {
			continue
		}
		victims = append(victims, e)
		delete(r.entries, id)
		r.log.Debugw("cart_session_evicted", "session_id", id, "last_seen", e.lastSeen)
	}
	r.mu.Unlock()

	for _, e := range victims {
		if err := e.manager.Close(ctx); err != nil {
			r.log.Warnw("cart_session_close_failed", "error", err)
		}
	}
	return len(victims)
}

// Run 周期性清理空闲会话，直到 ctx 结束
func (r *Registry) Run(ctx context.Context, interval, idle time.Duration) {
	if interval <= 0 || idle <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if evicted := r.EvictIdle(ctx, idle); evicted > 0 {
				r.log.Infow("cart_sessions_evicted", "count", evicted, "active", r.Len())
			}
		}
	}
}

// Close 关闭全部会话，之后的 Acquire 返回 ErrRegistryClosed
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	entries := r.entries
	r.entries = map[string]*entry{}
	r.mu.Unlock()

	var errs []error
	for _, e := range entries {
		<-e.ready
		if e.manager == nil {
			continue
		}
		if err := e.manager.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
