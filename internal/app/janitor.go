package app

import (
	"context"
	"time"

	"github.com/fireguard-store/storefront/internal/session"
)

// SessionJanitor 周期性关闭空闲购物车会话
type SessionJanitor struct {
	registry *session.Registry
	interval time.Duration
	idle     time.Duration
}

// NewSessionJanitor 创建会话清理服务；idle 为空闲阈值，检查间隔取其四分之一
func NewSessionJanitor(registry *session.Registry, idle time.Duration) *SessionJanitor {
	interval := idle / 4
	if interval < time.Second {
		interval = time.Second
	}
	return &SessionJanitor{registry: registry, interval: interval, idle: idle}
}

// Name 服务名称
func (j *SessionJanitor) Name() string {
	return "session_janitor"
}

// Start 运行直到 ctx 结束
func (j *SessionJanitor) Start(ctx context.Context) error {
	if j == nil || j.registry == nil || j.idle <= 0 {
		<-ctx.Done()
		return nil
	}
	j.registry.Run(ctx, j.interval, j.idle)
	return nil
}

// Stop 由 ctx 取消驱动退出
func (j *SessionJanitor) Stop(context.Context) error {
	return nil
}
