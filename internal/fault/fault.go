// Package fault 描述被降级处理的失败：组件在边界处吞掉错误时，
// 将失败以 Failure 的形式交给可注入的 Hook，使降级行为可观测、可测试。
package fault

import (
	"context"
	"sync"
)

// Kind 失败类别
type Kind string

const (
	KindStorageRead       Kind = "storage_read"
	KindStorageWrite      Kind = "storage_write"
	KindMalformedSnapshot Kind = "malformed_snapshot"
	KindNetwork           Kind = "network"
	KindUpstream          Kind = "upstream"
	KindDecode            Kind = "decode"
	KindQueue             Kind = "queue"
)

// Failure 一次被降级处理的失败
type Failure struct {
	Kind Kind
	Op   string
	Key  string
	Err  error
}

func (f Failure) Error() string {
	msg := string(f.Kind) + " " + f.Op
	if f.Key != "" {
		msg += " [" + f.Key + "]"
	}
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f Failure) Unwrap() error {
	return f.Err
}

// Hook 接收失败通知
type Hook interface {
	Report(ctx context.Context, failure Failure)
}

// HookFunc 让普通函数实现 Hook
type HookFunc func(ctx context.Context, failure Failure)

// Report 调用底层函数
func (fn HookFunc) Report(ctx context.Context, failure Failure) {
	if fn == nil {
		return
	}
	fn(ctx, failure)
}

// Hooks 将失败分发给多个 Hook
type Hooks []Hook

// Report 依次通知所有 Hook
func (h Hooks) Report(ctx context.Context, failure Failure) {
	if ctx == nil {
		ctx = context.Background()
	}
	for _, hook := range h {
		if hook == nil {
			continue
		}
		hook.Report(ctx, failure)
	}
}

// Recorder 记录所有失败，主要用于测试
type Recorder struct {
	mu       sync.Mutex
	failures []Failure
}

// Report 记录失败
func (r *Recorder) Report(_ context.Context, failure Failure) {
	r.mu.Lock()
	r.failures = append(r.failures, failure)
	r.mu.Unlock()
}

// Failures 返回已记录的失败副本
func (r *Recorder) Failures() []Failure {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Failure, len(r.failures))
	copy(out, r.failures)
	return out
}

// Count 返回指定类别的失败次数
func (r *Recorder) Count(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, f := range r.failures {
		if f.Kind == kind {
			n++
		}
	}
	return n
}

// Counter 按类别计数，供运行时观测
type Counter struct {
	mu     sync.Mutex
	counts map[Kind]uint64
}

// Report 计数
func (c *Counter) Report(_ context.Context, failure Failure) {
	c.mu.Lock()
	if c.counts == nil {
		c.counts = map[Kind]uint64{}
	}
	c.counts[failure.Kind]++
	c.mu.Unlock()
}

// Snapshot 返回计数副本
func (c *Counter) Snapshot() map[Kind]uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[Kind]uint64, len(c.counts))
	for kind, n := range c.counts {
		out[kind] = n
	}
	return out
}
