package cart

import (
	"bytes"
	"context"
	"fmt"
)

// Swapper 支持按原内容条件写入的槽位
type Swapper interface {
	CompareAndSwap(ctx context.Context, key string, old, value []byte) (bool, error)
}

// MigrateLegacy 槽位中是旧版数组格式时改写为 {"items": [...]}，返回是否发生改写。
// 空的旧版数组不会被改写；读取之后槽位若已被其他写入者更新，则放弃改写，保留较新的内容。
func MigrateLegacy(ctx context.Context, store *Store) (bool, error) {
	if !store.Available() {
		return false, ErrSlotUnavailable
	}
	raw, found, err := store.slot.Get(ctx, store.key)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrSlotUnavailable, err)
	}
	if !found || len(bytes.TrimSpace(raw)) == 0 {
		return false, nil
	}
	state, shape, err := DecodeSnapshot(raw)
	if err != nil {
		return false, err
	}
	if shape != ShapeLegacyArray || state == nil || state.IsEmpty() {
		return false, nil
	}
	payload, err := EncodeSnapshot(*state)
	if err != nil {
		return false, err
	}

	swapper, ok := store.slot.(Swapper)
	if !ok {
		if err := store.slot.Set(ctx, store.key, payload); err != nil {
			return false, fmt.Errorf("%w: %v", ErrSlotUnavailable, err)
		}
	} else {
		swapped, err := swapper.CompareAndSwap(ctx, store.key, raw, payload)
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrSlotUnavailable, err)
		}
		if !swapped {
			store.log.Infow("cart_legacy_migration_superseded", "key", store.Key())
			return false, nil
		}
	}
	store.log.Infow("cart_legacy_snapshot_migrated", "key", store.Key(), "items", len(state.Items))
	return true, nil
}
