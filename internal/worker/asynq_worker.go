package worker

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/fireguard-store/storefront/internal/cart"
	"github.com/fireguard-store/storefront/internal/logger"
	"github.com/fireguard-store/storefront/internal/provider"
	"github.com/fireguard-store/storefront/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskCartMigrateLegacy, c.handleCartMigrateLegacy)
	mux.HandleFunc(queue.TaskCatalogWarmLocale, c.handleCatalogWarmLocale)
}

func (c *Consumer) handleCartMigrateLegacy(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_cart_migrate_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.CartMigrateLegacyPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_cart_migrate_unmarshal_failed", "error", err)
		return err
	}
	key := strings.TrimSpace(payload.Key)
	if key == "" {
		logger.Debugw("worker_cart_migrate_skip_invalid_payload", "key", payload.Key)
		return nil
	}
	if c.Slot == nil {
		logger.Warnw("worker_cart_migrate_skip_slot_nil", "key", key)
		return nil
	}
	migrated, err := cart.MigrateLegacy(ctx, c.MigrationStoreFor(key))
	if err != nil {
		logger.Warnw("worker_cart_migrate_failed", "key", key, "error", err)
		return err
	}
	if !migrated {
		logger.Debugw("worker_cart_migrate_skip_not_legacy", "key", key)
	}
	return nil
}

func (c *Consumer) handleCatalogWarmLocale(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_catalog_warm_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.CatalogWarmLocalePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_catalog_warm_unmarshal_failed", "error", err)
		return err
	}
	if c.Catalog == nil {
		logger.Warnw("worker_catalog_warm_skip_catalog_nil", "locale", payload.Locale)
		return nil
	}
	locale := c.Catalog.Locales().Normalize(payload.Locale)
	c.Catalog.EnsureLocaleLoaded(ctx, locale)
	logger.Debugw("worker_catalog_warm_done",
		"locale", locale,
		"loaded", c.Catalog.Cache().Loaded(locale),
		"products", c.Catalog.Cache().Len(locale),
	)
	return nil
}
