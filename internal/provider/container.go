package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/fireguard-store/storefront/internal/cache"
	"github.com/fireguard-store/storefront/internal/cart"
	"github.com/fireguard-store/storefront/internal/catalog"
	"github.com/fireguard-store/storefront/internal/config"
	"github.com/fireguard-store/storefront/internal/constants"
	"github.com/fireguard-store/storefront/internal/fault"
	"github.com/fireguard-store/storefront/internal/logger"
	"github.com/fireguard-store/storefront/internal/models"
	"github.com/fireguard-store/storefront/internal/queue"
	"github.com/fireguard-store/storefront/internal/service"
	"github.com/fireguard-store/storefront/internal/session"
	"github.com/fireguard-store/storefront/internal/storage"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// 持久化槽位，为 nil 时购物车只保存在内存中
	Slot         cart.Slot
	Faults       *fault.Counter
	Catalog      *catalog.Resolver
	Sessions     *session.Registry
	SessionToken *session.Issuer

	// Services
	CartService *service.CartService
}

// Deps 可替换的外部依赖
type Deps struct {
	Slot        cart.Slot
	Products    catalog.ProductSource
	QueueClient *queue.Client
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	slot, err := NewSlot(cfg.Storage)
	if err != nil {
		logger.Warnw("provider_init_slot_failed",
			"driver", cfg.Storage.Driver,
			"error", err,
			"fallback", "in_memory_only",
		)
		slot = nil
	}

	return Assemble(cfg, Deps{
		Slot:        slot,
		Products:    catalog.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.Timeout()),
		QueueClient: queueClient,
	})
}

// Assemble 使用给定依赖组装容器
func Assemble(cfg *config.Config, deps Deps) *Container {
	c := &Container{
		Config:      cfg,
		QueueClient: deps.QueueClient,
		Slot:        deps.Slot,
		Faults:      &fault.Counter{},
	}
	c.Catalog = catalog.NewResolver(deps.Products, catalog.ResolverOptions{
		Cache:          catalog.NewCache(),
		Locales:        catalog.NewLocales(cfg.Catalog.DefaultLocale, cfg.Catalog.Locales),
		Source:         catalog.ContextLocaleSource,
		Logger:         logger.Named("catalog"),
		Hook:           c.Faults,
		SharedCacheTTL: cfg.Catalog.SharedCacheTTL(),
	})
	c.Sessions = session.NewRegistry(c.NewManager, logger.Named("session_registry"))
	c.SessionToken = session.NewIssuer(cfg.Session.Secret, cfg.Session.TTLHours)
	c.CartService = service.NewCartService(c.Sessions, c.Catalog)
	return c
}

// NewSlot 按配置创建持久化槽位
func NewSlot(cfg config.StorageConfig) (cart.Slot, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case constants.StorageDriverMemory:
		return storage.NewMemorySlot(), nil
	case "", constants.StorageDriverFile:
		slot, err := storage.NewFileSlot(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return slot, nil
	case constants.StorageDriverRedis:
		if !cache.Enabled() {
			return nil, fmt.Errorf("redis slot requires redis.enabled: %w", storage.ErrUnavailable)
		}
		return storage.NewRedisSlot(cache.Client(), cache.Prefix()), nil
	case constants.StorageDriverSQL:
		if models.DB == nil {
			return nil, fmt.Errorf("sql slot requires database: %w", storage.ErrUnavailable)
		}
		return storage.NewSQLSlot(models.DB), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q: %w", cfg.Driver, storage.ErrUnavailable)
	}
}

// StorageKey 会话对应的槽位 key
func (c *Container) StorageKey(sessionID string) string {
	key := strings.TrimSpace(c.Config.Storage.Key)
	if key == "" {
		key = constants.DefaultCartStorageKey
	}
	return storage.SessionKey(sessionID, key)
}

// StoreFor 创建指定 key 的持久化适配器
func (c *Container) StoreFor(key string) *cart.Store {
	return cart.NewStore(c.Slot, cart.StoreOptions{
		Key:      key,
		Logger:   logger.Named("cart_store"),
		Hook:     c.Faults,
		OnLegacy: c.enqueueLegacyMigration,
	})
}

// MigrationStoreFor 创建用于改写任务的持久化适配器（不再触发改写入队）
func (c *Container) MigrationStoreFor(key string) *cart.Store {
	return cart.NewStore(c.Slot, cart.StoreOptions{
		Key:    key,
		Logger: logger.Named("cart_migrate"),
		Hook:   c.Faults,
	})
}

// NewManager 为会话创建购物车管理器
func (c *Container) NewManager(ctx context.Context, sessionID string) *cart.Manager {
	return cart.NewManager(ctx, c.StoreFor(c.StorageKey(sessionID)), cart.ManagerOptions{
		Logger: logger.Named("cart_manager").With("session_id", sessionID),
	})
}

func (c *Container) enqueueLegacyMigration(ctx context.Context, key string) {
	if !c.QueueClient.Enabled() {
		return
	}
	if err := c.QueueClient.EnqueueCartMigrateLegacy(queue.CartMigrateLegacyPayload{Key: key}); err != nil {
		logger.Warnw("provider_enqueue_legacy_migration_failed", "key", key, "error", err)
		c.Faults.Report(ctx, fault.Failure{Kind: fault.KindQueue, Op: "enqueue_migrate_legacy", Key: key, Err: err})
	}
}

// Close 释放容器持有的资源
func (c *Container) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}
	err := c.Sessions.Close(ctx)
	if qerr := c.QueueClient.Close(); qerr != nil && err == nil {
		err = qerr
	}
	return err
}
