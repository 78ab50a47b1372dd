package constants

// 队列与任务常量
const (
	QueueDefault            = "default"
	TaskCartMigrateLegacy   = "cart:migrate_legacy"
	TaskCatalogWarmLocale   = "catalog:warm_locale"
	DefaultCartStorageKey   = "cart"
	DefaultRedisPrefix      = "fg"
	CartSessionHeader       = "X-Cart-Session"
	CartSessionContextKey   = "cart_session_id"
	DefaultCatalogLocale    = "ru"
	ProductListPath         = "/api/products"
	ProductListLocaleParam  = "locale"
	CartSnapshotItemsField  = "items"
	CartSnapshotLegacyQty   = "qty"
	CartSnapshotQuantityKey = "quantity"
)

// 持久化槽位驱动常量
const (
	StorageDriverMemory = "memory"
	StorageDriverFile   = "file"
	StorageDriverRedis  = "redis"
	StorageDriverSQL    = "sql"
)
