package queue

import (
	"encoding/json"

	"github.com/fireguard-store/storefront/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskCartMigrateLegacy 旧版数组格式购物车改写任务
	TaskCartMigrateLegacy = constants.TaskCartMigrateLegacy
	// TaskCatalogWarmLocale 预热语言分区任务
	TaskCatalogWarmLocale = constants.TaskCatalogWarmLocale
)

// CartMigrateLegacyPayload 改写任务载荷
type CartMigrateLegacyPayload struct {
	Key string `json:"key"`
}

// CatalogWarmLocalePayload 预热任务载荷
type CatalogWarmLocalePayload struct {
	Locale string `json:"locale"`
}

// NewCartMigrateLegacyTask 创建改写任务
func NewCartMigrateLegacyTask(payload CartMigrateLegacyPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCartMigrateLegacy, body), nil
}

// NewCatalogWarmLocaleTask 创建预热任务
func NewCatalogWarmLocaleTask(payload CatalogWarmLocalePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCatalogWarmLocale, body), nil
}
