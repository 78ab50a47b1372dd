package catalog

import (
	"sync"

	"github.com/fireguard-store/storefront/internal/models"
)

// Cache 按语言分区的商品缓存：无容量上限、无淘汰，分区一旦填充不再刷新
type Cache struct {
	mu      sync.RWMutex
	entries map[string]map[models.ItemID]models.Product
}

// NewCache 创建空缓存
func NewCache() *Cache {
	return &Cache{entries: map[string]map[models.ItemID]models.Product{}}
}

// Loaded 分区是否已填充
func (c *Cache) Loaded(locale string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[locale]
	return ok
}

// Populate 填充分区；已填充的分区保持不变并返回 false
func (c *Cache) Populate(locale string, products []models.Product) bool {
	partition := make(map[models.ItemID]models.Product, len(products))
	for _, product := range products {
		partition[product.ID] = product
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[locale]; ok {
		return false
	}
	c.entries[locale] = partition
	return true
}

// Get 读取单个商品
func (c *Cache) Get(locale string, id models.ItemID) (models.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	product, ok := c.entries[locale][id]
	return product, ok
}

// Len 分区内商品数量
func (c *Cache) Len(locale string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries[locale])
}

// Locales 已填充的分区
func (c *Cache) Locales() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.entries))
	for locale := range c.entries {
		out = append(out, locale)
	}
	return out
}
