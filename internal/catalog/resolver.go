package catalog

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fireguard-store/storefront/internal/cache"
	"github.com/fireguard-store/storefront/internal/fault"
	"github.com/fireguard-store/storefront/internal/logger"
	"github.com/fireguard-store/storefront/internal/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const defaultFallbackConcurrency = 4

// ResolverOptions 解析器选项
type ResolverOptions struct {
	Cache   *Cache
	Locales *Locales
	Source  LocaleSource
	Logger  *zap.SugaredLogger
	Hook    fault.Hook
	// SharedCacheTTL 大于 0 时使用 Redis 作为跨进程的二级缓存
	SharedCacheTTL      time.Duration
	FallbackConcurrency int
}

// Resolver 按语言解析商品信息
type Resolver struct {
	products    ProductSource
	cache       *Cache
	locales     *Locales
	source      LocaleSource
	log         *zap.SugaredLogger
	hook        fault.Hook
	sharedTTL   time.Duration
	concurrency int
	group       singleflight.Group
}

// NewResolver 创建解析器
func NewResolver(products ProductSource, opts ResolverOptions) *Resolver {
	c := opts.Cache
	if c == nil {
		c = NewCache()
	}
	locales := opts.Locales
	if locales == nil {
		locales = NewLocales("", nil)
	}
	source := opts.Source
	if source == nil {
		source = ContextLocaleSource
	}
	concurrency := opts.FallbackConcurrency
	if concurrency <= 0 {
		concurrency = defaultFallbackConcurrency
	}
	return &Resolver{
		products:    products,
		cache:       c,
		locales:     locales,
		source:      source,
		log:         logger.Or(opts.Logger, "catalog"),
		hook:        opts.Hook,
		sharedTTL:   opts.SharedCacheTTL,
		concurrency: concurrency,
	}
}

// Cache 底层缓存
func (r *Resolver) Cache() *Cache {
	return r.cache
}

// Locales 支持的语言
func (r *Resolver) Locales() *Locales {
	return r.locales
}

// CurrentLocale 读取外部语言信号并归一化；信号变化不会触发缓存刷新
func (r *Resolver) CurrentLocale(ctx context.Context) string {
	return r.locales.Normalize(r.source.CurrentLocale(ctx))
}

// EnsureLocaleLoaded 分区未填充时拉取全量商品列表；同一语言的并发调用合并为一次请求。
// 失败只记录并通知 Hook，分区保持未填充。
func (r *Resolver) EnsureLocaleLoaded(ctx context.Context, locale string) {
	locale = r.locales.Normalize(locale)
	if r.cache.Loaded(locale) {
		return
	}
	ch := r.group.DoChan(locale, func() (interface{}, error) {
		if r.cache.Loaded(locale) {
			return nil, nil
		}
		return nil, r.loadLocale(context.WithoutCancel(ctx), locale)
	})
	select {
	case <-ch:
	case <-ctx.Done():
	}
}

// EnsureCurrentLoaded 填充当前语言分区
func (r *Resolver) EnsureCurrentLoaded(ctx context.Context) {
	r.EnsureLocaleLoaded(ctx, r.CurrentLocale(ctx))
}

func (r *Resolver) loadLocale(ctx context.Context, locale string) error {
	if products, ok := r.readShared(ctx, locale); ok {
		r.cache.Populate(locale, products)
		r.log.Debugw("catalog_locale_loaded", "locale", locale, "products", len(products), "source", "shared")
		return nil
	}
	products, err := r.products.ListProducts(ctx, locale)
	if err != nil {
		r.report(ctx, classify(err), "list_products", locale, err)
		return err
	}
	r.cache.Populate(locale, products)
	r.writeShared(ctx, locale, products)
	r.log.Debugw("catalog_locale_loaded", "locale", locale, "products", len(products), "source", "api")
	return nil
}

// Lookup 只读缓存
func (r *Resolver) Lookup(locale string, id models.ItemID) (models.Product, bool) {
	return r.cache.Get(r.locales.Normalize(locale), id)
}

// GetByID 直接请求单个商品，不读写缓存；任何失败都返回 nil
func (r *Resolver) GetByID(ctx context.Context, id models.ItemID) *models.Product {
	return r.getByID(ctx, id, r.CurrentLocale(ctx))
}

func (r *Resolver) getByID(ctx context.Context, id models.ItemID, locale string) *models.Product {
	product, err := r.products.GetProduct(ctx, id, locale)
	if err != nil {
		r.report(ctx, classify(err), "get_product", id.String(), err)
		return nil
	}
	return product
}

// Resolve 解析一组商品：先填充语言分区，分区中缺失的 id 逐个直接请求，仍缺失的不出现在结果中
func (r *Resolver) Resolve(ctx context.Context, locale string, ids []models.ItemID) map[models.ItemID]models.Product {
	locale = r.locales.Normalize(locale)
	r.EnsureLocaleLoaded(ctx, locale)

	resolved := make(map[models.ItemID]models.Product, len(ids))
	missing := make([]models.ItemID, 0)
	seen := make(map[models.ItemID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if product, ok := r.cache.Get(locale, id); ok {
			resolved[id] = product
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return resolved
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for _, id := range missing {
		g.Go(func() error {
			product := r.getByID(ctx, id, locale)
			if product == nil {
				return nil
			}
			mu.Lock()
			resolved[id] = *product
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return resolved
}

// ResolveCurrent 按当前语言解析
func (r *Resolver) ResolveCurrent(ctx context.Context, ids []models.ItemID) map[models.ItemID]models.Product {
	return r.Resolve(ctx, r.CurrentLocale(ctx), ids)
}

func sharedKey(locale string) string {
	return "catalog:products:" + locale
}

func (r *Resolver) readShared(ctx context.Context, locale string) ([]models.Product, bool) {
	if r.sharedTTL <= 0 || !cache.Enabled() {
		return nil, false
	}
	var products []models.Product
	hit, err := cache.GetJSON(ctx, sharedKey(locale), &products)
	if err != nil {
		r.log.Warnw("catalog_shared_cache_read_failed", "locale", locale, "error", err)
		return nil, false
	}
	return products, hit
}

func (r *Resolver) writeShared(ctx context.Context, locale string, products []models.Product) {
	if r.sharedTTL <= 0 || !cache.Enabled() {
		return
	}
	if err := cache.SetJSON(ctx, sharedKey(locale), products, r.sharedTTL); err != nil {
		r.log.Warnw("catalog_shared_cache_write_failed", "locale", locale, "error", err)
	}
}

func (r *Resolver) report(ctx context.Context, kind fault.Kind, op, key string, err error) {
	r.log.Warnw("catalog_"+op+"_failed", "key", key, "kind", string(kind), "error", err)
	if r.hook != nil {
		r.hook.Report(ctx, fault.Failure{Kind: kind, Op: op, Key: key, Err: err})
	}
}

func classify(err error) fault.Kind {
	switch {
	case errors.Is(err, ErrResponseInvalid):
		return fault.KindDecode
	case errors.Is(err, ErrUnsuccessful), errors.Is(err, ErrProductNotFound):
		return fault.KindUpstream
	}
	return fault.KindNetwork
}
