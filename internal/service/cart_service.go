package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/fireguard-store/storefront/internal/cart"
	"github.com/fireguard-store/storefront/internal/catalog"
	"github.com/fireguard-store/storefront/internal/models"
	"github.com/fireguard-store/storefront/internal/session"

	"github.com/shopspring/decimal"
)

// maxLineQuantity 单个购物车项数量上限
const maxLineQuantity = 9999

// CartView 购物车视图
type CartView struct {
	Items  []models.CartLineItem `json:"items"`
	Totals models.CartTotals     `json:"totals"`
	Phase  cart.Phase            `json:"phase"`
}

// CartItemDetail 合并商品信息后的购物车项
type CartItemDetail struct {
	ID        models.ItemID   `json:"id"`
	Quantity  int             `json:"quantity"`
	UnitPrice models.Money    `json:"unit_price"`
	LineTotal models.Money    `json:"line_total"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	Product   *models.Product `json:"product"`
}

// CartDetailsView 购物车详情视图
type CartDetailsView struct {
	Locale string            `json:"locale"`
	Items  []CartItemDetail  `json:"items"`
	Totals models.CartTotals `json:"totals"`
}

// AddCartItemInput 加入购物车输入；价格、名称、图片缺省时从商品信息补齐
type AddCartItemInput struct {
	SessionID string
	ID        models.ItemID
	Quantity  int
	Price     *models.Money
	Name      string
	Image     string
	Locale    string
}

// CartService 购物车服务
type CartService struct {
	sessions *session.Registry
	resolver *catalog.Resolver
}

// NewCartService 创建购物车服务
func NewCartService(sessions *session.Registry, resolver *catalog.Resolver) *CartService {
	return &CartService{
		sessions: sessions,
		resolver: resolver,
	}
}

func (s *CartService) manager(ctx context.Context, sessionID string) (*cart.Manager, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrSessionRequired
	}
	m, err := s.sessions.Acquire(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCartUnavailable, err)
	}
	return m, nil
}

func buildView(m *cart.Manager) *CartView {
	state := m.State()
	return &CartView{
		Items:  state.Items,
		Totals: state.Totals(),
		Phase:  m.Phase(),
	}
}

// Get 获取购物车
func (s *CartService) Get(ctx context.Context, sessionID string) (*CartView, error) {
	m, err := s.manager(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return buildView(m), nil
}

// AddItem 加入购物车：已存在时数量累加
func (s *CartService) AddItem(ctx context.Context, input AddCartItemInput) (*CartView, error) {
	id := models.ItemID(strings.TrimSpace(input.ID.String()))
	if id == "" || input.Quantity < 0 || input.Quantity > maxLineQuantity {
		return nil, ErrInvalidCartItem
	}
	quantity := input.Quantity
	if quantity == 0 {
		quantity = 1
	}
	m, err := s.manager(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}

	price, name, image, err := s.snapshotFor(ctx, id, input)
	if err != nil {
		return nil, err
	}
	actions := make([]cart.Action, quantity)
	for i := range actions {
		actions[i] = cart.AddItem(id, price, name, image)
	}
	m.DispatchAll(actions...)
	return buildView(m), nil
}

// snapshotFor 计算加入时的价格、名称、图片快照
func (s *CartService) snapshotFor(ctx context.Context, id models.ItemID, input AddCartItemInput) (models.Money, string, string, error) {
	if input.Price != nil && strings.TrimSpace(input.Name) != "" {
		price := *input.Price
		if price.IsNegative() {
			return models.Money{}, "", "", ErrInvalidCartItem
		}
		return price, input.Name, input.Image, nil
	}
	product := s.lookupProduct(ctx, id, input.Locale)
	if product == nil {
		return models.Money{}, "", "", ErrProductNotFound
	}
	price := product.Price
	if input.Price != nil && !input.Price.IsNegative() {
		price = *input.Price
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = product.Name
	}
	image := strings.TrimSpace(input.Image)
	if image == "" {
		image = product.PrimaryImage
	}
	return price, name, image, nil
}

func (s *CartService) lookupProduct(ctx context.Context, id models.ItemID, locale string) *models.Product {
	if s.resolver == nil {
		return nil
	}
	if strings.TrimSpace(locale) == "" {
		locale = s.resolver.CurrentLocale(ctx)
	}
	resolved := s.resolver.Resolve(ctx, locale, []models.ItemID{id})
	product, ok := resolved[id]
	if !ok {
		return nil
	}
	return &product
}

// UpdateQuantity 设置数量，数量小于等于 0 时移除
func (s *CartService) UpdateQuantity(ctx context.Context, sessionID string, id models.ItemID, quantity int) (*CartView, error) {
	if strings.TrimSpace(id.String()) == "" || quantity > maxLineQuantity {
		return nil, ErrInvalidCartItem
	}
	m, err := s.manager(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if _, ok := m.State().Find(id); !ok {
		return nil, ErrCartItemNotFound
	}
	m.Dispatch(cart.UpdateQuantity(id, quantity))
	return buildView(m), nil
}

// RemoveItem 移除购物车项，不存在时不做任何改动
func (s *CartService) RemoveItem(ctx context.Context, sessionID string, id models.ItemID) (*CartView, error) {
	m, err := s.manager(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	m.Dispatch(cart.RemoveItem(id))
	return buildView(m), nil
}

// Clear 清空购物车
func (s *CartService) Clear(ctx context.Context, sessionID string) (*CartView, error) {
	m, err := s.manager(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	m.Dispatch(cart.ClearCart())
	return buildView(m), nil
}

// Details 合并商品信息；商品信息缺失时使用加入时的快照
func (s *CartService) Details(ctx context.Context, sessionID, locale string) (*CartDetailsView, error) {
	m, err := s.manager(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	state := m.State()
	if strings.TrimSpace(locale) == "" {
		locale = s.resolver.CurrentLocale(ctx)
	}
	locale = s.resolver.Locales().Normalize(locale)

	ids := make([]models.ItemID, 0, len(state.Items))
	for _, item := range state.Items {
		ids = append(ids, item.ID)
	}
	resolved := s.resolver.Resolve(ctx, locale, ids)

	items := make([]CartItemDetail, 0, len(state.Items))
	for _, item := range state.Items {
		detail := CartItemDetail{
			ID:        item.ID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: models.NewMoneyFromDecimal(item.UnitPrice.Decimal.Mul(decimal.NewFromInt(int64(item.Quantity)))),
			Name:      item.DisplayName,
			Image:     item.ImageRef,
		}
		if product, ok := resolved[item.ID]; ok {
			detail.Product = &product
			if product.Name != "" {
				detail.Name = product.Name
			}
			if product.PrimaryImage != "" {
				detail.Image = product.PrimaryImage
			}
		}
		items = append(items, detail)
	}
	return &CartDetailsView{
		Locale: locale,
		Items:  items,
		Totals: state.Totals(),
	}, nil
}

// Product 直接查询单个商品
func (s *CartService) Product(ctx context.Context, id models.ItemID) (*models.Product, error) {
	if strings.TrimSpace(id.String()) == "" {
		return nil, ErrInvalidCartItem
	}
	product := s.resolver.GetByID(ctx, id)
	if product == nil {
		return nil, ErrProductNotFound
	}
	return product, nil
}
