package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/fireguard-store/storefront/internal/constants"
	"github.com/fireguard-store/storefront/internal/fault"
	"github.com/fireguard-store/storefront/internal/logger"
	"github.com/fireguard-store/storefront/internal/models"

	"go.uber.org/zap"
)

var (
	// ErrSlotUnavailable 持久化槽位不可用
	ErrSlotUnavailable = errors.New("cart slot unavailable")
	// ErrSnapshotMalformed 持久化内容无法识别
	ErrSnapshotMalformed = errors.New("cart snapshot malformed")
)

// Shape 持久化内容的格式
type Shape string

const (
	ShapeAbsent      Shape = "absent"
	ShapeLegacyArray Shape = "legacy_array"
	ShapeItemsObject Shape = "items_object"
)

// Slot 单 key 持久化槽位
type Slot interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// LegacyObserver 发现旧版数组格式时回调
type LegacyObserver func(ctx context.Context, key string)

// StoreOptions 持久化适配器选项
type StoreOptions struct {
	Key      string
	Logger   *zap.SugaredLogger
	Hook     fault.Hook
	OnLegacy LegacyObserver
}

// Store 购物车持久化适配器
type Store struct {
	slot     Slot
	key      string
	log      *zap.SugaredLogger
	hook     fault.Hook
	onLegacy LegacyObserver
}

// NewStore 创建持久化适配器；slot 为 nil 表示当前环境没有持久化能力
func NewStore(slot Slot, opts StoreOptions) *Store {
	key := strings.TrimSpace(opts.Key)
	if key == "" {
		key = constants.DefaultCartStorageKey
	}
	return &Store{
		slot:     slot,
		key:      key,
		log:      logger.Or(opts.Logger, "cart_store"),
		hook:     opts.Hook,
		onLegacy: opts.OnLegacy,
	}
}

// Key 槽位 key
func (s *Store) Key() string {
	return s.key
}

// Available 当前环境是否可以访问持久化槽位
func (s *Store) Available() bool {
	return s != nil && s.slot != nil
}

// Load 读取购物车，缺失、无法解析或格式不符时返回 nil；不会返回错误
func (s *Store) Load(ctx context.Context) *models.CartState {
	state, _ := s.Reconcile(ctx)
	return state
}

// Reconcile 读取购物车用于水合：缺失或内容无法识别时返回 nil，
// 只有槽位本身读取失败时返回 ErrSlotUnavailable，调用方据此区分“没有购物车”与“读不到购物车”。
func (s *Store) Reconcile(ctx context.Context) (*models.CartState, error) {
	state, shape, err := s.Read(ctx)
	if err != nil {
		if errors.Is(err, ErrSnapshotMalformed) {
			s.report(ctx, fault.KindMalformedSnapshot, "load", err)
			return nil, nil
		}
		s.report(ctx, fault.KindStorageRead, "load", err)
		return nil, err
	}
	if shape == ShapeLegacyArray && s.onLegacy != nil {
		s.onLegacy(ctx, s.key)
	}
	return state, nil
}

// Read 读取购物车并返回明确的结果：格式与错误（ErrSlotUnavailable / ErrSnapshotMalformed）
func (s *Store) Read(ctx context.Context) (*models.CartState, Shape, error) {
	if !s.Available() {
		return nil, ShapeAbsent, ErrSlotUnavailable
	}
	raw, found, err := s.slot.Get(ctx, s.key)
	if err != nil {
		return nil, ShapeAbsent, fmt.Errorf("%w: %v", ErrSlotUnavailable, err)
	}
	if !found || len(bytes.TrimSpace(raw)) == 0 {
		return nil, ShapeAbsent, nil
	}
	return DecodeSnapshot(raw)
}

// Save 写入购物车，失败只记录日志并通知 Hook
func (s *Store) Save(ctx context.Context, state models.CartState) {
	if err := s.Write(ctx, state); err != nil {
		s.report(ctx, fault.KindStorageWrite, "save", err)
	}
}

// Write 写入购物车并返回错误
func (s *Store) Write(ctx context.Context, state models.CartState) error {
	if !s.Available() {
		return ErrSlotUnavailable
	}
	payload, err := EncodeSnapshot(state)
	if err != nil {
		return err
	}
	if err := s.slot.Set(ctx, s.key, payload); err != nil {
		return fmt.Errorf("%w: %v", ErrSlotUnavailable, err)
	}
	return nil
}

func (s *Store) report(ctx context.Context, kind fault.Kind, op string, err error) {
	s.log.Warnw("cart_store_"+op+"_failed", "key", s.key, "kind", string(kind), "error", err)
	if s.hook != nil {
		s.hook.Report(ctx, fault.Failure{Kind: kind, Op: op, Key: s.key, Err: err})
	}
}

type snapshotEnvelope struct {
	Items []models.CartLineItem `json:"items"`
}

// EncodeSnapshot 序列化为 {"items": [...]}
func EncodeSnapshot(state models.CartState) ([]byte, error) {
	items := state.Items
	if items == nil {
		items = []models.CartLineItem{}
	}
	payload, err := json.Marshal(snapshotEnvelope{Items: items})
	if err != nil {
		return nil, fmt.Errorf("encode cart snapshot failed: %w", err)
	}
	return payload, nil
}

// DecodeSnapshot 解析持久化内容，兼容旧版数组格式与 {"items": [...]} 格式
func DecodeSnapshot(raw []byte) (*models.CartState, Shape, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var parsed interface{}
	if err := decoder.Decode(&parsed); err != nil {
		return nil, ShapeAbsent, fmt.Errorf("%w: %v", ErrSnapshotMalformed, err)
	}

	var rawItems []interface{}
	shape := ShapeAbsent
	switch value := parsed.(type) {
	case []interface{}:
		rawItems = value
		shape = ShapeLegacyArray
	case map[string]interface{}:
		list, ok := value[constants.CartSnapshotItemsField].([]interface{})
		if !ok {
			return nil, ShapeAbsent, fmt.Errorf("%w: object without items list", ErrSnapshotMalformed)
		}
		rawItems = list
		shape = ShapeItemsObject
	default:
		return nil, ShapeAbsent, fmt.Errorf("%w: unexpected %T", ErrSnapshotMalformed, parsed)
	}

	items := make([]models.CartLineItem, 0, len(rawItems))
	index := make(map[models.ItemID]int, len(rawItems))
	for _, rawItem := range rawItems {
		fields, ok := rawItem.(map[string]interface{})
		if !ok {
			continue
		}
		item, ok := coerceLineItem(fields)
		if !ok {
			continue
		}
		if pos, seen := index[item.ID]; seen {
			items[pos].Quantity += item.Quantity
			continue
		}
		index[item.ID] = len(items)
		items = append(items, item)
	}
	return &models.CartState{Items: items}, shape, nil
}

func coerceLineItem(fields map[string]interface{}) (models.CartLineItem, bool) {
	id := coerceID(fields["id"])
	if id == "" {
		return models.CartLineItem{}, false
	}
	quantity, ok := parseQuantity(fields[constants.CartSnapshotQuantityKey])
	if !ok {
		quantity = coerceQuantity(fields[constants.CartSnapshotLegacyQty])
	}
	price := models.MoneyFromAny(fields["price"])
	if price.IsNegative() {
		price = models.Money{}
	}
	return models.CartLineItem{
		ID:          id,
		Quantity:    quantity,
		UnitPrice:   price,
		DisplayName: stringOrEmpty(fields["name"]),
		ImageRef:    stringOrEmpty(fields["image"]),
	}, true
}

func coerceID(v interface{}) models.ItemID {
	switch value := v.(type) {
	case string:
		return models.ItemID(strings.TrimSpace(value))
	case json.Number:
		return models.ItemID(value.String())
	}
	return ""
}

// coerceQuantity 缺失、非法或非正数时取 1，小数向下取整
func coerceQuantity(v interface{}) int {
	qty, ok := parseQuantity(v)
	if !ok {
		return 1
	}
	return qty
}

// parseQuantity 解析数量，无法识别时 ok=false
func parseQuantity(v interface{}) (int, bool) {
	var f float64
	switch value := v.(type) {
	case json.Number:
		parsed, err := value.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt32 {
		return 0, false
	}
	qty := int(math.Floor(f))
	if qty < 1 {
		return 1, true
	}
	return qty, true
}

func stringOrEmpty(v interface{}) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
