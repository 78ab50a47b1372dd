package cart

import (
	"github.com/fireguard-store/storefront/internal/models"
)

// ActionType 购物车动作类型
type ActionType string

const (
	ActionAddItem        ActionType = "ADD_ITEM"
	ActionRemoveItem     ActionType = "REMOVE_ITEM"
	ActionUpdateQuantity ActionType = "UPDATE_QUANTITY"
	ActionClearCart      ActionType = "CLEAR_CART"
	ActionLoadCart       ActionType = "LOAD_CART"
	ActionInitStored     ActionType = "INIT_STORED"
)

// Action 购物车动作
type Action struct {
	Type     ActionType
	ID       models.ItemID
	Quantity int
	Price    models.Money
	Name     string
	Image    string
	State    *models.CartState
}

// AddItem 加入商品（已存在则数量 +1）
func AddItem(id models.ItemID, price models.Money, name, image string) Action {
	return Action{Type: ActionAddItem, ID: id, Price: price, Name: name, Image: image}
}

// RemoveItem 移除商品
func RemoveItem(id models.ItemID) Action {
	return Action{Type: ActionRemoveItem, ID: id}
}

// UpdateQuantity 设置商品数量，数量 <= 0 的项会被移除
func UpdateQuantity(id models.ItemID, qty int) Action {
	return Action{Type: ActionUpdateQuantity, ID: id, Quantity: qty}
}

// ClearCart 清空购物车
func ClearCart() Action {
	return Action{Type: ActionClearCart}
}

// LoadCart 整体替换购物车内容
func LoadCart(state *models.CartState) Action {
	return Action{Type: ActionLoadCart, State: state}
}

// InitStored 以持久化内容初始化购物车
func InitStored(state *models.CartState) Action {
	return Action{Type: ActionInitStored, State: state}
}

// Reduce 纯函数状态迁移，不修改入参
func Reduce(state models.CartState, action Action) models.CartState {
	switch action.Type {
	case ActionAddItem:
		items := cloneItems(state.Items, 1)
		for i := range items {
			if items[i].ID == action.ID {
				items[i].Quantity++
				return models.CartState{Items: items}
			}
		}
		items = append(items, models.CartLineItem{
			ID:          action.ID,
			Quantity:    1,
			UnitPrice:   action.Price,
			DisplayName: action.Name,
			ImageRef:    action.Image,
		})
		return models.CartState{Items: items}

	case ActionRemoveItem:
		items := make([]models.CartLineItem, 0, len(state.Items))
		for _, item := range state.Items {
			if item.ID != action.ID {
				items = append(items, item)
			}
		}
		return models.CartState{Items: items}

	case ActionUpdateQuantity:
		items := make([]models.CartLineItem, 0, len(state.Items))
		for _, item := range state.Items {
			if item.ID == action.ID {
				item.Quantity = action.Quantity
			}
			if item.Quantity > 0 {
				items = append(items, item)
			}
		}
		return models.CartState{Items: items}

	case ActionClearCart:
		return models.CartState{Items: []models.CartLineItem{}}

	case ActionLoadCart, ActionInitStored:
		if action.State == nil {
			return models.CartState{Items: []models.CartLineItem{}}
		}
		return models.CartState{Items: cloneItems(action.State.Items, 0)}
	}
	return state
}

func cloneItems(items []models.CartLineItem, extra int) []models.CartLineItem {
	out := make([]models.CartLineItem, len(items), len(items)+extra)
	copy(out, items)
	return out
}
