package models

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// ItemID 购物车项标识（接受字符串或数字）
type ItemID string

// UnmarshalJSON 兼容数字形式的 id
func (id *ItemID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ItemID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ItemID(n.String())
	return nil
}

// String 返回字符串形式
func (id ItemID) String() string {
	return string(id)
}

// CartLineItem 购物车项（价格、名称、图片为加入时的快照）
type CartLineItem struct {
	ID          ItemID `json:"id"`
	Quantity    int    `json:"quantity"`
	UnitPrice   Money  `json:"price"`
	DisplayName string `json:"name"`
	ImageRef    string `json:"image"`
}

// CartState 购物车状态
type CartState struct {
	Items []CartLineItem `json:"items"`
}

// Clone 返回深拷贝
func (s CartState) Clone() CartState {
	items := make([]CartLineItem, len(s.Items))
	copy(items, s.Items)
	return CartState{Items: items}
}

// IsEmpty 是否为空
func (s CartState) IsEmpty() bool {
	return len(s.Items) == 0
}

// Find 根据 id 查找购物车项
func (s CartState) Find(id ItemID) (CartLineItem, bool) {
	for _, item := range s.Items {
		if item.ID == id {
			return item, true
		}
	}
	return CartLineItem{}, false
}

// CartTotals 购物车汇总
type CartTotals struct {
	ItemCount int   `json:"item_count"`
	Subtotal  Money `json:"subtotal"`
}

// Totals 计算商品数量与小计
func (s CartState) Totals() CartTotals {
	count := 0
	subtotal := decimal.Zero
	for _, item := range s.Items {
		count += item.Quantity
		subtotal = subtotal.Add(item.UnitPrice.Decimal.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return CartTotals{ItemCount: count, Subtotal: NewMoneyFromDecimal(subtotal)}
}
