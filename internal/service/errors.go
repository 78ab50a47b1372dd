package service

import "errors"

var (
	// ErrSessionRequired 缺少购物车会话
	ErrSessionRequired = errors.New("cart session required")
	// ErrInvalidCartItem 购物车项参数无效
	ErrInvalidCartItem = errors.New("invalid cart item")
	// ErrProductNotFound 商品不存在或商品接口不可用
	ErrProductNotFound = errors.New("product not found")
	// ErrCartItemNotFound 购物车中没有该商品
	ErrCartItemNotFound = errors.New("cart item not found")
	// ErrCartUnavailable 购物车暂不可用
	ErrCartUnavailable = errors.New("cart unavailable")
)
