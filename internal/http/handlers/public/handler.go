package public

import "github.com/fireguard-store/storefront/internal/provider"

// Handler 购物车与商品接口处理器入口
// 说明：会话相关接口依赖 CartSessionMiddleware 写入的会话 id。
type Handler struct {
	*provider.Container
}

// New 创建处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
