package public

import (
	"strings"

	"github.com/fireguard-store/storefront/internal/http/response"
	"github.com/fireguard-store/storefront/internal/i18n"
	"github.com/fireguard-store/storefront/internal/models"
	"github.com/fireguard-store/storefront/internal/service"

	"github.com/gin-gonic/gin"
)

// AddCartItemRequest 加入购物车请求（价格、名称、图片可省略，由商品信息补齐）
type AddCartItemRequest struct {
	ID       models.ItemID `json:"id" binding:"required"`
	Quantity int           `json:"quantity"`
	Price    *models.Money `json:"price"`
	Name     string        `json:"name"`
	Image    string        `json:"image"`
}

// UpdateCartItemRequest 修改数量请求
type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// GetCart 获取购物车
func (h *Handler) GetCart(c *gin.Context) {
	sessionID, ok := getSessionID(c)
	if !ok {
		return
	}
	view, err := h.CartService.Get(c.Request.Context(), sessionID)
	if err != nil {
		respondCartError(c, err)
		return
	}
	response.Success(c, view)
}

// AddCartItem 加入购物车
func (h *Handler) AddCartItem(c *gin.Context) {
	sessionID, ok := getSessionID(c)
	if !ok {
		return
	}
	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	view, err := h.CartService.AddItem(c.Request.Context(), service.AddCartItemInput{
		SessionID: sessionID,
		ID:        req.ID,
		Quantity:  req.Quantity,
		Price:     req.Price,
		Name:      req.Name,
		Image:     req.Image,
		Locale:    i18n.ResolveLocale(c),
	})
	if err != nil {
		respondCartError(c, err)
		return
	}
	response.Success(c, view)
}

// UpdateCartItem 修改购物车项数量，数量小于等于 0 时移除
func (h *Handler) UpdateCartItem(c *gin.Context) {
	sessionID, ok := getSessionID(c)
	if !ok {
		return
	}
	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Quantity == nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	id := models.ItemID(strings.TrimSpace(c.Param("id")))
	view, err := h.CartService.UpdateQuantity(c.Request.Context(), sessionID, id, *req.Quantity)
	if err != nil {
		respondCartError(c, err)
		return
	}
	response.Success(c, view)
}

// RemoveCartItem 移除购物车项
func (h *Handler) RemoveCartItem(c *gin.Context) {
	sessionID, ok := getSessionID(c)
	if !ok {
		return
	}
	id := models.ItemID(strings.TrimSpace(c.Param("id")))
	view, err := h.CartService.RemoveItem(c.Request.Context(), sessionID, id)
	if err != nil {
		respondCartError(c, err)
		return
	}
	response.Success(c, view)
}

// ClearCart 清空购物车
func (h *Handler) ClearCart(c *gin.Context) {
	sessionID, ok := getSessionID(c)
	if !ok {
		return
	}
	view, err := h.CartService.Clear(c.Request.Context(), sessionID)
	if err != nil {
		respondCartError(c, err)
		return
	}
	response.Success(c, view)
}

// GetCartDetails 获取合并商品信息后的购物车详情
func (h *Handler) GetCartDetails(c *gin.Context) {
	sessionID, ok := getSessionID(c)
	if !ok {
		return
	}
	view, err := h.CartService.Details(c.Request.Context(), sessionID, i18n.ResolveLocale(c))
	if err != nil {
		respondCartError(c, err)
		return
	}
	response.Success(c, view)
}
