package public

import (
	"strings"

	"github.com/fireguard-store/storefront/internal/http/response"
	"github.com/fireguard-store/storefront/internal/models"

	"github.com/gin-gonic/gin"
)

// GetProduct 直接向商品接口查询单个商品，不读写本地缓存
func (h *Handler) GetProduct(c *gin.Context) {
	id := models.ItemID(strings.TrimSpace(c.Param("id")))
	product, err := h.CartService.Product(c.Request.Context(), id)
	if err != nil {
		respondWithMappedError(c, err, productErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, product)
}

// Health 健康检查：返回降级故障计数与活跃会话数
func (h *Handler) Health(c *gin.Context) {
	faults := map[string]uint64{}
	for kind, count := range h.Faults.Snapshot() {
		faults[string(kind)] = count
	}
	response.Success(c, gin.H{
		"status":   "ok",
		"sessions": h.Sessions.Len(),
		"locales":  h.Catalog.Cache().Locales(),
		"faults":   faults,
	})
}
