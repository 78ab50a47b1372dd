package shared

import (
	"github.com/fireguard-store/storefront/internal/constants"

	"github.com/gin-gonic/gin"
)

// SessionID 读取会话中间件写入的购物车会话 id
func SessionID(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(constants.CartSessionContextKey)
}

// SetSessionID 写入购物车会话 id
func SetSessionID(c *gin.Context, sessionID string) {
	c.Set(constants.CartSessionContextKey, sessionID)
}
