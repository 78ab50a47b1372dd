package shared

import (
	"github.com/fireguard-store/storefront/internal/http/response"
	"github.com/fireguard-store/storefront/internal/i18n"
	"github.com/fireguard-store/storefront/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	kv := make([]interface{}, 0, 4)
	if requestID := c.GetString("request_id"); requestID != "" {
		kv = append(kv, "request_id", requestID)
	}
	if sessionID := SessionID(c); sessionID != "" {
		kv = append(kv, "session_id", sessionID)
	}
	return logger.SW(kv...)
}

// RespondError 返回多语言错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, key string, err error) {
	msg := i18n.T(i18n.ResolveLocale(c), key)
	appErr := response.WrapError(code, msg, err)
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", err,
		)
	}
	response.Error(c, appErr.Code, appErr.Message)
}
