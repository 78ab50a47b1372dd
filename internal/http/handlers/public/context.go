package public

import (
	handlershared "github.com/fireguard-store/storefront/internal/http/handlers/shared"
	"github.com/fireguard-store/storefront/internal/http/response"

	"github.com/gin-gonic/gin"
)

func getSessionID(c *gin.Context) (string, bool) {
	sessionID := handlershared.SessionID(c)
	if sessionID == "" {
		respondError(c, response.CodeUnauthorized, "error.session_required", nil)
		return "", false
	}
	return sessionID, true
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}
