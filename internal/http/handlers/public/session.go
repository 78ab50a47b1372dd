package public

import (
	"net/http"
	"strings"
	"time"

	"github.com/fireguard-store/storefront/internal/constants"
	"github.com/fireguard-store/storefront/internal/http/response"

	"github.com/gin-gonic/gin"
)

// SessionResponse 会话签发响应
type SessionResponse struct {
	SessionID string    `json:"session_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreateSession 签发购物车会话；携带有效 token 时为原会话续期
func (h *Handler) CreateSession(c *gin.Context) {
	sessionID := ""
	if token := strings.TrimSpace(c.GetHeader(constants.CartSessionHeader)); token != "" {
		if claims, err := h.SessionToken.Parse(token); err == nil {
			sessionID = claims.SessionID
		}
	}

	var (
		token     string
		expiresAt time.Time
		err       error
	)
	if sessionID != "" {
		sessionID, token, expiresAt, err = h.SessionToken.IssueFor(sessionID)
	} else {
		sessionID, token, expiresAt, err = h.SessionToken.Issue()
	}
	if err != nil {
		respondError(c, response.CodeInternal, "error.session_issue", err)
		return
	}

	if cookieName := strings.TrimSpace(h.Config.Session.CookieName); cookieName != "" {
		maxAge := int(time.Until(expiresAt).Seconds())
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(cookieName, token, maxAge, "/", "", c.Request.TLS != nil, true)
	}
	response.Success(c, SessionResponse{
		SessionID: sessionID,
		Token:     token,
		ExpiresAt: expiresAt,
	})
}
