package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fireguard-store/storefront/internal/config"
	"github.com/fireguard-store/storefront/internal/constants"
	"github.com/fireguard-store/storefront/internal/models"
	"github.com/fireguard-store/storefront/internal/provider"
	"github.com/fireguard-store/storefront/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

type stubProducts map[models.ItemID]models.Product

func (s stubProducts) ListProducts(context.Context, string) ([]models.Product, error) {
	list := make([]models.Product, 0, len(s))
	for _, product := range s {
		list = append(list, product)
	}
	return list, nil
}

func (s stubProducts) GetProduct(_ context.Context, id models.ItemID, _ string) (*models.Product, error) {
	product, ok := s[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return &product, nil
}

type envelope struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

func newTestEngine(t *testing.T) (*gin.Engine, *storage.MemorySlot) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	v := viper.New()
	config.SetDefaults(v)
	cfg, err := config.Decode(v)
	require.NoError(t, err)

	slot := storage.NewMemorySlot()
	price, _ := models.ParseMoneyLoose("1250,50")
	c := provider.Assemble(cfg, provider.Deps{
		Slot: slot,
		Products: stubProducts{
			"op-4": {ID: "op-4", Name: "Огнетушитель ОП-4", Price: price, PrimaryImage: "/op4.jpg", Images: []string{"/op4.jpg"}},
		},
	})
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return SetupRouter(cfg, c), slot
}

func do(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) envelope {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(constants.CartSessionHeader, token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var resp envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestCartFlow(t *testing.T) {
	r, slot := newTestEngine(t)

	resp := do(t, r, http.MethodPost, "/api/v1/session", "", nil)
	require.Equal(t, 0, resp.StatusCode)
	var sess struct {
		SessionID string `json:"session_id"`
		Token     string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &sess))
	require.NotEmpty(t, sess.Token)

	resp = do(t, r, http.MethodPost, "/api/v1/cart/items", sess.Token, map[string]interface{}{"id": "op-4", "quantity": 3})
	require.Equal(t, 0, resp.StatusCode, resp.Msg)
	var view struct {
		Items  []models.CartLineItem `json:"items"`
		Totals models.CartTotals     `json:"totals"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &view))
	require.Len(t, view.Items, 1)
	require.Equal(t, 3, view.Items[0].Quantity)
	require.Equal(t, "Огнетушитель ОП-4", view.Items[0].DisplayName)
	require.Equal(t, "3751.50", view.Totals.Subtotal.String())

	resp = do(t, r, http.MethodPut, "/api/v1/cart/items/op-4", sess.Token, map[string]interface{}{"quantity": 1})
	require.Equal(t, 0, resp.StatusCode, resp.Msg)

	resp = do(t, r, http.MethodGet, "/api/v1/cart/details?locale=ru", sess.Token, nil)
	require.Equal(t, 0, resp.StatusCode, resp.Msg)
	var details struct {
		Locale string `json:"locale"`
		Items  []struct {
			Quantity int             `json:"quantity"`
			Product  *models.Product `json:"product"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &details))
	require.Equal(t, "ru", details.Locale)
	require.Len(t, details.Items, 1)
	require.Equal(t, 1, details.Items[0].Quantity)
	require.NotNil(t, details.Items[0].Product)

	resp = do(t, r, http.MethodDelete, "/api/v1/cart", sess.Token, nil)
	require.Equal(t, 0, resp.StatusCode, resp.Msg)

	require.Eventually(t, func() bool {
		raw, found, _ := slot.Get(context.Background(), storage.SessionKey(sess.SessionID, "cart"))
		return found && string(raw) == `{"items":[]}`
	}, timeoutForFlush, pollInterval)
}

func TestCartRequiresSession(t *testing.T) {
	r, _ := newTestEngine(t)

	resp := do(t, r, http.MethodGet, "/api/v1/cart?locale=en", "", nil)
	require.Equal(t, 401, resp.StatusCode)
	require.Equal(t, "Cart session required", resp.Msg)

	resp = do(t, r, http.MethodGet, "/api/v1/cart", "forged", nil)
	require.Equal(t, 401, resp.StatusCode)
}

func TestCartErrorsAreMapped(t *testing.T) {
	r, _ := newTestEngine(t)
	resp := do(t, r, http.MethodPost, "/api/v1/session", "", nil)
	var sess struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &sess))

	resp = do(t, r, http.MethodPost, "/api/v1/cart/items", sess.Token, map[string]interface{}{"id": "unknown"})
	require.Equal(t, 404, resp.StatusCode)

	resp = do(t, r, http.MethodPut, "/api/v1/cart/items/op-4", sess.Token, map[string]interface{}{"quantity": 2})
	require.Equal(t, 404, resp.StatusCode)

	resp = do(t, r, http.MethodPost, "/api/v1/cart/items", sess.Token, map[string]interface{}{"quantity": 2})
	require.Equal(t, 400, resp.StatusCode)
}

func TestProductAndHealth(t *testing.T) {
	r, _ := newTestEngine(t)

	resp := do(t, r, http.MethodGet, "/api/v1/products/op-4", "", nil)
	require.Equal(t, 0, resp.StatusCode)
	var product models.Product
	require.NoError(t, json.Unmarshal(resp.Data, &product))
	require.Equal(t, models.ItemID("op-4"), product.ID)

	resp = do(t, r, http.MethodGet, "/api/v1/products/missing", "", nil)
	require.Equal(t, 404, resp.StatusCode)

	resp = do(t, r, http.MethodGet, "/health", "", nil)
	require.Equal(t, 0, resp.StatusCode)
	require.Contains(t, string(resp.Data), `"status":"ok"`)
}

const (
	timeoutForFlush = 2 * time.Second
	pollInterval    = 10 * time.Millisecond
)
