package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fireguard-store/storefront/internal/constants"
	"github.com/fireguard-store/storefront/internal/models"
)

const defaultTimeout = 8 * time.Second

var (
	// ErrRequestFailed 请求未能完成
	ErrRequestFailed = errors.New("product api request failed")
	// ErrUnsuccessful 接口返回非 2xx 或 success=false
	ErrUnsuccessful = errors.New("product api unsuccessful")
	// ErrResponseInvalid 响应无法解析
	ErrResponseInvalid = errors.New("product api response invalid")
	// ErrProductNotFound 商品不存在
	ErrProductNotFound = errors.New("product not found")
)

// ProductSource 商品数据来源
type ProductSource interface {
	ListProducts(ctx context.Context, locale string) ([]models.Product, error)
	GetProduct(ctx context.Context, id models.ItemID, locale string) (*models.Product, error)
}

// Client 商品接口客户端
type Client struct {
	baseURL string
	timeout time.Duration
}

// NewClient 创建商品接口客户端
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		timeout: timeout,
	}
}

type listEnvelope struct {
	Success bool `json:"success"`
	Data    struct {
		Products []rawProduct `json:"products"`
	} `json:"data"`
}

type itemEnvelope struct {
	Success bool       `json:"success"`
	Data    rawProduct `json:"data"`
}

// ListProducts GET /api/products?locale=
func (c *Client) ListProducts(ctx context.Context, locale string) ([]models.Product, error) {
	query := url.Values{}
	query.Set(constants.ProductListLocaleParam, locale)
	body, err := c.get(ctx, constants.ProductListPath+"?"+query.Encode())
	if err != nil {
		return nil, err
	}
	var envelope listEnvelope
	if err := decodeJSON(body, &envelope); err != nil {
		return nil, err
	}
	if !envelope.Success {
		return nil, fmt.Errorf("%w: success=false", ErrUnsuccessful)
	}
	products := make([]models.Product, 0, len(envelope.Data.Products))
	for _, raw := range envelope.Data.Products {
		product, ok := normalizeProduct(raw, locale)
		if !ok {
			continue
		}
		products = append(products, product)
	}
	return products, nil
}

// GetProduct GET /api/products/:id，locale 仅用于解析多语言字段
func (c *Client) GetProduct(ctx context.Context, id models.ItemID, locale string) (*models.Product, error) {
	if strings.TrimSpace(id.String()) == "" {
		return nil, ErrProductNotFound
	}
	body, err := c.get(ctx, constants.ProductListPath+"/"+url.PathEscape(id.String()))
	if err != nil {
		return nil, err
	}
	var envelope itemEnvelope
	if err := decodeJSON(body, &envelope); err != nil {
		return nil, err
	}
	if !envelope.Success {
		return nil, fmt.Errorf("%w: success=false", ErrUnsuccessful)
	}
	product, ok := normalizeProduct(envelope.Data, locale)
	if !ok {
		return nil, ErrProductNotFound
	}
	return &product, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request failed", ErrRequestFailed)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := (&http.Client{Timeout: c.timeout}).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response failed", ErrResponseInvalid)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: status %d", ErrUnsuccessful, resp.StatusCode)
	}
	return body, nil
}

func decodeJSON(body []byte, dest interface{}) error {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	return nil
}
