package catalog

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/fireguard-store/storefront/internal/models"

	"golang.org/x/text/language"
)

// rawProduct 商品接口返回的原始记录
type rawProduct map[string]interface{}

// normalizeProduct 将原始记录归一化为 Product，缺少 id 时返回 false
func normalizeProduct(raw rawProduct, locale string) (models.Product, bool) {
	id := itemID(raw["id"])
	if id == "" {
		return models.Product{}, false
	}
	images := imageList(raw["images"])
	primary := ""
	if len(images) > 0 {
		primary = images[0]
	}
	return models.Product{
		ID:               id,
		Name:             localizedText(firstPresent(raw, "name", "title"), locale),
		Description:      localizedText(raw["description"], locale),
		ShortDescription: localizedText(firstPresent(raw, "shortDescription", "summary"), locale),
		Price:            models.MoneyFromAny(raw["price"]),
		CategoryName:     categoryName(raw, locale),
		PrimaryImage:     primary,
		Images:           images,
		SKU:              plainString(raw["sku"]),
		InStock:          boolOr(raw["inStock"], true),
		Rating:           floatOr(raw["rating"], 0),
		ReviewCount:      int(floatOr(raw["reviewCount"], 0)),
	}, true
}

func firstPresent(raw rawProduct, keys ...string) interface{} {
	for _, key := range keys {
		if value, ok := raw[key]; ok && value != nil {
			return value
		}
	}
	return nil
}

func itemID(v interface{}) models.ItemID {
	switch value := v.(type) {
	case string:
		return models.ItemID(strings.TrimSpace(value))
	case json.Number:
		return models.ItemID(value.String())
	case float64:
		return models.ItemID(strconv.FormatFloat(value, 'f', -1, 64))
	}
	return ""
}

func categoryName(raw rawProduct, locale string) string {
	if name := localizedText(raw["categoryName"], locale); name != "" {
		return name
	}
	category, ok := raw["category"].(map[string]interface{})
	if !ok {
		return ""
	}
	return localizedText(category["name"], locale)
}

// localizedText 字符串原样返回；多语言对象按 精确标签 → 基础语言 → 任意值 的顺序取值
func localizedText(v interface{}, locale string) string {
	switch value := v.(type) {
	case string:
		return value
	case map[string]interface{}:
		if text := plainString(value[locale]); text != "" {
			return text
		}
		if tag, err := language.Parse(locale); err == nil {
			base, _ := tag.Base()
			if text := plainString(value[base.String()]); text != "" {
				return text
			}
		}
		keys := make([]string, 0, len(value))
		for key := range value {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if text := plainString(value[key]); text != "" {
				return text
			}
		}
	}
	return ""
}

func imageList(v interface{}) []string {
	list, ok := v.([]interface{})
	if !ok {
		return []string{}
	}
	images := make([]string, 0, len(list))
	for _, item := range list {
		switch value := item.(type) {
		case string:
			if strings.TrimSpace(value) != "" {
				images = append(images, value)
			}
		case map[string]interface{}:
			if url := plainString(value["url"]); url != "" {
				images = append(images, url)
			}
		}
	}
	return images
}

func plainString(v interface{}) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

func boolOr(v interface{}, fallback bool) bool {
	b, ok := v.(bool)
	if !ok {
		return fallback
	}
	return b
}

func floatOr(v interface{}, fallback float64) float64 {
	var f float64
	switch value := v.(type) {
	case json.Number:
		parsed, err := value.Float64()
		if err != nil {
			return fallback
		}
		f = parsed
	case float64:
		f = value
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return fallback
		}
		f = parsed
	default:
		return fallback
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fallback
	}
	return f
}
