// Package i18n 提供接口错误提示的多语言文本。
package i18n

import (
	"strings"

	"github.com/fireguard-store/storefront/internal/constants"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// DefaultLocale 默认语言
const DefaultLocale = constants.DefaultCatalogLocale

// LocaleParam 查询参数中的语言字段
const LocaleParam = "locale"

var supported = []language.Tag{language.Russian, language.English, language.Kazakh}

var matcher = language.NewMatcher(supported)

var messages = map[string]map[string]string{
	"ru": {
		"error.bad_request":       "Некорректный запрос",
		"error.session_required":  "Требуется сессия корзины",
		"error.session_invalid":   "Недействительная сессия корзины",
		"error.session_issue":     "Не удалось создать сессию корзины",
		"error.cart_item_invalid": "Некорректная позиция корзины",
		"error.cart_item_missing": "Товар отсутствует в корзине",
		"error.product_not_found": "Товар не найден",
		"error.cart_unavailable":  "Корзина временно недоступна",
		"error.rate_limited":      "Слишком много запросов, повторите через %d с",
		"error.rate_limit_failed": "Сервис ограничения запросов недоступен",
		"error.internal":          "Внутренняя ошибка сервера",
	},
	"en": {
		"error.bad_request":       "Bad request",
		"error.session_required":  "Cart session required",
		"error.session_invalid":   "Invalid cart session",
		"error.session_issue":     "Failed to create cart session",
		"error.cart_item_invalid": "Invalid cart item",
		"error.cart_item_missing": "Item is not in the cart",
		"error.product_not_found": "Product not found",
		"error.cart_unavailable":  "Cart is temporarily unavailable",
		"error.rate_limited":      "Too many requests, retry in %d s",
		"error.rate_limit_failed": "Rate limiter unavailable",
		"error.internal":          "Internal server error",
	},
	"kk": {
		"error.bad_request":       "Қате сұраныс",
		"error.session_required":  "Себет сессиясы қажет",
		"error.session_invalid":   "Себет сессиясы жарамсыз",
		"error.session_issue":     "Себет сессиясын құру мүмкін болмады",
		"error.cart_item_invalid": "Себет позициясы жарамсыз",
		"error.cart_item_missing": "Тауар себетте жоқ",
		"error.product_not_found": "Тауар табылмады",
		"error.cart_unavailable":  "Себет уақытша қолжетімсіз",
		"error.rate_limited":      "Сұраныстар тым көп, %d с кейін қайталаңыз",
		"error.rate_limit_failed": "Сұраныс шектеу қызметі қолжетімсіз",
		"error.internal":          "Сервердің ішкі қатесі",
	},
}

var builder = mustBuildCatalog()

func mustBuildCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.Russian))
	for locale, entries := range messages {
		tag := language.MustParse(locale)
		for key, text := range entries {
			if err := b.SetString(tag, key, text); err != nil {
				panic(err)
			}
		}
	}
	return b
}

// Normalize 将任意语言标签匹配到支持的语言
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultLocale
	}
	tags, _, err := language.ParseAcceptLanguage(raw)
	if err != nil || len(tags) == 0 {
		return DefaultLocale
	}
	_, index, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return DefaultLocale
	}
	return supported[index].String()
}

// ResolveLocale 按 查询参数 → Accept-Language 的顺序解析请求语言
func ResolveLocale(c *gin.Context) string {
	if c == nil || c.Request == nil {
		return DefaultLocale
	}
	if locale := strings.TrimSpace(c.Query(LocaleParam)); locale != "" {
		return Normalize(locale)
	}
	return Normalize(c.GetHeader("Accept-Language"))
}

func printer(locale string) *message.Printer {
	return message.NewPrinter(language.MustParse(Normalize(locale)), message.Catalog(builder))
}

// T 翻译 key，缺失时返回 key 本身
func T(locale, key string) string {
	return printer(locale).Sprintf(key)
}

// Sprintf 翻译带参数的 key
func Sprintf(locale, key string, args ...interface{}) string {
	return printer(locale).Sprintf(key, args...)
}

