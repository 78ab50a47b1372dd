package catalog

import (
	"context"
	"strings"

	"github.com/fireguard-store/storefront/internal/constants"

	"golang.org/x/text/language"
)

// Locales 支持的语言集合，负责把任意语言标签归一化为缓存分区 key
type Locales struct {
	supported []language.Tag
	matcher   language.Matcher
	fallback  language.Tag
}

// NewLocales 创建语言集合，defaultLocale 为空或非法时取 supported 的第一项
func NewLocales(defaultLocale string, supported []string) *Locales {
	tags := make([]language.Tag, 0, len(supported)+1)
	seen := map[language.Tag]struct{}{}
	add := func(raw string) {
		tag, err := language.Parse(strings.TrimSpace(raw))
		if err != nil {
			return
		}
		if _, ok := seen[tag]; ok {
			return
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	add(defaultLocale)
	for _, raw := range supported {
		add(raw)
	}
	if len(tags) == 0 {
		add(constants.DefaultCatalogLocale)
	}
	return &Locales{
		supported: tags,
		matcher:   language.NewMatcher(tags),
		fallback:  tags[0],
	}
}

// Default 默认语言
func (l *Locales) Default() string {
	return l.fallback.String()
}

// Supported 支持的语言列表
func (l *Locales) Supported() []string {
	out := make([]string, 0, len(l.supported))
	for _, tag := range l.supported {
		out = append(out, tag.String())
	}
	return out
}

// Normalize 将任意语言标签匹配到支持的语言，无法匹配时返回默认语言
func (l *Locales) Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return l.Default()
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return l.Default()
	}
	_, index, confidence := l.matcher.Match(tag)
	if confidence == language.No || index < 0 || index >= len(l.supported) {
		return l.Default()
	}
	return l.supported[index].String()
}

// FromAcceptLanguage 解析 Accept-Language 请求头
func (l *Locales) FromAcceptLanguage(header string) string {
	tags, _, err := language.ParseAcceptLanguage(strings.TrimSpace(header))
	if err != nil || len(tags) == 0 {
		return l.Default()
	}
	_, index, confidence := l.matcher.Match(tags...)
	if confidence == language.No || index < 0 || index >= len(l.supported) {
		return l.Default()
	}
	return l.supported[index].String()
}

// LocaleSource 当前显示语言的外部信号
type LocaleSource interface {
	CurrentLocale(ctx context.Context) string
}

// LocaleFunc 让普通函数实现 LocaleSource
type LocaleFunc func(ctx context.Context) string

// CurrentLocale 调用底层函数
func (fn LocaleFunc) CurrentLocale(ctx context.Context) string {
	if fn == nil {
		return ""
	}
	return fn(ctx)
}

type localeContextKey struct{}

// WithLocale 在 context 中携带当前语言
func WithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, localeContextKey{}, locale)
}

// LocaleFromContext 读取 context 中的当前语言
func LocaleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	locale, _ := ctx.Value(localeContextKey{}).(string)
	return locale
}

// ContextLocaleSource 从 context 读取语言的 LocaleSource
var ContextLocaleSource LocaleSource = LocaleFunc(LocaleFromContext)
