package models

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Money 统一金额类型，JSON 中输出为数字
//
// 单价按原始精度保存与序列化；计算得到的金额（小计、行合计）经 NewMoneyFromDecimal 保留 2 位小数，
// String 始终按 2 位小数展示。
type Money struct {
	decimal.Decimal
}

// NewMoneyFromDecimal 从 decimal 创建金额
func NewMoneyFromDecimal(amount decimal.Decimal) Money {
	return Money{Decimal: amount.Round(2)}
}

// NewMoneyFromInt 从整数创建金额
func NewMoneyFromInt(amount int64) Money {
	return Money{Decimal: decimal.NewFromInt(amount)}
}

// ParseMoneyLoose 宽松解析金额：去除空白，逗号视为小数点；无法解析时返回 0 与 false
func ParseMoneyLoose(raw string) (Money, bool) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', ' ', ' ':
			return -1
		case ',':
			return '.'
		}
		return r
	}, raw)
	if cleaned == "" {
		return Money{}, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return Money{}, false
	}
	return Money{Decimal: d}, true
}

// MoneyFromAny 将 JSON 解码后的任意值转换为金额，无法解析时为 0
func MoneyFromAny(v interface{}) Money {
	switch value := v.(type) {
	case float64:
		return Money{Decimal: decimal.NewFromFloat(value)}
	case json.Number:
		m, _ := ParseMoneyLoose(value.String())
		return m
	case string:
		m, _ := ParseMoneyLoose(value)
		return m
	case int:
		return NewMoneyFromInt(int64(value))
	case int64:
		return NewMoneyFromInt(value)
	}
	return Money{}
}

// MarshalJSON 输出为 JSON 数字
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.String()), nil
}

// UnmarshalJSON 解析金额（字符串或数字）
func (m *Money) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		m.Decimal = decimal.Zero
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		parsed, _ := ParseMoneyLoose(s)
		*m = parsed
		return nil
	}
	d, err := decimal.NewFromString(string(b))
	if err != nil {
		return err
	}
	m.Decimal = d
	return nil
}

// String 返回 2 位小数格式
func (m Money) String() string {
	return m.Decimal.Round(2).StringFixed(2)
}
