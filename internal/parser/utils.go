package parser

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	blankTokens = map[string]struct{}{
		"":     {},
		"-":    {},
		"nan":  {},
		"none": {},
		"nat":  {},
		"null": {},
	}

	currencyNoise = strings.NewReplacer(",", "", "Rp", "", "rp", "", "IDR", "", " ", "", "\u00a0", "")

	numberPrinter = message.NewPrinter(language.English)
)

// IsBlank 统一的空值判断：nil、空串、"-"、"nan"/"none" 等占位、NaN、空指针
func IsBlank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		_, ok := blankTokens[strings.ToLower(strings.TrimSpace(x))]
		return ok
	case []byte:
		return IsBlank(string(x))
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	case *float64:
		return x == nil || math.IsNaN(*x)
	case *string:
		return x == nil || IsBlank(*x)
	case *time.Time:
		return x == nil || x.IsZero()
	case time.Time:
		return x.IsZero()
	}
	return false
}

// CleanText 规范化文本字段
// 去首尾空白、压缩空白、仅保留 ASCII 字母数字及 "- : /"，控制字符替换为空格
func CleanText(s string) string {
	s = strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r > unicode.MaxASCII:
			continue
		case unicode.IsControl(r):
			b.WriteByte(' ')
		case r == ' ' || r == '_' || r == '-' || r == ':' || r == '/':
			b.WriteRune(r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// CleanValue 任意值转为规范化文本，空值返回 ""
func CleanValue(v any) string {
	if IsBlank(v) {
		return ""
	}
	return CleanText(ToString(v))
}

// ToString 任意值转字符串
func ToString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case time.Time:
		return x.Format("2006-01-02")
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

// ParseCurrencyDecimal 去除千分位与币种符号后解析为 decimal
func ParseCurrencyDecimal(s string) (decimal.Decimal, bool) {
	cleaned := currencyNoise.Replace(strings.TrimSpace(s))
	if cleaned == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ParseCurrency 解析金额字符串，失败返回 NaN（不报错）
func ParseCurrency(s string) float64 {
	d, ok := ParseCurrencyDecimal(s)
	if !ok {
		return math.NaN()
	}
	return d.InexactFloat64()
}

// ToFloat 宽松的数值转换，兼容数据库读出的 string / []byte / 数值类型
func ToFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		return x, !math.IsNaN(x)
	case float32:
		return float64(x), !math.IsNaN(float64(x))
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case *float64:
		if x == nil {
			return 0, false
		}
		return ToFloat(*x)
	case decimal.Decimal:
		return x.InexactFloat64(), true
	case string, []byte:
		if IsBlank(x) {
			return 0, false
		}
		f := ParseCurrency(ToString(x))
		return f, !math.IsNaN(f)
	}
	return 0, false
}

// ToDecimal 宽松转换为 decimal，失败时为 0
func ToDecimal(v any) decimal.Decimal {
	switch x := v.(type) {
	case decimal.Decimal:
		return x
	case string:
		if d, ok := ParseCurrencyDecimal(x); ok {
			return d
		}
		return decimal.Zero
	case []byte:
		return ToDecimal(string(x))
	}
	if f, ok := ToFloat(v); ok {
		return decimal.NewFromFloat(f)
	}
	return decimal.Zero
}

// FormatCurrency 金额展示：整数不带小数，非整数保留两位，千分位分隔；空值与 0 显示 "-"
func FormatCurrency(v any) string {
	if IsBlank(v) {
		return "-"
	}
	f, ok := ToFloat(v)
	if !ok {
		return strings.TrimSpace(ToString(v))
	}
	if f == 0 {
		return "-"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e18 {
		return numberPrinter.Sprintf("%d", int64(f))
	}
	return numberPrinter.Sprintf("%.2f", f)
}

// FormatPercent 增长率展示为百分比，两位小数
func FormatPercent(v any) string {
	f, ok := ToFloat(v)
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.2f%%", f*100)
}

// NormalizeColumnName 规范化列名用于别名匹配：去空白、小写、内部空白转下划线
func NormalizeColumnName(name string) string {
	fields := strings.Fields(strings.ToLower(name))
	return strings.Join(fields, "_")
}
