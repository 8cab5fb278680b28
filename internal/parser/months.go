package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MonthOrder 规范月份顺序（印尼语全称，小写）
var MonthOrder = []string{
	"januari", "februari", "maret", "april", "mei", "juni",
	"juli", "agustus", "september", "oktober", "november", "desember",
}

// monthHeaderKeywords 表头首行的月份关键词（前缀匹配，大小写不敏感）
var monthHeaderKeywords = []string{
	"JANUARI", "FEBRUARI", "MARET", "APRIL", "MEI", "JUNI",
	"JULI", "AGUSTUS", "SEPTEMBER", "OKTOBER", "NOVEMBER", "DESEMBER",
	"JAN", "FEB", "MAR", "APR", "MAY", "JUN", "JUL", "AUG", "SEP", "OCT", "NOV", "DEC",
}

// monthNumbers 月份名称/缩写 -> 1..12
var monthNumbers = map[string]int{
	"januari": 1, "jan": 1,
	"februari": 2, "feb": 2,
	"maret": 3, "mar": 3,
	"april": 4, "apr": 4,
	"mei": 5, "may": 5,
	"juni": 6, "jun": 6,
	"juli": 7, "jul": 7,
	"agustus": 8, "agu": 8, "aug": 8,
	"september": 9, "sep": 9,
	"oktober": 10, "okt": 10, "oct": 10,
	"november": 11, "nov": 11,
	"desember": 12, "des": 12, "dec": 12,
}

var (
	isoMonthRe       = regexp.MustCompile(`^(\d{4})-(\d{2})$`)
	shortYearMonthRe = regexp.MustCompile(`^(\d{2})-(\d{2})$`)
)

// IsMonthHeader 判断首行单元格是否为月份标签
func IsMonthHeader(label string) bool {
	upper := strings.ToUpper(strings.TrimSpace(label))
	if upper == "" {
		return false
	}
	for _, kw := range monthHeaderKeywords {
		if strings.HasPrefix(upper, kw) {
			return true
		}
	}
	return false
}

// MonthIndex 月份全称在 MonthOrder 中的下标（精确匹配），不存在返回 -1
func MonthIndex(label string) int {
	clean := strings.ToLower(strings.TrimSpace(label))
	for i, m := range MonthOrder {
		if m == clean {
			return i
		}
	}
	return -1
}

// MonthNumber 月份名称或缩写转 1..12
func MonthNumber(label string) (int, bool) {
	n, ok := monthNumbers[strings.ToLower(strings.TrimSpace(label))]
	return n, ok
}

// IsISOMonth 是否为 YYYY-MM
func IsISOMonth(s string) bool {
	return isoMonthRe.MatchString(strings.TrimSpace(s))
}

// MonthToISO 月份名称转 YYYY-MM
// 无法识别的名称按 defaultMonth 处理，matched 返回 false 供调用方记录
func MonthToISO(label string, year, defaultMonth int) (iso string, matched bool) {
	n, ok := MonthNumber(label)
	if !ok {
		return fmt.Sprintf("%d-%02d", year, defaultMonth), false
	}
	return fmt.Sprintf("%d-%02d", year, n), true
}

// PeriodToISO 任意月份表示转 YYYY-MM：ISO 原样保留，YY-MM 补全为 20YY-MM，名称按 year 转换
func PeriodToISO(period string, year int) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(period))
	if IsBlank(s) {
		return "", false
	}
	if isoMonthRe.MatchString(s) {
		return s, true
	}
	if m := shortYearMonthRe.FindStringSubmatch(s); m != nil {
		return fmt.Sprintf("20%s-%s", m[1], m[2]), true
	}
	if n, ok := MonthNumber(s); ok {
		return fmt.Sprintf("%d-%02d", year, n), true
	}
	return "", false
}

// NormalizeMonth 月份表示归一为 (印尼语月份名, 1..12)，无法识别时 ok=false
func NormalizeMonth(period string) (name string, order int, ok bool) {
	s := strings.TrimSpace(period)
	var n int
	if m := isoMonthRe.FindStringSubmatch(s); m != nil {
		n, _ = strconv.Atoi(m[2])
	} else if m := shortYearMonthRe.FindStringSubmatch(s); m != nil {
		n, _ = strconv.Atoi(m[2])
	} else if v, found := MonthNumber(s); found {
		n = v
	}
	if n < 1 || n > 12 {
		return s, 0, false
	}
	return MonthOrder[n-1], n, true
}
