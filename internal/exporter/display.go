package exporter

import (
	"strings"
	"time"

	"trenpajak/internal/model"
	"trenpajak/internal/parser"
)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02/01/2006",
}

// FormatRows 生成展示用副本：日期、金额、百分比格式化，空值统一为 "-"
// bulan_iso 保持 nil 以便排序与趋势统计
func FormatRows(rows []model.Row, assumedYear int) []model.Row {
	out := make([]model.Row, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Clone())
	}

	synthesizeISO(out, assumedYear)

	for _, row := range out {
		for col, v := range row {
			switch col {
			case model.ColPeriodISO:
				if parser.IsBlank(v) {
					row[col] = nil
				} else {
					row[col] = strings.TrimSpace(parser.ToString(v))
				}
			case model.ColPaymentDate:
				row[col] = formatDate(v)
			case model.ColGrowth:
				row[col] = parser.FormatPercent(v)
			case model.ColRevenue, model.ColTaxAmount:
				row[col] = parser.FormatCurrency(v)
			default:
				row[col] = formatText(v)
			}
		}
	}
	return out
}

// synthesizeISO bulan_iso 缺失或全部为空时由 bulan 推导
func synthesizeISO(rows []model.Row, assumedYear int) {
	for _, row := range rows {
		if !parser.IsBlank(row[model.ColPeriodISO]) {
			return
		}
	}
	for _, row := range rows {
		if iso, ok := parser.PeriodToISO(parser.ToString(row[model.ColPeriod]), assumedYear); ok {
			row[model.ColPeriodISO] = iso
		} else {
			row[model.ColPeriodISO] = nil
		}
	}
}

func formatDate(v any) string {
	switch x := v.(type) {
	case time.Time:
		if x.IsZero() {
			return "-"
		}
		return x.Format("2006-01-02")
	case *time.Time:
		if x == nil || x.IsZero() {
			return "-"
		}
		return x.Format("2006-01-02")
	}
	if parser.IsBlank(v) {
		return "-"
	}
	s := strings.TrimSpace(parser.ToString(v))
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return "-"
}

func formatText(v any) string {
	if v == nil {
		return "-"
	}
	s := strings.TrimSpace(parser.ToString(v))
	if s == "" || strings.EqualFold(s, "nan") {
		return "-"
	}
	return s
}
