package importer

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"trenpajak/internal/config"
	"trenpajak/internal/model"
	"trenpajak/internal/parser"
)

var (
	// ErrNoRows 没有任何带企业名称的数据行
	ErrNoRows = errors.New("tidak ada baris data usaha")
	// ErrNoMonthColumns 没有识别到月份列
	ErrNoMonthColumns = errors.New("tidak ada kolom bulan")
	// ErrNoPayments 所有月份均无大于 0 的缴纳
	ErrNoPayments = errors.New("Tidak ada data pembayaran yang valid")
)

// Reshaper 宽表转长表
type Reshaper struct {
	AssumedYear       int
	DefaultMonth      int
	PaymentDay        int
	RevenueMultiplier float64
	mapper            *parser.FieldMapper
}

// NewReshaper 按业务配置创建
func NewReshaper(cfg config.BusinessConfig) *Reshaper {
	return &Reshaper{
		AssumedYear:       cfg.AssumedYear,
		DefaultMonth:      cfg.DefaultMonth,
		PaymentDay:        cfg.PaymentDay,
		RevenueMultiplier: cfg.RevenueMultiplier,
		mapper:            parser.NewFieldMapper(parser.DefaultSchema()),
	}
}

// identity 企业身份信息（按企业键取首次出现）
type identity struct {
	key     string
	nopd    string
	npwpd   string
	taxType string
	name    string
}

// cellKey 企业 + 月份
type cellKey struct {
	business string
	month    string
}

// Reshape 将每月一列的宽表展开为 企业×月份 的完整矩阵
func (r *Reshaper) Reshape(sheet *parser.Sheet) ([]*model.BusinessRecord, error) {
	log := config.GetLogger().WithField("sheet", sheet.Name)

	columns := sheet.Columns
	hidden, _ := r.mapper.MapOptional(columns)
	nameIdx := identityIndex(columns, "nama_usaha", "nama", "business_name")
	if nameIdx < 0 {
		return nil, &parser.SchemaError{Fields: []string{model.ColBusinessName}}
	}
	nopdIdx := identityIndex(columns, "nopd")
	npwpdIdx, hasNpwpd := hidden[model.ColSecondaryID]
	if !hasNpwpd {
		npwpdIdx = -1
	}
	taxTypeIdx, hasTaxType := hidden[model.ColTaxType]
	if !hasTaxType {
		taxTypeIdx = -1
	}
	if nopdIdx < 0 && npwpdIdx < 0 {
		return nil, &parser.SchemaError{Fields: []string{model.ColPrimaryID, model.ColSecondaryID}}
	}

	identityCols := map[int]bool{nameIdx: true}
	for _, idx := range []int{nopdIdx, npwpdIdx, taxTypeIdx} {
		if idx >= 0 {
			identityCols[idx] = true
		}
	}

	columns, rows := applyMonthHeaderRow(columns, sheet.Rows, identityCols)

	monthCols := monthColumns(columns, identityCols)
	if len(monthCols) == 0 {
		return nil, fmt.Errorf("reshape: %w", ErrNoMonthColumns)
	}

	cell := func(row []string, idx int) string {
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	var (
		businesses []identity
		seen       = map[string]bool{}
		values     = map[cellKey]*float64{}
		paidLabels = map[string]bool{}
	)
	for _, row := range rows {
		name := parser.CleanValue(cell(row, nameIdx))
		if name == "" {
			continue
		}
		id := identity{
			nopd:    parser.CleanValue(cell(row, nopdIdx)),
			npwpd:   parser.CleanValue(cell(row, npwpdIdx)),
			taxType: strings.TrimSpace(cell(row, taxTypeIdx)),
			name:    name,
		}
		if id.nopd == "" && id.npwpd == "" {
			log.WithField("nama_usaha", name).Warn("缺少 NOPD/NPWPD，按名称作为企业键")
		}
		id.key = businessKey(id.nopd, id.npwpd, id.name)
		if !seen[id.key] {
			seen[id.key] = true
			businesses = append(businesses, id)
		}

		for _, mc := range monthCols {
			raw := cell(row, mc.index)
			if parser.IsBlank(raw) {
				continue
			}
			v := parser.ParseCurrency(raw)
			if math.IsNaN(v) {
				continue
			}
			k := cellKey{business: id.key, month: mc.label}
			if _, exists := values[k]; exists {
				// 重复的 (企业, 月份) 取首个非空值
				continue
			}
			values[k] = &v
			if v > 0 {
				paidLabels[mc.label] = true
			}
		}
	}

	if len(businesses) == 0 {
		return nil, fmt.Errorf("reshape: %w", ErrNoRows)
	}
	if len(paidLabels) == 0 {
		return nil, ErrNoPayments
	}

	months := monthRange(monthCols, paidLabels)
	log.WithFields(logrus.Fields{
		"businesses": len(businesses),
		"months":     len(months),
	}).Debug("宽表展开")

	records := make([]*model.BusinessRecord, 0, len(businesses)*len(months))
	for _, b := range businesses {
		for _, month := range months {
			rec := &model.BusinessRecord{
				BusinessID:   b.key,
				PrimaryID:    primaryID(b),
				SecondaryID:  b.npwpd,
				TaxType:      b.taxType,
				BusinessName: b.name,
				Period:       month,
				TaxAmount:    values[cellKey{business: b.key, month: month}],
			}
			r.derive(rec, log)
			records = append(records, rec)
		}
	}
	return records, nil
}

// derive 推算营业额、ISO 月份与缴纳日期
func (r *Reshaper) derive(rec *model.BusinessRecord, log *logrus.Entry) {
	iso, matched := parser.MonthToISO(rec.Period, r.AssumedYear, r.DefaultMonth)
	if !matched {
		log.WithField("bulan", rec.Period).Warn("无法识别的月份，按默认月份处理")
	}
	rec.PeriodISO = iso

	if rec.HasPayment() {
		revenue := *rec.TaxAmount * r.RevenueMultiplier
		rec.RevenueEstimate = &revenue
		if d, err := time.Parse("2006-01-02", fmt.Sprintf("%s-%02d", iso, r.PaymentDay)); err == nil {
			rec.PaymentDate = &d
		}
	}
}

// applyMonthHeaderRow 首行若含月份标签，则以其重命名对应列并丢弃该行
// 身份列不参与重命名
func applyMonthHeaderRow(columns []string, rows [][]string, identityCols map[int]bool) ([]string, [][]string) {
	if len(rows) == 0 {
		return columns, rows
	}
	renamed := make([]string, len(columns))
	copy(renamed, columns)

	hits := 0
	for i, v := range rows[0] {
		if i >= len(renamed) {
			break
		}
		if identityCols[i] {
			continue
		}
		if parser.IsMonthHeader(v) {
			renamed[i] = strings.ToLower(strings.TrimSpace(v))
			hits++
		}
	}
	if hits == 0 {
		return columns, rows
	}
	return renamed, rows[1:]
}

// identityIndex 按规范化名称查找身份列
func identityIndex(columns []string, names ...string) int {
	for _, want := range names {
		n := parser.NormalizeColumnName(want)
		for i, c := range columns {
			if parser.NormalizeColumnName(c) == n {
				return i
			}
		}
	}
	return -1
}

type monthColumn struct {
	index int
	label string
}

// monthColumns 非身份列、非 PEMBAYARAN/Unnamed 前缀、非空的列视为月份列
func monthColumns(columns []string, identityCols map[int]bool) []monthColumn {
	var out []monthColumn
	for i, c := range columns {
		label := strings.TrimSpace(c)
		if identityCols[i] || label == "" {
			continue
		}
		upper := strings.ToUpper(label)
		if strings.HasPrefix(upper, "PEMBAYARAN") || strings.HasPrefix(upper, "UNNAMED") {
			continue
		}
		out = append(out, monthColumn{index: i, label: label})
	}
	return out
}

// monthRange 从最早到最晚有缴纳的月份，按规范顺序取源表中存在的标签
// 已缴月份都不在规范列表时，按源列顺序使用全部标签
func monthRange(cols []monthColumn, paid map[string]bool) []string {
	present := map[int]string{}
	first, last := -1, -1
	for _, mc := range cols {
		idx := parser.MonthIndex(mc.label)
		if idx < 0 {
			continue
		}
		if _, ok := present[idx]; !ok {
			present[idx] = mc.label
		}
		if !paid[mc.label] {
			continue
		}
		if first < 0 || idx < first {
			first = idx
		}
		if idx > last {
			last = idx
		}
	}

	if first < 0 {
		var out []string
		seen := map[string]bool{}
		for _, mc := range cols {
			if !seen[mc.label] {
				seen[mc.label] = true
				out = append(out, mc.label)
			}
		}
		return out
	}

	var out []string
	for i := first; i <= last; i++ {
		if label, ok := present[i]; ok {
			out = append(out, label)
		}
	}
	return out
}

// primaryID 无 NOPD 时由 NPWPD 补齐
func primaryID(b identity) string {
	if b.nopd != "" {
		return b.nopd
	}
	return b.npwpd
}

// businessKey 企业键：nopd > npwpd > 名称
func businessKey(nopd, npwpd, name string) string {
	switch {
	case nopd != "":
		return nopd
	case npwpd != "":
		return npwpd
	default:
		return name
	}
}
