package parser

import (
	"sort"
)

// Schema 字段定义：规范列名 -> 别名列表
type Schema struct {
	Required        map[string][]string
	OptionalHidden  map[string][]string
	OptionalDisplay map[string][]string
	OutputOrder     []string
	DisplayNames    map[string]string
}

// DefaultSchema 默认字段定义
func DefaultSchema() Schema {
	return Schema{
		Required: map[string][]string{
			"nopd":                 {"nopd", "id_usaha", "npwpd"},
			"nama_usaha":           {"nama_usaha", "nama", "business_name"},
			"bulan":                {"bulan", "periode", "month", "bulan_iso"},
			"jumlah_pajak_dibayar": {"jumlah_pajak_dibayar", "pajak_dibayar", "pajak", "tax_paid"},
		},
		OptionalHidden: map[string][]string{
			"jenis_pajak_usaha": {"jenis_pajak_usaha", "jenis_pajak", "tax_type"},
			"npwpd":             {"npwpd", "tax_number"},
		},
		OptionalDisplay: map[string][]string{
			"tanggal_pembayaran": {"tanggal_pembayaran", "payment_date", "tgl_bayar"},
		},
		OutputOrder: []string{
			"nopd", "nama_usaha", "bulan", "omset_perbulan",
			"jumlah_pajak_dibayar", "tanggal_pembayaran", "status", "kondisi",
		},
		DisplayNames: map[string]string{
			"nopd":                 "NOPD",
			"nama_usaha":           "NAMA USAHA",
			"bulan":                "BULAN",
			"omset_perbulan":       "OMSET PERBULAN",
			"jumlah_pajak_dibayar": "JUMLAH PAJAK DIBAYAR",
			"tanggal_pembayaran":   "TANGGAL PEMBAYARAN",
			"status":               "STATUS",
			"kondisi":              "KONDISI",
		},
	}
}

// ColumnResolution 列解析结果
type ColumnResolution struct {
	// Columns 规范列名 -> 源列下标
	Columns map[string]int
	// Renames 源列名 -> 规范列名
	Renames map[string]string
	// Missing 未解析的必需字段（已排序）
	Missing []string
}

// Has 规范字段是否已解析
func (r *ColumnResolution) Has(field string) bool {
	_, ok := r.Columns[field]
	return ok
}

// Index 规范字段的源列下标，不存在时为 -1
func (r *ColumnResolution) Index(field string) int {
	if idx, ok := r.Columns[field]; ok {
		return idx
	}
	return -1
}

// Derive 用已解析的其他字段补齐缺失字段（如 nopd 取自 npwpd）
func (r *ColumnResolution) Derive(field string, from ...string) bool {
	if r.Has(field) {
		return true
	}
	for _, f := range from {
		if idx, ok := r.Columns[f]; ok {
			r.Columns[field] = idx
			r.refreshMissing(field)
			return true
		}
	}
	return false
}

func (r *ColumnResolution) refreshMissing(resolved string) {
	out := r.Missing[:0]
	for _, m := range r.Missing {
		if m != resolved {
			out = append(out, m)
		}
	}
	r.Missing = out
}

// Err 存在未解析的必需字段时返回 *SchemaError
func (r *ColumnResolution) Err() error {
	if len(r.Missing) == 0 {
		return nil
	}
	fields := make([]string, len(r.Missing))
	copy(fields, r.Missing)
	return &SchemaError{Fields: fields}
}

// FieldMapper 字段映射器
type FieldMapper struct {
	schema Schema
}

// NewFieldMapper 创建字段映射器
func NewFieldMapper(schema Schema) *FieldMapper {
	return &FieldMapper{schema: schema}
}

// Schema 返回字段定义
func (m *FieldMapper) Schema() Schema {
	return m.schema
}

// ResolveRequired 解析必需字段与可选字段
// 规范名本身优先于别名；同一源列只会映射一次
func (m *FieldMapper) ResolveRequired(columns []string) *ColumnResolution {
	res := &ColumnResolution{
		Columns: map[string]int{},
		Renames: map[string]string{},
	}
	used := map[int]bool{}
	index := normalizedIndex(columns)

	// 先处理规范名精确命中，避免 "npwpd" 被 nopd 的别名抢占
	for _, group := range m.groups() {
		for _, field := range sortedKeys(group) {
			if idx, ok := index[field]; ok && !used[idx] {
				res.Columns[field] = idx
				used[idx] = true
			}
		}
	}

	for _, group := range m.groups() {
		for _, field := range sortedKeys(group) {
			if res.Has(field) {
				continue
			}
			for _, alias := range group[field] {
				idx, ok := index[NormalizeColumnName(alias)]
				if !ok || used[idx] {
					continue
				}
				res.Columns[field] = idx
				used[idx] = true
				break
			}
		}
	}

	for field, idx := range res.Columns {
		res.Renames[columns[idx]] = field
	}
	for _, field := range sortedKeys(m.schema.Required) {
		if !res.Has(field) {
			res.Missing = append(res.Missing, field)
		}
	}
	return res
}

// MapOptional 仅解析可选字段（隐藏 + 展示）
func (m *FieldMapper) MapOptional(columns []string) (hidden, display map[string]int) {
	index := normalizedIndex(columns)
	lookup := func(group map[string][]string) map[string]int {
		found := map[string]int{}
		for _, field := range sortedKeys(group) {
			for _, alias := range group[field] {
				if idx, ok := index[NormalizeColumnName(alias)]; ok {
					found[field] = idx
					break
				}
			}
		}
		return found
	}
	return lookup(m.schema.OptionalHidden), lookup(m.schema.OptionalDisplay)
}

func (m *FieldMapper) groups() []map[string][]string {
	return []map[string][]string{m.schema.Required, m.schema.OptionalHidden, m.schema.OptionalDisplay}
}

// normalizedIndex 规范化列名 -> 首次出现的下标
func normalizedIndex(columns []string) map[string]int {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		n := NormalizeColumnName(c)
		if n == "" {
			continue
		}
		if _, exists := index[n]; !exists {
			index[n] = i
		}
	}
	return index
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
