package model

// Row 列名 -> 值 的宽松行表示
// 值可能是 string / float64 / []byte / time.Time / nil（历史数据读出时类型不固定）
type Row map[string]any

// Has 判断列是否存在
func (r Row) Has(col string) bool {
	_, ok := r[col]
	return ok
}

// Clone 浅拷贝一行
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ToRow 将记录转为规范列名的行
func (r *BusinessRecord) ToRow() Row {
	row := Row{
		ColBusinessID:   r.BusinessID,
		ColPrimaryID:    r.PrimaryID,
		ColBusinessName: r.BusinessName,
		ColPeriod:       r.Period,
		ColPeriodISO:    nil,
		ColTaxAmount:    nil,
		ColRevenue:      nil,
		ColPaymentDate:  nil,
		ColStatus:       string(r.Status),
		ColGrowth:       nil,
		ColCondition:    string(r.Condition),
	}
	if r.SecondaryID != "" {
		row[ColSecondaryID] = r.SecondaryID
	}
	if r.TaxType != "" {
		row[ColTaxType] = r.TaxType
	}
	if r.PeriodISO != "" {
		row[ColPeriodISO] = r.PeriodISO
	}
	if r.TaxAmount != nil {
		row[ColTaxAmount] = *r.TaxAmount
	}
	if r.RevenueEstimate != nil {
		row[ColRevenue] = *r.RevenueEstimate
	}
	if r.PaymentDate != nil {
		row[ColPaymentDate] = *r.PaymentDate
	}
	if r.Growth != nil {
		row[ColGrowth] = *r.Growth
	}
	return row
}

// RecordsToRows 批量转换
func RecordsToRows(records []*BusinessRecord) []Row {
	rows := make([]Row, 0, len(records))
	for _, r := range records {
		rows = append(rows, r.ToRow())
	}
	return rows
}
