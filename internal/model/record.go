package model

import "time"

// Status 记录校验状态
type Status string

const (
	StatusValid   Status = "VALID"
	StatusInvalid Status = "TIDAK VALID"
)

// Condition 纳税合规状况
type Condition string

const (
	ConditionNormal       Condition = "NORMAL"           // 正常
	ConditionAnomalous    Condition = "ANOMALI"          // 异常波动
	ConditionNonCompliant Condition = "TIDAK TAAT PAJAK" // 未合规
)

// 规范列名（与存储、展示共用）
const (
	ColBusinessID   = "id_usaha"
	ColPrimaryID    = "nopd"
	ColSecondaryID  = "npwpd"
	ColTaxType      = "jenis_pajak_usaha"
	ColBusinessName = "nama_usaha"
	ColPeriod       = "bulan"
	ColPeriodISO    = "bulan_iso"
	ColRevenue      = "omset_perbulan"
	ColTaxAmount    = "jumlah_pajak_dibayar"
	ColPaymentDate  = "tanggal_pembayaran"
	ColStatus       = "status"
	ColGrowth       = "growth"
	ColCondition    = "kondisi"
)

// BusinessRecord 企业-月份粒度的纳税记录
type BusinessRecord struct {
	BusinessID   string `json:"businessId"`
	PrimaryID    string `json:"nopd"`
	SecondaryID  string `json:"npwpd,omitempty"`
	TaxType      string `json:"taxType,omitempty"`
	BusinessName string `json:"businessName"`

	Period    string `json:"period"`    // 原始月份标签
	PeriodISO string `json:"periodIso"` // YYYY-MM，无法推导时为空

	TaxAmount       *float64   `json:"taxAmount"`       // nil 表示该月无缴纳记录
	RevenueEstimate *float64   `json:"revenueEstimate"` // 由税额推算
	PaymentDate     *time.Time `json:"paymentDate"`

	Status    Status    `json:"status"`
	Growth    *float64  `json:"growth"`
	Condition Condition `json:"condition"`
}

// HasPayment 是否存在大于 0 的实际缴纳
func (r *BusinessRecord) HasPayment() bool {
	return r.TaxAmount != nil && *r.TaxAmount > 0
}

// SortPeriod 排序用的月份键，优先 ISO
func (r *BusinessRecord) SortPeriod() string {
	if r.PeriodISO != "" {
		return r.PeriodISO
	}
	return r.Period
}

// Batch 一次上传对应的批次
type Batch struct {
	BatchID     string    `json:"batchId"`
	Filename    string    `json:"filename"`
	CreatedAt   time.Time `json:"createdAt"`
	RecordCount int       `json:"recordCount"`
}
