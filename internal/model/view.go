package model

// MonthlyTrend 月度趋势点
type MonthlyTrend struct {
	MonthDisplay string  `json:"bulan_display"`
	Month        string  `json:"bulan"`
	Order        int     `json:"order"`
	Revenue      float64 `json:"omset_perbulan"`
	TaxPaid      float64 `json:"jumlah_pajak_dibayar"`
}

// DashboardMetrics 看板指标
type DashboardMetrics struct {
	TotalBusinesses   int            `json:"total_usaha"`
	CompliancePercent int            `json:"persentase_patuh"`
	TotalRevenue      float64        `json:"total_omset"`
	AnomalyCount      int            `json:"jumlah_anomali"`
	StatusCounts      map[string]int `json:"status_counts"`
	MonthlyTrend      []MonthlyTrend `json:"monthly_trend"`
}

// EmptyDashboard 全零指标
func EmptyDashboard() DashboardMetrics {
	return DashboardMetrics{
		StatusCounts: map[string]int{},
		MonthlyTrend: []MonthlyTrend{},
	}
}

// TableView 表格渲染数据
type TableView struct {
	Rows         []map[string]string `json:"data"`
	Columns      []string            `json:"columns"`
	DisplayNames map[string]string   `json:"column_display_mapping"`
}

// ResultView 上传结果 / 历史明细的完整视图
type ResultView struct {
	Table       TableView        `json:"table"`
	Dashboard   DashboardMetrics `json:"dashboard_data"`
	FromHistory bool             `json:"from_history"`
	BatchID     string           `json:"batch_id,omitempty"`
	Filename    string           `json:"filename,omitempty"`
	Skipped     int              `json:"skipped_rows,omitempty"`
	Error       string           `json:"error,omitempty"`
}
