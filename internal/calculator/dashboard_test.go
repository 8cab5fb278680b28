package calculator

import (
	"testing"

	"trenpajak/internal/model"
)

func TestAggregate_Empty(t *testing.T) {
	t.Parallel()

	m := Aggregate(nil)
	if m.TotalBusinesses != 0 || m.CompliancePercent != 0 || m.TotalRevenue != 0 || len(m.MonthlyTrend) != 0 {
		t.Fatalf("metrics=%+v, want zero", m)
	}
}

func TestAggregate_Basic(t *testing.T) {
	t.Parallel()

	rows := []model.Row{
		{"id_usaha": "A", "bulan": "januari", "bulan_iso": "2025-01", "omset_perbulan": 1000.0, "jumlah_pajak_dibayar": 100.0, "kondisi": "NORMAL"},
		{"id_usaha": "A", "bulan": "februari", "bulan_iso": "2025-02", "omset_perbulan": 2000.0, "jumlah_pajak_dibayar": 200.0, "kondisi": "ANOMALI"},
		{"id_usaha": "B", "bulan": "januari", "bulan_iso": "2025-01", "omset_perbulan": nil, "jumlah_pajak_dibayar": nil, "kondisi": "TIDAK TAAT PAJAK"},
		{"id_usaha": "B", "bulan": "februari", "bulan_iso": "2025-02", "omset_perbulan": 500.0, "jumlah_pajak_dibayar": 50.0, "kondisi": "normal"},
	}
	m := Aggregate(rows)

	if m.TotalBusinesses != 2 {
		t.Fatalf("total businesses=%d, want 2", m.TotalBusinesses)
	}
	if m.CompliancePercent != 50 {
		t.Fatalf("compliance=%d, want 50", m.CompliancePercent)
	}
	if m.TotalRevenue != 3500 {
		t.Fatalf("revenue=%v, want 3500", m.TotalRevenue)
	}
	if m.AnomalyCount != 1 {
		t.Fatalf("anomalies=%d, want 1", m.AnomalyCount)
	}
	if m.StatusCounts["NORMAL"] != 2 || m.StatusCounts["TIDAK TAAT PAJAK"] != 1 {
		t.Fatalf("status counts=%v", m.StatusCounts)
	}
	if len(m.MonthlyTrend) != 2 {
		t.Fatalf("trend=%+v", m.MonthlyTrend)
	}
	if m.MonthlyTrend[0].Month != "januari" || m.MonthlyTrend[0].Revenue != 1000 || m.MonthlyTrend[0].TaxPaid != 100 {
		t.Fatalf("jan trend=%+v", m.MonthlyTrend[0])
	}
	if m.MonthlyTrend[1].Month != "februari" || m.MonthlyTrend[1].Revenue != 2500 || m.MonthlyTrend[1].MonthDisplay != "Februari" {
		t.Fatalf("feb trend=%+v", m.MonthlyTrend[1])
	}
}

// 历史数据中金额以字符串存储，且缺少 bulan_iso
func TestAggregate_StringRevenueAndNameFallback(t *testing.T) {
	t.Parallel()

	rows := []model.Row{
		{"nopd": "P1", "bulan": "Agu", "omset_perbulan": "1,000,000", "jumlah_pajak_dibayar": "100,000", "kondisi": "NORMAL"},
		{"nopd": "P2", "bulan": "des", "omset_perbulan": "Rp 2,500", "jumlah_pajak_dibayar": "250", "kondisi": "NORMAL"},
		{"nopd": "P3", "bulan": "triwulan", "omset_perbulan": "abc", "jumlah_pajak_dibayar": "10", "kondisi": "ANOMALI"},
	}
	m := Aggregate(rows)

	if m.TotalBusinesses != 3 {
		t.Fatalf("total businesses=%d", m.TotalBusinesses)
	}
	if m.TotalRevenue != 1002500 {
		t.Fatalf("revenue=%v, want 1002500", m.TotalRevenue)
	}
	// 2/3 -> 66.67 -> 67
	if m.CompliancePercent != 67 {
		t.Fatalf("compliance=%d, want 67", m.CompliancePercent)
	}
	if len(m.MonthlyTrend) != 2 || m.MonthlyTrend[0].Order != 8 || m.MonthlyTrend[1].Order != 12 {
		t.Fatalf("trend=%+v", m.MonthlyTrend)
	}
}

func TestAggregate_ComplianceRoundsHalfToEven(t *testing.T) {
	t.Parallel()

	// 1/8 = 12.5% -> 12
	var rows []model.Row
	for i := 0; i < 8; i++ {
		cond := "ANOMALI"
		if i == 0 {
			cond = "NORMAL"
		}
		rows = append(rows, model.Row{"nama_usaha": "X", "kondisi": cond})
	}
	if got := Aggregate(rows).CompliancePercent; got != 12 {
		t.Fatalf("compliance=%d, want 12", got)
	}
}

func TestAggregate_IDColumnPreference(t *testing.T) {
	t.Parallel()

	rows := []model.Row{
		{"id_usaha": "-", "nopd": "A", "nama_usaha": "Toko"},
		{"id_usaha": nil, "nopd": "B", "nama_usaha": "Toko"},
	}
	if got := Aggregate(rows).TotalBusinesses; got != 2 {
		t.Fatalf("total businesses=%d, want 2 (nopd)", got)
	}
}

func TestAggregate_RecoversFromPanic(t *testing.T) {
	t.Parallel()

	rows := []model.Row{
		{"nopd": "A", "kondisi": panicker{}},
	}
	m := Aggregate(rows)
	if m.TotalBusinesses != 0 || m.StatusCounts == nil {
		t.Fatalf("metrics=%+v, want empty", m)
	}
}

// panicker 转字符串时 panic，模拟脏数据
type panicker struct{}

func (panicker) String() string { panic("bad value") }
