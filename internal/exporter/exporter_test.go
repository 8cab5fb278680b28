package exporter

import (
	"testing"

	"trenpajak/internal/model"
	"trenpajak/internal/parser"
)

func TestExport_WritesDataAndSummary(t *testing.T) {
	t.Parallel()

	display := FormatRows([]model.Row{
		{"nopd": "P1", "nama_usaha": "Toko", "bulan": "januari", "omset_perbulan": 1000.0, "jumlah_pajak_dibayar": 100.0, "status": "VALID", "kondisi": "NORMAL"},
		{"nopd": "P1", "nama_usaha": "Toko", "bulan": "februari", "omset_perbulan": nil, "jumlah_pajak_dibayar": nil, "status": "TIDAK VALID", "kondisi": "TIDAK TAAT PAJAK"},
	}, 2025)
	metrics := model.DashboardMetrics{
		TotalBusinesses:   1,
		CompliancePercent: 50,
		TotalRevenue:      1000,
		StatusCounts:      map[string]int{"NORMAL": 1},
		MonthlyTrend:      []model.MonthlyTrend{{MonthDisplay: "Januari", Month: "januari", Order: 1, Revenue: 1000, TaxPaid: 100}},
	}

	var stages []string
	f, err := NewExporter(parser.DefaultSchema()).Export(display, metrics, ExportOptions{
		BatchID:  "b-1",
		Filename: "pajak.xlsx",
		Progress: func(e ProgressEvent) { stages = append(stages, e.Stage) },
	})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })

	if got, _ := f.GetCellValue(dataSheet, "A1"); got != "NOPD" {
		t.Fatalf("A1=%q", got)
	}
	if got, _ := f.GetCellValue(dataSheet, "D2"); got != "1,000" {
		t.Fatalf("D2=%q, want 1,000", got)
	}
	if got, _ := f.GetCellValue(dataSheet, "G3"); got != "TIDAK TAAT PAJAK" {
		t.Fatalf("G3=%q", got)
	}
	if got, _ := f.GetCellValue(summarySheet, "B4"); got != "1" {
		t.Fatalf("summary total=%q", got)
	}
	if got, _ := f.GetCellValue(summarySheet, "A10"); got != "Januari" {
		t.Fatalf("trend row=%q", got)
	}
	if len(stages) == 0 || stages[len(stages)-1] != "导出完成" {
		t.Fatalf("stages=%v", stages)
	}
}
