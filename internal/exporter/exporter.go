package exporter

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"trenpajak/internal/model"
	"trenpajak/internal/parser"
)

const (
	dataSheet    = "Data"
	summarySheet = "Ringkasan"
)

// Exporter 批次数据导出为 Excel
type Exporter struct {
	schema parser.Schema
}

// NewExporter 创建导出器
func NewExporter(schema parser.Schema) *Exporter {
	return &Exporter{schema: schema}
}

// ExportOptions 导出选项
type ExportOptions struct {
	BatchID  string
	Filename string
	Progress func(ProgressEvent)
}

// Export 导出展示行与看板汇总
func (e *Exporter) Export(displayRows []model.Row, metrics model.DashboardMetrics, opts ExportOptions) (*excelize.File, error) {
	f := excelize.NewFile()
	reportProgress(opts.Progress, 0, "开始导出")

	if err := f.SetSheetName("Sheet1", dataSheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("重命名工作表失败: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("创建表头样式失败: %w", err)
	}

	if err := e.writeData(f, displayRows, headerStyle, opts.Progress); err != nil {
		_ = f.Close()
		return nil, err
	}
	reportProgress(opts.Progress, 80, "写入汇总")

	if err := e.writeSummary(f, metrics, opts, headerStyle); err != nil {
		_ = f.Close()
		return nil, err
	}

	f.SetActiveSheet(0)
	reportProgress(opts.Progress, 100, "导出完成")
	return f, nil
}

func (e *Exporter) writeData(f *excelize.File, rows []model.Row, headerStyle int, progress func(ProgressEvent)) error {
	cols := VisibleColumns(rows, e.schema)

	header := make([]any, len(cols))
	for i, col := range cols {
		if name, ok := e.schema.DisplayNames[col]; ok {
			header[i] = name
		} else {
			header[i] = col
		}
	}
	if err := f.SetSheetRow(dataSheet, "A1", &header); err != nil {
		return fmt.Errorf("写入表头失败: %w", err)
	}
	if err := f.SetRowStyle(dataSheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("设置表头样式失败: %w", err)
	}

	styles := map[string]int{}
	for i, row := range rows {
		values := make([]any, len(cols))
		for j, col := range cols {
			values[j] = formatText(row[col])
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(dataSheet, cell, &values); err != nil {
			return fmt.Errorf("写入第 %d 行失败: %w", i+2, err)
		}

		if err := e.styleCondition(f, cols, row, i+2, styles); err != nil {
			return err
		}
		if len(rows) > 0 && i%500 == 0 {
			reportProgress(progress, 10+i*70/len(rows), "写入数据")
		}
	}

	if len(cols) > 0 {
		last, _ := excelize.ColumnNumberToName(len(cols))
		if err := f.SetColWidth(dataSheet, "A", last, 20); err != nil {
			return fmt.Errorf("设置列宽失败: %w", err)
		}
	}
	return nil
}

// styleCondition 按合规状况给 kondisi 单元格着色
func (e *Exporter) styleCondition(f *excelize.File, cols []string, row model.Row, rowNum int, cache map[string]int) error {
	colIdx := -1
	for i, c := range cols {
		if c == model.ColCondition {
			colIdx = i
			break
		}
	}
	if colIdx < 0 {
		return nil
	}

	cond := parser.ToString(row[model.ColCondition])
	fill, font := conditionColors(model.Condition(cond))
	if fill == "" {
		return nil
	}

	styleID, ok := cache[cond]
	if !ok {
		var err error
		styleID, err = f.NewStyle(&excelize.Style{
			Font: &excelize.Font{Color: font},
			Fill: excelize.Fill{Type: "pattern", Color: []string{fill}, Pattern: 1},
		})
		if err != nil {
			return fmt.Errorf("创建样式失败: %w", err)
		}
		cache[cond] = styleID
	}

	cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowNum)
	return f.SetCellStyle(dataSheet, cell, cell, styleID)
}

func conditionColors(cond model.Condition) (fill, font string) {
	switch cond {
	case model.ConditionNormal:
		return "#90EE90", "#000000"
	case model.ConditionAnomalous:
		return "#FFA500", "#000000"
	case model.ConditionNonCompliant:
		return "#FF0000", "#FFFFFF"
	}
	return "", ""
}

func (e *Exporter) writeSummary(f *excelize.File, m model.DashboardMetrics, opts ExportOptions, headerStyle int) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("创建汇总表失败: %w", err)
	}

	data := [][]any{
		{"Keterangan", "Nilai"},
		{"File", opts.Filename},
		{"Batch", opts.BatchID},
		{"Total Usaha", m.TotalBusinesses},
		{"Persentase Patuh", fmt.Sprintf("%d%%", m.CompliancePercent)},
		{"Total Omset", parser.FormatCurrency(m.TotalRevenue)},
		{"Jumlah Anomali", m.AnomalyCount},
		{},
		{"Bulan", "Omset", "Pajak Dibayar"},
	}
	trendHeader := len(data)
	for _, t := range m.MonthlyTrend {
		data = append(data, []any{t.MonthDisplay, t.Revenue, t.TaxPaid})
	}

	for i, row := range data {
		if len(row) == 0 {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("写入汇总失败: %w", err)
		}
	}

	_ = f.SetRowStyle(summarySheet, 1, 1, headerStyle)
	_ = f.SetRowStyle(summarySheet, trendHeader, trendHeader, headerStyle)
	_ = f.SetColWidth(summarySheet, "A", "A", 22)
	_ = f.SetColWidth(summarySheet, "B", "C", 20)
	return nil
}
