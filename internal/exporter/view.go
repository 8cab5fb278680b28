package exporter

import (
	"trenpajak/internal/model"
	"trenpajak/internal/parser"
)

// StyleColumn 行样式提示列
const StyleColumn = "kondisi_style"

// conditionStyles 合规状况对应的 CSS
var conditionStyles = map[model.Condition]string{
	model.ConditionNormal:       "background-color: lightgreen",
	model.ConditionAnomalous:    "background-color: orange",
	model.ConditionNonCompliant: "background-color: red; color: white",
}

// ConditionStyle 合规状况的 CSS 提示，未知状况返回空串
func ConditionStyle(cond string) string {
	return conditionStyles[model.Condition(cond)]
}

// VisibleColumns 输出顺序中实际存在的列
func VisibleColumns(rows []model.Row, schema parser.Schema) []string {
	present := map[string]bool{}
	for _, row := range rows {
		for col := range row {
			present[col] = true
		}
	}
	cols := make([]string, 0, len(schema.OutputOrder))
	for _, col := range schema.OutputOrder {
		if present[col] {
			cols = append(cols, col)
		}
	}
	return cols
}

// BuildView 将展示行裁剪为可见列，并附带样式提示
func BuildView(displayRows []model.Row, schema parser.Schema) model.TableView {
	cols := VisibleColumns(displayRows, schema)

	names := make(map[string]string, len(cols))
	for _, col := range cols {
		if name, ok := schema.DisplayNames[col]; ok {
			names[col] = name
		} else {
			names[col] = col
		}
	}

	rows := make([]map[string]string, 0, len(displayRows))
	for _, dr := range displayRows {
		row := make(map[string]string, len(cols)+1)
		for _, col := range cols {
			row[col] = formatText(dr[col])
		}
		row[StyleColumn] = ConditionStyle(parser.ToString(dr[model.ColCondition]))
		rows = append(rows, row)
	}

	return model.TableView{
		Rows:         rows,
		Columns:      cols,
		DisplayNames: names,
	}
}
