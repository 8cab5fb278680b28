package parser

import (
	"fmt"
	"strings"
)

// Sheet 读入后的二维表：表头 + 数据行（行长度已与表头对齐）
type Sheet struct {
	Name    string     `json:"name"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// ColumnIndex 返回列下标，不存在时为 -1
func (s *Sheet) ColumnIndex(name string) int {
	for i, c := range s.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Cell 安全取值
func (s *Sheet) Cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

// SchemaError 必需字段无法解析
type SchemaError struct {
	Fields []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("kolom wajib tidak ditemukan: %s", strings.Join(e.Fields, ", "))
}

// FormatError 文件格式不支持或无法解析
type FormatError struct {
	Filename string
	Err      error
}

func (e *FormatError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("format file tidak didukung: %s", e.Filename)
	}
	return fmt.Sprintf("gagal membaca file %s: %v", e.Filename, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}
