package parser

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// SupportedExtensions 支持的上传格式
var SupportedExtensions = []string{".csv", ".xlsx", ".xls"}

// IsSupported 判断文件扩展名是否支持
func IsSupported(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range SupportedExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// ReadFile 按扩展名读取上传文件的第一个工作表
// 第一行作为表头，空表头记为 "Unnamed: i"，数据行补齐到表头长度
func ReadFile(filename string, r io.Reader) (*Sheet, error) {
	if !IsSupported(filename) {
		return nil, &FormatError{Filename: filename}
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &FormatError{Filename: filename, Err: err}
	}

	var grid [][]string
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		grid, err = readCSV(data)
	case ".xlsx":
		grid, err = readXLSX(data)
	case ".xls":
		grid, err = readXLS(data)
	}
	if err != nil {
		return nil, &FormatError{Filename: filename, Err: err}
	}

	sheet := buildSheet(grid)
	sheet.Name = filename
	return sheet, nil
}

func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	var src io.Reader = bytes.NewReader(data)
	if !utf8.Valid(data) {
		// 非 UTF-8 的导出文件按 Latin-1 解码
		src = transform.NewReader(src, charmap.ISO8859_1.NewDecoder())
	}

	reader := csv.NewReader(src)
	reader.Comma = sniffDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	return reader.ReadAll()
}

// sniffDelimiter 根据首行判断分隔符（逗号或分号）
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook tidak memiliki sheet")
	}
	return f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
}

func readXLS(data []byte) ([][]string, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if len(workbook.GetSheets()) == 0 {
		return nil, fmt.Errorf("workbook tidak memiliki sheet")
	}
	sheet, err := workbook.GetSheet(0)
	if err != nil {
		return nil, err
	}

	var grid [][]string
	for _, row := range sheet.GetRows() {
		var cells []string
		for _, cell := range row.GetCols() {
			cells = append(cells, cell.GetString())
		}
		grid = append(grid, cells)
	}
	return grid, nil
}

// buildSheet 二维数组转 Sheet：首行为表头
func buildSheet(grid [][]string) *Sheet {
	sheet := &Sheet{}
	if len(grid) == 0 {
		return sheet
	}

	width := 0
	for _, row := range grid {
		if len(row) > width {
			width = len(row)
		}
	}

	header := grid[0]
	sheet.Columns = make([]string, width)
	for i := 0; i < width; i++ {
		name := ""
		if i < len(header) {
			name = strings.TrimSpace(header[i])
		}
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		sheet.Columns[i] = name
	}

	for _, raw := range grid[1:] {
		if isEmptyRow(raw) {
			continue
		}
		row := make([]string, width)
		copy(row, raw)
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet
}

func isEmptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
