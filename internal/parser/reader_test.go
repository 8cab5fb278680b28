package parser

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, rows [][]any) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func TestReadFile_XLSX(t *testing.T) {
	t.Parallel()

	data := buildWorkbook(t, [][]any{
		{"NOPD", "NAMA USAHA", nil, "Unnamed: 3"},
		{nil, nil, "JANUARI", "FEBRUARI"},
		{"P001", "Toko A", 100000, "200,000"},
	})

	sheet, err := ReadFile("laporan.xlsx", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	wantCols := []string{"NOPD", "NAMA USAHA", "Unnamed: 2", "Unnamed: 3"}
	if !reflect.DeepEqual(sheet.Columns, wantCols) {
		t.Fatalf("columns=%v, want %v", sheet.Columns, wantCols)
	}
	if len(sheet.Rows) != 2 {
		t.Fatalf("rows=%d, want 2", len(sheet.Rows))
	}
	if got := sheet.Rows[0][2]; got != "JANUARI" {
		t.Fatalf("row0[2]=%q", got)
	}
	if got := sheet.Rows[1][2]; got != "100000" {
		t.Fatalf("row1[2]=%q, want raw value", got)
	}
	if got := sheet.Rows[1][3]; got != "200,000" {
		t.Fatalf("row1[3]=%q", got)
	}
}

func TestReadFile_CSVLatin1(t *testing.T) {
	t.Parallel()

	// "Café" 以 ISO-8859-1 编码
	raw := []byte("nopd;nama_usaha;bulan;pajak\nP1;Caf\xe9 Sari;januari;5000\n")
	sheet, err := ReadFile("data.CSV", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(sheet.Columns) != 4 || sheet.Columns[3] != "pajak" {
		t.Fatalf("columns=%v", sheet.Columns)
	}
	if got := sheet.Rows[0][1]; got != "Café Sari" {
		t.Fatalf("name=%q, want Café Sari", got)
	}
}

func TestReadFile_CSVRaggedRows(t *testing.T) {
	t.Parallel()

	raw := "nopd,nama_usaha,bulan,pajak\nP1,Toko\n\nP2,Toko B,maret,10\n"
	sheet, err := ReadFile("data.csv", strings.NewReader(raw))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(sheet.Rows) != 2 {
		t.Fatalf("rows=%d, want 2", len(sheet.Rows))
	}
	if len(sheet.Rows[0]) != 4 || sheet.Rows[0][3] != "" {
		t.Fatalf("row not padded: %v", sheet.Rows[0])
	}
}

func TestReadFile_UnsupportedExtension(t *testing.T) {
	t.Parallel()

	_, err := ReadFile("laporan.pdf", strings.NewReader("x"))
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("err=%v, want *FormatError", err)
	}
	if fe.Err != nil {
		t.Fatalf("unsupported extension should not carry a parse error: %v", fe.Err)
	}
}

func TestReadFile_CorruptWorkbook(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"rusak.xlsx", "rusak.xls"} {
		_, err := ReadFile(name, strings.NewReader("bukan workbook"))
		var fe *FormatError
		if !errors.As(err, &fe) || fe.Err == nil {
			t.Fatalf("%s: err=%v, want *FormatError with cause", name, err)
		}
		if fe.Filename != name {
			t.Fatalf("filename=%q, want %q", fe.Filename, name)
		}
	}
}
