package exporter

import (
	"reflect"
	"testing"

	"trenpajak/internal/model"
	"trenpajak/internal/parser"
)

func TestBuildView(t *testing.T) {
	t.Parallel()

	display := []model.Row{
		{"id_usaha": "P1", "nopd": "P1", "npwpd": "X", "nama_usaha": "Toko", "bulan": "maret", "bulan_iso": "2025-03", "status": "VALID", "kondisi": "ANOMALI", "growth": "60.00%"},
		{"id_usaha": "P2", "nopd": "P2", "nama_usaha": "Warung", "bulan": "maret", "bulan_iso": nil, "status": "TIDAK VALID", "kondisi": "TIDAK TAAT PAJAK"},
	}
	view := BuildView(display, parser.DefaultSchema())

	wantCols := []string{"nopd", "nama_usaha", "bulan", "status", "kondisi"}
	if !reflect.DeepEqual(view.Columns, wantCols) {
		t.Fatalf("columns=%v, want %v", view.Columns, wantCols)
	}
	if view.DisplayNames["nama_usaha"] != "NAMA USAHA" {
		t.Fatalf("display names=%v", view.DisplayNames)
	}
	if _, ok := view.Rows[0]["npwpd"]; ok {
		t.Fatalf("hidden column leaked: %v", view.Rows[0])
	}
	if view.Rows[0][StyleColumn] != "background-color: orange" {
		t.Fatalf("style=%q", view.Rows[0][StyleColumn])
	}
	if view.Rows[1][StyleColumn] != "background-color: red; color: white" {
		t.Fatalf("style=%q", view.Rows[1][StyleColumn])
	}
}

func TestConditionStyle_Unknown(t *testing.T) {
	t.Parallel()

	if got := ConditionStyle("-"); got != "" {
		t.Fatalf("style=%q, want empty", got)
	}
	if got := ConditionStyle("NORMAL"); got != "background-color: lightgreen" {
		t.Fatalf("style=%q", got)
	}
}
