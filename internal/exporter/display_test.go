package exporter

import (
	"reflect"
	"testing"
	"time"

	"trenpajak/internal/model"
)

func TestFormatRows_Basic(t *testing.T) {
	t.Parallel()

	paid := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	rows := []model.Row{
		{
			"nopd": " P1 ", "nama_usaha": "Toko A", "bulan": "maret", "bulan_iso": "2025-03",
			"omset_perbulan": 1234.5, "jumlah_pajak_dibayar": 123.45, "tanggal_pembayaran": paid,
			"growth": 0.25, "status": "VALID", "kondisi": "NORMAL",
		},
		{
			"nopd": "P1", "nama_usaha": "nan", "bulan": "april", "bulan_iso": "",
			"omset_perbulan": nil, "jumlah_pajak_dibayar": nil, "tanggal_pembayaran": nil,
			"growth": nil, "status": "TIDAK VALID", "kondisi": "TIDAK TAAT PAJAK",
		},
	}
	out := FormatRows(rows, 2025)

	first := out[0]
	want := map[string]any{
		"nopd": "P1", "nama_usaha": "Toko A", "bulan": "maret", "bulan_iso": "2025-03",
		"omset_perbulan": "1,234.50", "jumlah_pajak_dibayar": "123.45", "tanggal_pembayaran": "2025-03-15",
		"growth": "25.00%", "status": "VALID", "kondisi": "NORMAL",
	}
	for k, v := range want {
		if first[k] != v {
			t.Fatalf("row0[%s]=%#v, want %#v", k, first[k], v)
		}
	}

	second := out[1]
	if second["bulan_iso"] != nil {
		t.Fatalf("blank bulan_iso should be nil, got %#v", second["bulan_iso"])
	}
	for _, k := range []string{"nama_usaha", "omset_perbulan", "jumlah_pajak_dibayar", "tanggal_pembayaran", "growth"} {
		if second[k] != "-" {
			t.Fatalf("row1[%s]=%#v, want -", k, second[k])
		}
	}
}

func TestFormatRows_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	rows := []model.Row{{"nopd": "P1", "omset_perbulan": 1000.0, "bulan": "januari"}}
	before := rows[0].Clone()
	_ = FormatRows(rows, 2025)
	if !reflect.DeepEqual(rows[0], before) {
		t.Fatalf("input mutated: %v", rows[0])
	}
}

func TestFormatRows_Deterministic(t *testing.T) {
	t.Parallel()

	rows := []model.Row{
		{"nopd": "P1", "bulan": "24-11", "omset_perbulan": "2,000", "tanggal_pembayaran": "2024-11-15 00:00:00"},
		{"nopd": "P2", "bulan": "Q4", "omset_perbulan": 0.0, "tanggal_pembayaran": "bukan tanggal"},
	}
	a := FormatRows(rows, 2025)
	b := FormatRows(rows, 2025)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("non deterministic output")
	}
	if a[0]["bulan_iso"] != "2024-11" || a[1]["bulan_iso"] != nil {
		t.Fatalf("bulan_iso=%#v / %#v", a[0]["bulan_iso"], a[1]["bulan_iso"])
	}
	if a[0]["tanggal_pembayaran"] != "2024-11-15" || a[1]["tanggal_pembayaran"] != "-" {
		t.Fatalf("dates=%#v / %#v", a[0]["tanggal_pembayaran"], a[1]["tanggal_pembayaran"])
	}
	if a[0]["omset_perbulan"] != "2,000" || a[1]["omset_perbulan"] != "-" {
		t.Fatalf("revenue=%#v / %#v", a[0]["omset_perbulan"], a[1]["omset_perbulan"])
	}
}

func TestFormatRows_SynthesizesISOFromNames(t *testing.T) {
	t.Parallel()

	rows := []model.Row{{"bulan": "Agu"}, {"bulan": "2025-02"}}
	out := FormatRows(rows, 2024)
	if out[0]["bulan_iso"] != "2024-08" || out[1]["bulan_iso"] != "2025-02" {
		t.Fatalf("bulan_iso=%#v / %#v", out[0]["bulan_iso"], out[1]["bulan_iso"])
	}
}
