package importer

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"trenpajak/internal/config"
	"trenpajak/internal/store"
)

func TestHistory_ViewMatchesUpload(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	cfg := config.DefaultConfig().Business
	data := buildWorkbook(t, [][]any{
		{"NOPD", "NAMA USAHA", "JANUARI", "FEBRUARI", "MARET"},
		{"B", "Toko B", 100, 120, 0},
		{"A", "Toko A", 50, nil, 80},
	})
	uploaded, err := NewCoordinator(st, cfg).Upload(context.Background(), bytes.NewReader(data), ImportOptions{Filename: "riwayat.xlsx"})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	h := NewHistory(st, cfg)
	view, err := h.View(context.Background(), uploaded.BatchID)
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if !view.FromHistory || view.Filename != "riwayat.xlsx" || view.Error != "" {
		t.Fatalf("view meta=%+v", view)
	}
	if len(view.Table.Rows) != 6 {
		t.Fatalf("rows=%d, want 6", len(view.Table.Rows))
	}
	// 历史数据按企业编号、月份排序
	first := view.Table.Rows[0]
	if first["nopd"] != "A" || first["bulan"] != "januari" {
		t.Fatalf("first=%v", first)
	}
	got, want := view.Dashboard, uploaded.Dashboard
	if got.TotalRevenue != want.TotalRevenue || got.CompliancePercent != want.CompliancePercent || got.TotalBusinesses != want.TotalBusinesses {
		t.Fatalf("dashboard history=%+v upload=%+v", got, want)
	}
}

func TestHistory_UnknownBatch(t *testing.T) {
	t.Parallel()

	h := NewHistory(newTestStore(t), config.DefaultConfig().Business)
	view, err := h.View(context.Background(), "tidak-ada")
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if view.Error != "Data tidak ditemukan" || len(view.Table.Rows) != 0 {
		t.Fatalf("view=%+v", view)
	}

	n, err := h.Delete(context.Background(), "tidak-ada")
	if err != nil || n != 0 {
		t.Fatalf("Delete=%d,%v", n, err)
	}

	if _, _, err := h.Export(context.Background(), "tidak-ada", nil); !errors.Is(err, ErrBatchNotFound) {
		t.Fatalf("Export err=%v", err)
	}
}

// 旧版数据缺少 status / kondisi，金额以字符串存储
func TestHistory_ReenrichesLegacyRows(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "legacy.db")
	db, err := sql.Open(store.DriverSQLite, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_, err = db.Exec(`
		CREATE TABLE riwayat (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			id_usaha TEXT, nama_usaha TEXT, bulan TEXT,
			omset_perbulan TEXT, jumlah_pajak_dibayar TEXT, tanggal_pembayaran DATE,
			status TEXT, kondisi TEXT,
			filename TEXT NOT NULL, batch_id TEXT NOT NULL,
			timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		INSERT INTO riwayat (id_usaha, nama_usaha, bulan, omset_perbulan, jumlah_pajak_dibayar, filename, batch_id) VALUES
			('L1', 'Lama', 'januari', '1,000', '100', 'lama.xlsx', 'old'),
			('L1', 'Lama', 'februari', '2,000.50', '200.05', 'lama.xlsx', 'old');
	`)
	_ = db.Close()
	if err != nil {
		t.Fatalf("create legacy: %v", err)
	}

	st, err := store.New(path)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	h := NewHistory(st, config.DefaultConfig().Business)
	view, err := h.View(context.Background(), "old")
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if len(view.Table.Rows) != 2 {
		t.Fatalf("rows=%v", view.Table.Rows)
	}
	if view.Table.Rows[1]["kondisi"] != "ANOMALI" || view.Table.Rows[1]["status"] != "VALID" {
		t.Fatalf("feb=%v", view.Table.Rows[1])
	}
	if view.Table.Rows[0]["nopd"] != "L1" {
		t.Fatalf("nopd not derived: %v", view.Table.Rows[0])
	}

	f, name, err := h.Export(context.Background(), "old", nil)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	defer f.Close()
	if name != "lama.xlsx" {
		t.Fatalf("filename=%q", name)
	}
}

func TestHistory_Purge(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	cfg := config.DefaultConfig().Business
	data := buildWorkbook(t, [][]any{
		{"NOPD", "NAMA USAHA", "JANUARI"},
		{"A", "Toko A", 10},
	})
	c := NewCoordinator(st, cfg)
	for i := 0; i < 2; i++ {
		if _, err := c.Upload(context.Background(), bytes.NewReader(data), ImportOptions{Filename: "a.xlsx"}); err != nil {
			t.Fatalf("Upload: %v", err)
		}
	}

	h := NewHistory(st, cfg)
	batches, _ := h.List(context.Background())
	if len(batches) != 2 {
		t.Fatalf("batches=%d", len(batches))
	}
	n, err := h.Purge(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("Purge=%d,%v", n, err)
	}
}
