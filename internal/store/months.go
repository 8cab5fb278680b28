package store

import (
	"context"
	"fmt"
	"sort"

	"trenpajak/internal/parser"
)

// PeriodStat 批次内单个月份的统计
type PeriodStat struct {
	Period    string  `json:"bulan"`
	PeriodISO string  `json:"bulanIso"`
	Records   int     `json:"records"`
	Paid      int     `json:"paid"`
	TaxTotal  float64 `json:"taxTotal"`
}

// ListBatchPeriods 列出批次中出现的月份（按 ISO 月份升序，非 ISO 排最后）
func (s *Store) ListBatchPeriods(ctx context.Context, batchID string) ([]PeriodStat, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT
			bulan,
			COALESCE(bulan_iso, ''),
			COUNT(1),
			SUM(CASE WHEN jumlah_pajak_dibayar > 0 THEN 1 ELSE 0 END),
			COALESCE(SUM(jumlah_pajak_dibayar), 0)
		FROM riwayat
		WHERE batch_id = ?
		GROUP BY bulan, bulan_iso
	`), batchID)
	if err != nil {
		return nil, fmt.Errorf("query batch periods failed: %w", err)
	}
	defer rows.Close()

	var out []PeriodStat
	for rows.Next() {
		var (
			it     PeriodStat
			period any
		)
		if err := rows.Scan(&period, &it.PeriodISO, &it.Records, &it.Paid, &it.TaxTotal); err != nil {
			return nil, fmt.Errorf("scan batch periods failed: %w", err)
		}
		it.Period = parser.ToString(period)
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batch periods failed: %w", err)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return periodSortKey(out[i]) < periodSortKey(out[j])
	})
	return out, nil
}

func periodSortKey(p PeriodStat) string {
	if parser.IsISOMonth(p.PeriodISO) {
		return p.PeriodISO
	}
	return "9999-99"
}
