package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"trenpajak/internal/config"
	"trenpajak/internal/model"
	"trenpajak/internal/parser"
)

// InsertResult 批次写入结果
type InsertResult struct {
	BatchID  string `json:"batchId"`
	Inserted int    `json:"inserted"`
	Skipped  int    `json:"skipped"`
}

// RowError 单行写入失败（记录日志后跳过）
type RowError struct {
	Index      int
	BusinessID string
	Period     string
	Err        error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d (%s/%s): %v", e.Index, e.BusinessID, e.Period, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// internalColumns 不作为数据列返回的存储字段
var internalColumns = map[string]bool{
	"id":        true,
	"filename":  true,
	"batch_id":  true,
	"timestamp": true,
}

const insertRiwayatSQL = `
	INSERT INTO riwayat (
		id_usaha, nopd, npwpd, jenis_pajak_usaha, nama_usaha, bulan, bulan_iso,
		omset_perbulan, jumlah_pajak_dibayar, tanggal_pembayaran, status, growth, kondisi,
		filename, batch_id, timestamp
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// InsertBatch 以新批次写入全部记录
// 单行失败时回滚到该行的保存点并跳过，其余行照常提交
func (s *Store) InsertBatch(ctx context.Context, records []*model.BusinessRecord, filename string) (InsertResult, error) {
	result := InsertResult{BatchID: uuid.NewString()}
	log := config.GetLogger().WithFields(logrus.Fields{
		"batch_id": result.BatchID,
		"filename": filename,
	})

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("begin tx failed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	for i, r := range records {
		args, err := recordArgs(r)
		if err == nil {
			args = append(args, filename, result.BatchID, now)
			err = s.insertRow(ctx, tx, args)
		}
		if err != nil {
			rowErr := &RowError{Index: i, BusinessID: r.BusinessID, Period: r.Period, Err: err}
			log.WithError(rowErr).Warn("跳过无法写入的记录")
			result.Skipped++
			continue
		}
		result.Inserted++
	}

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("commit batch failed: %w", err)
	}
	log.WithFields(logrus.Fields{
		"inserted": result.Inserted,
		"skipped":  result.Skipped,
	}).Info("批次已保存")
	return result, nil
}

func (s *Store) insertRow(ctx context.Context, tx execer, args []any) error {
	if _, err := tx.ExecContext(ctx, "SAVEPOINT riwayat_row"); err != nil {
		return err
	}
	if _, err := s.exec(ctx, tx, insertRiwayatSQL, args...); err != nil {
		_, _ = tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT riwayat_row")
		_, _ = tx.ExecContext(ctx, "RELEASE SAVEPOINT riwayat_row")
		return err
	}
	_, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT riwayat_row")
	return err
}

// recordArgs 记录转为插入参数，数值非法时返回错误
func recordArgs(r *model.BusinessRecord) ([]any, error) {
	num := func(field string, v *float64) (any, error) {
		if v == nil {
			return nil, nil
		}
		if math.IsNaN(*v) || math.IsInf(*v, 0) {
			return nil, fmt.Errorf("%s is not a finite number", field)
		}
		return *v, nil
	}
	text := func(s string) any {
		if strings.TrimSpace(s) == "" {
			return nil
		}
		return s
	}

	revenue, err := num(model.ColRevenue, r.RevenueEstimate)
	if err != nil {
		return nil, err
	}
	tax, err := num(model.ColTaxAmount, r.TaxAmount)
	if err != nil {
		return nil, err
	}
	growth, err := num(model.ColGrowth, r.Growth)
	if err != nil {
		return nil, err
	}
	var paid any
	if r.PaymentDate != nil {
		paid = r.PaymentDate.Format("2006-01-02")
	}

	return []any{
		text(r.BusinessID), text(r.PrimaryID), text(r.SecondaryID), text(r.TaxType),
		text(r.BusinessName), text(r.Period), text(r.PeriodISO),
		revenue, tax, paid, text(string(r.Status)), growth, text(string(r.Condition)),
	}, nil
}

// LoadBatchRows 读取批次的全部行（列名为规范列名）
// 排序：企业编号，ISO 月份（非 ISO 排最后），写入顺序
func (s *Store) LoadBatchRows(ctx context.Context, batchID string) ([]model.Row, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT * FROM riwayat WHERE batch_id = ?`), batchID)
	if err != nil {
		return nil, fmt.Errorf("query batch failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns failed: %w", err)
	}

	type keyed struct {
		row   model.Row
		id    int64
		group string
		month string
	}
	var out []keyed
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan batch row failed: %w", err)
		}

		k := keyed{row: model.Row{}}
		for i, col := range cols {
			name := strings.ToLower(col)
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			if name == "id" {
				if f, ok := parser.ToFloat(v); ok {
					k.id = int64(f)
				}
			}
			if internalColumns[name] {
				continue
			}
			k.row[name] = v
		}
		k.group = sortKey(k.row, model.ColBusinessID, model.ColPrimaryID)
		k.month = "9999-99"
		for _, col := range []string{model.ColPeriodISO, model.ColPeriod} {
			if p := strings.TrimSpace(parser.ToString(k.row[col])); parser.IsISOMonth(p) {
				k.month = p
				break
			}
		}
		out = append(out, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batch failed: %w", err)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].group != out[j].group {
			return out[i].group < out[j].group
		}
		if out[i].month != out[j].month {
			return out[i].month < out[j].month
		}
		return out[i].id < out[j].id
	})

	result := make([]model.Row, len(out))
	for i, k := range out {
		result[i] = k.row
	}
	return result, nil
}

func sortKey(row model.Row, cols ...string) string {
	for _, c := range cols {
		if v := row[c]; !parser.IsBlank(v) {
			return strings.TrimSpace(parser.ToString(v))
		}
	}
	return ""
}

// LoadBatch 读取批次并转换为记录
func (s *Store) LoadBatch(ctx context.Context, batchID string) ([]*model.BusinessRecord, error) {
	rows, err := s.LoadBatchRows(ctx, batchID)
	if err != nil {
		return nil, err
	}
	records := make([]*model.BusinessRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, RecordFromRow(row))
	}
	return records, nil
}

// RecordFromRow 宽松地将存储行转换为记录，缺失列保持零值
func RecordFromRow(row model.Row) *model.BusinessRecord {
	text := func(col string) string {
		v := row[col]
		if parser.IsBlank(v) {
			return ""
		}
		return strings.TrimSpace(parser.ToString(v))
	}
	num := func(col string) *float64 {
		f, ok := parser.ToFloat(row[col])
		if !ok {
			return nil
		}
		return &f
	}

	r := &model.BusinessRecord{
		BusinessID:      text(model.ColBusinessID),
		PrimaryID:       text(model.ColPrimaryID),
		SecondaryID:     text(model.ColSecondaryID),
		TaxType:         text(model.ColTaxType),
		BusinessName:    text(model.ColBusinessName),
		Period:          text(model.ColPeriod),
		PeriodISO:       text(model.ColPeriodISO),
		TaxAmount:       num(model.ColTaxAmount),
		RevenueEstimate: num(model.ColRevenue),
		Growth:          num(model.ColGrowth),
		Status:          model.Status(text(model.ColStatus)),
		Condition:       model.Condition(text(model.ColCondition)),
	}
	if r.PrimaryID == "" {
		r.PrimaryID = r.BusinessID
	}
	if r.BusinessID == "" {
		r.BusinessID = r.PrimaryID
	}
	if t, ok := parseTime(row[model.ColPaymentDate]); ok {
		r.PaymentDate = &t
	}
	return r
}

// ListBatches 每个批次一条，最新的在前
func (s *Store) ListBatches(ctx context.Context) ([]model.Batch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT batch_id, filename, MIN(timestamp), COUNT(1), MAX(id)
		FROM riwayat
		GROUP BY batch_id, filename
		ORDER BY MAX(id) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query batches failed: %w", err)
	}
	defer rows.Close()

	var out []model.Batch
	for rows.Next() {
		var (
			b       model.Batch
			created any
			maxID   int64
		)
		if err := rows.Scan(&b.BatchID, &b.Filename, &created, &b.RecordCount, &maxID); err != nil {
			return nil, fmt.Errorf("scan batch failed: %w", err)
		}
		b.CreatedAt, _ = parseTime(created)
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batches failed: %w", err)
	}
	return out, nil
}

// DeleteBatch 删除批次，返回删除行数（不存在时为 0）
func (s *Store) DeleteBatch(ctx context.Context, batchID string) (int64, error) {
	res, err := s.exec(ctx, s.db, `DELETE FROM riwayat WHERE batch_id = ?`, batchID)
	if err != nil {
		return 0, fmt.Errorf("delete batch failed: %w", err)
	}
	return res.RowsAffected()
}

// DeleteAll 清空全部历史
func (s *Store) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.exec(ctx, s.db, `DELETE FROM riwayat`)
	if err != nil {
		return 0, fmt.Errorf("delete all failed: %w", err)
	}
	return res.RowsAffected()
}

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTime 兼容驱动返回的 time.Time 与各种字符串格式
func parseTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, !x.IsZero()
	case []byte:
		return parseTime(string(x))
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// CountBatches 批次数量
func (s *Store) CountBatches(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT batch_id) FROM riwayat`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count batches failed: %w", err)
	}
	return n, nil
}
