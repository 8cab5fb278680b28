package importer

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"trenpajak/internal/calculator"
	"trenpajak/internal/config"
	"trenpajak/internal/exporter"
	"trenpajak/internal/model"
	"trenpajak/internal/parser"
	"trenpajak/internal/store"
)

// ErrBatchNotFound 批次不存在或为空
var ErrBatchNotFound = errors.New("Data tidak ditemukan")

// History 历史批次查询与管理
type History struct {
	store       *store.Store
	mapper      *parser.FieldMapper
	enricher    *calculator.Enricher
	assumedYear int
}

// NewHistory 创建历史服务
func NewHistory(st *store.Store, cfg config.BusinessConfig) *History {
	return &History{
		store:       st,
		mapper:      parser.NewFieldMapper(parser.DefaultSchema()),
		enricher:    calculator.NewEnricher(calculator.RulesFromConfig(cfg)),
		assumedYear: cfg.AssumedYear,
	}
}

// List 批次列表（最新在前）
func (h *History) List(ctx context.Context) ([]model.Batch, error) {
	return h.store.ListBatches(ctx)
}

// Delete 删除单个批次
func (h *History) Delete(ctx context.Context, batchID string) (int64, error) {
	return h.store.DeleteBatch(ctx, batchID)
}

// Purge 删除全部批次
func (h *History) Purge(ctx context.Context) (int64, error) {
	return h.store.DeleteAll(ctx)
}

// Periods 批次内各月份的统计
func (h *History) Periods(ctx context.Context, batchID string) ([]store.PeriodStat, error) {
	return h.store.ListBatchPeriods(ctx, batchID)
}

// Rows 读取批次行，必要时补算缺失的派生字段
func (h *History) Rows(ctx context.Context, batchID string) ([]model.Row, error) {
	rows, err := h.store.LoadBatchRows(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	log := config.GetLogger().WithField("batch_id", batchID)

	res := h.mapper.ResolveRequired(rowColumns(rows))
	res.Derive(model.ColPrimaryID, model.ColSecondaryID, model.ColBusinessID)
	if err := res.Err(); err != nil {
		// 历史数据按现有列继续处理
		log.WithError(err).Warn("历史数据缺少字段")
	}

	if needsEnrichment(rows) {
		log.Info("历史数据缺少状态字段，重新计算")
		records := make([]*model.BusinessRecord, 0, len(rows))
		for _, row := range rows {
			rec := store.RecordFromRow(row)
			if rec.PeriodISO == "" {
				if iso, ok := parser.PeriodToISO(rec.Period, h.assumedYear); ok {
					rec.PeriodISO = iso
				}
			}
			records = append(records, rec)
		}
		h.enricher.Enrich(records)
		rows = model.RecordsToRows(records)
	}
	return rows, nil
}

// View 历史批次的完整视图，空批次返回带错误信息的空视图
func (h *History) View(ctx context.Context, batchID string) (*model.ResultView, error) {
	rows, err := h.Rows(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &model.ResultView{
			Table:       model.TableView{Rows: []map[string]string{}, Columns: []string{}, DisplayNames: map[string]string{}},
			Dashboard:   model.EmptyDashboard(),
			FromHistory: true,
			BatchID:     batchID,
			Error:       ErrBatchNotFound.Error(),
		}, nil
	}

	view := BuildResult(rows, h.assumedYear)
	view.FromHistory = true
	view.BatchID = batchID
	view.Filename = h.filename(ctx, batchID)
	return view, nil
}

// Export 将批次导出为 Excel
func (h *History) Export(ctx context.Context, batchID string, progress func(exporter.ProgressEvent)) (*excelize.File, string, error) {
	rows, err := h.Rows(ctx, batchID)
	if err != nil {
		return nil, "", err
	}
	if len(rows) == 0 {
		return nil, "", ErrBatchNotFound
	}

	filename := h.filename(ctx, batchID)
	f, err := exporter.NewExporter(parser.DefaultSchema()).Export(
		exporter.FormatRows(rows, h.assumedYear),
		calculator.Aggregate(rows),
		exporter.ExportOptions{BatchID: batchID, Filename: filename, Progress: progress},
	)
	if err != nil {
		return nil, "", fmt.Errorf("导出批次失败: %w", err)
	}
	return f, filename, nil
}

func (h *History) filename(ctx context.Context, batchID string) string {
	batches, err := h.store.ListBatches(ctx)
	if err != nil {
		return ""
	}
	for _, b := range batches {
		if b.BatchID == batchID {
			return b.Filename
		}
	}
	return ""
}

// needsEnrichment 状态或合规字段整体缺失
func needsEnrichment(rows []model.Row) bool {
	for _, col := range []string{model.ColStatus, model.ColCondition} {
		missing := true
		for _, row := range rows {
			if !parser.IsBlank(row[col]) {
				missing = false
				break
			}
		}
		if missing {
			return true
		}
	}
	return false
}

func rowColumns(rows []model.Row) []string {
	seen := map[string]bool{}
	for _, row := range rows {
		for col := range row {
			seen[col] = true
		}
	}
	cols := make([]string, 0, len(seen))
	for col := range seen {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}
