package importer

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"trenpajak/internal/calculator"
	"trenpajak/internal/config"
	"trenpajak/internal/exporter"
	"trenpajak/internal/model"
	"trenpajak/internal/parser"
	"trenpajak/internal/store"
)

// Coordinator 上传处理协调器：读取 -> 展开 -> 计算 -> 保存 -> 展示
type Coordinator struct {
	store       *store.Store
	mapper      *parser.FieldMapper
	reshaper    *Reshaper
	enricher    *calculator.Enricher
	assumedYear int
}

// NewCoordinator 创建协调器
func NewCoordinator(st *store.Store, cfg config.BusinessConfig) *Coordinator {
	return &Coordinator{
		store:       st,
		mapper:      parser.NewFieldMapper(parser.DefaultSchema()),
		reshaper:    NewReshaper(cfg),
		enricher:    calculator.NewEnricher(calculator.RulesFromConfig(cfg)),
		assumedYear: cfg.AssumedYear,
	}
}

// ImportOptions 上传选项
type ImportOptions struct {
	Filename string
	Size     int64
	Progress func(ProgressEvent)
}

// ProgressEvent 进度事件
type ProgressEvent struct {
	Type      string      `json:"type"`    // start/info/done/error
	Message   string      `json:"message"` // 事件消息
	Data      interface{} `json:"data"`    // 附加数据
	Timestamp time.Time   `json:"timestamp"`
}

// Upload 处理一次上传，成功时返回结果视图
func (c *Coordinator) Upload(ctx context.Context, r io.Reader, opts ImportOptions) (*model.ResultView, error) {
	log := config.GetLogger().WithField("filename", opts.Filename)
	c.sendProgress(opts, "start", "开始处理上传文件", map[string]string{"filename": opts.Filename})

	logID, err := c.store.CreateImportLog(ctx, opts.Filename, opts.Size)
	if err != nil {
		// 日志表写入失败不影响上传
		log.WithError(err).Warn("创建导入日志失败")
	}
	fail := func(err error) (*model.ResultView, error) {
		log.WithError(err).Error("上传处理失败")
		c.sendProgress(opts, "error", err.Error(), nil)
		if logID > 0 {
			if ferr := c.store.FinishImportLog(ctx, logID, "", 0, 0, 0, store.ImportStatusFailed, err.Error()); ferr != nil {
				log.WithError(ferr).Warn("更新导入日志失败")
			}
		}
		return nil, err
	}

	sheet, err := parser.ReadFile(opts.Filename, r)
	if err != nil {
		return fail(err)
	}
	c.sendProgress(opts, "info", fmt.Sprintf("读取 %d 行", len(sheet.Rows)), map[string]int{"rows": len(sheet.Rows)})

	records, err := c.BuildRecords(sheet)
	if err != nil {
		return fail(err)
	}
	c.enricher.Enrich(records)
	c.sendProgress(opts, "info", fmt.Sprintf("生成 %d 条记录", len(records)), map[string]int{"records": len(records)})

	saved, err := c.store.InsertBatch(ctx, records, opts.Filename)
	if err != nil {
		return fail(err)
	}

	view := BuildResult(model.RecordsToRows(records), c.assumedYear)
	view.BatchID = saved.BatchID
	view.Filename = opts.Filename
	view.Skipped = saved.Skipped

	if logID > 0 {
		if err := c.store.FinishImportLog(ctx, logID, saved.BatchID, len(records), saved.Inserted, saved.Skipped, store.ImportStatusSuccess, ""); err != nil {
			log.WithError(err).Warn("更新导入日志失败")
		}
	}
	log.WithFields(logrus.Fields{
		"batch_id": saved.BatchID,
		"records":  len(records),
		"skipped":  saved.Skipped,
	}).Info("上传处理完成")
	c.sendProgress(opts, "done", "处理完成", saved)
	return view, nil
}

// UploadFile 从本地路径上传（命令行使用）
func (c *Coordinator) UploadFile(ctx context.Context, path string, progress func(ProgressEvent)) (*model.ResultView, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开文件失败: %w", err)
	}
	defer f.Close()

	opts := ImportOptions{Filename: filepath.Base(path), Progress: progress}
	if info, err := f.Stat(); err == nil {
		opts.Size = info.Size()
	}
	return c.Upload(ctx, f, opts)
}

// BuildRecords 表格转记录：已是长表时直接映射，否则按宽表展开
func (c *Coordinator) BuildRecords(sheet *parser.Sheet) ([]*model.BusinessRecord, error) {
	res := c.mapper.ResolveRequired(sheet.Columns)
	res.Derive(model.ColPrimaryID, model.ColSecondaryID)
	if res.Err() == nil {
		return c.fromLongSheet(sheet, res), nil
	}
	return c.reshaper.Reshape(sheet)
}

// fromLongSheet 长表逐行映射
func (c *Coordinator) fromLongSheet(sheet *parser.Sheet, res *parser.ColumnResolution) []*model.BusinessRecord {
	text := func(row []string, field string) string {
		return strings.TrimSpace(sheet.Cell(row, res.Index(field)))
	}

	records := make([]*model.BusinessRecord, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		rec := &model.BusinessRecord{
			PrimaryID:    parser.CleanText(text(row, model.ColPrimaryID)),
			SecondaryID:  parser.CleanText(text(row, model.ColSecondaryID)),
			TaxType:      text(row, model.ColTaxType),
			BusinessName: parser.CleanText(text(row, model.ColBusinessName)),
			Period:       parser.CleanText(text(row, model.ColPeriod)),
		}
		rec.BusinessID = businessKey(rec.PrimaryID, rec.SecondaryID, rec.BusinessName)
		if iso, ok := parser.PeriodToISO(rec.Period, c.assumedYear); ok {
			rec.PeriodISO = iso
		}
		if raw := text(row, model.ColTaxAmount); !parser.IsBlank(raw) {
			if v := parser.ParseCurrency(raw); !math.IsNaN(v) {
				rec.TaxAmount = &v
			}
		}
		if rec.HasPayment() && res.Has(model.ColPaymentDate) {
			if d, ok := parseDate(text(row, model.ColPaymentDate)); ok {
				rec.PaymentDate = &d
			}
		}
		records = append(records, rec)
	}
	return records
}

var dateLayouts = []string{"2006-01-02", "2006-01-02 15:04:05", "02/01/2006", "2/1/2006", time.RFC3339}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if parser.IsBlank(s) {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// BuildResult 行数据 -> 看板 + 表格视图
func BuildResult(rows []model.Row, assumedYear int) *model.ResultView {
	schema := parser.DefaultSchema()
	dashboard := calculator.Aggregate(rows)
	display := exporter.FormatRows(rows, assumedYear)
	return &model.ResultView{
		Table:     exporter.BuildView(display, schema),
		Dashboard: dashboard,
	}
}

// sendProgress 发送进度事件
func (c *Coordinator) sendProgress(opts ImportOptions, typ, msg string, data interface{}) {
	if opts.Progress == nil {
		return
	}
	opts.Progress(ProgressEvent{
		Type:      typ,
		Message:   msg,
		Data:      data,
		Timestamp: time.Now(),
	})
}
