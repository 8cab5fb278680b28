package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// 导入状态
const (
	ImportStatusProcessing = "processing"
	ImportStatusSuccess    = "success"
	ImportStatusFailed     = "failed"
)

// ImportLog 一次上传的处理记录
type ImportLog struct {
	ID           int64      `json:"id"`
	Filename     string     `json:"filename"`
	FileSize     int64      `json:"fileSize"`
	BatchID      string     `json:"batchId,omitempty"`
	Status       string     `json:"status"`
	TotalRows    int        `json:"totalRows"`
	ImportedRows int        `json:"importedRows"`
	ErrorRows    int        `json:"errorRows"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	StartedAt    time.Time  `json:"startedAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

// CreateImportLog 创建导入日志，返回 import_log_id
func (s *Store) CreateImportLog(ctx context.Context, filename string, fileSize int64) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, s.rebind(`
		INSERT INTO import_logs (filename, file_size, status)
		VALUES (?, ?, ?)
		RETURNING id
	`), filename, fileSize, ImportStatusProcessing).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create import log: %w", err)
	}
	return id, nil
}

// FinishImportLog 完成导入日志更新
func (s *Store) FinishImportLog(ctx context.Context, id int64, batchID string, totalRows, importedRows, errorRows int, status, errorMessage string) error {
	_, err := s.exec(ctx, s.db, `
		UPDATE import_logs SET
			batch_id = ?,
			total_rows = ?,
			imported_rows = ?,
			error_rows = ?,
			status = ?,
			error_message = ?,
			completed_at = ?
		WHERE id = ?
	`, nullString(batchID), totalRows, importedRows, errorRows, status, nullString(errorMessage), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update import log: %w", err)
	}
	return nil
}

// LatestImportLog 最近一次导入，无记录时返回 nil
func (s *Store) LatestImportLog(ctx context.Context) (*ImportLog, error) {
	var (
		l         ImportLog
		batchID   sql.NullString
		errMsg    sql.NullString
		started   any
		completed any
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, filename, file_size, batch_id, status, total_rows, imported_rows, error_rows,
			error_message, started_at, completed_at
		FROM import_logs
		ORDER BY id DESC
		LIMIT 1
	`).Scan(&l.ID, &l.Filename, &l.FileSize, &batchID, &l.Status, &l.TotalRows, &l.ImportedRows,
		&l.ErrorRows, &errMsg, &started, &completed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest import log failed: %w", err)
	}
	l.BatchID = batchID.String
	l.ErrorMessage = errMsg.String
	l.StartedAt, _ = parseTime(started)
	if t, ok := parseTime(completed); ok {
		l.CompletedAt = &t
	}
	return &l, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
