package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"trenpajak/internal/config"
	"trenpajak/internal/exporter"
	"trenpajak/internal/importer"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type exportProgressEvent struct {
	Type      string      `json:"type"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// Export 直接下载批次的 Excel
// GET /api/history/:batchId/export
func (h *Handler) Export(c *gin.Context) {
	batchID := c.Param("batchId")
	file, filename, err := h.history.Export(c.Request.Context(), batchID, nil)
	if err != nil {
		if errors.Is(err, importer.ErrBatchNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
			return
		}
		config.LogError("api", "Export", batchID, err)
		abortWithError(c, http.StatusInternalServerError, "Gagal mengekspor data")
		return
	}
	defer file.Close()

	c.Header("Content-Disposition", buildExportContentDisposition(filename, batchID))
	c.Header("Content-Type", xlsxContentType)
	c.Status(http.StatusOK)
	if err := file.Write(c.Writer); err != nil {
		config.LogError("api", "Export", batchID, err)
	}
}

// ExportStream 导出 Excel（SSE 进度 + 完成后提供下载地址）
// POST /api/history/:batchId/export/stream
func (h *Handler) ExportStream(c *gin.Context) {
	batchID := c.Param("batchId")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		abortWithError(c, http.StatusInternalServerError, "Streaming tidak didukung")
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	send := func(event exportProgressEvent) {
		b, err := json.Marshal(event)
		if err != nil {
			return
		}
		fmt.Fprintf(c.Writer, "data: %s\n\n", b)
		flusher.Flush()
	}
	fail := func(msg string) {
		send(exportProgressEvent{
			Type:      "error",
			Message:   msg,
			Data:      map[string]any{},
			Timestamp: time.Now(),
		})
	}

	send(exportProgressEvent{
		Type:      "start",
		Message:   "开始导出",
		Data:      map[string]any{"batchId": batchID},
		Timestamp: time.Now(),
	})

	lastPercent := -1
	progressFn := func(p exporter.ProgressEvent) {
		if p.Percent == lastPercent {
			return
		}
		lastPercent = p.Percent
		send(exportProgressEvent{
			Type:      "progress",
			Message:   p.Stage,
			Data:      map[string]any{"percent": p.Percent},
			Timestamp: time.Now(),
		})
	}

	file, filename, err := h.history.Export(c.Request.Context(), batchID, progressFn)
	if err != nil {
		fail("导出失败: " + err.Error())
		return
	}
	defer file.Close()

	tempPath := filepath.Join(os.TempDir(), fmt.Sprintf("trenpajak_export_%d_%d.xlsx", time.Now().UnixNano(), os.Getpid()))
	if err := file.SaveAs(tempPath); err != nil {
		_ = os.Remove(tempPath)
		fail("写入导出文件失败: " + err.Error())
		return
	}

	token := h.downloads.put(tempPath, batchID, filename, 10*time.Minute)
	send(exportProgressEvent{
		Type:    "done",
		Message: "导出完成",
		Data: map[string]any{
			"percent":     100,
			"downloadUrl": "/api/export/download/" + token,
		},
		Timestamp: time.Now(),
	})
}

// DownloadExport 下载导出的 Excel 文件（一次性）
// GET /api/export/download/:token
func (h *Handler) DownloadExport(c *gin.Context) {
	token := c.Param("token")
	item, ok := h.downloads.get(token)
	if !ok {
		abortWithError(c, http.StatusNotFound, "Tautan unduhan sudah kedaluwarsa")
		return
	}

	if _, err := os.Stat(item.filePath); err != nil {
		h.downloads.delete(token)
		abortWithError(c, http.StatusNotFound, "File ekspor tidak ditemukan")
		return
	}

	c.Header("Content-Disposition", buildExportContentDisposition(item.filename, item.batchID))
	c.Header("Content-Type", xlsxContentType)
	c.File(item.filePath)

	h.downloads.delete(token)
	_ = os.Remove(item.filePath)
}

// buildExportContentDisposition 以上传文件名为基础生成下载文件名
// filename 为 ASCII 兜底，filename* 保留原始文件名
func buildExportContentDisposition(filename, batchID string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	if base == "" {
		base = "riwayat"
	}
	name := "hasil_" + base + ".xlsx"

	ascii := "hasil_" + batchID + ".xlsx"
	if short, _, found := strings.Cut(batchID, "-"); found {
		ascii = "hasil_" + short + ".xlsx"
	}
	return fmt.Sprintf("attachment; filename=%q; filename*=UTF-8''%s", ascii, url.PathEscape(name))
}
