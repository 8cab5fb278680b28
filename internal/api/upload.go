package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"trenpajak/internal/importer"
	"trenpajak/internal/parser"
)

// Upload 上传并处理文件，返回结果视图
// POST /api/upload
func (h *Handler) Upload(c *gin.Context) {
	file, ok := h.formFile(c)
	if !ok {
		return
	}

	src, err := file.Open()
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Gagal membaca file")
		return
	}
	defer src.Close()

	view, err := h.coordinator.Upload(c.Request.Context(), src, importer.ImportOptions{
		Filename: file.Filename,
		Size:     file.Size,
	})
	if err != nil {
		abortWithError(c, uploadErrorStatus(err), err.Error())
		return
	}
	c.JSON(http.StatusOK, view)
}

// UploadStream 上传并以 SSE 推送处理进度，done 事件携带结果视图
// POST /api/upload/stream
func (h *Handler) UploadStream(c *gin.Context) {
	file, ok := h.formFile(c)
	if !ok {
		return
	}

	src, err := file.Open()
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Gagal membaca file")
		return
	}
	defer src.Close()

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		abortWithError(c, http.StatusInternalServerError, "Streaming tidak didukung")
		return
	}

	// 设置 SSE 响应头
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	send := func(event importer.ProgressEvent) {
		b, err := json.Marshal(event)
		if err != nil {
			return
		}
		// SSE 格式: data: {json}\n\n
		fmt.Fprintf(c.Writer, "data: %s\n\n", b)
		flusher.Flush()
	}

	var last importer.ProgressEvent
	view, err := h.coordinator.Upload(c.Request.Context(), src, importer.ImportOptions{
		Filename: file.Filename,
		Size:     file.Size,
		Progress: func(e importer.ProgressEvent) {
			// done / error 由下方统一发送
			if e.Type == "done" || e.Type == "error" {
				last = e
				return
			}
			send(e)
		},
	})
	if err != nil {
		last.Type = "error"
		last.Message = err.Error()
		last.Data = map[string]int{"status": uploadErrorStatus(err)}
		send(last)
		return
	}
	last.Type = "done"
	last.Data = view
	send(last)
}

// formFile 读取 multipart 中的 file 字段，失败时已写入响应
func (h *Handler) formFile(c *gin.Context) (*multipart.FileHeader, bool) {
	if h.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	}

	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			abortWithError(c, http.StatusRequestEntityTooLarge, "Ukuran file melebihi batas")
			return nil, false
		}
		abortWithError(c, http.StatusBadRequest, "Tidak ada file yang diunggah")
		return nil, false
	}
	if file.Filename == "" {
		abortWithError(c, http.StatusBadRequest, "Tidak ada file yang dipilih")
		return nil, false
	}
	return file, true
}

// uploadErrorStatus 输入类错误返回 400，其余为 500
func uploadErrorStatus(err error) int {
	var (
		schemaErr *parser.SchemaError
		formatErr *parser.FormatError
	)
	switch {
	case errors.As(err, &schemaErr), errors.As(err, &formatErr):
		return http.StatusBadRequest
	case errors.Is(err, importer.ErrNoRows),
		errors.Is(err, importer.ErrNoMonthColumns),
		errors.Is(err, importer.ErrNoPayments):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
