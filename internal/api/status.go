package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"trenpajak/internal/config"
)

// StatusResponse 系统状态响应
type StatusResponse struct {
	Database     string `json:"database"`     // 数据库驱动
	Reachable    bool   `json:"reachable"`    // 数据库可用
	BatchCount   int    `json:"batchCount"`   // 历史批次数
	LastImport   string `json:"lastImport"`   // 最后一次上传的文件
	LastStatus   string `json:"lastStatus"`   // 最后一次上传的状态
	LastImportAt string `json:"lastImportAt"` // 最后一次上传时间
}

// GetStatus 获取系统状态
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	ctx := c.Request.Context()
	resp := StatusResponse{Database: h.store.Driver()}

	if err := h.store.Ping(ctx); err != nil {
		config.LogError("api", "GetStatus", nil, err)
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	resp.Reachable = true

	if n, err := h.store.CountBatches(ctx); err == nil {
		resp.BatchCount = n
	}
	if last, err := h.store.LatestImportLog(ctx); err == nil && last != nil {
		resp.LastImport = last.Filename
		resp.LastStatus = last.Status
		resp.LastImportAt = last.StartedAt.Format("2006-01-02 15:04:05")
	}

	c.JSON(http.StatusOK, resp)
}
