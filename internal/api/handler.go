package api

import (
	"github.com/gin-gonic/gin"

	"trenpajak/internal/config"
	"trenpajak/internal/importer"
	"trenpajak/internal/store"
)

// Handler API 处理器
type Handler struct {
	store       *store.Store
	coordinator *importer.Coordinator
	history     *importer.History
	maxUpload   int64
	downloads   *exportDownloadStore
}

// NewHandler 创建 API 处理器
func NewHandler(st *store.Store, cfg *config.AppConfig) *Handler {
	return &Handler{
		store:       st,
		coordinator: importer.NewCoordinator(st, cfg.Business),
		history:     importer.NewHistory(st, cfg.Business),
		maxUpload:   cfg.Data.MaxUploadMB << 20,
		downloads:   newExportDownloadStore(),
	}
}

// RegisterRoutes 注册 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 系统状态
	router.GET("/status", h.GetStatus)

	// 上传
	router.POST("/upload", h.Upload)
	router.POST("/upload/stream", h.UploadStream)

	// 历史批次
	router.GET("/history", h.ListHistory)
	router.DELETE("/history", h.PurgeHistory)
	router.GET("/history/:batchId", h.GetHistory)
	router.GET("/history/:batchId/periods", h.ListPeriods)
	router.DELETE("/history/:batchId", h.DeleteHistory)

	// 导出
	router.GET("/history/:batchId/export", h.Export)
	router.POST("/history/:batchId/export/stream", h.ExportStream)
	router.GET("/export/download/:token", h.DownloadExport)
}

func abortWithError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
