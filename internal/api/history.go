package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"trenpajak/internal/config"
	"trenpajak/internal/model"
)

// ListHistory 批次列表
// GET /api/history
func (h *Handler) ListHistory(c *gin.Context) {
	batches, err := h.history.List(c.Request.Context())
	if err != nil {
		config.LogError("api", "ListHistory", nil, err)
		abortWithError(c, http.StatusInternalServerError, "Gagal memuat riwayat")
		return
	}
	if batches == nil {
		batches = []model.Batch{}
	}
	c.JSON(http.StatusOK, gin.H{"batches": batches})
}

// GetHistory 历史批次视图
// GET /api/history/:batchId
func (h *Handler) GetHistory(c *gin.Context) {
	batchID := c.Param("batchId")
	view, err := h.history.View(c.Request.Context(), batchID)
	if err != nil {
		config.LogError("api", "GetHistory", batchID, err)
		abortWithError(c, http.StatusInternalServerError, "Gagal memuat data riwayat")
		return
	}
	status := http.StatusOK
	if view.Error != "" {
		status = http.StatusNotFound
	}
	c.JSON(status, view)
}

// ListPeriods 批次内的月份统计
// GET /api/history/:batchId/periods
func (h *Handler) ListPeriods(c *gin.Context) {
	batchID := c.Param("batchId")
	periods, err := h.history.Periods(c.Request.Context(), batchID)
	if err != nil {
		config.LogError("api", "ListPeriods", batchID, err)
		abortWithError(c, http.StatusInternalServerError, "Gagal memuat data bulan")
		return
	}
	if len(periods) == 0 {
		abortWithError(c, http.StatusNotFound, "Data tidak ditemukan")
		return
	}
	c.JSON(http.StatusOK, gin.H{"batchId": batchID, "periods": periods})
}

// DeleteHistory 删除单个批次
// DELETE /api/history/:batchId
func (h *Handler) DeleteHistory(c *gin.Context) {
	batchID := c.Param("batchId")
	n, err := h.history.Delete(c.Request.Context(), batchID)
	if err != nil {
		config.LogError("api", "DeleteHistory", batchID, err)
		abortWithError(c, http.StatusInternalServerError, "Gagal menghapus riwayat")
		return
	}
	c.JSON(http.StatusOK, gin.H{"batchId": batchID, "deleted": n})
}

// PurgeHistory 清空全部历史
// DELETE /api/history
func (h *Handler) PurgeHistory(c *gin.Context) {
	n, err := h.history.Purge(c.Request.Context())
	if err != nil {
		config.LogError("api", "PurgeHistory", nil, err)
		abortWithError(c, http.StatusInternalServerError, "Gagal menghapus riwayat")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}
