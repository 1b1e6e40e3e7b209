package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/mocktest-service/internal/services"
	"github.com/SAP-F-2025/mocktest-service/internal/utils"
	"github.com/SAP-F-2025/mocktest-service/internal/validator"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ProgressHandler struct {
	BaseHandler
	service services.ProgressService
}

func NewProgressHandler(service services.ProgressService, logger utils.Logger) *ProgressHandler {
	return &ProgressHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// GetProgress returns the caller's history, optionally narrowed with ?testType=
// @Router /progress [get]
func (h *ProgressHandler) GetProgress(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	resp, err := h.service.GetProgress(c.Request.Context(), userID, c.Query("testType"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SaveProgress appends a finished test to the caller's history
// @Router /progress/save [post]
func (h *ProgressHandler) SaveProgress(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var req validator.SaveProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	h.LogRequest(c, "Saving progress", "test_type", req.TestType, "test_id", req.TestID)

	resp, err := h.service.SaveProgress(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// Leaderboard ranks users by average score. Anonymous callers get no
// current-user flag.
// @Router /leaderboard [get]
func (h *ProgressHandler) Leaderboard(c *gin.Context) {
	resp, err := h.service.Leaderboard(c.Request.Context(), c.GetString(ContextUserID))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Export downloads the caller's history as a workbook
// @Router /progress/export [get]
func (h *ProgressHandler) Export(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	buf, err := h.service.Export(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="progress.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
