package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/mocktest-service/internal/models"
	"github.com/SAP-F-2025/mocktest-service/internal/services"
	"github.com/SAP-F-2025/mocktest-service/internal/utils"
	"github.com/SAP-F-2025/mocktest-service/internal/validator"
)

type QuestionBankHandler struct {
	BaseHandler
	service services.QuestionBankService
}

func NewQuestionBankHandler(service services.QuestionBankService, logger utils.Logger) *QuestionBankHandler {
	return &QuestionBankHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// ListQuestionBanks lists the available banks
// @Summary List question banks
// @Tags question-banks
// @Produce json
// @Success 200 {array} models.QuestionBankSummary
// @Router /question-banks [get]
func (h *QuestionBankHandler) ListQuestionBanks(c *gin.Context) {
	banks, err := h.service.List(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"banks": banks})
}

// GetBankQuestions returns a bank in the question file layout
// @Summary Get the questions of a bank
// @Tags question-banks
// @Produce json
// @Param slug path string true "Question bank slug"
// @Success 200 {object} models.QuestionsResponse
// @Failure 404 {object} ErrorResponse "Not found"
// @Router /question-banks/{slug}/questions [get]
func (h *QuestionBankHandler) GetBankQuestions(c *gin.Context) {
	questions, err := h.service.GetQuestions(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.QuestionsResponse{Questions: questions})
}

// ImportQuestionBank replaces a bank's questions from an uploaded JSON or
// XLSX file
// @Summary Import a question bank
// @Tags question-banks
// @Accept multipart/form-data
// @Produce json
// @Param slug formData string true "Bank slug"
// @Param file formData file true "Question file (.json or .xlsx)"
// @Success 200 {object} models.ImportResult
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 422 {object} ErrorResponse "No valid questions"
// @Router /question-banks/import [post]
func (h *QuestionBankHandler) ImportQuestionBank(c *gin.Context) {
	var req validator.ImportBankRequest
	if err := c.ShouldBind(&req); err != nil {
		h.bindError(c, err)
		return
	}

	file, cleanup, err := formFile(c, "file")
	if err != nil {
		h.bindError(c, err)
		return
	}
	defer cleanup()

	h.LogRequest(c, "Importing question bank", "bank", req.Slug)

	result, err := h.service.Import(c.Request.Context(), &req, file)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// DownloadTemplate returns an empty import workbook
// @Router /question-banks/template [get]
func (h *QuestionBankHandler) DownloadTemplate(c *gin.Context) {
	buf, err := h.service.Template()
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="question_bank_template.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
