package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/mocktest-service/internal/services"
	"github.com/SAP-F-2025/mocktest-service/internal/utils"
	"github.com/SAP-F-2025/mocktest-service/internal/validator"
)

type SessionHandler struct {
	BaseHandler
	service services.SessionService
}

func NewSessionHandler(service services.SessionService, logger utils.Logger) *SessionHandler {
	return &SessionHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// StartSession creates and starts a test session for the caller
// @Summary Start a test
// @Tags sessions
// @Accept json
// @Produce json
// @Param request body validator.StartSessionRequest true "Bank and test id"
// @Success 201 {object} services.SessionResponse
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 404 {object} ErrorResponse "Question bank not found"
// @Router /sessions [post]
func (h *SessionHandler) StartSession(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var req validator.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	h.LogRequest(c, "Starting session", "bank", req.Bank, "test_id", req.TestID)

	snap, err := h.service.Start(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, snap)
}

// GetSession returns the session snapshot
// @Router /sessions/{id} [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	snap, err := h.service.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, snap)
}

// SetInput records the answer widget state of the current question
// @Router /sessions/{id}/input [post]
func (h *SessionHandler) SetInput(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var req validator.SessionInputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	snap, err := h.service.SetInput(c.Request.Context(), userID, c.Param("id"), req.Input)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, snap)
}

// SaveAnswer stores the current input as the question's answer
// @Router /sessions/{id}/answer [post]
func (h *SessionHandler) SaveAnswer(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	snap, err := h.service.SaveAnswer(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, snap)
}

// Navigate moves to the next or previous question
// @Router /sessions/{id}/navigate [post]
func (h *SessionHandler) Navigate(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var req validator.NavigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	snap, err := h.service.Navigate(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, snap)
}

// SubmitSession ends the test. Without confirm the session keeps running and
// the caller gets 409 with the unanswered count.
// @Summary Submit a test
// @Tags sessions
// @Accept json
// @Produce json
// @Param request body validator.SubmitRequest false "Confirmation"
// @Success 200 {object} services.SubmitResponse
// @Failure 409 {object} ErrorResponse "Confirmation required"
// @Router /sessions/{id}/submit [post]
func (h *SessionHandler) SubmitSession(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var req validator.SubmitRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.bindError(c, err)
			return
		}
	}

	resp, err := h.service.Submit(c.Request.Context(), userID, c.Param("id"), req.Confirm)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	if resp.NeedsConfirmation {
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: confirmMessage(resp.Unanswered),
			Details: resp,
		})
		return
	}

	h.LogRequest(c, "Session submitted", "session_id", c.Param("id"))
	c.JSON(http.StatusOK, resp)
}

// RetrySession starts a submitted session over with a fresh paper
// @Router /sessions/{id}/retry [post]
func (h *SessionHandler) RetrySession(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	snap, err := h.service.Retry(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, snap)
}

// LeaveSession stops the timer and discards the session
// @Router /sessions/{id} [delete]
func (h *SessionHandler) LeaveSession(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	if err := h.service.Leave(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func confirmMessage(unanswered int) string {
	msg := "Are you sure you want to submit the test?"
	switch {
	case unanswered == 1:
		msg += " You have 1 unanswered question."
	case unanswered > 1:
		msg += fmt.Sprintf(" You have %d unanswered questions.", unanswered)
	}
	return msg
}
