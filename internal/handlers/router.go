package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/mocktest-service/internal/models"
	"github.com/SAP-F-2025/mocktest-service/internal/services"
	"github.com/SAP-F-2025/mocktest-service/internal/utils"
)

type HandlerManager struct {
	serviceManager      services.ServiceManager
	authHandler         *AuthHandler
	progressHandler     *ProgressHandler
	questionBankHandler *QuestionBankHandler
	sessionHandler      *SessionHandler
	authMiddleware      *AuthMiddleware
}

func NewHandlerManager(serviceManager services.ServiceManager, logger utils.Logger) *HandlerManager {
	return &HandlerManager{
		serviceManager:      serviceManager,
		authHandler:         NewAuthHandler(serviceManager.Auth(), logger),
		progressHandler:     NewProgressHandler(serviceManager.Progress(), logger),
		questionBankHandler: NewQuestionBankHandler(serviceManager.QuestionBank(), logger),
		sessionHandler:      NewSessionHandler(serviceManager.Session(), logger),
		authMiddleware:      NewAuthMiddleware(serviceManager.Auth(), logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.MaxMultipartMemory = maxMultipartMemory

	router.GET("/health", hm.HealthCheck)
	router.GET("/uploads/*key", hm.authHandler.ServeUpload)

	v1 := router.Group("/api/v1")
	{
		authRoutes := v1.Group("/auth")
		{
			authRoutes.POST("/signup", hm.authHandler.Signup)
			authRoutes.POST("/login", hm.authHandler.Login)

			authRoutes.GET("/profile", hm.authMiddleware.RequireAuth(), hm.authHandler.GetProfile)
			authRoutes.PUT("/profile", hm.authMiddleware.RequireAuth(), hm.authHandler.UpdateProfile)
			authRoutes.PUT("/password", hm.authMiddleware.RequireAuth(), hm.authHandler.ChangePassword)
		}

		v1.GET("/leaderboard", hm.authMiddleware.OptionalAuth(), hm.progressHandler.Leaderboard)

		progress := v1.Group("/progress")
		progress.Use(hm.authMiddleware.RequireAuth())
		{
			progress.GET("", hm.progressHandler.GetProgress)
			progress.POST("/save", hm.progressHandler.SaveProgress)
			progress.GET("/export", hm.progressHandler.Export)
		}

		questionBanks := v1.Group("/question-banks")
		{
			questionBanks.GET("", hm.questionBankHandler.ListQuestionBanks)
			questionBanks.GET("/template", hm.questionBankHandler.DownloadTemplate)
			questionBanks.GET("/:slug/questions", hm.questionBankHandler.GetBankQuestions)

			// Importing replaces a bank - Admins only
			questionBanks.POST("/import", hm.authMiddleware.RequireAuth(), hm.authMiddleware.RequireRole(models.RoleAdmin), hm.questionBankHandler.ImportQuestionBank)
		}

		sessions := v1.Group("/sessions")
		sessions.Use(hm.authMiddleware.RequireAuth())
		{
			sessions.POST("", hm.sessionHandler.StartSession)
			sessions.GET("/:id", hm.sessionHandler.GetSession)
			sessions.DELETE("/:id", hm.sessionHandler.LeaveSession)
			sessions.POST("/:id/input", hm.sessionHandler.SetInput)
			sessions.POST("/:id/answer", hm.sessionHandler.SaveAnswer)
			sessions.POST("/:id/navigate", hm.sessionHandler.Navigate)
			sessions.POST("/:id/submit", hm.sessionHandler.SubmitSession)
			sessions.POST("/:id/retry", hm.sessionHandler.RetrySession)
		}
	}
}

// HealthCheck reports database and cache connectivity
func (hm *HandlerManager) HealthCheck(c *gin.Context) {
	status, code := "healthy", http.StatusOK
	body := gin.H{
		"service":   "mocktest-service",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if err := hm.serviceManager.HealthCheck(c.Request.Context()); err != nil {
		status, code = "unhealthy", http.StatusServiceUnavailable
		body["error"] = err.Error()
	}
	body["status"] = status
	c.JSON(code, body)
}
