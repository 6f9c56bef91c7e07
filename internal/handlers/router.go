package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/lms-service/internal/metrics"
	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/services"
	"github.com/SAP-F-2025/lms-service/internal/utils"
)

type HandlerManager struct {
	serviceManager    services.ServiceManager
	assessmentHandler *AssessmentHandler
	questionHandler   *QuestionHandler
	attemptHandler    *AttemptHandler
	scheduleHandler   *ScheduleHandler
	materialHandler   *MaterialHandler
	authMiddleware    *CasdoorAuthMiddleware
	fileLimiter       *RateLimiter
	metrics           *metrics.Metrics
}

type RouterConfig struct {
	FileAccessRatePerMinute int
	Metrics                 *metrics.Metrics
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	logger utils.Logger,
	authMiddleware *CasdoorAuthMiddleware,
	cfg RouterConfig,
) *HandlerManager {
	return &HandlerManager{
		serviceManager:    serviceManager,
		assessmentHandler: NewAssessmentHandler(serviceManager.Assessment(), logger),
		questionHandler:   NewQuestionHandler(serviceManager.Question(), serviceManager.ImportExport(), logger),
		attemptHandler:    NewAttemptHandler(serviceManager.Attempt(), logger),
		scheduleHandler:   NewScheduleHandler(serviceManager.Schedule(), serviceManager.Attempt(), serviceManager.ImportExport(), logger),
		materialHandler:   NewMaterialHandler(serviceManager.Material(), logger),
		authMiddleware:    authMiddleware,
		fileLimiter:       NewRateLimiter(cfg.FileAccessRatePerMinute),
		metrics:           cfg.Metrics,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	staff := hm.authMiddleware.RequireStaff()
	trainee := hm.authMiddleware.RequireRoleMiddleware(models.RoleTrainee)
	fileLimit := hm.fileLimiter.Middleware()

	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		// Assessment authoring
		assessments := v1.Group("/assessments")
		{
			assessments.POST("", staff, hm.assessmentHandler.CreateAssessment)
			assessments.GET("", staff, hm.assessmentHandler.ListAssessments)
			assessments.GET("/:id", hm.assessmentHandler.GetAssessment)
			assessments.PUT("/:id", staff, hm.assessmentHandler.UpdateAssessment)
			assessments.DELETE("/:id", staff, hm.assessmentHandler.DeleteAssessment)
			assessments.PUT("/:id/questions", staff, hm.assessmentHandler.SetAssessmentQuestions)

			// Taking an assessment
			assessments.POST("/:id/attempts", trainee, hm.attemptHandler.StartAttempt)
			assessments.GET("/:id/attempts", trainee, hm.attemptHandler.ListMyAttempts)
			assessments.GET("/:id/sheet", trainee, hm.attemptHandler.GetAttemptQuestions)
		}

		questions := v1.Group("/questions")
		questions.Use(staff)
		{
			questions.POST("", hm.questionHandler.CreateQuestion)
			questions.GET("/:id", hm.questionHandler.GetQuestion)
			questions.PUT("/:id", hm.questionHandler.UpdateQuestion)
			questions.DELETE("/:id", hm.questionHandler.DeleteQuestion)
		}

		attempts := v1.Group("/attempts")
		{
			attempts.PUT("/:id/answers/:question_id", trainee, hm.attemptHandler.SaveAnswer)
			attempts.PUT("/:id/time-remaining", trainee, hm.attemptHandler.SyncTimeRemaining)
			attempts.POST("/:id/submit", trainee, hm.attemptHandler.SubmitAttempt)
			attempts.GET("/:id/status", trainee, hm.attemptHandler.GetAttemptStatus)
			attempts.GET("/:id/result", hm.attemptHandler.GetAttemptResult)
			attempts.POST("/:id/rescore", staff, hm.attemptHandler.RecomputeScore)
		}

		schedules := v1.Group("/schedules")
		{
			schedules.POST("/:id/assessments", staff, hm.scheduleHandler.AssignAssessment)
			schedules.PUT("/:id/assessments/:assessment_id", staff, hm.scheduleHandler.UpdateAssignment)
			schedules.GET("/:id/assessments", trainee, hm.scheduleHandler.ListScheduleAssessments)
			schedules.POST("/:id/assessments/:assessment_id/attempts", trainee, hm.scheduleHandler.StartScheduledAttempt)
			schedules.GET("/:id/results", staff, hm.scheduleHandler.GetScheduleResults)
			schedules.GET("/:id/results/export", staff, hm.scheduleHandler.ExportScheduleResults)
		}

		// Secure file routes are rate limited per client
		materials := v1.Group("/materials")
		{
			materials.POST("", staff, fileLimit, hm.materialHandler.UploadMaterial)
			materials.GET("/:id", hm.materialHandler.GetMaterial)
			materials.GET("/:id/download", fileLimit, hm.materialHandler.DownloadMaterial)
			materials.GET("/:id/view", fileLimit, hm.materialHandler.ViewMaterial)
			materials.DELETE("/:id", staff, hm.materialHandler.DeleteMaterial)
		}

		courses := v1.Group("/courses")
		{
			courses.GET("/:id/materials", hm.materialHandler.ListCourseMaterials)
			courses.GET("/:id/questions", staff, hm.questionHandler.ListCourseQuestions)
			courses.POST("/:id/questions/import", staff, hm.questionHandler.ImportQuestions)
		}
	}

	router.GET("/health", hm.HealthCheck)
	if hm.metrics != nil {
		router.GET("/metrics", hm.metrics.Handler())
	}
}

// HealthCheck reports 503 when the services or their stores are unhealthy
func (hm *HandlerManager) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := hm.serviceManager.HealthCheck(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": "lms-service",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "lms-service",
	})
}
