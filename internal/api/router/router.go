package router

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/api/handler"
	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	r.GET("/health", healthHandler(deps))

	jobHandler := handler.NewJobHandler(deps)

	v1 := r.Group("/api/v1")
	v1.Use(AuthMiddleware(deps.Users))
	{
		jobs := v1.Group("/jobs")
		{
			jobs.POST("", jobHandler.CreateJob)
			jobs.GET("", jobHandler.ListJobs)
			jobs.POST("/accept", jobHandler.AcceptJob)
			jobs.GET("/mine", jobHandler.MyJobs)
			jobs.GET("/mine/history", jobHandler.MyJobsHistory)
			jobs.GET("/potential", jobHandler.PotentialJobs)

			jobs.GET("/:job_id", jobHandler.GetJob)
			jobs.PATCH("/:job_id", jobHandler.UpdateJob)
			jobs.GET("/:job_id/history", jobHandler.GetJobHistory)
			jobs.POST("/:job_id/accept", jobHandler.AcceptJobWithID)
			jobs.POST("/:job_id/cancel", jobHandler.CancelJob)
			jobs.POST("/:job_id/end", jobHandler.EndJob)
			jobs.POST("/:job_id/customer-not-call", jobHandler.CustomerNotCall)
			jobs.POST("/:job_id/reopen", jobHandler.ReopenJob)
			jobs.POST("/:job_id/email", jobHandler.StoreJobEmail)
			jobs.PATCH("/:job_id/admin", jobHandler.UpdateAdminFields)
			jobs.POST("/:job_id/resend-push", jobHandler.ResendNotifications)
			jobs.POST("/:job_id/resend-sms", jobHandler.ResendSMSNotifications)
		}
	}

	return r
}

// healthHandler runs every registered check and reports 503 if any fails
func healthHandler(deps *handler.Dependencies) gin.HandlerFunc {
	names := make([]string, 0, len(deps.HealthChecks))
	for name := range deps.HealthChecks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()

		status := http.StatusOK
		checks := make(gin.H, len(names))
		for _, name := range names {
			if err := deps.HealthChecks[name](ctx); err != nil {
				status = http.StatusServiceUnavailable
				checks[name] = err.Error()
				continue
			}
			checks[name] = "ok"
		}

		state := "healthy"
		if status != http.StatusOK {
			state = "unhealthy"
		}

		c.JSON(status, gin.H{
			"status":  state,
			"service": deps.ServiceName,
			"checks":  checks,
		})
	}
}
