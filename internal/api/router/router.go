package router

import (
	"context"
	"net/http"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/api/handler"
	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	r.GET("/health", func(c *gin.Context) {
		status, code := "healthy", http.StatusOK
		if deps.Health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
			defer cancel()
			if err := deps.Health.HealthCheck(ctx); err != nil {
				status, code = "unhealthy", http.StatusServiceUnavailable
			}
		}
		c.JSON(code, gin.H{
			"status":  status,
			"service": deps.ServiceName,
		})
	})

	jobHandler := handler.NewJobHandler(deps)
	adminOnly := RequireRole()

	v1 := r.Group("/api/v1")
	v1.Use(ActorMiddleware(deps.Logger))
	{
		jobs := v1.Group("/jobs")
		{
			jobs.POST("", RequireRole(domain.RoleCustomer), jobHandler.CreateJob)
			jobs.GET("", jobHandler.ListJobs)
			jobs.GET("/:job_id", jobHandler.GetJob)
			jobs.PUT("/:job_id", adminOnly, jobHandler.UpdateJob)

			jobs.POST("/:job_id/accept", RequireRole(domain.RoleTranslator), jobHandler.AcceptJob)
			jobs.POST("/:job_id/cancel", jobHandler.CancelJob)
			jobs.POST("/:job_id/end", RequireRole(domain.RoleTranslator, domain.RoleCustomer), jobHandler.EndJob)
			jobs.POST("/:job_id/not-carried-out", RequireRole(domain.RoleTranslator), jobHandler.CustomerNotCall)
			jobs.POST("/:job_id/reopen", RequireRole(domain.RoleTranslator), jobHandler.ReopenJob)
			jobs.POST("/:job_id/email", RequireRole(domain.RoleCustomer), jobHandler.StoreJobEmail)

			jobs.POST("/:job_id/distance", adminOnly, jobHandler.DistanceFeed)
			jobs.POST("/:job_id/resend-notifications", adminOnly, jobHandler.ResendNotifications)
			jobs.POST("/:job_id/resend-sms", adminOnly, jobHandler.ResendSMSNotifications)
			jobs.POST("/:job_id/expired-notification", adminOnly, jobHandler.SendExpiredNotification)
			jobs.POST("/:job_id/ignore-expiring", adminOnly, jobHandler.IgnoreExpiring)
			jobs.POST("/:job_id/ignore-expired", adminOnly, jobHandler.IgnoreExpired)
		}

		v1.GET("/translators/:user_id/potential-jobs", RequireRole(domain.RoleTranslator), jobHandler.PotentialJobs)
	}

	return r
}
