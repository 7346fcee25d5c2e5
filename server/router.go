package server

import (
	"net/http"
	"time"

	httpHandler "social-publisher/interfaces/http"
	"social-publisher/interfaces/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers bundles everything the router mounts. Nil members are skipped.
type Handlers struct {
	Health        httpHandler.IHealthHandler
	PublishJobs   httpHandler.IPublishJobHandler
	Credentials   httpHandler.ICredentialHandler
	FacebookOAuth httpHandler.IFacebookOAuthHandler
	JobStream     gin.HandlerFunc
	Metrics       http.Handler
	Instrument    gin.HandlerFunc
}

var allowedOrigins = []string{"http://localhost:4200", "http://localhost:4201", "https://localhost:4200", "https://localhost:4201"}

func InitiateRouter(h Handlers, secretKey string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if h.Instrument != nil {
		router.Use(h.Instrument)
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := router.Group("api")
	api.Use(middleware.Auth(secretKey))

	if h.Health != nil {
		router.GET("/healthz", h.Health.Healthz)
	}
	if h.Metrics != nil {
		router.GET("/metrics", gin.WrapH(h.Metrics))
	}

	if h.FacebookOAuth != nil {
		api.GET("/auth/facebook", h.FacebookOAuth.GetAuthURL)
		router.GET("/auth/facebook/callback", h.FacebookOAuth.Callback)
	}

	if h.Credentials != nil {
		creds := api.Group("/credentials")
		{
			creds.GET("", h.Credentials.Status)
			creds.DELETE("/:provider", h.Credentials.Disconnect)
			creds.GET("/:provider/permissions", h.Credentials.Permissions)
		}
	}

	if h.PublishJobs != nil {
		jobs := api.Group("/publish-jobs")
		{
			if h.JobStream != nil {
				jobs.GET("/stream", h.JobStream)
			}
			jobs.POST("", h.PublishJobs.Create)
			jobs.GET("/:jobId", h.PublishJobs.Get)
			jobs.POST("/:jobId/publish", h.PublishJobs.PublishNow)
			jobs.PATCH("/:jobId/metadata", h.PublishJobs.AppendMetadata)
		}
	}

	return router
}
