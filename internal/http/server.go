package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "chart-analyst-bot/docs"
	"chart-analyst-bot/internal/common/middleware"
	accesshttp "chart-analyst-bot/internal/features/access/delivery/http"
	accessservice "chart-analyst-bot/internal/features/access/service"
	bothttp "chart-analyst-bot/internal/features/bot/delivery/http"
)

// Check is a readiness probe for one dependency.
type Check struct {
	Name string
	Run  func(ctx context.Context) error
}

type Options struct {
	ServiceName string
	Debug       bool
	BotToken    string
	InitDataTTL time.Duration
	CORSOrigins []string

	Access  accessservice.AccessService
	Webhook *bothttp.WebhookHandler
	// Gatherer serves /metrics when set.
	Gatherer prometheus.Gatherer
	Checks   []Check
	Log      zerolog.Logger
}

// NewRouter wires middleware and every route of the bot's HTTP surface.
func NewRouter(opts Options) *gin.Engine {
	if !opts.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(opts.Log, bothttp.RedactPath))
	router.Use(middleware.ErrorHandler(opts.Log))

	corsConfig := cors.DefaultConfig()
	if len(opts.CORSOrigins) == 0 || (len(opts.CORSOrigins) == 1 && opts.CORSOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = opts.CORSOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.InitDataHeader, "init_data"}
	router.Use(cors.New(corsConfig))

	if opts.Webhook != nil {
		opts.Webhook.RegisterRoutes(router)
	}

	v1 := router.Group("/api/v1")
	v1.Use(middleware.TelegramInitData(opts.BotToken, opts.InitDataTTL, opts.Log))
	v1.Use(middleware.AutoCreateUser(opts.Access, opts.Log))
	accesshttp.NewAccessHandler(opts.Access, opts.Log).RegisterRoutes(v1)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   opts.ServiceName,
		})
	})

	router.GET("/live", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		for _, check := range opts.Checks {
			if err := check.Run(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":  "unready",
					"error":   check.Name + " unavailable",
					"details": err.Error(),
				})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "ready",
			"timestamp": time.Now().UTC(),
			"service":   opts.ServiceName,
		})
	})

	return router
}

func NewServer(port int, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// webhook calls download the photo before answering
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
