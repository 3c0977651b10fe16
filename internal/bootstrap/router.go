package bootstrap

import (
	"net/http"
	"time"

	httpapi "github.com/bamul/packline-analytics/internal/api/http"
	"github.com/bamul/packline-analytics/internal/api/http/middleware"
	prodhttp "github.com/bamul/packline-analytics/internal/production/http"
	"github.com/bamul/packline-analytics/internal/production/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type RouterDeps struct {
	ServiceName  string
	Version      string
	Environment  string
	FrontendURL  string
	Location     *time.Location
	Queries      service.Queries
	RateLimitRPS float64
	RateBurst    int
	Logger       *zap.Logger
}

var unthrottled = []string{"/api/health", "/api/healthz", "/metrics"}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.Recovery(dep.Logger),
		middleware.RequestID(),
		middleware.AccessLog(dep.Logger, unthrottled...),
		cors.New(cors.Config{
			AllowOrigins:     []string{dep.FrontendURL},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Content-Type", "Authorization", middleware.RequestIDHeader},
			ExposeHeaders:    []string{middleware.RequestIDHeader, prodhttp.TruncatedHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		middleware.RateLimit(dep.RateLimitRPS, dep.RateBurst, unthrottled...),
	)

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message":   "Bamul Analytics API",
			"version":   dep.Version,
			"timestamp": time.Now().UTC(),
			"endpoints": gin.H{
				"health":            "/api/health",
				"opticalCounts":     "/api/optical-counts",
				"trays":             "/api/trays",
				"hourlyOptical":     "/api/optical-counts/hourly",
				"packetTypeSummary": "/api/packet-types/summary",
				"hourlyTrays":       "/api/trays/hourly",
				"stats":             "/api/stats",
				"totalPackets":      "/api/stats/total-packets",
			},
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	var store httpapi.Pinger
	if dep.Queries != nil {
		store = dep.Queries
	}
	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, store)
	healthHandler.RegisterRoutes(api)

	prodhttp.NewHandler(dep.Queries, dep.Location, httpapi.NewErrors(dep.Environment)).Register(api)

	r.NoRoute(httpapi.NotFound)
	return r
}
