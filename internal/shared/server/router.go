package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"applicant-tracker/internal/assistant"
	googleauth "applicant-tracker/internal/auth"
	"applicant-tracker/internal/board"
	"applicant-tracker/internal/files"
	"applicant-tracker/internal/notify"
	"applicant-tracker/internal/recruiters"
	"applicant-tracker/internal/services/health"
	"applicant-tracker/internal/shared/config"
	"applicant-tracker/internal/shared/metrics"
	"applicant-tracker/internal/shared/server/middleware"
	"applicant-tracker/internal/shared/server/respond"
)

const apiPrefix = "/api/v1"

// Rate limit groups.
const (
	GroupAssistant = "ASSISTANT"
	GroupNotify    = "NOTIFY"
)

// RouterDeps are the handlers mounted under /api/v1. Nil handlers are skipped.
type RouterDeps struct {
	Config     config.Config
	Health     *health.Service
	Board      *board.Handler
	Assistant  *assistant.Handler
	Notify     *notify.Handler
	Files      *files.Handler
	Recruiters *recruiters.Handler
	GoogleAuth *googleauth.GoogleService
	RateLimits map[string]middleware.RateLimitRule
}

// DefaultRateLimits throttles the endpoints that spend provider quota.
func DefaultRateLimits() map[string]middleware.RateLimitRule {
	return map[string]middleware.RateLimitRule{
		GroupAssistant: {Rate: 0.5, Burst: 5},
		GroupNotify:    {Rate: 0.2, Burst: 5},
	}
}

// NewRouter constructs the gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	limits := deps.RateLimits
	if limits == nil {
		limits = DefaultRateLimits()
	}
	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Auth(
			apiPrefix+"/health",
			apiPrefix+"/metrics",
			apiPrefix+"/auth/google/",
			apiPrefix+"/files/",
		),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules:    limits,
			GroupFor: rateLimitGroup,
		}),
	)

	api := r.Group(apiPrefix)
	api.GET("/health", func(c *gin.Context) {
		if deps.Health == nil {
			respond.OK(c, gin.H{"ok": true})
			return
		}
		st := deps.Health.Check(c.Request.Context())
		status := http.StatusOK
		if !st.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, st)
	})
	api.GET("/metrics", metrics.Handler())

	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}
	if deps.Recruiters != nil {
		deps.Recruiters.RegisterRoutes(api)
	}
	if deps.Board != nil {
		deps.Board.RegisterRoutes(api)
	}
	if deps.Assistant != nil {
		deps.Assistant.RegisterRoutes(api)
	}
	if deps.Notify != nil {
		deps.Notify.RegisterRoutes(api)
	}
	if deps.Files != nil {
		deps.Files.RegisterRoutes(api)
	}
	return r
}

func rateLimitGroup(c *gin.Context) string {
	path := c.Request.URL.Path
	switch {
	case strings.HasPrefix(path, apiPrefix+"/notify"):
		return GroupNotify
	case strings.Contains(path, "/assistant/"):
		return GroupAssistant
	default:
		return ""
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
