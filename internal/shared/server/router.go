package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"signaware-client/internal/shared/config"
	"signaware-client/internal/shared/metrics"
	"signaware-client/internal/shared/server/middleware"
	"signaware-client/internal/web"
)

const (
	groupSubmit  = "SUBMIT"
	groupChat    = "CHAT"
	groupPolling = "POLLING"
)

// rateLimitRules throttle the routes that fan out to the backend or the
// reveal ticker. Unlisted groups are not limited.
var rateLimitRules = map[string]middleware.RateLimitRule{
	groupSubmit:  {Rate: 0.2, Burst: 3},
	groupChat:    {Rate: 1, Burst: 5},
	groupPolling: {Rate: 5, Burst: 20},
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(cfg config.Config, h *web.Handler, m *metrics.Metrics) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
	)

	r.GET("/metrics", m.Handler())

	api := r.Group("/api/v1")
	h.RegisterRoutes(api,
		middleware.SessionGuard(h.Principal()),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules:    rateLimitRules,
			GroupFor: rateLimitGroup,
		}),
	)

	return r
}

func rateLimitGroup(c *gin.Context) string {
	switch c.FullPath() {
	case "/api/v1/analyses":
		if c.Request.Method == http.MethodPost {
			return groupSubmit
		}
	case "/api/v1/results/chat":
		if c.Request.Method == http.MethodPost {
			return groupChat
		}
	case "/api/v1/analyses/state":
		return groupPolling
	}
	return ""
}

// Addr normalizes the listen address. The companion server binds to
// loopback unless a host is given.
func Addr(port string) string {
	if port == "" {
		return "127.0.0.1:8787"
	}
	if port[0] == ':' {
		return "127.0.0.1" + port
	}
	if strings.Contains(port, ":") {
		return port
	}
	return "127.0.0.1:" + port
}
