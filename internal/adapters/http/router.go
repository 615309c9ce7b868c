package http

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/dkeye/VoiceBridge/internal/adapters/signal"
	"github.com/dkeye/VoiceBridge/internal/adapters/token"
	"github.com/dkeye/VoiceBridge/internal/app"
	"github.com/dkeye/VoiceBridge/internal/config"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// SetupRouter wires HTTP routes (REST + WS) with orchestrator and transport.
func SetupRouter(ctx context.Context, cfg *config.Config, orch *app.Orchestrator, issuer *token.Issuer) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(cors.New(corsConfig(cfg.HTTP.CORSOrigins)))

	h := &handlers{
		orch:   orch,
		issuer: issuer,
		ice:    iceServers(cfg.HTTP.ICEServers),
		debug:  cfg.Mode == "debug",
	}

	r.GET("/", h.root)
	r.GET("/healthz", h.health)
	r.POST("/getToken", h.getToken)
	r.GET("/api/ice", h.iceServers)

	ctrl := signal.NewSignalWSController(orch, cfg.Signal, originChecker(cfg.HTTP.CORSOrigins))
	ws := func(c *gin.Context) {
		log.Debug().Str("module", "adapters.http").Str("remote", c.ClientIP()).Msg("ws signal endpoint hit")
		ctrl.HandleSignal(ctx, c)
	}
	r.GET("/ws", ws)
	r.GET("/socket", ws)

	log.Info().Str("module", "adapters.http").Strs("cors", cfg.HTTP.CORSOrigins).Msg("router setup")
	return r
}

func allowsAll(origins []string) bool {
	return len(origins) == 0 || slices.Contains(origins, "*")
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if allowsAll(origins) {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
		c.AllowCredentials = true
	}
	return c
}

// originChecker applies the CORS origin list to WebSocket upgrades. Requests
// without an Origin header (non-browser clients) are accepted.
func originChecker(origins []string) func(*http.Request) bool {
	if allowsAll(origins) {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(origins, origin)
	}
}
