package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"cortex-server/internal/auth"
	"cortex-server/internal/bootstrap"
	"cortex-server/internal/config"
	"cortex-server/internal/events"
	"cortex-server/internal/handler"
	"cortex-server/internal/hub"
	"cortex-server/internal/middleware"
	"cortex-server/internal/store"
	"cortex-server/internal/user"
	"github.com/gin-gonic/gin"
)

type Deps struct {
	Config      config.Config
	Store       store.Store
	Hub         *hub.Hub
	TokenConfig auth.TokenConfig
	Logger      *slog.Logger
	// Limiter throttles login and socket upgrades per client IP. The
	// caller owns it so it can be stopped on shutdown.
	Limiter *middleware.RateLimiter
}

// NewHub builds the hub with token verification and the auth and room
// event handlers registered.
func NewHub(st store.Store, tokens auth.TokenConfig, logger *slog.Logger) *hub.Hub {
	verifier := auth.Verifier{Config: tokens}
	h := hub.New(hub.Options{Logger: logger, Verifier: verifier})
	events.Register(events.Deps{Hub: h, Users: st, Verifier: verifier, Logger: logger})
	return h
}

// Modules returns the route modules the bootstrap registry can mount.
func Modules(users *handler.UserHandler, tokens auth.TokenConfig, logger *slog.Logger) *bootstrap.Registry {
	reg := bootstrap.NewRegistry(logger)
	reg.Register("users", func(g *gin.RouterGroup) {
		g.POST("/", users.Create)
		g.GET("/me", middleware.RequireAuth(tokens), users.Me)
		g.GET("/:id", middleware.RequireAuth(tokens), users.Get)
	})
	return reg
}

func NewRouter(ctx context.Context, deps Deps) (*gin.Engine, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	limiter := deps.Limiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(30, time.Minute)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	var notifier user.Notifier
	if deps.Hub != nil {
		notifier = deps.Hub
	}
	users := user.NewService(deps.Store, notifier, logger)
	userHandler := &handler.UserHandler{Users: users, Logger: logger}
	authHandler := &handler.AuthHandler{Users: users, TokenConfig: deps.TokenConfig, Logger: logger}
	hubHandler := &handler.HubHandler{Hub: deps.Hub}

	r.POST("/v1/auth/login", middleware.RateLimitMiddleware(limiter), authHandler.Login)

	protected := r.Group("/v1")
	protected.Use(middleware.RequireAuth(deps.TokenConfig))
	protected.GET("/hub/stats", hubHandler.Stats)

	origins := handler.NewOriginPolicy(deps.Config.AllowedOrigins, logger)
	wsHandler := handler.NewWebSocketHandler(deps.Hub, origins, deps.Config.WSMaxMessageBytes, logger)
	r.GET("/ws", middleware.RateLimitMiddleware(limiter), wsHandler.Serve)

	if _, err := Modules(userHandler, deps.TokenConfig, logger).Load(ctx, deps.Store, r); err != nil {
		return nil, err
	}
	return r, nil
}
