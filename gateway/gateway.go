// Package gateway implements the Gateway Auth & Permission Boundary
// : cookie sessions, rate limiting, account lockout, audit
// logging, path-based permission checks, and the reverse proxy into the
// backend's internal API. Sessions are server-side: a cookie carries an
// opaque id resolved against Mongo with a Valkey cache in front.
package gateway

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"github.com/AzielCF/chatbot-platform/appconfig"
	"github.com/AzielCF/chatbot-platform/repository"
)

// Gateway is the composition root for the public HTTP surface.
type Gateway struct {
	cfg   *appconfig.Config
	log   *logrus.Logger
	creds *repository.CredentialsRepository

	sessions *repository.SessionRepository
	lockouts *repository.LockoutRepository
	audit    *repository.AuditRepository
	cache    *Cache

	app *fiber.App
}

func New(
	cfg *appconfig.Config,
	log *logrus.Logger,
	creds *repository.CredentialsRepository,
	sessions *repository.SessionRepository,
	lockouts *repository.LockoutRepository,
	auditRepo *repository.AuditRepository,
	cache *Cache,
) *Gateway {
	g := &Gateway{
		cfg:      cfg,
		log:      log,
		creds:    creds,
		sessions: sessions,
		lockouts: lockouts,
		audit:    auditRepo,
		cache:    cache,
	}
	g.app = g.buildRouter()
	return g
}

func (g *Gateway) buildRouter() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             int(g.cfg.MaxBodyBytes),
	})

	app.Use(recover.New())
	if g.log != nil && g.log.IsLevelEnabled(logrus.DebugLevel) {
		app.Use(logger.New())
	}

	api := app.Group("/api/external")

	// AuthMiddleware runs for every request under this group, including
	// the login route — it short-circuits to Next() for whitelisted
	// paths.
	api.Use(g.AuthMiddleware)
	api.Use(g.BodyLimitMiddleware)

	loginLimiter := limiter.New(limiter.Config{
		Max:          g.cfg.RateLimitPerMinute,
		Expiration:   time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string { return c.IP() },
	})
	api.Post("/auth/login", loginLimiter, g.Login)
	api.Post("/auth/logout", g.Logout)
	api.Get("/auth/validate", g.Validate)

	api.All("/*", g.Proxy)

	return app
}

// Listen blocks, serving the gateway on cfg.GatewayPort.
func (g *Gateway) Listen() error {
	return g.app.Listen(":" + g.cfg.GatewayPort)
}

// Shutdown gracefully stops the HTTP server.
func (g *Gateway) Shutdown(ctx context.Context) error {
	return g.app.ShutdownWithContext(ctx)
}

// RunCleanupSweeps runs the two background janitors: a 24h
// stale-session purge and an hourly expired-lockout purge.
// It blocks; callers run it in its own goroutine.
func (g *Gateway) RunCleanupSweeps(ctx context.Context) {
	sessionTicker := time.NewTicker(24 * time.Hour)
	lockoutTicker := time.NewTicker(time.Hour)
	defer sessionTicker.Stop()
	defer lockoutTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sessionTicker.C:
			cutoff := time.Now().UTC().AddDate(0, 0, -30)
			if _, err := g.sessions.PurgeStaleOlderThan(ctx, cutoff); err != nil && g.log != nil {
				g.log.WithError(err).Warn("gateway: stale session purge failed")
			}
		case <-lockoutTicker.C:
			if _, err := g.lockouts.PurgeExpired(ctx, time.Now().UTC()); err != nil && g.log != nil {
				g.log.WithError(err).Warn("gateway: expired lockout purge failed")
			}
		}
	}
}
