package gateway

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/AzielCF/chatbot-platform/domain"
)

// publicWhitelist bypasses session auth entirely.
var publicWhitelist = map[string]bool{
	"/":            true,
	"/auth/login":  true,
	"/auth/logout": true,
	"/docs":        true,
	"/health":      true,
}

func isWhitelisted(path string) bool {
	if publicWhitelist[path] {
		return true
	}
	return strings.HasPrefix(path, "/docs/")
}

// sessionContextKey is how the resolved session is threaded to the
// proxy handler through fiber's Locals.
const sessionContextKey = "gateway_session"

// AuthMiddleware runs on every request: whitelist bypass,
// session-cookie validation, last_accessed bump without extending
// expiry, and the permission check.
func (g *Gateway) AuthMiddleware(c *fiber.Ctx) error {
	path := strings.TrimPrefix(c.Path(), "/api/external")
	if path == "" {
		path = "/"
	}
	if isWhitelisted(path) {
		return c.Next()
	}

	sessionID := c.Cookies(g.cfg.SessionCookieName)
	if sessionID == "" {
		return g.unauthorized(c)
	}

	ctx := c.UserContext()
	sess, ok := g.cache.GetSession(ctx, sessionID)
	if !ok {
		dbSess, err := g.sessions.GetByID(ctx, sessionID)
		if err != nil || dbSess == nil {
			return g.unauthorized(c)
		}
		sess = *dbSess
	}

	if !sess.ExpiresAt.After(time.Now().UTC()) {
		g.cache.DeleteSession(ctx, sessionID)
		return g.unauthorized(c)
	}

	sess.LastAccessed = time.Now().UTC()
	if err := g.sessions.UpdateLastAccessed(ctx, sessionID, sess.LastAccessed); err != nil && g.log != nil {
		g.log.WithError(err).Warn("gateway: failed to update last_accessed")
	}
	_ = g.cache.SetSession(ctx, sess)

	d := checkPermission(path, c.Method(), sess)
	if !d.allowed {
		g.recordAudit(ctx, domain.AuditPermissionDenied, sess.UserID, c.IP(), c.Get("User-Agent"), map[string]any{"requested_path": c.Path()})
		return fiber.NewError(fiber.StatusForbidden, "permission denied")
	}

	c.Locals(sessionContextKey, sess)
	c.Locals("gateway_claim_bot_id", d.claimBotID)
	c.Locals("gateway_path", path)
	return c.Next()
}

func (g *Gateway) unauthorized(c *fiber.Ctx) error {
	g.clearSessionCookie(c)
	return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
}

// BodyLimitMiddleware rejects any POST/PUT/PATCH with a body larger
// than cfg.MaxBodyBytes.
func (g *Gateway) BodyLimitMiddleware(c *fiber.Ctx) error {
	switch c.Method() {
	case fiber.MethodPost, fiber.MethodPut, fiber.MethodPatch:
		if int64(len(c.Body())) > g.cfg.MaxBodyBytes {
			return fiber.NewError(fiber.StatusRequestEntityTooLarge, "request body too large")
		}
	}
	return c.Next()
}

// sessionFromContext is a small helper so proxy.go doesn't repeat the
// Locals type assertion.
func sessionFromContext(c *fiber.Ctx) (domain.Session, bool) {
	v := c.Locals(sessionContextKey)
	sess, ok := v.(domain.Session)
	return sess, ok
}
