package gateway

import (
	"context"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/AzielCF/chatbot-platform/domain"
	"github.com/AzielCF/chatbot-platform/pkg/crypto"
)

type loginRequest struct {
	UserID   string `json:"user_id"`
	Password string `json:"password"`
}

func (r loginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.UserID, validation.Required),
		validation.Field(&r.Password, validation.Required, validation.Length(1, 256)),
	)
}

// Login authenticates an owner and issues a session. Rate limit is
// enforced by the per-IP limiter registered on the login route in
// buildRouter, so this handler starts at the lockout check.
func (g *Gateway) Login(c *fiber.Ctx) error {
	ctx := c.UserContext()
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
	}
	if err := req.Validate(); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	ip := c.IP()
	ua := c.Get("User-Agent")

	locked, retryAfter := g.isLocked(ctx, req.UserID)
	if locked {
		c.Set("Retry-After", strconv.Itoa(retryAfter))
		return c.Status(fiber.StatusLocked).JSON(fiber.Map{
			"error":       "account locked",
			"retry_after": retryAfter,
		})
	}

	cred, err := g.creds.GetByUserID(ctx, req.UserID)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "lookup failed")
	}
	if cred == nil || !crypto.CheckPassword(cred.PasswordHash, req.Password) {
		g.recordFailedLogin(ctx, req.UserID, ip, ua)
		g.recordAudit(ctx, domain.AuditLoginFailed, req.UserID, ip, ua, nil)
		return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
	}

	g.clearLockout(ctx, req.UserID)

	now := time.Now().UTC()
	sess := domain.Session{
		SessionID:    uuid.NewString(),
		UserID:       cred.UserID,
		Role:         cred.Role,
		OwnedBots:    append([]string(nil), cred.OwnedBots...),
		CreatedAt:    now,
		LastAccessed: now,
		ExpiresAt:    now.Add(g.cfg.SessionTTL),
		IP:           ip,
		UserAgent:    ua,
	}
	if err := g.sessions.Create(ctx, sess); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to create session")
	}
	if err := g.cache.SetSession(ctx, sess); err != nil && g.log != nil {
		g.log.WithError(err).Warn("gateway: failed to cache new session")
	}

	g.recordAudit(ctx, domain.AuditLoginSuccess, req.UserID, ip, ua, nil)
	g.setSessionCookie(c, sess)

	return c.JSON(fiber.Map{"user_id": sess.UserID, "role": sess.Role})
}

// Logout is idempotent: it always returns 200, clearing the cookie
// whether or not a session was found.
func (g *Gateway) Logout(c *fiber.Ctx) error {
	ctx := c.UserContext()
	sessionID := c.Cookies(g.cfg.SessionCookieName)
	if sessionID != "" {
		if sess, err := g.sessions.GetByID(ctx, sessionID); err == nil && sess != nil {
			_ = g.sessions.Invalidate(ctx, *sess, "logout")
			g.cache.DeleteSession(ctx, sessionID)
			g.recordAudit(ctx, domain.AuditLogout, sess.UserID, c.IP(), c.Get("User-Agent"), nil)
		}
	}
	g.clearSessionCookie(c)
	return c.JSON(fiber.Map{"ok": true})
}

// Validate only runs behind AuthMiddleware, so reaching here already
// proves the session is valid.
func (g *Gateway) Validate(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"valid": true})
}

func (g *Gateway) setSessionCookie(c *fiber.Ctx, sess domain.Session) {
	c.Cookie(&fiber.Cookie{
		Name:     g.cfg.SessionCookieName,
		Value:    sess.SessionID,
		Expires:  sess.ExpiresAt,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (g *Gateway) clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     g.cfg.SessionCookieName,
		Value:    "",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// isLocked checks the lockout cache, falling back to the DB on a miss.
func (g *Gateway) isLocked(ctx context.Context, userID string) (bool, int) {
	if l, ok := g.cache.GetLockout(ctx, userID); ok {
		return lockoutActive(l)
	}
	l, err := g.lockouts.Get(ctx, userID)
	if err != nil || l == nil {
		return false, 0
	}
	return lockoutActive(*l)
}

func lockoutActive(l domain.AccountLockout) (bool, int) {
	if l.LockedUntil == nil {
		return false, 0
	}
	remaining := time.Until(*l.LockedUntil)
	if remaining <= 0 {
		return false, 0
	}
	return true, int(remaining.Seconds()) + 1
}

// recordFailedLogin implements the 10-fails-in-10-min -> 5-min-lock
// counter, resetting the window when the last attempt is
// older than the configured window.
func (g *Gateway) recordFailedLogin(ctx context.Context, userID, ip, ua string) {
	now := time.Now().UTC()
	l, err := g.lockouts.Get(ctx, userID)
	if err != nil {
		return
	}
	var cur domain.AccountLockout
	if l != nil && now.Sub(l.LastAttempt) <= g.cfg.LockoutWindow {
		cur = *l
	} else {
		cur = domain.AccountLockout{UserID: userID}
	}
	cur.FailedAttempts++
	cur.LastAttempt = now

	newlyLocked := false
	if cur.FailedAttempts >= g.cfg.LockoutThreshold {
		until := now.Add(g.cfg.LockoutDuration)
		cur.LockedUntil = &until
		newlyLocked = true
	}

	if err := g.lockouts.Upsert(ctx, cur); err != nil {
		return
	}
	_ = g.cache.SetLockout(ctx, cur)

	if newlyLocked {
		g.recordAudit(ctx, domain.AuditAccountLocked, userID, ip, ua, nil)
	}
}

func (g *Gateway) clearLockout(ctx context.Context, userID string) {
	_ = g.lockouts.Clear(ctx, userID)
	g.cache.DeleteLockout(ctx, userID)
}

func (g *Gateway) recordAudit(ctx context.Context, eventType domain.AuditEventType, userID, ip, ua string, details map[string]any) {
	entry := domain.AuditLog{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		IP:        ip,
		UserAgent: ua,
		Details:   details,
	}
	if err := g.audit.Record(ctx, entry); err != nil && g.log != nil {
		g.log.WithError(err).Warn("gateway: failed to write audit log")
	}
}
