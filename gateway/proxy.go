package gateway

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/AzielCF/chatbot-platform/domain"
)

const backendTimeout = 30 * time.Second

// listEndpoints get an owner-scoped id filter injected for non-admins.
var listEndpoints = map[string]string{
	"/bots":         "bot_ids",
	"/bots/status":  "bot_ids",
	"/users":        "user_ids",
	"/users/status": "user_ids",
}

// Proxy forwards an authorized request to the backend's internal API,
// rewriting /api/external -> /api/internal, scoping list endpoints by
// ownership, and claiming ownership of a bot resource on a successful
// non-admin PUT.
func (g *Gateway) Proxy(c *fiber.Ctx) error {
	sess, _ := sessionFromContext(c)
	path, _ := c.Locals("gateway_path").(string)
	claimBotID, _ := c.Locals("gateway_claim_bot_id").(string)

	query := string(c.Request().URI().QueryString())
	if idsParam, ok := listEndpoints[path]; ok && sess.Role != domain.RoleAdmin {
		ids := sess.OwnedBots
		if idsParam == "user_ids" {
			ids = []string{sess.UserID}
		}
		if len(ids) == 0 {
			return c.JSON([]any{})
		}
		query = appendQueryParam(query, idsParam, strings.Join(ids, ","))
	}

	backendURL := g.cfg.BackendURL + "/api/internal" + path
	if query != "" {
		backendURL += "?" + query
	}

	req, err := http.NewRequestWithContext(c.UserContext(), c.Method(), backendURL, bytes.NewReader(c.Body()))
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, "failed to build backend request")
	}
	c.Request().Header.VisitAll(func(k, v []byte) {
		req.Header.Add(string(k), string(v))
	})

	client := &http.Client{Timeout: backendTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, "backend unreachable")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, "failed to read backend response")
	}

	if claimBotID != "" && c.Method() == fiber.MethodPut && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		g.claimBotOwnership(c.UserContext(), sess, claimBotID)
	}

	for k, vs := range resp.Header {
		for _, v := range vs {
			c.Set(k, v)
		}
	}
	return c.Status(resp.StatusCode).Send(body)
}

// claimBotOwnership records the caller as the bot's owner: an atomic
// $addToSet into the owner's persisted credentials and into the live
// session (both the DB-backed session doc and its cache entry).
func (g *Gateway) claimBotOwnership(ctx context.Context, sess domain.Session, botID string) {
	if err := g.creds.AddOwnedBot(ctx, sess.UserID, botID); err != nil && g.log != nil {
		g.log.WithError(err).Warn("gateway: failed to claim bot ownership in credentials")
	}
	if err := g.sessions.AddOwnedBot(ctx, sess.SessionID, botID); err != nil && g.log != nil {
		g.log.WithError(err).Warn("gateway: failed to claim bot ownership in session")
	}
	sess.OwnedBots = append(sess.OwnedBots, botID)
	_ = g.cache.SetSession(ctx, sess)
}

func appendQueryParam(query, key, value string) string {
	param := key + "=" + value
	if query == "" {
		return param
	}
	return query + "&" + param
}
