package rest

import (
	"context"
	"encoding/json"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/AzielCF/chatbot-platform/domain"
	"github.com/AzielCF/chatbot-platform/pkg/crypto"
	"github.com/AzielCF/chatbot-platform/platform"
)

var (
	userIDPattern  = regexp.MustCompile(`^[A-Za-z0-9_-]{1,30}$`)
	phonePattern   = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)
	twoLetterUpper = regexp.MustCompile(`^[A-Z]{2}$`)
	twoLetterLower = regexp.MustCompile(`^[a-z]{2}$`)
)

// User handles owner-credential CRUD. The gateway admin-gates these
// routes; the one invariant enforced here regardless of caller is that
// the last admin can be neither demoted nor deleted.
type User struct {
	St  *platform.State
	Log *logrus.Logger
}

func InitRestUser(app fiber.Router, st *platform.State, log *logrus.Logger) User {
	rest := User{St: st, Log: log}
	app.Get("/users", rest.List)
	app.Get("/users/status", rest.StatusList)
	app.Post("/users", rest.Create)
	app.Get("/users/:id", rest.Get)
	app.Put("/users/:id", rest.Put)
	app.Patch("/users/:id", rest.Patch)
	app.Delete("/users/:id", rest.Delete)
	return rest
}

// userRequest is the write shape: credentials plus an optional plaintext
// password that is hashed before storage and never echoed back.
type userRequest struct {
	domain.Credentials
	Password string `json:"password,omitempty"`
}

func (r userRequest) Validate(requirePassword bool) error {
	passwordRules := []validation.Rule{validation.Length(8, 256)}
	if requirePassword {
		passwordRules = append([]validation.Rule{validation.Required}, passwordRules...)
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.UserID, validation.Required, validation.Match(userIDPattern)),
		validation.Field(&r.Password, passwordRules...),
		validation.Field(&r.Role, validation.Required, validation.In(domain.RoleAdmin, domain.RoleUser)),
		validation.Field(&r.Email, is.Email),
		validation.Field(&r.Phone, validation.Match(phonePattern)),
		validation.Field(&r.Country, validation.Match(twoLetterUpper)),
		validation.Field(&r.Language, validation.Match(twoLetterLower)),
	)
}

func (controller *User) List(c *fiber.Ctx) error {
	ids := splitIDs(c.Query("user_ids"))

	creds, err := controller.St.Creds.ListAll(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	if ids != nil {
		keep := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			keep[id] = struct{}{}
		}
		filtered := creds[:0]
		for _, cred := range creds {
			if _, found := keep[cred.UserID]; found {
				filtered = append(filtered, cred)
			}
		}
		creds = filtered
	}
	return ok(c, "Success fetch users", creds)
}

type userStatusResult struct {
	UserID      string  `json:"user_id"`
	Enabled     bool    `json:"enabled"`
	DollarsUsed float64 `json:"dollars_used"`
	OwnedBots   int     `json:"owned_bots"`
}

func (controller *User) StatusList(c *fiber.Ctx) error {
	ids := splitIDs(c.Query("user_ids"))
	keep := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		keep[id] = struct{}{}
	}

	creds, err := controller.St.Creds.ListAll(c.UserContext())
	if err != nil {
		return fail(c, err)
	}

	results := make([]userStatusResult, 0, len(creds))
	for _, cred := range creds {
		if ids != nil {
			if _, found := keep[cred.UserID]; !found {
				continue
			}
		}
		results = append(results, userStatusResult{
			UserID:      cred.UserID,
			Enabled:     cred.LLMQuota.Enabled,
			DollarsUsed: cred.LLMQuota.DollarsUsed,
			OwnedBots:   len(cred.OwnedBots),
		})
	}
	return ok(c, "Success fetch user statuses", results)
}

func (controller *User) Get(c *fiber.Ctx) error {
	cred, err := controller.St.Creds.GetByUserID(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	if cred == nil {
		return notFound(c, "user not found")
	}
	return ok(c, "Success fetch user", cred)
}

func (controller *User) Create(c *fiber.Ctx) error {
	ctx := c.UserContext()
	var req userRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err.Error())
	}
	if err := req.Validate(true); err != nil {
		return badRequest(c, err.Error())
	}

	existing, err := controller.St.Creds.GetByUserID(ctx, req.UserID)
	if err != nil {
		return fail(c, err)
	}
	if existing != nil {
		return c.Status(409).JSON(fiber.Map{"error": "user already exists"})
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		return fail(c, err)
	}
	cred := req.Credentials
	cred.PasswordHash = hash
	cred.CreatedAt = time.Now().UTC()
	if cred.LLMQuota.LastReset.IsZero() {
		cred.LLMQuota.LastReset = cred.CreatedAt
	}

	if err := controller.St.Creds.Create(ctx, cred); err != nil {
		return fail(c, err)
	}
	controller.audit(ctx, domain.AuditUserCreated, cred.UserID)
	return ok(c, "Success create user", cred)
}

func (controller *User) Put(c *fiber.Ctx) error {
	return controller.save(c, false)
}

func (controller *User) Patch(c *fiber.Ctx) error {
	return controller.save(c, true)
}

func (controller *User) save(c *fiber.Ctx, merge bool) error {
	ctx := c.UserContext()
	userID := c.Params("id")

	existing, err := controller.St.Creds.GetByUserID(ctx, userID)
	if err != nil {
		return fail(c, err)
	}
	if existing == nil {
		return notFound(c, "user not found")
	}

	req := userRequest{}
	if merge {
		req.Credentials = *existing
	}
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return badRequest(c, err.Error())
	}
	req.UserID = userID
	if err := req.Validate(false); err != nil {
		return badRequest(c, err.Error())
	}

	if existing.Role == domain.RoleAdmin && req.Role != domain.RoleAdmin {
		admins, err := controller.St.Creds.CountAdmins(ctx)
		if err != nil {
			return fail(c, err)
		}
		if admins <= 1 {
			return c.Status(409).JSON(fiber.Map{"error": "cannot demote the last admin"})
		}
	}

	cred := req.Credentials
	cred.PasswordHash = existing.PasswordHash
	cred.CreatedAt = existing.CreatedAt
	if !merge {
		// A full replace still never clears ownership implicitly; bots
		// are detached through bot deletion, not user edits.
		cred.OwnedBots = existing.OwnedBots
	}
	if req.Password != "" {
		hash, err := crypto.HashPassword(req.Password)
		if err != nil {
			return fail(c, err)
		}
		cred.PasswordHash = hash
		controller.audit(ctx, domain.AuditPasswordReset, userID)
	}

	if err := controller.St.Creds.Update(ctx, cred); err != nil {
		return fail(c, err)
	}
	controller.audit(ctx, domain.AuditUserUpdated, userID)
	return ok(c, "Success update user", cred)
}

func (controller *User) Delete(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Params("id")

	existing, err := controller.St.Creds.GetByUserID(ctx, userID)
	if err != nil {
		return fail(c, err)
	}
	if existing == nil {
		return notFound(c, "user not found")
	}
	if existing.Role == domain.RoleAdmin {
		admins, err := controller.St.Creds.CountAdmins(ctx)
		if err != nil {
			return fail(c, err)
		}
		if admins <= 1 {
			return c.Status(409).JSON(fiber.Map{"error": "cannot delete the last admin"})
		}
	}

	for _, botID := range existing.OwnedBots {
		if err := controller.St.Lifecycle.Delete(ctx, botID); err != nil && controller.Log != nil {
			controller.Log.WithError(err).WithField("bot_id", botID).Warn("rest: failed to delete owned bot with user")
		}
	}
	if err := controller.St.Creds.Delete(ctx, userID); err != nil {
		return fail(c, err)
	}
	controller.audit(ctx, domain.AuditUserDeleted, userID)
	return ok(c, "Success delete user", nil)
}

func (controller *User) audit(ctx context.Context, eventType domain.AuditEventType, userID string) {
	entry := domain.AuditLog{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
	}
	if err := controller.St.Audit.Record(ctx, entry); err != nil && controller.Log != nil {
		controller.Log.WithError(err).Warn("rest: failed to write audit log")
	}
}
