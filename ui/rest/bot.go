package rest

import (
	"encoding/json"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/AzielCF/chatbot-platform/domain"
	"github.com/AzielCF/chatbot-platform/platform"
)

var botIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,30}$`)

// Bot handles bot configuration CRUD, lifecycle actions, and live
// status queries.
type Bot struct {
	St  *platform.State
	Log *logrus.Logger
}

func InitRestBot(app fiber.Router, st *platform.State, log *logrus.Logger) Bot {
	rest := Bot{St: st, Log: log}
	app.Get("/bots", rest.List)
	app.Get("/bots/status", rest.StatusList)
	app.Get("/bots/:id", rest.Get)
	app.Get("/bots/:id/info", rest.Get)
	app.Put("/bots/:id", rest.Put)
	app.Patch("/bots/:id", rest.Patch)
	app.Delete("/bots/:id", rest.Delete)
	app.Post("/bots/:id/actions/:action", rest.Action)
	app.Get("/bots/:id/status", rest.Status)
	return rest
}

func validateBot(bot domain.Bot) error {
	return validation.ValidateStruct(&bot,
		validation.Field(&bot.BotID, validation.Required, validation.Match(botIDPattern)),
		validation.Field(&bot.OwnerUserID, validation.Required),
		validation.Field(&bot.QueueConfig, validation.By(func(any) error {
			q := bot.QueueConfig
			if q.MaxMessages < 0 || q.MaxCharacters < 0 || q.MaxDays < 0 || q.MaxCharactersSingleMessage < 0 {
				return validation.NewError("queue_config", "queue bounds must be non-negative")
			}
			return nil
		})),
	)
}

func (controller *Bot) List(c *fiber.Ctx) error {
	ids := splitIDs(c.Query("bot_ids"))

	bots, err := controller.St.Bots.ListAll(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	if ids != nil {
		keep := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			keep[id] = struct{}{}
		}
		filtered := bots[:0]
		for _, b := range bots {
			if _, ok := keep[b.BotID]; ok {
				filtered = append(filtered, b)
			}
		}
		bots = filtered
	}
	return ok(c, "Success fetch bots", bots)
}

type botStatusResult struct {
	BotID  string           `json:"bot_id"`
	Status domain.BotStatus `json:"status"`
}

func (controller *Bot) StatusList(c *fiber.Ctx) error {
	ids := splitIDs(c.Query("bot_ids"))

	bots, err := controller.St.Bots.ListAll(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	keep := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		keep[id] = struct{}{}
	}

	results := make([]botStatusResult, 0, len(bots))
	for _, b := range bots {
		if ids != nil {
			if _, found := keep[b.BotID]; !found {
				continue
			}
		}
		status := domain.StatusDisconnected
		if provider, running := controller.St.Lifecycle.Provider(b.BotID); running {
			status = provider.GetStatus()
		}
		results = append(results, botStatusResult{BotID: b.BotID, Status: status})
	}
	return ok(c, "Success fetch bot statuses", results)
}

func (controller *Bot) Get(c *fiber.Ctx) error {
	bot, err := controller.St.Bots.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	if bot == nil {
		return notFound(c, "bot not found")
	}
	return ok(c, "Success fetch bot", bot)
}

// Put creates or replaces a bot configuration. Ownership claiming is
// the gateway's job; this handler enforces shape, per-owner bot caps,
// and fills provider/LLM defaults from the environment.
func (controller *Bot) Put(c *fiber.Ctx) error {
	ctx := c.UserContext()
	botID := c.Params("id")
	if !botIDPattern.MatchString(botID) {
		return badRequest(c, "bot_id must be 1-30 chars of [A-Za-z0-9_-]")
	}

	var bot domain.Bot
	if err := c.BodyParser(&bot); err != nil {
		return badRequest(c, err.Error())
	}
	bot.BotID = botID
	controller.applyDefaults(&bot)

	if err := validateBot(bot); err != nil {
		return badRequest(c, err.Error())
	}

	existing, err := controller.St.Bots.GetByID(ctx, botID)
	if err != nil {
		return fail(c, err)
	}

	owner, err := controller.St.Creds.GetByUserID(ctx, bot.OwnerUserID)
	if err != nil {
		return fail(c, err)
	}
	if owner == nil {
		return badRequest(c, "owner does not exist")
	}
	if existing == nil && owner.MaxBots > 0 && len(owner.OwnedBots) >= owner.MaxBots {
		return c.Status(409).JSON(fiber.Map{"error": "bot limit reached"})
	}
	if enabled := countEnabledFeatures(bot.Features); owner.MaxEnabledFeatures > 0 && enabled > owner.MaxEnabledFeatures {
		return badRequest(c, "enabled feature limit exceeded")
	}

	now := time.Now().UTC()
	if existing != nil {
		bot.CreatedAt = existing.CreatedAt
	} else {
		bot.CreatedAt = now
	}
	bot.UpdatedAt = now

	if err := controller.St.Bots.Upsert(ctx, bot); err != nil {
		return fail(c, err)
	}
	return ok(c, "Success save bot", bot)
}

// Patch merges the request body over the stored configuration: fields
// absent from the body keep their stored values.
func (controller *Bot) Patch(c *fiber.Ctx) error {
	ctx := c.UserContext()
	botID := c.Params("id")

	bot, err := controller.St.Bots.GetByID(ctx, botID)
	if err != nil {
		return fail(c, err)
	}
	if bot == nil {
		return notFound(c, "bot not found")
	}

	if err := json.Unmarshal(c.Body(), bot); err != nil {
		return badRequest(c, err.Error())
	}
	bot.BotID = botID
	bot.UpdatedAt = time.Now().UTC()

	if err := validateBot(*bot); err != nil {
		return badRequest(c, err.Error())
	}
	if err := controller.St.Bots.Upsert(ctx, *bot); err != nil {
		return fail(c, err)
	}
	return ok(c, "Success update bot", bot)
}

func (controller *Bot) Delete(c *fiber.Ctx) error {
	if err := controller.St.Lifecycle.Delete(c.UserContext(), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return ok(c, "Success delete bot", nil)
}

func (controller *Bot) Action(c *fiber.Ctx) error {
	ctx := c.UserContext()
	botID := c.Params("id")

	var err error
	switch c.Params("action") {
	case "link":
		err = controller.St.Lifecycle.Link(ctx, botID)
	case "unlink":
		err = controller.St.Lifecycle.Unlink(ctx, botID)
	case "reload":
		err = controller.St.Lifecycle.Reload(ctx, botID)
	default:
		return badRequest(c, "unknown action")
	}
	if err != nil {
		return fail(c, err)
	}
	return ok(c, "Success "+c.Params("action")+" bot", nil)
}

type botLiveStatus struct {
	Status domain.BotStatus `json:"status"`
	QR     string           `json:"qr,omitempty"`
}

func (controller *Bot) Status(c *fiber.Ctx) error {
	botID := c.Params("id")
	provider, running := controller.St.Lifecycle.Provider(botID)
	if !running {
		return ok(c, "Success fetch bot status", botLiveStatus{Status: domain.StatusDisconnected})
	}
	return ok(c, "Success fetch bot status", botLiveStatus{Status: provider.GetStatus(), QR: provider.QR()})
}

func (controller *Bot) applyDefaults(bot *domain.Bot) {
	cfg := controller.St.Cfg
	if bot.ChatProviderConfig.BridgeURL == "" {
		bot.ChatProviderConfig.BridgeURL = cfg.WhatsAppServerURL
	}
	if bot.ChatProviderConfig.ProviderName == "" {
		bot.ChatProviderConfig.ProviderName = "whatsapp"
	}
	applyLLMDefaults(&bot.LLMConfigs.High, cfg.DefaultLLM.Provider, cfg.DefaultLLM.ModelHigh, cfg.DefaultLLM.Temperature, cfg.DefaultLLM.ReasoningEffort, cfg.DefaultLLM.APIKeySource)
	applyLLMDefaults(&bot.LLMConfigs.Low, cfg.DefaultLLM.Provider, cfg.DefaultLLM.ModelLow, cfg.DefaultLLM.Temperature, cfg.DefaultLLM.ReasoningEffort, cfg.DefaultLLM.APIKeySource)
}

func applyLLMDefaults(llm *domain.LLMProviderConfig, provider, model string, temperature float64, effort, keySource string) {
	if llm.ProviderName == "" {
		llm.ProviderName = provider
	}
	if llm.Model == "" {
		llm.Model = model
	}
	if llm.Temperature == 0 {
		llm.Temperature = temperature
	}
	if llm.ReasoningEffort == "" {
		llm.ReasoningEffort = effort
	}
	if llm.APIKeySource == "" {
		llm.APIKeySource = domain.APIKeySource(keySource)
	}
}

func countEnabledFeatures(f domain.Features) int {
	n := 0
	if f.AutomaticBotReply.Enabled {
		n++
	}
	if f.PeriodicGroupTracking.Enabled {
		n++
	}
	return n
}
