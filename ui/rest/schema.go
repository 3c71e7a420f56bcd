package rest

import "github.com/gofiber/fiber/v2"

// Schema serves the JSON shape UIs use to render configuration forms.
type Schema struct{}

func InitRestSchema(app fiber.Router) Schema {
	rest := Schema{}
	app.Get("/schemas/bot", rest.Bot)
	app.Get("/schemas/llm_config", rest.LLMConfig)
	return rest
}

// llmConfigSchema carries the api_key_source branching: selecting
// "environment" drops the api_key field entirely, selecting "explicit"
// requires it.
func llmConfigSchema() fiber.Map {
	base := fiber.Map{
		"type": "object",
		"properties": fiber.Map{
			"provider_name":    fiber.Map{"type": "string"},
			"model":            fiber.Map{"type": "string"},
			"temperature":      fiber.Map{"type": "number", "minimum": 0, "maximum": 2},
			"reasoning_effort": fiber.Map{"type": "string", "enum": []string{"low", "medium", "high"}},
			"api_key_source":   fiber.Map{"type": "string", "enum": []string{"environment", "explicit"}},
			"api_key":          fiber.Map{"type": "string"},
		},
		"required": []string{"provider_name", "model", "api_key_source"},
		"oneOf": []fiber.Map{
			{
				"properties": fiber.Map{"api_key_source": fiber.Map{"const": "environment"}},
				"not":        fiber.Map{"required": []string{"api_key"}},
			},
			{
				"properties": fiber.Map{"api_key_source": fiber.Map{"const": "explicit"}},
				"required":   []string{"api_key"},
			},
		},
	}
	return base
}

func (Schema) LLMConfig(c *fiber.Ctx) error {
	return c.JSON(llmConfigSchema())
}

func (Schema) Bot(c *fiber.Ctx) error {
	queueBounds := fiber.Map{
		"type": "object",
		"properties": fiber.Map{
			"max_messages":                  fiber.Map{"type": "integer", "minimum": 0},
			"max_characters":                fiber.Map{"type": "integer", "minimum": 0},
			"max_days":                      fiber.Map{"type": "integer", "minimum": 0},
			"max_characters_single_message": fiber.Map{"type": "integer", "minimum": 0},
		},
	}

	return c.JSON(fiber.Map{
		"type": "object",
		"properties": fiber.Map{
			"bot_id":        fiber.Map{"type": "string", "pattern": "^[A-Za-z0-9_-]{1,30}$"},
			"owner_user_id": fiber.Map{"type": "string"},
			"chat_provider_config": fiber.Map{
				"type": "object",
				"properties": fiber.Map{
					"provider_name": fiber.Map{"type": "string"},
					"bridge_url":    fiber.Map{"type": "string"},
				},
			},
			"llm_configs": fiber.Map{
				"type": "object",
				"properties": fiber.Map{
					"high": llmConfigSchema(),
					"low":  llmConfigSchema(),
				},
			},
			"queue_config":   queueBounds,
			"context_config": queueBounds,
			"features": fiber.Map{
				"type": "object",
				"properties": fiber.Map{
					"automatic_bot_reply": fiber.Map{
						"type": "object",
						"properties": fiber.Map{
							"enabled":                    fiber.Map{"type": "boolean"},
							"respond_to_whitelist":       fiber.Map{"type": "array", "items": fiber.Map{"type": "string"}},
							"respond_to_whitelist_group": fiber.Map{"type": "array", "items": fiber.Map{"type": "string"}},
							"chat_system_prompt":         fiber.Map{"type": "string"},
						},
					},
					"periodic_group_tracking": fiber.Map{
						"type": "object",
						"properties": fiber.Map{
							"enabled": fiber.Map{"type": "boolean"},
							"groups": fiber.Map{
								"type": "array",
								"items": fiber.Map{
									"type": "object",
									"properties": fiber.Map{
										"group_identifier":       fiber.Map{"type": "string"},
										"display_name":           fiber.Map{"type": "string"},
										"cron_tracking_schedule": fiber.Map{"type": "string"},
									},
								},
							},
						},
					},
				},
			},
			"profile": fiber.Map{
				"type": "object",
				"properties": fiber.Map{
					"timezone":      fiber.Map{"type": "string"},
					"language_code": fiber.Map{"type": "string"},
				},
			},
			"activated": fiber.Map{"type": "boolean"},
		},
		"required": []string{"bot_id", "owner_user_id"},
	})
}
