// Package domain holds the record types shared across every subsystem:
// bots, owners, messages, sessions, tracked groups, delivery jobs, and
// the accounting/audit records the gateway and quota service produce.
package domain

import "time"

// Role is a portal user's privilege level.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// MessageSource classifies where an inbound/outbound message originated.
type MessageSource string

const (
	SourceUser         MessageSource = "user"
	SourceBot          MessageSource = "bot"
	SourceUserOutgoing MessageSource = "user_outgoing"
)

// LLMTier selects which of a bot's two LLM configurations to use.
type LLMTier string

const (
	TierHigh LLMTier = "high"
	TierLow  LLMTier = "low"
)

// APIKeySource tells the LLM factory whether to read a literal key or
// pull one from the process environment.
type APIKeySource string

const (
	APIKeyEnvironment APIKeySource = "environment"
	APIKeyExplicit    APIKeySource = "explicit"
)

// LLMProviderConfig configures a single LLM client the factory can build.
type LLMProviderConfig struct {
	ProviderName    string       `bson:"provider_name" json:"provider_name"`
	Model           string       `bson:"model" json:"model"`
	Temperature     float64      `bson:"temperature" json:"temperature"`
	ReasoningEffort string       `bson:"reasoning_effort,omitempty" json:"reasoning_effort,omitempty"`
	APIKeySource    APIKeySource `bson:"api_key_source" json:"api_key_source"`
	APIKey          string       `bson:"api_key,omitempty" json:"api_key,omitempty"`
}

// LLMConfigs bundles the two tiers every bot carries.
type LLMConfigs struct {
	High LLMProviderConfig `bson:"high" json:"high"`
	Low  LLMProviderConfig `bson:"low" json:"low"`
}

// QueueConfig bounds a correspondent queue.
type QueueConfig struct {
	MaxMessages                int `bson:"max_messages" json:"max_messages"`
	MaxCharacters              int `bson:"max_characters" json:"max_characters"`
	MaxDays                    int `bson:"max_days" json:"max_days"`
	MaxCharactersSingleMessage int `bson:"max_characters_single_message" json:"max_characters_single_message"`
}

// ContextConfig bounds the automatic-bot-reply chat history.
type ContextConfig struct {
	MaxMessages                int  `bson:"max_messages" json:"max_messages"`
	MaxCharacters              int  `bson:"max_characters" json:"max_characters"`
	MaxDays                    int  `bson:"max_days" json:"max_days"`
	MaxCharactersSingleMessage int  `bson:"max_characters_single_message" json:"max_characters_single_message"`
	SharedContext              bool `bson:"shared_context" json:"shared_context"`
}

// ChatProviderConfig addresses the external WhatsApp bridge session.
type ChatProviderConfig struct {
	ProviderName string `bson:"provider_name" json:"provider_name"`
	BridgeURL    string `bson:"bridge_url" json:"bridge_url"`
}

// UserProfile carries owner-facing metadata used to localize bot output.
type UserProfile struct {
	Timezone     string `bson:"timezone" json:"timezone"`
	LanguageCode string `bson:"language_code" json:"language_code"`
}

// AutomaticBotReplyFeature configures the automatic bot reply feature.
type AutomaticBotReplyFeature struct {
	Enabled                 bool     `bson:"enabled" json:"enabled"`
	RespondToWhitelist      []string `bson:"respond_to_whitelist" json:"respond_to_whitelist"`
	RespondToWhitelistGroup []string `bson:"respond_to_whitelist_group" json:"respond_to_whitelist_group"`
	ChatSystemPrompt        string   `bson:"chat_system_prompt" json:"chat_system_prompt"`
}

// PeriodicGroupTrackingEntry configures one tracked group.
type PeriodicGroupTrackingEntry struct {
	GroupIdentifier      string `bson:"group_identifier" json:"group_identifier"`
	DisplayName          string `bson:"display_name" json:"display_name"`
	CronTrackingSchedule string `bson:"cron_tracking_schedule" json:"cron_tracking_schedule"`
}

// PeriodicGroupTrackingFeature configures periodic group tracking.
type PeriodicGroupTrackingFeature struct {
	Enabled bool                         `bson:"enabled" json:"enabled"`
	Groups  []PeriodicGroupTrackingEntry `bson:"groups" json:"groups"`
}

// Features bundles every optional per-bot feature.
type Features struct {
	AutomaticBotReply     AutomaticBotReplyFeature     `bson:"automatic_bot_reply" json:"automatic_bot_reply"`
	PeriodicGroupTracking PeriodicGroupTrackingFeature `bson:"periodic_group_tracking" json:"periodic_group_tracking"`
}

// BotStatus is the chat provider's connection state machine.
type BotStatus string

const (
	StatusInitializing BotStatus = "initializing"
	StatusQRPending    BotStatus = "qr_pending"
	StatusConnected    BotStatus = "connected"
	StatusDisconnected BotStatus = "disconnected"
	StatusTerminated   BotStatus = "terminated"
)

// Bot is a tenant runtime.
type Bot struct {
	BotID              string             `bson:"bot_id" json:"bot_id"`
	OwnerUserID        string             `bson:"owner_user_id" json:"owner_user_id"`
	ChatProviderConfig ChatProviderConfig `bson:"chat_provider_config" json:"chat_provider_config"`
	LLMConfigs         LLMConfigs         `bson:"llm_configs" json:"llm_configs"`
	QueueConfig        QueueConfig        `bson:"queue_config" json:"queue_config"`
	ContextConfig      ContextConfig      `bson:"context_config" json:"context_config"`
	Features           Features           `bson:"features" json:"features"`
	Profile            UserProfile        `bson:"profile" json:"profile"`
	Activated          bool               `bson:"activated" json:"activated"`
	CreatedAt          time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt          time.Time          `bson:"updated_at" json:"updated_at"`
}

// LLMQuota tracks an owner's rolling spend cap.
type LLMQuota struct {
	DollarsPerPeriod float64   `bson:"dollars_per_period" json:"dollars_per_period"`
	DollarsUsed      float64   `bson:"dollars_used" json:"dollars_used"`
	LastReset        time.Time `bson:"last_reset" json:"last_reset"`
	ResetDays        int       `bson:"reset_days" json:"reset_days"`
	Enabled          bool      `bson:"enabled" json:"enabled"`
}

// Credentials is an owner's authentication + ownership record.
type Credentials struct {
	UserID             string    `bson:"user_id" json:"user_id"`
	PasswordHash       string    `bson:"password_hash" json:"-"`
	Role               Role      `bson:"role" json:"role"`
	OwnedBots          []string  `bson:"owned_bots" json:"owned_bots"`
	MaxBots            int       `bson:"max_bots" json:"max_bots"`
	MaxEnabledFeatures int       `bson:"max_enabled_features" json:"max_enabled_features"`
	LLMQuota           LLMQuota  `bson:"llm_quota" json:"llm_quota"`
	Name               string    `bson:"name" json:"name"`
	Email              string    `bson:"email" json:"email"`
	Phone              string    `bson:"phone" json:"phone"`
	GovID              string    `bson:"gov_id" json:"gov_id"`
	Country            string    `bson:"country" json:"country"`
	Language           string    `bson:"language" json:"language"`
	CreatedAt          time.Time `bson:"created_at" json:"created_at"`
}

// Sender identifies a message's author, direct or via group membership.
type Sender struct {
	Identifier           string   `bson:"identifier" json:"identifier"`
	DisplayName          string   `bson:"display_name" json:"display_name"`
	AlternateIdentifiers []string `bson:"alternate_identifiers" json:"alternate_identifiers"`
}

// Group identifies a chat group, when the message belongs to one.
type Group struct {
	Identifier           string   `bson:"identifier" json:"identifier"`
	DisplayName          string   `bson:"display_name" json:"display_name"`
	AlternateIdentifiers []string `bson:"alternate_identifiers" json:"alternate_identifiers"`
}

// Message is an immutable-once-enqueued chat event.
type Message struct {
	ID                int64         `bson:"id" json:"id"`
	Content           string        `bson:"content" json:"content"`
	Sender            Sender        `bson:"sender" json:"sender"`
	Source            MessageSource `bson:"source" json:"source"`
	AcceptedTimeMs    int64         `bson:"accepted_time_ms" json:"accepted_time_ms"`
	OriginatingTimeMs int64         `bson:"originating_time_ms,omitempty" json:"originating_time_ms,omitempty"`
	Group             *Group        `bson:"group,omitempty" json:"group,omitempty"`
	ProviderMessageID string        `bson:"provider_message_id,omitempty" json:"provider_message_id,omitempty"`
}

// TrackedGroup is per-(bot,group) metadata.
type TrackedGroup struct {
	BotID                string   `bson:"bot_id" json:"bot_id"`
	GroupID              string   `bson:"group_id" json:"group_id"`
	DisplayName          string   `bson:"display_name" json:"display_name"`
	AlternateIdentifiers []string `bson:"alternate_identifiers" json:"alternate_identifiers"`
	CronSchedule         string   `bson:"cron_schedule" json:"cron_schedule"`
}

// TrackedPeriod is one saved window of tracked group messages.
type TrackedPeriod struct {
	BotID        string    `bson:"bot_id" json:"bot_id"`
	GroupID      string    `bson:"group_id" json:"group_id"`
	PeriodStart  int64     `bson:"period_start_ms" json:"period_start_ms"`
	PeriodEnd    int64     `bson:"period_end_ms" json:"period_end_ms"`
	MessageCount int       `bson:"message_count" json:"message_count"`
	Messages     []Message `bson:"messages" json:"messages"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	DisplayName  string    `bson:"display_name" json:"display_name"`
}

// TrackingState stores the last successful run per (bot,group).
type TrackingState struct {
	BotID     string `bson:"bot_id" json:"bot_id"`
	GroupID   string `bson:"group_id" json:"group_id"`
	LastRunMs int64  `bson:"last_run_ms" json:"last_run_ms"`
}

// DeliveryQueueName names which of the three delivery collections a job is in.
type DeliveryQueueName string

const (
	QueueActive  DeliveryQueueName = "active"
	QueueHolding DeliveryQueueName = "holding"
	QueueFailed  DeliveryQueueName = "failed"
)

// MessageType selects the delivery processor.
type MessageType string

const (
	MessageTypeText              MessageType = "text"
	MessageTypeICSActionableItem MessageType = "ics_actionable_item"
)

// MessageDestination addresses a delivery job at an owner's bot.
type MessageDestination struct {
	UserID       string `bson:"user_id" json:"user_id"`
	ProviderName string `bson:"provider_name" json:"provider_name"`
}

// DeliveryJob is an outbound item awaiting at-least-once delivery.
type DeliveryJob struct {
	MessageID    string             `bson:"message_id" json:"message_id"`
	Destination  MessageDestination `bson:"destination" json:"destination"`
	SendAttempts int                `bson:"send_attempts" json:"send_attempts"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	MessageType  MessageType        `bson:"message_type" json:"message_type"`
	Content      any                `bson:"content" json:"content"`
}

// Session is a gateway-issued login session.
type Session struct {
	SessionID    string    `bson:"session_id" json:"session_id"`
	UserID       string    `bson:"user_id" json:"user_id"`
	Role         Role      `bson:"role" json:"role"`
	OwnedBots    []string  `bson:"owned_bots" json:"owned_bots"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	LastAccessed time.Time `bson:"last_accessed" json:"last_accessed"`
	ExpiresAt    time.Time `bson:"expires_at" json:"expires_at"`
	IP           string    `bson:"ip,omitempty" json:"ip,omitempty"`
	UserAgent    string    `bson:"user_agent,omitempty" json:"user_agent,omitempty"`
}

// StaleSession is an archived, invalidated session.
type StaleSession struct {
	Session
	InvalidatedAt time.Time `bson:"invalidated_at" json:"invalidated_at"`
	Reason        string    `bson:"reason" json:"reason"`
}

// TokenEvent records one LLM call's usage.
type TokenEvent struct {
	Timestamp         time.Time `bson:"timestamp" json:"timestamp"`
	UserID            string    `bson:"user_id" json:"user_id"`
	BotID             string    `bson:"bot_id" json:"bot_id"`
	FeatureName       string    `bson:"feature_name" json:"feature_name"`
	InputTokens       int       `bson:"input_tokens" json:"input_tokens"`
	CachedInputTokens int       `bson:"cached_input_tokens" json:"cached_input_tokens"`
	OutputTokens      int       `bson:"output_tokens" json:"output_tokens"`
	ConfigTier        LLMTier   `bson:"config_tier" json:"config_tier"`
}

// AuditEventType enumerates the gateway's audit log event kinds.
type AuditEventType string

const (
	AuditLoginSuccess     AuditEventType = "login_success"
	AuditLoginFailed      AuditEventType = "login_failed"
	AuditPermissionDenied AuditEventType = "permission_denied"
	AuditLogout           AuditEventType = "logout"
	AuditAccountLocked    AuditEventType = "account_locked"
	AuditAccountUnlocked  AuditEventType = "account_unlocked"
	AuditUserCreated      AuditEventType = "user_created"
	AuditUserUpdated      AuditEventType = "user_updated"
	AuditUserDeleted      AuditEventType = "user_deleted"
	AuditPasswordReset    AuditEventType = "password_reset"
)

// AuditLog is one audited gateway event.
type AuditLog struct {
	Timestamp time.Time      `bson:"timestamp" json:"timestamp"`
	EventType AuditEventType `bson:"event_type" json:"event_type"`
	UserID    string         `bson:"user_id,omitempty" json:"user_id,omitempty"`
	IP        string         `bson:"ip,omitempty" json:"ip,omitempty"`
	UserAgent string         `bson:"user_agent,omitempty" json:"user_agent,omitempty"`
	Details   map[string]any `bson:"details,omitempty" json:"details,omitempty"`
}

// AccountLockout is the per-user failed-login counter.
type AccountLockout struct {
	UserID         string     `bson:"user_id" json:"user_id"`
	FailedAttempts int        `bson:"failed_attempts" json:"failed_attempts"`
	LastAttempt    time.Time  `bson:"last_attempt" json:"last_attempt"`
	LockedUntil    *time.Time `bson:"locked_until,omitempty" json:"locked_until,omitempty"`
}

// TokenMenuTier carries per-million dollar rates for one LLM tier.
type TokenMenuTier struct {
	InputRate  float64 `bson:"input_rate" json:"input_rate"`
	CachedRate float64 `bson:"cached_rate" json:"cached_rate"`
	OutputRate float64 `bson:"output_rate" json:"output_rate"`
}

// TokenMenu is the pricing table document.
type TokenMenu struct {
	High TokenMenuTier `bson:"high" json:"high"`
	Low  TokenMenuTier `bson:"low" json:"low"`
}

// ActionableItem is one extracted task from the group-tracking pipeline.
type ActionableItem struct {
	TaskTitle            string              `json:"task_title" bson:"task_title"`
	TaskDescription      string              `json:"task_description" bson:"task_description"`
	TextDeadline         string              `json:"text_deadline" bson:"text_deadline"`
	TimestampDeadline    string              `json:"timestamp_deadline" bson:"timestamp_deadline"`
	RelevantTaskMessages []ActionItemMessage `json:"relevant_task_messages" bson:"relevant_task_messages"`
	GroupDisplayName     string              `json:"group_display_name,omitempty" bson:"group_display_name,omitempty"`
}

// ActionItemMessage quotes one message supporting an ActionableItem.
type ActionItemMessage struct {
	Sender  string `json:"sender" bson:"sender"`
	Content string `json:"content" bson:"content"`
}
