// Package bridge implements the WhatsApp bridge client: an
// HTTP+WebSocket client to an external bridge process. The WhatsApp
// protocol itself lives entirely on the far side of the bridge; only
// its wire contract matters here.
package bridge

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/AzielCF/chatbot-platform/domain"
	"github.com/AzielCF/chatbot-platform/pkg/apperror"
)

const (
	httpTimeout       = 30 * time.Second
	pendingEchoTTL    = 30 * time.Second
	sentIDCacheTTL    = 10 * time.Minute
	reconnectMinDelay = 1 * time.Second
	reconnectMaxDelay = 30 * time.Second
)

// StatusChangeFunc is invoked on every state-machine transition.
type StatusChangeFunc func(botID string, status domain.BotStatus)

// SessionEndFunc is invoked when the bridge session is permanently dead
// (persistent auth failure).
type SessionEndFunc func(botID string)

// InboundHandler receives a classified inbound message.
type InboundHandler func(msg InboundMessage)

// InboundMessage carries one classified message from the bridge.
type InboundMessage struct {
	CorrespondentID   string
	Content           string
	Sender            domain.Sender
	Source            domain.MessageSource
	Group             *domain.Group
	OriginatingTime   int64
	ProviderMessageID string
}

// wireStatusPayload mirrors the bridge's status_update frame.
type wireStatusPayload struct {
	Status  string `json:"status"`
	QR      string `json:"qr,omitempty"`
	UserJID string `json:"user_jid,omitempty"`
}

// wireMessage mirrors one item of the bridge's messages frame.
type wireMessage struct {
	Sender            string      `json:"sender"`
	Message           string      `json:"message"`
	Direction         string      `json:"direction"`
	ProviderMessageID string      `json:"provider_message_id,omitempty"`
	Group             *wireGroup  `json:"group,omitempty"`
	DisplayName       string      `json:"display_name,omitempty"`
	ActualSender      *wireSender `json:"actual_sender,omitempty"`
	OriginatingTime   int64       `json:"originating_time"`
}

type wireGroup struct {
	Identifier           string   `json:"identifier"`
	DisplayName          string   `json:"display_name"`
	AlternateIdentifiers []string `json:"alternate_identifiers,omitempty"`
}

type wireSender struct {
	AlternateIdentifiers []string `json:"alternate_identifiers,omitempty"`
}

// wireFrame is the outer envelope of every WS frame.
type wireFrame struct {
	Type     string             `json:"type"`
	Status   *wireStatusPayload `json:"status,omitempty"`
	Messages []wireMessage      `json:"messages,omitempty"`
}

type pendingEcho struct {
	recipient string
	content   string
	at        time.Time
}

type sentIDEntry struct {
	at time.Time
}

// Client is one bot's connection to the external WhatsApp bridge.
type Client struct {
	botID      string
	bridgeURL  string
	httpClient *http.Client
	log        *logrus.Entry

	onStatusChange StatusChangeFunc
	onSessionEnd   SessionEndFunc
	onInbound      InboundHandler
	isGroupAllowed func(groupID string) bool

	mu            sync.Mutex
	status        domain.BotStatus
	userJID       string
	qr            string
	listening     bool
	pendingEchoes []pendingEcho
	sentIDs       map[string]sentIDEntry

	stopCh chan struct{}
	conn   *websocket.Conn
}

// Option configures an optional callback/filter on construction.
type Option func(*Client)

func WithStatusChange(fn StatusChangeFunc) Option { return func(c *Client) { c.onStatusChange = fn } }
func WithSessionEnd(fn SessionEndFunc) Option     { return func(c *Client) { c.onSessionEnd = fn } }
func WithInboundHandler(fn InboundHandler) Option { return func(c *Client) { c.onInbound = fn } }
func WithGroupFilter(fn func(groupID string) bool) Option {
	return func(c *Client) { c.isGroupAllowed = fn }
}

func NewClient(botID, bridgeURL string, log *logrus.Logger, opts ...Option) *Client {
	c := &Client{
		botID:      botID,
		bridgeURL:  bridgeURL,
		httpClient: &http.Client{Timeout: httpTimeout},
		status:     domain.StatusInitializing,
		sentIDs:    make(map[string]sentIDEntry),
		stopCh:     make(chan struct{}),
	}
	if log != nil {
		c.log = log.WithField("bot_id", botID)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) setStatus(status domain.BotStatus) {
	c.mu.Lock()
	changed := c.status != status
	c.status = status
	c.mu.Unlock()
	if changed && c.onStatusChange != nil {
		c.onStatusChange(c.botID, status)
	}
}

// IsConnected is true iff a user JID has been assigned AND the WS reader
// is actively listening.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userJID != "" && c.listening
}

func (c *Client) UserJID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userJID
}

func (c *Client) GetStatus() domain.BotStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// QR returns the last QR payload the bridge pushed, empty once linked.
func (c *Client) QR() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.qr
}

// Initialize POSTs configuration to the bridge before the WS connection
// is opened.
func (c *Client) Initialize(ctx context.Context, cfg domain.ChatProviderConfig) error {
	body, _ := json.Marshal(map[string]any{"bot_id": c.botID, "provider_name": cfg.ProviderName})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.bridgeURL+"/initialize", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperror.New(apperror.KindProviderConnection, err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return apperror.New(apperror.KindProviderConnection, fmt.Sprintf("initialize failed: %d", resp.StatusCode))
	}
	return nil
}

// SendMessage pushes a pending-echo record, POSTs the text, and records
// the returned provider_message_id.
func (c *Client) SendMessage(ctx context.Context, recipient, content string) (string, error) {
	c.recordPendingEcho(recipient, content)

	payload, _ := json.Marshal(map[string]string{"recipient": recipient, "content": content})
	providerMessageID, err := c.postSend(ctx, payload)
	if err != nil {
		return "", err
	}
	c.recordSentID(providerMessageID)
	return providerMessageID, nil
}

// SendFile base64-encodes file bytes and sends via the same send
// endpoint, used by the `ics_actionable_item` delivery processor.
func (c *Client) SendFile(ctx context.Context, recipient string, fileData []byte, filename, mimeType, caption string) (string, error) {
	c.recordPendingEcho(recipient, caption)

	payload, _ := json.Marshal(map[string]string{
		"recipient": recipient,
		"content":   base64.StdEncoding.EncodeToString(fileData),
		"filename":  filename,
		"mime_type": mimeType,
		"caption":   caption,
	})
	providerMessageID, err := c.postSend(ctx, payload)
	if err != nil {
		return "", err
	}
	c.recordSentID(providerMessageID)
	return providerMessageID, nil
}

func (c *Client) postSend(ctx context.Context, payload []byte) (string, error) {
	url := fmt.Sprintf("%s/sessions/%s/send", c.bridgeURL, c.botID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperror.New(apperror.KindProviderMessage, err.Error())
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return "", apperror.New(apperror.KindProviderMessage, fmt.Sprintf("send failed: %d: %s", resp.StatusCode, body))
	}

	var parsed struct {
		ProviderMessageID string `json:"provider_message_id"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", apperror.New(apperror.KindProviderMessage, "malformed send response")
	}
	return parsed.ProviderMessageID, nil
}

// FetchHistoricMessages calls `POST /sessions/{id}/history`.
func (c *Client) FetchHistoricMessages(ctx context.Context, groupID string, limit int) ([]wireMessage, error) {
	payload, _ := json.Marshal(map[string]any{"group_id": groupID, "limit": limit})
	url := fmt.Sprintf("%s/sessions/%s/history", c.bridgeURL, c.botID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperror.New(apperror.KindProviderTransient, err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, apperror.New(apperror.KindProviderTransient, fmt.Sprintf("history fetch failed: %d", resp.StatusCode))
	}

	var messages []wireMessage
	if err := json.NewDecoder(resp.Body).Decode(&messages); err != nil {
		return nil, apperror.New(apperror.KindProviderMessage, "malformed history response")
	}
	return messages, nil
}

// StopListening DELETEs the bridge session when cleanupSession is set
// (`DELETE /sessions/{id}`).
func (c *Client) StopListening(ctx context.Context, cleanupSession bool) error {
	close(c.stopCh)

	c.mu.Lock()
	c.listening = false
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "stopping")
	}

	if !cleanupSession {
		return nil
	}

	url := fmt.Sprintf("%s/sessions/%s", c.bridgeURL, c.botID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperror.New(apperror.KindProviderConnection, err.Error())
	}
	defer resp.Body.Close()
	return nil
}

// IsBotMessage reports whether a provider_message_id matches a message
// this client itself sent (the id-based half of inbound classification).
func (c *Client) IsBotMessage(providerMessageID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.sentIDs[providerMessageID]
	return ok
}

func (c *Client) recordSentID(id string) {
	if id == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sentIDs[id] = sentIDEntry{at: time.Now()}
	c.pruneSentIDsLocked()
}

func (c *Client) pruneSentIDsLocked() {
	cutoff := time.Now().Add(-sentIDCacheTTL)
	for id, entry := range c.sentIDs {
		if entry.at.Before(cutoff) {
			delete(c.sentIDs, id)
		}
	}
}

func (c *Client) recordPendingEcho(recipient, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingEchoes = append(c.pendingEchoes, pendingEcho{recipient: recipient, content: content, at: time.Now()})
	c.prunePendingEchoesLocked()
}

func (c *Client) prunePendingEchoesLocked() {
	cutoff := time.Now().Add(-pendingEchoTTL)
	fresh := c.pendingEchoes[:0]
	for _, p := range c.pendingEchoes {
		if p.at.After(cutoff) {
			fresh = append(fresh, p)
		}
	}
	c.pendingEchoes = fresh
}

// consumePendingEcho returns true and removes the entry if a matching
// (recipient, content) pending echo exists within the TTL.
func (c *Client) consumePendingEcho(recipient, content string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prunePendingEchoesLocked()
	for i, p := range c.pendingEchoes {
		if p.recipient == recipient && p.content == content {
			c.pendingEchoes = append(c.pendingEchoes[:i], c.pendingEchoes[i+1:]...)
			return true
		}
	}
	return false
}
