package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/coder/websocket"

	"github.com/AzielCF/chatbot-platform/domain"
)

// Listen dials the bridge's WebSocket endpoint and reads frames until the
// context is cancelled or StopListening is called, reconnecting with
// exponential backoff on transient failures (connection
// lifecycle). It blocks; callers run it in its own goroutine per bot.
func (c *Client) Listen(ctx context.Context) {
	delay := reconnectMinDelay
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		default:
		}

		err := c.runOnce(ctx)
		if err == nil {
			delay = reconnectMinDelay
			continue
		}

		c.logf("bridge connection ended: %v, reconnecting in %s", err, delay)
		c.setStatus(domain.StatusDisconnected)

		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-time.After(delay):
		}

		delay = nextBackoff(delay)
	}
}

func nextBackoff(prev time.Duration) time.Duration {
	next := prev * 2
	if next > reconnectMaxDelay {
		next = reconnectMaxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(next)/4 + 1))
	return next + jitter
}

func (c *Client) logf(format string, args ...any) {
	if c.log != nil {
		c.log.Infof(format, args...)
	}
}

func (c *Client) runOnce(ctx context.Context) error {
	url := wsURL(c.bridgeURL, c.botID)
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.CloseNow()

	c.mu.Lock()
	c.conn = conn
	c.listening = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.listening = false
		c.conn = nil
		c.mu.Unlock()
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go c.heartbeat(ctx, conn)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		var frame wireFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.logf("malformed bridge frame: %v", err)
			continue
		}
		c.handleFrame(frame)
	}
}

func (c *Client) heartbeat(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func wsURL(bridgeURL, botID string) string {
	scheme := "ws"
	prefix := "http://"
	if len(bridgeURL) >= len("https://") && bridgeURL[:len("https://")] == "https://" {
		scheme = "wss"
		prefix = "https://"
	}
	rest := bridgeURL
	if len(bridgeURL) >= len(prefix) && bridgeURL[:len(prefix)] == prefix {
		rest = bridgeURL[len(prefix):]
	}
	return fmt.Sprintf("%s://%s/sessions/%s/ws", scheme, rest, botID)
}
