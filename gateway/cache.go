package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	valkeylib "github.com/valkey-io/valkey-go"

	"github.com/AzielCF/chatbot-platform/domain"
)

// cacheTTL bounds both caches. The cache is a latency optimization
// with write-through; the database stays authoritative.
const cacheTTL = 3 * time.Minute

// Cache is the gateway's short-TTL Valkey front for sessions and
// lockouts.
type Cache struct {
	inner  valkeylib.Client
	prefix string
}

// NewCache dials Valkey and verifies connectivity with a bounded ping.
func NewCache(address, password string, db int, prefix string) (*Cache, error) {
	opts := valkeylib.ClientOption{InitAddress: []string{address}, SelectDB: db}
	if password != "" {
		opts.Password = password
	}
	inner, err := valkeylib.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("gateway: failed to create valkey client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := inner.Do(ctx, inner.B().Ping().Build()).Error(); err != nil {
		inner.Close()
		return nil, fmt.Errorf("gateway: failed to ping valkey: %w", err)
	}

	return &Cache{inner: inner, prefix: prefix}, nil
}

func (c *Cache) Close() {
	if c.inner != nil {
		c.inner.Close()
	}
}

func (c *Cache) sessionKey(id string) string { return c.prefix + ":session:" + id }
func (c *Cache) lockoutKey(id string) string { return c.prefix + ":lockout:" + id }

// SetSession caches a session capped at cacheTTL (never beyond its own
// absolute expiry).
func (c *Cache) SetSession(ctx context.Context, s domain.Session) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	if ttl > cacheTTL {
		ttl = cacheTTL
	}
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	cmd := c.inner.B().Set().Key(c.sessionKey(s.SessionID)).Value(string(data)).Ex(ttl).Build()
	return c.inner.Do(ctx, cmd).Error()
}

// GetSession returns a cached session, or ok=false on miss/error — a
// miss always falls back to the DB, never to a denial.
func (c *Cache) GetSession(ctx context.Context, sessionID string) (domain.Session, bool) {
	cmd := c.inner.B().Get().Key(c.sessionKey(sessionID)).Build()
	data, err := c.inner.Do(ctx, cmd).AsBytes()
	if err != nil {
		return domain.Session{}, false
	}
	var s domain.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return domain.Session{}, false
	}
	return s, true
}

func (c *Cache) DeleteSession(ctx context.Context, sessionID string) {
	cmd := c.inner.B().Del().Key(c.sessionKey(sessionID)).Build()
	_ = c.inner.Do(ctx, cmd).Error()
}

func (c *Cache) SetLockout(ctx context.Context, l domain.AccountLockout) error {
	data, err := json.Marshal(l)
	if err != nil {
		return err
	}
	cmd := c.inner.B().Set().Key(c.lockoutKey(l.UserID)).Value(string(data)).Ex(cacheTTL).Build()
	return c.inner.Do(ctx, cmd).Error()
}

func (c *Cache) GetLockout(ctx context.Context, userID string) (domain.AccountLockout, bool) {
	cmd := c.inner.B().Get().Key(c.lockoutKey(userID)).Build()
	data, err := c.inner.Do(ctx, cmd).AsBytes()
	if err != nil {
		return domain.AccountLockout{}, false
	}
	var l domain.AccountLockout
	if err := json.Unmarshal(data, &l); err != nil {
		return domain.AccountLockout{}, false
	}
	return l, true
}

func (c *Cache) DeleteLockout(ctx context.Context, userID string) {
	cmd := c.inner.B().Del().Key(c.lockoutKey(userID)).Build()
	_ = c.inner.Do(ctx, cmd).Error()
}
