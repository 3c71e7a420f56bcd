package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/AzielCF/chatbot-platform/domain"
)

func TestLockoutActive_NilLockedUntil(t *testing.T) {
	locked, _ := lockoutActive(domain.AccountLockout{UserID: "alice", FailedAttempts: 3})
	assert.False(t, locked)
}

func TestLockoutActive_ExpiredLock(t *testing.T) {
	past := time.Now().Add(-time.Minute)
	locked, _ := lockoutActive(domain.AccountLockout{UserID: "alice", LockedUntil: &past})
	assert.False(t, locked)
}

func TestLockoutActive_ActiveLockReportsRetryAfter(t *testing.T) {
	until := time.Now().Add(5 * time.Minute)
	locked, retryAfter := lockoutActive(domain.AccountLockout{UserID: "alice", LockedUntil: &until})
	assert.True(t, locked)
	assert.Greater(t, retryAfter, 0)
	assert.LessOrEqual(t, retryAfter, 301)
}

func TestLoginRequest_Validate(t *testing.T) {
	assert.Error(t, loginRequest{}.Validate())
	assert.Error(t, loginRequest{UserID: "alice"}.Validate())
	assert.NoError(t, loginRequest{UserID: "alice", Password: "Passw0rd!"}.Validate())
}
