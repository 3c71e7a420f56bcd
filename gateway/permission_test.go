package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AzielCF/chatbot-platform/domain"
)

func userSession() domain.Session {
	return domain.Session{UserID: "alice", Role: domain.RoleUser, OwnedBots: []string{"alice_bot"}}
}

func adminSession() domain.Session {
	return domain.Session{UserID: "root", Role: domain.RoleAdmin}
}

func TestCheckPermission_OwnedBotAllowed(t *testing.T) {
	d := checkPermission("/bots/alice_bot/info", "GET", userSession())
	assert.True(t, d.allowed)
}

func TestCheckPermission_ForeignBotDenied(t *testing.T) {
	d := checkPermission("/bots/bob_bot/info", "GET", userSession())
	assert.False(t, d.allowed)
}

func TestCheckPermission_AdminBypassesOwnership(t *testing.T) {
	d := checkPermission("/bots/bob_bot/info", "GET", adminSession())
	assert.True(t, d.allowed)
}

func TestCheckPermission_PutAllowedWithClaim(t *testing.T) {
	d := checkPermission("/bots/new_bot", "PUT", userSession())
	assert.True(t, d.allowed)
	assert.Equal(t, "new_bot", d.claimBotID)
}

func TestCheckPermission_UserRootForbiddenEvenForSelf(t *testing.T) {
	d := checkPermission("/users/alice", "GET", userSession())
	assert.False(t, d.allowed)
}

func TestCheckPermission_UserSubResourceAllowedForSelf(t *testing.T) {
	d := checkPermission("/users/alice/quota", "GET", userSession())
	assert.True(t, d.allowed)

	d = checkPermission("/users/bob/quota", "GET", userSession())
	assert.False(t, d.allowed)
}

func TestCheckPermission_ListEndpointsAllowed(t *testing.T) {
	assert.True(t, checkPermission("/users", "GET", userSession()).allowed)
	assert.True(t, checkPermission("/users/status", "GET", userSession()).allowed)
}

func TestCheckPermission_PublicResourcesAllowed(t *testing.T) {
	assert.True(t, checkPermission("/resources/logo.png", "GET", userSession()).allowed)
}

func TestCheckPermission_UnsafeIdentifierDenied(t *testing.T) {
	assert.False(t, checkPermission("/bots/..%2Fsecret", "GET", userSession()).allowed)
	assert.False(t, checkPermission("/bots/a b", "GET", userSession()).allowed)
}

func TestCheckPermission_DeliveryQueueAdminOnly(t *testing.T) {
	assert.False(t, checkPermission("/async-message-delivery-queue/active", "GET", userSession()).allowed)
	assert.True(t, checkPermission("/async-message-delivery-queue/active", "GET", adminSession()).allowed)
}

func TestCheckPermission_Deterministic(t *testing.T) {
	sess := userSession()
	first := checkPermission("/bots/alice_bot/info", "GET", sess)
	second := checkPermission("/bots/alice_bot/info", "GET", sess)
	assert.Equal(t, first, second)
}

func TestIsSafeIdentifier(t *testing.T) {
	assert.True(t, isSafeIdentifier("alice_bot-1"))
	assert.False(t, isSafeIdentifier(""))
	assert.False(t, isSafeIdentifier("a/b"))
	assert.False(t, isSafeIdentifier(`a\b`))
	assert.False(t, isSafeIdentifier(".."))
}
