package rest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AzielCF/chatbot-platform/domain"
)

func validUserRequest() userRequest {
	return userRequest{
		Credentials: domain.Credentials{
			UserID:   "alice",
			Role:     domain.RoleUser,
			Email:    "alice@example.com",
			Phone:    "+14155552671",
			Country:  "US",
			Language: "en",
		},
		Password: "Passw0rd!",
	}
}

func TestUserRequest_ValidAccepted(t *testing.T) {
	assert.NoError(t, validUserRequest().Validate(true))
}

func TestUserRequest_PasswordRequiredOnlyOnCreate(t *testing.T) {
	req := validUserRequest()
	req.Password = ""
	assert.Error(t, req.Validate(true))
	assert.NoError(t, req.Validate(false))
}

func TestUserRequest_RejectsShortPassword(t *testing.T) {
	req := validUserRequest()
	req.Password = "short"
	assert.Error(t, req.Validate(true))
}

func TestUserRequest_RejectsBadPhone(t *testing.T) {
	req := validUserRequest()
	req.Phone = "555-1234"
	assert.Error(t, req.Validate(true))
}

func TestUserRequest_RejectsBadCountryAndLanguage(t *testing.T) {
	req := validUserRequest()
	req.Country = "usa"
	assert.Error(t, req.Validate(true))

	req = validUserRequest()
	req.Language = "EN"
	assert.Error(t, req.Validate(true))
}

func TestUserRequest_RejectsUnknownRole(t *testing.T) {
	req := validUserRequest()
	req.Role = "superuser"
	assert.Error(t, req.Validate(true))
}
