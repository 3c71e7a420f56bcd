package rest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AzielCF/chatbot-platform/domain"
)

func validBot() domain.Bot {
	return domain.Bot{
		BotID:       "alice_bot",
		OwnerUserID: "alice",
		QueueConfig: domain.QueueConfig{MaxMessages: 100, MaxCharacters: 10000, MaxDays: 30, MaxCharactersSingleMessage: 1000},
	}
}

func TestValidateBot_AcceptsWellFormed(t *testing.T) {
	assert.NoError(t, validateBot(validBot()))
}

func TestValidateBot_RejectsBadBotID(t *testing.T) {
	bot := validBot()
	bot.BotID = "has spaces"
	assert.Error(t, validateBot(bot))

	bot.BotID = ""
	assert.Error(t, validateBot(bot))

	bot.BotID = "thirty-one-characters-loooooong"
	assert.Error(t, validateBot(bot))
}

func TestValidateBot_RejectsMissingOwner(t *testing.T) {
	bot := validBot()
	bot.OwnerUserID = ""
	assert.Error(t, validateBot(bot))
}

func TestValidateBot_RejectsNegativeQueueBounds(t *testing.T) {
	bot := validBot()
	bot.QueueConfig.MaxMessages = -1
	assert.Error(t, validateBot(bot))
}

func TestCountEnabledFeatures(t *testing.T) {
	assert.Equal(t, 0, countEnabledFeatures(domain.Features{}))
	assert.Equal(t, 2, countEnabledFeatures(domain.Features{
		AutomaticBotReply:     domain.AutomaticBotReplyFeature{Enabled: true},
		PeriodicGroupTracking: domain.PeriodicGroupTrackingFeature{Enabled: true},
	}))
}

func TestSplitIDs(t *testing.T) {
	assert.Nil(t, splitIDs(""))
	assert.Equal(t, []string{"a", "b"}, splitIDs("a,b"))
	assert.Equal(t, []string{"a", "b"}, splitIDs(" a , b ,"))
}

func TestQueueNameFromPath(t *testing.T) {
	name, valid := queueNameFromPath("active")
	assert.True(t, valid)
	assert.Equal(t, domain.QueueActive, name)

	name, valid = queueNameFromPath("unconnected")
	assert.True(t, valid)
	assert.Equal(t, domain.QueueHolding, name)

	_, valid = queueNameFromPath("bogus")
	assert.False(t, valid)
}
