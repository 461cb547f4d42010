package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	for _, s := range []Status{StatusApproved, StatusRejected, StatusCancelled, StatusExpired} {
		assert.True(t, s.IsTerminal(), s)
	}
	assert.False(t, Status("archived").IsTerminal())
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("expired")
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, s)

	_, err = ParseStatus("PENDING")
	assert.Error(t, err)
}

func TestGuildConfigAccessors(t *testing.T) {
	var missing *GuildConfig
	_, ok := missing.NotificationChannel()
	assert.False(t, ok)

	cfg := NewGuildConfig("g1")
	assert.Equal(t, DefaultPanelMessage, cfg.PanelMessage)
	_, ok = cfg.NotificationChannel()
	assert.False(t, ok)

	cfg.NotificationChannelID = StringPtr("c1")
	ch, ok := cfg.NotificationChannel()
	assert.True(t, ok)
	assert.Equal(t, "c1", ch)

	_, _, ok = cfg.Panel()
	assert.False(t, ok)
	cfg.PanelChannelID = StringPtr("c2")
	cfg.PanelMessageID = StringPtr("m2")
	pc, pm, ok := cfg.Panel()
	assert.True(t, ok)
	assert.Equal(t, "c2", pc)
	assert.Equal(t, "m2", pm)
}

func TestBlacklistReasonOrDefault(t *testing.T) {
	entry := &BlacklistEntry{UserID: "u", GuildID: "g"}
	assert.Equal(t, DefaultBlacklistReason, entry.ReasonOrDefault())

	entry.Reason = StringPtr("spam")
	assert.Equal(t, "spam", entry.ReasonOrDefault())
}

func TestStringPtr(t *testing.T) {
	assert.Nil(t, StringPtr(""))
	assert.Equal(t, "x", *StringPtr("x"))
}
