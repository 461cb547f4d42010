package models

import "github.com/PancyStudios/GuildAuthBot/pkg/questions"

// DefaultPanelMessage is shown on the panel until a moderator sets one
const DefaultPanelMessage = "Haz clic abajo para solicitar la autenticación."

// GuildConfig is the per-guild configuration row. Optional ids are nil
// until set; a missing row means the guild is unconfigured.
type GuildConfig struct {
	GuildID               string               `bson:"_id" json:"guildId"`
	NotificationChannelID *string              `bson:"notification_channel_id,omitempty" json:"notificationChannelId,omitempty"`
	PanelChannelID        *string              `bson:"panel_channel_id,omitempty" json:"panelChannelId,omitempty"`
	PanelMessageID        *string              `bson:"panel_message_id,omitempty" json:"panelMessageId,omitempty"`
	PanelMessage          string               `bson:"auth_panel_message" json:"panelMessage"`
	Questions             []questions.Question `bson:"-" json:"questions"`
	DMNotificationEnabled bool                 `bson:"dm_notification_enabled" json:"dmNotificationEnabled"`
}

// NewGuildConfig returns the defaults used when a guild is first configured
func NewGuildConfig(guildID string) *GuildConfig {
	return &GuildConfig{
		GuildID:      guildID,
		PanelMessage: DefaultPanelMessage,
		Questions:    []questions.Question{},
	}
}

// NotificationChannel returns the configured channel id, if any
func (c *GuildConfig) NotificationChannel() (string, bool) {
	if c == nil || c.NotificationChannelID == nil || *c.NotificationChannelID == "" {
		return "", false
	}
	return *c.NotificationChannelID, true
}

// Panel returns the channel and message of the current panel, if any
func (c *GuildConfig) Panel() (channelID, messageID string, ok bool) {
	if c == nil || c.PanelChannelID == nil || c.PanelMessageID == nil {
		return "", "", false
	}
	return *c.PanelChannelID, *c.PanelMessageID, true
}

// StringPtr returns a pointer to s, or nil for an empty string
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Int64Ptr returns a pointer to v
func Int64Ptr(v int64) *int64 {
	return &v
}
