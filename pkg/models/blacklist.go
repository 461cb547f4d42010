package models

// DefaultBlacklistReason is stored when a moderator gives no reason
const DefaultBlacklistReason = "Sin razón especificada"

// BlacklistEntry blocks a user from applying in one guild
type BlacklistEntry struct {
	UserID  string  `bson:"user_id" json:"userId"`
	GuildID string  `bson:"guild_id" json:"guildId"`
	Reason  *string `bson:"reason,omitempty" json:"reason,omitempty"`
	AddedAt int64   `bson:"added_at" json:"addedAt"` // epoch seconds
	AddedBy string  `bson:"added_by" json:"addedBy"`
}

// ReasonOrDefault returns the stored reason or the default text
func (b *BlacklistEntry) ReasonOrDefault() string {
	if b.Reason == nil || *b.Reason == "" {
		return DefaultBlacklistReason
	}
	return *b.Reason
}
