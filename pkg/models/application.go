package models

// HistoryLimit is how many applications are kept per user and guild
const HistoryLimit = 30

// AuthApplication is one submission attempt by a user in a guild
type AuthApplication struct {
	ID                    int64    `bson:"_id" json:"id"`
	UserID                string   `bson:"user_id" json:"userId"`
	GuildID               string   `bson:"guild_id" json:"guildId"`
	Status                Status   `bson:"status" json:"status"`
	Answers               []string `bson:"answers" json:"answers"`
	AppliedAt             int64    `bson:"applied_at" json:"appliedAt"` // epoch seconds
	ProcessedAt           *int64   `bson:"processed_at,omitempty" json:"processedAt,omitempty"`
	ProcessorID           *string  `bson:"processor_id,omitempty" json:"processorId,omitempty"`
	Notes                 *string  `bson:"notes,omitempty" json:"notes,omitempty"`
	NotificationMessageID *string  `bson:"notification_message_id,omitempty" json:"notificationMessageId,omitempty"`
}

// Resolution is the change applied when a pending application leaves pending
type Resolution struct {
	Status      Status
	ProcessedAt *int64
	ProcessorID *string
	Notes       *string
}

// StatusCounts holds the number of applications per status in a guild
type StatusCounts map[Status]int

// Get returns the count for s, zero when absent
func (c StatusCounts) Get(s Status) int {
	return c[s]
}
