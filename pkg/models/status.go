package models

import "fmt"

// Status is the lifecycle state of an authentication application
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
	// StatusExpired is a valid stored value that nothing in the bot produces
	StatusExpired Status = "expired"
)

// AllStatuses lists every status in display order
var AllStatuses = []Status{
	StatusPending,
	StatusApproved,
	StatusRejected,
	StatusCancelled,
	StatusExpired,
}

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition can leave s
func (s Status) IsTerminal() bool {
	return s.Valid() && s != StatusPending
}

// ParseStatus converts a stored value into a Status
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("estado desconocido: %q", raw)
	}
	return s, nil
}

// Emoji returns the marker used in history listings
func (s Status) Emoji() string {
	switch s {
	case StatusApproved:
		return "✅"
	case StatusRejected:
		return "❌"
	case StatusPending:
		return "⏳"
	case StatusCancelled:
		return "🚫"
	default:
		return "❓"
	}
}
