package auth

import "github.com/PancyStudios/GuildAuthBot/pkg/models"

// Event is something that moves an application out of pending
type Event int

const (
	EventCancel Event = iota + 1
	EventApprove
	EventReject
	// EventExpire has a transition but nothing in the bot emits it
	EventExpire
)

func (e Event) String() string {
	switch e {
	case EventCancel:
		return "cancel"
	case EventApprove:
		return "approve"
	case EventReject:
		return "reject"
	case EventExpire:
		return "expire"
	default:
		return "unknown"
	}
}

var transitions = map[models.Status]map[Event]models.Status{
	models.StatusPending: {
		EventCancel:  models.StatusCancelled,
		EventApprove: models.StatusApproved,
		EventReject:  models.StatusRejected,
		EventExpire:  models.StatusExpired,
	},
}

// Transition returns the state ev leads to from from. The empty status stands
// for "no application"; it and every terminal state reject all events.
func Transition(from models.Status, ev Event) (models.Status, error) {
	next, ok := transitions[from][ev]
	if !ok {
		return "", ErrNoPendingApplication
	}
	return next, nil
}
