package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/saxenasajal03/ConnectX/internal/store"
)

// Type names a relationship event. It doubles as the subject suffix.
type Type string

const (
	FriendRequestCreated  Type = "friend_request.created"
	FriendRequestAccepted Type = "friend_request.accepted"
)

// Event is emitted after a relationship change has been committed.
type Event struct {
	Type        Type      `json:"type"`
	RequestID   string    `json:"requestId"`
	SenderID    string    `json:"senderId"`
	RecipientID string    `json:"recipientId"`
	Status      string    `json:"status"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// NewEvent builds an event describing req.
func NewEvent(t Type, req *store.FriendRequest) Event {
	return Event{
		Type:        t,
		RequestID:   req.ID,
		SenderID:    req.SenderID,
		RecipientID: req.RecipientID,
		Status:      string(req.Status),
		OccurredAt:  time.Now().UTC(),
	}
}

func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers relationship events to interested subsystems such as
// notifications. Delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close()
}

// NoopPublisher drops every event. It is used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
func (NoopPublisher) Close()                               {}
