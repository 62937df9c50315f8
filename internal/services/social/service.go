package social

import (
	"context"
	"errors"

	"github.com/saxenasajal03/ConnectX/internal/store"
)

var (
	ErrSelfRequest    = errors.New("cannot send a friend request to yourself")
	ErrUserNotFound   = errors.New("user not found")
	ErrAlreadyFriends = errors.New("you are already friends with this user")
	ErrForbidden      = errors.New("you are not authorized to accept this request")
	ErrNotFound       = errors.New("friend request not found")
)

// Notifications is what a user sees on the notifications page: requests
// waiting for them and their own requests that were accepted.
type Notifications struct {
	IncomingReqs []store.RequestView `json:"incomingReqs"`
	AcceptedReqs []store.RequestView `json:"acceptedReqs"`
}

type Service interface {
	// SendRequest returns the pending request for the pair, creating it if
	// needed. created reports whether this call inserted it.
	SendRequest(ctx context.Context, senderID, recipientID string) (req *store.FriendRequest, created bool, err error)
	AcceptRequest(ctx context.Context, requestID, actingUserID string) (*store.FriendRequest, error)

	ListFriends(ctx context.Context, userID string) ([]store.User, error)
	ListOutgoing(ctx context.Context, userID string) ([]store.RequestView, error)
	ListIncoming(ctx context.Context, userID string) ([]store.RequestView, error)
	Notifications(ctx context.Context, userID string) (*Notifications, error)

	Recommend(ctx context.Context, userID string) ([]store.User, error)
}
