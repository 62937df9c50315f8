package store

import "context"

// Store is durable storage for users and friend requests. Uniqueness of the
// pair key and the pending to accepted transition are enforced by the
// implementation, not by callers.
type Store interface {
	GetUser(ctx context.Context, id string) (*User, error)
	UpsertUser(ctx context.Context, user *User) error

	// FindRequest returns nil without error when the pair has no record.
	FindRequest(ctx context.Context, pairKey string) (*FriendRequest, error)
	GetRequest(ctx context.Context, id string) (*FriendRequest, error)

	// CreateRequestIfAbsent inserts a pending request unless the pair already
	// has one, in which case the existing record is returned with created=false.
	CreateRequestIfAbsent(ctx context.Context, senderID, recipientID string) (req *FriendRequest, created bool, err error)

	// AcceptRequest moves a request from pending to accepted and materializes
	// the friendship for both users. Accepting an accepted request returns it
	// with transitioned=false.
	AcceptRequest(ctx context.Context, requestID, actingUserID string) (req *FriendRequest, transitioned bool, err error)

	ListFriends(ctx context.Context, userID string) ([]User, error)
	ListOutgoing(ctx context.Context, userID string) ([]RequestView, error)
	ListIncoming(ctx context.Context, userID string) ([]RequestView, error)
	ListAcceptedOutgoing(ctx context.Context, userID string) ([]RequestView, error)
	ListCandidates(ctx context.Context, q CandidateQuery) ([]User, error)

	Ping(ctx context.Context) error
}
