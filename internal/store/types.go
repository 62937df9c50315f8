package store

import (
	"github.com/saxenasajal03/ConnectX/internal/db/types"
)

// Status is the lifecycle state of a friend request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
)

// User is the public profile of an account. The account subsystem owns these
// records; the relationship core only reads them.
type User struct {
	ID               string          `json:"id" yaml:"id"`
	FullName         string          `json:"fullName" yaml:"fullName"`
	Bio              string          `json:"bio" yaml:"bio"`
	ProfilePic       string          `json:"profilePic" yaml:"profilePic"`
	Location         string          `json:"location" yaml:"location"`
	NativeLanguage   string          `json:"nativeLanguage" yaml:"nativeLanguage"`
	LearningLanguage string          `json:"learningLanguage" yaml:"learningLanguage"`
	IsOnboarded      bool            `json:"isOnboarded" yaml:"isOnboarded"`
	CreatedAt        types.Timestamp `json:"createdAt" yaml:"-"`
}

// FriendRequest is a directed proposal between two distinct users. Sender and
// recipient never change after creation.
type FriendRequest struct {
	ID          string          `json:"id"`
	PairKey     string          `json:"-"`
	SenderID    string          `json:"senderId"`
	RecipientID string          `json:"recipientId"`
	Status      Status          `json:"status"`
	CreatedAt   types.Timestamp `json:"createdAt"`
	UpdatedAt   types.Timestamp `json:"updatedAt"`
}

// Counterpart returns the other side of the request from userID's point of view.
func (r *FriendRequest) Counterpart(userID string) string {
	if r.SenderID == userID {
		return r.RecipientID
	}
	return r.SenderID
}

// RequestView is a friend request together with the profile of the user on
// the other side of it.
type RequestView struct {
	FriendRequest
	User User `json:"user"`
}

// CandidateQuery pages through users in ID order. When UnrelatedTo is set the
// page skips that user and everyone sharing a request with them, in either
// direction and either status.
type CandidateQuery struct {
	After         string
	Limit         int
	OnboardedOnly bool
	UnrelatedTo   string
}
