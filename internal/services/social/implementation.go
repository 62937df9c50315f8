package social

import (
	"context"
	"errors"
	"fmt"

	"github.com/saxenasajal03/ConnectX/internal/events"
	"github.com/saxenasajal03/ConnectX/internal/store"
	"github.com/saxenasajal03/ConnectX/pkg/config"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type socialService struct {
	config    config.Config
	logger    *zap.Logger
	store     store.Store
	publisher events.Publisher
}

func NewSocialService(cfg config.Config, logger *zap.Logger, st store.Store, publisher events.Publisher) Service {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &socialService{
		config:    cfg,
		logger:    logger,
		store:     st,
		publisher: publisher,
	}
}

func (s *socialService) SendRequest(ctx context.Context, senderID, recipientID string) (*store.FriendRequest, bool, error) {
	if senderID == recipientID {
		return nil, false, ErrSelfRequest
	}
	for _, id := range []string{senderID, recipientID} {
		if _, err := s.store.GetUser(ctx, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, false, ErrUserNotFound
			}
			return nil, false, fmt.Errorf("failed to load user %s: %w", id, err)
		}
	}

	req, created, err := s.store.CreateRequestIfAbsent(ctx, senderID, recipientID)
	if err != nil {
		if errors.Is(err, store.ErrInvalidPair) {
			return nil, false, ErrUserNotFound
		}
		return nil, false, fmt.Errorf("failed to create friend request: %w", err)
	}
	if !created {
		if req.Status == store.StatusAccepted {
			return nil, false, ErrAlreadyFriends
		}
		s.logger.Debug("Friend request already pending",
			zap.String("request_id", req.ID),
			zap.String("sender_id", senderID),
			zap.String("recipient_id", recipientID))
		return req, false, nil
	}

	s.logger.Debug("Friend request created",
		zap.String("request_id", req.ID),
		zap.String("sender_id", senderID),
		zap.String("recipient_id", recipientID))
	s.publish(ctx, events.FriendRequestCreated, req)
	return req, true, nil
}

func (s *socialService) AcceptRequest(ctx context.Context, requestID, actingUserID string) (*store.FriendRequest, error) {
	req, transitioned, err := s.store.AcceptRequest(ctx, requestID, actingUserID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, ErrNotFound
		case errors.Is(err, store.ErrForbidden):
			return nil, ErrForbidden
		}
		return nil, fmt.Errorf("failed to accept friend request: %w", err)
	}
	if transitioned {
		s.logger.Debug("Friend request accepted",
			zap.String("request_id", req.ID),
			zap.String("sender_id", req.SenderID),
			zap.String("recipient_id", req.RecipientID))
		s.publish(ctx, events.FriendRequestAccepted, req)
	}
	return req, nil
}

// publish runs after the store has committed; a broker failure is logged and
// does not undo or fail the operation.
func (s *socialService) publish(ctx context.Context, t events.Type, req *store.FriendRequest) {
	if err := s.publisher.Publish(context.WithoutCancel(ctx), events.NewEvent(t, req)); err != nil {
		s.logger.Warn("Failed to publish relationship event",
			zap.String("type", string(t)),
			zap.String("request_id", req.ID),
			zap.Error(err))
	}
}

func (s *socialService) ListFriends(ctx context.Context, userID string) ([]store.User, error) {
	friends, err := s.store.ListFriends(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}
	return friends, nil
}

func (s *socialService) ListOutgoing(ctx context.Context, userID string) ([]store.RequestView, error) {
	requests, err := s.store.ListOutgoing(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list outgoing requests: %w", err)
	}
	return requests, nil
}

func (s *socialService) ListIncoming(ctx context.Context, userID string) ([]store.RequestView, error) {
	requests, err := s.store.ListIncoming(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list incoming requests: %w", err)
	}
	return requests, nil
}

func (s *socialService) Notifications(ctx context.Context, userID string) (*Notifications, error) {
	var n Notifications
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		reqs, err := s.store.ListIncoming(gctx, userID)
		if err != nil {
			return fmt.Errorf("failed to list incoming requests: %w", err)
		}
		n.IncomingReqs = reqs
		return nil
	})
	g.Go(func() error {
		reqs, err := s.store.ListAcceptedOutgoing(gctx, userID)
		if err != nil {
			return fmt.Errorf("failed to list accepted requests: %w", err)
		}
		n.AcceptedReqs = reqs
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &n, nil
}
