package social

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/saxenasajal03/ConnectX/internal/store"
	"go.uber.org/zap"
)

const defaultPageSize = 200

// Recommend lists users the caller could send a request to. It excludes the
// caller, their friends, and anyone with a pending request in either
// direction. The result is ordered by user ID and recomputed on every call.
func (s *socialService) Recommend(ctx context.Context, userID string) ([]store.User, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	pageSize := s.config.Recommend.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	// Exclusion is part of each candidate query. Request records only move
	// forward, so a user returned here had no record with the caller when
	// their page was read.
	candidates := []store.User{}
	after := ""
	for {
		page, err := s.store.ListCandidates(ctx, store.CandidateQuery{
			After:         after,
			Limit:         pageSize,
			OnboardedOnly: s.config.Recommend.OnboardedOnly,
			UnrelatedTo:   userID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list candidates: %w", err)
		}
		candidates = append(candidates, page...)
		if len(page) < pageSize {
			break
		}
		after = page[len(page)-1].ID
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })

	s.logger.Debug("Recommendations computed",
		zap.String("user_id", userID),
		zap.Int("candidates", len(candidates)))
	return candidates, nil
}
