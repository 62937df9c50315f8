package store_test

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/saxenasajal03/ConnectX/internal/db"
	"github.com/saxenasajal03/ConnectX/internal/store"
	"github.com/saxenasajal03/ConnectX/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func setup(t *testing.T) (*sql.DB, *store.SQLStore) {
	dbConn := testutils.SetupTestDB(t)
	return dbConn, store.NewSQLStore(dbConn, db.SQLite, zaptest.NewLogger(t))
}

func countRequests(t *testing.T, dbConn *sql.DB, pairKey string) int {
	t.Helper()
	var n int
	require.NoError(t, dbConn.QueryRow("SELECT COUNT(*) FROM friend_requests WHERE pair_key = ?", pairKey).Scan(&n))
	return n
}

func userIDs(users []store.User) []string {
	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return ids
}

func TestUserRoundTrip(t *testing.T) {
	_, s := setup(t)
	ctx := context.Background()

	u := testutils.CreateTestUserWith(t, s, &store.User{
		ID:               "u1",
		FullName:         "Ana Lopez",
		Bio:              "hola",
		ProfilePic:       "https://avatar.example/1.png",
		Location:         "Madrid",
		NativeLanguage:   "spanish",
		LearningLanguage: "english",
		IsOnboarded:      true,
	})

	got, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, u.FullName, got.FullName)
	assert.Equal(t, u.Location, got.Location)
	assert.True(t, got.IsOnboarded)
	assert.True(t, got.CreatedAt.Equal(u.CreatedAt.Time))

	// Upsert overwrites profile fields but keeps the creation time.
	created := got.CreatedAt
	require.NoError(t, s.UpsertUser(ctx, &store.User{ID: "u1", FullName: "Ana L."}))
	got, err = s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana L.", got.FullName)
	assert.False(t, got.IsOnboarded)
	assert.True(t, got.CreatedAt.Equal(created.Time))

	_, err = s.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.ErrorIs(t, s.UpsertUser(ctx, &store.User{ID: "bad:id"}), store.ErrInvalidUser)
}

func TestCreateRequestIfAbsent(t *testing.T) {
	dbConn, s := setup(t)
	ctx := context.Background()
	testutils.CreateTestUser(t, s, "a")
	testutils.CreateTestUser(t, s, "b")

	req, created, err := s.CreateRequestIfAbsent(ctx, "a", "b")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, store.StatusPending, req.Status)
	assert.Equal(t, "a", req.SenderID)
	assert.Equal(t, "b", req.RecipientID)
	assert.Equal(t, "a:b", req.PairKey)

	again, created, err := s.CreateRequestIfAbsent(ctx, "a", "b")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, req.ID, again.ID)

	reversed, created, err := s.CreateRequestIfAbsent(ctx, "b", "a")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, req.ID, reversed.ID)
	assert.Equal(t, "a", reversed.SenderID, "original direction is kept")

	assert.Equal(t, 1, countRequests(t, dbConn, "a:b"))

	found, err := s.FindRequest(ctx, store.PairKey("b", "a"))
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, req.ID, found.ID)

	none, err := s.FindRequest(ctx, store.PairKey("a", "zzz"))
	require.NoError(t, err)
	assert.Nil(t, none)

	_, _, err = s.CreateRequestIfAbsent(ctx, "a", "a")
	assert.ErrorIs(t, err, store.ErrInvalidPair)
}

func TestCreateRequestIfAbsentConcurrentDirections(t *testing.T) {
	dbConn, s := setup(t)
	ctx := context.Background()
	testutils.CreateTestUser(t, s, "a")
	testutils.CreateTestUser(t, s, "b")

	const workers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ids     = map[string]int{}
		created int
		errs    []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			from, to := "a", "b"
			if i%2 == 1 {
				from, to = to, from
			}
			req, c, err := s.CreateRequestIfAbsent(ctx, from, to)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			ids[req.ID]++
			if c {
				created++
			}
		}(i)
	}
	wg.Wait()

	require.Empty(t, errs)
	assert.Len(t, ids, 1, "every caller must observe the same request")
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, countRequests(t, dbConn, "a:b"))
}

func TestAcceptRequest(t *testing.T) {
	_, s := setup(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		testutils.CreateTestUser(t, s, id)
	}

	req, _, err := s.CreateRequestIfAbsent(ctx, "a", "b")
	require.NoError(t, err)

	_, _, err = s.AcceptRequest(ctx, req.ID, "a")
	assert.ErrorIs(t, err, store.ErrForbidden, "sender cannot accept")
	_, _, err = s.AcceptRequest(ctx, req.ID, "c")
	assert.ErrorIs(t, err, store.ErrForbidden, "third party cannot accept")
	_, _, err = s.AcceptRequest(ctx, "no-such-request", "b")
	assert.ErrorIs(t, err, store.ErrNotFound)

	accepted, transitioned, err := s.AcceptRequest(ctx, req.ID, "b")
	require.NoError(t, err)
	assert.True(t, transitioned)
	assert.Equal(t, store.StatusAccepted, accepted.Status)
	assert.Equal(t, req.ID, accepted.ID)

	again, transitioned, err := s.AcceptRequest(ctx, req.ID, "b")
	require.NoError(t, err)
	assert.False(t, transitioned)
	assert.Equal(t, store.StatusAccepted, again.Status)
	assert.Equal(t, req.ID, again.ID)

	_, _, err = s.AcceptRequest(ctx, req.ID, "a")
	assert.ErrorIs(t, err, store.ErrForbidden, "recipient guard applies after acceptance too")

	friendsA, err := s.ListFriends(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, userIDs(friendsA))
	friendsB, err := s.ListFriends(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, userIDs(friendsB))

	stored, err := s.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusAccepted, stored.Status)

	// An accepted pair is never re-requested.
	existing, created, err := s.CreateRequestIfAbsent(ctx, "b", "a")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, store.StatusAccepted, existing.Status)
}

func TestAcceptRequestConcurrent(t *testing.T) {
	dbConn, s := setup(t)
	ctx := context.Background()
	testutils.CreateTestUser(t, s, "a")
	testutils.CreateTestUser(t, s, "b")

	req, _, err := s.CreateRequestIfAbsent(ctx, "a", "b")
	require.NoError(t, err)

	const workers = 8
	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		transitioned int
		errs         []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, tr, err := s.AcceptRequest(ctx, req.ID, "b")
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			if got.Status != store.StatusAccepted {
				errs = append(errs, fmt.Errorf("status %s", got.Status))
			}
			if tr {
				transitioned++
			}
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	assert.Equal(t, 1, transitioned)

	var rows int
	require.NoError(t, dbConn.QueryRow("SELECT COUNT(*) FROM friendships WHERE request_id = ?", req.ID).Scan(&rows))
	assert.Equal(t, 2, rows)
}

func TestRequestLists(t *testing.T) {
	_, s := setup(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c", "d"} {
		testutils.CreateTestUser(t, s, id)
	}

	ab, _, err := s.CreateRequestIfAbsent(ctx, "a", "b")
	require.NoError(t, err)
	_, _, err = s.CreateRequestIfAbsent(ctx, "a", "c")
	require.NoError(t, err)
	_, _, err = s.CreateRequestIfAbsent(ctx, "d", "a")
	require.NoError(t, err)

	outgoing, err := s.ListOutgoing(ctx, "a")
	require.NoError(t, err)
	require.Len(t, outgoing, 2)
	assert.ElementsMatch(t, []string{"b", "c"}, []string{outgoing[0].User.ID, outgoing[1].User.ID})
	for _, v := range outgoing {
		assert.Equal(t, "a", v.SenderID)
		assert.Equal(t, v.RecipientID, v.User.ID)
		assert.Equal(t, "User "+v.User.ID, v.User.FullName)
	}

	incoming, err := s.ListIncoming(ctx, "a")
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	assert.Equal(t, "d", incoming[0].SenderID)
	assert.Equal(t, "d", incoming[0].User.ID)

	_, _, err = s.AcceptRequest(ctx, ab.ID, "b")
	require.NoError(t, err)

	outgoing, err = s.ListOutgoing(ctx, "a")
	require.NoError(t, err)
	require.Len(t, outgoing, 1, "accepted requests leave the pending list")
	assert.Equal(t, "c", outgoing[0].User.ID)

	accepted, err := s.ListAcceptedOutgoing(ctx, "a")
	require.NoError(t, err)
	require.Len(t, accepted, 1)
	assert.Equal(t, "b", accepted[0].User.ID)
	assert.Equal(t, store.StatusAccepted, accepted[0].Status)

	incomingB, err := s.ListIncoming(ctx, "b")
	require.NoError(t, err)
	assert.Empty(t, incomingB)

	friendsC, err := s.ListFriends(ctx, "c")
	require.NoError(t, err)
	assert.NotNil(t, friendsC)
	assert.Empty(t, friendsC)
}

func TestListCandidatesPaging(t *testing.T) {
	_, s := setup(t)
	ctx := context.Background()
	for _, id := range []string{"e", "a", "d", "b"} {
		testutils.CreateTestUser(t, s, id)
	}
	testutils.CreateTestUserWith(t, s, &store.User{ID: "c", FullName: "Not onboarded"})

	page, err := s.ListCandidates(ctx, store.CandidateQuery{Limit: 2, OnboardedOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, userIDs(page))

	page, err = s.ListCandidates(ctx, store.CandidateQuery{After: "b", Limit: 2, OnboardedOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "e"}, userIDs(page))

	page, err = s.ListCandidates(ctx, store.CandidateQuery{After: "e", Limit: 2, OnboardedOnly: true})
	require.NoError(t, err)
	assert.Empty(t, page)

	all, err := s.ListCandidates(ctx, store.CandidateQuery{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, userIDs(all))
}

func TestRequestTimestampsAreStampedOnWrite(t *testing.T) {
	_, s := setup(t)
	ctx := context.Background()
	testutils.CreateTestUser(t, s, "a")
	testutils.CreateTestUser(t, s, "b")

	req, created, err := s.CreateRequestIfAbsent(ctx, "a", "b")
	require.NoError(t, err)
	require.True(t, created)
	assert.False(t, req.CreatedAt.IsZero())
	assert.Equal(t, time.UTC, req.CreatedAt.Location())
	assert.True(t, req.CreatedAt.Equal(req.UpdatedAt.Time))

	accepted, _, err := s.AcceptRequest(ctx, req.ID, "b")
	require.NoError(t, err)
	assert.False(t, accepted.UpdatedAt.Before(req.CreatedAt.Time))

	stored, err := s.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.True(t, stored.CreatedAt.Equal(req.CreatedAt.Time))
}

func TestListCandidatesUnrelatedTo(t *testing.T) {
	_, s := setup(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		testutils.CreateTestUser(t, s, id)
	}

	_, _, err := s.CreateRequestIfAbsent(ctx, "a", "b")
	require.NoError(t, err)
	req, _, err := s.CreateRequestIfAbsent(ctx, "c", "a")
	require.NoError(t, err)
	_, _, err = s.AcceptRequest(ctx, req.ID, "a")
	require.NoError(t, err)
	_, _, err = s.CreateRequestIfAbsent(ctx, "d", "e")
	require.NoError(t, err)

	page, err := s.ListCandidates(ctx, store.CandidateQuery{Limit: 10, UnrelatedTo: "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "e"}, userIDs(page), "self, pending and accepted counterparts are skipped")

	page, err = s.ListCandidates(ctx, store.CandidateQuery{Limit: 1, UnrelatedTo: "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"d"}, userIDs(page), "limit applies after exclusion")

	page, err = s.ListCandidates(ctx, store.CandidateQuery{Limit: 10, UnrelatedTo: "e"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, userIDs(page))
}

func TestPing(t *testing.T) {
	dbConn, s := setup(t)
	require.NoError(t, s.Ping(context.Background()))

	dbConn.Close()
	assert.ErrorIs(t, s.Ping(context.Background()), store.ErrUnavailable)
}
