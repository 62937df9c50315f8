package handlers_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/saxenasajal03/ConnectX/internal/api/gateway"
	"github.com/saxenasajal03/ConnectX/internal/store"
	"github.com/saxenasajal03/ConnectX/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type testServer struct {
	app   *fiber.App
	store *store.SQLStore
}

func createFullTestServer(t *testing.T, users ...string) *testServer {
	t.Helper()
	st := testutils.SetupTestStore(t)
	for _, id := range users {
		testutils.CreateTestUser(t, st, id)
	}
	gw := gateway.NewAPIGateway(testutils.GetTestConfig(), zaptest.NewLogger(t), st)
	return &testServer{app: gw.Router(), store: st}
}

func (s *testServer) do(t *testing.T, method, path, userID string, out any) int {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+testutils.CreateTestAccessToken(t, userID))
	}
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if out != nil {
		require.NoError(t, json.Unmarshal(body, out), "body: %s", body)
	}
	return resp.StatusCode
}

func TestFriendHandlers_SendAndAccept(t *testing.T) {
	srv := createFullTestServer(t, "alice", "bob")

	var sent store.FriendRequest
	status := srv.do(t, http.MethodPost, "/api/users/friend-request/bob", "alice", &sent)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "alice", sent.SenderID)
	assert.Equal(t, "bob", sent.RecipientID)
	assert.Equal(t, store.StatusPending, sent.Status)

	var again store.FriendRequest
	status = srv.do(t, http.MethodPost, "/api/users/friend-request/bob", "alice", &again)
	assert.Equal(t, http.StatusOK, status, "repeat send returns the existing request")
	assert.Equal(t, sent.ID, again.ID)

	var reverse store.FriendRequest
	status = srv.do(t, http.MethodPost, "/api/users/friend-request/alice", "bob", &reverse)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, sent.ID, reverse.ID)

	var accepted store.FriendRequest
	status = srv.do(t, http.MethodPut, "/api/users/friend-request/"+sent.ID+"/accept", "bob", &accepted)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, store.StatusAccepted, accepted.Status)

	status = srv.do(t, http.MethodPut, "/api/users/friend-request/"+sent.ID+"/accept", "bob", &accepted)
	assert.Equal(t, http.StatusOK, status, "accept is idempotent")

	var friends []store.User
	status = srv.do(t, http.MethodGet, "/api/users/friends", "alice", &friends)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, friends, 1)
	assert.Equal(t, "bob", friends[0].ID)
	assert.Equal(t, "User bob", friends[0].FullName)

	status = srv.do(t, http.MethodGet, "/api/users/friends", "bob", &friends)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, friends, 1)
	assert.Equal(t, "alice", friends[0].ID)
}

func TestFriendHandlers_ErrorMapping(t *testing.T) {
	srv := createFullTestServer(t, "alice", "bob", "carol")

	var errBody struct {
		Error string `json:"error"`
	}

	assert.Equal(t, http.StatusBadRequest, srv.do(t, http.MethodPost, "/api/users/friend-request/alice", "alice", &errBody))
	assert.NotEmpty(t, errBody.Error)

	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodPost, "/api/users/friend-request/ghost", "alice", &errBody))

	var sent store.FriendRequest
	require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, "/api/users/friend-request/bob", "alice", &sent))

	assert.Equal(t, http.StatusForbidden, srv.do(t, http.MethodPut, "/api/users/friend-request/"+sent.ID+"/accept", "alice", &errBody))
	assert.Equal(t, http.StatusForbidden, srv.do(t, http.MethodPut, "/api/users/friend-request/"+sent.ID+"/accept", "carol", &errBody))
	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodPut, "/api/users/friend-request/nope/accept", "bob", &errBody))

	require.Equal(t, http.StatusOK, srv.do(t, http.MethodPut, "/api/users/friend-request/"+sent.ID+"/accept", "bob", nil))
	assert.Equal(t, http.StatusConflict, srv.do(t, http.MethodPost, "/api/users/friend-request/bob", "alice", &errBody))
}

func TestFriendHandlers_RequiresAuth(t *testing.T) {
	srv := createFullTestServer(t, "alice")

	for _, path := range []string{
		"/api/users",
		"/api/users/friends",
		"/api/users/friend-requests",
		"/api/users/outgoing-friend-requests",
		"/api/users/incoming-friend-requests",
	} {
		assert.Equal(t, http.StatusUnauthorized, srv.do(t, http.MethodGet, path, "", nil), path)
	}
}

func TestFriendHandlers_ListsAndRecommendations(t *testing.T) {
	srv := createFullTestServer(t, "alice", "bob", "carol", "dave")

	require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, "/api/users/friend-request/bob", "alice", nil))
	require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, "/api/users/friend-request/alice", "carol", nil))

	var outgoing []store.RequestView
	require.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/api/users/outgoing-friend-requests", "alice", &outgoing))
	require.Len(t, outgoing, 1)
	assert.Equal(t, "bob", outgoing[0].User.ID)

	var incoming []store.RequestView
	require.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/api/users/incoming-friend-requests", "alice", &incoming))
	require.Len(t, incoming, 1)
	assert.Equal(t, "carol", incoming[0].User.ID)

	var recs []store.User
	require.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/api/users", "alice", &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "dave", recs[0].ID)

	var notifications struct {
		IncomingReqs []store.RequestView `json:"incomingReqs"`
		AcceptedReqs []store.RequestView `json:"acceptedReqs"`
	}
	require.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/api/users/friend-requests", "alice", &notifications))
	assert.Len(t, notifications.IncomingReqs, 1)
	assert.Empty(t, notifications.AcceptedReqs)

	require.Equal(t, http.StatusOK, srv.do(t, http.MethodPut, "/api/users/friend-request/"+outgoing[0].ID+"/accept", "bob", nil))
	require.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/api/users/friend-requests", "alice", &notifications))
	require.Len(t, notifications.AcceptedReqs, 1)
	assert.Equal(t, "bob", notifications.AcceptedReqs[0].User.ID)
}
