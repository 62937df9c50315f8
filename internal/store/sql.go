package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/saxenasajal03/ConnectX/internal/db"
	"github.com/saxenasajal03/ConnectX/internal/db/types"
	"go.uber.org/zap"
)

const (
	userColumns    = "u.id, u.full_name, u.bio, u.profile_pic, u.location, u.native_language, u.learning_language, u.is_onboarded, u.created_at"
	requestColumns = "r.id, r.pair_key, r.sender_id, r.recipient_id, r.status, r.created_at, r.updated_at"
)

// SQLStore implements Store on database/sql for every supported dialect.
type SQLStore struct {
	dbConn  *sql.DB
	dialect db.Dialect
	logger  *zap.Logger
	now     func() types.Timestamp
}

func NewSQLStore(dbConn *sql.DB, dialect db.Dialect, logger *zap.Logger) *SQLStore {
	return &SQLStore{
		dbConn:  dbConn,
		dialect: dialect,
		logger:  logger,
		now:     types.Now,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.FullName, &u.Bio, &u.ProfilePic, &u.Location,
		&u.NativeLanguage, &u.LearningLanguage, &u.IsOnboarded, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func scanRequest(row rowScanner) (*FriendRequest, error) {
	var r FriendRequest
	if err := row.Scan(&r.ID, &r.PairKey, &r.SenderID, &r.RecipientID, &r.Status, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func scanRequestView(row rowScanner) (*RequestView, error) {
	var v RequestView
	r, u := &v.FriendRequest, &v.User
	if err := row.Scan(&r.ID, &r.PairKey, &r.SenderID, &r.RecipientID, &r.Status, &r.CreatedAt, &r.UpdatedAt,
		&u.ID, &u.FullName, &u.Bio, &u.ProfilePic, &u.Location,
		&u.NativeLanguage, &u.LearningLanguage, &u.IsOnboarded, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &v, nil
}

// dbTime hands drivers a plain string; not every driver consults driver.Valuer.
func dbTime(t types.Timestamp) any {
	v, _ := t.Value()
	return v
}

func (s *SQLStore) q(query string) string {
	return s.dialect.Rebind(query)
}

func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.dbConn.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w: %w", ErrUnavailable, err)
	}
	return nil
}

func (s *SQLStore) GetUser(ctx context.Context, id string) (*User, error) {
	row := s.dbConn.QueryRowContext(ctx, s.q("SELECT "+userColumns+" FROM users u WHERE u.id = ?"), id)
	u, err := scanUser(row)
	if err != nil {
		return nil, wrapErr("get user", err)
	}
	return u, nil
}

func (s *SQLStore) UpsertUser(ctx context.Context, user *User) error {
	if !ValidUserID(user.ID) {
		return fmt.Errorf("%w: %q", ErrInvalidUser, user.ID)
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}
	query := `INSERT INTO users (id, full_name, bio, profile_pic, location, native_language, learning_language, is_onboarded, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)` +
		s.dialect.Upsert("id", "full_name", "bio", "profile_pic", "location", "native_language", "learning_language", "is_onboarded")
	_, err := s.dbConn.ExecContext(ctx, s.q(query),
		user.ID, user.FullName, user.Bio, user.ProfilePic, user.Location,
		user.NativeLanguage, user.LearningLanguage, user.IsOnboarded, dbTime(user.CreatedAt))
	if err != nil {
		return wrapErr("upsert user", err)
	}
	return nil
}

func (s *SQLStore) FindRequest(ctx context.Context, pairKey string) (*FriendRequest, error) {
	row := s.dbConn.QueryRowContext(ctx, s.q("SELECT "+requestColumns+" FROM friend_requests r WHERE r.pair_key = ?"), pairKey)
	r, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("find friend request", err)
	}
	return r, nil
}

func (s *SQLStore) GetRequest(ctx context.Context, id string) (*FriendRequest, error) {
	row := s.dbConn.QueryRowContext(ctx, s.q("SELECT "+requestColumns+" FROM friend_requests r WHERE r.id = ?"), id)
	r, err := scanRequest(row)
	if err != nil {
		return nil, wrapErr("get friend request", err)
	}
	return r, nil
}

// CreateRequestIfAbsent relies on the unique pair_key: the insert either
// lands or is discarded by the conflict clause, and a discarded insert is
// answered with the row that won.
func (s *SQLStore) CreateRequestIfAbsent(ctx context.Context, senderID, recipientID string) (*FriendRequest, bool, error) {
	if senderID == recipientID || !ValidUserID(senderID) || !ValidUserID(recipientID) {
		return nil, false, ErrInvalidPair
	}

	now := s.now()
	req := &FriendRequest{
		ID:          uuid.NewString(),
		PairKey:     PairKey(senderID, recipientID),
		SenderID:    senderID,
		RecipientID: recipientID,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	query := `INSERT INTO friend_requests (id, pair_key, sender_id, recipient_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)` + s.dialect.IgnoreConflict("pair_key")
	res, err := s.dbConn.ExecContext(ctx, s.q(query),
		req.ID, req.PairKey, req.SenderID, req.RecipientID, string(req.Status), dbTime(req.CreatedAt), dbTime(req.UpdatedAt))
	if err != nil {
		return nil, false, wrapErr("create friend request", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, wrapErr("create friend request", err)
	}
	if n == 1 {
		return req, true, nil
	}

	existing, err := s.FindRequest(ctx, req.PairKey)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("create friend request: pair %s conflicted but no record found", req.PairKey)
	}
	s.logger.Debug("friend request already exists for pair",
		zap.String("pair_key", existing.PairKey),
		zap.String("request_id", existing.ID),
		zap.String("status", string(existing.Status)))
	return existing, false, nil
}

// AcceptRequest runs the compare-and-set and the friendship projection in
// one transaction. The row is locked before it is inspected so concurrent
// accepts serialize and the loser observes the accepted state.
func (s *SQLStore) AcceptRequest(ctx context.Context, requestID, actingUserID string) (*FriendRequest, bool, error) {
	tx, err := s.dbConn.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, wrapErr("begin accept", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, s.q("SELECT "+requestColumns+" FROM friend_requests r WHERE r.id = ?"+s.dialect.ForUpdate()), requestID)
	req, err := scanRequest(row)
	if err != nil {
		return nil, false, wrapErr("load friend request", err)
	}
	if req.RecipientID != actingUserID {
		return nil, false, ErrForbidden
	}
	if req.Status == StatusAccepted {
		if err := tx.Commit(); err != nil {
			return nil, false, wrapErr("commit accept", err)
		}
		return req, false, nil
	}

	now := s.now()
	res, err := tx.ExecContext(ctx, s.q("UPDATE friend_requests SET status = ?, updated_at = ? WHERE id = ? AND status = ?"),
		string(StatusAccepted), dbTime(now), req.ID, string(StatusPending))
	if err != nil {
		return nil, false, wrapErr("accept friend request", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, wrapErr("accept friend request", err)
	}
	if n == 0 {
		// Lost the race despite the lock; report the winner's state.
		s.logger.Warn("accept lost compare-and-set", zap.String("request_id", req.ID))
		current, err := scanRequest(tx.QueryRowContext(ctx, s.q("SELECT "+requestColumns+" FROM friend_requests r WHERE r.id = ?"), req.ID))
		if err != nil {
			return nil, false, wrapErr("reload friend request", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, false, wrapErr("commit accept", err)
		}
		return current, false, nil
	}

	insert := s.q("INSERT INTO friendships (user_id, friend_id, request_id, created_at) VALUES (?, ?, ?, ?)" +
		s.dialect.IgnoreConflict("user_id", "friend_id"))
	for _, pair := range [][2]string{{req.SenderID, req.RecipientID}, {req.RecipientID, req.SenderID}} {
		if _, err := tx.ExecContext(ctx, insert, pair[0], pair[1], req.ID, dbTime(now)); err != nil {
			return nil, false, wrapErr("materialize friendship", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, false, wrapErr("commit accept", err)
	}

	req.Status = StatusAccepted
	req.UpdatedAt = now
	return req, true, nil
}

func (s *SQLStore) ListFriends(ctx context.Context, userID string) ([]User, error) {
	query := "SELECT " + userColumns + ` FROM friendships f
		JOIN users u ON u.id = f.friend_id
		WHERE f.user_id = ?
		ORDER BY u.id`
	return s.queryUsers(ctx, "list friends", query, userID)
}

func (s *SQLStore) ListOutgoing(ctx context.Context, userID string) ([]RequestView, error) {
	query := "SELECT " + requestColumns + ", " + userColumns + ` FROM friend_requests r
		JOIN users u ON u.id = r.recipient_id
		WHERE r.sender_id = ? AND r.status = ?
		ORDER BY r.created_at, r.id`
	return s.queryRequestViews(ctx, "list outgoing requests", query, userID, string(StatusPending))
}

func (s *SQLStore) ListIncoming(ctx context.Context, userID string) ([]RequestView, error) {
	query := "SELECT " + requestColumns + ", " + userColumns + ` FROM friend_requests r
		JOIN users u ON u.id = r.sender_id
		WHERE r.recipient_id = ? AND r.status = ?
		ORDER BY r.created_at, r.id`
	return s.queryRequestViews(ctx, "list incoming requests", query, userID, string(StatusPending))
}

func (s *SQLStore) ListAcceptedOutgoing(ctx context.Context, userID string) ([]RequestView, error) {
	query := "SELECT " + requestColumns + ", " + userColumns + ` FROM friend_requests r
		JOIN users u ON u.id = r.recipient_id
		WHERE r.sender_id = ? AND r.status = ?
		ORDER BY r.updated_at DESC, r.id`
	return s.queryRequestViews(ctx, "list accepted requests", query, userID, string(StatusAccepted))
}

func (s *SQLStore) ListCandidates(ctx context.Context, cq CandidateQuery) ([]User, error) {
	query := "SELECT " + userColumns + " FROM users u WHERE u.id > ?"
	args := []any{cq.After}
	if cq.OnboardedOnly {
		query += " AND u.is_onboarded = ?"
		args = append(args, true)
	}
	if cq.UnrelatedTo != "" {
		// Evaluated in the same statement as the page, so a request committed
		// concurrently is seen for a candidate either entirely or not at all.
		query += ` AND u.id <> ? AND NOT EXISTS (
			SELECT 1 FROM friend_requests r
			WHERE (r.sender_id = ? AND r.recipient_id = u.id)
			   OR (r.sender_id = u.id AND r.recipient_id = ?))`
		args = append(args, cq.UnrelatedTo, cq.UnrelatedTo, cq.UnrelatedTo)
	}
	query += " ORDER BY u.id LIMIT ?"
	args = append(args, cq.Limit)
	return s.queryUsers(ctx, "list candidates", query, args...)
}

func (s *SQLStore) queryUsers(ctx context.Context, op, query string, args ...any) ([]User, error) {
	rows, err := s.dbConn.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, wrapErr(op, err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(op, err)
	}
	return users, nil
}

func (s *SQLStore) queryRequestViews(ctx context.Context, op, query string, args ...any) ([]RequestView, error) {
	rows, err := s.dbConn.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer rows.Close()

	views := []RequestView{}
	for rows.Next() {
		v, err := scanRequestView(rows)
		if err != nil {
			return nil, wrapErr(op, err)
		}
		views = append(views, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(op, err)
	}
	return views, nil
}
