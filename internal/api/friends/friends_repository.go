package friends

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/polkaapp/polka-api/internal/types"
)

// DB is the subset of pgxpool.Pool the repository needs; pgxmock satisfies it.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ FriendsRepo = (*PostgresFriendsRepo)(nil)

type FriendsRepo interface {
	// CreateRequest inserts a pending request; a duplicate (sender, recipient)
	// pair surfaces as types.ErrConflict.
	CreateRequest(ctx context.Context, senderID, recipientID string) (*types.FriendRequest, error)
	GetRequestByID(ctx context.Context, requestID string) (*types.FriendRequest, error)
	// UpdateRequestStatus moves a pending request to a terminal state.
	UpdateRequestStatus(ctx context.Context, requestID string, status types.FriendRequestStatus) error
	// AcceptRequest transitions the request and inserts both friendship
	// directions in one transaction.
	AcceptRequest(ctx context.Context, requestID, senderID, recipientID string) error
	FriendshipExists(ctx context.Context, userID, friendID string) (bool, error)
	ListFriends(ctx context.Context, userID string) ([]types.UserSummary, error)
	ListRequests(ctx context.Context, userID, direction string) ([]types.FriendRequest, error)
}

type PostgresFriendsRepo struct {
	db     DB
	logger *slog.Logger
}

func NewPostgresFriendsRepo(db DB, logger *slog.Logger) *PostgresFriendsRepo {
	return &PostgresFriendsRepo{db: db, logger: logger}
}

const requestColumns = `id, sender_id, recipient_id, status, created_at, updated_at`

func scanRequest(row pgx.Row) (*types.FriendRequest, error) {
	var fr types.FriendRequest
	err := row.Scan(&fr.ID, &fr.SenderID, &fr.RecipientID, &fr.Status, &fr.CreatedAt, &fr.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("scanning friend request row: %w", err)
	}
	return &fr, nil
}

func (r *PostgresFriendsRepo) CreateRequest(ctx context.Context, senderID, recipientID string) (*types.FriendRequest, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO friend_requests (sender_id, recipient_id, status)
         VALUES ($1, $2, 'pending')
         RETURNING `+requestColumns, senderID, recipientID)

	request, err := scanRequest(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, types.ErrConflict
		}
		return nil, fmt.Errorf("create friend request: %w", err)
	}
	return request, nil
}

func (r *PostgresFriendsRepo) GetRequestByID(ctx context.Context, requestID string) (*types.FriendRequest, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM friend_requests WHERE id = $1`, requestID)
	return scanRequest(row)
}

func (r *PostgresFriendsRepo) UpdateRequestStatus(ctx context.Context, requestID string, status types.FriendRequestStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE friend_requests SET status = $2, updated_at = now()
         WHERE id = $1 AND status = 'pending'`, requestID, status)
	if err != nil {
		return fmt.Errorf("update friend request status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *PostgresFriendsRepo) AcceptRequest(ctx context.Context, requestID, senderID, recipientID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE friend_requests SET status = 'accepted', updated_at = now()
         WHERE id = $1 AND status = 'pending'`, requestID)
	if err != nil {
		return fmt.Errorf("accepting friend request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO friendships (user_id, friend_id) VALUES ($1, $2), ($2, $1)`,
		senderID, recipientID); err != nil {
		if isUniqueViolation(err) {
			return types.ErrConflict
		}
		return fmt.Errorf("inserting friendship rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing friend acceptance: %w", err)
	}
	return nil
}

func (r *PostgresFriendsRepo) FriendshipExists(ctx context.Context, userID, friendID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM friendships WHERE user_id = $1 AND friend_id = $2)`,
		userID, friendID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking friendship: %w", err)
	}
	return exists, nil
}

func (r *PostgresFriendsRepo) ListFriends(ctx context.Context, userID string) ([]types.UserSummary, error) {
	rows, err := r.db.Query(ctx,
		`SELECT u.id, u.username, u.email, u.first_name, u.last_name, u.avatar_url
         FROM users u
         JOIN friendships f ON f.friend_id = u.id
         WHERE f.user_id = $1
         ORDER BY u.username`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying friends: %w", err)
	}
	defer rows.Close()

	var friends []types.UserSummary
	for rows.Next() {
		var s types.UserSummary
		if err := rows.Scan(&s.ID, &s.Username, &s.Email, &s.FirstName, &s.LastName, &s.AvatarURL); err != nil {
			return nil, fmt.Errorf("scanning friend row: %w", err)
		}
		friends = append(friends, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating friends: %w", err)
	}
	return friends, nil
}

func (r *PostgresFriendsRepo) ListRequests(ctx context.Context, userID, direction string) ([]types.FriendRequest, error) {
	column := "recipient_id"
	if direction == "sent" {
		column = "sender_id"
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+requestColumns+` FROM friend_requests
         WHERE `+column+` = $1 AND status = 'pending'
         ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying friend requests: %w", err)
	}
	defer rows.Close()

	var requests []types.FriendRequest
	for rows.Next() {
		var fr types.FriendRequest
		if err := rows.Scan(&fr.ID, &fr.SenderID, &fr.RecipientID, &fr.Status, &fr.CreatedAt, &fr.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning friend request row: %w", err)
		}
		requests = append(requests, fr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating friend requests: %w", err)
	}
	return requests, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
