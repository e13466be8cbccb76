package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/polkaapp/polka-api/internal/api/oauth"
	"github.com/polkaapp/polka-api/internal/types"
)

// DB is the subset of pgxpool.Pool the repository needs; pgxmock satisfies it.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// CreateUserParams carries the fields for a new user row. PasswordHash is nil
// for accounts created via OAuth.
type CreateUserParams struct {
	Username     string
	Email        string
	PasswordHash *string
	FirstName    *string
	LastName     *string
	AvatarURL    *string
	IsVerified   bool
}

// CreateOAuthAccountParams carries the fields for a new linked identity.
type CreateOAuthAccountParams struct {
	UserID         string
	Provider       string
	ProviderUserID string
	AccessToken    *string
	RefreshToken   *string
	ExpiresAt      *time.Time
}

var _ AuthRepo = (*PostgresAuthRepo)(nil)

// AuthRepo is the narrow identity-store interface the linking engine consumes.
// The store enforces the unique constraints on email, username and the
// (provider, provider_user_id) pair; violations surface as types.ErrConflict.
type AuthRepo interface {
	GetUserByID(ctx context.Context, userID string) (*types.User, error)
	GetUserByEmail(ctx context.Context, email string) (*types.User, error)
	GetUserByUsername(ctx context.Context, username string) (*types.User, error)
	CreateUser(ctx context.Context, params CreateUserParams) (*types.User, error)
	GetOAuthAccount(ctx context.Context, provider, providerUserID string) (*types.OAuthAccount, error)
	CreateOAuthAccount(ctx context.Context, params CreateOAuthAccountParams) (*types.OAuthAccount, error)
	UpdateOAuthAccountTokens(ctx context.Context, accountID string, creds oauth.Credentials) error
	ListOAuthAccountsByUser(ctx context.Context, userID string) ([]types.OAuthAccount, error)
}

// PostgresAuthRepo implements AuthRepo on pgx.
type PostgresAuthRepo struct {
	db     DB
	logger *slog.Logger
}

func NewPostgresAuthRepo(db DB, logger *slog.Logger) *PostgresAuthRepo {
	return &PostgresAuthRepo{db: db, logger: logger}
}

const userColumns = `id, username, email, password_hash, first_name, last_name,
       gender, selected_size, avatar_url, is_active, is_verified, created_at, updated_at`

func scanUser(row pgx.Row) (*types.User, error) {
	var u types.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FirstName,
		&u.LastName, &u.Gender, &u.SelectedSize, &u.AvatarURL, &u.IsActive,
		&u.IsVerified, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("scanning user row: %w", err)
	}
	return &u, nil
}

func (r *PostgresAuthRepo) GetUserByID(ctx context.Context, userID string) (*types.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	return scanUser(row)
}

func (r *PostgresAuthRepo) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (r *PostgresAuthRepo) GetUserByUsername(ctx context.Context, username string) (*types.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	return scanUser(row)
}

// CreateUser inserts a user row, returning types.ErrConflict when the email or
// username unique constraint fires.
func (r *PostgresAuthRepo) CreateUser(ctx context.Context, params CreateUserParams) (*types.User, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO users (username, email, password_hash, first_name, last_name, avatar_url, is_verified)
         VALUES ($1, $2, $3, $4, $5, $6, $7)
         RETURNING `+userColumns,
		params.Username, params.Email, params.PasswordHash, params.FirstName,
		params.LastName, params.AvatarURL, params.IsVerified)

	user, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, types.ErrConflict
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func scanOAuthAccount(row pgx.Row) (*types.OAuthAccount, error) {
	var a types.OAuthAccount
	err := row.Scan(&a.ID, &a.UserID, &a.Provider, &a.ProviderUserID,
		&a.AccessToken, &a.RefreshToken, &a.ExpiresAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("scanning oauth account row: %w", err)
	}
	return &a, nil
}

const oauthAccountColumns = `id, user_id, provider, provider_user_id, access_token,
       refresh_token, expires_at, created_at, updated_at`

func (r *PostgresAuthRepo) GetOAuthAccount(ctx context.Context, provider, providerUserID string) (*types.OAuthAccount, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+oauthAccountColumns+` FROM oauth_accounts WHERE provider = $1 AND provider_user_id = $2`,
		provider, providerUserID)
	return scanOAuthAccount(row)
}

// CreateOAuthAccount inserts a linked identity, returning types.ErrConflict
// when the (provider, provider_user_id) constraint fires. The linking engine
// treats that conflict as "someone else linked it concurrently" and retries
// the lookup path.
func (r *PostgresAuthRepo) CreateOAuthAccount(ctx context.Context, params CreateOAuthAccountParams) (*types.OAuthAccount, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO oauth_accounts (user_id, provider, provider_user_id, access_token, refresh_token, expires_at)
         VALUES ($1, $2, $3, $4, $5, $6)
         RETURNING `+oauthAccountColumns,
		params.UserID, params.Provider, params.ProviderUserID,
		params.AccessToken, params.RefreshToken, params.ExpiresAt)

	account, err := scanOAuthAccount(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, types.ErrConflict
		}
		return nil, fmt.Errorf("create oauth account: %w", err)
	}
	return account, nil
}

// UpdateOAuthAccountTokens refreshes cached provider tokens in place. Empty
// token strings leave the stored value untouched.
func (r *PostgresAuthRepo) UpdateOAuthAccountTokens(ctx context.Context, accountID string, creds oauth.Credentials) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE oauth_accounts
         SET access_token  = COALESCE(NULLIF($2, ''), access_token),
             refresh_token = COALESCE(NULLIF($3, ''), refresh_token),
             expires_at    = COALESCE($4, expires_at),
             updated_at    = now()
         WHERE id = $1`,
		accountID, creds.AccessToken, creds.RefreshToken, creds.ExpiresAt)
	if err != nil {
		return fmt.Errorf("update oauth account tokens: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *PostgresAuthRepo) ListOAuthAccountsByUser(ctx context.Context, userID string) ([]types.OAuthAccount, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+oauthAccountColumns+` FROM oauth_accounts WHERE user_id = $1 ORDER BY created_at`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list oauth accounts: %w", err)
	}
	defer rows.Close()

	var accounts []types.OAuthAccount
	for rows.Next() {
		var a types.OAuthAccount
		if err := rows.Scan(&a.ID, &a.UserID, &a.Provider, &a.ProviderUserID,
			&a.AccessToken, &a.RefreshToken, &a.ExpiresAt, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning oauth account row: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating oauth accounts: %w", err)
	}
	return accounts, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
