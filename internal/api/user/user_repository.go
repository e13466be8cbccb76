package user

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
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UpdateProfileParams mirrors UpdateProfileRequest at the store boundary.
type UpdateProfileParams struct {
	FirstName    *string
	LastName     *string
	Gender       *string
	SelectedSize *string
	AvatarURL    *string
}

var _ UserRepo = (*PostgresUserRepo)(nil)

type UserRepo interface {
	GetUserByID(ctx context.Context, userID string) (*types.User, error)
	UpdateProfile(ctx context.Context, userID string, params UpdateProfileParams) (*types.User, error)
	GetFavoriteBrands(ctx context.Context, userID string) ([]types.Brand, error)
	GetFavoriteStyles(ctx context.Context, userID string) ([]types.Style, error)
}

type PostgresUserRepo struct {
	db     DB
	logger *slog.Logger
}

func NewPostgresUserRepo(db DB, logger *slog.Logger) *PostgresUserRepo {
	return &PostgresUserRepo{db: db, logger: logger}
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

func (r *PostgresUserRepo) GetUserByID(ctx context.Context, userID string) (*types.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	return scanUser(row)
}

// UpdateProfile applies only the non-nil fields and returns the updated row.
func (r *PostgresUserRepo) UpdateProfile(ctx context.Context, userID string, params UpdateProfileParams) (*types.User, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE users
         SET first_name    = COALESCE($2, first_name),
             last_name     = COALESCE($3, last_name),
             gender        = COALESCE($4, gender),
             selected_size = COALESCE($5, selected_size),
             avatar_url    = COALESCE($6, avatar_url),
             updated_at    = now()
         WHERE id = $1
         RETURNING `+userColumns,
		userID, params.FirstName, params.LastName, params.Gender,
		params.SelectedSize, params.AvatarURL)
	return scanUser(row)
}

func (r *PostgresUserRepo) GetFavoriteBrands(ctx context.Context, userID string) ([]types.Brand, error) {
	rows, err := r.db.Query(ctx,
		`SELECT b.id, b.name, b.slug, b.logo, b.description, b.created_at, b.updated_at
         FROM brands b
         JOIN user_brands ub ON ub.brand_id = b.id
         WHERE ub.user_id = $1
         ORDER BY b.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying favorite brands: %w", err)
	}
	defer rows.Close()

	var brands []types.Brand
	for rows.Next() {
		var b types.Brand
		if err := rows.Scan(&b.ID, &b.Name, &b.Slug, &b.Logo, &b.Description, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning brand row: %w", err)
		}
		brands = append(brands, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating favorite brands: %w", err)
	}
	return brands, nil
}

func (r *PostgresUserRepo) GetFavoriteStyles(ctx context.Context, userID string) ([]types.Style, error) {
	rows, err := r.db.Query(ctx,
		`SELECT s.id, s.name, s.description, s.image, s.created_at, s.updated_at
         FROM styles s
         JOIN user_styles us ON us.style_id = s.id
         WHERE us.user_id = $1
         ORDER BY s.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying favorite styles: %w", err)
	}
	defer rows.Close()

	var styles []types.Style
	for rows.Next() {
		var s types.Style
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.Image, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning style row: %w", err)
		}
		styles = append(styles, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating favorite styles: %w", err)
	}
	return styles, nil
}
