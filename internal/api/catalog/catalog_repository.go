package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/polkaapp/polka-api/internal/types"
)

// DB is the subset of pgxpool.Pool the repository needs; pgxmock satisfies it.
// Begin is required because replacing a favorite set is transactional.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ CatalogRepo = (*PostgresCatalogRepo)(nil)

type CatalogRepo interface {
	ListBrands(ctx context.Context) ([]types.Brand, error)
	ListStyles(ctx context.Context) ([]types.Style, error)
	// SetUserBrands replaces the user's favorite-brand set. Unknown brand ids
	// return types.ErrNotFound and leave the previous set intact.
	SetUserBrands(ctx context.Context, userID string, brandIDs []int) error
	// SetUserStyles replaces the user's favorite-style set with the same
	// semantics as SetUserBrands.
	SetUserStyles(ctx context.Context, userID string, styleIDs []string) error
}

type PostgresCatalogRepo struct {
	db     DB
	logger *slog.Logger
}

func NewPostgresCatalogRepo(db DB, logger *slog.Logger) *PostgresCatalogRepo {
	return &PostgresCatalogRepo{db: db, logger: logger}
}

func (r *PostgresCatalogRepo) ListBrands(ctx context.Context) ([]types.Brand, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, slug, logo, description, created_at, updated_at
         FROM brands ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying brands: %w", err)
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
		return nil, fmt.Errorf("iterating brands: %w", err)
	}
	return brands, nil
}

func (r *PostgresCatalogRepo) ListStyles(ctx context.Context) ([]types.Style, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, description, image, created_at, updated_at
         FROM styles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying styles: %w", err)
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
		return nil, fmt.Errorf("iterating styles: %w", err)
	}
	return styles, nil
}

func (r *PostgresCatalogRepo) SetUserBrands(ctx context.Context, userID string, brandIDs []int) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var count int
	if err := tx.QueryRow(ctx,
		`SELECT count(*) FROM brands WHERE id = ANY($1)`, brandIDs).Scan(&count); err != nil {
		return fmt.Errorf("validating brand ids: %w", err)
	}
	if count != len(brandIDs) {
		return fmt.Errorf("%w: one or more brand ids do not exist", types.ErrNotFound)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM user_brands WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clearing favorite brands: %w", err)
	}
	for _, brandID := range brandIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO user_brands (user_id, brand_id) VALUES ($1, $2)`, userID, brandID); err != nil {
			return fmt.Errorf("inserting favorite brand %d: %w", brandID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing favorite brands: %w", err)
	}
	return nil
}

func (r *PostgresCatalogRepo) SetUserStyles(ctx context.Context, userID string, styleIDs []string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var count int
	if err := tx.QueryRow(ctx,
		`SELECT count(*) FROM styles WHERE id = ANY($1)`, styleIDs).Scan(&count); err != nil {
		return fmt.Errorf("validating style ids: %w", err)
	}
	if count != len(styleIDs) {
		return fmt.Errorf("%w: one or more style ids do not exist", types.ErrNotFound)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM user_styles WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clearing favorite styles: %w", err)
	}
	for _, styleID := range styleIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO user_styles (user_id, style_id) VALUES ($1, $2)`, userID, styleID); err != nil {
			return fmt.Errorf("inserting favorite style %s: %w", styleID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing favorite styles: %w", err)
	}
	return nil
}
