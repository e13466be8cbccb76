package auth

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polkaapp/polka-api/internal/api/oauth"
	"github.com/polkaapp/polka-api/internal/types"
)

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *PostgresAuthRepo) {
	t.Helper()
	mockPool, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return mockPool, NewPostgresAuthRepo(mockPool, slog.Default())
}

func userRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "username", "email", "password_hash", "first_name", "last_name",
		"gender", "selected_size", "avatar_url", "is_active", "is_verified",
		"created_at", "updated_at",
	})
}

func oauthAccountRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "user_id", "provider", "provider_user_id", "access_token",
		"refresh_token", "expires_at", "created_at", "updated_at",
	})
}

func TestGetUserByEmail(t *testing.T) {
	t.Run("Found", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)
		now := time.Now()
		hash := "bcrypt-digest"

		mockPool.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
			WithArgs("john@example.com").
			WillReturnRows(userRows().AddRow(
				"user123", "johndoe", "john@example.com", &hash, nil, nil,
				nil, nil, nil, true, false, now, now,
			))

		user, err := repo.GetUserByEmail(context.Background(), "john@example.com")
		require.NoError(t, err)
		assert.Equal(t, "user123", user.ID)
		assert.Equal(t, "johndoe", user.Username)
		require.NotNil(t, user.PasswordHash)
		assert.Equal(t, hash, *user.PasswordHash)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)

		mockPool.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
			WithArgs("nobody@example.com").
			WillReturnRows(userRows())

		_, err := repo.GetUserByEmail(context.Background(), "nobody@example.com")
		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestCreateUser(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)
		now := time.Now()
		hash := "bcrypt-digest"

		mockPool.ExpectQuery(`INSERT INTO users .+ RETURNING`).
			WithArgs("johndoe", "john@example.com", &hash, (*string)(nil), (*string)(nil), (*string)(nil), false).
			WillReturnRows(userRows().AddRow(
				"user123", "johndoe", "john@example.com", &hash, nil, nil,
				nil, nil, nil, true, false, now, now,
			))

		user, err := repo.CreateUser(context.Background(), CreateUserParams{
			Username:     "johndoe",
			Email:        "john@example.com",
			PasswordHash: &hash,
		})
		require.NoError(t, err)
		assert.Equal(t, "user123", user.ID)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("UniqueViolation", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)

		mockPool.ExpectQuery(`INSERT INTO users .+ RETURNING`).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

		_, err := repo.CreateUser(context.Background(), CreateUserParams{
			Username: "johndoe",
			Email:    "john@example.com",
		})
		assert.ErrorIs(t, err, types.ErrConflict)
	})
}

func TestGetOAuthAccount(t *testing.T) {
	t.Run("Found", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)
		now := time.Now()

		mockPool.ExpectQuery(`SELECT .+ FROM oauth_accounts WHERE provider = \$1 AND provider_user_id = \$2`).
			WithArgs("google", "goog-1").
			WillReturnRows(oauthAccountRows().AddRow(
				"acc1", "user123", "google", "goog-1", nil, nil, nil, now, now,
			))

		account, err := repo.GetOAuthAccount(context.Background(), "google", "goog-1")
		require.NoError(t, err)
		assert.Equal(t, "acc1", account.ID)
		assert.Equal(t, "user123", account.UserID)
	})

	t.Run("NotFound", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)

		mockPool.ExpectQuery(`SELECT .+ FROM oauth_accounts WHERE provider = \$1 AND provider_user_id = \$2`).
			WithArgs("google", "goog-404").
			WillReturnRows(oauthAccountRows())

		_, err := repo.GetOAuthAccount(context.Background(), "google", "goog-404")
		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestCreateOAuthAccount(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)
		now := time.Now()
		token := "provider-token"

		mockPool.ExpectQuery(`INSERT INTO oauth_accounts .+ RETURNING`).
			WithArgs("user123", "google", "goog-1", &token, (*string)(nil), (*time.Time)(nil)).
			WillReturnRows(oauthAccountRows().AddRow(
				"acc1", "user123", "google", "goog-1", &token, nil, nil, now, now,
			))

		account, err := repo.CreateOAuthAccount(context.Background(), CreateOAuthAccountParams{
			UserID:         "user123",
			Provider:       "google",
			ProviderUserID: "goog-1",
			AccessToken:    &token,
		})
		require.NoError(t, err)
		assert.Equal(t, "acc1", account.ID)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("ConcurrentLinkConflict", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)

		mockPool.ExpectQuery(`INSERT INTO oauth_accounts .+ RETURNING`).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "oauth_accounts_provider_provider_user_id_key"})

		_, err := repo.CreateOAuthAccount(context.Background(), CreateOAuthAccountParams{
			UserID:         "user123",
			Provider:       "google",
			ProviderUserID: "goog-1",
		})
		assert.ErrorIs(t, err, types.ErrConflict)
	})
}

func TestUpdateOAuthAccountTokens(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)

		mockPool.ExpectExec(`UPDATE oauth_accounts`).
			WithArgs("acc1", "new-token", "", (*time.Time)(nil)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.UpdateOAuthAccountTokens(context.Background(), "acc1",
			oauth.Credentials{AccessToken: "new-token"})
		assert.NoError(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("MissingAccount", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)

		mockPool.ExpectExec(`UPDATE oauth_accounts`).
			WithArgs("acc-404", "new-token", "", (*time.Time)(nil)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateOAuthAccountTokens(context.Background(), "acc-404",
			oauth.Credentials{AccessToken: "new-token"})
		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestListOAuthAccountsByUser(t *testing.T) {
	mockPool, repo := newMockRepo(t)
	now := time.Now()

	mockPool.ExpectQuery(`SELECT .+ FROM oauth_accounts WHERE user_id = \$1`).
		WithArgs("user123").
		WillReturnRows(oauthAccountRows().
			AddRow("acc1", "user123", "google", "goog-1", nil, nil, nil, now, now).
			AddRow("acc2", "user123", "github", "gh-1", nil, nil, nil, now, now))

	accounts, err := repo.ListOAuthAccountsByUser(context.Background(), "user123")
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "google", accounts[0].Provider)
	assert.Equal(t, "github", accounts[1].Provider)
}
