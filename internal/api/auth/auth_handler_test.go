package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/polkaapp/polka-api/internal/api/oauth"
	"github.com/polkaapp/polka-api/internal/types"
)

// MockAuthService is a mock implementation of the AuthService interface
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, req RegisterRequest) (*LoginResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*LoginResult), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	args := m.Called(ctx, identifier, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*LoginResult), args.Error(1)
}

func (m *MockAuthService) OAuthLogin(ctx context.Context, provider, externalToken string) (*LoginResult, error) {
	args := m.Called(ctx, provider, externalToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*LoginResult), args.Error(1)
}

func (m *MockAuthService) LinkExternalIdentity(ctx context.Context, provider string, profile *oauth.Profile, creds oauth.Credentials) (*LoginResult, error) {
	args := m.Called(ctx, provider, profile, creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*LoginResult), args.Error(1)
}

func (m *MockAuthService) GetUserByID(ctx context.Context, userID string) (*types.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockAuthService) Providers() []ProviderInfo {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]ProviderInfo)
}

func testLoginResult() *LoginResult {
	return &LoginResult{
		Token:     "signed.jwt.token",
		ExpiresAt: time.Now().Add(15 * time.Minute),
		User:      &types.User{ID: "user123", Username: "johndoe", Email: "john@example.com"},
	}
}

func postJSON(t *testing.T, handler http.HandlerFunc, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func TestRegisterHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := NewAuthHandler(mockService, nil, nil, slog.Default())

		mockService.On("Register", mock.Anything, mock.AnythingOfType("RegisterRequest")).
			Return(testLoginResult(), nil).Once()

		rr := postJSON(t, handler.Register, "/auth/register", RegisterRequest{
			Username: "johndoe",
			Email:    "john@example.com",
			Password: "password123",
		})

		assert.Equal(t, http.StatusCreated, rr.Code)
		var resp AuthResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "signed.jwt.token", resp.Token)
		assert.Equal(t, "user123", resp.User.ID)
		mockService.AssertExpectations(t)
	})

	t.Run("Conflict", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := NewAuthHandler(mockService, nil, nil, slog.Default())

		mockService.On("Register", mock.Anything, mock.AnythingOfType("RegisterRequest")).
			Return(nil, types.ErrConflict).Once()

		rr := postJSON(t, handler.Register, "/auth/register", RegisterRequest{
			Username: "johndoe",
			Email:    "john@example.com",
			Password: "password123",
		})

		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("Validation", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := NewAuthHandler(mockService, nil, nil, slog.Default())

		mockService.On("Register", mock.Anything, mock.AnythingOfType("RegisterRequest")).
			Return(nil, types.ErrValidation).Once()

		rr := postJSON(t, handler.Register, "/auth/register", RegisterRequest{
			Username: "jd",
			Email:    "john@example.com",
			Password: "password123",
		})

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("MalformedBody", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := NewAuthHandler(mockService, nil, nil, slog.Default())

		req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader([]byte("{not json")))
		rr := httptest.NewRecorder()
		handler.Register(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "Register")
	})
}

func TestLoginHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := NewAuthHandler(mockService, nil, nil, slog.Default())

		mockService.On("Login", mock.Anything, "john@example.com", "password123").
			Return(testLoginResult(), nil).Once()

		rr := postJSON(t, handler.Login, "/auth/login", LoginRequest{
			Identifier: "john@example.com",
			Password:   "password123",
		})

		assert.Equal(t, http.StatusOK, rr.Code)
		var resp AuthResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "signed.jwt.token", resp.Token)
		mockService.AssertExpectations(t)
	})

	t.Run("BadCredentials", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := NewAuthHandler(mockService, nil, nil, slog.Default())

		mockService.On("Login", mock.Anything, "john@example.com", "wrong").
			Return(nil, types.ErrUnauthenticated).Once()

		rr := postJSON(t, handler.Login, "/auth/login", LoginRequest{
			Identifier: "john@example.com",
			Password:   "wrong",
		})

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Contains(t, rr.Body.String(), "invalid credentials")
	})
}

func TestOAuthLoginHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := NewAuthHandler(mockService, nil, nil, slog.Default())

		mockService.On("OAuthLogin", mock.Anything, "google", "provider-token").
			Return(testLoginResult(), nil).Once()

		rr := postJSON(t, handler.OAuthLogin, "/auth/oauth/login", OAuthLoginRequest{
			Provider: "google",
			Token:    "provider-token",
		})

		assert.Equal(t, http.StatusOK, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("UnsupportedProvider", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := NewAuthHandler(mockService, nil, nil, slog.Default())

		mockService.On("OAuthLogin", mock.Anything, "myspace", "provider-token").
			Return(nil, types.ErrUnsupportedProvider).Once()

		rr := postJSON(t, handler.OAuthLogin, "/auth/oauth/login", OAuthLoginRequest{
			Provider: "myspace",
			Token:    "provider-token",
		})

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("ResolutionFailed", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := NewAuthHandler(mockService, nil, nil, slog.Default())

		mockService.On("OAuthLogin", mock.Anything, "google", "bad-token").
			Return(nil, types.ErrResolutionFailed).Once()

		rr := postJSON(t, handler.OAuthLogin, "/auth/oauth/login", OAuthLoginRequest{
			Provider: "google",
			Token:    "bad-token",
		})

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestProvidersHandler(t *testing.T) {
	mockService := new(MockAuthService)
	handler := NewAuthHandler(mockService, nil, nil, slog.Default())

	mockService.On("Providers").Return([]ProviderInfo{
		{Provider: "google", ClientID: "id", RedirectURL: "https://api.example.com/auth/oauth/callback/google", Scope: "email"},
	}).Once()

	req := httptest.NewRequest(http.MethodGet, "/auth/oauth/providers", nil)
	rr := httptest.NewRecorder()
	handler.Providers(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var infos []ProviderInfo
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &infos))
	require.Len(t, infos, 1)
	assert.Equal(t, "google", infos[0].Provider)
}

func TestLogoutHandler(t *testing.T) {
	mockService := new(MockAuthService)
	handler := NewAuthHandler(mockService, nil, nil, slog.Default())

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	rr := httptest.NewRecorder()
	handler.Logout(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "true")
}

func TestAuthenticateMiddleware(t *testing.T) {
	issuer := newTestIssuer(t)
	mw := NewMiddleware(issuer, nil, slog.Default())

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserIDFromContext(r.Context())
		require.True(t, ok)
		w.Write([]byte(userID))
	})
	protected := mw.Authenticate(next)

	t.Run("ValidToken", func(t *testing.T) {
		token, _, err := issuer.Issue("user123", 0)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		protected.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "user123", rr.Body.String())
	})

	t.Run("MissingHeader", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		rr := httptest.NewRecorder()
		protected.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("NotBearer", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		rr := httptest.NewRecorder()
		protected.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("GarbageToken", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		req.Header.Set("Authorization", "Bearer not.a.token")
		rr := httptest.NewRecorder()
		protected.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
