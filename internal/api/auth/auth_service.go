package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/polkaapp/polka-api/config"
	"github.com/polkaapp/polka-api/internal/api/oauth"
	"github.com/polkaapp/polka-api/internal/types"
)

var (
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_\-#$!]+$`)
)

// maxLinkAttempts bounds the conflict-retry loop of the linking procedure.
// A retry only happens when a concurrent request won a unique-constraint race,
// so more than a couple of attempts means something is genuinely wrong.
const maxLinkAttempts = 3

// maxUsernameProbes bounds the numeric-suffix probing before falling back to
// a random suffix. The source system probed without bound; the cap plus the
// random fallback gives a hard termination guarantee under contention.
const maxUsernameProbes = 50

var _ AuthService = (*AuthServiceImpl)(nil)

// AuthService is the business-logic contract for identity operations.
type AuthService interface {
	// Register creates a password-based account and issues a session token.
	Register(ctx context.Context, req RegisterRequest) (*LoginResult, error)

	// Login authenticates by email-or-username identifier plus password.
	// Unknown identifier, missing password credential and wrong password all
	// return types.ErrUnauthenticated without distinction.
	Login(ctx context.Context, identifier, password string) (*LoginResult, error)

	// OAuthLogin resolves a provider credential and runs the linking procedure.
	OAuthLogin(ctx context.Context, provider, externalToken string) (*LoginResult, error)

	// LinkExternalIdentity runs the linking procedure for an already-resolved
	// profile (shared by the token path and the web callback flow).
	LinkExternalIdentity(ctx context.Context, provider string, profile *oauth.Profile, creds oauth.Credentials) (*LoginResult, error)

	// GetUserByID loads one user; used by the middleware-backed endpoints.
	GetUserByID(ctx context.Context, userID string) (*types.User, error)

	// Providers lists the enabled OAuth providers for client bootstrapping.
	Providers() []ProviderInfo
}

// AuthServiceImpl implements AuthService. It holds its configuration and
// collaborators explicitly; there are no package-level singletons.
type AuthServiceImpl struct {
	repo      AuthRepo
	resolvers *oauth.Registry
	tokens    *TokenIssuer
	hasher    *Hasher
	cfg       *config.Config
	logger    *slog.Logger
}

func NewAuthService(repo AuthRepo, resolvers *oauth.Registry, tokens *TokenIssuer, hasher *Hasher, cfg *config.Config, logger *slog.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		repo:      repo,
		resolvers: resolvers,
		tokens:    tokens,
		hasher:    hasher,
		cfg:       cfg,
		logger:    logger,
	}
}

// Register creates a new password-based user.
func (s *AuthServiceImpl) Register(ctx context.Context, req RegisterRequest) (*LoginResult, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Register", trace.WithAttributes(
		attribute.String("user.username", req.Username),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "Register"), slog.String("username", req.Username))

	if err := s.validateRegistration(req); err != nil {
		return nil, err
	}

	hash, err := s.hasher.HashPassword(req.Password)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to hash password")
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user, err := s.repo.CreateUser(ctx, CreateUserParams{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: &hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
	})
	if err != nil {
		if errors.Is(err, types.ErrConflict) {
			l.WarnContext(ctx, "Registration conflict")
			return nil, fmt.Errorf("email or username already taken: %w", types.ErrConflict)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create user")
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	l.InfoContext(ctx, "User registered", slog.String("userID", user.ID))
	span.SetStatus(codes.Ok, "User registered")
	return s.issueFor(user)
}

// Login authenticates with an email or username identifier.
func (s *AuthServiceImpl) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Login")
	defer span.End()
	l := s.logger.With(slog.String("method", "Login"))

	var user *types.User
	var err error
	switch {
	case emailPattern.MatchString(identifier):
		user, err = s.repo.GetUserByEmail(ctx, identifier)
	case usernamePattern.MatchString(identifier):
		user, err = s.repo.GetUserByUsername(ctx, identifier)
	default:
		return nil, fmt.Errorf("identifier is neither an email nor a username: %w", types.ErrValidation)
	}

	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			l.WarnContext(ctx, "Login attempt for unknown identifier")
			return nil, types.ErrUnauthenticated
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to load user")
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	// OAuth-only accounts have no password credential; they must go through
	// a linked identity. Same opaque error as a wrong password.
	if user.PasswordHash == nil || !s.hasher.CheckPassword(password, *user.PasswordHash) {
		l.WarnContext(ctx, "Invalid credentials", slog.String("userID", user.ID))
		return nil, types.ErrUnauthenticated
	}

	span.SetStatus(codes.Ok, "Login succeeded")
	return s.issueFor(user)
}

// OAuthLogin resolves the external credential through the provider registry
// and runs the linking procedure. Unknown providers and failed resolutions
// cause no store mutation.
func (s *AuthServiceImpl) OAuthLogin(ctx context.Context, provider, externalToken string) (*LoginResult, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "OAuthLogin", trace.WithAttributes(
		attribute.String("oauth.provider", provider),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "OAuthLogin"), slog.String("provider", provider))

	resolver, ok := s.resolvers.Lookup(provider)
	if !ok {
		l.WarnContext(ctx, "Unknown OAuth provider requested")
		return nil, types.ErrUnsupportedProvider
	}

	profile, err := resolver.Resolve(ctx, externalToken)
	if err != nil {
		l.WarnContext(ctx, "OAuth resolution failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Resolution failed")
		return nil, err
	}

	return s.LinkExternalIdentity(ctx, provider, profile, oauth.Credentials{AccessToken: externalToken})
}

// LinkExternalIdentity decides, in this order, whether the resolved identity
// belongs to an already-linked account, merges into an existing user by email,
// or creates a new account. A unique-constraint conflict on any create means a
// concurrent request won the race; the procedure restarts from the lookup path.
func (s *AuthServiceImpl) LinkExternalIdentity(ctx context.Context, provider string, profile *oauth.Profile, creds oauth.Credentials) (*LoginResult, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "LinkExternalIdentity", trace.WithAttributes(
		attribute.String("oauth.provider", provider),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "LinkExternalIdentity"), slog.String("provider", provider))

	var user *types.User
	var err error
	for attempt := 1; attempt <= maxLinkAttempts; attempt++ {
		user, err = s.resolveLinkedUser(ctx, l, provider, profile, creds)
		if err == nil {
			break
		}
		if !errors.Is(err, types.ErrConflict) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Linking failed")
			return nil, err
		}
		l.InfoContext(ctx, "Lost linking race, retrying lookup", slog.Int("attempt", attempt))
	}
	if err != nil {
		span.SetStatus(codes.Error, "Linking retries exhausted")
		return nil, fmt.Errorf("linking retries exhausted: %w", err)
	}

	span.SetStatus(codes.Ok, "External identity linked")
	return s.issueFor(user)
}

// resolveLinkedUser is one pass of the linking decision procedure.
func (s *AuthServiceImpl) resolveLinkedUser(ctx context.Context, l *slog.Logger, provider string, profile *oauth.Profile, creds oauth.Credentials) (*types.User, error) {
	// 1. Returning OAuth user: refresh the cached tokens in place.
	account, err := s.repo.GetOAuthAccount(ctx, provider, profile.ProviderUserID)
	if err == nil {
		if uerr := s.repo.UpdateOAuthAccountTokens(ctx, account.ID, creds); uerr != nil {
			l.WarnContext(ctx, "Failed to refresh cached provider tokens", slog.Any("error", uerr))
		}
		return s.repo.GetUserByID(ctx, account.UserID)
	}
	if !errors.Is(err, types.ErrNotFound) {
		return nil, fmt.Errorf("error looking up linked identity: %w", err)
	}

	if profile.Email == "" {
		// Without an email there is nothing to merge on and no valid user row
		// to create. Treat as a resolution failure; no store mutation happened.
		return nil, fmt.Errorf("%w: provider did not supply an email", types.ErrResolutionFailed)
	}

	// 2. Merge-by-email: attach this provider identity to the existing
	// account. Accepted trade-off: whoever controls the provider account with
	// this email gains access to the local account sharing it.
	user, err := s.repo.GetUserByEmail(ctx, profile.Email)
	if err == nil {
		if _, cerr := s.createLink(ctx, user.ID, provider, profile, creds); cerr != nil {
			return nil, cerr
		}
		l.InfoContext(ctx, "Linked new provider identity to existing user", slog.String("userID", user.ID))
		return user, nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		return nil, fmt.Errorf("error looking up user by email: %w", err)
	}

	// 3. New account: generated username, no password credential.
	username, err := s.generateUniqueUsername(ctx, profile)
	if err != nil {
		return nil, err
	}

	params := CreateUserParams{
		Username:   username,
		Email:      profile.Email,
		IsVerified: profile.Verified,
	}
	if profile.FirstName != "" {
		params.FirstName = &profile.FirstName
	}
	if profile.LastName != "" {
		params.LastName = &profile.LastName
	}
	if profile.AvatarURL != "" {
		params.AvatarURL = &profile.AvatarURL
	}

	user, err = s.repo.CreateUser(ctx, params)
	if err != nil {
		return nil, err
	}
	if _, err := s.createLink(ctx, user.ID, provider, profile, creds); err != nil {
		return nil, err
	}

	l.InfoContext(ctx, "Created new user from provider identity",
		slog.String("userID", user.ID), slog.String("username", username))
	return user, nil
}

func (s *AuthServiceImpl) createLink(ctx context.Context, userID, provider string, profile *oauth.Profile, creds oauth.Credentials) (*types.OAuthAccount, error) {
	params := CreateOAuthAccountParams{
		UserID:         userID,
		Provider:       provider,
		ProviderUserID: profile.ProviderUserID,
		ExpiresAt:      creds.ExpiresAt,
	}
	if creds.AccessToken != "" {
		params.AccessToken = &creds.AccessToken
	}
	if creds.RefreshToken != "" {
		params.RefreshToken = &creds.RefreshToken
	}
	return s.repo.CreateOAuthAccount(ctx, params)
}

// generateUniqueUsername derives a base from the profile's display-name hint,
// falls back to the email local-part and then to "user", and probes numeric
// suffixes. After maxUsernameProbes it appends a random suffix instead.
func (s *AuthServiceImpl) generateUniqueUsername(ctx context.Context, profile *oauth.Profile) (string, error) {
	base := sanitizeUsername(profile.FirstName)
	if base == "" {
		local, _, _ := strings.Cut(profile.Email, "@")
		base = sanitizeUsername(local)
	}
	if base == "" {
		base = "user"
	}
	if max := s.cfg.Auth.MaxUsernameLength; max > 8 && len(base) > max-8 {
		base = base[:max-8]
	}

	candidate := base
	for i := 1; i <= maxUsernameProbes; i++ {
		_, err := s.repo.GetUserByUsername(ctx, candidate)
		if errors.Is(err, types.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("error probing username %q: %w", candidate, err)
		}
		candidate = fmt.Sprintf("%s%d", base, i)
	}

	return fmt.Sprintf("%s-%s", base, uuid.NewString()[:8]), nil
}

func (s *AuthServiceImpl) GetUserByID(ctx context.Context, userID string) (*types.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error fetching user: %w", err)
	}
	return user, nil
}

// Providers lists enabled providers with the data clients need to start a flow.
func (s *AuthServiceImpl) Providers() []ProviderInfo {
	var infos []ProviderInfo
	for _, name := range s.resolvers.Names() {
		p := s.cfg.OAuth.Providers[name]
		infos = append(infos, ProviderInfo{
			Provider:    name,
			ClientID:    p.ClientID,
			RedirectURL: strings.TrimRight(s.cfg.OAuth.RedirectURL, "/") + "/" + name,
			Scope:       p.Scope,
		})
	}
	return infos
}

func (s *AuthServiceImpl) issueFor(user *types.User) (*LoginResult, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID, 0)
	if err != nil {
		return nil, fmt.Errorf("error issuing access token: %w", err)
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func (s *AuthServiceImpl) validateRegistration(req RegisterRequest) error {
	if len(req.Username) < s.cfg.Auth.MinUsernameLength {
		return fmt.Errorf("username must be at least %d characters: %w", s.cfg.Auth.MinUsernameLength, types.ErrValidation)
	}
	if max := s.cfg.Auth.MaxUsernameLength; max > 0 && len(req.Username) > max {
		return fmt.Errorf("username must be at most %d characters: %w", max, types.ErrValidation)
	}
	if !usernamePattern.MatchString(req.Username) {
		return fmt.Errorf("username contains invalid characters: %w", types.ErrValidation)
	}
	if !emailPattern.MatchString(req.Email) {
		return fmt.Errorf("invalid email address: %w", types.ErrValidation)
	}
	if len(req.Password) < s.cfg.Auth.MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters: %w", s.cfg.Auth.MinPasswordLength, types.ErrValidation)
	}
	if strings.ContainsRune(req.Password, ' ') {
		return fmt.Errorf("password cannot contain spaces: %w", types.ErrValidation)
	}
	var hasLetter, hasDigit bool
	for _, r := range req.Password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return fmt.Errorf("password must contain both letters and numbers: %w", types.ErrValidation)
	}
	return nil
}

// sanitizeUsername lowercases and strips everything outside [a-z0-9_-].
func sanitizeUsername(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
