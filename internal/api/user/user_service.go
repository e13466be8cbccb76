package user

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/polkaapp/polka-api/internal/api/auth"
	"github.com/polkaapp/polka-api/internal/types"
)

var _ UserService = (*UserServiceImpl)(nil)

type UserService interface {
	GetProfile(ctx context.Context, userID string) (*ProfileResponse, error)
	UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*types.User, error)
	GetCompletionStatus(ctx context.Context, userID string) (*CompletionStatus, error)
	ListOAuthAccounts(ctx context.Context, userID string) ([]types.OAuthAccount, error)
}

type UserServiceImpl struct {
	repo     UserRepo
	authRepo auth.AuthRepo
	logger   *slog.Logger
}

func NewUserService(repo UserRepo, authRepo auth.AuthRepo, logger *slog.Logger) *UserServiceImpl {
	return &UserServiceImpl{repo: repo, authRepo: authRepo, logger: logger}
}

// GetProfile assembles the user row with favorite brands and styles.
func (s *UserServiceImpl) GetProfile(ctx context.Context, userID string) (*ProfileResponse, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "GetProfile")
	defer span.End()

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		span.SetStatus(codes.Error, "Failed to load user")
		return nil, fmt.Errorf("error fetching user: %w", err)
	}

	brands, err := s.repo.GetFavoriteBrands(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to load brands")
		return nil, err
	}
	styles, err := s.repo.GetFavoriteStyles(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to load styles")
		return nil, err
	}

	if brands == nil {
		brands = []types.Brand{}
	}
	if styles == nil {
		styles = []types.Style{}
	}

	span.SetStatus(codes.Ok, "Profile assembled")
	return &ProfileResponse{
		User:              *user,
		Brands:            brands,
		Styles:            styles,
		IsProfileComplete: user.IsProfileComplete(),
	}, nil
}

func (s *UserServiceImpl) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*types.User, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "UpdateProfile")
	defer span.End()
	l := s.logger.With(slog.String("method", "UpdateProfile"), slog.String("userID", userID))

	user, err := s.repo.UpdateProfile(ctx, userID, UpdateProfileParams{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Gender:       req.Gender,
		SelectedSize: req.SelectedSize,
		AvatarURL:    req.AvatarURL,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to update profile")
		return nil, fmt.Errorf("error updating profile: %w", err)
	}

	l.InfoContext(ctx, "Profile updated")
	span.SetStatus(codes.Ok, "Profile updated")
	return user, nil
}

// GetCompletionStatus reports the onboarding fields still missing.
func (s *UserServiceImpl) GetCompletionStatus(ctx context.Context, userID string) (*CompletionStatus, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error fetching user: %w", err)
	}

	missing := []string{}
	if user.FirstName == nil || *user.FirstName == "" {
		missing = append(missing, "first_name")
	}
	if user.LastName == nil || *user.LastName == "" {
		missing = append(missing, "last_name")
	}

	return &CompletionStatus{
		Complete:      len(missing) == 0,
		MissingFields: missing,
	}, nil
}

func (s *UserServiceImpl) ListOAuthAccounts(ctx context.Context, userID string) ([]types.OAuthAccount, error) {
	accounts, err := s.authRepo.ListOAuthAccountsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing linked accounts: %w", err)
	}
	if accounts == nil {
		accounts = []types.OAuthAccount{}
	}
	return accounts, nil
}
