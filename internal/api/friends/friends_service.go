package friends

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/polkaapp/polka-api/internal/types"
)

var _ FriendsService = (*FriendsServiceImpl)(nil)

type FriendsService interface {
	// SendRequest creates a pending request from sender to recipient.
	// Self-requests fail validation; an existing friendship or a duplicate
	// pending pair surfaces as types.ErrConflict.
	SendRequest(ctx context.Context, senderID, recipientID string) (*types.FriendRequest, error)
	// AcceptRequest is recipient-only and creates both friendship directions.
	AcceptRequest(ctx context.Context, userID, requestID string) error
	// RejectRequest is recipient-only.
	RejectRequest(ctx context.Context, userID, requestID string) error
	// CancelRequest is sender-only.
	CancelRequest(ctx context.Context, userID, requestID string) error
	ListFriends(ctx context.Context, userID string) ([]types.UserSummary, error)
	ListRequests(ctx context.Context, userID, direction string) ([]types.FriendRequest, error)
}

type FriendsServiceImpl struct {
	repo   FriendsRepo
	logger *slog.Logger
}

func NewFriendsService(repo FriendsRepo, logger *slog.Logger) *FriendsServiceImpl {
	return &FriendsServiceImpl{repo: repo, logger: logger}
}

func (s *FriendsServiceImpl) SendRequest(ctx context.Context, senderID, recipientID string) (*types.FriendRequest, error) {
	ctx, span := otel.Tracer("FriendsService").Start(ctx, "SendRequest")
	defer span.End()
	l := s.logger.With(slog.String("method", "SendRequest"), slog.String("senderID", senderID))

	if senderID == recipientID {
		return nil, fmt.Errorf("cannot send a friend request to yourself: %w", types.ErrValidation)
	}

	already, err := s.repo.FriendshipExists(ctx, senderID, recipientID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Friendship check failed")
		return nil, err
	}
	if already {
		return nil, fmt.Errorf("already friends: %w", types.ErrConflict)
	}

	request, err := s.repo.CreateRequest(ctx, senderID, recipientID)
	if err != nil {
		span.SetStatus(codes.Error, "Create request failed")
		return nil, err
	}

	l.InfoContext(ctx, "Friend request sent", slog.String("requestID", request.ID))
	span.SetStatus(codes.Ok, "Friend request sent")
	return request, nil
}

func (s *FriendsServiceImpl) AcceptRequest(ctx context.Context, userID, requestID string) error {
	ctx, span := otel.Tracer("FriendsService").Start(ctx, "AcceptRequest")
	defer span.End()

	request, err := s.repo.GetRequestByID(ctx, requestID)
	if err != nil {
		span.SetStatus(codes.Error, "Request lookup failed")
		return err
	}
	if request.RecipientID != userID {
		return fmt.Errorf("only the recipient can accept a request: %w", types.ErrForbidden)
	}
	if request.Status != types.FriendRequestPending {
		return fmt.Errorf("request is not pending: %w", types.ErrConflict)
	}

	if err := s.repo.AcceptRequest(ctx, requestID, request.SenderID, request.RecipientID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Accept failed")
		return err
	}

	s.logger.InfoContext(ctx, "Friend request accepted", slog.String("requestID", requestID))
	span.SetStatus(codes.Ok, "Friend request accepted")
	return nil
}

func (s *FriendsServiceImpl) RejectRequest(ctx context.Context, userID, requestID string) error {
	request, err := s.repo.GetRequestByID(ctx, requestID)
	if err != nil {
		return err
	}
	if request.RecipientID != userID {
		return fmt.Errorf("only the recipient can reject a request: %w", types.ErrForbidden)
	}
	if request.Status != types.FriendRequestPending {
		return fmt.Errorf("request is not pending: %w", types.ErrConflict)
	}
	return s.repo.UpdateRequestStatus(ctx, requestID, types.FriendRequestRejected)
}

func (s *FriendsServiceImpl) CancelRequest(ctx context.Context, userID, requestID string) error {
	request, err := s.repo.GetRequestByID(ctx, requestID)
	if err != nil {
		return err
	}
	if request.SenderID != userID {
		return fmt.Errorf("only the sender can cancel a request: %w", types.ErrForbidden)
	}
	if request.Status != types.FriendRequestPending {
		return fmt.Errorf("request is not pending: %w", types.ErrConflict)
	}
	return s.repo.UpdateRequestStatus(ctx, requestID, types.FriendRequestCancelled)
}

func (s *FriendsServiceImpl) ListFriends(ctx context.Context, userID string) ([]types.UserSummary, error) {
	friends, err := s.repo.ListFriends(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing friends: %w", err)
	}
	if friends == nil {
		friends = []types.UserSummary{}
	}
	return friends, nil
}

func (s *FriendsServiceImpl) ListRequests(ctx context.Context, userID, direction string) ([]types.FriendRequest, error) {
	if direction != "sent" && direction != "received" {
		return nil, fmt.Errorf("direction must be sent or received: %w", types.ErrValidation)
	}
	requests, err := s.repo.ListRequests(ctx, userID, direction)
	if err != nil {
		return nil, fmt.Errorf("error listing friend requests: %w", err)
	}
	if requests == nil {
		requests = []types.FriendRequest{}
	}
	return requests, nil
}
