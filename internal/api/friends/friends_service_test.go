package friends

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/polkaapp/polka-api/internal/types"
)

// MockFriendsRepo is a mock implementation of the FriendsRepo interface
type MockFriendsRepo struct {
	mock.Mock
}

func (m *MockFriendsRepo) CreateRequest(ctx context.Context, senderID, recipientID string) (*types.FriendRequest, error) {
	args := m.Called(ctx, senderID, recipientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.FriendRequest), args.Error(1)
}

func (m *MockFriendsRepo) GetRequestByID(ctx context.Context, requestID string) (*types.FriendRequest, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.FriendRequest), args.Error(1)
}

func (m *MockFriendsRepo) UpdateRequestStatus(ctx context.Context, requestID string, status types.FriendRequestStatus) error {
	args := m.Called(ctx, requestID, status)
	return args.Error(0)
}

func (m *MockFriendsRepo) AcceptRequest(ctx context.Context, requestID, senderID, recipientID string) error {
	args := m.Called(ctx, requestID, senderID, recipientID)
	return args.Error(0)
}

func (m *MockFriendsRepo) FriendshipExists(ctx context.Context, userID, friendID string) (bool, error) {
	args := m.Called(ctx, userID, friendID)
	return args.Bool(0), args.Error(1)
}

func (m *MockFriendsRepo) ListFriends(ctx context.Context, userID string) ([]types.UserSummary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.UserSummary), args.Error(1)
}

func (m *MockFriendsRepo) ListRequests(ctx context.Context, userID, direction string) ([]types.FriendRequest, error) {
	args := m.Called(ctx, userID, direction)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.FriendRequest), args.Error(1)
}

func pendingRequest() *types.FriendRequest {
	return &types.FriendRequest{
		ID:          "req1",
		SenderID:    "sender1",
		RecipientID: "recipient1",
		Status:      types.FriendRequestPending,
	}
}

func TestSendRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockFriendsRepo)
		service := NewFriendsService(mockRepo, slog.Default())

		mockRepo.On("FriendshipExists", mock.Anything, "sender1", "recipient1").Return(false, nil).Once()
		mockRepo.On("CreateRequest", mock.Anything, "sender1", "recipient1").Return(pendingRequest(), nil).Once()

		request, err := service.SendRequest(ctx, "sender1", "recipient1")
		require.NoError(t, err)
		assert.Equal(t, types.FriendRequestPending, request.Status)
		mockRepo.AssertExpectations(t)
	})

	t.Run("SelfRequest", func(t *testing.T) {
		mockRepo := new(MockFriendsRepo)
		service := NewFriendsService(mockRepo, slog.Default())

		_, err := service.SendRequest(ctx, "user1", "user1")
		assert.ErrorIs(t, err, types.ErrValidation)
		mockRepo.AssertNotCalled(t, "CreateRequest")
	})

	t.Run("AlreadyFriends", func(t *testing.T) {
		mockRepo := new(MockFriendsRepo)
		service := NewFriendsService(mockRepo, slog.Default())

		mockRepo.On("FriendshipExists", mock.Anything, "sender1", "recipient1").Return(true, nil).Once()

		_, err := service.SendRequest(ctx, "sender1", "recipient1")
		assert.ErrorIs(t, err, types.ErrConflict)
		mockRepo.AssertNotCalled(t, "CreateRequest")
	})

	t.Run("DuplicatePendingPair", func(t *testing.T) {
		mockRepo := new(MockFriendsRepo)
		service := NewFriendsService(mockRepo, slog.Default())

		mockRepo.On("FriendshipExists", mock.Anything, "sender1", "recipient1").Return(false, nil).Once()
		mockRepo.On("CreateRequest", mock.Anything, "sender1", "recipient1").Return(nil, types.ErrConflict).Once()

		_, err := service.SendRequest(ctx, "sender1", "recipient1")
		assert.ErrorIs(t, err, types.ErrConflict)
	})
}

func TestAcceptRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockFriendsRepo)
		service := NewFriendsService(mockRepo, slog.Default())

		mockRepo.On("GetRequestByID", mock.Anything, "req1").Return(pendingRequest(), nil).Once()
		mockRepo.On("AcceptRequest", mock.Anything, "req1", "sender1", "recipient1").Return(nil).Once()

		assert.NoError(t, service.AcceptRequest(ctx, "recipient1", "req1"))
		mockRepo.AssertExpectations(t)
	})

	t.Run("OnlyRecipientMayAccept", func(t *testing.T) {
		mockRepo := new(MockFriendsRepo)
		service := NewFriendsService(mockRepo, slog.Default())

		mockRepo.On("GetRequestByID", mock.Anything, "req1").Return(pendingRequest(), nil).Once()

		err := service.AcceptRequest(ctx, "sender1", "req1")
		assert.ErrorIs(t, err, types.ErrForbidden)
		mockRepo.AssertNotCalled(t, "AcceptRequest")
	})

	t.Run("NotPending", func(t *testing.T) {
		mockRepo := new(MockFriendsRepo)
		service := NewFriendsService(mockRepo, slog.Default())

		accepted := pendingRequest()
		accepted.Status = types.FriendRequestAccepted
		mockRepo.On("GetRequestByID", mock.Anything, "req1").Return(accepted, nil).Once()

		err := service.AcceptRequest(ctx, "recipient1", "req1")
		assert.ErrorIs(t, err, types.ErrConflict)
	})

	t.Run("NotFound", func(t *testing.T) {
		mockRepo := new(MockFriendsRepo)
		service := NewFriendsService(mockRepo, slog.Default())

		mockRepo.On("GetRequestByID", mock.Anything, "missing").Return(nil, types.ErrNotFound).Once()

		err := service.AcceptRequest(ctx, "recipient1", "missing")
		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestRejectAndCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("RecipientRejects", func(t *testing.T) {
		mockRepo := new(MockFriendsRepo)
		service := NewFriendsService(mockRepo, slog.Default())

		mockRepo.On("GetRequestByID", ctx, "req1").Return(pendingRequest(), nil).Once()
		mockRepo.On("UpdateRequestStatus", ctx, "req1", types.FriendRequestRejected).Return(nil).Once()

		assert.NoError(t, service.RejectRequest(ctx, "recipient1", "req1"))
	})

	t.Run("SenderCannotReject", func(t *testing.T) {
		mockRepo := new(MockFriendsRepo)
		service := NewFriendsService(mockRepo, slog.Default())

		mockRepo.On("GetRequestByID", ctx, "req1").Return(pendingRequest(), nil).Once()

		assert.ErrorIs(t, service.RejectRequest(ctx, "sender1", "req1"), types.ErrForbidden)
	})

	t.Run("SenderCancels", func(t *testing.T) {
		mockRepo := new(MockFriendsRepo)
		service := NewFriendsService(mockRepo, slog.Default())

		mockRepo.On("GetRequestByID", ctx, "req1").Return(pendingRequest(), nil).Once()
		mockRepo.On("UpdateRequestStatus", ctx, "req1", types.FriendRequestCancelled).Return(nil).Once()

		assert.NoError(t, service.CancelRequest(ctx, "sender1", "req1"))
	})

	t.Run("RecipientCannotCancel", func(t *testing.T) {
		mockRepo := new(MockFriendsRepo)
		service := NewFriendsService(mockRepo, slog.Default())

		mockRepo.On("GetRequestByID", ctx, "req1").Return(pendingRequest(), nil).Once()

		assert.ErrorIs(t, service.CancelRequest(ctx, "recipient1", "req1"), types.ErrForbidden)
	})
}

func TestListRequests(t *testing.T) {
	ctx := context.Background()

	t.Run("Received", func(t *testing.T) {
		mockRepo := new(MockFriendsRepo)
		service := NewFriendsService(mockRepo, slog.Default())

		mockRepo.On("ListRequests", ctx, "user1", "received").
			Return([]types.FriendRequest{*pendingRequest()}, nil).Once()

		requests, err := service.ListRequests(ctx, "user1", "received")
		require.NoError(t, err)
		assert.Len(t, requests, 1)
	})

	t.Run("BadDirection", func(t *testing.T) {
		mockRepo := new(MockFriendsRepo)
		service := NewFriendsService(mockRepo, slog.Default())

		_, err := service.ListRequests(ctx, "user1", "sideways")
		assert.ErrorIs(t, err, types.ErrValidation)
		mockRepo.AssertNotCalled(t, "ListRequests")
	})

	t.Run("EmptyIsNotNull", func(t *testing.T) {
		mockRepo := new(MockFriendsRepo)
		service := NewFriendsService(mockRepo, slog.Default())

		mockRepo.On("ListRequests", ctx, "user1", "sent").
			Return([]types.FriendRequest(nil), nil).Once()

		requests, err := service.ListRequests(ctx, "user1", "sent")
		require.NoError(t, err)
		assert.NotNil(t, requests)
		assert.Empty(t, requests)
	})
}
