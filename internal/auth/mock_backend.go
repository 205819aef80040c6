package auth

import (
	"context"

	"github.com/stretchr/testify/mock"

	"profile-portal/internal/model"
	"profile-portal/internal/session"
)

type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) Login(ctx context.Context, credentials model.LoginCredentials) (session.Tokens, error) {
	args := m.Called(ctx, credentials)
	return args.Get(0).(session.Tokens), args.Error(1)
}

func (m *MockBackend) FetchProfile(ctx context.Context) (*model.UserProfile, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserProfile), args.Error(1)
}

func (m *MockBackend) UpdateProfile(ctx context.Context, dto model.UpdateProfileDto) (*model.UserProfile, error) {
	args := m.Called(ctx, dto)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserProfile), args.Error(1)
}

func (m *MockBackend) UpdatePhoto(ctx context.Context, upload model.PhotoUpload) (*model.UserProfile, error) {
	args := m.Called(ctx, upload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserProfile), args.Error(1)
}
