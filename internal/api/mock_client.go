package api

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/MosinFAM/decentratweet/internal/models"
)

// MockClient is a testify mock with the method set of Client.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) ListPosts(ctx context.Context, page, limit int) (*models.PostsPage, error) {
	args := m.Called(ctx, page, limit)
	out, _ := args.Get(0).(*models.PostsPage)
	return out, args.Error(1)
}

func (m *MockClient) GetPost(ctx context.Context, id string) (*models.Post, error) {
	args := m.Called(ctx, id)
	out, _ := args.Get(0).(*models.Post)
	return out, args.Error(1)
}

func (m *MockClient) CreatePost(ctx context.Context, wallet, content string) (*models.Post, error) {
	args := m.Called(ctx, wallet, content)
	out, _ := args.Get(0).(*models.Post)
	return out, args.Error(1)
}

func (m *MockClient) DeletePost(ctx context.Context, id, wallet string) error {
	args := m.Called(ctx, id, wallet)
	return args.Error(0)
}

func (m *MockClient) LikePost(ctx context.Context, id, wallet string) error {
	args := m.Called(ctx, id, wallet)
	return args.Error(0)
}

func (m *MockClient) ListComments(ctx context.Context, postID string, page, limit int) (*models.CommentsPage, error) {
	args := m.Called(ctx, postID, page, limit)
	out, _ := args.Get(0).(*models.CommentsPage)
	return out, args.Error(1)
}

func (m *MockClient) CreateComment(ctx context.Context, postID, wallet, content string) (*models.Comment, error) {
	args := m.Called(ctx, postID, wallet, content)
	out, _ := args.Get(0).(*models.Comment)
	return out, args.Error(1)
}

func (m *MockClient) LikeComment(ctx context.Context, id, wallet string) error {
	args := m.Called(ctx, id, wallet)
	return args.Error(0)
}

func (m *MockClient) StreamComments(ctx context.Context, postID string) (<-chan models.Comment, error) {
	args := m.Called(ctx, postID)
	out, _ := args.Get(0).(chan models.Comment)
	return out, args.Error(1)
}

func (m *MockClient) Verify(ctx context.Context, req models.VerifyRequest) (*models.VerifyResponse, error) {
	args := m.Called(ctx, req)
	out, _ := args.Get(0).(*models.VerifyResponse)
	return out, args.Error(1)
}

func (m *MockClient) GetUser(ctx context.Context, wallet string) (*models.Profile, error) {
	args := m.Called(ctx, wallet)
	out, _ := args.Get(0).(*models.Profile)
	return out, args.Error(1)
}

func (m *MockClient) SaveUser(ctx context.Context, profile models.Profile) (*models.Profile, error) {
	args := m.Called(ctx, profile)
	out, _ := args.Get(0).(*models.Profile)
	return out, args.Error(1)
}
