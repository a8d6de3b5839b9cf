package storage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/MosinFAM/decentratweet/internal/models"
)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) ListPosts(ctx context.Context, page, limit int) ([]models.Post, int, error) {
	args := m.Called(ctx, page, limit)
	posts, _ := args.Get(0).([]models.Post)
	return posts, args.Int(1), args.Error(2)
}

func (m *MockStorage) GetPost(ctx context.Context, id string) (*models.Post, error) {
	args := m.Called(ctx, id)
	post, _ := args.Get(0).(*models.Post)
	return post, args.Error(1)
}

func (m *MockStorage) AddPost(ctx context.Context, wallet, content string) (models.Post, error) {
	args := m.Called(ctx, wallet, content)
	return args.Get(0).(models.Post), args.Error(1)
}

func (m *MockStorage) DeletePost(ctx context.Context, id, wallet string) error {
	args := m.Called(ctx, id, wallet)
	return args.Error(0)
}

func (m *MockStorage) TogglePostLike(ctx context.Context, id, wallet string) (bool, error) {
	args := m.Called(ctx, id, wallet)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) GetComment(ctx context.Context, id string) (*models.Comment, error) {
	args := m.Called(ctx, id)
	comment, _ := args.Get(0).(*models.Comment)
	return comment, args.Error(1)
}

func (m *MockStorage) ListComments(ctx context.Context, postID string, page, limit int) ([]models.Comment, int, error) {
	args := m.Called(ctx, postID, page, limit)
	comments, _ := args.Get(0).([]models.Comment)
	return comments, args.Int(1), args.Error(2)
}

func (m *MockStorage) AddComment(ctx context.Context, postID, wallet, content string) (*models.Comment, error) {
	args := m.Called(ctx, postID, wallet, content)
	comment, _ := args.Get(0).(*models.Comment)
	return comment, args.Error(1)
}

func (m *MockStorage) ToggleCommentLike(ctx context.Context, id, wallet string) (bool, error) {
	args := m.Called(ctx, id, wallet)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) SubscribeToComments(ctx context.Context, postID string) (<-chan *models.Comment, error) {
	args := m.Called(ctx, postID)
	ch, _ := args.Get(0).(chan *models.Comment)
	return ch, args.Error(1)
}

func (m *MockStorage) GetUser(ctx context.Context, wallet string) (*models.Profile, error) {
	args := m.Called(ctx, wallet)
	profile, _ := args.Get(0).(*models.Profile)
	return profile, args.Error(1)
}

func (m *MockStorage) SaveUser(ctx context.Context, profile models.Profile) (models.Profile, error) {
	args := m.Called(ctx, profile)
	return args.Get(0).(models.Profile), args.Error(1)
}
