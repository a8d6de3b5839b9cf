// Package storage persists posts, comments, likes and profiles for the
// development API server.
package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MosinFAM/decentratweet/internal/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
)

// MaxCommentLength is the longest comment the backend stores.
const MaxCommentLength = 2000

// Storage is implemented by every backend (in-memory and PostgreSQL).
// Likes are toggles: liking twice removes the like.
type Storage interface {
	ListPosts(ctx context.Context, page, limit int) ([]models.Post, int, error)
	GetPost(ctx context.Context, id string) (*models.Post, error)
	AddPost(ctx context.Context, wallet, content string) (models.Post, error)
	DeletePost(ctx context.Context, id, wallet string) error
	TogglePostLike(ctx context.Context, id, wallet string) (bool, error)

	GetComment(ctx context.Context, id string) (*models.Comment, error)
	ListComments(ctx context.Context, postID string, page, limit int) ([]models.Comment, int, error)
	AddComment(ctx context.Context, postID, wallet, content string) (*models.Comment, error)
	ToggleCommentLike(ctx context.Context, id, wallet string) (bool, error)
	// SubscribeToComments delivers comments added to postID until ctx ends.
	SubscribeToComments(ctx context.Context, postID string) (<-chan *models.Comment, error)

	GetUser(ctx context.Context, wallet string) (*models.Profile, error)
	SaveUser(ctx context.Context, profile models.Profile) (models.Profile, error)
}

// NormalizeAddress is the form wallet addresses are stored under.
func NormalizeAddress(wallet string) string {
	return strings.ToLower(strings.TrimSpace(wallet))
}

func offset(page, limit int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func likesOf(addresses []string) models.Likes {
	out := make(models.Likes, 0, len(addresses))
	for _, a := range addresses {
		out = append(out, models.Like{WalletAddress: a})
	}
	return out
}
