package feed

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/MosinFAM/decentratweet/internal/models"
)

// LoadPostDetail fetches a post and the first page of its comments in
// parallel.
func LoadPostDetail(ctx context.Context, posts *Posts, comments *Comments, postID string) (*models.Post, error) {
	var post *models.Post
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := posts.FetchPost(gctx, postID)
		post = p
		return err
	})
	g.Go(func() error {
		return comments.FetchComments(gctx, postID, 1, 0)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return post, nil
}
