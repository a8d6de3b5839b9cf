package feed

import (
	"context"
	"fmt"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/MosinFAM/decentratweet/internal/models"
	"github.com/MosinFAM/decentratweet/internal/notify"
	"github.com/MosinFAM/decentratweet/internal/reconcile"
)

// maxCommentLength matches the limit the API enforces.
const maxCommentLength = 2000

// CommentsAPI is the part of the REST API comments need.
type CommentsAPI interface {
	ListComments(ctx context.Context, postID string, page, limit int) (*models.CommentsPage, error)
	CreateComment(ctx context.Context, postID, wallet, content string) (*models.Comment, error)
	LikeComment(ctx context.Context, id, wallet string) error
	StreamComments(ctx context.Context, postID string) (<-chan models.Comment, error)
}

// Comments holds the current page of comments of one post.
type Comments struct {
	api      CommentsAPI
	identity Identity
	opts     Options
	log      *log.Entry
	coll     *reconcile.Collection[models.Comment]
	rec      *reconcile.Reconciler[models.Comment]
	status   status

	mu     sync.Mutex
	postID string
}

// NewComments creates an empty comments controller.
func NewComments(api CommentsAPI, identity Identity, opts Options) *Comments {
	opts = opts.withDefaults("comments")
	c := &Comments{
		api:      api,
		identity: identity,
		opts:     opts,
		log:      opts.Logger,
		coll:     reconcile.NewCollection[models.Comment](),
	}
	confirm := reconcile.ConfirmFunc(func(ctx context.Context, id, wallet string) error {
		err := api.LikeComment(ctx, id, wallet)
		if err != nil {
			c.status.fail(err)
		}
		return err
	})
	c.rec = reconcile.New(c.coll, confirm, reconcile.Options{
		Entity:     "comment",
		Timeout:    opts.Timeout,
		Executor:   opts.Executor,
		Notifier:   opts.Notifier,
		Metrics:    opts.Metrics,
		Logger:     opts.Logger,
		LikeFailed: "Failed to like comment",
	})
	return c
}

// Collection returns the comments state container.
func (c *Comments) Collection() *reconcile.Collection[models.Comment] { return c.coll }

// Items returns the current comments.
func (c *Comments) Items() []models.Comment { return c.coll.Items() }

// State returns loading, error and pagination state.
func (c *Comments) State() State { return c.status.get() }

// PostID returns the post whose comments are loaded.
func (c *Comments) PostID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.postID
}

// Close ends every subscription of the collection.
func (c *Comments) Close() { c.coll.Close() }

// FetchComments replaces the collection with one page of comments of postID.
func (c *Comments) FetchComments(ctx context.Context, postID string, page, limit int) error {
	wallet := c.identity.Address()
	if wallet == "" {
		c.status.fail(ErrWalletNotConnected)
		return ErrWalletNotConnected
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = c.opts.PageSize
	}

	done := c.status.begin()
	defer done()

	resp, err := c.api.ListComments(ctx, postID, page, limit)
	if err != nil {
		c.status.fail(err)
		c.opts.Notifier.Notify(notify.Error("Failed to fetch comments", err))
		return fmt.Errorf("fetch comments of %s: %w", postID, err)
	}

	c.mu.Lock()
	c.postID = postID
	c.mu.Unlock()
	c.coll.Replace(deriveComments(resp.Comments, wallet))
	c.status.update(func(s *State) {
		s.Total = resp.Total
		s.Page = resp.Page
		if s.Page == 0 {
			s.Page = page
		}
		s.TotalPages = resp.TotalPages
		if s.TotalPages == 0 {
			s.TotalPages = totalPages(resp.Total, limit)
		}
	})
	c.log.WithFields(log.Fields{"post_id": postID, "page": page, "count": len(resp.Comments)}).Debug("comments fetched")
	return nil
}

// CreateComment adds a comment and puts it at the head of the collection.
func (c *Comments) CreateComment(ctx context.Context, postID, content string) (*models.Comment, error) {
	wallet := c.identity.Address()
	if wallet == "" {
		c.opts.Notifier.Notify(notify.Error("Please connect your wallet first", ErrWalletNotConnected))
		return nil, ErrWalletNotConnected
	}
	content = strings.TrimSpace(content)
	if content == "" {
		c.opts.Notifier.Notify(notify.Error("Comment content cannot be empty", ErrEmptyContent))
		return nil, ErrEmptyContent
	}
	if len(content) > maxCommentLength {
		err := fmt.Errorf("%w: %d bytes max", ErrContentTooLong, maxCommentLength)
		c.opts.Notifier.Notify(notify.Error("Comment is too long", err))
		return nil, err
	}

	done := c.status.begin()
	defer done()

	created, err := c.api.CreateComment(ctx, postID, wallet, content)
	if err != nil {
		c.status.fail(err)
		c.opts.Notifier.Notify(notify.Error("Failed to create comment", err))
		return nil, fmt.Errorf("create comment on %s: %w", postID, err)
	}

	comment := created.WithLikes(created.Likes.Dedup(), wallet)
	if c.coll.Prepend(comment) {
		c.status.update(func(s *State) { s.Total++ })
	}
	c.opts.Notifier.Notify(notify.Success("Comment added successfully!"))
	return &comment, nil
}

// LikeComment toggles the connected wallet's like on a comment optimistically.
func (c *Comments) LikeComment(ctx context.Context, id string) (*reconcile.Pending, error) {
	wallet := c.identity.Address()
	if wallet == "" {
		c.opts.Notifier.Notify(notify.Error("Please connect your wallet first", ErrWalletNotConnected))
		return nil, ErrWalletNotConnected
	}
	return c.rec.ToggleLike(ctx, id, wallet)
}

// Follow prepends comments pushed by the API for postID until ctx ends or
// the stream closes. Comments already present are skipped.
func (c *Comments) Follow(ctx context.Context, postID string) error {
	stream, err := c.api.StreamComments(ctx, postID)
	if err != nil {
		return fmt.Errorf("follow comments of %s: %w", postID, err)
	}
	for comment := range stream {
		if comment.PostID != "" && comment.PostID != postID {
			continue
		}
		derived := comment.WithLikes(comment.Likes.Dedup(), c.identity.Address())
		if c.coll.Prepend(derived) {
			c.status.update(func(s *State) { s.Total++ })
			c.log.WithField("id", comment.ID).Debug("live comment")
		}
	}
	return ctx.Err()
}
