package feed

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"

	"github.com/MosinFAM/decentratweet/internal/models"
	"github.com/MosinFAM/decentratweet/internal/notify"
	"github.com/MosinFAM/decentratweet/internal/reconcile"
)

// PostsAPI is the part of the REST API posts need.
type PostsAPI interface {
	ListPosts(ctx context.Context, page, limit int) (*models.PostsPage, error)
	GetPost(ctx context.Context, id string) (*models.Post, error)
	CreatePost(ctx context.Context, wallet, content string) (*models.Post, error)
	DeletePost(ctx context.Context, id, wallet string) error
	LikePost(ctx context.Context, id, wallet string) error
}

// Posts holds the current page of posts for the connected wallet.
type Posts struct {
	api      PostsAPI
	identity Identity
	opts     Options
	log      *log.Entry
	coll     *reconcile.Collection[models.Post]
	rec      *reconcile.Reconciler[models.Post]
	status   status
}

// NewPosts creates an empty posts controller.
func NewPosts(api PostsAPI, identity Identity, opts Options) *Posts {
	opts = opts.withDefaults("posts")
	p := &Posts{
		api:      api,
		identity: identity,
		opts:     opts,
		log:      opts.Logger,
		coll:     reconcile.NewCollection[models.Post](),
	}
	confirm := reconcile.ConfirmFunc(func(ctx context.Context, id, wallet string) error {
		err := api.LikePost(ctx, id, wallet)
		if err != nil {
			p.status.fail(err)
		}
		return err
	})
	p.rec = reconcile.New(p.coll, confirm, reconcile.Options{
		Entity:          "post",
		Timeout:         opts.Timeout,
		Executor:        opts.Executor,
		Notifier:        opts.Notifier,
		Metrics:         opts.Metrics,
		Logger:          opts.Logger,
		LikeFailed:      "Failed to like post",
		RemoveFailed:    "Failed to delete post",
		RemoveConfirmed: "Post deleted successfully!",
	})
	return p
}

// Collection returns the posts state container.
func (p *Posts) Collection() *reconcile.Collection[models.Post] { return p.coll }

// Items returns the current posts.
func (p *Posts) Items() []models.Post { return p.coll.Items() }

// State returns loading, error and pagination state.
func (p *Posts) State() State { return p.status.get() }

// Close ends every subscription of the collection.
func (p *Posts) Close() { p.coll.Close() }

// FetchPosts replaces the collection with one page of posts.
func (p *Posts) FetchPosts(ctx context.Context, page, limit int) error {
	wallet := p.identity.Address()
	if wallet == "" {
		p.status.fail(ErrWalletNotConnected)
		return ErrWalletNotConnected
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = p.opts.PageSize
	}

	done := p.status.begin()
	defer done()

	resp, err := p.api.ListPosts(ctx, page, limit)
	if err != nil {
		p.status.fail(err)
		p.opts.Notifier.Notify(notify.Error("Failed to fetch posts", err))
		return fmt.Errorf("fetch posts: %w", err)
	}

	p.coll.Replace(derivePosts(resp.Posts, wallet))
	p.status.update(func(s *State) {
		s.Total = resp.Total
		s.Page = resp.Page
		if s.Page == 0 {
			s.Page = page
		}
		s.TotalPages = totalPages(resp.Total, limit)
	})
	p.log.WithFields(log.Fields{"page": page, "count": len(resp.Posts), "total": resp.Total}).Debug("posts fetched")
	return nil
}

// FetchPost loads one post without touching the collection.
func (p *Posts) FetchPost(ctx context.Context, id string) (*models.Post, error) {
	wallet := p.identity.Address()
	if wallet == "" {
		p.status.fail(ErrWalletNotConnected)
		return nil, ErrWalletNotConnected
	}

	done := p.status.begin()
	defer done()

	post, err := p.api.GetPost(ctx, id)
	if err != nil {
		p.status.fail(err)
		p.opts.Notifier.Notify(notify.Error("Failed to fetch post", err))
		return nil, fmt.Errorf("fetch post %s: %w", id, err)
	}
	derived := post.WithLikes(post.Likes.Dedup(), wallet)
	return &derived, nil
}

// CreatePost publishes content and reloads the first page.
func (p *Posts) CreatePost(ctx context.Context, content string) error {
	wallet := p.identity.Address()
	if wallet == "" {
		p.opts.Notifier.Notify(notify.Error("Please connect your wallet first", ErrWalletNotConnected))
		return ErrWalletNotConnected
	}
	content = strings.TrimSpace(content)
	if content == "" {
		p.opts.Notifier.Notify(notify.Error("Post content cannot be empty", ErrEmptyContent))
		return ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > models.MaxPostLength {
		err := fmt.Errorf("%w: %d characters max", ErrContentTooLong, models.MaxPostLength)
		p.opts.Notifier.Notify(notify.Error("Post is too long", err))
		return err
	}

	done := p.status.begin()
	defer done()

	if _, err := p.api.CreatePost(ctx, wallet, content); err != nil {
		p.status.fail(err)
		p.opts.Notifier.Notify(notify.Error("Failed to create post", err))
		return fmt.Errorf("create post: %w", err)
	}
	// The post exists from here on. A failed refresh is reported by
	// FetchPosts on its own.
	p.opts.Notifier.Notify(notify.Success("Post created successfully!"))
	if err := p.FetchPosts(ctx, 1, p.opts.PageSize); err != nil {
		return fmt.Errorf("refresh after create: %w", err)
	}
	return nil
}

// LikePost toggles the connected wallet's like on a post optimistically.
func (p *Posts) LikePost(ctx context.Context, id string) (*reconcile.Pending, error) {
	wallet := p.identity.Address()
	if wallet == "" {
		p.opts.Notifier.Notify(notify.Error("Please connect your wallet first", ErrWalletNotConnected))
		return nil, ErrWalletNotConnected
	}
	return p.rec.ToggleLike(ctx, id, wallet)
}

// DeletePost removes a post optimistically and puts it back if the API
// refuses.
func (p *Posts) DeletePost(ctx context.Context, id string) (*reconcile.Pending, error) {
	wallet := p.identity.Address()
	if wallet == "" {
		p.opts.Notifier.Notify(notify.Error("Please connect your wallet first", ErrWalletNotConnected))
		return nil, ErrWalletNotConnected
	}
	return p.rec.Remove(ctx, id, func(ctx context.Context) error {
		err := p.api.DeletePost(ctx, id, wallet)
		if err != nil {
			p.status.fail(err)
		}
		return err
	})
}
