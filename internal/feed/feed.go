// Package feed holds the client-side data access for posts and comments:
// paginated fetches, creation, and optimistic likes and deletions.
package feed

import (
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/MosinFAM/decentratweet/internal/models"
	"github.com/MosinFAM/decentratweet/internal/notify"
	"github.com/MosinFAM/decentratweet/internal/reconcile"
)

// DefaultPageSize is used when a fetch asks for a non-positive limit.
const DefaultPageSize = 10

var (
	ErrWalletNotConnected = errors.New("please connect your wallet first")
	ErrEmptyContent       = errors.New("content cannot be empty")
	ErrContentTooLong     = errors.New("content is too long")
)

// Identity supplies the acting wallet address, empty when no wallet is
// connected.
type Identity interface {
	Address() string
}

// StaticIdentity is a fixed wallet address.
type StaticIdentity string

func (s StaticIdentity) Address() string { return string(s) }

// Options are shared by Posts and Comments.
type Options struct {
	PageSize int
	// Timeout bounds each like/delete confirmation.
	Timeout  time.Duration
	Executor reconcile.Executor
	Metrics  *reconcile.Metrics
	Notifier notify.Notifier
	Logger   *log.Entry
}

func (o Options) withDefaults(component string) Options {
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.Executor == nil {
		o.Executor = &reconcile.GoExecutor{}
	}
	if o.Notifier == nil {
		o.Notifier = notify.Discard
	}
	if o.Logger == nil {
		o.Logger = log.NewEntry(log.StandardLogger())
	}
	o.Logger = o.Logger.WithField("component", component)
	return o
}

// State is the bookkeeping that accompanies a collection.
type State struct {
	Loading    bool
	Err        error
	Total      int
	Page       int
	TotalPages int
}

// status guards State. Loads may overlap, so loading is a counter.
type status struct {
	mu      sync.Mutex
	loading int
	state   State
}

func (s *status) begin() func() {
	s.mu.Lock()
	s.loading++
	s.state.Err = nil
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.loading--
		s.mu.Unlock()
	}
}

func (s *status) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Err = err
}

func (s *status) update(fn func(*State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
}

func (s *status) get() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.Loading = s.loading > 0
	return st
}

func derivePosts(posts []models.Post, actor string) []models.Post {
	out := make([]models.Post, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.WithLikes(p.Likes.Dedup(), actor))
	}
	return out
}

func deriveComments(comments []models.Comment, actor string) []models.Comment {
	out := make([]models.Comment, 0, len(comments))
	for _, c := range comments {
		out = append(out, c.WithLikes(c.Likes.Dedup(), actor))
	}
	return out
}

func totalPages(total, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// PageWindow returns up to size page numbers around current, the way the
// pager shows them.
func PageWindow(current, total, size int) []int {
	if total <= 0 || size <= 0 {
		return nil
	}
	current = min(max(current, 1), total)
	start := max(1, current-size/2)
	end := min(total, start+size-1)
	if end-start+1 < size {
		start = max(1, end-size+1)
	}
	pages := make([]int, 0, end-start+1)
	for p := start; p <= end; p++ {
		pages = append(pages, p)
	}
	return pages
}
