package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/MosinFAM/decentratweet/internal/logging"
	"github.com/MosinFAM/decentratweet/internal/models"
)

// MemoryStorage keeps everything in maps guarded by one lock.
type MemoryStorage struct {
	mu            sync.RWMutex
	posts         map[string]models.Post
	order         []string // post IDs, newest first
	comments      map[string][]models.Comment
	commentPost   map[string]string
	users         map[string]models.Profile
	subscriptions map[string][]chan *models.Comment
	now           func() time.Time
	log           *log.Entry
}

// NewMemoryStorage creates an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		posts:         make(map[string]models.Post),
		comments:      make(map[string][]models.Comment),
		commentPost:   make(map[string]string),
		users:         make(map[string]models.Profile),
		subscriptions: make(map[string][]chan *models.Comment),
		now:           time.Now,
		log:           logging.For("storage.memory"),
	}
}

func (s *MemoryStorage) withAuthor(wallet string, username, pic *string) {
	if u, ok := s.users[NormalizeAddress(wallet)]; ok {
		*username = u.Username
		*pic = u.ProfilePicURL
	}
}

func (s *MemoryStorage) viewPost(p models.Post) models.Post {
	p.Likes = append(models.Likes{}, p.Likes...)
	p.LikesCount = len(p.Likes)
	p.CommentsCount = len(s.comments[p.ID])
	s.withAuthor(p.WalletAddress, &p.Username, &p.ProfilePicURL)
	return p
}

func (s *MemoryStorage) viewComment(c models.Comment) models.Comment {
	c.Likes = append(models.Likes{}, c.Likes...)
	c.LikesCount = len(c.Likes)
	s.withAuthor(c.WalletAddress, &c.Username, &c.ProfilePicURL)
	return c
}

// ListPosts returns one page of posts, newest first, and the total count.
func (s *MemoryStorage) ListPosts(_ context.Context, page, limit int) ([]models.Post, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := len(s.order)
	start := offset(page, limit)
	result := []models.Post{}
	for i := start; i < total && i < start+limit; i++ {
		result = append(result, s.viewPost(s.posts[s.order[i]]))
	}
	s.log.WithFields(log.Fields{"page": page, "count": len(result)}).Debug("listed posts")
	return result, total, nil
}

func (s *MemoryStorage) GetPost(_ context.Context, id string) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	post, ok := s.posts[id]
	if !ok {
		return nil, fmt.Errorf("post %s: %w", id, ErrNotFound)
	}
	view := s.viewPost(post)
	return &view, nil
}

func (s *MemoryStorage) AddPost(_ context.Context, wallet, content string) (models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post := models.Post{
		ID:            uuid.New().String(),
		WalletAddress: NormalizeAddress(wallet),
		Content:       content,
		Timestamp:     timestamp(s.now()),
		Likes:         models.Likes{},
	}
	s.posts[post.ID] = post
	s.order = append([]string{post.ID}, s.order...)
	s.log.WithField("id", post.ID).Info("post added")
	return s.viewPost(post), nil
}

// DeletePost removes a post and its comments. Only the author may delete.
func (s *MemoryStorage) DeletePost(_ context.Context, id, wallet string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[id]
	if !ok {
		return fmt.Errorf("post %s: %w", id, ErrNotFound)
	}
	if post.WalletAddress != NormalizeAddress(wallet) {
		return fmt.Errorf("delete post %s: %w", id, ErrForbidden)
	}
	for _, c := range s.comments[id] {
		delete(s.commentPost, c.ID)
	}
	delete(s.comments, id)
	for _, ch := range s.subscriptions[id] {
		close(ch)
	}
	delete(s.subscriptions, id)
	delete(s.posts, id)
	for i, pid := range s.order {
		if pid == id {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
	s.log.WithField("id", id).Info("post deleted")
	return nil
}

func (s *MemoryStorage) TogglePostLike(_ context.Context, id, wallet string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[id]
	if !ok {
		return false, fmt.Errorf("post %s: %w", id, ErrNotFound)
	}
	var liked bool
	post.Likes, liked = post.Likes.Toggle(NormalizeAddress(wallet))
	s.posts[id] = post
	return liked, nil
}

func (s *MemoryStorage) findComment(id string) (int, bool) {
	postID, ok := s.commentPost[id]
	if !ok {
		return 0, false
	}
	for i, c := range s.comments[postID] {
		if c.ID == id {
			return i, true
		}
	}
	return 0, false
}

func (s *MemoryStorage) GetComment(_ context.Context, id string) (*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.findComment(id)
	if !ok {
		return nil, fmt.Errorf("comment %s: %w", id, ErrNotFound)
	}
	view := s.viewComment(s.comments[s.commentPost[id]][i])
	return &view, nil
}

// ListComments returns one page of comments of a post, newest first.
func (s *MemoryStorage) ListComments(_ context.Context, postID string, page, limit int) ([]models.Comment, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.posts[postID]; !ok {
		return nil, 0, fmt.Errorf("post %s: %w", postID, ErrNotFound)
	}
	comments := s.comments[postID]
	start := offset(page, limit)
	result := []models.Comment{}
	for i := start; i < len(comments) && i < start+limit; i++ {
		result = append(result, s.viewComment(comments[i]))
	}
	return result, len(comments), nil
}

func (s *MemoryStorage) AddComment(_ context.Context, postID, wallet, content string) (*models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[postID]; !ok {
		return nil, fmt.Errorf("post %s: %w", postID, ErrNotFound)
	}
	if len(content) > MaxCommentLength {
		return nil, fmt.Errorf("comment is too long: %d bytes max", MaxCommentLength)
	}

	comment := models.Comment{
		ID:            uuid.New().String(),
		PostID:        postID,
		WalletAddress: NormalizeAddress(wallet),
		Content:       content,
		Timestamp:     timestamp(s.now()),
		Likes:         models.Likes{},
	}
	s.comments[postID] = append([]models.Comment{comment}, s.comments[postID]...)
	s.commentPost[comment.ID] = postID

	view := s.viewComment(comment)
	for _, sub := range s.subscriptions[postID] {
		out := view
		select {
		case sub <- &out:
		default:
			s.log.WithField("post_id", postID).Warn("comment subscriber is slow, dropping")
		}
	}
	s.log.WithFields(log.Fields{"id": comment.ID, "post_id": postID}).Info("comment added")
	return &view, nil
}

func (s *MemoryStorage) ToggleCommentLike(_ context.Context, id, wallet string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.findComment(id)
	if !ok {
		return false, fmt.Errorf("comment %s: %w", id, ErrNotFound)
	}
	comments := s.comments[s.commentPost[id]]
	var liked bool
	comments[i].Likes, liked = comments[i].Likes.Toggle(NormalizeAddress(wallet))
	return liked, nil
}

// SubscribeToComments registers a buffered channel that is closed once ctx
// ends.
func (s *MemoryStorage) SubscribeToComments(ctx context.Context, postID string) (<-chan *models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan *models.Comment, 16)
	s.subscriptions[postID] = append(s.subscriptions[postID], ch)
	s.log.WithField("post_id", postID).Debug("comment subscription added")

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		subs := s.subscriptions[postID]
		for i, sub := range subs {
			if sub == ch {
				s.subscriptions[postID] = append(subs[:i:i], subs[i+1:]...)
				if len(s.subscriptions[postID]) == 0 {
					delete(s.subscriptions, postID)
				}
				// Deleting the post closes the channel otherwise.
				close(ch)
				return
			}
		}
	}()
	return ch, nil
}

func (s *MemoryStorage) GetUser(_ context.Context, wallet string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[NormalizeAddress(wallet)]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", wallet, ErrNotFound)
	}
	return &u, nil
}

// SaveUser creates or replaces the profile of its wallet.
func (s *MemoryStorage) SaveUser(_ context.Context, profile models.Profile) (models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile.WalletAddress = NormalizeAddress(profile.WalletAddress)
	profile.IsRegistered = true
	s.users[profile.WalletAddress] = profile
	return profile, nil
}
