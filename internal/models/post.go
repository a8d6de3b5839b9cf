package models

// MaxPostLength is the longest post the composer accepts.
const MaxPostLength = 280

// Post is a short text post as returned by the API, with the like state
// derived for the acting wallet.
type Post struct {
	ID            string `json:"id"`
	WalletAddress string `json:"wallet_address"`
	Content       string `json:"content"`
	Timestamp     string `json:"timestamp"`
	Username      string `json:"username,omitempty"`
	ProfilePicURL string `json:"profile_pic_url,omitempty"`
	Likes         Likes  `json:"likes"`
	LikesCount    int    `json:"likes_count"`
	IsLiked       bool   `json:"is_liked"`
	CommentsCount int    `json:"comments_count,omitempty"`
}

// Key returns the post ID.
func (p Post) Key() string { return p.ID }

// LikeSet returns the voters of the post.
func (p Post) LikeSet() Likes { return p.Likes }

// WithLikes returns a copy of the post holding likes, with LikesCount and
// IsLiked recomputed for actor in the same step.
func (p Post) WithLikes(likes Likes, actor string) Post {
	if likes == nil {
		likes = Likes{}
	}
	p.Likes = likes
	p.LikesCount = len(likes)
	p.IsLiked = actor != "" && likes.Contains(actor)
	return p
}

// PostsPage is the envelope of GET /posts.
type PostsPage struct {
	Posts []Post `json:"posts"`
	Total int    `json:"total"`
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
}

// NewPostRequest is the body of POST /posts.
type NewPostRequest struct {
	WalletAddress string `json:"wallet_address" validate:"required"`
	Content       string `json:"content" validate:"required,max=280"`
}

// WalletRequest is the body of like toggles and deletions.
type WalletRequest struct {
	WalletAddress string `json:"wallet_address" validate:"required"`
}
