package models

// Comment on a post
type Comment struct {
	ID            string `json:"id"`
	PostID        string `json:"post_id"`
	WalletAddress string `json:"wallet_address"`
	Content       string `json:"content"`
	Timestamp     string `json:"timestamp"`
	Username      string `json:"username,omitempty"`
	ProfilePicURL string `json:"profile_pic_url,omitempty"`
	Likes         Likes  `json:"likes"`
	LikesCount    int    `json:"likes_count"`
	IsLiked       bool   `json:"is_liked"`
}

func (c Comment) Key() string { return c.ID }

func (c Comment) LikeSet() Likes { return c.Likes }

// WithLikes mirrors Post.WithLikes.
func (c Comment) WithLikes(likes Likes, actor string) Comment {
	if likes == nil {
		likes = Likes{}
	}
	c.Likes = likes
	c.LikesCount = len(likes)
	c.IsLiked = actor != "" && likes.Contains(actor)
	return c
}

// CommentsPage is the envelope of GET /posts/{id}/comments.
type CommentsPage struct {
	Comments   []Comment `json:"comments"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	TotalPages int       `json:"total_pages"`
}

// NewCommentRequest is the body of POST /posts/{id}/comments.
type NewCommentRequest struct {
	WalletAddress string `json:"wallet_address" validate:"required"`
	Content       string `json:"content" validate:"required,max=2000"`
}
