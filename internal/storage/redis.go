package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/MosinFAM/decentratweet/internal/models"
)

const (
	PostLikesRedisKey    = "likes:post:"
	CommentLikesRedisKey = "likes:comment:"
)

// RedisLikes keeps like sets in Redis and delegates everything else to the
// wrapped Storage. Likes recorded in the wrapped store are ignored.
type RedisLikes struct {
	Storage
	redisClient *redis.Client
}

// NewRedisLikes layers a Redis like index over inner.
func NewRedisLikes(inner Storage, redisClient *redis.Client) *RedisLikes {
	return &RedisLikes{Storage: inner, redisClient: redisClient}
}

// toggle uses SADD's reply to decide: 1 means the member was new (liked),
// 0 means it was there and gets removed.
func (r *RedisLikes) toggle(ctx context.Context, key, wallet string) (bool, error) {
	wallet = NormalizeAddress(wallet)
	added, err := r.redisClient.SAdd(ctx, key, wallet).Result()
	if err != nil {
		return false, err
	}
	if added == 1 {
		return true, nil
	}
	return false, r.redisClient.SRem(ctx, key, wallet).Err()
}

func (r *RedisLikes) members(ctx context.Context, key string) (models.Likes, error) {
	addresses, err := r.redisClient.SMembers(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	return likesOf(addresses), nil
}

func (r *RedisLikes) fillPost(ctx context.Context, p *models.Post) error {
	likes, err := r.members(ctx, PostLikesRedisKey+p.ID)
	if err != nil {
		return fmt.Errorf("likes of post %s: %w", p.ID, err)
	}
	p.Likes = likes
	p.LikesCount = len(likes)
	return nil
}

func (r *RedisLikes) fillComment(ctx context.Context, c *models.Comment) error {
	likes, err := r.members(ctx, CommentLikesRedisKey+c.ID)
	if err != nil {
		return fmt.Errorf("likes of comment %s: %w", c.ID, err)
	}
	c.Likes = likes
	c.LikesCount = len(likes)
	return nil
}

func (r *RedisLikes) ListPosts(ctx context.Context, page, limit int) ([]models.Post, int, error) {
	posts, total, err := r.Storage.ListPosts(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}
	for i := range posts {
		if err := r.fillPost(ctx, &posts[i]); err != nil {
			return nil, 0, err
		}
	}
	return posts, total, nil
}

func (r *RedisLikes) GetPost(ctx context.Context, id string) (*models.Post, error) {
	post, err := r.Storage.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	return post, r.fillPost(ctx, post)
}

// commentPageSize bounds each ListComments call made while collecting like keys.
const commentPageSize = 100

// DeletePost drops the like sets of the post and of its comments along with it.
func (r *RedisLikes) DeletePost(ctx context.Context, id, wallet string) error {
	keys := []string{PostLikesRedisKey + id}
	for page := 1; ; page++ {
		comments, total, err := r.Storage.ListComments(ctx, id, page, commentPageSize)
		if err != nil {
			return err
		}
		for _, c := range comments {
			keys = append(keys, CommentLikesRedisKey+c.ID)
		}
		if len(comments) == 0 || page*commentPageSize >= total {
			break
		}
	}
	if err := r.Storage.DeletePost(ctx, id, wallet); err != nil {
		return err
	}
	return r.redisClient.Del(ctx, keys...).Err()
}

func (r *RedisLikes) TogglePostLike(ctx context.Context, id, wallet string) (bool, error) {
	if _, err := r.Storage.GetPost(ctx, id); err != nil {
		return false, err
	}
	liked, err := r.toggle(ctx, PostLikesRedisKey+id, wallet)
	if err != nil {
		return false, fmt.Errorf("toggle like on post %s: %w", id, err)
	}
	return liked, nil
}

func (r *RedisLikes) GetComment(ctx context.Context, id string) (*models.Comment, error) {
	comment, err := r.Storage.GetComment(ctx, id)
	if err != nil {
		return nil, err
	}
	return comment, r.fillComment(ctx, comment)
}

func (r *RedisLikes) ListComments(ctx context.Context, postID string, page, limit int) ([]models.Comment, int, error) {
	comments, total, err := r.Storage.ListComments(ctx, postID, page, limit)
	if err != nil {
		return nil, 0, err
	}
	for i := range comments {
		if err := r.fillComment(ctx, &comments[i]); err != nil {
			return nil, 0, err
		}
	}
	return comments, total, nil
}

func (r *RedisLikes) ToggleCommentLike(ctx context.Context, id, wallet string) (bool, error) {
	if _, err := r.Storage.GetComment(ctx, id); err != nil {
		return false, err
	}
	liked, err := r.toggle(ctx, CommentLikesRedisKey+id, wallet)
	if err != nil {
		return false, fmt.Errorf("toggle like on comment %s: %w", id, err)
	}
	return liked, nil
}
