package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"

	"github.com/MosinFAM/decentratweet/internal/logging"
	"github.com/MosinFAM/decentratweet/internal/models"
)

// commentsChannel is the LISTEN/NOTIFY channel new comments are published on.
const commentsChannel = "comments_channel"

// PostgresStorage stores everything in PostgreSQL. Schema lives in the
// migrations directory and is applied by db.Migrate.
type PostgresStorage struct {
	DB         *sql.DB
	DataSource string
	log        *log.Entry
}

// NewPostgresStorage wraps an open database. dataSource is needed again for
// LISTEN connections.
func NewPostgresStorage(db *sql.DB, dataSource string) *PostgresStorage {
	return &PostgresStorage{DB: db, DataSource: dataSource, log: logging.For("storage.postgres")}
}

const postColumns = `
	p.id, p.wallet_address, p.content, p.created_at,
	COALESCE(u.username, ''), COALESCE(u.profile_pic_url, ''),
	ARRAY(SELECT l.wallet_address FROM post_likes l WHERE l.post_id = p.id ORDER BY l.created_at),
	(SELECT count(*) FROM comments c WHERE c.post_id = p.id)`

const commentColumns = `
	c.id, c.post_id, c.wallet_address, c.content, c.created_at,
	COALESCE(u.username, ''), COALESCE(u.profile_pic_url, ''),
	ARRAY(SELECT l.wallet_address FROM comment_likes l WHERE l.comment_id = c.id ORDER BY l.created_at)`

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(row scanner) (models.Post, error) {
	var (
		post    models.Post
		created time.Time
		likes   pq.StringArray
	)
	err := row.Scan(&post.ID, &post.WalletAddress, &post.Content, &created,
		&post.Username, &post.ProfilePicURL, &likes, &post.CommentsCount)
	if err != nil {
		return post, err
	}
	post.Timestamp = timestamp(created)
	post.Likes = likesOf(likes)
	post.LikesCount = len(post.Likes)
	return post, nil
}

func scanComment(row scanner) (models.Comment, error) {
	var (
		comment models.Comment
		created time.Time
		likes   pq.StringArray
	)
	err := row.Scan(&comment.ID, &comment.PostID, &comment.WalletAddress, &comment.Content, &created,
		&comment.Username, &comment.ProfilePicURL, &likes)
	if err != nil {
		return comment, err
	}
	comment.Timestamp = timestamp(created)
	comment.Likes = likesOf(likes)
	comment.LikesCount = len(comment.Likes)
	return comment, nil
}

func notFound(err error, what, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("%s %s: %w", what, id, err)
}

func (s *PostgresStorage) ListPosts(ctx context.Context, page, limit int) ([]models.Post, int, error) {
	var total int
	if err := s.DB.QueryRowContext(ctx, "SELECT count(*) FROM posts").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT `+postColumns+`
		FROM posts p LEFT JOIN users u ON u.wallet_address = p.wallet_address
		ORDER BY p.created_at DESC LIMIT $1 OFFSET $2`, limit, offset(page, limit))
	if err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, post)
	}
	return posts, total, rows.Err()
}

func (s *PostgresStorage) GetPost(ctx context.Context, id string) (*models.Post, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+postColumns+`
		FROM posts p LEFT JOIN users u ON u.wallet_address = p.wallet_address
		WHERE p.id = $1`, id)
	post, err := scanPost(row)
	if err != nil {
		return nil, notFound(err, "post", id)
	}
	return &post, nil
}

func (s *PostgresStorage) AddPost(ctx context.Context, wallet, content string) (models.Post, error) {
	post := models.Post{
		ID:            uuid.New().String(),
		WalletAddress: NormalizeAddress(wallet),
		Content:       content,
		Likes:         models.Likes{},
	}
	var created time.Time
	err := s.DB.QueryRowContext(ctx,
		"INSERT INTO posts (id, wallet_address, content) VALUES ($1, $2, $3) RETURNING created_at",
		post.ID, post.WalletAddress, post.Content).Scan(&created)
	if err != nil {
		return models.Post{}, fmt.Errorf("insert post: %w", err)
	}
	post.Timestamp = timestamp(created)
	s.log.WithField("id", post.ID).Info("post added")
	return post, nil
}

// DeletePost removes a post owned by wallet. Comments and likes go with it
// through ON DELETE CASCADE.
func (s *PostgresStorage) DeletePost(ctx context.Context, id, wallet string) error {
	var owner string
	err := s.DB.QueryRowContext(ctx, "SELECT wallet_address FROM posts WHERE id = $1", id).Scan(&owner)
	if err != nil {
		return notFound(err, "post", id)
	}
	if owner != NormalizeAddress(wallet) {
		return fmt.Errorf("delete post %s: %w", id, ErrForbidden)
	}
	if _, err := s.DB.ExecContext(ctx, "DELETE FROM posts WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete post %s: %w", id, err)
	}
	s.log.WithField("id", id).Info("post deleted")
	return nil
}

// toggle deletes the (id, wallet) row of table or inserts it when absent, in
// one transaction.
func (s *PostgresStorage) toggle(ctx context.Context, table, column, parent, id, wallet string) (bool, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM "+parent+" WHERE id = $1)", id).Scan(&exists); err != nil {
		return false, err
	}
	if !exists {
		return false, ErrNotFound
	}

	wallet = NormalizeAddress(wallet)
	res, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE "+column+" = $1 AND wallet_address = $2", id, wallet)
	if err != nil {
		return false, err
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if removed == 0 {
		if _, err := tx.ExecContext(ctx, "INSERT INTO "+table+" ("+column+", wallet_address) VALUES ($1, $2)", id, wallet); err != nil {
			return false, err
		}
	}
	return removed == 0, tx.Commit()
}

func (s *PostgresStorage) TogglePostLike(ctx context.Context, id, wallet string) (bool, error) {
	liked, err := s.toggle(ctx, "post_likes", "post_id", "posts", id, wallet)
	if err != nil {
		return false, fmt.Errorf("toggle like on post %s: %w", id, err)
	}
	return liked, nil
}

func (s *PostgresStorage) GetComment(ctx context.Context, id string) (*models.Comment, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+commentColumns+`
		FROM comments c LEFT JOIN users u ON u.wallet_address = c.wallet_address
		WHERE c.id = $1`, id)
	comment, err := scanComment(row)
	if err != nil {
		return nil, notFound(err, "comment", id)
	}
	return &comment, nil
}

func (s *PostgresStorage) ListComments(ctx context.Context, postID string, page, limit int) ([]models.Comment, int, error) {
	var total int
	err := s.DB.QueryRowContext(ctx,
		"SELECT (SELECT count(*) FROM comments WHERE post_id = $1) FROM posts WHERE id = $1", postID).Scan(&total)
	if err != nil {
		return nil, 0, notFound(err, "post", postID)
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT `+commentColumns+`
		FROM comments c LEFT JOIN users u ON u.wallet_address = c.wallet_address
		WHERE c.post_id = $1
		ORDER BY c.created_at DESC LIMIT $2 OFFSET $3`, postID, limit, offset(page, limit))
	if err != nil {
		return nil, 0, fmt.Errorf("list comments of %s: %w", postID, err)
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, comment)
	}
	return comments, total, rows.Err()
}

// AddComment inserts a comment and announces it on comments_channel.
func (s *PostgresStorage) AddComment(ctx context.Context, postID, wallet, content string) (*models.Comment, error) {
	if len(content) > MaxCommentLength {
		return nil, fmt.Errorf("comment is too long: %d bytes max", MaxCommentLength)
	}
	comment := models.Comment{
		ID:            uuid.New().String(),
		PostID:        postID,
		WalletAddress: NormalizeAddress(wallet),
		Content:       content,
		Likes:         models.Likes{},
	}

	var created time.Time
	err := s.DB.QueryRowContext(ctx, `INSERT INTO comments (id, post_id, wallet_address, content)
		SELECT $1, id, $3, $4 FROM posts WHERE id = $2
		RETURNING created_at`,
		comment.ID, postID, comment.WalletAddress, comment.Content).Scan(&created)
	if err != nil {
		return nil, notFound(err, "post", postID)
	}
	comment.Timestamp = timestamp(created)

	payload, err := json.Marshal(comment)
	if err != nil {
		return nil, err
	}
	if _, err := s.DB.ExecContext(ctx, "SELECT pg_notify($1, $2)", commentsChannel, string(payload)); err != nil {
		// the comment is stored; live followers just miss it
		s.log.WithError(err).Warn("notify comments_channel")
	}

	s.log.WithFields(log.Fields{"id": comment.ID, "post_id": postID}).Info("comment added")
	return &comment, nil
}

func (s *PostgresStorage) ToggleCommentLike(ctx context.Context, id, wallet string) (bool, error) {
	liked, err := s.toggle(ctx, "comment_likes", "comment_id", "comments", id, wallet)
	if err != nil {
		return false, fmt.Errorf("toggle like on comment %s: %w", id, err)
	}
	return liked, nil
}

// SubscribeToComments opens a LISTEN connection on comments_channel and
// forwards the comments of postID until ctx ends.
func (s *PostgresStorage) SubscribeToComments(ctx context.Context, postID string) (<-chan *models.Comment, error) {
	entry := s.log.WithField("post_id", postID)
	listener := pq.NewListener(s.DataSource, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			entry.WithError(err).Warn("postgres listener")
		}
	})
	if err := listener.Listen(commentsChannel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("listen on %s: %w", commentsChannel, err)
	}

	ch := make(chan *models.Comment)
	go func() {
		defer close(ch)
		defer listener.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(90 * time.Second):
				if err := listener.Ping(); err != nil {
					entry.WithError(err).Warn("postgres listener ping")
					return
				}
			case n := <-listener.Notify:
				// nil after a reconnect
				if n == nil {
					continue
				}
				var comment models.Comment
				if err := json.Unmarshal([]byte(n.Extra), &comment); err != nil {
					entry.WithError(err).Warn("bad comment notification")
					continue
				}
				if comment.PostID != postID {
					continue
				}
				select {
				case ch <- &comment:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	entry.Debug("listening on comments_channel")
	return ch, nil
}

func (s *PostgresStorage) GetUser(ctx context.Context, wallet string) (*models.Profile, error) {
	var p models.Profile
	err := s.DB.QueryRowContext(ctx,
		"SELECT wallet_address, username, bio, profile_pic_url FROM users WHERE wallet_address = $1",
		NormalizeAddress(wallet)).Scan(&p.WalletAddress, &p.Username, &p.Bio, &p.ProfilePicURL)
	if err != nil {
		return nil, notFound(err, "user", wallet)
	}
	p.IsRegistered = true
	return &p, nil
}

func (s *PostgresStorage) SaveUser(ctx context.Context, profile models.Profile) (models.Profile, error) {
	profile.WalletAddress = NormalizeAddress(profile.WalletAddress)
	_, err := s.DB.ExecContext(ctx, `INSERT INTO users (wallet_address, username, bio, profile_pic_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (wallet_address) DO UPDATE
		SET username = EXCLUDED.username, bio = EXCLUDED.bio, profile_pic_url = EXCLUDED.profile_pic_url`,
		profile.WalletAddress, profile.Username, profile.Bio, profile.ProfilePicURL)
	if err != nil {
		return models.Profile{}, fmt.Errorf("save user %s: %w", profile.WalletAddress, err)
	}
	profile.IsRegistered = true
	return profile, nil
}
