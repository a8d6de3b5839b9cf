// Package api is the client of the DecentraTweet REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/MosinFAM/decentratweet/internal/models"
)

// DefaultBaseURL is where the API listens in development.
const DefaultBaseURL = "http://localhost:3001"

// StatusError is returned for non-success responses.
type StatusError struct {
	Method  string
	Path    string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Code)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// Client talks JSON over HTTP to the API. It makes exactly one attempt per
// call.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	dialer  *websocket.Dialer
	log     *log.Entry
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the log entry.
func WithLogger(entry *log.Entry) Option {
	return func(c *Client) { c.log = entry }
}

// NewClient creates a client for baseURL. timeout bounds every request.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported base url scheme %q", u.Scheme)
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: timeout},
		dialer:  &websocket.Dialer{HandshakeTimeout: timeout},
		log:     log.WithField("component", "api"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListPosts fetches one page of posts.
func (c *Client) ListPosts(ctx context.Context, page, limit int) (*models.PostsPage, error) {
	var out models.PostsPage
	err := c.do(ctx, http.MethodGet, "/posts", pageQuery(page, limit), nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPost fetches a single post.
func (c *Client) GetPost(ctx context.Context, id string) (*models.Post, error) {
	var out models.Post
	if err := c.do(ctx, http.MethodGet, "/posts/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePost publishes content as wallet.
func (c *Client) CreatePost(ctx context.Context, wallet, content string) (*models.Post, error) {
	var out models.Post
	body := models.NewPostRequest{WalletAddress: wallet, Content: content}
	if err := c.do(ctx, http.MethodPost, "/posts", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeletePost deletes a post owned by wallet.
func (c *Client) DeletePost(ctx context.Context, id, wallet string) error {
	body := models.WalletRequest{WalletAddress: wallet}
	return c.do(ctx, http.MethodDelete, "/posts/"+url.PathEscape(id), nil, body, nil)
}

// LikePost toggles wallet's like on a post. The response body is ignored.
func (c *Client) LikePost(ctx context.Context, id, wallet string) error {
	body := models.WalletRequest{WalletAddress: wallet}
	return c.do(ctx, http.MethodPost, "/posts/"+url.PathEscape(id)+"/like", nil, body, nil)
}

// ListComments fetches one page of comments of a post.
func (c *Client) ListComments(ctx context.Context, postID string, page, limit int) (*models.CommentsPage, error) {
	var out models.CommentsPage
	path := "/posts/" + url.PathEscape(postID) + "/comments"
	if err := c.do(ctx, http.MethodGet, path, pageQuery(page, limit), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateComment adds a comment to a post and returns it as stored.
func (c *Client) CreateComment(ctx context.Context, postID, wallet, content string) (*models.Comment, error) {
	var out models.Comment
	body := models.NewCommentRequest{WalletAddress: wallet, Content: content}
	path := "/posts/" + url.PathEscape(postID) + "/comments"
	if err := c.do(ctx, http.MethodPost, path, nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LikeComment toggles wallet's like on a comment.
func (c *Client) LikeComment(ctx context.Context, id, wallet string) error {
	body := models.WalletRequest{WalletAddress: wallet}
	return c.do(ctx, http.MethodPost, "/comments/"+url.PathEscape(id)+"/like", nil, body, nil)
}

// Verify submits a signed sign-in message.
func (c *Client) Verify(ctx context.Context, req models.VerifyRequest) (*models.VerifyResponse, error) {
	var out models.VerifyResponse
	if err := c.do(ctx, http.MethodPost, "/auth/verify", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUser fetches the profile of wallet.
func (c *Client) GetUser(ctx context.Context, wallet string) (*models.Profile, error) {
	var out models.Profile
	if err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(wallet), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveUser creates or updates a profile.
func (c *Client) SaveUser(ctx context.Context, profile models.Profile) (*models.Profile, error) {
	var out models.Profile
	if err := c.do(ctx, http.MethodPost, "/users", nil, profile, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func pageQuery(page, limit int) url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	return q
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	u.RawQuery = query.Encode()
	return u.String()
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	entry := c.log.WithFields(log.Fields{"method": method, "path": path, "request_id": requestID})
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		entry.WithError(err).Debug("request failed")
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	entry.WithFields(log.Fields{"status": resp.StatusCode, "took": time.Since(start)}).Debug("request done")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Method: method, Path: path, Code: resp.StatusCode}
		var er models.ErrorResponse
		if data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); err == nil && json.Unmarshal(data, &er) == nil {
			se.Message = er.Message
		}
		return se
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
