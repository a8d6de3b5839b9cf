package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/MosinFAM/decentratweet/internal/api"
	"github.com/MosinFAM/decentratweet/internal/models"
	"github.com/MosinFAM/decentratweet/internal/session"
	"github.com/MosinFAM/decentratweet/internal/storage"
)

func newTestServer(t *testing.T, store storage.Storage) (*Server, *api.Client) {
	t.Helper()
	srv := New(store, Options{})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})
	client, err := api.NewClient(ts.URL, 5*time.Second)
	require.NoError(t, err)
	return srv, client
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestPostsLifecycle(t *testing.T) {
	ctx := context.Background()
	_, client := newTestServer(t, storage.NewMemoryStorage())

	created, err := client.CreatePost(ctx, "0xA", "gm")
	require.NoError(t, err)
	assert.Equal(t, "gm", created.Content)

	require.NoError(t, client.LikePost(ctx, created.ID, "0xB"))
	page, err := client.ListPosts(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	require.Len(t, page.Posts, 1)
	assert.Equal(t, []string{"0xb"}, page.Posts[0].Likes.Addresses())

	// a second like undoes the first
	require.NoError(t, client.LikePost(ctx, created.ID, "0xB"))
	post, err := client.GetPost(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, post.Likes)

	err = client.DeletePost(ctx, created.ID, "0xB")
	var se *api.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusForbidden, se.Code)

	require.NoError(t, client.DeletePost(ctx, created.ID, "0xA"))
	_, err = client.GetPost(ctx, created.ID)
	assert.True(t, api.IsNotFound(err))
}

func TestComments(t *testing.T) {
	ctx := context.Background()
	_, client := newTestServer(t, storage.NewMemoryStorage())
	post, err := client.CreatePost(ctx, "0xA", "gm")
	require.NoError(t, err)

	for _, content := range []string{"one", "two", "three"} {
		_, err := client.CreateComment(ctx, post.ID, "0xB", content)
		require.NoError(t, err)
	}

	page, err := client.ListComments(ctx, post.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, "three", page.Comments[0].Content)

	require.NoError(t, client.LikeComment(ctx, page.Comments[0].ID, "0xA"))
	page, err = client.ListComments(ctx, post.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, len(page.Comments[0].Likes))

	_, err = client.ListComments(ctx, "missing", 1, 10)
	assert.True(t, api.IsNotFound(err))
}

func TestValidation(t *testing.T) {
	srv := New(storage.NewMemoryStorage(), Options{})

	tests := []struct {
		name, method, path, body string
		code                     int
	}{
		{"missing wallet", http.MethodPost, "/posts", `{"content":"gm"}`, http.StatusBadRequest},
		{"blank content", http.MethodPost, "/posts", `{"wallet_address":"0xA","content":"  "}`, http.StatusBadRequest},
		{"too long", http.MethodPost, "/posts", `{"wallet_address":"0xA","content":"` + strings.Repeat("x", 281) + `"}`, http.StatusBadRequest},
		{"bad json", http.MethodPost, "/posts/1/like", `{`, http.StatusBadRequest},
		{"like missing post", http.MethodPost, "/posts/nope/like", `{"wallet_address":"0xA"}`, http.StatusNotFound},
		{"like missing comment", http.MethodPost, "/comments/nope/like", `{"wallet_address":"0xA"}`, http.StatusNotFound},
		{"bad profile url", http.MethodPost, "/users", `{"wallet_address":"0xA","profile_pic_url":"not a url"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.code, rec.Code)

			var body models.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestStorageErrorIs500(t *testing.T) {
	store := new(storage.MockStorage)
	store.On("ListPosts", mock.Anything, 1, 10).Return(nil, 0, errors.New("db down"))
	srv := New(store, Options{})

	rec := do(t, srv, http.MethodGet, "/posts", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"message":"Failed to fetch posts"}`, rec.Body.String())
	store.AssertExpectations(t)
}

func TestPagingClamp(t *testing.T) {
	store := new(storage.MockStorage)
	store.On("ListPosts", mock.Anything, 1, maxLimit).Return([]models.Post{}, 0, nil)
	srv := New(store, Options{})

	rec := do(t, srv, http.MethodGet, "/posts?page=-3&limit=1000", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	store.AssertExpectations(t)
}

func TestVerifyAndProfile(t *testing.T) {
	ctx := context.Background()
	_, client := newTestServer(t, storage.NewMemoryStorage())

	resp, err := client.Verify(ctx, models.VerifyRequest{
		WalletAddress: "0xA",
		Message:       session.SignInMessage("0xA"),
		Signature:     "0xsig",
	})
	require.NoError(t, err)
	assert.True(t, resp.Valid)
	assert.False(t, resp.IsRegistered)

	resp, err = client.Verify(ctx, models.VerifyRequest{WalletAddress: "0xA", Message: "other", Signature: "0xsig"})
	require.NoError(t, err)
	assert.False(t, resp.Valid)

	_, err = client.GetUser(ctx, "0xA")
	assert.True(t, api.IsNotFound(err))

	saved, err := client.SaveUser(ctx, models.Profile{WalletAddress: "0xA", Username: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "0xa", saved.WalletAddress)

	resp, err = client.Verify(ctx, models.VerifyRequest{
		WalletAddress: "0xA",
		Message:       session.SignInMessage("0xA"),
		Signature:     "0xsig",
	})
	require.NoError(t, err)
	assert.True(t, resp.IsRegistered)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	srv := New(storage.NewMemoryStorage(), Options{Registry: reg})

	do(t, srv, http.MethodGet, "/posts", "")
	do(t, srv, http.MethodGet, "/posts/abc", "")

	assert.Equal(t, 1.0, testutil.ToFloat64(srv.metrics.RequestsTotal.WithLabelValues("/posts", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(srv.metrics.RequestsTotal.WithLabelValues("/posts/:id", "GET", "404")))

	rec := do(t, srv, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestCORSPreflight(t *testing.T) {
	srv := New(storage.NewMemoryStorage(), Options{})
	req := httptest.NewRequest(http.MethodOptions, "/posts/1/like", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStreamComments(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv, client := newTestServer(t, storage.NewMemoryStorage())
	post, err := client.CreatePost(ctx, "0xA", "gm")
	require.NoError(t, err)

	stream, err := client.StreamComments(ctx, post.ID)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(srv.metrics.StreamSubscribers) == 1
	}, 2*time.Second, 10*time.Millisecond)

	created, err := client.CreateComment(ctx, post.ID, "0xB", "live")
	require.NoError(t, err)

	select {
	case got := <-stream:
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, "live", got.Content)
	case <-time.After(2 * time.Second):
		t.Fatal("no comment on stream")
	}

	cancel()
	for range stream {
	}
}

func TestStreamComments_UnknownPost(t *testing.T) {
	_, client := newTestServer(t, storage.NewMemoryStorage())

	_, err := client.StreamComments(context.Background(), "missing")

	assert.Error(t, err)
}
