package devserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/MosinFAM/decentratweet/internal/models"
	"github.com/MosinFAM/decentratweet/internal/session"
	"github.com/MosinFAM/decentratweet/internal/storage"
)

func (s *Server) fail(c *gin.Context, err error, message string) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, storage.ErrForbidden):
		code = http.StatusForbidden
	}
	if code == http.StatusInternalServerError {
		s.log.WithError(err).WithField("path", c.FullPath()).Error(message)
	}
	c.AbortWithStatusJSON(code, models.ErrorResponse{Message: message})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Message: err.Error()})
}

// bind decodes the JSON body into dst and validates it.
func (s *Server) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		badRequest(c, err)
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		badRequest(c, err)
		return false
	}
	return true
}

func paging(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.Query("page"))
	limit, _ = strconv.Atoi(c.Query("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	return page, min(limit, maxLimit)
}

func (s *Server) listPosts(c *gin.Context) {
	page, limit := paging(c)
	posts, total, err := s.store.ListPosts(c.Request.Context(), page, limit)
	if err != nil {
		s.fail(c, err, "Failed to fetch posts")
		return
	}
	c.JSON(http.StatusOK, models.PostsPage{Posts: posts, Total: total, Page: page, Limit: limit})
}

func (s *Server) getPost(c *gin.Context) {
	post, err := s.store.GetPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err, "Post not found")
		return
	}
	c.JSON(http.StatusOK, post)
}

func (s *Server) createPost(c *gin.Context) {
	var req models.NewPostRequest
	if !s.bind(c, &req) {
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		badRequest(c, errors.New("content cannot be empty"))
		return
	}
	post, err := s.store.AddPost(c.Request.Context(), req.WalletAddress, content)
	if err != nil {
		s.fail(c, err, "Failed to create post")
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (s *Server) deletePost(c *gin.Context) {
	var req models.WalletRequest
	if !s.bind(c, &req) {
		return
	}
	if err := s.store.DeletePost(c.Request.Context(), c.Param("id"), req.WalletAddress); err != nil {
		s.fail(c, err, "Failed to delete post")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted"})
}

func (s *Server) likePost(c *gin.Context) {
	var req models.WalletRequest
	if !s.bind(c, &req) {
		return
	}
	liked, err := s.store.TogglePostLike(c.Request.Context(), c.Param("id"), req.WalletAddress)
	if err != nil {
		s.fail(c, err, "Failed to like post")
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": liked})
}

func (s *Server) listComments(c *gin.Context) {
	page, limit := paging(c)
	comments, total, err := s.store.ListComments(c.Request.Context(), c.Param("id"), page, limit)
	if err != nil {
		s.fail(c, err, "Failed to fetch comments")
		return
	}
	c.JSON(http.StatusOK, models.CommentsPage{
		Comments:   comments,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	})
}

func (s *Server) createComment(c *gin.Context) {
	var req models.NewCommentRequest
	if !s.bind(c, &req) {
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		badRequest(c, errors.New("content cannot be empty"))
		return
	}
	comment, err := s.store.AddComment(c.Request.Context(), c.Param("id"), req.WalletAddress, content)
	if err != nil {
		s.fail(c, err, "Failed to create comment")
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (s *Server) likeComment(c *gin.Context) {
	var req models.WalletRequest
	if !s.bind(c, &req) {
		return
	}
	liked, err := s.store.ToggleCommentLike(c.Request.Context(), c.Param("id"), req.WalletAddress)
	if err != nil {
		s.fail(c, err, "Failed to like comment")
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": liked})
}

// verify accepts any non-empty signature over the expected sign-in message.
func (s *Server) verify(c *gin.Context) {
	var req models.VerifyRequest
	if !s.bind(c, &req) {
		return
	}
	resp := models.VerifyResponse{Valid: req.Message == session.SignInMessage(req.WalletAddress)}
	if resp.Valid {
		_, err := s.store.GetUser(c.Request.Context(), req.WalletAddress)
		switch {
		case err == nil:
			resp.IsRegistered = true
		case !errors.Is(err, storage.ErrNotFound):
			s.fail(c, err, "Verification failed")
			return
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) getUser(c *gin.Context) {
	user, err := s.store.GetUser(c.Request.Context(), c.Param("wallet"))
	if err != nil {
		s.fail(c, err, "User not found")
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Server) saveUser(c *gin.Context) {
	var req models.Profile
	if !s.bind(c, &req) {
		return
	}
	user, err := s.store.SaveUser(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err, "Failed to save profile")
		return
	}
	c.JSON(http.StatusOK, user)
}
