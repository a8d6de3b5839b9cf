package devserver

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const pingPeriod = 30 * time.Second

// streamComments upgrades to a websocket and pushes every comment added to
// the post as JSON until the client goes away or the server closes.
func (s *Server) streamComments(c *gin.Context) {
	postID := c.Param("id")
	if _, err := s.store.GetPost(c.Request.Context(), postID); err != nil {
		s.fail(c, err, "Post not found")
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(s.streams)
	defer cancel()

	comments, err := s.store.SubscribeToComments(ctx, postID)
	if err != nil {
		s.log.WithError(err).Error("subscribe to comments")
		return
	}

	s.metrics.StreamSubscribers.Inc()
	defer s.metrics.StreamSubscribers.Dec()
	entry := s.log.WithField("post_id", postID)
	entry.Debug("comment stream opened")

	// the reader only notices the client closing
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			entry.Debug("comment stream closed")
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case comment, ok := <-comments:
			if !ok {
				return
			}
			if err := conn.WriteJSON(comment); err != nil {
				entry.WithError(err).Debug("comment stream write")
				return
			}
		}
	}
}
