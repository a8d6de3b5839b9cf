package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/gorilla/websocket"

	"github.com/MosinFAM/decentratweet/internal/models"
)

// StreamComments subscribes to comments added to postID. The returned
// channel is closed when ctx ends or the connection drops.
func (c *Client) StreamComments(ctx context.Context, postID string) (<-chan models.Comment, error) {
	u := *c.baseURL
	u.Path = c.baseURL.Path + "/posts/" + url.PathEscape(postID) + "/comments/stream"
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	conn, _, err := c.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial comment stream: %w", err)
	}

	entry := c.log.WithField("post_id", postID)
	ch := make(chan models.Comment, 1)

	// closing the connection unblocks ReadJSON when ctx ends
	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			conn.Close()
		case <-stop:
		}
	}()

	go func() {
		defer close(ch)
		defer close(stop)
		defer conn.Close()
		for {
			var comment models.Comment
			if err := conn.ReadJSON(&comment); err != nil {
				if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					entry.WithError(err).Warn("comment stream closed")
				}
				return
			}
			select {
			case ch <- comment:
			case <-ctx.Done():
				return
			}
		}
	}()

	entry.Debug("listening for comments")
	return ch, nil
}
