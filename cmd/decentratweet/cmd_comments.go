package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MosinFAM/decentratweet/internal/feed"
	"github.com/MosinFAM/decentratweet/internal/models"
	"github.com/MosinFAM/decentratweet/internal/reconcile"
)

func loadComments(cmd *cobra.Command, postID string) (*feed.Comments, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}
	comments := feed.NewComments(client, identity(), feedOptions())
	if err := comments.FetchComments(cmd.Context(), postID, page, limit); err != nil {
		comments.Close()
		return nil, err
	}
	return comments, nil
}

func printComments(w io.Writer, comments []models.Comment) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, c := range comments {
		mark := " "
		if c.IsLiked {
			mark = "♥"
		}
		author := c.Username
		if author == "" {
			author = c.WalletAddress
		}
		fmt.Fprintf(tw, "%s\t%s\t%s%d\t%s\n", c.ID, author, mark, c.LikesCount, oneLine(c.Content))
	}
	tw.Flush()
}

func runComments(cmd *cobra.Command, args []string) error {
	postID := args[0]
	client, err := newClient()
	if err != nil {
		return err
	}
	posts := feed.NewPosts(client, identity(), feedOptions())
	defer posts.Close()
	comments := feed.NewComments(client, identity(), feedOptions())
	defer comments.Close()

	if page <= 1 && limit <= 0 {
		post, err := feed.LoadPostDetail(cmd.Context(), posts, comments, postID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s · %d likes\n\n", post.Content, post.WalletAddress, post.LikesCount)
	} else if err := comments.FetchComments(cmd.Context(), postID, page, limit); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printComments(out, comments.Items())
	state := comments.State()
	fmt.Fprintf(out, "\npage %d of %d (%d comments) %s\n", state.Page, state.TotalPages, state.Total,
		pager(state.Page, state.TotalPages))
	if !follow {
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	changes, cancel := comments.Collection().Subscribe(8)
	defer cancel()
	go func() {
		for change := range changes {
			if change.Kind == reconcile.ChangeInserted && len(change.Items) > 0 {
				printComments(out, change.Items[:1])
			}
		}
	}()
	if err := comments.Follow(ctx, postID); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func runComment(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	comments := feed.NewComments(client, identity(), feedOptions())
	defer comments.Close()

	created, err := comments.CreateComment(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), created.ID)
	return nil
}

func runLikeComment(cmd *cobra.Command, args []string) error {
	comments, err := loadComments(cmd, args[0])
	if err != nil {
		return err
	}
	defer comments.Close()

	pending, err := comments.LikeComment(cmd.Context(), args[1])
	if err != nil {
		return err
	}
	if err := pending.Wait(cmd.Context()); err != nil {
		return err
	}
	comment, _ := comments.Collection().Get(args[1])
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d likes)\n", likedLabel(pending.Liked), comment.ID, comment.LikesCount)
	return nil
}
