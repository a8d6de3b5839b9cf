package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MosinFAM/decentratweet/internal/feed"
	"github.com/MosinFAM/decentratweet/internal/models"
)

func loadPosts(cmd *cobra.Command) (*feed.Posts, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}
	posts := feed.NewPosts(client, identity(), feedOptions())
	if err := posts.FetchPosts(cmd.Context(), page, limit); err != nil {
		posts.Close()
		return nil, err
	}
	return posts, nil
}

func runPosts(cmd *cobra.Command, args []string) error {
	posts, err := loadPosts(cmd)
	if err != nil {
		return err
	}
	defer posts.Close()

	out := cmd.OutOrStdout()
	printPosts(out, posts.Items())
	state := posts.State()
	fmt.Fprintf(out, "\npage %d of %d (%d posts) %s\n", state.Page, state.TotalPages, state.Total,
		pager(state.Page, state.TotalPages))
	return nil
}

func printPosts(w io.Writer, posts []models.Post) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tAUTHOR\tLIKES\tCOMMENTS\tCONTENT")
	for _, p := range posts {
		mark := " "
		if p.IsLiked {
			mark = "♥"
		}
		author := p.Username
		if author == "" {
			author = p.WalletAddress
		}
		fmt.Fprintf(tw, "%s\t%s\t%s%d\t%d\t%s\n", p.ID, author, mark, p.LikesCount, p.CommentsCount, oneLine(p.Content))
	}
	tw.Flush()
}

func pager(current, total int) string {
	var b strings.Builder
	for i, p := range feed.PageWindow(current, total, 5) {
		if i > 0 {
			b.WriteByte(' ')
		}
		if p == current {
			b.WriteString("[" + strconv.Itoa(p) + "]")
			continue
		}
		b.WriteString(strconv.Itoa(p))
	}
	return b.String()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func runPost(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	posts := feed.NewPosts(client, identity(), feedOptions())
	defer posts.Close()
	return posts.CreatePost(cmd.Context(), args[0])
}

func runLike(cmd *cobra.Command, args []string) error {
	posts, err := loadPosts(cmd)
	if err != nil {
		return err
	}
	defer posts.Close()

	pending, err := posts.LikePost(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if err := pending.Wait(cmd.Context()); err != nil {
		return err
	}
	post, _ := posts.Collection().Get(args[0])
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d likes)\n", likedLabel(pending.Liked), post.ID, post.LikesCount)
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	posts, err := loadPosts(cmd)
	if err != nil {
		return err
	}
	defer posts.Close()

	pending, err := posts.DeletePost(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return pending.Wait(cmd.Context())
}
