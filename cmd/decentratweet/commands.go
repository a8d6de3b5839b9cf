package main

import (
	"github.com/spf13/cobra"

	"github.com/MosinFAM/decentratweet/internal/config"
	"github.com/MosinFAM/decentratweet/internal/logging"
)

var (
	configPath  string
	walletFlag  string
	metricsFile string
	cfg         config.Config

	page      int
	limit     int
	follow    bool
	signature string
	username  string
	bio       string
	picture   string

	rootCmd = &cobra.Command{
		Use:           "decentratweet",
		Short:         "Client and development server for the DecentraTweet API",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg, err = config.Load(configPath); err != nil {
				return err
			}
			if walletFlag != "" {
				cfg.Wallet.Address = walletFlag
			}
			return logging.Setup(cfg.Log.Level, cfg.Log.Format)
		},
	}

	devServerCmd = &cobra.Command{
		Use:   "devserver",
		Short: "Run a local implementation of the API",
		Args:  cobra.NoArgs,
		RunE:  runDevServer, // cmd_devserver.go
	}

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
	}
	configInitCmd = &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default config, to --config unless a path is given",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runConfigInit, // cmd_config.go
	}

	// --- Posts ---
	postsCmd = &cobra.Command{
		Use:   "posts",
		Short: "List a page of posts",
		Args:  cobra.NoArgs,
		RunE:  runPosts, // cmd_posts.go
	}
	postCmd = &cobra.Command{
		Use:   "post [content]",
		Short: "Publish a post",
		Args:  cobra.ExactArgs(1),
		RunE:  runPost,
	}
	likeCmd = &cobra.Command{
		Use:   "like [post-id]",
		Short: "Toggle your like on a post of the selected page",
		Args:  cobra.ExactArgs(1),
		RunE:  runLike,
	}
	deleteCmd = &cobra.Command{
		Use:   "delete [post-id]",
		Short: "Delete one of your posts on the selected page",
		Args:  cobra.ExactArgs(1),
		RunE:  runDelete,
	}

	// --- Comments ---
	commentsCmd = &cobra.Command{
		Use:   "comments [post-id]",
		Short: "List the comments of a post",
		Args:  cobra.ExactArgs(1),
		RunE:  runComments, // cmd_comments.go
	}
	commentCmd = &cobra.Command{
		Use:   "comment [post-id] [content]",
		Short: "Comment on a post",
		Args:  cobra.ExactArgs(2),
		RunE:  runComment,
	}
	likeCommentCmd = &cobra.Command{
		Use:   "like-comment [post-id] [comment-id]",
		Short: "Toggle your like on a comment",
		Args:  cobra.ExactArgs(2),
		RunE:  runLikeComment,
	}

	// --- Wallet ---
	verifyCmd = &cobra.Command{
		Use:   "verify",
		Short: "Verify the wallet with a signature of the sign-in message",
		Args:  cobra.NoArgs,
		RunE:  runVerify, // cmd_session.go
	}
	profileCmd = &cobra.Command{
		Use:   "profile [wallet]",
		Short: "Show a profile, your own by default",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runProfile,
	}
	profileSetCmd = &cobra.Command{
		Use:   "set",
		Short: "Create or update your profile",
		Args:  cobra.NoArgs,
		RunE:  runProfileSet,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "decentratweet.yaml", "config file")
	rootCmd.PersistentFlags().StringVarP(&walletFlag, "wallet", "w", "", "acting wallet address")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "write client metrics to this file on exit")
	cobra.OnFinalize(flushMetrics)

	for _, cmd := range []*cobra.Command{postsCmd, likeCmd, deleteCmd, commentsCmd, likeCommentCmd} {
		cmd.Flags().IntVarP(&page, "page", "p", 1, "page to load")
		cmd.Flags().IntVarP(&limit, "limit", "l", 0, "items per page (default from config)")
	}
	commentsCmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep printing new comments")
	verifyCmd.Flags().StringVar(&signature, "signature", "", "signature of the sign-in message")
	profileSetCmd.Flags().StringVar(&username, "username", "", "display name")
	profileSetCmd.Flags().StringVar(&bio, "bio", "", "short bio")
	profileSetCmd.Flags().StringVar(&picture, "picture", "", "profile picture URL")

	profileCmd.AddCommand(profileSetCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd, devServerCmd, postsCmd, postCmd, likeCmd, deleteCmd,
		commentsCmd, commentCmd, likeCommentCmd, verifyCmd, profileCmd)
}
