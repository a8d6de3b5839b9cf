package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/MosinFAM/decentratweet/internal/models"
	"github.com/MosinFAM/decentratweet/internal/session"
)

func newSession() (*session.Session, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}
	s := session.New(client, feedOptions().Notifier)
	s.Connect(cfg.Wallet.Address)
	return s, nil
}

// runVerify submits a signature made outside this tool. Without one it prints
// the message that has to be signed.
func runVerify(cmd *cobra.Command, args []string) error {
	if cfg.Wallet.Address == "" {
		return session.ErrNoWallet
	}
	if signature == "" {
		fmt.Fprintf(cmd.OutOrStdout(), "sign this message with %s and pass it with --signature:\n%s\n",
			cfg.Wallet.Address, session.SignInMessage(cfg.Wallet.Address))
		return errors.New("missing signature")
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	signer := session.SignerFunc(func(context.Context, string) (string, error) { return signature, nil })
	if err := s.Verify(cmd.Context(), signer); err != nil {
		return err
	}
	if !s.Registered() {
		fmt.Fprintln(cmd.OutOrStdout(), "wallet verified; no profile yet, create one with `profile set`")
		return nil
	}
	printProfile(cmd.OutOrStdout(), s.Profile())
	return nil
}

func runProfile(cmd *cobra.Command, args []string) error {
	wallet := cfg.Wallet.Address
	if len(args) == 1 {
		wallet = args[0]
	}
	if wallet == "" {
		return session.ErrNoWallet
	}
	client, err := newClient()
	if err != nil {
		return err
	}
	profile, err := client.GetUser(cmd.Context(), wallet)
	if err != nil {
		return err
	}
	printProfile(cmd.OutOrStdout(), profile)
	return nil
}

func runProfileSet(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	profile, err := s.SaveProfile(cmd.Context(), username, bio, picture)
	if err != nil {
		return err
	}
	printProfile(cmd.OutOrStdout(), profile)
	return nil
}

func printProfile(w io.Writer, p *models.Profile) {
	if p == nil {
		return
	}
	fmt.Fprintf(w, "wallet:   %s\nusername: %s\nbio:      %s\npicture:  %s\n",
		p.WalletAddress, p.Username, p.Bio, p.ProfilePicURL)
}
