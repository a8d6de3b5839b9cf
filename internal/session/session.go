// Package session tracks the acting identity: the connected wallet, whether
// the API accepted its signature, and its profile.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"

	"github.com/MosinFAM/decentratweet/internal/models"
	"github.com/MosinFAM/decentratweet/internal/notify"
)

const signInPrefix = "Sign this message to login to DecentraTweet: "

var (
	ErrNoWallet           = errors.New("no wallet connected")
	ErrVerificationFailed = errors.New("wallet verification failed")
)

// SignInMessage is the text a wallet signs to log in.
func SignInMessage(address string) string {
	return signInPrefix + address
}

// Signer signs a message with the connected wallet. Key handling lives
// outside this program.
type Signer interface {
	SignMessage(ctx context.Context, message string) (string, error)
}

// SignerFunc adapts a function to Signer.
type SignerFunc func(ctx context.Context, message string) (string, error)

func (f SignerFunc) SignMessage(ctx context.Context, message string) (string, error) {
	return f(ctx, message)
}

// AuthAPI is the part of the REST API a session needs.
type AuthAPI interface {
	Verify(ctx context.Context, req models.VerifyRequest) (*models.VerifyResponse, error)
	GetUser(ctx context.Context, wallet string) (*models.Profile, error)
	SaveUser(ctx context.Context, profile models.Profile) (*models.Profile, error)
}

// Session is safe for concurrent use.
type Session struct {
	api      AuthAPI
	notifier notify.Notifier
	validate *validator.Validate
	log      *log.Entry

	mu         sync.RWMutex
	address    string
	verified   bool
	registered bool
	profile    *models.Profile
}

// New creates a session with no wallet connected.
func New(api AuthAPI, notifier notify.Notifier) *Session {
	if notifier == nil {
		notifier = notify.Discard
	}
	return &Session{
		api:      api,
		notifier: notifier,
		validate: validator.New(),
		log:      log.WithField("component", "session"),
	}
}

// Connect sets the wallet address. Changing wallets drops verification and
// profile state.
func (s *Session) Connect(address string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	address = strings.TrimSpace(address)
	if strings.EqualFold(address, s.address) {
		return
	}
	s.address = address
	s.verified = false
	s.registered = false
	s.profile = nil
}

// Disconnect forgets the wallet.
func (s *Session) Disconnect() { s.Connect("") }

// Address returns the connected wallet, empty when none.
func (s *Session) Address() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.address
}

func (s *Session) Verified() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.verified
}

func (s *Session) Registered() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registered
}

// Profile returns the last fetched or saved profile.
func (s *Session) Profile() *models.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return nil
	}
	p := *s.profile
	return &p
}

// Verify signs the sign-in message with signer and asks the API to check it.
// On success the profile is fetched when the wallet is registered.
func (s *Session) Verify(ctx context.Context, signer Signer) error {
	address := s.Address()
	if address == "" {
		return ErrNoWallet
	}
	message := SignInMessage(address)

	signature, err := signer.SignMessage(ctx, message)
	if err != nil {
		s.notifier.Notify(notify.Error("Verification failed", err))
		return fmt.Errorf("sign message: %w", err)
	}

	resp, err := s.api.Verify(ctx, models.VerifyRequest{
		WalletAddress: address,
		Message:       message,
		Signature:     signature,
	})
	if err != nil {
		s.notifier.Notify(notify.Error("Verification failed", err))
		return fmt.Errorf("verify wallet: %w", err)
	}

	s.mu.Lock()
	if s.address != address {
		s.mu.Unlock()
		return fmt.Errorf("%w: wallet changed during verification", ErrVerificationFailed)
	}
	s.verified = resp.Valid
	s.registered = resp.Valid && resp.IsRegistered
	s.mu.Unlock()

	if !resp.Valid {
		s.notifier.Notify(notify.Error("Wallet verification failed", ErrVerificationFailed))
		return ErrVerificationFailed
	}
	s.log.WithFields(log.Fields{"wallet": address, "registered": resp.IsRegistered}).Info("wallet verified")
	s.notifier.Notify(notify.Success("Wallet verified successfully! Fetching profile..."))

	if resp.IsRegistered {
		if _, err := s.FetchProfile(ctx); err != nil {
			return err
		}
	}
	return nil
}

// FetchProfile loads the profile of the connected wallet.
func (s *Session) FetchProfile(ctx context.Context) (*models.Profile, error) {
	address := s.Address()
	if address == "" {
		return nil, ErrNoWallet
	}
	profile, err := s.api.GetUser(ctx, address)
	if err != nil {
		s.notifier.Notify(notify.Error("Error fetching profile", err))
		return nil, fmt.Errorf("fetch profile: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.address == address {
		s.profile = profile
	}
	p := *profile
	return &p, nil
}

// SaveProfile creates or updates the profile of the connected wallet. The
// address is sent lowercased.
func (s *Session) SaveProfile(ctx context.Context, username, bio, pictureURL string) (*models.Profile, error) {
	address := s.Address()
	if address == "" {
		s.notifier.Notify(notify.Error("Wallet address not found.", ErrNoWallet))
		return nil, ErrNoWallet
	}
	profile := models.Profile{
		WalletAddress: strings.ToLower(address),
		Username:      strings.TrimSpace(username),
		Bio:           bio,
		ProfilePicURL: strings.TrimSpace(pictureURL),
	}
	if err := s.validate.Struct(profile); err != nil {
		s.notifier.Notify(notify.Error("Profile submission failed.", err))
		return nil, fmt.Errorf("invalid profile: %w", err)
	}

	saved, err := s.api.SaveUser(ctx, profile)
	if err != nil {
		s.notifier.Notify(notify.Error("Failed to create/update profile.", err))
		return nil, fmt.Errorf("save profile: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.EqualFold(s.address, address) {
		s.profile = saved
		s.registered = true
	}
	s.notifier.Notify(notify.Success("Profile created successfully!"))
	p := *saved
	return &p, nil
}
