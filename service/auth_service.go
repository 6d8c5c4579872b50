package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pinftbay/piauth/core"
	"github.com/pinftbay/piauth/logging"
	"github.com/pinftbay/piauth/ports"
)

const (
	DefaultChallengeTTL = 5 * time.Minute
	DefaultSessionTTL   = 7 * 24 * time.Hour
)

// Config selects how the service verifies users
type Config struct {
	Mode core.Mode

	// RequireChallengeRoundTrip makes Verify demand the challenge issued to the user
	RequireChallengeRoundTrip bool

	ChallengeTTL time.Duration
	SessionTTL   time.Duration
}

// VerifyRequest is the input of Verify
type VerifyRequest struct {
	UserID      string
	AccessToken string
	Username    string
	Challenge   string // Only checked when RequireChallengeRoundTrip is set
}

// VerifyResult is returned after a successful verification
type VerifyResult struct {
	Token   string
	Session core.Session
	Profile core.Profile
	Mode    core.Mode
}

// Health reports the service state
type Health struct {
	Mode core.Mode
	Time time.Time
}

// Option configures an AuthService
type Option func(*AuthService)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *AuthService) { s.now = now }
}

// WithLogger sets the logger used when no request logger is available
func WithLogger(logger *slog.Logger) Option {
	return func(s *AuthService) { s.logger = logger }
}

// AuthService handles authentication business logic
type AuthService struct {
	cfg      Config
	verifier ports.Verifier
	store    ports.ChallengeStore
	codec    ports.Codec
	eventPub ports.EventPublisher

	now    func() time.Time
	logger *slog.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	cfg Config,
	verifier ports.Verifier,
	store ports.ChallengeStore,
	codec ports.Codec,
	eventPub ports.EventPublisher,
	opts ...Option,
) *AuthService {
	if cfg.Mode == "" {
		cfg.Mode = core.ModeSandbox
	}
	if cfg.ChallengeTTL <= 0 {
		cfg.ChallengeTTL = DefaultChallengeTTL
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}

	s := &AuthService{
		cfg:      cfg,
		verifier: verifier,
		store:    store,
		codec:    codec,
		eventPub: eventPub,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mode returns the verification mode
func (s *AuthService) Mode() core.Mode {
	return s.cfg.Mode
}

// CreateChallenge issues a new challenge for a Pi user, replacing any earlier one
func (s *AuthService) CreateChallenge(ctx context.Context, userID string) (core.Challenge, error) {
	if userID == "" {
		return core.Challenge{}, fmt.Errorf("%w: user id is required", core.ErrInvalidRequest)
	}

	nonceBytes := make([]byte, 32)
	if _, err := rand.Read(nonceBytes); err != nil {
		return core.Challenge{}, fmt.Errorf("failed to generate challenge: %w", err)
	}

	now := s.now().UTC()
	challenge := core.Challenge{
		ID:        uuid.New().String(),
		UserID:    userID,
		Value:     hex.EncodeToString(nonceBytes),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.ChallengeTTL),
	}

	if err := s.store.Put(ctx, userID, challenge); err != nil {
		return core.Challenge{}, fmt.Errorf("failed to store challenge: %w", err)
	}

	return challenge, nil
}

// Verify checks the access token with the identity provider and issues a session token
func (s *AuthService) Verify(ctx context.Context, req VerifyRequest) (VerifyResult, error) {
	if req.UserID == "" || req.AccessToken == "" {
		return VerifyResult{}, fmt.Errorf("%w: user id and access token are required", core.ErrInvalidRequest)
	}

	log := s.log(ctx).With("pi_user_id", req.UserID, "mode", s.cfg.Mode)

	if s.cfg.RequireChallengeRoundTrip {
		if err := s.checkChallenge(ctx, req.UserID, req.Challenge); err != nil {
			log.WarnContext(ctx, "challenge check failed", "error", err)
			return VerifyResult{}, err
		}
	}

	res := s.verifier.Verify(ctx, req.AccessToken, req.UserID, req.Username)
	if !res.Valid {
		log.InfoContext(ctx, "pi verification failed", "reason", res.Reason)
		return VerifyResult{}, &core.VerificationError{Reason: res.Reason, Err: res.Err}
	}

	// Token times are second-aligned so every codec round-trips them exactly.
	now := s.now().UTC().Truncate(time.Second)
	roles := res.Roles
	if roles == nil {
		roles = []string{}
	}
	session := core.Session{
		UserID:    req.UserID,
		Username:  res.Username,
		Roles:     roles,
		Verified:  res.Verified,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.SessionTTL),
	}

	token, err := s.codec.Encode(session)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("failed to create session token: %w", err)
	}

	if s.cfg.RequireChallengeRoundTrip {
		if err := s.store.Expire(ctx, req.UserID); err != nil {
			log.WarnContext(ctx, "failed to expire used challenge", "error", err)
		}
	}

	// A lost event must not fail the login; the token is already minted.
	if err := s.eventPub.PublishVerified(ctx, session, s.cfg.Mode); err != nil {
		log.WarnContext(ctx, "failed to publish verified event", "error", err)
	}

	log.InfoContext(ctx, "authentication successful", "username", session.Username)

	return VerifyResult{
		Token:   token,
		Session: session,
		Profile: core.ProfileFromSession(session),
		Mode:    s.cfg.Mode,
	}, nil
}

// checkChallenge requires the client to echo the unexpired challenge issued to userID
func (s *AuthService) checkChallenge(ctx context.Context, userID, presented string) error {
	if presented == "" {
		return fmt.Errorf("%w: %w", core.ErrInvalidRequest, core.ErrChallengeRequired)
	}

	stored, err := s.store.Get(ctx, userID)
	if err != nil {
		return err
	}

	if stored.Value != presented {
		return core.ErrChallengeMismatch
	}

	if stored.Expired(s.now()) {
		return core.ErrChallengeExpired
	}

	return nil
}

// Profile decodes a bearer token and returns the user it was issued to.
// The identity provider is not contacted again.
func (s *AuthService) Profile(ctx context.Context, token string) (core.Profile, error) {
	if token == "" {
		return core.Profile{}, core.ErrUnauthenticated
	}

	session, err := s.codec.Decode(token)
	if err != nil {
		return core.Profile{}, fmt.Errorf("%w: %w", core.ErrInvalidToken, err)
	}

	if session.Expired(s.now()) {
		return core.Profile{}, core.ErrTokenExpired
	}

	return core.ProfileFromSession(session), nil
}

// Health reports the verification mode and current time
func (s *AuthService) Health() Health {
	return Health{Mode: s.cfg.Mode, Time: s.now().UTC()}
}

func (s *AuthService) log(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}
