package core

import "time"

// Mode selects how access tokens are verified
type Mode string

const (
	// ModeSandbox synthesizes a valid identity without calling the Pi API
	ModeSandbox Mode = "sandbox"

	// ModeProduction verifies access tokens against the Pi API
	ModeProduction Mode = "production"
)

// Challenge represents a pending authentication challenge
type Challenge struct {
	ID        string    `json:"id"`         // Unique identifier for the challenge
	UserID    string    `json:"user_id"`    // Pi user the challenge was issued to
	Value     string    `json:"challenge"`  // Random string handed to the client
	IssuedAt  time.Time `json:"issued_at"`  // When the challenge was created
	ExpiresAt time.Time `json:"expires_at"` // Advisory expiry
}

// Expired reports whether the challenge is past its expiry at t
func (c Challenge) Expired(t time.Time) bool {
	return t.After(c.ExpiresAt)
}

// VerificationResult is the outcome of checking an access token with the identity provider
type VerificationResult struct {
	Valid    bool
	Username string
	UID      string
	Roles    []string
	Verified bool
	Reason   string // Set when Valid is false
	Err      error  // Underlying cause, for logging only
}

// Session is the payload carried inside a bearer token
type Session struct {
	UserID    string
	Username  string
	Roles     []string
	Verified  bool
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is past its expiry at t
func (s Session) Expired(t time.Time) bool {
	return t.After(s.ExpiresAt)
}

// Profile is the public view of an authenticated user
type Profile struct {
	ID            string
	Username      string
	WalletAddress string
	Roles         []string
	Verified      bool
	IssuedAt      time.Time
}

// ProfileFromSession builds the public profile carried by a session.
// The wallet address is the Pi user id.
func ProfileFromSession(s Session) Profile {
	roles := s.Roles
	if roles == nil {
		roles = []string{}
	}
	return Profile{
		ID:            s.UserID,
		Username:      s.Username,
		WalletAddress: s.UserID,
		Roles:         roles,
		Verified:      s.Verified,
		IssuedAt:      s.IssuedAt,
	}
}
