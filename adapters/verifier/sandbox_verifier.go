package verifier

import (
	"context"

	"github.com/pinftbay/piauth/core"
	"github.com/pinftbay/piauth/ports"
)

// SandboxVerifier accepts every access token. Local development only.
type SandboxVerifier struct{}

var _ ports.Verifier = SandboxVerifier{}

// NewSandboxVerifier creates a sandbox verifier
func NewSandboxVerifier() SandboxVerifier {
	return SandboxVerifier{}
}

// Verify returns a valid, unverified identity for claimedUserID
func (SandboxVerifier) Verify(_ context.Context, _, claimedUserID, username string) core.VerificationResult {
	if username == "" {
		username = SandboxUsername(claimedUserID)
	}
	return core.VerificationResult{
		Valid:    true,
		Username: username,
		UID:      claimedUserID,
		Roles:    []string{"user"},
		Verified: false,
	}
}

// SandboxUsername derives a stable username from the last six characters of a user id
func SandboxUsername(userID string) string {
	suffix := userID
	if r := []rune(userID); len(r) > 6 {
		suffix = string(r[len(r)-6:])
	}
	return "user_" + suffix
}
