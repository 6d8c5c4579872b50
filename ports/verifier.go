package ports

import (
	"context"

	"github.com/pinftbay/piauth/core"
)

// Verifier checks a Pi access token against the user id the client claims.
// username is only used by verifiers that cannot look it up.
type Verifier interface {
	Verify(ctx context.Context, accessToken, claimedUserID, username string) core.VerificationResult
}
