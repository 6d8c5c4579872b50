package verifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pinftbay/piauth/core"
	"github.com/pinftbay/piauth/ports"
)

const (
	// DefaultBaseURL is the Pi Platform API
	DefaultBaseURL = "https://api.minepi.com"

	// DefaultTimeout bounds a single call to the Pi API
	DefaultTimeout = 10 * time.Second
)

// meResponse is the body of GET /v2/me
type meResponse struct {
	UID      string   `json:"uid"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	Verified bool     `json:"verified"`
}

// PiVerifier implements the Verifier interface against the Pi Platform API
type PiVerifier struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

var _ ports.Verifier = (*PiVerifier)(nil)

// NewPiVerifier creates a verifier calling baseURL. apiKey is sent as X-API-Key when set.
func NewPiVerifier(baseURL, apiKey string, logger *slog.Logger) *PiVerifier {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PiVerifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: DefaultTimeout},
		logger:  logger,
	}
}

// Verify asks the Pi API who owns accessToken and checks it is claimedUserID
func (v *PiVerifier) Verify(ctx context.Context, accessToken, claimedUserID, _ string) core.VerificationResult {
	me, err := v.fetchMe(ctx, accessToken)
	if err != nil {
		reason := reasonFor(err)
		v.logger.WarnContext(ctx, "pi api verification failed", "reason", reason, "error", err)
		return core.VerificationResult{Reason: reason, Err: err}
	}

	if me.UID != claimedUserID {
		v.logger.WarnContext(ctx, "pi uid mismatch", "expected", claimedUserID, "received", me.UID)
		return core.VerificationResult{Reason: core.ReasonUserMismatch}
	}

	roles := me.Roles
	if roles == nil {
		roles = []string{}
	}

	return core.VerificationResult{
		Valid:    true,
		Username: me.Username,
		UID:      me.UID,
		Roles:    roles,
		Verified: me.Verified,
	}
}

// statusError is a non-2xx answer from the Pi API
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("pi api returned status %d", e.code)
}

func (v *PiVerifier) fetchMe(ctx context.Context, accessToken string) (*meResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/v2/me", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	if v.apiKey != "" {
		req.Header.Set("X-API-Key", v.apiKey)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &statusError{code: resp.StatusCode}
	}

	var me meResponse
	if err := json.NewDecoder(resp.Body).Decode(&me); err != nil {
		return nil, fmt.Errorf("failed to decode pi api response: %w", err)
	}

	return &me, nil
}

// reasonFor maps a failed call to the reason shown to the client
func reasonFor(err error) string {
	var se *statusError
	if errors.As(err, &se) {
		switch se.code {
		case http.StatusUnauthorized:
			return core.ReasonInvalidAccessToken
		case http.StatusForbidden:
			return core.ReasonForbidden
		case http.StatusTooManyRequests:
			return core.ReasonRateLimited
		}
		return core.ReasonFailed
	}

	if errors.Is(err, core.ErrUpstreamUnavailable) {
		return core.ReasonUnavailable
	}

	return core.ReasonFailed
}
