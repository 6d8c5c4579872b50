package verifier

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/pinftbay/piauth/core"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubPi serves /v2/me with a fixed status and body and records the last request headers.
func stubPi(t *testing.T, status int, body any) (*httptest.Server, func() http.Header) {
	t.Helper()
	var (
		mu   sync.Mutex
		seen http.Header
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = r.Header.Clone()
		mu.Unlock()
		if r.URL.Path != "/v2/me" || r.Method != http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv, func() http.Header {
		mu.Lock()
		defer mu.Unlock()
		return seen
	}
}

func TestPiVerifier(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("valid token", func(t *testing.T) {
		srv, seen := stubPi(t, http.StatusOK, map[string]any{
			"uid": "abc123", "username": "alice", "roles": []string{"user", "email_verified"}, "verified": true,
		})
		v := NewPiVerifier(srv.URL, "key-1", discardLogger())

		res := v.Verify(ctx, "tok", "abc123", "ignored")
		require.True(t, res.Valid)
		require.Equal(t, "alice", res.Username)
		require.Equal(t, "abc123", res.UID)
		require.Equal(t, []string{"user", "email_verified"}, res.Roles)
		require.True(t, res.Verified)

		require.Equal(t, "Bearer tok", seen().Get("Authorization"))
		require.Equal(t, "key-1", seen().Get("X-API-Key"))
	})

	t.Run("no api key header without key", func(t *testing.T) {
		srv, seen := stubPi(t, http.StatusOK, map[string]any{"uid": "abc123", "username": "alice"})
		v := NewPiVerifier(srv.URL, "", discardLogger())

		res := v.Verify(ctx, "tok", "abc123", "")
		require.True(t, res.Valid)
		require.Empty(t, seen().Get("X-API-Key"))
		require.Equal(t, []string{}, res.Roles)
		require.False(t, res.Verified)
	})

	t.Run("uid mismatch", func(t *testing.T) {
		srv, _ := stubPi(t, http.StatusOK, map[string]any{"uid": "someone-else", "username": "mallory"})
		v := NewPiVerifier(srv.URL, "key", discardLogger())

		res := v.Verify(ctx, "tok", "abc123", "")
		require.False(t, res.Valid)
		require.Equal(t, core.ReasonUserMismatch, res.Reason)
	})

	statusCases := []struct {
		status int
		reason string
	}{
		{http.StatusUnauthorized, core.ReasonInvalidAccessToken},
		{http.StatusForbidden, core.ReasonForbidden},
		{http.StatusTooManyRequests, core.ReasonRateLimited},
		{http.StatusInternalServerError, core.ReasonFailed},
		{http.StatusBadGateway, core.ReasonFailed},
	}
	for _, tc := range statusCases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			srv, _ := stubPi(t, tc.status, map[string]string{"error": "nope"})
			v := NewPiVerifier(srv.URL, "key", discardLogger())

			res := v.Verify(ctx, "tok", "abc123", "")
			require.False(t, res.Valid)
			require.Equal(t, tc.reason, res.Reason)
		})
	}

	t.Run("undecodable body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>"))
		}))
		t.Cleanup(srv.Close)
		v := NewPiVerifier(srv.URL, "key", discardLogger())

		res := v.Verify(ctx, "tok", "abc123", "")
		require.False(t, res.Valid)
		require.Equal(t, core.ReasonFailed, res.Reason)
	})

	t.Run("unreachable api", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()
		v := NewPiVerifier(url, "key", discardLogger())

		res := v.Verify(ctx, "tok", "abc123", "")
		require.False(t, res.Valid)
		require.Equal(t, core.ReasonUnavailable, res.Reason)
		require.ErrorIs(t, res.Err, core.ErrUpstreamUnavailable)
	})
}

func TestNewPiVerifierDefaults(t *testing.T) {
	t.Parallel()

	v := NewPiVerifier("", "", nil)
	require.Equal(t, DefaultBaseURL, v.baseURL)
	require.Equal(t, DefaultTimeout, v.client.Timeout)

	v = NewPiVerifier("http://localhost:9999/", "", nil)
	require.Equal(t, "http://localhost:9999", v.baseURL)
}

func TestSandboxVerifier(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	v := NewSandboxVerifier()

	t.Run("uses supplied username", func(t *testing.T) {
		res := v.Verify(ctx, "anything", "abc123", "alice")
		require.True(t, res.Valid)
		require.Equal(t, "alice", res.Username)
		require.Equal(t, "abc123", res.UID)
		require.Equal(t, []string{"user"}, res.Roles)
		require.False(t, res.Verified)
	})

	t.Run("derives username from user id", func(t *testing.T) {
		res := v.Verify(ctx, "", "pi-user-1234567890", "")
		require.True(t, res.Valid)
		require.Equal(t, "user_567890", res.Username)
	})

	t.Run("short user ids are used whole", func(t *testing.T) {
		require.Equal(t, "user_abc", SandboxUsername("abc"))
		require.Equal(t, "user_abc123", SandboxUsername("abc123"))
	})
}
