package tokenizer

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pinftbay/piauth/core"
	"github.com/pinftbay/piauth/ports"
)

// Base64Codec implements the Codec interface with base64-encoded JSON.
// Tokens are not signed: anyone holding one can read it or forge another.
// It exists to keep accepting tokens minted before the switch to JWTCodec.
type Base64Codec struct{}

var _ ports.Codec = Base64Codec{}

// NewBase64Codec creates a legacy codec
func NewBase64Codec() Base64Codec {
	return Base64Codec{}
}

// Encode serializes the session to JSON and base64-encodes it
func (Base64Codec) Encode(session core.Session) (string, error) {
	payload, err := json.Marshal(legacyPayload{
		UserID:    session.UserID,
		Username:  session.Username,
		Roles:     session.Roles,
		Verified:  session.Verified,
		Timestamp: session.IssuedAt.UnixMilli(),
		ExpiresAt: session.ExpiresAt.UnixMilli(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal session: %w", err)
	}

	return base64.StdEncoding.EncodeToString(payload), nil
}

// Decode reverses Encode
func (Base64Codec) Decode(token string) (core.Session, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return core.Session{}, fmt.Errorf("%w: %w", core.ErrMalformedToken, err)
	}

	var payload legacyPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return core.Session{}, fmt.Errorf("%w: %w", core.ErrMalformedToken, err)
	}

	if payload.UserID == "" || payload.ExpiresAt == 0 {
		return core.Session{}, fmt.Errorf("%w: missing required fields", core.ErrMalformedToken)
	}

	return core.Session{
		UserID:    payload.UserID,
		Username:  payload.Username,
		Roles:     payload.Roles,
		Verified:  payload.Verified,
		IssuedAt:  time.UnixMilli(payload.Timestamp).UTC(),
		ExpiresAt: time.UnixMilli(payload.ExpiresAt).UTC(),
	}, nil
}
