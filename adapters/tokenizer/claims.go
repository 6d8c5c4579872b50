package tokenizer

import "github.com/golang-jwt/jwt/v5"

// SessionClaims combines standard claims with the session profile
type SessionClaims struct {
	jwt.RegisteredClaims
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	Verified bool     `json:"verified"`
}

// legacyPayload is the JSON layout of unsigned tokens; times are Unix milliseconds
type legacyPayload struct {
	UserID    string   `json:"userId"`
	Username  string   `json:"username"`
	Roles     []string `json:"roles"`
	Verified  bool     `json:"verified"`
	Timestamp int64    `json:"timestamp"`
	ExpiresAt int64    `json:"expiresAt"`
}
