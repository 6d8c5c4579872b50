package tokenizer

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pinftbay/piauth/core"
	"github.com/pinftbay/piauth/ports"
)

const AudienceSession = "session:access"

// JWTCodec implements the Codec interface with HS256-signed JWTs
type JWTCodec struct {
	secret []byte
	parser *jwt.Parser
}

var _ ports.Codec = (*JWTCodec)(nil)

// NewJWTCodec creates a codec signing with the given secret
func NewJWTCodec(secret []byte) (*JWTCodec, error) {
	if len(secret) == 0 {
		return nil, errors.New("session secret is empty")
	}
	return &JWTCodec{
		secret: secret,
		// Expiry is checked by the auth service against its own clock.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}, nil
}

// Encode signs the session into a JWT
func (j *JWTCodec) Encode(session core.Session) (string, error) {
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.UserID,
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			Audience:  jwt.ClaimStrings{AudienceSession},
		},
		Username: session.Username,
		Roles:    session.Roles,
		Verified: session.Verified,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedToken, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	return signedToken, nil
}

// Decode verifies the signature and returns the session it carries
func (j *JWTCodec) Decode(tokenStr string) (core.Session, error) {
	token, err := j.parser.ParseWithClaims(tokenStr, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return j.secret, nil
	})
	if err != nil {
		return core.Session{}, fmt.Errorf("%w: %w", core.ErrMalformedToken, err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return core.Session{}, core.ErrMalformedToken
	}

	if claims.Subject == "" || claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return core.Session{}, fmt.Errorf("%w: missing required claims", core.ErrMalformedToken)
	}

	aud, err := claims.GetAudience()
	if err != nil || len(aud) == 0 || aud[0] != AudienceSession {
		return core.Session{}, fmt.Errorf("%w: invalid audience", core.ErrMalformedToken)
	}

	return core.Session{
		UserID:    claims.Subject,
		Username:  claims.Username,
		Roles:     claims.Roles,
		Verified:  claims.Verified,
		IssuedAt:  claims.IssuedAt.UTC(),
		ExpiresAt: claims.ExpiresAt.UTC(),
	}, nil
}
