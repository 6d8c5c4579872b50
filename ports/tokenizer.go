package ports

import "github.com/pinftbay/piauth/core"

// Codec converts between sessions and bearer tokens
type Codec interface {
	Encode(session core.Session) (string, error)

	// Decode fails with core.ErrMalformedToken when the token cannot be read
	Decode(token string) (core.Session, error)
}
