package ids

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/google/uuid"
)

const tokenBytes = 32

// NewSessionToken returns an opaque, uniformly-random token suitable for
// use as a bearer credential.
func NewSessionToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// NewConnID identifies one websocket connection within this process.
func NewConnID() string {
	return uuid.NewString()
}
