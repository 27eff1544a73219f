// Package registry maps live game connections to opaque download tokens and
// back. A token is a capability: whoever presents a valid one may download
// content packs from the resource HTTP service. The game session layer
// issues a token when a connection is admitted, hands it to the client over
// the game protocol, and revokes it when the connection goes away.
package registry

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// tokenBytes is the amount of randomness in a token. 16 bytes hex-encoded
// yields a 32-character lowercase token.
const tokenBytes = 16

// Registry is the token store consumed by the session layer (issue/revoke)
// and by the resource HTTP service (validate). C is the connection handle
// type; the registry treats it as an opaque comparable value.
//
// Every live connection holds at most one token: issuing a new token for a
// connection replaces its previous binding. Revocation is caller-driven;
// implementations may additionally expire tokens after a configured TTL.
type Registry[C comparable] interface {
	// IssueToken generates a fresh token for the connection and records the
	// binding in both directions. Any previous token held by the same
	// connection is invalidated first.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - conn: The connection handle to bind the new token to
	//
	// Returns:
	//   - The new token
	//   - An error if token generation or the backing store fails
	IssueToken(ctx context.Context, conn C) (string, error)

	// RevokeToken removes the binding for the connection, if any. Calling it
	// for a connection with no active token is a no-op, not an error.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - conn: The connection handle whose token should be revoked
	//
	// Returns:
	//   - An error only if the backing store fails
	RevokeToken(ctx context.Context, conn C) error

	// IsTokenValid reports whether the token is currently bound to a live
	// connection. It never mutates the registry.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - token: The token presented by a downloader
	//
	// Returns:
	//   - true if the token is bound and unexpired, false otherwise
	//   - An error only if the backing store fails
	IsTokenValid(ctx context.Context, token string) (bool, error)
}

// newToken draws 16 random bytes and renders them as lowercase hex. Token
// generation happens outside any registry lock.
func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	return hex.EncodeToString(buf), nil
}
