package registry

import (
	"context"
	"sync"
	"time"
)

// binding is one side of the token mapping: the connection a token belongs
// to and, when a TTL is configured, the instant it stops being valid.
type binding[C comparable] struct {
	conn    C
	expires time.Time
}

// MemoryRegistry is the in-process Registry implementation. It keeps two
// maps (token to connection, connection to token) that are always mutated
// together under one mutex, so no caller ever observes them transiently
// inconsistent. Bindings do not survive a restart.
type MemoryRegistry[C comparable] struct {
	ttl time.Duration

	mu      sync.RWMutex
	byToken map[string]binding[C]
	byConn  map[C]string
}

// NewMemoryRegistry creates an empty in-memory registry. A ttl of zero
// disables expiry; tokens then stay valid until revoked.
//
// Parameters:
//   - ttl: How long an issued token stays valid, or 0 for no expiry
//
// Returns:
//   - A new MemoryRegistry ready for concurrent use
func NewMemoryRegistry[C comparable](ttl time.Duration) *MemoryRegistry[C] {
	return &MemoryRegistry[C]{
		ttl:     ttl,
		byToken: make(map[string]binding[C]),
		byConn:  make(map[C]string),
	}
}

// IssueToken implements Registry. The previous token for the connection, if
// any, is removed in the same critical section that installs the new one.
func (r *MemoryRegistry[C]) IssueToken(ctx context.Context, conn C) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	token, err := newToken()
	if err != nil {
		return "", err
	}

	var expires time.Time
	if r.ttl > 0 {
		expires = time.Now().Add(r.ttl)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.byConn[conn]; ok {
		delete(r.byToken, old)
	}

	r.byToken[token] = binding[C]{conn: conn, expires: expires}
	r.byConn[conn] = token
	return token, nil
}

// RevokeToken implements Registry. Idempotent; revoking a connection that
// holds no token does nothing.
func (r *MemoryRegistry[C]) RevokeToken(ctx context.Context, conn C) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if token, ok := r.byConn[conn]; ok {
		delete(r.byToken, token)
		delete(r.byConn, conn)
	}

	return nil
}

// IsTokenValid implements Registry. A revocation that races with an
// in-flight validation may lose; a request already validated is allowed to
// finish.
func (r *MemoryRegistry[C]) IsTokenValid(ctx context.Context, token string) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.byToken[token]
	if !ok {
		return false, nil
	}

	if !b.expires.IsZero() && time.Now().After(b.expires) {
		return false, nil
	}

	return true, nil
}

// Connection returns the connection a token is bound to. Used by the
// session layer for audit logging.
//
// Parameters:
//   - token: The token to look up
//
// Returns:
//   - The bound connection and true, or a zero value and false if unbound
func (r *MemoryRegistry[C]) Connection(token string) (C, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.byToken[token]
	if !ok {
		var zero C
		return zero, false
	}

	return b.conn, true
}

// Len returns the number of live bindings.
func (r *MemoryRegistry[C]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byToken)
}
