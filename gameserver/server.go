// Package gameserver is the session boundary in front of the token
// registry: a TCP listener that owns game client connections, issues a
// download token when a connection is admitted, hands the token to the
// client, and revokes it when the connection goes away. The full game
// protocol lives in the engine-side code; this layer only carries the
// resource-distribution handshake.
package gameserver

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/cyberinferno/resource-server/logger"
	"github.com/cyberinferno/resource-server/safemap"
)

// TokenIssuer is the part of the token registry the session layer drives.
// Satisfied by registry.MemoryRegistry and registry.RedisRegistry.
type TokenIssuer interface {
	IssueToken(ctx context.Context, conn uint32) (string, error)
	RevokeToken(ctx context.Context, conn uint32) error
}

// Config holds the settings for one game listener.
type Config struct {
	// Addr is the listen address for game clients, e.g. ":27015".
	Addr string
}

// Server accepts game client connections and runs one Session per
// connection. Between Start and Stop the accept loop runs on a background
// goroutine; each session gets its own goroutine, all joined by Stop.
type Server struct {
	logger   logger.Logger
	addr     string
	tokens   TokenIssuer
	sessions *safemap.SafeMap[uint32, *Session]

	listener   net.Listener
	running    atomic.Bool
	nextID     atomic.Uint32
	acceptDone chan struct{}
	wg         sync.WaitGroup
}

// New creates a game server. Call Start to bind and begin accepting.
//
// Parameters:
//   - cfg: Listen address
//   - tokens: Registry used to issue and revoke download tokens
//   - log: Destination for structured logs
//
// Returns:
//   - A new Server in the stopped state
func New(cfg Config, tokens TokenIssuer, log logger.Logger) *Server {
	return &Server{
		logger:   log,
		addr:     cfg.Addr,
		tokens:   tokens,
		sessions: safemap.New[uint32, *Session](),
	}
}

// Start binds the listener and launches the accept loop in a goroutine.
//
// Returns:
//   - An error if the server is already running or the bind fails
func (s *Server) Start() error {
	if s.running.Load() {
		s.logger.Error("game server already running")
		return fmt.Errorf("game server already running")
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.logger.Error("game server failed to bind", logger.F("addr", s.addr), logger.F("error", err))
		return fmt.Errorf("game server failed to bind %s: %w", s.addr, err)
	}

	s.listener = ln
	s.acceptDone = make(chan struct{})
	s.running.Store(true)
	s.logger.Info("game server started", logger.F("addr", ln.Addr().String()))

	go s.acceptLoop()

	return nil
}

// Stop closes the listener, closes every live session, and waits for the
// accept loop and all session goroutines to finish. The accept loop is
// joined before the session table is swept, so a connection admitted in
// the same instant cannot slip past the sweep and stall the wait. Safe to
// call from any goroutine and on a server that was never started.
func (s *Server) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		s.logger.Debug("game server not running")
		return
	}

	if s.listener != nil {
		_ = s.listener.Close()
	}

	<-s.acceptDone

	s.sessions.Range(func(_ uint32, sess *Session) bool {
		_ = sess.Close()
		return true
	})

	s.wg.Wait()
	s.logger.Info("game server stopped")
}

// Addr returns the bound listen address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

// SessionCount returns the number of live sessions.
func (s *Server) SessionCount() int {
	return s.sessions.Len()
}

// acceptLoop admits connections until Stop closes the listener. Each
// accepted connection gets a fresh ID and its own session goroutine.
func (s *Server) acceptLoop() {
	defer close(s.acceptDone)

	for s.running.Load() {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() {
				return
			}

			s.logger.Error("game server accept error", logger.F("error", err))
			continue
		}

		// Stop may have fired between Accept returning and this point;
		// turn the connection away instead of registering a session the
		// shutdown sweep can no longer see.
		if !s.running.Load() {
			_ = conn.Close()
			return
		}

		id := s.nextID.Add(1)
		sess := newSession(id, conn, s)
		s.sessions.Store(id, sess)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			sess.handle()
		}()
	}
}
