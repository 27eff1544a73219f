package gameserver

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/cyberinferno/resource-server/logger"
)

// Session is one admitted game client connection. On admission it receives
// a download token over the wire; the token is revoked when the session
// ends, however it ends.
type Session struct {
	id     uint32
	conn   net.Conn
	srv    *Server
	logger logger.Logger

	closeOnce sync.Once
	closeErr  error
}

func newSession(id uint32, conn net.Conn, srv *Server) *Session {
	return &Session{
		id:   id,
		conn: conn,
		srv:  srv,
		logger: srv.logger.With(
			logger.F("session_id", id),
			logger.F("remote", conn.RemoteAddr().String())),
	}
}

// ID returns the connection identifier assigned at accept time.
func (s *Session) ID() uint32 {
	return s.id
}

// Close closes the underlying connection. Safe to call more than once and
// from any goroutine; the session goroutine then unwinds through handle.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
	})

	return s.closeErr
}

// handle runs the session: issue a token, send it to the client, then read
// until the connection drops. Cleanup always revokes the token and removes
// the session from the server table.
func (s *Session) handle() {
	defer func() {
		if err := s.srv.tokens.RevokeToken(context.Background(), s.id); err != nil {
			s.logger.Error("token revocation failed", logger.F("error", err))
		}

		s.srv.sessions.Delete(s.id)
		_ = s.Close()
		s.logger.Info("session closed")
	}()

	token, err := s.srv.tokens.IssueToken(context.Background(), s.id)
	if err != nil {
		s.logger.Error("token issue failed", logger.F("error", err))
		return
	}

	if _, err := fmt.Fprintf(s.conn, "TOKEN %s\n", token); err != nil {
		s.logger.Warn("failed to deliver token", logger.F("error", err))
		return
	}

	s.logger.Info("session admitted, token delivered")

	// Drain the connection until the client goes away. DONE lets a client
	// end the session cleanly once its downloads finish.
	scanner := bufio.NewScanner(s.conn)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == "DONE" {
			s.logger.Debug("client finished downloads")
			return
		}
	}
}
