// Package resource implements the content-pack download service: an HTTP
// server that streams files out of a public directory to game clients
// presenting a valid download token. Tokens are issued and revoked by the
// game session layer through the registry package; this server only
// validates them.
package resource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/cyberinferno/resource-server/logger"
)

// publicPrefix is the URL prefix all download routes live under.
const publicPrefix = "/public/"

// TokenValidator is the part of the token registry the download server
// needs. Satisfied by registry.MemoryRegistry and registry.RedisRegistry.
type TokenValidator interface {
	IsTokenValid(ctx context.Context, token string) (bool, error)
}

// Config holds the settings for one download server instance.
type Config struct {
	// Addr is the listen address, e.g. ":8781" to bind all interfaces.
	Addr string
	// PublicDir is the directory content packs are served from. It may be
	// created after the server starts; requests 404 until it exists.
	PublicDir string
	// ChecksumTTL is how long computed file checksums stay cached.
	// Zero selects a 5 minute default.
	ChecksumTTL time.Duration
}

// Server serves GET /public/<path>?token=<token> from the public directory.
// It runs its serve loop on one background goroutine between Start and
// Stop. The public directory is treated as externally owned and read-only;
// files may appear or vanish at any time.
type Server struct {
	logger    logger.Logger
	addr      string
	publicDir string
	tokens    TokenValidator
	checksums *checksumCache

	listener net.Listener
	httpSrv  *http.Server
	done     chan struct{}
	running  atomic.Bool
}

// New creates a download server. Call Start to bind and begin serving.
//
// Parameters:
//   - cfg: Listen address, public directory, and cache settings
//   - tokens: The token registry used to authorize downloads
//   - log: Destination for structured logs
//
// Returns:
//   - A new Server in the stopped state
func New(cfg Config, tokens TokenValidator, log logger.Logger) *Server {
	ttl := cfg.ChecksumTTL
	if ttl == 0 {
		ttl = 5 * time.Minute
	}

	return &Server{
		logger:    log,
		addr:      cfg.Addr,
		publicDir: cfg.PublicDir,
		tokens:    tokens,
		checksums: newChecksumCache(ttl),
	}
}

// Start binds the listener and launches the serve loop in a goroutine. A
// missing public directory is logged but is not an error; the bind failing
// is. The server must not be started twice.
//
// Returns:
//   - An error if the server is already running or the bind fails
func (s *Server) Start() error {
	if s.running.Load() {
		s.logger.Error("download server already running")
		return fmt.Errorf("download server already running")
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.logger.Error("download server failed to bind", logger.F("addr", s.addr), logger.F("error", err))
		return fmt.Errorf("download server failed to bind %s: %w", s.addr, err)
	}

	if _, err := os.Stat(s.publicDir); err != nil {
		s.logger.Warn("public directory not found, downloads will 404 until it exists",
			logger.F("public_dir", s.publicDir))
	}

	s.listener = ln
	s.done = make(chan struct{})
	s.httpSrv = &http.Server{Handler: s}
	s.running.Store(true)

	s.logger.Info("download server started",
		logger.F("addr", ln.Addr().String()),
		logger.F("public_dir", s.publicDir))
	go s.serveLoop()

	return nil
}

// Stop shuts the server down: no new connections are accepted, requests
// already in flight are allowed to finish, and the serve goroutine is
// joined before Stop returns. Safe to call from any goroutine and on a
// server that was never started.
func (s *Server) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		s.logger.Debug("download server not running")
		return
	}

	if err := s.httpSrv.Shutdown(context.Background()); err != nil {
		s.logger.Error("download server shutdown error", logger.F("error", err))
	}

	<-s.done
	s.logger.Info("download server stopped")
}

// Addr returns the bound listen address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

// serveLoop runs the blocking HTTP serve call until Stop closes the listener.
func (s *Server) serveLoop() {
	defer close(s.done)

	if err := s.httpSrv.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("download server serve loop ended", logger.F("error", err))
	}
}

// ServeHTTP implements http.Handler. Routing is done by hand rather than
// through http.ServeMux so that dot segments in the request path reach the
// resolver untouched and are rejected with 404 instead of being cleaned
// or redirected.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rel, ok := strings.CutPrefix(r.URL.Path, publicPrefix)
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	s.handleDownload(w, r, rel)
}

// handleDownload authorizes the request, resolves the path, and streams the
// file. All failures map to a status code and a short plain-text body;
// nothing internal leaks to the client.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request, rel string) {
	start := time.Now()
	log := s.logger.With(
		logger.F("request_id", uuid.NewString()),
		logger.F("remote", r.RemoteAddr))

	token := r.URL.Query().Get("token")
	if token == "" {
		log.Debug("download rejected, no token")
		http.Error(w, "token required", http.StatusUnauthorized)
		return
	}

	valid, err := s.tokens.IsTokenValid(r.Context(), token)
	if err != nil {
		log.Error("token validation failed", logger.F("error", err))
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	if !valid {
		log.Debug("download rejected, invalid token")
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	if rel == "" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	resolved, err := resolvePublicPath(s.publicDir, rel)
	if err != nil {
		log.Debug("path resolution failed", logger.F("path", rel))
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	// The file may have vanished since resolution; publishing happens
	// out of band.
	file, err := os.Open(resolved)
	if err != nil {
		log.Debug("resolved file could not be opened", logger.F("file", resolved))
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	defer func() {
		_ = file.Close()
	}()

	info, err := file.Stat()
	if err != nil || !info.Mode().IsRegular() {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	if sum, err := s.checksums.Sum(resolved); err == nil {
		w.Header().Set("X-Checksum", sum)
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))

	written, err := io.Copy(w, file)
	if err != nil {
		log.Warn("download aborted mid-stream",
			logger.F("file", rel),
			logger.F("bytes", written),
			logger.F("error", err))
		return
	}

	log.Info("download served",
		logger.F("file", rel),
		logger.F("bytes", written),
		logger.F("duration_ms", time.Since(start).Milliseconds()))
}
