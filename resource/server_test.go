package resource

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberinferno/resource-server/logger"
	"github.com/cyberinferno/resource-server/registry"
)

// newTestServer builds a stopped server over a fresh public tree plus a
// valid token for connection 1.
func newTestServer(t *testing.T) (s *Server, token string, publicDir string) {
	t.Helper()

	publicDir, _ = newPublicDir(t)
	reg := registry.NewMemoryRegistry[uint32](0)

	token, err := reg.IssueToken(context.Background(), 1)
	require.NoError(t, err)

	s = New(Config{Addr: "127.0.0.1:0", PublicDir: publicDir}, reg, logger.Nop())
	return s, token, publicDir
}

func doRequest(s *Server, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestServer_Unauthorized(t *testing.T) {
	s, _, _ := newTestServer(t)

	t.Run("no token is 401", func(t *testing.T) {
		rec := doRequest(s, "/public/packs/data.pak")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unissued token is 403", func(t *testing.T) {
		rec := doRequest(s, "/public/packs/data.pak?token=deadbeefdeadbeefdeadbeefdeadbeef")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("revoked token is 403", func(t *testing.T) {
		reg := registry.NewMemoryRegistry[uint32](0)
		token, err := reg.IssueToken(context.Background(), 2)
		require.NoError(t, err)
		require.NoError(t, reg.RevokeToken(context.Background(), 2))

		srv := New(Config{PublicDir: t.TempDir()}, reg, logger.Nop())
		rec := doRequest(srv, "/public/packs/data.pak?token="+token)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestServer_Download(t *testing.T) {
	s, token, publicDir := newTestServer(t)
	content, err := os.ReadFile(filepath.Join(publicDir, "packs", "data.pak"))
	require.NoError(t, err)
	wantSum := sha256.Sum256(content)

	t.Run("exact relative path", func(t *testing.T) {
		rec := doRequest(s, "/public/packs/data.pak?token="+token)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))
		assert.Equal(t, hex.EncodeToString(wantSum[:]), rec.Header().Get("X-Checksum"))
		assert.Equal(t, content, rec.Body.Bytes())
	})

	t.Run("bare filename fallback", func(t *testing.T) {
		rec := doRequest(s, "/public/data.pak?token="+token)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, content, rec.Body.Bytes())
	})

	t.Run("stale sub-path fallback", func(t *testing.T) {
		rec := doRequest(s, "/public/other/data.pak?token="+token)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, content, rec.Body.Bytes())
	})
}

func TestServer_NotFound(t *testing.T) {
	s, token, _ := newTestServer(t)

	t.Run("missing file", func(t *testing.T) {
		rec := doRequest(s, "/public/packs/missing.pak?token="+token)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("empty path", func(t *testing.T) {
		rec := doRequest(s, "/public/?token="+token)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("outside the public prefix", func(t *testing.T) {
		rec := doRequest(s, "/secrets?token="+token)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestServer_PathTraversal(t *testing.T) {
	s, token, _ := newTestServer(t)

	// secret.txt lives one level above the public dir; none of these may
	// reach it, and all must be indistinguishable from a missing file.
	targets := []string{
		"/public/../secret.txt",
		"/public/..%2fsecret.txt",
		"/public/..%2f..%2fsecret.txt",
		"/public/packs/..%2f..%2fsecret.txt",
		"/public/%2e%2e/secret.txt",
	}

	for _, target := range targets {
		rec := doRequest(s, target+"?token="+token)
		assert.Equal(t, http.StatusNotFound, rec.Code, "target %q must 404", target)
		assert.NotContains(t, rec.Body.String(), "secret")
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	s, token, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/public/packs/data.pak?token="+token, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_Lifecycle(t *testing.T) {
	s, token, publicDir := newTestServer(t)

	require.NoError(t, s.Start())
	t.Cleanup(s.Stop)

	t.Run("start twice fails", func(t *testing.T) {
		assert.Error(t, s.Start())
	})

	t.Run("serves over a real listener", func(t *testing.T) {
		resp, err := http.Get("http://" + s.Addr() + "/public/packs/data.pak?token=" + token)
		require.NoError(t, err)
		defer func() {
			_ = resp.Body.Close()
		}()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		content, err := os.ReadFile(filepath.Join(publicDir, "packs", "data.pak"))
		require.NoError(t, err)
		assert.Equal(t, content, body)
	})

	t.Run("stop is idempotent", func(t *testing.T) {
		s.Stop()
		s.Stop()
	})

	t.Run("no new connections after stop", func(t *testing.T) {
		_, err := http.Get("http://" + s.Addr() + "/public/packs/data.pak?token=" + token)
		assert.Error(t, err, "stopped server must refuse new connections")
	})

	t.Run("stop on a never-started instance is a no-op", func(t *testing.T) {
		fresh := New(Config{Addr: "127.0.0.1:0", PublicDir: publicDir},
			registry.NewMemoryRegistry[uint32](0), logger.Nop())
		fresh.Stop()
	})
}

func TestServer_MissingPublicDirAtStart(t *testing.T) {
	reg := registry.NewMemoryRegistry[uint32](0)
	token, err := reg.IssueToken(context.Background(), 1)
	require.NoError(t, err)

	publicDir := filepath.Join(t.TempDir(), "not-yet")
	s := New(Config{Addr: "127.0.0.1:0", PublicDir: publicDir}, reg, logger.Nop())

	// Start succeeds even though the directory does not exist yet.
	require.NoError(t, s.Start())
	t.Cleanup(s.Stop)

	rec := doRequest(s, "/public/data.pak?token="+token)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Populate the directory after start; the same request now succeeds.
	require.NoError(t, os.MkdirAll(publicDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(publicDir, "data.pak"), []byte("late"), 0o644))

	rec = doRequest(s, "/public/data.pak?token="+token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "late", rec.Body.String())
}
