package resource

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksumCache_Sum(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "data.pak")
	content := []byte("pack-bytes")
	require.NoError(t, os.WriteFile(file, content, 0o644))

	want := sha256.Sum256(content)
	c := newChecksumCache(time.Minute)

	t.Run("digest matches file content", func(t *testing.T) {
		sum, err := c.Sum(file)
		require.NoError(t, err)
		assert.Equal(t, hex.EncodeToString(want[:]), sum)
	})

	t.Run("missing file errors", func(t *testing.T) {
		_, err := c.Sum(filepath.Join(dir, "missing.pak"))
		assert.Error(t, err)
	})

	t.Run("republished file gets a fresh digest", func(t *testing.T) {
		newContent := []byte("pack-bytes-v2")
		// Push the mtime forward so the cache key changes even on
		// filesystems with coarse timestamps.
		require.NoError(t, os.WriteFile(file, newContent, 0o644))
		future := time.Now().Add(2 * time.Second)
		require.NoError(t, os.Chtimes(file, future, future))

		newWant := sha256.Sum256(newContent)
		sum, err := c.Sum(file)
		require.NoError(t, err)
		assert.Equal(t, hex.EncodeToString(newWant[:]), sum)
	})
}

func TestChecksumCache_SingleComputation(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "big.pak")
	require.NoError(t, os.WriteFile(file, make([]byte, 1<<20), 0o644))

	c := newChecksumCache(time.Minute)

	// Prime once, then hammer concurrently; every result must agree.
	first, err := c.Sum(file)
	require.NoError(t, err)

	const goroutines = 32
	var wg sync.WaitGroup
	var mismatches atomic.Int32
	wg.Add(goroutines)

	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			sum, err := c.Sum(file)
			if err != nil || sum != first {
				mismatches.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, mismatches.Load())
}
