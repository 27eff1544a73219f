package resource

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// checksumCache computes and caches SHA-256 digests of content packs so
// clients can verify downloads. Entries are keyed by path, size, and
// modification time, so a republished pack gets a fresh digest. Only
// derived metadata is cached, never file content.
type checksumCache struct {
	cache *cache.Cache
	group singleflight.Group
}

// newChecksumCache creates a cache whose entries expire after ttl.
func newChecksumCache(ttl time.Duration) *checksumCache {
	return &checksumCache{
		cache: cache.New(ttl, 2*ttl),
		group: singleflight.Group{},
	}
}

// Sum returns the hex SHA-256 digest of the file at path. Concurrent
// requests for the same file share one computation via singleflight.
func (c *checksumCache) Sum(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}

	key := fmt.Sprintf("%s|%d|%d", path, info.Size(), info.ModTime().UnixNano())
	if val, found := c.cache.Get(key); found {
		if sum, ok := val.(string); ok {
			return sum, nil
		}
	}

	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		// Another goroutine may have populated the entry while we
		// waited on the group.
		if cached, found := c.cache.Get(key); found {
			if sum, ok := cached.(string); ok {
				return sum, nil
			}
		}

		sum, err := fileSHA256(path)
		if err != nil {
			return "", err
		}

		c.cache.Set(key, sum, cache.DefaultExpiration)
		return sum, nil
	})
	if err != nil {
		return "", err
	}

	sum, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("unexpected type in checksum cache for %s", path)
	}

	return sum, nil
}

func fileSHA256(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer func() {
		_ = file.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
