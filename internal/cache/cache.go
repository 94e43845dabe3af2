// Package cache stores per-file analysis results on disk.
package cache

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"
)

// Cache is a directory of JSON entries, one per key. Each entry records the
// fingerprint of the inputs it was computed from and is ignored when the
// fingerprint no longer matches or the entry is older than the TTL.
// A disabled cache misses on every Load and discards every Store.
type Cache struct {
	dir     string
	ttl     time.Duration
	enabled bool
}

type entry struct {
	Fingerprint string          `json:"fingerprint"`
	Stored      time.Time       `json:"stored"`
	Data        json.RawMessage `json:"data"`
}

// New creates a cache rooted at dir. A non-positive ttl never expires.
func New(dir string, ttl time.Duration, enabled bool) (*Cache, error) {
	if !enabled {
		return &Cache{enabled: false}, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	return &Cache{
		dir:     dir,
		ttl:     ttl,
		enabled: true,
	}, nil
}

// Enabled reports whether the cache reads and writes entries.
func (c *Cache) Enabled() bool {
	return c != nil && c.enabled
}

// Fingerprint hashes parts with BLAKE3. Each part is length-prefixed so
// that ("ab", "c") and ("a", "bc") differ.
func Fingerprint(parts ...[]byte) string {
	h := blake3.New()
	var n [8]byte
	for _, p := range parts {
		binary.LittleEndian.PutUint64(n[:], uint64(len(p)))
		_, _ = h.Write(n[:])
		_, _ = h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Load decodes the entry for key into v. It returns false on a miss, an
// expired or mismatched entry, or an entry that no longer decodes.
func (c *Cache) Load(key, fingerprint string, v any) bool {
	if !c.Enabled() {
		return false
	}

	path := c.keyPath(key)
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return false
	}
	if e.Fingerprint != fingerprint {
		return false
	}
	if c.ttl > 0 && time.Since(e.Stored) > c.ttl {
		_ = os.Remove(path)
		return false
	}

	return json.Unmarshal(e.Data, v) == nil
}

// Store encodes v as the entry for key.
func (c *Cache) Store(key, fingerprint string, v any) error {
	if !c.Enabled() {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(entry{
		Fingerprint: fingerprint,
		Stored:      time.Now(),
		Data:        data,
	})
	if err != nil {
		return err
	}

	return os.WriteFile(c.keyPath(key), raw, 0o600)
}

// Clear removes all cache entries.
func (c *Cache) Clear() error {
	if !c.Enabled() {
		return nil
	}
	return os.RemoveAll(c.dir)
}

// keyPath hashes key so arbitrary file paths map to flat file names.
func (c *Cache) keyPath(key string) string {
	sum := blake3.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:16])+".json")
}

// Stats summarizes the contents of a cache directory.
type Stats struct {
	Dir       string        `json:"dir"`
	Entries   int           `json:"entries"`
	TotalSize int64         `json:"total_size"`
	OldestAge time.Duration `json:"oldest_age"`
}

// Stats walks the cache directory.
func (c *Cache) Stats() (Stats, error) {
	if !c.Enabled() {
		return Stats{}, nil
	}

	stats := Stats{Dir: c.dir}
	var oldest time.Time

	err := filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}

		stats.Entries++
		stats.TotalSize += info.Size()
		if oldest.IsZero() || info.ModTime().Before(oldest) {
			oldest = info.ModTime()
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return stats, nil
	}
	if err != nil {
		return Stats{}, err
	}

	if !oldest.IsZero() {
		stats.OldestAge = time.Since(oldest)
	}
	return stats, nil
}
