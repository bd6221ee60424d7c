package services

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"retail-insights/internal/ingest"
	"retail-insights/internal/reference"
)

const cacheVersion = "v2"

// cachedIndexes is the gob payload of the reference cache.
type cachedIndexes struct {
	Sources   []string
	Delimiter rune
	Indexes   reference.Indexes
	Stats     map[string]ingest.ParseStats
	BuiltAt   time.Time
}

// indexCache stores built reference indexes keyed by their source paths
// and the delimiter they were parsed with.
type indexCache struct {
	dir string
}

func (c indexCache) filename(paths []string, delimiter rune) string {
	key := strings.Join(paths, "\x00") + "\x00" + strconv.QuoteRune(delimiter)
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, fmt.Sprintf("references_%s_%s.gob", hex.EncodeToString(sum[:8]), cacheVersion))
}

// load returns the cached indexes for paths. A cache older than any source
// file, or one that names a source that no longer exists, is stale.
func (c indexCache) load(paths []string, delimiter rune) (*cachedIndexes, error) {
	file, err := os.Open(c.filename(paths, delimiter))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var data cachedIndexes
	if err := gob.NewDecoder(file).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode cache: %w", err)
	}
	if strings.Join(data.Sources, "\x00") != strings.Join(paths, "\x00") {
		return nil, fmt.Errorf("cache was built from other sources")
	}
	if data.Delimiter != delimiter {
		return nil, fmt.Errorf("cache was built with delimiter %q", data.Delimiter)
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", path, err)
		}
		if !info.ModTime().Before(data.BuiltAt) {
			return nil, fmt.Errorf("source %s changed after the cache was built", path)
		}
	}
	return &data, nil
}

func (c indexCache) save(paths []string, delimiter rune, idx *reference.Indexes, stats map[string]ingest.ParseStats) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(c.dir, "references-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	data := cachedIndexes{Sources: paths, Delimiter: delimiter, Indexes: *idx, Stats: stats, BuiltAt: time.Now()}
	if err := gob.NewEncoder(tmp).Encode(&data); err != nil {
		tmp.Close()
		return fmt.Errorf("encode cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), c.filename(paths, delimiter))
}
