package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"chorus/internal/logging"
)

// Artifact categories. Each category gets its own record directory so a
// partial clear never touches other stage outputs.
const (
	CategoryAudio    = "audio"
	CategoryStems    = "stems"
	CategoryLyrics   = "lyrics"
	CategoryCaptions = "captions"
	CategoryVideos   = "videos"
)

// Categories lists every known category in stage order.
func Categories() []string {
	return []string{CategoryAudio, CategoryStems, CategoryLyrics, CategoryCaptions, CategoryVideos}
}

// Entry is one persisted cache record mapping a fingerprint key to an
// artifact on disk plus the parameters that produced it. Inputs is a
// human-readable summary of what the fingerprint was derived from, so
// listings can say what an artifact is without re-deriving keys.
type Entry struct {
	Key          string            `json:"key"`
	Category     string            `json:"category"`
	Inputs       string            `json:"inputs,omitempty"`
	ArtifactPath string            `json:"artifact_path"`
	Extra        map[string]string `json:"extra,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Stats summarizes cache contents for reporting.
type Stats struct {
	Entries       int
	ArtifactBytes int64
	ByCategory    map[string]CategoryStats
}

// CategoryStats is the per-category slice of Stats.
type CategoryStats struct {
	Entries       int
	ArtifactBytes int64
}

// Store is a content-addressed artifact index rooted at a directory. Records
// live at <root>/<category>/<key>.json and point at artifacts elsewhere on
// disk. Lookups self-heal: a record whose artifact has vanished is deleted
// and reported as a miss. A disabled store misses on every lookup and
// ignores writes.
type Store struct {
	root    string
	enabled bool
	logger  *slog.Logger
	mu      sync.Mutex
}

// NewStore creates a store rooted at root. The directory tree is created
// lazily on first Put.
func NewStore(root string, enabled bool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Store{
		root:    root,
		enabled: enabled && strings.TrimSpace(root) != "",
		logger:  logging.NewComponentLogger(logger, "cache"),
	}
}

// Enabled reports whether lookups can ever hit.
func (s *Store) Enabled() bool {
	return s.enabled
}

// ArtifactDir returns a stable directory for persisting the artifact behind
// a record, keyed the same way as the record itself.
func (s *Store) ArtifactDir(category, key string) string {
	return filepath.Join(s.root, "artifacts", category, key)
}

var keyRE = regexp.MustCompile(`^[a-f0-9]{16,64}$`)

func (s *Store) recordPath(category, key string) (string, error) {
	if !validCategory(category) {
		return "", fmt.Errorf("unknown cache category %q", category)
	}
	if !keyRE.MatchString(key) {
		return "", fmt.Errorf("invalid cache key %q", key)
	}
	return filepath.Join(s.root, category, key+".json"), nil
}

func validCategory(category string) bool {
	for _, known := range Categories() {
		if category == known {
			return true
		}
	}
	return false
}

// Lookup returns the entry for key in category when both the record and its
// artifact still exist. Every failure mode reads as a miss; stale records
// are removed on the way out.
func (s *Store) Lookup(category, key string) (Entry, bool) {
	if !s.enabled {
		return Entry{}, false
	}
	path, err := s.recordPath(category, key)
	if err != nil {
		return Entry{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, false
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		s.logger.Warn("removing unreadable cache record",
			logging.String("category", category),
			logging.String("key", key),
			logging.Error(err))
		os.Remove(path)
		return Entry{}, false
	}
	if _, err := os.Stat(entry.ArtifactPath); err != nil {
		s.logger.Debug("removing stale cache record",
			logging.String("category", category),
			logging.String("key", key),
			logging.String("artifact", entry.ArtifactPath))
		os.Remove(path)
		return Entry{}, false
	}
	return entry, true
}

// Put records an artifact under key, overwriting any previous record for the
// same key. The write is atomic so a concurrent reader never sees a partial
// record.
func (s *Store) Put(entry Entry) error {
	if !s.enabled {
		return nil
	}
	path, err := s.recordPath(entry.Category, entry.Key)
	if err != nil {
		return err
	}
	if strings.TrimSpace(entry.ArtifactPath) == "" {
		return errors.New("cache entry requires an artifact path")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache record: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp record: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp record: %w", err)
	}

	s.logger.Debug("stored cache record",
		logging.String("category", entry.Category),
		logging.String("key", entry.Key),
		logging.String("artifact", entry.ArtifactPath))
	return nil
}

// List returns the live entries for a category, newest first. Stale records
// are skipped but left in place; Lookup removes them on access.
func (s *Store) List(category string) ([]Entry, error) {
	if !s.enabled {
		return nil, nil
	}
	if !validCategory(category) {
		return nil, fmt.Errorf("unknown cache category %q", category)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.root, category)
	names, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cache directory: %w", err)
	}

	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		if name.IsDir() || !strings.HasSuffix(name.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name.Name()))
		if err != nil {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(data, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}

// Clear removes every record in a category, together with the cached
// artifacts under the store's artifact tree, or the whole store when
// category is empty. The emptied directories are recreated.
func (s *Store) Clear(category string) error {
	if !s.enabled {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if category == "" {
		for _, known := range Categories() {
			if err := s.clearCategory(known); err != nil {
				return err
			}
		}
		return nil
	}
	if !validCategory(category) {
		return fmt.Errorf("unknown cache category %q", category)
	}
	return s.clearCategory(category)
}

func (s *Store) clearCategory(category string) error {
	recordDir := filepath.Join(s.root, category)
	artifactDir := filepath.Join(s.root, "artifacts", category)
	if err := os.RemoveAll(recordDir); err != nil {
		return fmt.Errorf("clear cache category %s: %w", category, err)
	}
	if err := os.RemoveAll(artifactDir); err != nil {
		return fmt.Errorf("clear cached artifacts for %s: %w", category, err)
	}
	if err := os.MkdirAll(recordDir, 0o755); err != nil {
		return fmt.Errorf("recreate cache category %s: %w", category, err)
	}
	if err := os.MkdirAll(artifactDir, 0o755); err != nil {
		return fmt.Errorf("recreate cached artifacts for %s: %w", category, err)
	}
	return nil
}

// Stats reports entry counts and artifact sizes across all categories.
// Records whose artifacts have vanished count as entries with zero bytes.
func (s *Store) Stats() (Stats, error) {
	stats := Stats{ByCategory: make(map[string]CategoryStats)}
	if !s.enabled {
		return stats, nil
	}
	for _, category := range Categories() {
		entries, err := s.List(category)
		if err != nil {
			return Stats{}, err
		}
		cs := CategoryStats{Entries: len(entries)}
		for _, entry := range entries {
			if info, err := os.Stat(entry.ArtifactPath); err == nil {
				cs.ArtifactBytes += info.Size()
			}
		}
		stats.ByCategory[category] = cs
		stats.Entries += cs.Entries
		stats.ArtifactBytes += cs.ArtifactBytes
	}
	return stats, nil
}
