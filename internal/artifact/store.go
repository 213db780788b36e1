package artifact

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"tracecheck/internal/trace"
)

const (
	// SnapshotDirEnv overrides the snapshot base directory.
	SnapshotDirEnv = "TRACECHECK_SNAPSHOT_DIR"
	// DefaultSnapshotBase is the snapshot directory relative to the user's home.
	DefaultSnapshotBase = ".tracecheck/snapshots"

	snapshotExt = ".json"
)

// Store saves and loads span batch snapshots.
// Layout: ~/.tracecheck/snapshots/<name>.json
type Store struct {
	baseDir string
}

// NewStore creates a store rooted at the user's home + DefaultSnapshotBase,
// or at the path in TRACECHECK_SNAPSHOT_DIR if set.
func NewStore() (*Store, error) {
	base := os.Getenv(SnapshotDirEnv)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.Wrap(err, "resolve snapshot dir")
		}
		base = filepath.Join(home, DefaultSnapshotBase)
	}
	return NewStoreAt(base), nil
}

// NewStoreAt creates a store rooted at dir.
func NewStoreAt(dir string) *Store {
	return &Store{baseDir: dir}
}

// BaseDir returns the directory snapshots are written to.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// Path returns the file path for a snapshot by name.
func (s *Store) Path(name string) string {
	// Normalize: lowercase, replace spaces with hyphens
	normalized := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "-"))
	return filepath.Join(s.baseDir, normalized+snapshotExt)
}

// Save writes spans as a snapshot, replacing any previous one of the same name.
func (s *Store) Save(name string, spans []trace.RawSpan) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", errors.New("snapshot name is required")
	}
	data, err := trace.EncodeSpans(spans)
	if err != nil {
		return "", errors.Wrapf(err, "encode snapshot %q", name)
	}
	if err := os.MkdirAll(s.baseDir, 0o755); err != nil {
		return "", errors.Wrap(err, "create snapshot dir")
	}
	path := s.Path(name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", errors.Wrapf(err, "write snapshot %q", name)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", errors.Wrapf(err, "write snapshot %q", name)
	}
	return path, nil
}

// Load reads a snapshot by name.
func (s *Store) Load(name string) ([]trace.RawSpan, error) {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		return nil, errors.Wrapf(err, "read snapshot %q", name)
	}
	spans, err := trace.DecodeSpans(data)
	if err != nil {
		return nil, errors.Wrapf(err, "snapshot %q", name)
	}
	return spans, nil
}

// List returns the names of stored snapshots, sorted. A missing base
// directory yields no names and no error.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "list snapshots")
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != snapshotExt {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), snapshotExt))
	}
	sort.Strings(names)
	return names, nil
}
