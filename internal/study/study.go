// Package study manages a study workspace: a directory holding the outputs
// of pondstat commands and a study.json manifest describing them.
package study

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/KaramelBytes/pondstat-cli/internal/utils"
	"github.com/google/uuid"
)

const manifestFileName = "study.json"

// ErrInvalidName is returned for study names that are not a single path
// element.
var ErrInvalidName = errors.New("study name must be a plain directory name")

// Artifact records one output file written into the study.
type Artifact struct {
	ID          string    `json:"id"`
	Path        string    `json:"path"` // relative to the study directory
	Kind        string    `json:"kind"`
	Description string    `json:"description"`
	Rows        int       `json:"rows"`
	CreatedAt   time.Time `json:"created_at"`
}

// Study represents a pondstat study persisted on disk.
type Study struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Artifacts   []*Artifact `json:"artifacts"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`

	// Not serialized: on-disk location of the study.json
	rootDir string `json:"-"`
}

// ValidateName rejects empty names and names that would escape the
// studies directory.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	return nil
}

// New constructs an in-memory study. Call Save() to persist.
func New(name, description, rootDir string) *Study {
	now := time.Now()
	return &Study{
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
		rootDir:     rootDir,
	}
}

// Load loads a study.json from the provided directory.
func Load(dir string) (*Study, error) {
	path := filepath.Join(dir, manifestFileName)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("study not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read study: %w", err)
	}
	var s Study
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse study: %w", err)
	}
	s.rootDir = dir
	return &s, nil
}

// RootDir returns the on-disk study directory path.
func (s *Study) RootDir() string { return s.rootDir }

// Save writes study.json using atomic write.
func (s *Study) Save() error {
	if s.rootDir == "" {
		return errors.New("study root directory not set")
	}
	if err := utils.EnsureDir(s.rootDir); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	s.UpdatedAt = time.Now()
	data, err := utils.PrettyJSON(s)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(filepath.Join(s.rootDir, manifestFileName), data)
}

// OutputPath returns a path for a new output file inside the study; name
// may contain subdirectories ("raw/pond.csv"). An existing file is never
// overwritten: "lag.csv" becomes "lag__2.csv".
func (s *Study) OutputPath(name string) (string, error) {
	rel := filepath.Clean(name)
	if filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("output %q is outside the study", name)
	}
	path := filepath.Join(s.rootDir, rel)
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return "", fmt.Errorf("ensure dir: %w", err)
	}
	return utils.UniquePath(path)
}

// Record adds an artifact for a file already written to path. Paths inside
// the study directory are stored relative to it.
func (s *Study) Record(path, kind, description string, rows int) *Artifact {
	rel := path
	if r, err := filepath.Rel(s.rootDir, path); err == nil && !strings.HasPrefix(r, "..") {
		rel = r
	}
	a := &Artifact{
		ID:          uuid.NewString(),
		Path:        filepath.ToSlash(rel),
		Kind:        kind,
		Description: description,
		Rows:        rows,
		CreatedAt:   time.Now(),
	}
	s.Artifacts = append(s.Artifacts, a)
	s.UpdatedAt = time.Now()
	return a
}

// Artifact finds an artifact by ID or by its recorded path.
func (s *Study) Artifact(ref string) (*Artifact, bool) {
	for _, a := range s.Artifacts {
		if a.ID == ref || a.Path == filepath.ToSlash(ref) {
			return a, true
		}
	}
	return nil, false
}

// List returns the names of the studies under dir, sorted. A missing dir
// is an empty list.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read studies dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, e.Name(), manifestFileName)); err == nil {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
