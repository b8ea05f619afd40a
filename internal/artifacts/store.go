// Package artifacts stores the two binary blobs belonging to a project:
// the packaged executable and the thumbnail image. Blobs live in a single
// root directory and are addressed by project UUID plus a kind suffix,
// e.g. data/<uuid>.jar and data/<uuid>.jpg.
package artifacts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Kind identifies one of the two blobs stored per project.
type Kind string

const (
	KindExecutable Kind = "jar"
	KindThumbnail  Kind = "image"
)

// ErrNotFound signals that no blob exists for the given uuid and kind.
var ErrNotFound = errors.New("artifact not found")

func (k Kind) suffix() string {
	if k == KindThumbnail {
		return ".jpg"
	}
	return ".jar"
}

func (k Kind) valid() bool {
	return k == KindExecutable || k == KindThumbnail
}

// Store is a filesystem-backed artifact store.
type Store struct {
	root string
}

// NewStore creates the root directory if needed and returns the store.
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact root %s: %w", root, err)
	}
	return &Store{root: root}, nil
}

// Path returns the canonical on-disk location of a blob. The file may or
// may not exist.
func (s *Store) Path(uuid string, kind Kind) string {
	return filepath.Join(s.root, uuid+kind.suffix())
}

// Write atomically replaces the blob: the bytes land in a temporary file in
// the same directory, then a rename moves them into place. A crash mid-write
// never leaves a truncated blob visible under the canonical name, and
// concurrent writers race only on which complete file wins.
func (s *Store) Write(uuid string, kind Kind, data []byte) error {
	if !kind.valid() {
		return fmt.Errorf("unknown artifact kind %q", kind)
	}

	tmp, err := os.CreateTemp(s.root, uuid+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close artifact: %w", err)
	}

	mode := os.FileMode(0o644)
	if kind == KindExecutable {
		mode = 0o755
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod artifact: %w", err)
	}

	if err := os.Rename(tmpName, s.Path(uuid, kind)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("publish artifact: %w", err)
	}
	return nil
}

// Read returns the blob bytes or ErrNotFound.
func (s *Store) Read(uuid string, kind Kind) ([]byte, error) {
	data, err := os.ReadFile(s.Path(uuid, kind))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return data, nil
}

// Exists reports whether the blob is present.
func (s *Store) Exists(uuid string, kind Kind) bool {
	_, err := os.Stat(s.Path(uuid, kind))
	return err == nil
}

// ListProjects returns the uuids that have at least one blob on disk.
// In-flight temp files are skipped.
func (s *Store) ListProjects() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("scan artifact root: %w", err)
	}

	seen := make(map[string]bool)
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := filepath.Ext(name)
		if ext != ".jar" && ext != ".jpg" {
			continue
		}
		uuid := name[:len(name)-len(ext)]
		if !seen[uuid] {
			seen[uuid] = true
			out = append(out, uuid)
		}
	}
	return out, nil
}

// Delete removes the blob. Absent is not an error; delete stays idempotent.
func (s *Store) Delete(uuid string, kind Kind) error {
	err := os.Remove(s.Path(uuid, kind))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete artifact: %w", err)
	}
	return nil
}
