package gen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Sink receives generated files. Names are bare file names; the sink
// decides where they go. Implementations must be safe for concurrent use.
type Sink interface {
	WriteFile(ctx context.Context, name string, content []byte) error
}

// ErrStale is returned by a checking DirSink when a generated file differs
// from the one on disk.
var ErrStale = errors.New("generated file is out of date")

// DirSink writes generated files into a package directory.
type DirSink struct {
	// Dir is the package directory.
	Dir string

	// Check compares instead of writing and returns ErrStale for any
	// missing or different file.
	Check bool
}

// WriteFile atomically replaces Dir/name with content via a temp file and rename.
func (s *DirSink) WriteFile(ctx context.Context, name string, content []byte) error {
	if err := validName(name); err != nil {
		return fmt.Errorf("invalid name %q: %w", name, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	path := filepath.Join(s.Dir, name)

	if s.Check {
		existing, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err != nil || !bytes.Equal(existing, content) {
			return fmt.Errorf("%s: %w", path, ErrStale)
		}
		return nil
	}

	tmp, err := os.CreateTemp(s.Dir, ".restwire-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(content)
	closeErr := tmp.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("set file mode: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// MemorySink keeps generated files in memory.
type MemorySink struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{files: make(map[string][]byte)}
}

// WriteFile stores a copy of content under name.
func (s *MemorySink) WriteFile(ctx context.Context, name string, content []byte) error {
	if err := validName(name); err != nil {
		return fmt.Errorf("invalid name %q: %w", name, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = bytes.Clone(content)
	return nil
}

// Get returns a copy of the named file, or nil if it was never written.
func (s *MemorySink) Get(name string) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return bytes.Clone(s.files[name])
}

// Names returns the written names in sorted order.
func (s *MemorySink) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.files))
	for name := range s.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// validName accepts bare Go file names only.
func validName(name string) error {
	switch {
	case name == "":
		return errors.New("name is empty")
	case strings.ContainsAny(name, `/\:`):
		return errors.New("name must not contain a path separator")
	case name == "." || name == "..":
		return errors.New("path traversal not allowed")
	case !strings.HasSuffix(name, ".go"):
		return errors.New("name must end in .go")
	}
	return nil
}
