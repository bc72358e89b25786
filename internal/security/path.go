package security

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Scope confines file access to one base directory. The workspace
// mirror writes project files under names it did not choose, so every
// name is resolved through a scope before touching disk.
type Scope struct {
	base string
}

// NewScope creates a scope rooted at base.
func NewScope(base string) (*Scope, error) {
	if strings.TrimSpace(base) == "" {
		return nil, errors.New("empty base directory")
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("resolve base directory: %w", err)
	}
	return &Scope{base: abs}, nil
}

// Base returns the absolute scope root.
func (s *Scope) Base() string {
	return s.base
}

// Resolve maps a bare file name to an absolute path inside the scope.
// Names with separators, traversal components, or a leading dot are
// rejected.
func (s *Scope) Resolve(name string) (string, error) {
	if name == "" {
		return "", errors.New("empty file name")
	}
	if strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") || name != filepath.Clean(name) {
		return "", fmt.Errorf("unsafe file name %q", name)
	}
	return filepath.Join(s.base, name), nil
}

// Contains reports whether path lies inside the scope after
// normalization.
func (s *Scope) Contains(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(s.base, abs)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
