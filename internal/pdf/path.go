package pdf

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned for paths that escape the guarded directory
var ErrOutsideRoot = errors.New("path is outside the allowed directory")

// PathGuard confines tool-supplied paths to one directory
type PathGuard struct {
	root string
}

// NewPathGuard creates a guard for root
func NewPathGuard(root string) (*PathGuard, error) {
	if root == "" {
		return nil, fmt.Errorf("root directory cannot be empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}
	return &PathGuard{root: filepath.Clean(abs)}, nil
}

// Root returns the absolute guarded directory
func (g *PathGuard) Root() string {
	return g.root
}

// Resolve returns the absolute form of path. Relative paths are taken from the
// root. Symlinks are followed when they exist, so a link pointing out of the
// root is rejected.
func (g *PathGuard) Resolve(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(g.root, path)
	}
	clean := filepath.Clean(path)

	if !within(clean, g.root) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}

	realRoot := g.root
	if r, err := filepath.EvalSymlinks(g.root); err == nil {
		realRoot = r
	}
	if real, err := filepath.EvalSymlinks(clean); err == nil && !within(real, realRoot) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}

	return clean, nil
}

func within(path, root string) bool {
	if path == root {
		return true
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
