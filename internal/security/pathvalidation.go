// Package security checks file names built from imported data before they
// reach the filesystem.
package security

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsafeName is returned for names that would leave their directory.
var ErrUnsafeName = errors.New("unsafe file name")

// JoinFileName joins name onto dir. The name must be a single path element:
// absolute paths, separators and dot names are rejected, so the result is
// always a direct child of dir.
func JoinFileName(dir, name string) (string, error) {
	switch {
	case name == "" || name == "." || name == "..":
		return "", fmt.Errorf("%w: %q", ErrUnsafeName, name)
	case filepath.IsAbs(name):
		return "", fmt.Errorf("%w: %q is absolute", ErrUnsafeName, name)
	case strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, filepath.Separator):
		return "", fmt.Errorf("%w: %q contains a path separator", ErrUnsafeName, name)
	case strings.ContainsRune(name, 0):
		return "", fmt.Errorf("%w: %q contains a NUL byte", ErrUnsafeName, name)
	}

	path := filepath.Join(dir, name)
	if rel, err := filepath.Rel(filepath.Clean(dir), path); err != nil || rel != name {
		return "", fmt.Errorf("%w: %q escapes %s", ErrUnsafeName, name, dir)
	}
	return path, nil
}
