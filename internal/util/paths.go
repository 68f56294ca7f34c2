package util

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SafeJoin joins a relative name onto a base directory and rejects results
// that escape the base. Used for every filename taken from a request.
func SafeJoin(base, name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid name: %s", name)
	}
	base = filepath.Clean(base)
	p := filepath.Clean(filepath.Join(base, name))
	if p != base && !strings.HasPrefix(p, base+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes base directory: %s", name)
	}
	return p, nil
}

// DisplayName returns the last path segment of a canonical name.
func DisplayName(canonical string) string {
	if canonical == "" {
		return ""
	}
	return filepath.Base(canonical)
}
