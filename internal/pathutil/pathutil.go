// Package pathutil normalizes the slash-separated logical paths shared by
// namespaces, handles and storage drivers.
package pathutil

import (
	"errors"
	"path"
	"strings"
)

// ErrOutsideRoot is returned for paths that climb above the namespace root.
var ErrOutsideRoot = errors.New("path escapes root")

// ErrInvalidPath is returned for paths containing NUL or control characters.
var ErrInvalidPath = errors.New("invalid path")

// Clean normalizes p to an absolute, slash-separated path.
// Backslashes are treated as separators, "." and ".." are resolved, and
// any attempt to go above "/" is rejected with ErrOutsideRoot.
// The empty path is the root.
func Clean(p string) (string, error) {
	for _, r := range p {
		if r == 0 || (r < 32 && r != '\t') {
			return "", ErrInvalidPath
		}
	}

	p = strings.ReplaceAll(p, "\\", "/")

	depth := 0
	for _, part := range strings.Split(p, "/") {
		switch part {
		case "", ".":
		case "..":
			depth--
			if depth < 0 {
				return "", ErrOutsideRoot
			}
		default:
			depth++
		}
	}

	return path.Clean("/" + p), nil
}

// Join cleans rel and places it under root. Both are treated as
// slash-separated paths; the result never escapes root.
func Join(root, rel string) (string, error) {
	cleanRoot, err := Clean(root)
	if err != nil {
		return "", err
	}
	cleanRel, err := Clean(rel)
	if err != nil {
		return "", err
	}
	return path.Join(cleanRoot, cleanRel), nil
}

// Parent returns the parent of a cleaned path. The root has no parent.
func Parent(p string) (string, bool) {
	if p == "/" || p == "" {
		return "", false
	}
	return path.Dir(p), true
}

// Base returns the last element of p, or "/" for the root.
func Base(p string) string {
	return path.Base(p)
}

// IsRoot reports whether p is the root path.
func IsRoot(p string) bool {
	return p == "/" || p == ""
}

// Key converts a cleaned path into an object-store key under prefix.
// Keys never start with a slash; the root maps to the bare prefix.
func Key(prefix, p string) string {
	k := strings.TrimPrefix(path.Join("/", prefix, p), "/")
	return k
}

// DirKey is Key with a trailing slash, the convention object stores use
// for directory marker objects.
func DirKey(prefix, p string) string {
	k := Key(prefix, p)
	if k == "" {
		return ""
	}
	return k + "/"
}
