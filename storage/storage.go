package storage

import (
	"context"
	"errors"
	"path"
	"strings"
)

var (
	ErrOutsideRoot = errors.New("path escapes the store root")
	ErrEmptyName   = errors.New("empty file name")
)

// Store persists an encoded image under a relative name and returns the URL
// it can be reached at.
type Store interface {
	Put(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// cleanName normalises a relative slash-separated name and rejects names
// that climb out of the store root.
func cleanName(name string) (string, error) {
	slashed := strings.ReplaceAll(name, "\\", "/")
	for _, part := range strings.Split(slashed, "/") {
		if part == ".." {
			return "", ErrOutsideRoot
		}
	}

	cleaned := strings.TrimPrefix(path.Clean("/"+slashed), "/")
	if cleaned == "" {
		return "", ErrEmptyName
	}

	return cleaned, nil
}
