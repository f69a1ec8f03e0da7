package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	apperrors "probereport/internal/errors"
)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Discover returns the regular files under root whose names match pattern,
// sorted by path. A missing root, an invalid pattern, a match that cannot
// be stat'ed and an empty result are discovery errors.
func Discover(root, pattern string) ([]FileInfo, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, apperrors.NewDiscoveryError(fmt.Sprintf("cannot access root %s", root), err).
			WithContext("root", root)
	}
	if !info.IsDir() {
		return nil, apperrors.NewDiscoveryError(fmt.Sprintf("root %s is not a directory", root), nil).
			WithContext("root", root)
	}

	matches, err := filepath.Glob(filepath.Join(root, pattern))
	if err != nil {
		return nil, apperrors.NewDiscoveryError(fmt.Sprintf("invalid pattern %q", pattern), err).
			WithContext("pattern", pattern)
	}

	var found []FileInfo
	for _, match := range matches {
		st, err := os.Stat(match)
		if err != nil {
			return nil, apperrors.NewDiscoveryError(fmt.Sprintf("cannot access %s", match), err).
				WithContext("root", root).
				WithContext("path", match)
		}
		if !st.Mode().IsRegular() {
			continue
		}
		found = append(found, FileInfo{
			Path:    match,
			Name:    filepath.Base(match),
			Size:    st.Size(),
			ModTime: st.ModTime(),
		})
	}

	if len(found) == 0 {
		return nil, apperrors.NewDiscoveryError(
			fmt.Sprintf("no files match %s in %s", pattern, root), nil).
			WithContext("root", root).
			WithContext("pattern", pattern)
	}

	sort.Slice(found, func(i, j int) bool {
		return found[i].Path < found[j].Path
	})

	return found, nil
}

// Paths extracts the file paths from a discovery result
func Paths(found []FileInfo) []string {
	paths := make([]string, len(found))
	for i, f := range found {
		paths[i] = f.Path
	}
	return paths
}
