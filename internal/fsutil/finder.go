// Package fsutil provides file system utility functions.
package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// FindFilesByExtension returns every file under the given roots whose name
// ends with extension. A root may be a file, which is returned when it
// matches. Paths are cleaned, de-duplicated and sorted.
func FindFilesByExtension(extension string, roots ...string) ([]string, error) {
	if extension == "" {
		return nil, errors.New("extension must not be empty")
	}

	seen := mapset.NewThreadUnsafeSet[string]()
	for _, root := range roots {
		if _, err := os.Stat(root); err != nil {
			return nil, fmt.Errorf("accessing path %s: %w", root, err)
		}
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(d.Name(), extension) {
				seen.Add(filepath.Clean(path))
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	files := seen.ToSlice()
	slices.Sort(files)
	return files, nil
}
