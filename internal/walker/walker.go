package walker

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// FileInfo represents a local regular file
type FileInfo struct {
	Path    string // Absolute path
	RelPath string // Slash separated path relative to root
	Size    int64
	ModTime int64 // Unix timestamp
}

// Walker walks local files with exclude pattern support
type Walker struct {
	root     string
	excludes []string
}

// NewWalker creates a new file walker
func NewWalker(root string, excludes []string) (*Walker, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("get absolute path: %w", err)
	}

	// Validate root exists and is a directory
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", absRoot)
	}

	for _, pattern := range excludes {
		if !doublestar.ValidatePattern(strings.TrimSuffix(pattern, "/")) {
			return nil, fmt.Errorf("invalid exclude pattern: %q", pattern)
		}
	}

	return &Walker{
		root:     absRoot,
		excludes: excludes,
	}, nil
}

// Walk returns every regular file below the root.
//
// Directories are visited from an explicit worklist, so depth does not grow the
// stack. Entries that cannot be read or stat'ed are skipped. Symlinks are never
// followed, which also rules out directory cycles.
func (w *Walker) Walk() ([]FileInfo, error) {
	var files []FileInfo

	pending := []string{w.root}
	for len(pending) > 0 {
		dir := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		// os.ReadDir returns entries sorted by name
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}

		var subdirs []string
		for _, entry := range entries {
			fullPath := filepath.Join(dir, entry.Name())

			relPath, err := filepath.Rel(w.root, fullPath)
			if err != nil {
				continue
			}
			relPath = filepath.ToSlash(relPath)

			if entry.IsDir() {
				if !w.isExcludedDir(relPath) {
					subdirs = append(subdirs, fullPath)
				}
				continue
			}

			if !entry.Type().IsRegular() {
				continue
			}

			if w.isExcluded(relPath) {
				continue
			}

			info, err := entry.Info()
			if err != nil {
				continue
			}

			files = append(files, FileInfo{
				Path:    fullPath,
				RelPath: relPath,
				Size:    info.Size(),
				ModTime: info.ModTime().Unix(),
			})
		}

		// Push in reverse so subdirectories are visited in name order
		for i := len(subdirs) - 1; i >= 0; i-- {
			pending = append(pending, subdirs[i])
		}
	}

	return files, nil
}

// isExcluded checks if a file path matches any exclude pattern
func (w *Walker) isExcluded(path string) bool {
	return IsExcluded(path, w.excludes)
}

// isExcludedDir checks if a directory is pruned by a pattern ending with "/"
func (w *Walker) isExcludedDir(path string) bool {
	for _, pattern := range w.excludes {
		if !strings.HasSuffix(pattern, "/") {
			continue
		}
		if matched, _ := doublestar.Match(strings.TrimSuffix(pattern, "/"), path); matched {
			return true
		}
	}
	return false
}

// IsExcluded checks a slash separated relative path against exclude patterns.
// A pattern ending with "/" excludes everything under a matching directory.
func IsExcluded(path string, excludes []string) bool {
	for _, pattern := range excludes {
		if strings.HasSuffix(pattern, "/") {
			dirPattern := strings.TrimSuffix(pattern, "/")
			parts := strings.Split(path, "/")
			// Check every parent directory, not the file itself
			for i := 1; i < len(parts); i++ {
				subPath := strings.Join(parts[:i], "/")
				if matched, _ := doublestar.Match(dirPattern, subPath); matched {
					return true
				}
			}
		} else {
			if matched, _ := doublestar.Match(pattern, path); matched {
				return true
			}
		}
	}
	return false
}
