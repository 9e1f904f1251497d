package fs

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"

	"docindex/internal/port"
)

// Walker lists text files under a root, filtered by doublestar globs
// matched against slash-separated paths relative to the root.
type Walker struct {
	includes []string
	excludes []string
	maxBytes int64
}

var _ port.FileWalker = (*Walker)(nil)

func NewWalker(includes, excludes []string, maxBytes int64) *Walker {
	if len(includes) == 0 {
		includes = []string{"**/*"}
	}
	return &Walker{
		includes: includes,
		excludes: excludes,
		maxBytes: maxBytes,
	}
}

// Walk returns matching files in lexical order. A root that is a regular
// file is returned as is, without glob filtering. Files larger than the
// configured limit are reported in skipped.
func (w *Walker) Walk(root string) (files []port.FileInfo, skipped []string, err error) {
	root, err = filepath.Abs(root)
	if err != nil {
		return nil, nil, err
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, nil, err
	}
	if !info.IsDir() {
		return []port.FileInfo{{Path: root, Size: info.Size()}}, nil, nil
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if relPath != "." && w.shouldExclude(relPath+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !w.shouldInclude(relPath) || w.shouldExclude(relPath) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if w.maxBytes > 0 && info.Size() > w.maxBytes {
			skipped = append(skipped, path)
			return nil
		}
		files = append(files, port.FileInfo{Path: path, Size: info.Size()})
		return nil
	})
	return files, skipped, err
}

func (w *Walker) shouldInclude(path string) bool {
	for _, pattern := range w.includes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}

func (w *Walker) shouldExclude(path string) bool {
	for _, pattern := range w.excludes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}

// ReadText reads a file that must be valid UTF-8.
func ReadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%s is not valid UTF-8 text", path)
	}
	return string(data), nil
}
