package walker

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/tristendillon/minibundle/core/logger"
)

// DirWalker lists the directories below a root, skipping excluded subtrees.
// Exclude entries are relative to Root, or absolute.
type DirWalker struct {
	fs      afero.Fs
	Root    string
	Exclude []string
}

func NewDirWalker(fs afero.Fs, root string, exclude []string) *DirWalker {
	w := &DirWalker{fs: fs, Root: filepath.Clean(root)}
	for _, p := range exclude {
		w.Exclude = append(w.Exclude, w.relative(p))
	}
	return w
}

// Walk returns every non-excluded directory at or below start, parents first.
func (w *DirWalker) Walk(start string) ([]string, error) {
	var dirs []string

	err := afero.Walk(w.fs, start, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}

		if w.Excluded(path) {
			logger.Debug("Walker: Excluding directory: %s", path)
			return filepath.SkipDir
		}

		dirs = append(dirs, path)
		return nil
	})

	return dirs, err
}

// Excluded reports whether path is an excluded entry or lies below one.
func (w *DirWalker) Excluded(path string) bool {
	rel, err := filepath.Rel(w.Root, path)
	if err != nil {
		return false
	}
	rel = filepath.Clean(rel)

	for _, ex := range w.Exclude {
		if rel == ex || strings.HasPrefix(rel, ex+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *DirWalker) relative(path string) string {
	if !filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	rel, err := filepath.Rel(w.Root, path)
	if err != nil {
		return filepath.Clean(path)
	}
	return rel
}
