package loader

import (
	"crypto/md5"
	"fmt"

	"github.com/spf13/afero"

	"github.com/tristendillon/minibundle/core/logger"
	"github.com/tristendillon/minibundle/core/models"
)

// FileLoader reads module sources from a filesystem.
type FileLoader struct {
	fs afero.Fs
}

func NewFileLoader(fs afero.Fs) *FileLoader {
	return &FileLoader{fs: fs}
}

// Load returns the bytes at path. Every failure is reported as an IoError.
func (l *FileLoader) Load(path string) ([]byte, error) {
	data, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return nil, &models.IoError{Path: path, Err: err}
	}
	logger.Debug("Loader: Read %d bytes from %s", len(data), path)
	return data, nil
}

// Hash computes the MD5 digest of content, hex encoded.
func Hash(content []byte) string {
	return fmt.Sprintf("%x", md5.Sum(content))
}
