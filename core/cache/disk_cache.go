package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/tristendillon/minibundle/core/loader"
	"github.com/tristendillon/minibundle/core/models"
)

// Increment when diskPayload changes shape.
const diskSchemaVersion uint16 = 1

type diskPayload struct {
	Schema      uint16
	Path        string
	ContentHash string
	Salt        string
	Code        string
	Imports     []diskImport
}

type diskImport struct {
	Specifier string
	Kind      uint8
}

// DiskCache persists entries as one msgpack file per module.
type DiskCache struct {
	mu  sync.RWMutex
	fs  afero.Fs
	dir string
}

func OpenDiskCache(fs afero.Fs, dir string) (*DiskCache, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}
	return &DiskCache{fs: fs, dir: dir}, nil
}

func (c *DiskCache) pathFor(modulePath string) string {
	return filepath.Join(c.dir, "mods", loader.Hash([]byte(modulePath))+".mp")
}

// Put writes entry through a temp file and a rename so readers never see a
// partial payload.
func (c *DiskCache) Put(entry *Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	payload := diskPayload{
		Schema:      diskSchemaVersion,
		Path:        entry.Path,
		ContentHash: entry.ContentHash,
		Salt:        entry.Salt,
		Code:        entry.Code,
		Imports:     make([]diskImport, len(entry.Imports)),
	}
	for i, imp := range entry.Imports {
		payload.Imports[i] = diskImport{Specifier: imp.Specifier, Kind: uint8(imp.Kind)}
	}

	data, err := msgpack.Marshal(&payload)
	if err != nil {
		return err
	}

	p := c.pathFor(entry.Path)
	if err := c.fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}

	f, err := afero.TempFile(c.fs, filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		c.fs.Remove(f.Name())
		return err
	}
	if err := f.Close(); err != nil {
		c.fs.Remove(f.Name())
		return err
	}
	if err := c.fs.Rename(f.Name(), p); err != nil {
		c.fs.Remove(f.Name())
		return err
	}
	return nil
}

// Get returns the stored entry for modulePath. A payload from another schema
// version or for a different path is treated as absent.
func (c *DiskCache) Get(modulePath string) (*Entry, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, err := afero.ReadFile(c.fs, c.pathFor(modulePath))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var payload diskPayload
	if err := msgpack.Unmarshal(data, &payload); err != nil {
		return nil, false, err
	}
	if payload.Schema != diskSchemaVersion || payload.Path != modulePath {
		return nil, false, nil
	}

	entry := &Entry{
		Path:        payload.Path,
		ContentHash: payload.ContentHash,
		Salt:        payload.Salt,
		Code:        payload.Code,
		Imports:     make([]models.ImportRecord, len(payload.Imports)),
	}
	for i, imp := range payload.Imports {
		entry.Imports[i] = models.ImportRecord{Specifier: imp.Specifier, Kind: models.ImportKind(imp.Kind)}
	}
	return entry, true, nil
}

// DropAll removes every stored payload.
func (c *DiskCache) DropAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.fs.RemoveAll(filepath.Join(c.dir, "mods"))
}
