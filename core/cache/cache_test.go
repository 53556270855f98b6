package cache

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/tristendillon/minibundle/core/models"
)

func sampleEntry() Entry {
	return Entry{
		Path:        "/app/src/index.js",
		ContentHash: "abc",
		Code:        `var b = require("./b");`,
		Imports: []models.ImportRecord{
			{Specifier: "./b", Kind: models.ImportStatement},
			{Specifier: "./c", Kind: models.RequireCall},
		},
	}
}

func TestMemoryHitRequiresMatchingHash(t *testing.T) {
	c := New("salt", nil)
	c.Put(sampleEntry())

	entry, ok := c.Get("/app/src/index.js", "abc")
	require.True(t, ok)
	assert.Equal(t, `var b = require("./b");`, entry.Code)

	_, ok = c.Get("/app/src/index.js", "changed")
	assert.False(t, ok)

	_, ok = c.Get("/app/src/other.js", "abc")
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
}

func TestSaltChangeInvalidates(t *testing.T) {
	fs := afero.NewMemMapFs()
	disk, err := OpenDiskCache(fs, "/cache")
	require.NoError(t, err)

	New(Salt("es2015"), disk).Put(sampleEntry())

	_, ok := New(Salt("es2020"), disk).Get("/app/src/index.js", "abc")
	assert.False(t, ok)

	_, ok = New(Salt("es2015"), disk).Get("/app/src/index.js", "abc")
	assert.True(t, ok)
}

func TestDiskRoundTripPreservesImports(t *testing.T) {
	fs := afero.NewMemMapFs()
	disk, err := OpenDiskCache(fs, "/cache")
	require.NoError(t, err)

	New("salt", disk).Put(sampleEntry())

	got, ok := New("salt", disk).Get("/app/src/index.js", "abc")
	require.True(t, ok)

	want := sampleEntry()
	want.Salt = "salt"
	if diff := cmp.Diff(&want, got); diff != "" {
		t.Errorf("entry mismatch (-want +got):\n%s", diff)
	}
}

func TestDiskLeavesNoTempFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	disk, err := OpenDiskCache(fs, "/cache")
	require.NoError(t, err)

	require.NoError(t, disk.Put(&Entry{Path: "/a.js"}))
	require.NoError(t, disk.Put(&Entry{Path: "/a.js", Code: "updated"}))

	files, err := afero.ReadDir(fs, "/cache/mods")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, ".mp", files[0].Name()[len(files[0].Name())-3:])

	entry, ok, err := disk.Get("/a.js")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "updated", entry.Code)
}

func TestDiskIgnoresOtherSchemaVersions(t *testing.T) {
	fs := afero.NewMemMapFs()
	disk, err := OpenDiskCache(fs, "/cache")
	require.NoError(t, err)

	data, err := msgpack.Marshal(&diskPayload{Schema: diskSchemaVersion + 1, Path: "/a.js"})
	require.NoError(t, err)
	require.NoError(t, fs.MkdirAll("/cache/mods", 0o755))
	require.NoError(t, afero.WriteFile(fs, disk.pathFor("/a.js"), data, 0o644))

	_, ok, err := disk.Get("/a.js")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDropAll(t *testing.T) {
	fs := afero.NewMemMapFs()
	disk, err := OpenDiskCache(fs, "/cache")
	require.NoError(t, err)
	require.NoError(t, disk.Put(&Entry{Path: "/a.js"}))

	require.NoError(t, disk.DropAll())

	_, ok, err := disk.Get("/a.js")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRemove(t *testing.T) {
	c := New("salt", nil)
	c.Put(sampleEntry())
	c.Remove("/app/src/index.js")

	_, ok := c.Get("/app/src/index.js", "abc")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Stats().Entries)
}

func TestPutCopiesImports(t *testing.T) {
	c := New("salt", nil)
	e := sampleEntry()
	c.Put(e)
	e.Imports[0].Specifier = "./mutated"

	got, ok := c.Get("/app/src/index.js", "abc")
	require.True(t, ok)
	assert.Equal(t, "./b", got.Imports[0].Specifier)
}
