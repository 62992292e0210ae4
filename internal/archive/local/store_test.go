package local_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intelforge/collector-worker/internal/archive/local"
)

func TestNew(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		store, err := local.New(local.Config{BaseDir: t.TempDir()})
		require.NoError(t, err)
		assert.NotNil(t, store)
	})

	t.Run("MissingBaseDir", func(t *testing.T) {
		_, err := local.New(local.Config{})
		assert.Error(t, err)
	})

	t.Run("CreatesMissingBaseDir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "archive")
		_, err := local.New(local.Config{BaseDir: dir})
		require.NoError(t, err)
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("BaseDirIsAFile", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "occupied")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
		_, err := local.New(local.Config{BaseDir: file})
		assert.Error(t, err)
	})
}

func TestPut(t *testing.T) {
	tempDir := t.TempDir()
	store, err := local.New(local.Config{BaseDir: tempDir})
	require.NoError(t, err)

	t.Run("ValidPut", func(t *testing.T) {
		uri, err := store.Put(context.Background(), "sources/s1/fetch.xml", "application/xml", []byte("<rss/>"))
		require.NoError(t, err)
		assert.Equal(t, "file://"+filepath.Join(tempDir, "sources/s1/fetch.xml"), uri)

		data, err := os.ReadFile(filepath.Join(tempDir, "sources/s1/fetch.xml"))
		require.NoError(t, err)
		assert.Equal(t, []byte("<rss/>"), data)
	})

	t.Run("EmptyPath", func(t *testing.T) {
		_, err := store.Put(context.Background(), "", "application/xml", []byte("x"))
		assert.Error(t, err)
	})

	t.Run("PathTraversal", func(t *testing.T) {
		_, err := store.Put(context.Background(), "../escape.xml", "application/xml", []byte("x"))
		assert.Error(t, err)
	})

	t.Run("ConfiguredPrefix", func(t *testing.T) {
		dir := t.TempDir()
		prefixed, err := local.New(local.Config{BaseDir: dir, Prefix: "raw"})
		require.NoError(t, err)

		uri, err := prefixed.Put(context.Background(), "sources/s1/fetch.xml", "application/xml", []byte("<rss/>"))
		require.NoError(t, err)
		assert.Equal(t, "file://"+filepath.Join(dir, "raw", "sources/s1/fetch.xml"), uri)

		_, err = os.Stat(filepath.Join(dir, "raw", "sources/s1/fetch.xml"))
		require.NoError(t, err)
	})
}
