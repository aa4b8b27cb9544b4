package archive

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, m int) []string {
	t.Helper()

	dir := t.TempDir()
	paths := make([]string, m)
	for i := range paths {
		paths[i] = filepath.Join(dir, fmt.Sprintf("file_%d.bin", i))
		data := bytes.Repeat([]byte{byte(i), 0xAB, byte(i * 7)}, 1000+i)
		require.NoError(t, os.WriteFile(paths[i], data, 0o644))
	}

	return paths
}

func unzip(t *testing.T, data []byte) map[string][]byte {
	t.Helper()

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	out := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		out[f.Name] = body
	}

	return out
}

func TestZipRoundTrip(t *testing.T) {
	for _, m := range []int{1, 3, 12} {
		t.Run(fmt.Sprintf("%d files", m), func(t *testing.T) {
			paths := writeFiles(t, m)

			data, err := Zip(paths)
			require.NoError(t, err)

			entries := unzip(t, data)
			require.Len(t, entries, m)

			for _, p := range paths {
				want, err := os.ReadFile(p)
				require.NoError(t, err)
				assert.Equal(t, want, entries[filepath.Base(p)])
			}
		})
	}
}

func TestZipMissingFile(t *testing.T) {
	_, err := Zip([]string{filepath.Join(t.TempDir(), "nope.jpg")})
	assert.Error(t, err)

	_, err = Zip(nil)
	assert.ErrorIs(t, err, ErrNoFiles)
}

func TestWriteFileReplaces(t *testing.T) {
	paths := writeFiles(t, 2)
	dst := filepath.Join(t.TempDir(), "out.zip")

	require.NoError(t, os.WriteFile(dst, []byte("stale"), 0o644))
	require.NoError(t, WriteFile(dst, paths))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Len(t, unzip(t, data), 2)
}

func TestEntryNamesDeduplicate(t *testing.T) {
	got := entryNames([]string{"a/x.jpg", "b/x.jpg", "c/y.jpg", "d/X.jpg"})
	assert.Equal(t, []string{"x.jpg", "x (2).jpg", "y.jpg", "X (3).jpg"}, got)
}
