// Package archive packages result files into zip archives.
package archive

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"
)

// ErrNoFiles is returned when there is nothing to archive.
var ErrNoFiles = errors.New("no files to archive")

// Zip writes the files into a temporary archive, reads it back into memory
// and removes the temporary file. Entries are stored unencrypted under their
// base names.
func Zip(paths []string) ([]byte, error) {
	tmp := filepath.Join(os.TempDir(), fmt.Sprintf("Archive-%s.zip", uuid.New()))
	defer os.Remove(tmp)

	if err := WriteFile(tmp, paths); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(tmp)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}

	return data, nil
}

// WriteFile writes the files into a zip archive at dst, replacing any file
// already there.
func WriteFile(dst string, paths []string) (err error) {
	if len(paths) == 0 {
		return ErrNoFiles
	}

	if err := os.Remove(dst); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("replace %s: %w", dst, err)
	}

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close archive: %w", cerr)
		}
		if err != nil {
			_ = os.Remove(dst)
		}
	}()

	return Write(f, paths)
}

// Write streams a zip archive of the files to w.
func Write(w io.Writer, paths []string) error {
	if len(paths) == 0 {
		return ErrNoFiles
	}

	zw := zip.NewWriter(w)

	for i, name := range entryNames(paths) {
		if err := addFile(zw, paths[i], name); err != nil {
			_ = zw.Close()
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish archive: %w", err)
	}

	return nil
}

func addFile(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("header %s: %w", path, err)
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	dst, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}

	if _, err := io.Copy(dst, f); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}

	return nil
}

// entryNames returns the base name of each path, suffixing repeated names
// with " (n)" so entries do not collide.
func entryNames(paths []string) []string {
	names := make([]string, len(paths))
	seen := make(map[string]int, len(paths))

	for i, p := range paths {
		name := filepath.Base(p)
		key := strings.ToLower(name)

		seen[key]++
		if n := seen[key]; n > 1 {
			ext := filepath.Ext(name)
			name = fmt.Sprintf("%s (%d)%s", strings.TrimSuffix(name, ext), n, ext)
		}

		names[i] = name
	}

	return names
}
