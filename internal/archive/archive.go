// Package archive zips a backup copy of the starting assembly sources
// before the compaction driver mutates them in place.
//
// Grounded on original_source/src/testcrush/utils.py's zip_archive
// (stage files into a directory, zip, remove the staging directory).
// archive/zip is the Go standard library's zip writer; no third-party
// archival package appears anywhere in the retrieval pack, so this is a
// stdlib-justified component like dwarfline.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Zip copies each file in files into a new archive at
// filepath.Join(dir, name+".zip") and returns the archive path. Unlike
// the Python original, no intermediate staging directory is created on
// disk: files are streamed directly into the zip writer.
func Zip(dir, name string, files []string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("archive: creating %q: %w", dir, err)
	}
	archivePath := filepath.Join(dir, name+".zip")

	out, err := os.Create(archivePath)
	if err != nil {
		return "", fmt.Errorf("archive: creating %q: %w", archivePath, err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for _, f := range files {
		if err := addFile(zw, f); err != nil {
			zw.Close()
			return "", err
		}
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("archive: closing %q: %w", archivePath, err)
	}
	return archivePath, nil
}

func addFile(zw *zip.Writer, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("archive: opening %q: %w", path, err)
	}
	defer src.Close()

	w, err := zw.Create(filepath.Base(path))
	if err != nil {
		return fmt.Errorf("archive: adding %q: %w", path, err)
	}
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("archive: writing %q: %w", path, err)
	}
	return nil
}
