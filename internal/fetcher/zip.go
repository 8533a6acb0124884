package fetcher

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// primaryOrder ranks the data file extensions a zip archive may carry.
var primaryOrder = []string{".shp", ".geojson", ".json", ".csv", ".xlsx"}

// ExtractZIP extracts every file of a zip archive into destDir and returns
// the extracted file paths.
func ExtractZIP(zipPath, destDir string) ([]string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: open zip")
	}
	defer r.Close() //nolint:errcheck

	var extracted []string
	for _, f := range r.File {
		p, err := extractEntry(f, destDir)
		if err != nil {
			return extracted, err
		}
		if p != "" {
			extracted = append(extracted, p)
		}
	}
	return extracted, nil
}

// PrimaryFile picks the data file among extracted archive members: a
// shapefile first, then GeoJSON, then tabular files.
func PrimaryFile(files []string) (string, error) {
	for _, ext := range primaryOrder {
		for _, f := range files {
			if strings.EqualFold(filepath.Ext(f), ext) {
				return f, nil
			}
		}
	}
	return "", eris.Errorf("fetcher: archive holds no data file among %d entries", len(files))
}

func extractEntry(f *zip.File, destDir string) (string, error) {
	destPath := filepath.Join(destDir, f.Name)
	if !strings.HasPrefix(filepath.Clean(destPath), filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", eris.Errorf("fetcher: illegal zip path %q (zip slip)", f.Name)
	}

	if f.FileInfo().IsDir() {
		if err := os.MkdirAll(destPath, 0o755); err != nil {
			return "", eris.Wrap(err, "fetcher: create directory")
		}
		return "", nil
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", eris.Wrap(err, "fetcher: create parent directory")
	}

	rc, err := f.Open()
	if err != nil {
		return "", eris.Wrap(err, "fetcher: open zip entry")
	}
	defer rc.Close() //nolint:errcheck

	if _, err := writeFile(destPath, io.LimitReader(rc, int64(f.UncompressedSize64))); err != nil {
		return "", err
	}
	return destPath, nil
}
