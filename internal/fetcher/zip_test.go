package fetcher

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestZIP(t *testing.T, dir string, files map[string]string) string {
	t.Helper()
	zipPath := filepath.Join(dir, "test.zip")
	f, err := os.Create(zipPath)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	w := zip.NewWriter(f)
	for name, content := range files {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return zipPath
}

func TestExtractZIP(t *testing.T) {
	zipPath := createTestZIP(t, t.TempDir(), map[string]string{
		"region.shp": "shp",
		"region.dbf": "dbf",
		"README.txt": "notes",
	})

	destDir := t.TempDir()
	extracted, err := ExtractZIP(zipPath, destDir)
	require.NoError(t, err)
	assert.Len(t, extracted, 3)

	data, err := os.ReadFile(filepath.Join(destDir, "region.dbf"))
	require.NoError(t, err)
	assert.Equal(t, "dbf", string(data))
}

func TestExtractZIP_ZipSlipPrevention(t *testing.T) {
	zipPath := createTestZIP(t, t.TempDir(), map[string]string{"../../../etc/passwd": "malicious"})

	_, err := ExtractZIP(zipPath, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zip slip")
}

func TestExtractZIP_WithSubdirectory(t *testing.T) {
	zipPath := createTestZIP(t, t.TempDir(), map[string]string{
		"subdir/":         "",
		"subdir/data.csv": "a,b",
	})

	destDir := t.TempDir()
	extracted, err := ExtractZIP(zipPath, destDir)
	require.NoError(t, err)
	assert.Len(t, extracted, 1)

	data, err := os.ReadFile(filepath.Join(destDir, "subdir", "data.csv"))
	require.NoError(t, err)
	assert.Equal(t, "a,b", string(data))
}

func TestExtractZIP_InvalidArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notazip.zip")
	require.NoError(t, os.WriteFile(path, []byte("this is not a zip"), 0o644))

	_, err := ExtractZIP(path, t.TempDir())
	require.Error(t, err)
}

func TestPrimaryFile(t *testing.T) {
	got, err := PrimaryFile([]string{"a/readme.txt", "a/matrix.csv", "a/region.SHP", "a/region.geojson"})
	require.NoError(t, err)
	assert.Equal(t, "a/region.SHP", got)

	got, err = PrimaryFile([]string{"x.txt", "m.xlsx", "s.csv"})
	require.NoError(t, err)
	assert.Equal(t, "s.csv", got)

	_, err = PrimaryFile([]string{"x.txt"})
	assert.Error(t, err)
}
