package dataset

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string) {
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
}

func TestScanOrdering(t *testing.T) {
	root := t.TempDir()
	// Created deliberately out of lexicographic order
	writeFile(t, filepath.Join(root, "tulips", "b.jpg"))
	writeFile(t, filepath.Join(root, "tulips", "a.jpg"))
	writeFile(t, filepath.Join(root, "daisy", "z.jpg"))
	writeFile(t, filepath.Join(root, "roses", "1.jpg"))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0755))
	// Loose files in the root are not samples
	writeFile(t, filepath.Join(root, "LICENSE.txt"))

	classes, err := Scan(root)
	require.NoError(t, err)
	require.Equal(t, 4, len(classes))
	require.Equal(t, "daisy", classes[0].Name)
	require.Equal(t, "empty", classes[1].Name)
	require.Equal(t, "roses", classes[2].Name)
	require.Equal(t, "tulips", classes[3].Name)

	require.Empty(t, classes[1].Files)
	require.Equal(t, []string{
		filepath.Join(root, "tulips", "a.jpg"),
		filepath.Join(root, "tulips", "b.jpg"),
	}, classes[3].Files)
	require.Equal(t, 4, NumFiles(classes))
}

func TestScanMissingRoot(t *testing.T) {
	_, err := Scan(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func makeTarGz(t *testing.T, files map[string]string) []byte {
	buf := bytes.Buffer{}
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Typeflag: tar.TypeReg,
			Mode:     0644,
			Size:     int64(len(content)),
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func TestDownloadExtractsAndSkipsWhenPresent(t *testing.T) {
	archive := makeTarGz(t, map[string]string{
		"flower_photos/daisy/a.jpg": "aaa",
		"flower_photos/roses/b.jpg": "bbb",
	})
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write(archive)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "photos")
	log := logs.NewTestingLog(t)
	require.NoError(t, Download(log, srv.URL, dest))
	content, err := os.ReadFile(filepath.Join(dest, "flower_photos", "daisy", "a.jpg"))
	require.NoError(t, err)
	require.Equal(t, "aaa", string(content))
	require.Equal(t, 1, hits)

	// Second call is a no-op
	require.NoError(t, Download(log, srv.URL, dest))
	require.Equal(t, 1, hits)
}

func TestDownloadRejectsEscapingEntries(t *testing.T) {
	archive := makeTarGz(t, map[string]string{"../evil.txt": "pwn"})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	}))
	defer srv.Close()

	base := t.TempDir()
	dest := filepath.Join(base, "photos")
	err := Download(logs.NewTestingLog(t), srv.URL, dest)
	require.Error(t, err)
	require.NoFileExists(t, filepath.Join(base, "evil.txt"))
	// Failed extraction leaves nothing behind
	require.NoDirExists(t, dest)
}

func TestFetchModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("onnx-bytes"))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "models", "vgg16.onnx")
	log := logs.NewTestingLog(t)
	require.NoError(t, FetchModel(log, srv.URL, path))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "onnx-bytes", string(content))

	require.NoError(t, FetchModel(log, srv.URL, path))
}
