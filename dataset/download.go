package dataset

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/cyclopcam/logs"
	"flowernet/util"
)

// Download fetches a .tar.gz archive of class-labeled image directories and
// extracts it under destDir. It is idempotent: if destDir already exists the
// download and extraction are skipped entirely. There are no retries; a
// failed download leaves destDir absent and the caller reruns from scratch.
func Download(log logs.Log, url, destDir string) error {
	if util.DirExists(destDir) {
		log.Infof("Dataset already present at %v, skipping download", destDir)
		return nil
	}
	log.Infof("Downloading %v", url)
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("download %v: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %v: unexpected status %v", url, resp.Status)
	}
	if err := extractTarGz(resp.Body, destDir); err != nil {
		// Leave no half-extracted tree behind, so a rerun starts clean.
		os.RemoveAll(destDir)
		return fmt.Errorf("extract %v: %w", url, err)
	}
	log.Infof("Extracted dataset to %v", destDir)
	return nil
}

// FetchModel downloads the pretrained feature extractor graph to path.
// Idempotent in the same way as Download.
func FetchModel(log logs.Log, url, path string) error {
	if util.FileExists(path) {
		log.Infof("Model already present at %v, skipping download", path)
		return nil
	}
	log.Infof("Downloading %v", url)
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("download %v: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %v: unexpected status %v", url, resp.Status)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp := path + ".partial"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("download %v: %w", url, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// extractTarGz unpacks a gzipped tarball under destDir. Entries that would
// escape destDir are rejected.
func extractTarGz(r io.Reader, destDir string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		target, err := sanitizePath(destDir, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
			if err != nil {
				return err
			}
			if _, err := io.Copy(f, tr); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
		default:
			// symlinks etc have no business in an image tarball
		}
	}
}

func sanitizePath(destDir, name string) (string, error) {
	target := filepath.Join(destDir, filepath.Clean(name))
	if target != destDir && !strings.HasPrefix(target, destDir+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry %v escapes destination", name)
	}
	return target, nil
}
