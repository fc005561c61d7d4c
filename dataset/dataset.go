// Package dataset fetches the flower photo archive and enumerates it as a
// labeled image collection. The directory layout is the contract: every
// immediate subdirectory of the dataset root is a class, and every regular
// file inside it is one sample of that class.
package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Class is one labeled subdirectory of the dataset root. Files are absolute
// paths, sorted lexicographically.
type Class struct {
	Name  string
	Files []string
}

// NumFiles returns the total sample count across all classes.
func NumFiles(classes []Class) int {
	n := 0
	for _, c := range classes {
		n += len(c.Files)
	}
	return n
}

// Scan enumerates the immediate subdirectories of root as classes.
// Classes and the files within each class are sorted lexicographically, so
// sample order is reproducible across platforms. A class directory with no
// files yields a Class with zero files, which is not an error.
func Scan(root string) ([]Class, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("scan dataset root %v: %w", root, err)
	}
	names := []string{}
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	classes := make([]Class, 0, len(names))
	for _, name := range names {
		dir := filepath.Join(root, name)
		files, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("scan class %v: %w", name, err)
		}
		cls := Class{Name: name}
		for _, f := range files {
			if f.Type().IsRegular() {
				cls.Files = append(cls.Files, filepath.Join(dir, f.Name()))
			}
		}
		sort.Strings(cls.Files)
		classes = append(classes, cls)
	}
	return classes, nil
}
