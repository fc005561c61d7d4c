package codes

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strings"
)

// Cache file format: the codes file is a raw little-endian float32 dump in
// row-major order with no header; the labels file is one label per line.
// The row count comes from the labels file and the code dimension from
// dividing the float count by it, so the two files are only meaningful as a
// pair and must always be written and read together.

// Save writes the set to codesPath and labelsPath.
func (s *Set) Save(codesPath, labelsPath string) error {
	if len(s.Features) != len(s.Labels) {
		return fmt.Errorf("set has %v feature rows but %v labels", len(s.Features), len(s.Labels))
	}
	f, err := os.Create(codesPath)
	if err != nil {
		return fmt.Errorf("write codes file: %w", err)
	}
	w := bufio.NewWriter(f)
	buf := make([]byte, 4)
	for _, row := range s.Features {
		for _, v := range row {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
			if _, err := w.Write(buf); err != nil {
				f.Close()
				return fmt.Errorf("write codes file: %w", err)
			}
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write codes file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write codes file: %w", err)
	}

	lf, err := os.Create(labelsPath)
	if err != nil {
		return fmt.Errorf("write labels file: %w", err)
	}
	lw := bufio.NewWriter(lf)
	for _, label := range s.Labels {
		if _, err := lw.WriteString(label + "\n"); err != nil {
			lf.Close()
			return fmt.Errorf("write labels file: %w", err)
		}
	}
	if err := lw.Flush(); err != nil {
		lf.Close()
		return fmt.Errorf("write labels file: %w", err)
	}
	return lf.Close()
}

// LoadLabels reads just the label sequence of a cache pair.
func LoadLabels(labelsPath string) ([]string, error) {
	labelData, err := os.ReadFile(labelsPath)
	if err != nil {
		return nil, fmt.Errorf("read labels file: %w", err)
	}
	labels := []string{}
	for _, line := range strings.Split(string(labelData), "\n") {
		if line != "" {
			labels = append(labels, line)
		}
	}
	return labels, nil
}

// Load reads a cache pair back into memory. The byte count of the codes
// file must divide evenly into float32 rows matching the label count; any
// mismatch means the pair is corrupt or mismatched and is a fatal error.
func Load(codesPath, labelsPath string) (*Set, error) {
	labels, err := LoadLabels(labelsPath)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(codesPath)
	if err != nil {
		return nil, fmt.Errorf("read codes file: %w", err)
	}
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("codes file %v is %v bytes, not a multiple of 4", codesPath, len(raw))
	}
	nFloats := len(raw) / 4
	if len(labels) == 0 {
		if nFloats != 0 {
			return nil, fmt.Errorf("codes file %v has data but labels file %v is empty", codesPath, labelsPath)
		}
		return &Set{}, nil
	}
	if nFloats%len(labels) != 0 {
		return nil, fmt.Errorf("codes file %v has %v floats, not divisible by %v labels", codesPath, nFloats, len(labels))
	}
	dim := nFloats / len(labels)

	set := &Set{
		Features: make([][]float32, len(labels)),
		Labels:   labels,
	}
	pos := 0
	for i := range set.Features {
		row := make([]float32, dim)
		for j := range row {
			row[j] = math.Float32frombits(binary.LittleEndian.Uint32(raw[pos:]))
			pos += 4
		}
		set.Features[i] = row
	}
	return set, nil
}
