package ml

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	torch "github.com/wangkuiyi/gotorch"
)

// Checkpoints are addressed by an explicit version identifier, not by
// "newest file in the directory", so concurrent runs sharing a directory
// never load each other's parameters by accident.

// CheckpointPath returns the file a given version is stored at.
func CheckpointPath(dir, version string) string {
	return filepath.Join(dir, fmt.Sprintf("flowers-%s.ckpt", version))
}

// SaveCheckpoint persists the trained head's parameters, returning the path
// written. Parameters are moved to the CPU first so the checkpoint loads on
// any device.
func SaveCheckpoint(head *HeadModule, dir, version string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create checkpoint dir: %w", err)
	}
	path := CheckpointPath(dir, version)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create checkpoint %v: %w", path, err)
	}
	head.To(torch.NewDevice("cpu"))
	if err := gob.NewEncoder(f).Encode(head.StateDict()); err != nil {
		f.Close()
		return "", fmt.Errorf("encode checkpoint %v: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("write checkpoint %v: %w", path, err)
	}
	return path, nil
}

// LoadCheckpoint rebuilds a head with the given architecture and restores
// the parameters of the named version into it.
func LoadCheckpoint(dir, version string, inDim, hidden, numClasses int) (*HeadModule, error) {
	path := CheckpointPath(dir, version)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint %v: %w", path, err)
	}
	defer f.Close()

	states := make(map[string]torch.Tensor)
	if err := gob.NewDecoder(f).Decode(&states); err != nil {
		return nil, fmt.Errorf("decode checkpoint %v: %w", path, err)
	}
	head := Head(inDim, hidden, numClasses)
	head.SetStateDict(states)
	return head, nil
}
