// Package codes runs the dataset through the pretrained network once and
// caches the resulting code vectors, so classifier training never has to
// touch the convolutional layers again.
package codes

import (
	"fmt"

	"github.com/cyclopcam/logs"

	"flowernet/dataset"
	"flowernet/extractor"
)

// DefaultBatchSize is a conservative default for the number of images sent
// to the network per call. Raise it if accelerator memory allows.
const DefaultBatchSize = 10

// Set is the cached output of the pipeline: one code vector per image, with
// Labels[i] naming the class of Features[i].
type Set struct {
	Features [][]float32
	Labels   []string
}

// Dim returns the code vector length, or 0 for an empty set.
func (s *Set) Dim() int {
	if len(s.Features) == 0 {
		return 0
	}
	return len(s.Features[0])
}

// Pipeline batches images through the feature extractor in deterministic
// dataset order.
type Pipeline struct {
	Log       logs.Log
	Extractor extractor.Codes
	BatchSize int

	// LoadImage is the image preprocessing step. Defaults to
	// extractor.LoadImage; tests substitute a synthetic loader.
	LoadImage func(path string) ([]float32, error)
}

func NewPipeline(log logs.Log, ext extractor.Codes, batchSize int) *Pipeline {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Pipeline{
		Log:       log,
		Extractor: ext,
		BatchSize: batchSize,
		LoadImage: extractor.LoadImage,
	}
}

// Run scans root and produces the code vectors for every image, in class
// order then filename order. A batch is submitted when it reaches BatchSize
// or when a class runs out of files, so the final partial batch of each
// class is processed like any other. The first unreadable image aborts the
// whole run.
func (p *Pipeline) Run(root string) (*Set, error) {
	classes, err := dataset.Scan(root)
	if err != nil {
		return nil, err
	}
	total := dataset.NumFiles(classes)
	p.Log.Infof("Extracting codes for %v images in %v classes (batch size %v)", total, len(classes), p.BatchSize)

	set := &Set{}
	for _, cls := range classes {
		if len(cls.Files) == 0 {
			p.Log.Warnf("Class %v has no images", cls.Name)
			continue
		}
		batch := make([][]float32, 0, p.BatchSize)
		flush := func() error {
			if len(batch) == 0 {
				return nil
			}
			rows, err := p.Extractor.Extract(batch)
			if err != nil {
				return fmt.Errorf("extract batch of class %v: %w", cls.Name, err)
			}
			if len(rows) != len(batch) {
				return fmt.Errorf("extractor returned %v rows for a batch of %v", len(rows), len(batch))
			}
			set.Features = append(set.Features, rows...)
			for range rows {
				set.Labels = append(set.Labels, cls.Name)
			}
			batch = batch[:0]
			return nil
		}
		for _, file := range cls.Files {
			img, err := p.LoadImage(file)
			if err != nil {
				return nil, err
			}
			batch = append(batch, img)
			if len(batch) == p.BatchSize {
				if err := flush(); err != nil {
					return nil, err
				}
			}
		}
		if err := flush(); err != nil {
			return nil, err
		}
		p.Log.Infof("Class %v done (%v images, %v total so far)", cls.Name, len(cls.Files), len(set.Labels))
	}
	return set, nil
}
