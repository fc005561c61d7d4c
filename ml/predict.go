package ml

import (
	"fmt"

	"github.com/chewxy/math32"
	torch "github.com/wangkuiyi/gotorch"

	"flowernet/extractor"
	"flowernet/util"
)

// Prediction is the classifier's output for one image.
type Prediction struct {
	Class string
	Probs map[string]float32
}

// Predict classifies a single new image: the same preprocessing and feature
// extraction as the pipeline, then the trained head. classes must be the
// encoder's fixed class order from training time.
func Predict(head *HeadModule, ext extractor.Codes, loadImage func(string) ([]float32, error), classes []string, imagePath string) (*Prediction, error) {
	img, err := loadImage(imagePath)
	if err != nil {
		return nil, err
	}
	rows, err := ext.Extract([][]float32{img})
	if err != nil {
		return nil, err
	}
	logp := head.Forward(torch.NewTensor([][]float32{rows[0]}))

	probs := make([]float32, len(classes))
	for i := range classes {
		mask := make([]float32, len(classes))
		mask[i] = 1
		lp := torch.Sum(torch.Mul(logp, torch.NewTensor([][]float32{mask}))).Item().(float32)
		probs[i] = math32.Exp(lp)
	}
	best := util.Argmax(probs)
	if best < 0 {
		return nil, fmt.Errorf("classifier produced no output for %v", imagePath)
	}

	byClass := make(map[string]float32, len(classes))
	for i, c := range classes {
		byClass[c] = probs[i]
	}
	return &Prediction{Class: classes[best], Probs: byClass}, nil
}
