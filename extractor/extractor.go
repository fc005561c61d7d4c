// Package extractor wraps the pretrained convolutional network that turns
// 224x224 RGB images into fixed-length code vectors. The network graph is an
// ONNX export of VGG16 truncated after the first fully-connected ReLU layer,
// so its output for a batch of images is a batch x 4096 matrix.
package extractor

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
)

const (
	// ImageSize is the side length the pretrained network was trained on.
	ImageSize = 224
	// Channels per pixel (BGR, the VGG training convention).
	Channels = 3
	// CodeDim is the length of the code vector emitted per image.
	CodeDim = 4096
)

// ImageFloats is the flat length of one preprocessed image.
const ImageFloats = ImageSize * ImageSize * Channels

// Codes is the feature extraction operation. Tests substitute a
// deterministic implementation so the pipeline can run without ONNX Runtime.
type Codes interface {
	// Extract runs one batch through the network. Input rows are
	// preprocessed images of length ImageFloats; output rows are code
	// vectors of length Dim(), in input order.
	Extract(batch [][]float32) ([][]float32, error)
	Dim() int
}

// Session owns the ONNX Runtime session for the pretrained network. It is
// created once, passed explicitly to every caller that extracts codes, and
// closed when the run is over. The configuration is fixed at construction.
type Session struct {
	session *ort.DynamicAdvancedSession
}

// NewSession loads the pretrained graph from modelPath.
func NewSession(modelPath string) (*Session, error) {
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}
	session, err := ort.NewDynamicAdvancedSession(modelPath,
		[]string{"input"}, []string{"codes"}, nil)
	if err != nil {
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create ONNX session for %v: %w", modelPath, err)
	}
	return &Session{session: session}, nil
}

func (s *Session) Extract(batch [][]float32) ([][]float32, error) {
	n := len(batch)
	if n == 0 {
		return nil, nil
	}
	flat := make([]float32, 0, n*ImageFloats)
	for i, img := range batch {
		if len(img) != ImageFloats {
			return nil, fmt.Errorf("image %v in batch has %v floats, expected %v", i, len(img), ImageFloats)
		}
		flat = append(flat, img...)
	}

	// The input tensor takes the shape of the actual batch, so a final
	// partial batch runs through the same path as a full one.
	input, err := ort.NewTensor(ort.NewShape(int64(n), ImageSize, ImageSize, Channels), flat)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer input.Destroy()
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(int64(n), CodeDim))
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer output.Destroy()

	if err := s.session.Run([]ort.Value{input}, []ort.Value{output}); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	data := output.GetData()
	out := make([][]float32, n)
	for i := range out {
		row := make([]float32, CodeDim)
		copy(row, data[i*CodeDim:(i+1)*CodeDim])
		out[i] = row
	}
	return out, nil
}

func (s *Session) Dim() int {
	return CodeDim
}

// Close releases the session and the ONNX Runtime environment.
func (s *Session) Close() {
	if s.session != nil {
		s.session.Destroy()
		s.session = nil
	}
	ort.DestroyEnvironment()
}
