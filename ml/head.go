// Package ml trains and runs the small classifier head that sits on top of
// the cached code vectors.
package ml

import (
	torch "github.com/wangkuiyi/gotorch"
	"github.com/wangkuiyi/gotorch/nn"
)

// DefaultHidden is the width of the single hidden layer.
const DefaultHidden = 256

// HeadModule is the classifier: one hidden layer with ReLU, then a softmax
// output over the flower classes. Forward returns log-probabilities.
type HeadModule struct {
	nn.Module
	FC1 *nn.LinearModule
	FC2 *nn.LinearModule
}

// Head builds an untrained classifier for inDim-length codes.
func Head(inDim, hidden, numClasses int) *HeadModule {
	r := &HeadModule{
		FC1: nn.Linear(int64(inDim), int64(hidden), true),
		FC2: nn.Linear(int64(hidden), int64(numClasses), true),
	}
	r.Init(r)
	return r
}

func (h *HeadModule) Forward(x torch.Tensor) torch.Tensor {
	x = h.FC1.Forward(x).Relu()
	x = h.FC2.Forward(x)
	return x.LogSoftmax(1)
}
