package ml

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/cyclopcam/logs"
	torch "github.com/wangkuiyi/gotorch"
	F "github.com/wangkuiyi/gotorch/nn/functional"

	"flowernet/split"
	"flowernet/util"
)

// Trainer runs minibatch SGD over the cached codes. Configuration is fixed
// before Train is called; there is no early stopping, training always runs
// the configured number of epochs and then checkpoints.
type Trainer struct {
	Log       logs.Log
	LR        float64
	Epochs    int
	BatchSize int
	EvalEvery int // validation accuracy cadence, in gradient steps
	Hidden    int
	Seed      int64
	Device    torch.Device
}

func NewTrainer(log logs.Log, device torch.Device) *Trainer {
	return &Trainer{
		Log:       log,
		LR:        0.01,
		Epochs:    10,
		BatchSize: 100,
		EvalEvery: 5,
		Hidden:    DefaultHidden,
		Seed:      1,
		Device:    device,
	}
}

// Train fits a head on the training partition of the given codes. onehot
// rows are the encoded targets aligned with features; part indexes into
// both. Every training sample is used exactly once per epoch.
func (t *Trainer) Train(features [][]float32, onehot [][]float32, part split.Partition) (*HeadModule, error) {
	if len(features) == 0 || len(features) != len(onehot) {
		return nil, fmt.Errorf("feature and target rows must align: got %v and %v", len(features), len(onehot))
	}
	if len(part.Train) == 0 {
		return nil, fmt.Errorf("training partition is empty")
	}
	inDim := len(features[0])
	numClasses := len(onehot[0])

	head := Head(inDim, t.Hidden, numClasses)
	head.To(t.Device)
	opt := torch.SGD(t.LR, 0, 0, 0, false)
	opt.AddParameters(head.Parameters())
	defer torch.FinishGC()

	targets := targetIndices(onehot)
	rng := rand.New(rand.NewSource(t.Seed))
	steps := 0
	for epoch := 0; epoch < t.Epochs; epoch++ {
		var trainLoss float32
		startTime := time.Now()
		order := epochOrder(rng, part.Train)
		for _, r := range batchRanges(len(order), t.BatchSize) {
			chunk := order[r[0]:r[1]]
			data := torch.NewTensor(split.Gather(features, chunk))
			label := torch.NewTensor(gatherInt64(targets, chunk))

			opt.ZeroGrad()
			pred := head.Forward(data.To(t.Device, data.Dtype()))
			loss := F.NllLoss(pred, label.To(t.Device, label.Dtype()), torch.Tensor{}, -100, "mean")
			loss.Backward()
			opt.Step()
			trainLoss = loss.Item().(float32)
			steps++

			if t.EvalEvery > 0 && steps%t.EvalEvery == 0 && len(part.Val) > 0 {
				acc := Evaluate(head, t.Device, features, onehot, part.Val)
				t.Log.Infof("Step %v: loss %.4f, validation accuracy %.2f%%", steps, trainLoss, 100*acc)
			}
		}
		throughput := float64(len(order)) / time.Since(startTime).Seconds()
		t.Log.Infof("Train epoch %v: loss %.4f, throughput %.0f samples/sec", epoch, trainLoss, throughput)
	}
	return head, nil
}

// Evaluate computes argmax accuracy over the given sample indices without
// touching parameters.
func Evaluate(head *HeadModule, device torch.Device, features, onehot [][]float32, idxs []int) float64 {
	if len(idxs) == 0 {
		return 0
	}
	targets := targetIndices(onehot)
	data := torch.NewTensor(split.Gather(features, idxs))
	label := torch.NewTensor(gatherInt64(targets, idxs))
	data = data.To(device, data.Dtype())
	label = label.To(device, label.Dtype())

	output := head.Forward(data)
	pred := output.Argmax(1)
	correct := pred.Eq(label.View(pred.Shape()...)).Sum(map[string]interface{}{"dim": 0, "keepDim": false}).Item().(int64)
	return float64(correct) / float64(len(idxs))
}

func targetIndices(onehot [][]float32) []int64 {
	out := make([]int64, len(onehot))
	for i, row := range onehot {
		out[i] = int64(util.Argmax(row))
	}
	return out
}

func gatherInt64(values []int64, idxs []int) []int64 {
	out := make([]int64, len(idxs))
	for i, idx := range idxs {
		out[i] = values[idx]
	}
	return out
}
