package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	torch "github.com/wangkuiyi/gotorch"

	"flowernet/codes"
	"flowernet/dataset"
	"flowernet/extractor"
	"flowernet/ml"
	"flowernet/split"
)

const defaultDataURL = "http://download.tensorflow.org/example_images/flower_photos.tgz"

func check(log logs.Log, err error) {
	if err != nil {
		log.Criticalf("%v", err)
		os.Exit(1)
	}
}

func device() torch.Device {
	if torch.IsCUDAAvailable() {
		return torch.NewDevice("cuda")
	}
	return torch.NewDevice("cpu")
}

func main() {
	parser := argparse.NewParser("flowernet", "Transfer learning on the flower photo dataset: cache pretrained-network codes, train a classifier head on them, classify new images")

	downloadCmd := parser.NewCommand("download", "Fetch and extract the flower photos (and optionally the pretrained model)")
	dlURL := downloadCmd.String("u", "url", &argparse.Options{Help: "Dataset archive URL", Default: defaultDataURL})
	dlDest := downloadCmd.String("d", "dest", &argparse.Options{Help: "Directory to extract the dataset into", Default: "data"})
	dlModelURL := downloadCmd.String("", "model-url", &argparse.Options{Help: "URL of the pretrained ONNX feature extractor (skipped if empty)", Default: ""})
	dlModel := downloadCmd.String("m", "model", &argparse.Options{Help: "Path to store the pretrained model at", Default: "models/vgg16-codes.onnx"})

	codesCmd := parser.NewCommand("codes", "Run every image through the pretrained network and cache the code vectors")
	cdData := codesCmd.String("d", "data", &argparse.Options{Help: "Dataset root (class-labeled subdirectories)", Default: "data/flower_photos"})
	cdModel := codesCmd.String("m", "model", &argparse.Options{Help: "Pretrained ONNX feature extractor", Default: "models/vgg16-codes.onnx"})
	cdBatch := codesCmd.Int("b", "batch", &argparse.Options{Help: "Images per extractor call; bounded by accelerator memory", Default: codes.DefaultBatchSize})
	cdCodes := codesCmd.String("", "codes", &argparse.Options{Help: "Output file for the code vectors", Default: "flower_codes.bin"})
	cdLabels := codesCmd.String("", "labels", &argparse.Options{Help: "Output file for the labels", Default: "flower_labels.txt"})

	trainCmd := parser.NewCommand("train", "Train the classifier head on the cached codes")
	trCodes := trainCmd.String("", "codes", &argparse.Options{Help: "Cached code vectors", Default: "flower_codes.bin"})
	trLabels := trainCmd.String("", "labels", &argparse.Options{Help: "Cached labels", Default: "flower_labels.txt"})
	trHoldout := trainCmd.Float("", "holdout", &argparse.Options{Help: "Fraction of samples held out and halved into validation and test", Default: 0.2})
	trSeed := trainCmd.Int("", "seed", &argparse.Options{Help: "Seed for the split and minibatch shuffles", Default: 1})
	trLR := trainCmd.Float("", "lr", &argparse.Options{Help: "Learning rate", Default: 0.01})
	trEpochs := trainCmd.Int("e", "epochs", &argparse.Options{Help: "Number of training epochs", Default: 10})
	trBatch := trainCmd.Int("b", "batch", &argparse.Options{Help: "Minibatch size", Default: 100})
	trEval := trainCmd.Int("", "eval-every", &argparse.Options{Help: "Validation accuracy cadence, in gradient steps", Default: 5})
	trHidden := trainCmd.Int("", "hidden", &argparse.Options{Help: "Hidden layer width", Default: ml.DefaultHidden})
	trCkptDir := trainCmd.String("", "ckpt-dir", &argparse.Options{Help: "Checkpoint directory", Default: "checkpoints"})
	trVersion := trainCmd.String("v", "version", &argparse.Options{Help: "Checkpoint version identifier", Default: "v1"})

	predictCmd := parser.NewCommand("predict", "Classify a single image with a trained checkpoint")
	prImage := predictCmd.String("i", "image", &argparse.Options{Help: "Image to classify", Required: true})
	prModel := predictCmd.String("m", "model", &argparse.Options{Help: "Pretrained ONNX feature extractor", Default: "models/vgg16-codes.onnx"})
	prLabels := predictCmd.String("", "labels", &argparse.Options{Help: "Cached labels (defines the class order)", Default: "flower_labels.txt"})
	prHidden := predictCmd.Int("", "hidden", &argparse.Options{Help: "Hidden layer width the checkpoint was trained with", Default: ml.DefaultHidden})
	prCkptDir := predictCmd.String("", "ckpt-dir", &argparse.Options{Help: "Checkpoint directory", Default: "checkpoints"})
	prVersion := predictCmd.String("v", "version", &argparse.Options{Help: "Checkpoint version identifier", Default: "v1"})

	if err := parser.Parse(os.Args); err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, err := logs.NewLog()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	switch {
	case downloadCmd.Happened():
		check(logger, dataset.Download(logger, *dlURL, *dlDest))
		if *dlModelURL != "" {
			check(logger, dataset.FetchModel(logger, *dlModelURL, *dlModel))
		}

	case codesCmd.Happened():
		sess, err := extractor.NewSession(*cdModel)
		check(logger, err)
		defer sess.Close()
		pipeline := codes.NewPipeline(logger, sess, *cdBatch)
		set, err := pipeline.Run(*cdData)
		check(logger, err)
		check(logger, set.Save(*cdCodes, *cdLabels))
		logger.Infof("Cached %v code vectors of length %v", len(set.Labels), set.Dim())

	case trainCmd.Happened():
		set, err := codes.Load(*trCodes, *trLabels)
		check(logger, err)
		enc := split.FitLabels(set.Labels)
		onehot, err := enc.Transform(set.Labels)
		check(logger, err)
		part := split.Stratified(set.Labels, *trHoldout, int64(*trSeed))
		logger.Infof("Split %v samples into %v train / %v val / %v test across %v classes",
			len(set.Labels), len(part.Train), len(part.Val), len(part.Test), enc.NumClasses())

		dev := device()
		trainer := ml.NewTrainer(logger, dev)
		trainer.LR = *trLR
		trainer.Epochs = *trEpochs
		trainer.BatchSize = *trBatch
		trainer.EvalEvery = *trEval
		trainer.Hidden = *trHidden
		trainer.Seed = int64(*trSeed)
		head, err := trainer.Train(set.Features, onehot, part)
		check(logger, err)

		acc := ml.Evaluate(head, dev, set.Features, onehot, part.Test)
		logger.Infof("Test accuracy: %.2f%%", 100*acc)
		path, err := ml.SaveCheckpoint(head, *trCkptDir, *trVersion)
		check(logger, err)
		logger.Infof("Saved checkpoint to %v", path)

	case predictCmd.Happened():
		labels, err := codes.LoadLabels(*prLabels)
		check(logger, err)
		enc := split.FitLabels(labels)
		head, err := ml.LoadCheckpoint(*prCkptDir, *prVersion, extractor.CodeDim, *prHidden, enc.NumClasses())
		check(logger, err)
		sess, err := extractor.NewSession(*prModel)
		check(logger, err)
		defer sess.Close()

		pred, err := ml.Predict(head, sess, extractor.LoadImage, enc.Classes(), *prImage)
		check(logger, err)
		fmt.Printf("%v\n", pred.Class)
		classes := append([]string{}, enc.Classes()...)
		sort.Slice(classes, func(i, j int) bool { return pred.Probs[classes[i]] > pred.Probs[classes[j]] })
		for _, c := range classes {
			fmt.Printf("  %-20s %.4f\n", c, pred.Probs[c])
		}
	}
}
