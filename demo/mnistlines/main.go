// Command mnistlines trains a line recognizer on
// synthetic lines of MNIST digits, or on the IAM
// handwriting database when -iam is set.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"reflect"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyhwr"
	"github.com/unixpickle/anyhwr/anydata"
	"github.com/unixpickle/anyhwr/anymdlstm"
	"github.com/unixpickle/anyhwr/anytrain"
	"github.com/unixpickle/anyhwr/anyvocab"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/mnist"
	"github.com/unixpickle/rip"
	"github.com/unixpickle/serializer"
)

var Creator anyvec.Creator

func main() {
	var modelPath string
	var vocabPath string
	var markupPath string
	var iamRoot string
	var cachePath string
	var numLines int
	var batchSize int
	var stepSize float64
	var clip float64
	var testFrac float64
	flag.StringVar(&modelPath, "out", "model_out", "network output file")
	flag.StringVar(&vocabPath, "vocab", "vocab.txt", "vocabulary output file")
	flag.StringVar(&markupPath, "markup", "", "optional convmarkup file for the stages")
	flag.StringVar(&iamRoot, "iam", "", "IAM database root (uses MNIST when empty)")
	flag.StringVar(&cachePath, "cache", "", "optional file for caching preprocessed samples")
	flag.IntVar(&numLines, "lines", 2000, "number of synthetic MNIST lines")
	flag.IntVar(&batchSize, "batch", 16, "SGD batch size")
	flag.Float64Var(&stepSize, "step", 0.001, "SGD step size")
	flag.Float64Var(&clip, "clip", 10, "gradient norm limit (0 disables)")
	flag.Float64Var(&testFrac, "test", 0.1, "fraction of samples kept for testing")
	flag.Parse()

	log.Println("Setting up...")

	Creator = anyvec32.CurrentCreator()

	samples, table, err := loadSamples(cachePath, iamRoot, numLines)
	if err != nil {
		essentials.Die(err)
	}
	samples.Window = batchSize
	train, test := anydata.SplitRandom(samples, testFrac, rand.New(rand.NewSource(1)))
	log.Printf("Using %d training and %d testing samples.", train.Len(), test.Len())

	network, err := loadNetwork(modelPath, vocabPath, markupPath, table)
	if err != nil {
		essentials.Die(err)
	}

	t := &anytrain.Trainer{
		Network: network,
		Params:  network.Parameters(),
		Average: true,
	}

	var iterNum int
	s := &anysgd.SGD{
		Fetcher:     t,
		Gradienter:  gradienter{Trainer: t, Clip: clip},
		Transformer: &anysgd.Adam{},
		Samples:     train,
		Rater:       anysgd.ConstRater(stepSize),
		StatusFunc: func(b anysgd.Batch) {
			log.Printf("iter %d: cost=%v inf=%d", iterNum, t.LastCost, t.InfCosts)
			iterNum++
		},
		BatchSize: batchSize,
	}

	log.Println("Press ctrl+c once to stop...")
	s.Run(rip.NewRIP().Chan())

	log.Println("Saving...")
	if err := serializer.SaveAny(modelPath, network); err != nil {
		essentials.Die(err)
	}
	if err := table.Save(vocabPath); err != nil {
		essentials.Die(err)
	}

	log.Println("Computing statistics...")
	stats, err := anytrain.Evaluate(network, test, batchSize, anytrain.DefaultBlankThresh)
	if err != nil {
		essentials.Die(err)
	}
	log.Println("Validation:", stats)
}

func loadSamples(cachePath, iamRoot string, numLines int) (*anytrain.SliceSampleList,
	*anyvocab.Table, error) {
	if cachePath == "" {
		return buildSamples(iamRoot, numLines)
	}
	if list, table, err := anydata.LoadSamples(cachePath, Creator); err == nil {
		log.Println("Loaded cached samples.")
		return list, table, nil
	}
	list, table, err := buildSamples(iamRoot, numLines)
	if err != nil {
		return nil, nil, err
	}
	return list, table, anydata.SaveSamples(cachePath, list, table)
}

func buildSamples(iamRoot string, numLines int) (*anytrain.SliceSampleList, *anyvocab.Table,
	error) {
	if iamRoot == "" {
		list, err := anydata.MNISTLines(mnist.LoadTrainingDataSet(), Creator, numLines, 3, 8, 1)
		return list, anydata.DigitTable(), err
	}
	f, err := os.Open(filepath.Join(iamRoot, "ascii", "lines.txt"))
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	lines, err := anydata.ParseIAMLines(f)
	if err != nil {
		return nil, nil, err
	}
	return anydata.IAMSamples(iamRoot, anydata.OKLines(lines), Creator, true)
}

func loadNetwork(path, vocabPath, markupPath string,
	table *anyvocab.Table) (*anymdlstm.Network, error) {
	var net *anymdlstm.Network
	if err := serializer.LoadAny(path, &net); err == nil {
		log.Println("Loaded existing network.")
		saved, err := anyvocab.Load(vocabPath)
		if err != nil {
			return nil, err
		}
		if !reflect.DeepEqual(saved.Vocabulary(), table.Vocabulary()) {
			return nil, errors.New("load network: vocabulary in " + vocabPath +
				" does not match the samples")
		}
		if net.Head.Classes() != saved.Len() {
			return nil, fmt.Errorf("load network: %d classes for %d tokens",
				net.Head.Classes(), saved.Len())
		}
		return net, nil
	}
	log.Println("Created new network.")
	if markupPath == "" {
		return anymdlstm.NewNetwork(Creator, &anymdlstm.NetworkConfig{
			InDepth:          1,
			Hidden:           []int{2, 10, 50},
			Out:              []int{6, 20, 60},
			Blocks:           []anyhwr.Size{{Height: 2, Width: 2}, {Height: 2, Width: 2}, {Height: 2, Width: 1}},
			MultiDirectional: true,
			DropoutKeep:      0.5,
			Classes:          table.Len(),
		}), nil
	}
	code, err := os.ReadFile(markupPath)
	if err != nil {
		return nil, err
	}
	stages, err := anymdlstm.FromMarkup(Creator, string(code))
	if err != nil {
		return nil, err
	}
	depth := stages.OutDepth(1)
	return &anymdlstm.Network{
		Stages: stages,
		Head:   anymdlstm.NewSoftmax(Creator, 0, depth, table.Len()),
	}, nil
}

// gradienter clips the gradients of a Trainer.
type gradienter struct {
	*anytrain.Trainer
	Clip float64
}

func (g gradienter) Gradient(b anysgd.Batch) anydiff.Grad {
	grad := g.Trainer.Gradient(b)
	if g.Clip > 0 && anytrain.ClipGrad(grad, g.Clip) {
		log.Printf("clipped gradient")
	}
	return grad
}
