// Package anydata builds line-recognition data sets from
// MNIST digits and from the IAM handwriting database.
package anydata

import (
	"fmt"
	"math/rand"
	"strconv"

	"github.com/unixpickle/anyhwr"
	"github.com/unixpickle/anyhwr/anytrain"
	"github.com/unixpickle/anyhwr/anyvocab"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/mnist"
)

// DigitTable creates a vocabulary with the ten digits.
func DigitTable() *anyvocab.Table {
	res := anyvocab.NewTable()
	for i := 0; i < 10; i++ {
		res.Add(strconv.Itoa(i))
	}
	return res
}

// MNISTLines creates count synthetic text lines by placing
// random MNIST digits side by side.
//
// Every line has between minDigits and maxDigits digits,
// inclusive.
// The labels index into DigitTable().
func MNISTLines(ds mnist.DataSet, c anyvec.Creator, count, minDigits, maxDigits int,
	seed int64) (*anytrain.SliceSampleList, error) {
	if minDigits <= 0 || maxDigits < minDigits {
		return nil, fmt.Errorf("%w: digit range [%d, %d]", anyhwr.ErrInvalidArgument,
			minDigits, maxDigits)
	}
	if len(ds.Samples) == 0 {
		return nil, fmt.Errorf("%w: empty data set", anyhwr.ErrInvalidArgument)
	}
	table := DigitTable()
	gen := rand.New(rand.NewSource(seed))
	res := &anytrain.SliceSampleList{C: c}
	for i := 0; i < count; i++ {
		n := minDigits + gen.Intn(maxDigits-minDigits+1)
		digits := make([]mnist.Sample, n)
		label := make([]int, n)
		for j := range digits {
			digits[j] = ds.Samples[gen.Intn(len(ds.Samples))]
			idx, err := table.Index(strconv.Itoa(digits[j].Label))
			if err != nil {
				return nil, err
			}
			label[j] = idx
		}
		image, shape := joinDigits(ds.Width, ds.Height, digits)
		res.Samples = append(res.Samples, &anytrain.Sample{
			Image: c.MakeVectorData(c.MakeNumericList(image)),
			Shape: shape,
			Label: label,
		})
	}
	return res, nil
}

func joinDigits(width, height int, digits []mnist.Sample) ([]float64, anyhwr.Shape) {
	lineWidth := width * len(digits)
	res := make([]float64, 0, lineWidth*height)
	for y := 0; y < height; y++ {
		for _, d := range digits {
			res = append(res, d.Intensities[y*width:(y+1)*width]...)
		}
	}
	return res, anyhwr.Shape{
		Size:  anyhwr.Size{Height: height, Width: lineWidth},
		Depth: 1,
	}
}

// SplitRandom randomly moves a fraction of the samples
// into a test set, leaving the rest for training.
// The original list is not modified.
func SplitRandom(l *anytrain.SliceSampleList, testFraction float64,
	gen *rand.Rand) (train, test *anytrain.SliceSampleList) {
	perm := gen.Perm(l.Len())
	numTrain := int(float64(l.Len()) * (1 - testFraction))
	train = &anytrain.SliceSampleList{C: l.C, Window: l.Window}
	test = &anytrain.SliceSampleList{C: l.C, Window: l.Window}
	for i, j := range perm {
		if i < numTrain {
			train.Samples = append(train.Samples, l.Samples[j])
		} else {
			test.Samples = append(test.Samples, l.Samples[j])
		}
	}
	return
}
