package anymdlstm

import (
	"math"
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyhwr"
	"github.com/unixpickle/anyvec"
)

func randomBatch(c anyvec.Creator, shapes []anyhwr.Shape) *anyhwr.Batch {
	var size int
	for _, s := range shapes {
		size += s.Volume()
	}
	data := c.MakeVector(size)
	anyvec.Rand(data, anyvec.Normal, nil)
	return &anyhwr.Batch{
		Data:   anydiff.NewVar(data),
		Shapes: append([]anyhwr.Shape{}, shapes...),
	}
}

func shape(h, w, d int) anyhwr.Shape {
	return anyhwr.Shape{Size: anyhwr.Size{Height: h, Width: w}, Depth: d}
}

func assertClose(t *testing.T, expected, actual []float64) {
	t.Helper()
	if len(expected) != len(actual) {
		t.Fatalf("expected length %d but got %d", len(expected), len(actual))
	}
	for i, x := range expected {
		if math.Abs(x-actual[i]) > 1e-8 {
			t.Fatalf("entry %d: expected %f but got %f", i, x, actual[i])
		}
	}
}
