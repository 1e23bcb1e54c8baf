package anymdlstm

import (
	"errors"
	"math"
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anydifftest"
	"github.com/unixpickle/anyhwr"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec64"
)

func TestSoftmaxDistributions(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	s := NewSoftmax(c, 0, 3, 5)
	out, err := s.Apply(randomBatch(c, []anyhwr.Shape{shape(2, 4, 3), shape(5, 1, 3)}))
	if err != nil {
		t.Fatal(err)
	}
	expected := []anyhwr.Shape{shape(1, 4, 5), shape(1, 1, 5)}
	for i, sh := range out.Shapes {
		if sh != expected[i] {
			t.Errorf("example %d: expected %v but got %v", i, expected[i], sh)
		}
	}
	data := out.Data.Output().Data().([]float64)
	if len(data) != 5*5 {
		t.Fatalf("expected 25 outputs but got %d", len(data))
	}
	for col := 0; col < 5; col++ {
		var sum float64
		for _, x := range data[col*5 : (col+1)*5] {
			sum += math.Exp(x)
		}
		if math.Abs(sum-1) > 1e-8 {
			t.Errorf("column %d: probabilities sum to %f", col, sum)
		}
	}
}

func TestSoftmaxSumRows(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	s := NewSoftmax(c, 0, 1, 2)
	b, err := anyhwr.NewBatch(c, []anyvec.Vector{
		c.MakeVectorData([]float64{1, 2, 3, 4}),
		c.MakeVectorData([]float64{4, 6}),
	}, []anyhwr.Shape{shape(2, 2, 1), shape(1, 2, 1)})
	if err != nil {
		t.Fatal(err)
	}
	out, err := s.Apply(b)
	if err != nil {
		t.Fatal(err)
	}

	// Both images have column sums 4 and 6.
	data := out.Data.Output().Data().([]float64)
	assertClose(t, data[:4], data[4:])
}

func TestSoftmaxRows(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	s := NewSoftmax(c, 2, 3, 4)
	if _, err := s.Apply(randomBatch(c, []anyhwr.Shape{shape(2, 3, 3)})); err != nil {
		t.Error(err)
	}
	_, err := s.Apply(randomBatch(c, []anyhwr.Shape{shape(2, 3, 3), shape(3, 3, 3)}))
	if !errors.Is(err, anyhwr.ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch but got %v", err)
	}
}

func TestSoftmaxProp(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	s := NewSoftmax(c, 0, 2, 3)
	in := randomBatch(c, []anyhwr.Shape{shape(2, 3, 2), shape(3, 1, 2)})
	checker := anydifftest.ResChecker{
		F: func() anydiff.Res {
			out, err := s.Apply(in)
			if err != nil {
				t.Fatal(err)
			}
			return out.Data
		},
		V: append(s.Parameters(), in.Data.(*anydiff.Var)),
	}
	checker.FullCheck(t)
}
