package anyskew

import (
	"reflect"
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anydifftest"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyhwr"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/anyvec/anyvec64"
)

func TestSkewOutput(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	shape := anyhwr.Shape{Size: anyhwr.Size{Height: 3, Width: 2}, Depth: 1}
	in := anydiff.NewConst(c.MakeVectorData([]float64{
		1, 2,
		3, 4,
		5, 6,
	}))
	expected := []float64{
		1, 2, 0, 0,
		0, 3, 4, 0,
		0, 0, 5, 6,
	}
	actual := Skew(in, 1, shape).Output().Data().([]float64)
	if !reflect.DeepEqual(actual, expected) {
		t.Errorf("expected %v but got %v", expected, actual)
	}
	if SkewedWidth(shape.Size) != 4 {
		t.Errorf("expected width 4 but got %d", SkewedWidth(shape.Size))
	}
}

func TestSkewInverse(t *testing.T) {
	c := anyvec32.CurrentCreator()
	for _, size := range []anyhwr.Size{{Height: 1, Width: 1}, {Height: 1, Width: 5}, {Height: 4, Width: 1},
		{Height: 3, Width: 7}, {Height: 6, Width: 2}} {
		shape := anyhwr.Shape{Size: size, Depth: 2}
		in := c.MakeVector(shape.Volume() * 3)
		anyvec.Rand(in, anyvec.Normal, nil)
		skewed := Skew(anydiff.NewConst(in), 3, shape)
		actual := Unskew(skewed, 3, shape).Output().Data().([]float32)
		if !reflect.DeepEqual(actual, in.Data().([]float32)) {
			t.Errorf("size %v: unskew did not invert skew", size)
		}
	}
}

func TestSkewBatchInverse(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	shapes := []anyhwr.Shape{
		{Size: anyhwr.Size{Height: 2, Width: 5}, Depth: 1},
		{Size: anyhwr.Size{Height: 4, Width: 3}, Depth: 1},
	}
	data := c.MakeVector(shapes[0].Volume() + shapes[1].Volume())
	anyvec.Rand(data, anyvec.Normal, nil)
	b := &anyhwr.Batch{Data: anydiff.NewConst(data), Shapes: shapes}
	skewed := SkewBatch(b)
	if skewed.Shapes[1].Width != 6 {
		t.Errorf("expected width 6 but got %d", skewed.Shapes[1].Width)
	}
	restored := UnskewBatch(skewed.Data, shapes)
	if !reflect.DeepEqual(restored.Data.Output().Data(), data.Data()) {
		t.Error("unskew did not invert skew")
	}
}

func TestSkewProp(t *testing.T) {
	c := anyvec32.CurrentCreator()
	shape := anyhwr.Shape{Size: anyhwr.Size{Height: 3, Width: 4}, Depth: 2}
	inVar := anydiff.NewVar(c.MakeVector(shape.Volume() * 2))
	anyvec.Rand(inVar.Vector, anyvec.Normal, nil)
	checker := anydifftest.ResChecker{
		F: func() anydiff.Res {
			return Skew(inVar, 2, shape)
		},
		V: []*anydiff.Var{inVar},
	}
	checker.FullCheck(t)
}

func TestFlip(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	shape := anyhwr.Shape{Size: anyhwr.Size{Height: 2, Width: 3}, Depth: 1}
	in := anydiff.NewConst(c.MakeVectorData([]float64{
		1, 2, 3,
		4, 5, 6,
	}))
	expected := []float64{
		6, 5, 4,
		3, 2, 1,
	}
	flipped := Flip(in, 1, shape, true, true)
	if actual := flipped.Output().Data().([]float64); !reflect.DeepEqual(actual, expected) {
		t.Errorf("expected %v but got %v", expected, actual)
	}
	back := Flip(flipped, 1, shape, true, true)
	if !reflect.DeepEqual(back.Output().Data(), in.Output().Data()) {
		t.Error("flipping twice should restore the input")
	}
}

func TestSkewSeq(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	shape := anyhwr.Shape{Size: anyhwr.Size{Height: 2, Width: 2}, Depth: 1}
	in := anydiff.NewConst(c.MakeVectorData([]float64{
		1, 2,
		3, 4,

		5, 6,
		7, 8,
	}))
	seq := SkewSeq(in, 2, shape)
	expected := [][]float64{
		{1, 0, 5, 0},
		{2, 3, 6, 7},
		{0, 4, 0, 8},
	}
	if len(seq.Output()) != len(expected) {
		t.Fatalf("expected %d steps but got %d", len(expected), len(seq.Output()))
	}
	for i, x := range expected {
		actual := seq.Output()[i].Packed.Data().([]float64)
		if !reflect.DeepEqual(actual, x) {
			t.Errorf("step %d: expected %v but got %v", i, x, actual)
		}
	}

	restored := UnskewSeq(seq, 2, shape.Size, shape.Depth)
	if !reflect.DeepEqual(restored.Output().Data(), in.Output().Data()) {
		t.Error("UnskewSeq did not invert SkewSeq")
	}
}

func TestSkewSeqProp(t *testing.T) {
	c := anyvec32.CurrentCreator()
	shape := anyhwr.Shape{Size: anyhwr.Size{Height: 3, Width: 2}, Depth: 2}
	inVar := anydiff.NewVar(c.MakeVector(shape.Volume() * 2))
	anyvec.Rand(inVar.Vector, anyvec.Normal, nil)
	checker := &anydifftest.SeqChecker{
		F: func() anyseq.Seq {
			return SkewSeq(anydiff.Tanh(inVar), 2, shape)
		},
		V: []*anydiff.Var{inVar},
	}
	checker.FullCheck(t)

	resChecker := &anydifftest.ResChecker{
		F: func() anydiff.Res {
			return UnskewSeq(SkewSeq(inVar, 2, shape), 2, shape.Size, shape.Depth)
		},
		V: []*anydiff.Var{inVar},
	}
	resChecker.FullCheck(t)
}
