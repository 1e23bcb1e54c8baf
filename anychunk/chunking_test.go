package anychunk

import (
	"errors"
	"reflect"
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anydifftest"
	"github.com/unixpickle/anyhwr"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/anyvec/anyvec64"
	"github.com/unixpickle/serializer"
)

func TestChunkingOutput(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	layer := &Chunking{
		Input: anyhwr.Shape{Size: anyhwr.Size{Height: 2, Width: 4}, Depth: 1},
		Block: anyhwr.Size{Height: 2, Width: 2},
	}
	in := anydiff.NewConst(c.MakeVectorData([]float64{
		1, 2, 3, 4,
		5, 6, 7, 8,
	}))
	expected := []float64{
		1, 2, 5, 6,
		3, 4, 7, 8,
	}
	actual := layer.Apply(in, 1).Output().Data().([]float64)
	if !reflect.DeepEqual(actual, expected) {
		t.Errorf("expected %v but got %v", expected, actual)
	}
	if layer.BlocksPerExample() != 2 {
		t.Errorf("expected 2 blocks but got %d", layer.BlocksPerExample())
	}
}

func TestChunkingRoundTrip(t *testing.T) {
	c := anyvec32.CurrentCreator()
	layer := &Chunking{
		Input: anyhwr.Shape{Size: anyhwr.Size{Height: 6, Width: 4}, Depth: 3},
		Block: anyhwr.Size{Height: 3, Width: 2},
	}
	in := c.MakeVector(layer.Input.Volume() * 2)
	anyvec.Rand(in, anyvec.Normal, nil)
	out := layer.Dechunk(layer.Apply(anydiff.NewConst(in), 2), 2)
	expected := in.Data().([]float32)
	actual := out.Output().Data().([]float32)
	if !reflect.DeepEqual(actual, expected) {
		t.Errorf("round trip should be %v but got %v", expected, actual)
	}
}

func TestChunkingProp(t *testing.T) {
	c := anyvec32.CurrentCreator()
	layer := &Chunking{
		Input: anyhwr.Shape{Size: anyhwr.Size{Height: 4, Width: 6}, Depth: 2},
		Block: anyhwr.Size{Height: 2, Width: 3},
	}
	inVar := anydiff.NewVar(c.MakeVector(layer.Input.Volume() * 3))
	anyvec.Rand(inVar.Vector, anyvec.Uniform, nil)
	checker := anydifftest.ResChecker{
		F: func() anydiff.Res {
			return layer.Apply(inVar, 3)
		},
		V: []*anydiff.Var{inVar},
	}
	checker.FullCheck(t)
}

func TestChunkingMisaligned(t *testing.T) {
	layer := &Chunking{
		Input: anyhwr.Shape{Size: anyhwr.Size{Height: 5, Width: 4}, Depth: 1},
		Block: anyhwr.Size{Height: 2, Width: 2},
	}
	if err := layer.Check(); !errors.Is(err, anyhwr.ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch but got %v", err)
	}
}

func TestChunkingSerialize(t *testing.T) {
	layer := &Chunking{
		Input: anyhwr.Shape{Size: anyhwr.Size{Height: 5, Width: 4}, Depth: 7},
		Block: anyhwr.Size{Height: 1, Width: 2},
	}
	data, err := serializer.SerializeAny(layer)
	if err != nil {
		t.Fatal(err)
	}
	var decoded *Chunking
	if err := serializer.DeserializeAny(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(decoded, layer) {
		t.Errorf("expected %v but got %v", layer, decoded)
	}
}
