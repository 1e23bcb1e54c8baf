package anymdlstm

import (
	"errors"
	"math"
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anydifftest"
	"github.com/unixpickle/anyhwr"
	"github.com/unixpickle/anyvec/anyvec64"
	"github.com/unixpickle/serializer"
)

func TestMDLSTMShapes(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	m := NewMDLSTM(c, 2, 3, true)
	shapes := []anyhwr.Shape{shape(3, 4, 2), shape(2, 5, 2), shape(3, 4, 2)}
	out, err := m.Apply(randomBatch(c, shapes), Evaluation)
	if err != nil {
		t.Fatal(err)
	}
	if out.Len() != 3 {
		t.Fatalf("expected 3 examples but got %d", out.Len())
	}
	for i, s := range out.Shapes {
		expected := shape(shapes[i].Height, shapes[i].Width, 12)
		if s != expected {
			t.Errorf("example %d: expected %v but got %v", i, expected, s)
		}
	}
	if err := out.Check(); err != nil {
		t.Error(err)
	}
}

func TestMDLSTMDepthMismatch(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	m := NewMDLSTM(c, 2, 3, false)
	_, err := m.Apply(randomBatch(c, []anyhwr.Shape{shape(2, 2, 3)}), Evaluation)
	if !errors.Is(err, anyhwr.ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch but got %v", err)
	}
}

// TestMDLSTMDependencies checks that an output pixel of a
// single-direction layer only depends on the pixels above
// and to the left of it.
func TestMDLSTMDependencies(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	m := NewMDLSTM(c, 1, 2, false)
	s := shape(3, 4, 1)
	in := randomBatch(c, []anyhwr.Shape{s})
	out1, err := m.Apply(in, Evaluation)
	if err != nil {
		t.Fatal(err)
	}

	data := in.Data.Output().Data().([]float64)
	data[1*4+2] += 1
	changed := &anyhwr.Batch{
		Data:   anydiff.NewConst(c.MakeVectorData(data)),
		Shapes: in.Shapes,
	}
	out2, err := m.Apply(changed, Evaluation)
	if err != nil {
		t.Fatal(err)
	}

	v1 := out1.Data.Output().Data().([]float64)
	v2 := out2.Data.Output().Data().([]float64)
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			idx := (y*4 + x) * 2
			diff := math.Abs(v1[idx]-v2[idx]) + math.Abs(v1[idx+1]-v2[idx+1])
			if y >= 1 && x >= 2 {
				if y == 1 && x == 2 && diff == 0 {
					t.Errorf("pixel (%d, %d) should depend on the change", y, x)
				}
			} else if diff != 0 {
				t.Errorf("pixel (%d, %d) should not depend on the change", y, x)
			}
		}
	}
}

func TestMDLSTMMixedBatch(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	m := NewMDLSTM(c, 2, 3, true)
	shapes := []anyhwr.Shape{shape(3, 4, 2), shape(2, 5, 2), shape(3, 4, 2)}
	in := randomBatch(c, shapes)
	joined, err := m.Apply(in, Evaluation)
	if err != nil {
		t.Fatal(err)
	}
	offsets := joined.Offsets()
	actual := joined.Data.Output().Data().([]float64)
	for i := range shapes {
		single := &anyhwr.Batch{
			Data:   in.Example(i),
			Shapes: []anyhwr.Shape{shapes[i]},
		}
		out, err := m.Apply(single, Evaluation)
		if err != nil {
			t.Fatal(err)
		}
		expected := out.Data.Output().Data().([]float64)
		assertClose(t, expected, actual[offsets[i]:offsets[i+1]])
	}
}

func TestMDLSTMProp(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	m := NewMDLSTM(c, 2, 2, true)
	in := randomBatch(c, []anyhwr.Shape{shape(2, 3, 2), shape(3, 2, 2), shape(2, 3, 2)})
	checker := anydifftest.ResChecker{
		F: func() anydiff.Res {
			out, err := m.Apply(in, Evaluation)
			if err != nil {
				t.Fatal(err)
			}
			return out.Data
		},
		V: append(m.Parameters(), in.Data.(*anydiff.Var)),
	}
	checker.FullCheck(t)
}

func TestMDLSTMSerialize(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	m := NewMDLSTM(c, 1, 2, true)
	data, err := serializer.SerializeAny(m)
	if err != nil {
		t.Fatal(err)
	}
	var m1 *MDLSTM
	if err := serializer.DeserializeAny(data, &m1); err != nil {
		t.Fatal(err)
	}
	if len(m1.Cells) != 4 || m1.Cells[0].Hidden != 2 || m1.Cells[0].InCount != 1 {
		t.Fatalf("unexpected cells: %v", m1.Cells)
	}
	in := randomBatch(c, []anyhwr.Shape{shape(2, 3, 1)})
	out, _ := m.Apply(in, Evaluation)
	out1, err := m1.Apply(in, Evaluation)
	if err != nil {
		t.Fatal(err)
	}
	assertClose(t, out.Data.Output().Data().([]float64), out1.Data.Output().Data().([]float64))
}
