package anymdlstm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/unixpickle/anyhwr"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec64"
	"github.com/unixpickle/serializer"
)

func TestPipelineReduction(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	p := Pipeline{
		NewPair(c, 1, 2, 3, anyhwr.Size{Height: 2, Width: 4}, false),
		&Dropout{KeepProb: 0.5},
		NewPair(c, 3, 2, 5, anyhwr.Size{Height: 3, Width: 1}, true),
	}
	if r := p.Reduction(); r != (anyhwr.Size{Height: 6, Width: 4}) {
		t.Errorf("unexpected reduction %v", r)
	}
	if d := p.OutDepth(1); d != 5 {
		t.Errorf("expected depth 5 but got %d", d)
	}
	if n := len(p.Parameters()); n != 2+2+4*2+2 {
		t.Errorf("unexpected parameter count %d", n)
	}

	out, err := p.Apply(randomBatch(c, []anyhwr.Shape{shape(7, 9, 1)}), Evaluation)
	if err != nil {
		t.Fatal(err)
	}
	if out.Shapes[0] != shape(2, 3, 5) {
		t.Errorf("unexpected output shape %v", out.Shapes[0])
	}
}

func TestPipelineSerialize(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	p := Pipeline{
		NewPair(c, 1, 2, 3, anyhwr.Size{Height: 2, Width: 2}, false),
		&Dropout{KeepProb: 0.25},
		&Debug{ID: "x", PrintMean: true},
	}
	data, err := serializer.SerializeAny(p)
	if err != nil {
		t.Fatal(err)
	}
	var p1 Pipeline
	if err := serializer.DeserializeAny(data, &p1); err != nil {
		t.Fatal(err)
	}
	if len(p1) != 3 {
		t.Fatalf("expected 3 stages but got %d", len(p1))
	}
	if _, ok := p1[0].(*Pair); !ok {
		t.Errorf("unexpected stage %T", p1[0])
	}
	if d, ok := p1[1].(*Dropout); !ok || d.KeepProb != 0.25 {
		t.Errorf("unexpected stage %v", p1[1])
	}
	if d, ok := p1[2].(*Debug); !ok || d.ID != "x" || !d.PrintMean || d.PrintVariance {
		t.Errorf("unexpected stage %v", p1[2])
	}
}

func TestDropout(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	b := randomBatch(c, []anyhwr.Shape{shape(10, 10, 2)})
	in := b.Data.Output().Data().([]float64)
	d := &Dropout{KeepProb: 0.5}

	out, err := d.Apply(b, Evaluation)
	if err != nil {
		t.Fatal(err)
	}
	for i, x := range out.Data.Output().Data().([]float64) {
		if x != in[i]*0.5 {
			t.Fatalf("entry %d: expected %f but got %f", i, in[i]*0.5, x)
		}
	}

	out, err = d.Apply(b, Training)
	if err != nil {
		t.Fatal(err)
	}
	var kept int
	for i, x := range out.Data.Output().Data().([]float64) {
		if x == in[i] {
			kept++
		} else if x != 0 {
			t.Fatalf("entry %d: unexpected value %f", i, x)
		}
	}
	if kept < 50 || kept > 150 {
		t.Errorf("kept %d out of 200 values", kept)
	}
}

func TestDebug(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	var buf bytes.Buffer
	d := &Debug{Writer: &buf, ID: "foo"}
	b, err := anyhwr.NewBatch(c, []anyvec.Vector{
		c.MakeVectorData([]float64{1, 2}),
		c.MakeVectorData([]float64{3, 4, 5, 6}),
	}, []anyhwr.Shape{shape(1, 1, 2), shape(2, 1, 2)})
	if err != nil {
		t.Fatal(err)
	}
	out, err := d.Apply(b, Training)
	if err != nil {
		t.Fatal(err)
	}
	if out != b {
		t.Error("batch should be unchanged")
	}
	if !strings.HasPrefix(buf.String(), "Debug (foo): training batch of 2:") {
		t.Errorf("unexpected output: %q", buf.String())
	}
}
