package anydata

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/unixpickle/anyhwr"
	"github.com/unixpickle/anyvec/anyvec64"
	"github.com/unixpickle/mnist"
)

func testDigits() mnist.DataSet {
	return mnist.DataSet{
		Width:  2,
		Height: 2,
		Samples: []mnist.Sample{
			{Intensities: []float64{0, 0, 0, 0}, Label: 0},
			{Intensities: []float64{1, 1, 1, 1}, Label: 1},
			{Intensities: []float64{0.5, 0.5, 0.5, 0.5}, Label: 5},
		},
	}
}

func TestMNISTLines(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	list, err := MNISTLines(testDigits(), c, 20, 2, 4, 1337)
	if err != nil {
		t.Fatal(err)
	}
	if list.Len() != 20 {
		t.Fatalf("expected 20 lines but got %d", list.Len())
	}
	table := DigitTable()
	for i, s := range list.Samples {
		n := len(s.Label)
		if n < 2 || n > 4 {
			t.Errorf("line %d: unexpected length %d", i, n)
		}
		if s.Shape != (anyhwr.Shape{Size: anyhwr.Size{Height: 2, Width: 2 * n}, Depth: 1}) {
			t.Errorf("line %d: unexpected shape %v", i, s.Shape)
		}
		data := s.Image.Data().([]float64)
		for j, idx := range s.Label {
			digit, err := table.String(idx)
			if err != nil {
				t.Fatal(err)
			}
			expected := map[string]float64{"0": 0, "1": 1, "5": 0.5}[digit]
			for y := 0; y < 2; y++ {
				for x := 0; x < 2; x++ {
					if v := data[y*2*n+j*2+x]; v != expected {
						t.Errorf("line %d digit %d: expected %f but got %f", i, j, expected, v)
					}
				}
			}
		}
	}

	again, err := MNISTLines(testDigits(), c, 20, 2, 4, 1337)
	if err != nil {
		t.Fatal(err)
	}
	for i, s := range again.Samples {
		if !reflect.DeepEqual(s.Label, list.Samples[i].Label) {
			t.Errorf("line %d: seed should determine labels", i)
		}
	}
}

func TestMNISTLinesInvalid(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	if _, err := MNISTLines(testDigits(), c, 1, 3, 2, 0); err == nil {
		t.Error("expected error for bad digit range")
	}
	if _, err := MNISTLines(mnist.DataSet{}, c, 1, 1, 2, 0); err == nil {
		t.Error("expected error for empty data set")
	}
}

func TestSplitRandom(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	list, err := MNISTLines(testDigits(), c, 10, 1, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	train, test := SplitRandom(list, 0.3, rand.New(rand.NewSource(42)))
	if train.Len() != 7 || test.Len() != 3 {
		t.Fatalf("unexpected split %d/%d", train.Len(), test.Len())
	}
	seen := map[interface{}]bool{}
	for _, s := range append(append(train.Samples[:0:0], train.Samples...), test.Samples...) {
		if seen[s] {
			t.Error("duplicate sample")
		}
		seen[s] = true
	}
}
