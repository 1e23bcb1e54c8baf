// Package anyhwr provides the tensor plumbing for
// handwriting line recognition with multi-dimensional
// LSTMs, block-strided convolutions, and CTC.
//
// Tensors are stored in anyvec vectors in row-major,
// depth-minor order, the same layout used by anyconv.
// Examples of different sizes travel together in a Batch.
package anyhwr

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// A Shape describes a single tensor.
type Shape struct {
	Size
	Depth int
}

// NewShape creates a Shape, failing if any dimension is
// not positive.
func NewShape(height, width, depth int) (Shape, error) {
	s, err := NewSize(height, width)
	if err != nil {
		return Shape{}, err
	}
	if depth <= 0 {
		return Shape{}, fmt.Errorf("%w: depth %d", ErrInvalidArgument, depth)
	}
	return Shape{Size: s, Depth: depth}, nil
}

// Volume returns the number of components in a tensor of
// the shape.
func (s Shape) Volume() int {
	return s.Area() * s.Depth
}

// A Batch is a list of tensors, possibly of different
// shapes, packed one after another into a single vector.
type Batch struct {
	Data   anydiff.Res
	Shapes []Shape
}

// NewBatch packs the tensors into a constant Batch.
func NewBatch(c anyvec.Creator, tensors []anyvec.Vector, shapes []Shape) (*Batch, error) {
	if len(tensors) != len(shapes) {
		return nil, fmt.Errorf("%w: %d tensors but %d shapes", ErrShapeMismatch,
			len(tensors), len(shapes))
	}
	for i, t := range tensors {
		if t.Len() != shapes[i].Volume() {
			return nil, fmt.Errorf("%w: tensor %d has length %d, expected %d",
				ErrShapeMismatch, i, t.Len(), shapes[i].Volume())
		}
	}
	var data anyvec.Vector
	if len(tensors) == 0 {
		data = c.MakeVector(0)
	} else {
		data = c.Concat(tensors...)
	}
	return &Batch{
		Data:   anydiff.NewConst(data),
		Shapes: append([]Shape{}, shapes...),
	}, nil
}

// Len returns the number of examples.
func (b *Batch) Len() int {
	return len(b.Shapes)
}

// Offsets returns the start offset of every example,
// followed by the total length.
func (b *Batch) Offsets() []int {
	res := make([]int, len(b.Shapes)+1)
	for i, s := range b.Shapes {
		res[i+1] = res[i] + s.Volume()
	}
	return res
}

// Example returns the tensor for the i-th example.
func (b *Batch) Example(i int) anydiff.Res {
	offsets := b.Offsets()
	return anydiff.Slice(b.Data, offsets[i], offsets[i+1])
}

// Uniform reports whether every example has the same
// shape.
func (b *Batch) Uniform() bool {
	if len(b.Shapes) == 0 {
		return true
	}
	for _, s := range b.Shapes[1:] {
		if s != b.Shapes[0] {
			return false
		}
	}
	return true
}

// Check verifies that the data length agrees with the
// shapes.
func (b *Batch) Check() error {
	offsets := b.Offsets()
	if n := b.Data.Output().Len(); n != offsets[len(offsets)-1] {
		return fmt.Errorf("%w: batch data has length %d, shapes need %d",
			ErrShapeMismatch, n, offsets[len(offsets)-1])
	}
	return nil
}

// Join concatenates the examples of several batches.
func Join(batches ...*Batch) *Batch {
	var datas []anydiff.Res
	var shapes []Shape
	for _, b := range batches {
		datas = append(datas, b.Data)
		shapes = append(shapes, b.Shapes...)
	}
	return &Batch{Data: anydiff.Concat(datas...), Shapes: shapes}
}
