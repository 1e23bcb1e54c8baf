package anymdlstm

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyhwr"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var s Softmax
	serializer.RegisterTypedDeserializer(s.SerializerType(), DeserializeSoftmax)
}

// Softmax turns every column of a feature map into a
// log-probability distribution over character classes.
//
// If Rows is 0, the rows of each column are summed before
// the fully-connected layer, so inputs may have any
// height.
// Otherwise, every input must have exactly Rows rows,
// and the rows of each column are concatenated.
type Softmax struct {
	Rows  int
	Depth int
	FC    *anynet.FC
}

// DeserializeSoftmax deserializes a Softmax.
func DeserializeSoftmax(d []byte) (*Softmax, error) {
	var rows, depth serializer.Int
	var fc *anynet.FC
	if err := serializer.DeserializeAny(d, &rows, &depth, &fc); err != nil {
		return nil, essentials.AddCtx("deserialize Softmax", err)
	}
	return &Softmax{Rows: int(rows), Depth: int(depth), FC: fc}, nil
}

// NewSoftmax creates a randomized Softmax with the given
// number of classes, including the blank.
func NewSoftmax(c anyvec.Creator, rows, depth, classes int) *Softmax {
	features := depth
	if rows > 0 {
		features *= rows
	}
	return &Softmax{Rows: rows, Depth: depth, FC: anynet.NewFC(c, features, classes)}
}

// Classes returns the number of output classes.
func (s *Softmax) Classes() int {
	return s.FC.OutCount
}

// Apply produces a batch of single-row tensors whose
// depth is the number of classes.
func (s *Softmax) Apply(b *anyhwr.Batch) (*anyhwr.Batch, error) {
	var table []int
	var columns int
	offsets := b.Offsets()
	shapes := make([]anyhwr.Shape, b.Len())
	for i, shape := range b.Shapes {
		if shape.Depth != s.Depth {
			return nil, fmt.Errorf("%w: example %d has depth %d, expected %d",
				anyhwr.ErrShapeMismatch, i, shape.Depth, s.Depth)
		}
		if s.Rows > 0 && shape.Height != s.Rows {
			return nil, fmt.Errorf("%w: example %d has %d rows, expected %d",
				anyhwr.ErrShapeMismatch, i, shape.Height, s.Rows)
		}
		table = append(table, columnTable(shape, offsets[i])...)
		columns += shape.Width
		shapes[i] = anyhwr.Shape{
			Size:  anyhwr.Size{Height: 1, Width: shape.Width},
			Depth: s.Classes(),
		}
	}
	if err := b.Check(); err != nil {
		return nil, err
	}

	// Every column becomes a row of the features matrix,
	// consisting of the column's pixels from top to bottom.
	features := anyhwr.Reindex(b.Data, table, 0)
	if s.Rows == 0 {
		features = s.sumRows(features, b.Shapes)
	}
	out := s.FC.Apply(features, columns)
	return &anyhwr.Batch{
		Data:   anynet.LogSoftmax.Apply(out, columns),
		Shapes: shapes,
	}, nil
}

// Parameters returns the parameters of the FC layer.
func (s *Softmax) Parameters() []*anydiff.Var {
	return s.FC.Parameters()
}

// SerializerType returns the unique ID used to serialize
// a Softmax with the serializer package.
func (s *Softmax) SerializerType() string {
	return "github.com/unixpickle/anyhwr/anymdlstm.Softmax"
}

// Serialize serializes the layer.
func (s *Softmax) Serialize() ([]byte, error) {
	return serializer.SerializeAny(serializer.Int(s.Rows), serializer.Int(s.Depth), s.FC)
}

func (s *Softmax) sumRows(features anydiff.Res, shapes []anyhwr.Shape) anydiff.Res {
	var sums []anydiff.Res
	var offset int
	for _, shape := range shapes {
		size := shape.Volume()
		example := anydiff.Slice(features, offset, offset+size)
		offset += size

		// Rearrange each column so that rows are the
		// innermost dimension, then sum them.
		var table []int
		for x := 0; x < shape.Width; x++ {
			for z := 0; z < shape.Depth; z++ {
				for y := 0; y < shape.Height; y++ {
					table = append(table, (x*shape.Height+y)*shape.Depth+z)
				}
			}
		}
		sums = append(sums, anydiff.SumCols(&anydiff.Matrix{
			Data: anyhwr.Reindex(example, table, 0),
			Rows: shape.Width * shape.Depth,
			Cols: shape.Height,
		}))
	}
	return anydiff.Concat(sums...)
}

// columnTable lists the pixels of a tensor column by
// column, each column from top to bottom.
func columnTable(s anyhwr.Shape, offset int) []int {
	table := make([]int, 0, s.Volume())
	for x := 0; x < s.Width; x++ {
		for y := 0; y < s.Height; y++ {
			for z := 0; z < s.Depth; z++ {
				table = append(table, offset+(y*s.Width+x)*s.Depth+z)
			}
		}
	}
	return table
}
