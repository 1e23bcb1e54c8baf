package anymdlstm

import (
	"errors"
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyhwr"
	"github.com/unixpickle/anyhwr/anychunk"
	"github.com/unixpickle/anyhwr/anyskew"
	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var m MDLSTM
	serializer.RegisterTypedDeserializer(m.SerializerType(), DeserializeMDLSTM)
}

// Scan directions, in the order used by MDLSTM.Cells.
// Each direction is given as whether rows and columns are
// flipped before scanning.
var directions = [4][2]bool{
	{false, false},
	{false, true},
	{true, false},
	{true, true},
}

// MDLSTM is a multi-dimensional LSTM layer.
//
// Each cell scans the image from one corner, so that
// every output pixel depends on the whole quadrant of
// the image behind it.
// The outputs of all directions are concatenated along
// the depth dimension.
type MDLSTM struct {
	// Cells has one entry per scan direction.
	// With one cell, the scan starts at the top left.
	// With four, the scans start at the top left, top
	// right, bottom left, and bottom right.
	Cells []*Cell
}

// DeserializeMDLSTM deserializes an MDLSTM.
func DeserializeMDLSTM(d []byte) (*MDLSTM, error) {
	slice, err := serializer.DeserializeSlice(d)
	if err != nil {
		return nil, essentials.AddCtx("deserialize MDLSTM", err)
	}
	res := &MDLSTM{}
	for _, x := range slice {
		if cell, ok := x.(*Cell); ok {
			res.Cells = append(res.Cells, cell)
		} else {
			return nil, fmt.Errorf("deserialize MDLSTM: not a *Cell: %T", x)
		}
	}
	return res, nil
}

// NewMDLSTM creates a randomized MDLSTM.
// If multiDirectional is set, four directions are used.
func NewMDLSTM(c anyvec.Creator, in, hidden int, multiDirectional bool) *MDLSTM {
	n := 1
	if multiDirectional {
		n = len(directions)
	}
	res := &MDLSTM{}
	for i := 0; i < n; i++ {
		res.Cells = append(res.Cells, NewCell(c, in, hidden))
	}
	return res
}

// Apply applies the layer to every example.
//
// Examples of equal shapes are evaluated together, and
// the results are restored to the original order.
func (m *MDLSTM) Apply(b *anyhwr.Batch, mode Mode) (*anyhwr.Batch, error) {
	if err := m.check(b); err != nil {
		return nil, err
	}
	perm := anychunk.GroupByShape(b.Shapes)
	grouped := perm.Apply(b)
	groups := perm.Groups(func(i, j int) bool {
		return b.Shapes[i] == b.Shapes[j]
	})
	var outs []*anyhwr.Batch
	for _, sub := range anychunk.Split(grouped, groups) {
		outs = append(outs, m.applyUniform(sub))
	}
	return perm.Restore(anyhwr.Join(outs...)), nil
}

// OutDepth returns the number of output channels.
func (m *MDLSTM) OutDepth(inDepth int) int {
	return len(m.Cells) * m.Cells[0].Hidden
}

// Reduction returns 1x1.
func (m *MDLSTM) Reduction() anyhwr.Size {
	return identityReduction
}

// Parameters returns the parameters of every cell.
func (m *MDLSTM) Parameters() []*anydiff.Var {
	var res []*anydiff.Var
	for _, c := range m.Cells {
		res = append(res, c.Parameters()...)
	}
	return res
}

// SerializerType returns the unique ID used to serialize
// an MDLSTM with the serializer package.
func (m *MDLSTM) SerializerType() string {
	return "github.com/unixpickle/anyhwr/anymdlstm.MDLSTM"
}

// Serialize serializes the layer.
func (m *MDLSTM) Serialize() ([]byte, error) {
	var slice []serializer.Serializer
	for _, c := range m.Cells {
		slice = append(slice, c)
	}
	return serializer.SerializeSlice(slice)
}

func (m *MDLSTM) check(b *anyhwr.Batch) error {
	if len(m.Cells) != 1 && len(m.Cells) != len(directions) {
		return fmt.Errorf("%w: MDLSTM needs 1 or %d cells, got %d", anyhwr.ErrInvalidArgument,
			len(directions), len(m.Cells))
	}
	if b.Len() == 0 {
		return errors.New("empty batch")
	}
	for i, s := range b.Shapes {
		if s.Depth != m.Cells[0].InCount {
			return fmt.Errorf("%w: example %d has depth %d, expected %d",
				anyhwr.ErrShapeMismatch, i, s.Depth, m.Cells[0].InCount)
		}
	}
	return b.Check()
}

func (m *MDLSTM) applyUniform(b *anyhwr.Batch) *anyhwr.Batch {
	n := b.Len()
	shape := b.Shapes[0]
	flagged := anyhwr.Shape{Size: shape.Size, Depth: shape.Depth + 1}
	outShape := anyhwr.Shape{Size: shape.Size, Depth: m.Cells[0].Hidden}

	in := anyhwr.Reindex(b.Data, flagTable(n, shape), 1)
	var outs []anydiff.Res
	var depths []int
	for i, cell := range m.Cells {
		flipRows, flipCols := directions[i][0], directions[i][1]
		dirIn := anyskew.Flip(in, n, flagged, flipRows, flipCols)
		columns := anyrnn.Map(anyskew.SkewSeq(dirIn, n, flagged), cell.Block(shape.Height))
		out := anyskew.UnskewSeq(columns, n, shape.Size, cell.Hidden)
		outs = append(outs, anyskew.Flip(out, n, outShape, flipRows, flipCols))
		depths = append(depths, cell.Hidden)
	}

	var data anydiff.Res
	if len(outs) == 1 {
		data = outs[0]
	} else {
		data = anyhwr.ConcatColumns(n*shape.Area(), depths, outs...)
	}
	shapes := make([]anyhwr.Shape, n)
	for i := range shapes {
		shapes[i] = anyhwr.Shape{Size: shape.Size, Depth: m.OutDepth(shape.Depth)}
	}
	return &anyhwr.Batch{Data: data, Shapes: shapes}
}

// flagTable appends a constant channel to every pixel.
func flagTable(n int, s anyhwr.Shape) []int {
	table := make([]int, 0, n*s.Area()*(s.Depth+1))
	for p := 0; p < n*s.Area(); p++ {
		for z := 0; z < s.Depth; z++ {
			table = append(table, p*s.Depth+z)
		}
		table = append(table, anyhwr.Fill)
	}
	return table
}
