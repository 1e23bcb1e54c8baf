// Package anyio connects the per-example activations of
// a network to the loss function.
//
// It slices examples out of a concatenated activation
// batch, sanity checks them, and pads them to a common
// width so they can be consumed as a batch of sequences.
package anyio

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyhwr"
	"github.com/unixpickle/anyvec"
)

// ExtractExamples slices every example out of a vector
// which packs the examples in order.
func ExtractExamples(acts anydiff.Res, shapes []anyhwr.Shape) ([]anydiff.Res, error) {
	b := &anyhwr.Batch{Data: acts, Shapes: shapes}
	if err := b.Check(); err != nil {
		return nil, err
	}
	res := make([]anydiff.Res, len(shapes))
	for i := range shapes {
		res[i] = b.Example(i)
	}
	return res, nil
}

// CheckDistinctRows fails with anyhwr.ErrConsistency if
// a tensor with at least two rows has only identical rows.
//
// Identical rows usually mean that examples were sliced
// out of a batch in the wrong order.
func CheckDistinctRows(example anyvec.Vector, s anyhwr.Shape) error {
	if example.Len() != s.Volume() {
		return fmt.Errorf("%w: tensor has length %d, expected %d", anyhwr.ErrShapeMismatch,
			example.Len(), s.Volume())
	}
	if s.Height < 2 {
		return nil
	}
	values := floats(example)
	rowSize := s.Width * s.Depth
	first := values[:rowSize]
	for y := 1; y < s.Height; y++ {
		row := values[y*rowSize : (y+1)*rowSize]
		for i, x := range row {
			if x != first[i] {
				return nil
			}
		}
	}
	return fmt.Errorf("%w: all %d rows are identical", anyhwr.ErrConsistency, s.Height)
}

// CheckBatchRows runs CheckDistinctRows on every example.
func CheckBatchRows(b *anyhwr.Batch) error {
	if err := b.Check(); err != nil {
		return err
	}
	for i, s := range b.Shapes {
		if err := CheckDistinctRows(b.Example(i).Output(), s); err != nil {
			return fmt.Errorf("example %d: %w", i, err)
		}
	}
	return nil
}

// TargetWidth computes the number of output columns a
// network with the given width reduction produces for
// an input of width inputWidth.
func TargetWidth(inputWidth, reduction int) int {
	return (inputWidth + reduction - 1) / reduction
}

// CheckOutputWidth makes sure that a network produced the
// expected number of columns.
func CheckOutputWidth(inputWidth, reduction, actual int) error {
	if expected := TargetWidth(inputWidth, reduction); expected != actual {
		return fmt.Errorf("%w: input width %d with reduction %d should give %d columns, got %d",
			anyhwr.ErrShapeMismatch, inputWidth, reduction, expected, actual)
	}
	return nil
}

// Padded is a batch of single-row tensors padded on the
// right to a common width.
type Padded struct {
	// Data packs len(Widths) tensors of Width*Depth
	// components each.
	Data anydiff.Res

	// Widths stores the unpadded width of every example.
	Widths []int

	Width int
	Depth int
}

// PadToWidth pads single-row examples with zeros to the
// target width and stacks them.
func PadToWidth(examples []anydiff.Res, widths []int, target, depth int) (*Padded, error) {
	if len(examples) != len(widths) {
		return nil, fmt.Errorf("%w: %d examples but %d widths", anyhwr.ErrShapeMismatch,
			len(examples), len(widths))
	}
	if len(examples) == 0 {
		return nil, fmt.Errorf("%w: empty batch", anyhwr.ErrInvalidArgument)
	}
	var offset int
	var table []int
	for i, ex := range examples {
		if widths[i] > target {
			return nil, fmt.Errorf("%w: example %d has width %d, exceeding %d",
				anyhwr.ErrShapeMismatch, i, widths[i], target)
		}
		if ex.Output().Len() != widths[i]*depth {
			return nil, fmt.Errorf("%w: example %d has length %d, expected %d",
				anyhwr.ErrShapeMismatch, i, ex.Output().Len(), widths[i]*depth)
		}
		for j := 0; j < target*depth; j++ {
			if j < widths[i]*depth {
				table = append(table, offset+j)
			} else {
				table = append(table, anyhwr.Fill)
			}
		}
		offset += ex.Output().Len()
	}
	return &Padded{
		Data:   anyhwr.Reindex(anydiff.Concat(examples...), table, 0),
		Widths: append([]int{}, widths...),
		Width:  target,
		Depth:  depth,
	}, nil
}

// Structure slices single-row examples out of a batch and
// pads them to the width implied by the widest input.
//
// Every example must have exactly one row, and its width
// must match TargetWidth for its input width.
func Structure(b *anyhwr.Batch, inputWidths []int, reduction int) (*Padded, error) {
	if len(inputWidths) != b.Len() {
		return nil, fmt.Errorf("%w: %d input widths for %d examples", anyhwr.ErrShapeMismatch,
			len(inputWidths), b.Len())
	}
	examples, err := ExtractExamples(b.Data, b.Shapes)
	if err != nil {
		return nil, err
	}
	var maxWidth int
	widths := make([]int, b.Len())
	for i, s := range b.Shapes {
		if s.Height != 1 {
			return nil, fmt.Errorf("%w: example %d has %d rows", anyhwr.ErrShapeMismatch,
				i, s.Height)
		}
		if s.Depth != b.Shapes[0].Depth {
			return nil, fmt.Errorf("%w: example %d has depth %d", anyhwr.ErrShapeMismatch,
				i, s.Depth)
		}
		if err := CheckOutputWidth(inputWidths[i], reduction, s.Width); err != nil {
			return nil, fmt.Errorf("example %d: %w", i, err)
		}
		widths[i] = s.Width
		if inputWidths[i] > maxWidth {
			maxWidth = inputWidths[i]
		}
	}
	return PadToWidth(examples, widths, TargetWidth(maxWidth, reduction), b.Shapes[0].Depth)
}

// Seq converts the padded batch into a sequence batch
// with one timestep per column.
// Padding columns are marked absent.
func (p *Padded) Seq() anyseq.Seq {
	present := make([][]bool, p.Width)
	var table []int
	for t := range present {
		present[t] = make([]bool, len(p.Widths))
		for i, w := range p.Widths {
			if t < w {
				present[t][i] = true
				start := (i*p.Width + t) * p.Depth
				for z := 0; z < p.Depth; z++ {
					table = append(table, start+z)
				}
			}
		}
	}
	flat := anyhwr.Reindex(p.Data, table, 0)
	return anyhwr.SeqFromFlat(flat, p.Depth, present)
}

func floats(v anyvec.Vector) []float64 {
	switch data := v.Data().(type) {
	case []float64:
		return data
	case []float32:
		res := make([]float64, len(data))
		for i, x := range data {
			res[i] = float64(x)
		}
		return res
	default:
		panic(fmt.Sprintf("unsupported numeric type: %T", data))
	}
}
