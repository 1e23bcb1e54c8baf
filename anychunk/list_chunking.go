package anychunk

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyhwr"
)

// ListChunking chunks batches of differently sized
// tensors into one batch of equally sized blocks.
//
// Each example is padded at the bottom and on the right
// up to a multiple of the block size before it is split.
type ListChunking struct {
	Block anyhwr.Size

	// PadValue fills the padded region.
	PadValue float64
}

// A Descriptor records what ListChunking.Chunk did to
// each example so that Dechunk can undo it.
type Descriptor struct {
	Block    anyhwr.Size
	Depth    int
	Examples []ExampleBlocks
}

// ExampleBlocks describes the blocks of one example.
type ExampleBlocks struct {
	Original anyhwr.Size
	Padded   anyhwr.Size
	Blocks   int
}

// Grid returns the number of block rows and columns.
func (e ExampleBlocks) Grid(block anyhwr.Size) anyhwr.Size {
	return e.Padded.Divide(block)
}

// TotalBlocks sums the block counts of all examples.
func (d *Descriptor) TotalBlocks() int {
	var res int
	for _, e := range d.Examples {
		res += e.Blocks
	}
	return res
}

// BlockCounts returns the number of blocks contributed by
// each example.
func (d *Descriptor) BlockCounts() []int {
	res := make([]int, len(d.Examples))
	for i, e := range d.Examples {
		res[i] = e.Blocks
	}
	return res
}

// OutputSizes computes the size of each example after the
// blocks were transformed into blocks of size outBlock.
func (d *Descriptor) OutputSizes(outBlock anyhwr.Size) []anyhwr.Size {
	res := make([]anyhwr.Size, len(d.Examples))
	for i, e := range d.Examples {
		res[i] = e.Grid(d.Block).Scale(outBlock)
	}
	return res
}

// Describe computes the Descriptor for chunking tensors
// of the given shapes.
// All shapes must have the same depth.
func (l *ListChunking) Describe(shapes []anyhwr.Shape) (*Descriptor, error) {
	if l.Block.Height <= 0 || l.Block.Width <= 0 {
		return nil, fmt.Errorf("%w: block size %v", anyhwr.ErrInvalidArgument, l.Block)
	}
	d := &Descriptor{Block: l.Block}
	for i, s := range shapes {
		if i == 0 {
			d.Depth = s.Depth
		} else if s.Depth != d.Depth {
			return nil, fmt.Errorf("%w: example %d has depth %d, expected %d",
				anyhwr.ErrShapeMismatch, i, s.Depth, d.Depth)
		}
		padded := s.RoundUp(l.Block)
		d.Examples = append(d.Examples, ExampleBlocks{
			Original: s.Size,
			Padded:   padded,
			Blocks:   padded.Divide(l.Block).Area(),
		})
	}
	return d, nil
}

// Chunk pads and splits every example of the batch,
// concatenating the blocks of all examples in order.
//
// The result packs d.TotalBlocks() blocks, each of shape
// Block by the examples' depth.
func (l *ListChunking) Chunk(b *anyhwr.Batch) (anydiff.Res, *Descriptor, error) {
	if err := b.Check(); err != nil {
		return nil, nil, err
	}
	d, err := l.Describe(b.Shapes)
	if err != nil {
		return nil, nil, err
	}
	var table []int
	offsets := b.Offsets()
	for i, e := range d.Examples {
		shape := b.Shapes[i]
		for _, x := range chunkTable(shape, e.Padded, l.Block) {
			if x != anyhwr.Fill {
				x += offsets[i]
			}
			table = append(table, x)
		}
	}
	return anyhwr.Reindex(b.Data, table, l.PadValue), d, nil
}

// Dechunk reassembles per-example tensors from a batch of
// blocks laid out like the output of Chunk.
//
// The blocks may have been transformed since chunking, so
// that every block now has shape outBlock.
// Example i is reassembled to the size
// d.OutputSizes(outBlock.Size)[i], without removing the
// padding introduced by Chunk.
func (l *ListChunking) Dechunk(blocks anydiff.Res, d *Descriptor,
	outBlock anyhwr.Shape) (*anyhwr.Batch, error) {
	if n := blocks.Output().Len(); n != d.TotalBlocks()*outBlock.Volume() {
		return nil, fmt.Errorf("%w: %d values for %d blocks of %v (depth %d)",
			anyhwr.ErrShapeMismatch, n, d.TotalBlocks(), outBlock.Size, outBlock.Depth)
	}
	var table []int
	var shapes []anyhwr.Shape
	var blockBase int
	for _, e := range d.Examples {
		grid := e.Grid(d.Block)
		outSize := grid.Scale(outBlock.Size)
		for y := 0; y < outSize.Height; y++ {
			for x := 0; x < outSize.Width; x++ {
				blockIdx := blockBase + (y/outBlock.Height)*grid.Width + x/outBlock.Width
				inner := (y%outBlock.Height)*outBlock.Width + x%outBlock.Width
				start := blockIdx*outBlock.Volume() + inner*outBlock.Depth
				for z := 0; z < outBlock.Depth; z++ {
					table = append(table, start+z)
				}
			}
		}
		shapes = append(shapes, anyhwr.Shape{Size: outSize, Depth: outBlock.Depth})
		blockBase += e.Blocks
	}
	return &anyhwr.Batch{
		Data:   anyhwr.Reindex(blocks, table, 0),
		Shapes: shapes,
	}, nil
}

// Crop removes the padding that Chunk added from a
// dechunked batch.
//
// Each example of b may be a scaled version of the padded
// example, e.g. after a block-strided computation.
// The original size is scaled the same way and rounded
// up.
func (d *Descriptor) Crop(b *anyhwr.Batch) (*anyhwr.Batch, error) {
	if len(b.Shapes) != len(d.Examples) {
		return nil, fmt.Errorf("%w: %d examples but descriptor has %d",
			anyhwr.ErrShapeMismatch, len(b.Shapes), len(d.Examples))
	}
	var table []int
	var shapes []anyhwr.Shape
	offsets := b.Offsets()
	for i, e := range d.Examples {
		shape := b.Shapes[i]
		cropped := anyhwr.Size{
			Height: ceilDiv(e.Original.Height*shape.Height, e.Padded.Height),
			Width:  ceilDiv(e.Original.Width*shape.Width, e.Padded.Width),
		}
		for y := 0; y < cropped.Height; y++ {
			for x := 0; x < cropped.Width; x++ {
				start := offsets[i] + (y*shape.Width+x)*shape.Depth
				for z := 0; z < shape.Depth; z++ {
					table = append(table, start+z)
				}
			}
		}
		shapes = append(shapes, anyhwr.Shape{Size: cropped, Depth: shape.Depth})
	}
	return &anyhwr.Batch{
		Data:   anyhwr.Reindex(b.Data, table, 0),
		Shapes: shapes,
	}, nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
