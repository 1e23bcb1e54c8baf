// Package anychunk splits image tensors into
// non-overlapping blocks and reassembles them, so that a
// block-structured computation can run on one batch of
// equally-sized blocks.
package anychunk

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyhwr"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var c Chunking
	serializer.RegisterTypedDeserializer(c.SerializerType(), DeserializeChunking)
}

// Chunking splits tensors of a fixed shape into blocks.
//
// Blocks are emitted in row-major block order: every
// block of the first block row from left to right, then
// the second block row, and so on.
// Each block is itself a row-major depth-minor tensor.
//
// Chunking implements anynet.Layer.
type Chunking struct {
	Input anyhwr.Shape
	Block anyhwr.Size
}

// DeserializeChunking deserializes a Chunking.
func DeserializeChunking(d []byte) (*Chunking, error) {
	var h, w, depth, bh, bw serializer.Int
	if err := serializer.DeserializeAny(d, &h, &w, &depth, &bh, &bw); err != nil {
		return nil, essentials.AddCtx("deserialize Chunking", err)
	}
	return &Chunking{
		Input: anyhwr.Shape{
			Size:  anyhwr.Size{Height: int(h), Width: int(w)},
			Depth: int(depth),
		},
		Block: anyhwr.Size{Height: int(bh), Width: int(bw)},
	}, nil
}

// Check makes sure the input is block-aligned.
func (c *Chunking) Check() error {
	if c.Block.Height <= 0 || c.Block.Width <= 0 {
		return fmt.Errorf("%w: block size %v", anyhwr.ErrInvalidArgument, c.Block)
	}
	if !c.Input.Aligned(c.Block) {
		return fmt.Errorf("%w: input %v is not a multiple of block %v",
			anyhwr.ErrShapeMismatch, c.Input.Size, c.Block)
	}
	return nil
}

// BlocksPerExample returns the number of blocks produced
// for each input tensor.
func (c *Chunking) BlocksPerExample() int {
	return c.Input.Divide(c.Block).Area()
}

// BlockShape returns the shape of each block.
func (c *Chunking) BlockShape() anyhwr.Shape {
	return anyhwr.Shape{Size: c.Block, Depth: c.Input.Depth}
}

// Apply splits a batch of input tensors into blocks.
// The result packs batch*BlocksPerExample() blocks.
func (c *Chunking) Apply(in anydiff.Res, batch int) anydiff.Res {
	c.mustCheck(in, batch*c.Input.Volume())
	return anyhwr.Reindex(in, c.batchTable(batch), 0)
}

// Dechunk reassembles a batch of tensors from the blocks
// produced by Apply.
func (c *Chunking) Dechunk(in anydiff.Res, batch int) anydiff.Res {
	c.mustCheck(in, batch*c.Input.Volume())
	return anyhwr.Reindex(in, invertTable(c.batchTable(batch)), 0)
}

// SerializerType returns the unique ID used to serialize
// a Chunking with the serializer package.
func (c *Chunking) SerializerType() string {
	return "github.com/unixpickle/anyhwr/anychunk.Chunking"
}

// Serialize serializes the layer.
func (c *Chunking) Serialize() ([]byte, error) {
	return serializer.SerializeAny(
		serializer.Int(c.Input.Height),
		serializer.Int(c.Input.Width),
		serializer.Int(c.Input.Depth),
		serializer.Int(c.Block.Height),
		serializer.Int(c.Block.Width),
	)
}

func (c *Chunking) mustCheck(in anydiff.Res, size int) {
	if err := c.Check(); err != nil {
		panic(err)
	}
	if in.Output().Len() != size {
		panic(fmt.Sprintf("input length should be %d but got %d", size, in.Output().Len()))
	}
}

func (c *Chunking) batchTable(batch int) []int {
	single := chunkTable(c.Input, c.Input.Size, c.Block)
	table := make([]int, 0, len(single)*batch)
	for i := 0; i < batch; i++ {
		offset := i * c.Input.Volume()
		for _, x := range single {
			table = append(table, x+offset)
		}
	}
	return table
}

// chunkTable maps every component of the blocks of a
// tensor to its source index in the tensor.
// The padded size may exceed the tensor, in which case
// out-of-bounds components map to anyhwr.Fill.
func chunkTable(in anyhwr.Shape, padded, block anyhwr.Size) []int {
	grid := padded.Divide(block)
	table := make([]int, 0, padded.Area()*in.Depth)
	for blockRow := 0; blockRow < grid.Height; blockRow++ {
		for blockCol := 0; blockCol < grid.Width; blockCol++ {
			for y := 0; y < block.Height; y++ {
				row := blockRow*block.Height + y
				for x := 0; x < block.Width; x++ {
					col := blockCol*block.Width + x
					for z := 0; z < in.Depth; z++ {
						if row >= in.Height || col >= in.Width {
							table = append(table, anyhwr.Fill)
						} else {
							table = append(table, (row*in.Width+col)*in.Depth+z)
						}
					}
				}
			}
		}
	}
	return table
}

func invertTable(table []int) []int {
	res := make([]int, len(table))
	for i, x := range table {
		res[x] = i
	}
	return res
}
