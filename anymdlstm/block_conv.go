package anymdlstm

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyhwr"
	"github.com/unixpickle/anyhwr/anychunk"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anyconv"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var b BlockConv
	serializer.RegisterTypedDeserializer(b.SerializerType(), DeserializeBlockConv)
}

// BlockConv is a block-strided convolution.
//
// Each input is padded to a multiple of the block size,
// then every non-overlapping block is mapped to a single
// output vector.
// An input of size HxW thus produces an output of size
// ceil(H/bh) x ceil(W/bw).
type BlockConv struct {
	// Conv has a filter and stride equal to the block
	// size, and takes exactly one block as input.
	Conv *anyconv.Conv

	// Activation is applied to the outputs of Conv.
	Activation anynet.Activation
}

// DeserializeBlockConv deserializes a BlockConv.
func DeserializeBlockConv(d []byte) (*BlockConv, error) {
	var conv *anyconv.Conv
	var act anynet.Activation
	if err := serializer.DeserializeAny(d, &conv, &act); err != nil {
		return nil, essentials.AddCtx("deserialize BlockConv", err)
	}
	return &BlockConv{Conv: conv, Activation: act}, nil
}

// NewBlockConv creates a randomized BlockConv with a tanh
// activation.
func NewBlockConv(c anyvec.Creator, block anyhwr.Size, in, out int) *BlockConv {
	conv := &anyconv.Conv{
		FilterCount:  out,
		FilterWidth:  block.Width,
		FilterHeight: block.Height,
		StrideX:      block.Width,
		StrideY:      block.Height,
		InputWidth:   block.Width,
		InputHeight:  block.Height,
		InputDepth:   in,
	}
	conv.InitRand(c)
	return &BlockConv{Conv: conv, Activation: anynet.Tanh}
}

// Block returns the block size.
func (b *BlockConv) Block() anyhwr.Size {
	return anyhwr.Size{Height: b.Conv.FilterHeight, Width: b.Conv.FilterWidth}
}

// Apply applies the convolution to every example.
func (b *BlockConv) Apply(in *anyhwr.Batch, m Mode) (*anyhwr.Batch, error) {
	for i, s := range in.Shapes {
		if s.Depth != b.Conv.InputDepth {
			return nil, fmt.Errorf("%w: example %d has depth %d, expected %d",
				anyhwr.ErrShapeMismatch, i, s.Depth, b.Conv.InputDepth)
		}
	}
	chunker := &anychunk.ListChunking{Block: b.Block()}
	blocks, desc, err := chunker.Chunk(in)
	if err != nil {
		return nil, fmt.Errorf("block conv: %w", err)
	}
	out := b.Activation.Apply(b.Conv.Apply(blocks, desc.TotalBlocks()), desc.TotalBlocks())
	outBlock := anyhwr.Shape{
		Size:  anyhwr.Size{Height: 1, Width: 1},
		Depth: b.Conv.FilterCount,
	}
	res, err := chunker.Dechunk(out, desc, outBlock)
	if err != nil {
		return nil, fmt.Errorf("block conv: %w", err)
	}
	return res, nil
}

// OutDepth returns the number of filters.
func (b *BlockConv) OutDepth(inDepth int) int {
	return b.Conv.FilterCount
}

// Reduction returns the block size.
func (b *BlockConv) Reduction() anyhwr.Size {
	return b.Block()
}

// Parameters returns the convolution's parameters.
func (b *BlockConv) Parameters() []*anydiff.Var {
	return b.Conv.Parameters()
}

// SerializerType returns the unique ID used to serialize
// a BlockConv with the serializer package.
func (b *BlockConv) SerializerType() string {
	return "github.com/unixpickle/anyhwr/anymdlstm.BlockConv"
}

// Serialize serializes the layer.
func (b *BlockConv) Serialize() ([]byte, error) {
	return serializer.SerializeAny(b.Conv, b.Activation)
}
