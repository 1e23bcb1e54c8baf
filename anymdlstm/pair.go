package anymdlstm

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyhwr"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var p Pair
	serializer.RegisterTypedDeserializer(p.SerializerType(), DeserializePair)
}

// A Pair is an MDLSTM layer followed by a block-strided
// convolution, the building block of a recognition
// network.
type Pair struct {
	MDLSTM *MDLSTM
	Conv   *BlockConv
}

// DeserializePair deserializes a Pair.
func DeserializePair(d []byte) (*Pair, error) {
	var res Pair
	if err := serializer.DeserializeAny(d, &res.MDLSTM, &res.Conv); err != nil {
		return nil, essentials.AddCtx("deserialize Pair", err)
	}
	return &res, nil
}

// NewPair creates a randomized Pair.
func NewPair(c anyvec.Creator, in, hidden, out int, block anyhwr.Size,
	multiDirectional bool) *Pair {
	mdlstm := NewMDLSTM(c, in, hidden, multiDirectional)
	return &Pair{
		MDLSTM: mdlstm,
		Conv:   NewBlockConv(c, block, mdlstm.OutDepth(in), out),
	}
}

// Apply applies the MDLSTM and then the convolution.
func (p *Pair) Apply(b *anyhwr.Batch, m Mode) (*anyhwr.Batch, error) {
	return Pipeline{p.MDLSTM, p.Conv}.Apply(b, m)
}

// OutDepth returns the convolution's output depth.
func (p *Pair) OutDepth(inDepth int) int {
	return p.Conv.OutDepth(p.MDLSTM.OutDepth(inDepth))
}

// Reduction returns the block size of the convolution.
func (p *Pair) Reduction() anyhwr.Size {
	return p.Conv.Reduction()
}

// Parameters returns the parameters of both layers.
func (p *Pair) Parameters() []*anydiff.Var {
	return append(p.MDLSTM.Parameters(), p.Conv.Parameters()...)
}

// SerializerType returns the unique ID used to serialize
// a Pair with the serializer package.
func (p *Pair) SerializerType() string {
	return "github.com/unixpickle/anyhwr/anymdlstm.Pair"
}

// Serialize serializes the pair.
func (p *Pair) Serialize() ([]byte, error) {
	return serializer.SerializeAny(p.MDLSTM, p.Conv)
}
