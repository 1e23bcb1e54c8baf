package anymdlstm

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyhwr"
	"github.com/unixpickle/anyhwr/anyio"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var n Network
	serializer.RegisterTypedDeserializer(n.SerializerType(), DeserializeNetwork)
}

// A Network maps images of text lines to per-column
// class log-probabilities.
type Network struct {
	Stages Pipeline
	Head   *Softmax

	// SkipRowCheck disables anyio.CheckBatchRows on the
	// output of Stages.
	SkipRowCheck bool
}

// DeserializeNetwork deserializes a Network.
func DeserializeNetwork(d []byte) (*Network, error) {
	var res Network
	var skip serializer.Int
	if err := serializer.DeserializeAny(d, &res.Stages, &res.Head, &skip); err != nil {
		return nil, essentials.AddCtx("deserialize Network", err)
	}
	res.SkipRowCheck = skip == 1
	return &res, nil
}

// NetworkConfig describes a network made of Pairs.
type NetworkConfig struct {
	InDepth int

	// Hidden, Out, and Blocks configure each Pair.
	// They must all have the same length.
	Hidden []int
	Out    []int
	Blocks []anyhwr.Size

	MultiDirectional bool

	// DropoutKeep enables dropout before the head when it
	// is between 0 and 1.
	DropoutKeep float64

	// Rows is passed to NewSoftmax.
	Rows int

	// Classes counts the output classes, including the
	// blank.
	Classes int
}

// NewNetwork creates a randomized network of Pairs
// followed by a Softmax head.
func NewNetwork(c anyvec.Creator, conf *NetworkConfig) *Network {
	var stages Pipeline
	depth := conf.InDepth
	for i, hidden := range conf.Hidden {
		pair := NewPair(c, depth, hidden, conf.Out[i], conf.Blocks[i], conf.MultiDirectional)
		stages = append(stages, pair)
		depth = pair.OutDepth(depth)
	}
	if conf.DropoutKeep > 0 && conf.DropoutKeep < 1 {
		stages = append(stages, &Dropout{KeepProb: conf.DropoutKeep})
	}
	return &Network{
		Stages: stages,
		Head:   NewSoftmax(c, conf.Rows, depth, conf.Classes),
	}
}

// Apply runs the network on a batch of images.
//
// The result has one timestep per output column, padded
// to the width implied by the widest image.
func (n *Network) Apply(b *anyhwr.Batch, m Mode) (*anyio.Padded, error) {
	features, err := n.Stages.Apply(b, m)
	if err != nil {
		return nil, fmt.Errorf("apply network: %w", err)
	}
	if !n.SkipRowCheck {
		if err := anyio.CheckBatchRows(features); err != nil {
			return nil, fmt.Errorf("apply network: %w", err)
		}
	}
	scores, err := n.Head.Apply(features)
	if err != nil {
		return nil, fmt.Errorf("apply network: %w", err)
	}
	widths := make([]int, b.Len())
	for i, s := range b.Shapes {
		widths[i] = s.Width
	}
	return anyio.Structure(scores, widths, n.Reduction().Width)
}

// Reduction returns the total reduction of the stages.
func (n *Network) Reduction() anyhwr.Size {
	return n.Stages.Reduction()
}

// Parameters returns the parameters of the stages and the
// head.
func (n *Network) Parameters() []*anydiff.Var {
	return append(n.Stages.Parameters(), n.Head.Parameters()...)
}

// SerializerType returns the unique ID used to serialize
// a Network with the serializer package.
func (n *Network) SerializerType() string {
	return "github.com/unixpickle/anyhwr/anymdlstm.Network"
}

// Serialize serializes the network.
func (n *Network) Serialize() ([]byte, error) {
	skip := serializer.Int(0)
	if n.SkipRowCheck {
		skip = 1
	}
	return serializer.SerializeAny(n.Stages, n.Head, skip)
}
