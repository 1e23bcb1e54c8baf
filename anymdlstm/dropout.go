package anymdlstm

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyhwr"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var d Dropout
	serializer.RegisterTypedDeserializer(d.SerializerType(), DeserializeDropout)
}

// Dropout randomly zeros activations in Training mode.
// In Evaluation mode, it scales activations by KeepProb
// to produce the expected output.
type Dropout struct {
	KeepProb float64
}

// DeserializeDropout deserializes a Dropout.
func DeserializeDropout(d []byte) (*Dropout, error) {
	var keepProb serializer.Float64
	if err := serializer.DeserializeAny(d, &keepProb); err != nil {
		return nil, essentials.AddCtx("deserialize Dropout", err)
	}
	return &Dropout{KeepProb: float64(keepProb)}, nil
}

// Apply applies dropout according to the mode.
func (d *Dropout) Apply(b *anyhwr.Batch, m Mode) (*anyhwr.Batch, error) {
	c := b.Data.Output().Creator()
	var data anydiff.Res
	if m == Training {
		mask := c.MakeVector(b.Data.Output().Len())
		anyvec.Rand(mask, anyvec.Uniform, nil)
		anyvec.LessThan(mask, c.MakeNumeric(d.KeepProb))
		data = anydiff.Mul(b.Data, anydiff.NewConst(mask))
	} else {
		data = anydiff.Scale(b.Data, c.MakeNumeric(d.KeepProb))
	}
	return &anyhwr.Batch{Data: data, Shapes: b.Shapes}, nil
}

// OutDepth returns inDepth.
func (d *Dropout) OutDepth(inDepth int) int {
	return inDepth
}

// Reduction returns 1x1.
func (d *Dropout) Reduction() anyhwr.Size {
	return identityReduction
}

// SerializerType returns the unique ID used to serialize
// a Dropout with the serializer package.
func (d *Dropout) SerializerType() string {
	return "github.com/unixpickle/anyhwr/anymdlstm.Dropout"
}

// Serialize serializes the Dropout.
func (d *Dropout) Serialize() ([]byte, error) {
	return serializer.SerializeAny(serializer.Float64(d.KeepProb))
}
