package anymdlstm

import (
	"fmt"
	"io"
	"os"

	"github.com/unixpickle/anyhwr"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	serializer.RegisterTypedDeserializer((&Debug{}).SerializerType(), DeserializeDebug)
}

// Debug prints the shapes of the examples in each batch
// and, optionally, per-channel statistics.
// It does not change the batch.
type Debug struct {
	// Writer to which information is printed.
	// If nil, os.Stdout is used.
	Writer io.Writer

	ID            string
	PrintMean     bool
	PrintVariance bool
}

// DeserializeDebug deserializes a Debug stage.
// The Writer will be nil.
func DeserializeDebug(d []byte) (*Debug, error) {
	var res Debug
	err := serializer.DeserializeAny(d, &res.ID, &res.PrintMean, &res.PrintVariance)
	if err != nil {
		return nil, essentials.AddCtx("deserialize Debug", err)
	}
	return &res, nil
}

// Apply prints information about the batch.
func (d *Debug) Apply(b *anyhwr.Batch, m Mode) (*anyhwr.Batch, error) {
	w := d.Writer
	if w == nil {
		w = os.Stdout
	}
	fmt.Fprintf(w, "Debug (%s): %s batch of %d:", d.ID, m, b.Len())
	for _, s := range b.Shapes {
		fmt.Fprintf(w, " %vx%d", s.Size, s.Depth)
	}
	fmt.Fprintln(w)
	if (d.PrintMean || d.PrintVariance) && b.Len() > 0 && sameDepth(b.Shapes) {
		stats := &anynet.Debug{
			Writer:        w,
			ID:            d.ID,
			PrintMean:     d.PrintMean,
			PrintVariance: d.PrintVariance,
		}
		var pixels int
		for _, s := range b.Shapes {
			pixels += s.Area()
		}
		stats.Apply(b.Data, pixels)
	}
	return b, nil
}

// OutDepth returns inDepth.
func (d *Debug) OutDepth(inDepth int) int {
	return inDepth
}

// Reduction returns 1x1.
func (d *Debug) Reduction() anyhwr.Size {
	return identityReduction
}

// SerializerType returns the unique ID used to serialize
// a Debug stage with the serializer package.
func (d *Debug) SerializerType() string {
	return "github.com/unixpickle/anyhwr/anymdlstm.Debug"
}

// Serialize serializes the stage.
func (d *Debug) Serialize() ([]byte, error) {
	return serializer.SerializeAny(d.ID, d.PrintMean, d.PrintVariance)
}

func sameDepth(shapes []anyhwr.Shape) bool {
	for _, s := range shapes {
		if s.Depth != shapes[0].Depth {
			return false
		}
	}
	return true
}
