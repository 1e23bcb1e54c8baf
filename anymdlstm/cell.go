package anymdlstm

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyhwr"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

const forgetBias = 1

func init() {
	var c Cell
	serializer.RegisterTypedDeserializer(c.SerializerType(), DeserializeCell)
}

// A Cell is a two-dimensional LSTM cell.
//
// Each pixel sees the input at that pixel, plus the
// output and memory of the pixel to its left and the
// pixel above it.
// There is a separate forget gate for each neighbor.
type Cell struct {
	InCount int
	Hidden  int

	// Gates maps an input and two neighboring outputs to
	// the pre-activations for the input value, input gate,
	// left forget gate, top forget gate, and output gate.
	Gates *anynet.FC
}

// DeserializeCell deserializes a Cell.
func DeserializeCell(d []byte) (*Cell, error) {
	var in, hidden serializer.Int
	var gates *anynet.FC
	if err := serializer.DeserializeAny(d, &in, &hidden, &gates); err != nil {
		return nil, essentials.AddCtx("deserialize Cell", err)
	}
	return &Cell{InCount: int(in), Hidden: int(hidden), Gates: gates}, nil
}

// NewCell creates a randomized Cell.
// The forget gates are biased towards remembering.
func NewCell(c anyvec.Creator, in, hidden int) *Cell {
	gates := anynet.NewFC(c, in+2*hidden, 5*hidden)
	bias := make([]float64, 5*hidden)
	for i := 2 * hidden; i < 4*hidden; i++ {
		bias[i] = forgetBias
	}
	gates.Biases.Vector.Add(c.MakeVectorData(c.MakeNumericList(bias)))
	return &Cell{InCount: in, Hidden: hidden, Gates: gates}
}

// Block creates an anyrnn.Block which scans the columns
// of skewed images of the given height.
//
// Each input row has InCount+1 components.
// The last component is 1 for pixels inside the image and
// 0 for the padding introduced by skewing; padding pixels
// produce zero states and outputs.
//
// The block's state packs the output and memory of every
// row, and the output is the cell output of every row.
func (c *Cell) Block(height int) anyrnn.Block {
	creator := c.Gates.Weights.Vector.Creator()
	return &anyrnn.FuncBlock{
		Func: func(in, state anydiff.Res, rows int) (anydiff.Res, anydiff.Res) {
			newState := c.step(in, state, rows, height)
			return anyhwr.SliceColumns(newState, 2*c.Hidden, 0, c.Hidden), newState
		},
		MakeStart: func(n int) anydiff.Res {
			return anydiff.NewConst(creator.MakeVector(n * 2 * c.Hidden))
		},
	}
}

// Parameters returns the parameters of the cell.
func (c *Cell) Parameters() []*anydiff.Var {
	return c.Gates.Parameters()
}

// SerializerType returns the unique ID used to serialize
// a Cell with the serializer package.
func (c *Cell) SerializerType() string {
	return "github.com/unixpickle/anyhwr/anymdlstm.Cell"
}

// Serialize serializes the cell.
func (c *Cell) Serialize() ([]byte, error) {
	return serializer.SerializeAny(
		serializer.Int(c.InCount),
		serializer.Int(c.Hidden),
		c.Gates,
	)
}

func (c *Cell) step(in, state anydiff.Res, rows, height int) anydiff.Res {
	h := c.Hidden
	inCols := c.InCount + 1

	x := anyhwr.SliceColumns(in, inCols, 0, c.InCount)
	mask := anyhwr.Reindex(in, c.maskTable(rows), 0)

	top := anyhwr.Reindex(state, c.shiftTable(rows, height), 0)
	leftOut := anyhwr.SliceColumns(state, 2*h, 0, h)
	leftMem := anyhwr.SliceColumns(state, 2*h, h, 2*h)
	topOut := anyhwr.SliceColumns(top, 2*h, 0, h)
	topMem := anyhwr.SliceColumns(top, 2*h, h, 2*h)

	joined := anyhwr.ConcatColumns(rows, []int{c.InCount, h, h}, x, leftOut, topOut)
	return anydiff.Pool(c.Gates.Apply(joined, rows), func(pre anydiff.Res) anydiff.Res {
		gate := func(i int, f func(anydiff.Res) anydiff.Res) anydiff.Res {
			return f(anyhwr.SliceColumns(pre, 5*h, i*h, (i+1)*h))
		}
		value := gate(0, anydiff.Tanh)
		inGate := gate(1, anydiff.Sigmoid)
		leftForget := gate(2, anydiff.Sigmoid)
		topForget := gate(3, anydiff.Sigmoid)
		outGate := gate(4, anydiff.Sigmoid)

		mem := anydiff.Add(
			anydiff.Mul(inGate, value),
			anydiff.Add(anydiff.Mul(leftForget, leftMem), anydiff.Mul(topForget, topMem)),
		)
		mem = anydiff.Mul(mem, mask)
		return anydiff.Pool(mem, func(mem anydiff.Res) anydiff.Res {
			out := anydiff.Mul(outGate, anydiff.Tanh(mem))
			return anyhwr.ConcatColumns(rows, []int{h, h}, out, mem)
		})
	})
}

// maskTable repeats each row's validity flag Hidden
// times.
func (c *Cell) maskTable(rows int) []int {
	table := make([]int, 0, rows*c.Hidden)
	for r := 0; r < rows; r++ {
		for i := 0; i < c.Hidden; i++ {
			table = append(table, r*(c.InCount+1)+c.InCount)
		}
	}
	return table
}

// shiftTable moves every state down by one row within
// each image, so that each row sees the state of the row
// above it.
// The first row of each image sees a zero state.
func (c *Cell) shiftTable(rows, height int) []int {
	stateSize := 2 * c.Hidden
	table := make([]int, 0, rows*stateSize)
	for r := 0; r < rows; r++ {
		for i := 0; i < stateSize; i++ {
			if r%height == 0 {
				table = append(table, anyhwr.Fill)
			} else {
				table = append(table, (r-1)*stateSize+i)
			}
		}
	}
	return table
}
