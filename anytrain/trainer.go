package anytrain

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyhwr"
	"github.com/unixpickle/anyhwr/anyio"
	"github.com/unixpickle/anyhwr/anymdlstm"
	"github.com/unixpickle/anynet/anyctc"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

// A Batch stores images and their labels.
type Batch struct {
	Images *anyhwr.Batch

	// Labels are padded with anyio.LabelPadding to the
	// longest label in the batch.
	Labels  [][]int
	Lengths []int
}

// Unpadded returns the labels without their padding.
func (b *Batch) Unpadded() [][]int {
	res := make([][]int, len(b.Labels))
	for i, l := range b.Labels {
		res[i] = l[:b.Lengths[i]]
	}
	return res
}

// A Trainer creates batches, computes gradients, and adds
// up CTC costs for a Network.
type Trainer struct {
	Network *anymdlstm.Network
	Params  []*anydiff.Var

	// Average indicates whether or not the total cost should
	// be averaged before computing gradients.
	Average bool

	// After every gradient computation, LastCost is set to
	// the cost from the batch.
	LastCost anyvec.Numeric

	// InfCosts counts the samples whose cost was infinite.
	// Such samples are left out of the total cost.
	InfCosts int

	// MaxGos specifies the maximum goroutines to use
	// simultaneously for fetching samples.
	// If it is 0, GOMAXPROCS is used.
	MaxGos int
}

// Fetch produces a *Batch for the subset of samples.
// The s argument must implement SampleList.
// The batch may not be empty.
func (t *Trainer) Fetch(s anysgd.SampleList) (anysgd.Batch, error) {
	return FetchBatch(s.(SampleList), t.MaxGos)
}

// FetchBatch loads the samples of l into a Batch using up
// to maxGos goroutines.
// If maxGos is 0, GOMAXPROCS is used.
func FetchBatch(l SampleList, maxGos int) (*Batch, error) {
	if l.Len() == 0 {
		return nil, errors.New("fetch batch: empty batch")
	}

	images := make([]anyvec.Vector, l.Len())
	shapes := make([]anyhwr.Shape, l.Len())
	labels := make([][]int, l.Len())

	idxChan := make(chan int, l.Len())
	for i := 0; i < l.Len(); i++ {
		idxChan <- i
	}
	close(idxChan)

	if maxGos == 0 {
		maxGos = runtime.GOMAXPROCS(0)
	}

	wg := sync.WaitGroup{}
	errChan := make(chan error, maxGos)
	for i := 0; i < maxGos; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idxChan {
				sample, err := l.GetSample(i)
				if err != nil {
					errChan <- essentials.AddCtx("fetch batch", err)
					return
				}
				images[i] = sample.Image
				shapes[i] = sample.Shape
				labels[i] = sample.Label
			}
		}()
	}

	wg.Wait()
	close(errChan)

	if err := <-errChan; err != nil {
		return nil, err
	}

	batch, err := anyhwr.NewBatch(l.Creator(), images, shapes)
	if err != nil {
		return nil, fmt.Errorf("fetch batch: %w", err)
	}
	padded, lengths := anyio.PadLabels(labels)
	return &Batch{Images: batch, Labels: padded, Lengths: lengths}, nil
}

// Costs computes the CTC cost of every sample in the
// batch, in Training mode.
func (t *Trainer) Costs(b *Batch) (anydiff.Res, error) {
	out, err := t.Network.Apply(b.Images, anymdlstm.Training)
	if err != nil {
		return nil, err
	}
	labels := make([][]int, len(b.Labels))
	for i, l := range b.Unpadded() {
		labels[i], err = anyio.ToCTCLabels(l)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
	}
	return anyctc.Cost(out.Seq(), labels), nil
}

// TotalCost computes the total cost for the *Batch.
//
// Infinite costs, which arise when a label is too long
// for its image, are dropped and counted in t.InfCosts.
// With t.Average, the total is divided by the number of
// finite costs.
func (t *Trainer) TotalCost(batch anysgd.Batch) anydiff.Res {
	costs, err := t.Costs(batch.(*Batch))
	if err != nil {
		panic(err)
	}
	var table []int
	var finite int
	for i, x := range floats(costs.Output()) {
		if math.IsInf(x, 0) || math.IsNaN(x) {
			t.InfCosts++
			table = append(table, anyhwr.Fill)
		} else {
			table = append(table, i)
			finite++
		}
	}
	total := anydiff.Sum(anyhwr.Reindex(costs, table, 0))
	if t.Average && finite > 0 {
		divisor := 1 / float64(finite)
		return anydiff.Scale(total, total.Output().Creator().MakeNumeric(divisor))
	}
	return total
}

// Gradient computes the gradient for the batch's cost.
// It also sets t.LastCost to the numerical value of the
// total cost.
//
// The b argument must be a *Batch.
func (t *Trainer) Gradient(b anysgd.Batch) anydiff.Grad {
	res := anydiff.NewGrad(t.Params...)

	cost := t.TotalCost(b)
	t.LastCost = anyvec.Sum(cost.Output())

	c := cost.Output().Creator()
	data := c.MakeNumericList([]float64{1})
	upstream := c.MakeVectorData(data)
	cost.Propagate(upstream, res)

	return res
}

// ClipGrad scales down g if its norm exceeds maxNorm.
// It reports whether or not g was scaled.
func ClipGrad(g anydiff.Grad, maxNorm float64) bool {
	var sqNorm float64
	var c anyvec.Creator
	for _, v := range g {
		sqNorm += numericFloat(v.Dot(v))
		c = v.Creator()
	}
	norm := math.Sqrt(sqNorm)
	if c == nil || norm <= maxNorm {
		return false
	}
	g.Scale(c.MakeNumeric(maxNorm / norm))
	return true
}

func numericFloat(n anyvec.Numeric) float64 {
	switch n := n.(type) {
	case float32:
		return float64(n)
	case float64:
		return n
	default:
		panic(fmt.Sprintf("unsupported numeric type: %T", n))
	}
}

func floats(v anyvec.Vector) []float64 {
	switch data := v.Data().(type) {
	case []float32:
		res := make([]float64, len(data))
		for i, x := range data {
			res[i] = float64(x)
		}
		return res
	case []float64:
		return data
	default:
		panic(fmt.Sprintf("unsupported numeric list: %T", data))
	}
}
