// Package anymdlstm implements networks for handwriting
// line recognition built from multi-dimensional LSTM
// layers and block-strided convolutions.
//
// Every stage consumes and produces an *anyhwr.Batch, so
// a single batch may contain lines of different sizes.
package anymdlstm

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyhwr"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var p Pipeline
	serializer.RegisterTypedDeserializer(p.SerializerType(), DeserializePipeline)
}

// Mode selects between training and evaluation behavior
// for stages like Dropout.
type Mode int

const (
	Evaluation Mode = iota
	Training
)

func (m Mode) String() string {
	if m == Training {
		return "training"
	}
	return "evaluation"
}

// A Stage is one step of a recognition network.
//
// The variants are *MDLSTM, *BlockConv, *Pair, *Dropout,
// *Debug, and Pipeline.
type Stage interface {
	Apply(b *anyhwr.Batch, m Mode) (*anyhwr.Batch, error)

	// OutDepth computes the output depth given the input
	// depth.
	OutDepth(inDepth int) int

	// Reduction returns the factor by which the stage
	// shrinks each spatial dimension, rounding up.
	Reduction() anyhwr.Size
}

// A Pipeline applies stages one after another.
type Pipeline []Stage

// DeserializePipeline deserializes a Pipeline.
func DeserializePipeline(d []byte) (Pipeline, error) {
	slice, err := serializer.DeserializeSlice(d)
	if err != nil {
		return nil, essentials.AddCtx("deserialize Pipeline", err)
	}
	res := make(Pipeline, len(slice))
	for i, x := range slice {
		if stage, ok := x.(Stage); ok {
			res[i] = stage
		} else {
			return nil, fmt.Errorf("deserialize Pipeline: not a Stage: %T", x)
		}
	}
	return res, nil
}

// Apply applies every stage.
func (p Pipeline) Apply(b *anyhwr.Batch, m Mode) (*anyhwr.Batch, error) {
	for i, s := range p {
		var err error
		b, err = s.Apply(b, m)
		if err != nil {
			return nil, fmt.Errorf("stage %d: %w", i, err)
		}
	}
	return b, nil
}

// OutDepth returns the output depth of the last stage.
func (p Pipeline) OutDepth(inDepth int) int {
	for _, s := range p {
		inDepth = s.OutDepth(inDepth)
	}
	return inDepth
}

// Reduction multiplies the reductions of the stages.
func (p Pipeline) Reduction() anyhwr.Size {
	res := anyhwr.Size{Height: 1, Width: 1}
	for _, s := range p {
		res = res.Scale(s.Reduction())
	}
	return res
}

// Parameters returns the parameters of every stage which
// implements anynet.Parameterizer.
func (p Pipeline) Parameters() []*anydiff.Var {
	var res []*anydiff.Var
	for _, s := range p {
		if param, ok := s.(anynet.Parameterizer); ok {
			res = append(res, param.Parameters()...)
		}
	}
	return res
}

// SerializerType returns the unique ID used to serialize
// a Pipeline with the serializer package.
func (p Pipeline) SerializerType() string {
	return "github.com/unixpickle/anyhwr/anymdlstm.Pipeline"
}

// Serialize serializes the pipeline.
// Every stage must be a serializer.Serializer.
func (p Pipeline) Serialize() ([]byte, error) {
	var slice []serializer.Serializer
	for _, x := range p {
		if s, ok := x.(serializer.Serializer); ok {
			slice = append(slice, s)
		} else {
			return nil, fmt.Errorf("not a Serializer: %T", x)
		}
	}
	return serializer.SerializeSlice(slice)
}

var identityReduction = anyhwr.Size{Height: 1, Width: 1}
