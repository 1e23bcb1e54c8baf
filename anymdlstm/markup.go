package anymdlstm

import (
	"errors"
	"fmt"

	"github.com/unixpickle/anyhwr"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/convmarkup"
)

// FromMarkup creates a Pipeline from a markup description.
//
// The description should start with an Input block whose
// depth is the image depth; its width and height are not
// used, since images may have any size.
// On top of Repeat, Dropout, and Debug, the markup may use
// two custom blocks:
//
//	MDLSTM(out=16, dirs=4)
//	BlockConv(w=4, h=2, out=32)
//
// The dirs attribute is optional and defaults to 1.
//
// For details on the markup format, see:
// https://github.com/unixpickle/convmarkup.
func FromMarkup(c anyvec.Creator, code string) (Pipeline, error) {
	parsed, err := convmarkup.Parse(code)
	if err != nil {
		return nil, errors.New("parse markup: " + err.Error())
	}
	block, err := parsed.Block(convmarkup.Dims{}, MarkupCreators())
	if err != nil {
		return nil, errors.New("make markup block: " + err.Error())
	}
	chain := convmarkup.RealizerChain{convmarkup.MetaRealizer{}, Realizer(c)}
	instance, _, err := chain.Realize(convmarkup.Dims{}, block)
	if err != nil {
		return nil, errors.New("realize markup block: " + err.Error())
	}
	if p, ok := instance.(Pipeline); ok {
		return p, nil
	}
	return nil, fmt.Errorf("not a Pipeline: %T", instance)
}

// MarkupCreators returns the default convmarkup creators
// plus creators for MDLSTM and BlockConv blocks.
func MarkupCreators() map[string]convmarkup.Creator {
	res := convmarkup.DefaultCreators()
	res["MDLSTM"] = markupCreator("MDLSTM", []string{"out"}, []string{"dirs"})
	res["BlockConv"] = markupCreator("BlockConv", []string{"w", "h", "out"}, nil)
	return res
}

// Realizer creates a convmarkup.Realizer which produces
// Stages.
// Root blocks become Pipelines, with Repeat blocks
// expanded in place.
func Realizer(c anyvec.Creator) convmarkup.Realizer {
	return &realizer{creator: c}
}

type realizer struct {
	creator anyvec.Creator
}

func (r *realizer) Realize(chain convmarkup.RealizerChain, d convmarkup.Dims,
	b convmarkup.Block) (interface{}, error) {
	switch b := b.(type) {
	case *convmarkup.Root:
		return r.pipeline(chain, d, b.Children)
	case *markupBlock:
		return r.block(d, b)
	case *convmarkup.Dropout:
		return &Dropout{KeepProb: b.Prob}, nil
	case *convmarkup.Debug:
		return &Debug{
			PrintMean:     b.Attrs["mean"] == 1,
			PrintVariance: b.Attrs["variance"] == 1,
		}, nil
	default:
		return nil, convmarkup.ErrUnsupportedBlock
	}
}

func (r *realizer) pipeline(chain convmarkup.RealizerChain, d convmarkup.Dims,
	blocks []convmarkup.Block) (Pipeline, error) {
	var res Pipeline
	for _, child := range blocks {
		if rep, ok := child.(*convmarkup.Repeat); ok {
			for i := 0; i < rep.N; i++ {
				p, err := r.pipeline(chain, d, rep.Children)
				if err != nil {
					return nil, err
				}
				res = append(res, p...)
				if n := len(rep.Children); n > 0 {
					d = rep.Children[n-1].OutDims()
				}
			}
			continue
		}
		obj, _, err := chain.Realize(d, child)
		if err != nil {
			return nil, err
		} else if p, ok := obj.(Pipeline); ok {
			res = append(res, p...)
		} else if s, ok := obj.(Stage); ok {
			res = append(res, s)
		} else if obj != nil {
			return nil, fmt.Errorf("not a Stage: %T", obj)
		}
		d = child.OutDims()
	}
	return res, nil
}

func (r *realizer) block(d convmarkup.Dims, b *markupBlock) (Stage, error) {
	switch b.Name {
	case "MDLSTM":
		dirs := 1
		if x, ok := b.Attrs["dirs"]; ok {
			dirs = int(x)
		}
		if dirs != 1 && dirs != len(directions) {
			return nil, fmt.Errorf("%w: dirs must be 1 or %d", anyhwr.ErrInvalidArgument,
				len(directions))
		}
		return NewMDLSTM(r.creator, d.Depth, int(b.Attrs["out"]), dirs > 1), nil
	case "BlockConv":
		block := anyhwr.Size{Height: int(b.Attrs["h"]), Width: int(b.Attrs["w"])}
		return NewBlockConv(r.creator, block, d.Depth, int(b.Attrs["out"])), nil
	default:
		panic("unexpected name")
	}
}

type markupBlock struct {
	Name  string
	Attrs map[string]float64
	Out   convmarkup.Dims
}

func markupCreator(name string, required, optional []string) convmarkup.Creator {
	return func(in convmarkup.Dims, attr map[string]float64,
		children []convmarkup.Block) (convmarkup.Block, error) {
		if len(children) > 0 {
			return nil, convmarkup.ErrUnexpectedChildren
		}
		allowed := map[string]bool{}
		for _, a := range required {
			val, ok := attr[a]
			if !ok {
				return nil, errors.New("missing attribute: " + a)
			}
			if float64(int(val)) != val || val <= 0 {
				return nil, errors.New("invalid value for " + a + " attribute")
			}
			allowed[a] = true
		}
		for _, a := range optional {
			allowed[a] = true
		}
		for a := range attr {
			if !allowed[a] {
				return nil, errors.New("unexpected attribute: " + a)
			}
		}
		out := convmarkup.Dims{Width: 1, Height: 1, Depth: int(attr["out"])}
		if name == "MDLSTM" {
			if dirs, ok := attr["dirs"]; ok {
				out.Depth *= int(dirs)
			}
		}
		return &markupBlock{Name: name, Attrs: attr, Out: out}, nil
	}
}

func (m *markupBlock) Type() string {
	return m.Name
}

func (m *markupBlock) OutDims() convmarkup.Dims {
	return m.Out
}
