package anyhwr

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyvec"
)

// SeqFromFlat splits a vector into a sequence.
//
// The vector packs the timesteps one after another.
// Timestep t packs one row of rowSize components for
// every true entry of present[t].
func SeqFromFlat(flat anydiff.Res, rowSize int, present [][]bool) anyseq.Seq {
	res := &flatSeq{Flat: flat}
	var offset int
	for _, pres := range present {
		var n int
		for _, p := range pres {
			if p {
				n++
			}
		}
		size := n * rowSize
		if offset+size > flat.Output().Len() {
			panic(fmt.Sprintf("sequence needs more than %d components", flat.Output().Len()))
		}
		res.Out = append(res.Out, &anyseq.Batch{
			Packed:  flat.Output().Slice(offset, offset+size),
			Present: pres,
		})
		offset += size
	}
	if offset != flat.Output().Len() {
		panic(fmt.Sprintf("sequence uses %d of %d components", offset, flat.Output().Len()))
	}
	return res
}

// AllPresent creates steps present maps with every one of
// n sequences present.
func AllPresent(steps, n int) [][]bool {
	pres := make([]bool, n)
	for i := range pres {
		pres[i] = true
	}
	res := make([][]bool, steps)
	for i := range res {
		res[i] = pres
	}
	return res
}

// PoolSeq concatenates the packed timesteps of a sequence
// into a single vector, the inverse of SeqFromFlat.
func PoolSeq(seq anyseq.Seq) anydiff.Res {
	var vecs []anyvec.Vector
	for _, x := range seq.Output() {
		vecs = append(vecs, x.Packed)
	}
	var out anyvec.Vector
	if len(vecs) == 0 {
		out = seq.Creator().MakeVector(0)
	} else {
		out = seq.Creator().Concat(vecs...)
	}
	return &poolSeqRes{In: seq, Out: out}
}

type flatSeq struct {
	Flat anydiff.Res
	Out  []*anyseq.Batch
}

func (f *flatSeq) Creator() anyvec.Creator {
	return f.Flat.Output().Creator()
}

func (f *flatSeq) Output() []*anyseq.Batch {
	return f.Out
}

func (f *flatSeq) Vars() anydiff.VarSet {
	return f.Flat.Vars()
}

func (f *flatSeq) Propagate(u []*anyseq.Batch, g anydiff.Grad) {
	if len(u) == 0 {
		return
	}
	vecs := make([]anyvec.Vector, len(u))
	for i, x := range u {
		vecs[i] = x.Packed
	}
	f.Flat.Propagate(f.Creator().Concat(vecs...), g)
}

type poolSeqRes struct {
	In  anyseq.Seq
	Out anyvec.Vector
}

func (p *poolSeqRes) Output() anyvec.Vector {
	return p.Out
}

func (p *poolSeqRes) Vars() anydiff.VarSet {
	return p.In.Vars()
}

func (p *poolSeqRes) Propagate(u anyvec.Vector, g anydiff.Grad) {
	var batches []*anyseq.Batch
	var offset int
	for _, x := range p.In.Output() {
		n := x.Packed.Len()
		batches = append(batches, &anyseq.Batch{
			Packed:  u.Slice(offset, offset+n),
			Present: x.Present,
		})
		offset += n
	}
	p.In.Propagate(batches, g)
}
