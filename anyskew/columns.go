package anyskew

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyhwr"
)

// SkewSeq skews a batch of equally shaped tensors and
// turns the result into a sequence of columns.
//
// The sequence has SkewedWidth timesteps.
// Every timestep packs batch*H rows, one for each row of
// each tensor, with s.Depth components per row.
// Rows of the same tensor are adjacent, top to bottom.
func SkewSeq(in anydiff.Res, batch int, s anyhwr.Shape) anyseq.Seq {
	checkLen(in, batch*s.Volume())
	skewedWidth := SkewedWidth(s.Size)
	var table []int
	for t := 0; t < skewedWidth; t++ {
		for b := 0; b < batch; b++ {
			for y := 0; y < s.Height; y++ {
				srcX := t - y
				for z := 0; z < s.Depth; z++ {
					if srcX < 0 || srcX >= s.Width {
						table = append(table, anyhwr.Fill)
					} else {
						table = append(table, b*s.Volume()+(y*s.Width+srcX)*s.Depth+z)
					}
				}
			}
		}
	}
	flat := anyhwr.Reindex(in, table, 0)
	return anyhwr.SeqFromFlat(flat, s.Depth, anyhwr.AllPresent(skewedWidth, batch*s.Height))
}

// UnskewSeq reverses SkewSeq for a sequence whose rows
// may have a different depth than the skewed input, such
// as the outputs of a recurrent block.
// The result is a batch of tensors with size s.Size and
// the given depth.
func UnskewSeq(seq anyseq.Seq, batch int, s anyhwr.Size, depth int) anydiff.Res {
	rows := batch * s.Height
	stepSize := rows * depth
	var table []int
	for b := 0; b < batch; b++ {
		for y := 0; y < s.Height; y++ {
			row := b*s.Height + y
			for x := 0; x < s.Width; x++ {
				t := x + y
				for z := 0; z < depth; z++ {
					table = append(table, t*stepSize+row*depth+z)
				}
			}
		}
	}
	return anyhwr.Reindex(anyhwr.PoolSeq(seq), table, 0)
}
