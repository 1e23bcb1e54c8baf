// Package anyskew shifts the rows of image tensors so
// that a two-dimensional recurrence can be evaluated as a
// one-dimensional scan over columns.
//
// Row r of a skewed image is shifted right by r pixels.
// Consequently, the pixel above and the pixel to the left
// of any pixel both land in the previous skewed column.
package anyskew

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyhwr"
)

// SkewedWidth returns H+W-1.
func SkewedWidth(s anyhwr.Size) int {
	return s.Height + s.Width - 1
}

// SkewedShape returns the shape of a skewed tensor.
func SkewedShape(s anyhwr.Shape) anyhwr.Shape {
	return anyhwr.Shape{
		Size:  anyhwr.Size{Height: s.Height, Width: SkewedWidth(s.Size)},
		Depth: s.Depth,
	}
}

// Skew skews a batch of tensors with the same shape.
// Positions in a skewed row before and after the shifted
// pixels are zero.
func Skew(in anydiff.Res, batch int, s anyhwr.Shape) anydiff.Res {
	checkLen(in, batch*s.Volume())
	return anyhwr.Reindex(in, repeatTable(skewTable(s), batch, s.Volume()), 0)
}

// Unskew reverses Skew.
// The input is a batch of skewed tensors, and pixel (r, c)
// of each output is read from skewed pixel (r, c+r).
func Unskew(in anydiff.Res, batch int, s anyhwr.Shape) anydiff.Res {
	skewed := SkewedShape(s)
	checkLen(in, batch*skewed.Volume())
	return anyhwr.Reindex(in, repeatTable(unskewTable(s), batch, skewed.Volume()), 0)
}

// SkewBatch skews every example of a batch.
func SkewBatch(b *anyhwr.Batch) *anyhwr.Batch {
	var table []int
	var shapes []anyhwr.Shape
	offsets := b.Offsets()
	for i, s := range b.Shapes {
		table = appendOffset(table, skewTable(s), offsets[i])
		shapes = append(shapes, SkewedShape(s))
	}
	return &anyhwr.Batch{Data: anyhwr.Reindex(b.Data, table, 0), Shapes: shapes}
}

// UnskewBatch reverses SkewBatch.
// The shapes are those of the unskewed examples.
func UnskewBatch(skewed anydiff.Res, shapes []anyhwr.Shape) *anyhwr.Batch {
	var table []int
	var offset int
	for _, s := range shapes {
		table = appendOffset(table, unskewTable(s), offset)
		offset += SkewedShape(s).Volume()
	}
	checkLen(skewed, offset)
	return &anyhwr.Batch{
		Data:   anyhwr.Reindex(skewed, table, 0),
		Shapes: append([]anyhwr.Shape{}, shapes...),
	}
}

// Flip mirrors a batch of equally shaped tensors
// vertically, horizontally, or both.
// Flipping twice restores the input.
func Flip(in anydiff.Res, batch int, s anyhwr.Shape, rows, cols bool) anydiff.Res {
	if !rows && !cols {
		return in
	}
	checkLen(in, batch*s.Volume())
	table := make([]int, 0, s.Volume())
	for y := 0; y < s.Height; y++ {
		srcY := y
		if rows {
			srcY = s.Height - (y + 1)
		}
		for x := 0; x < s.Width; x++ {
			srcX := x
			if cols {
				srcX = s.Width - (x + 1)
			}
			for z := 0; z < s.Depth; z++ {
				table = append(table, (srcY*s.Width+srcX)*s.Depth+z)
			}
		}
	}
	return anyhwr.Reindex(in, repeatTable(table, batch, s.Volume()), 0)
}

func skewTable(s anyhwr.Shape) []int {
	skewedWidth := SkewedWidth(s.Size)
	table := make([]int, 0, s.Height*skewedWidth*s.Depth)
	for y := 0; y < s.Height; y++ {
		for x := 0; x < skewedWidth; x++ {
			srcX := x - y
			for z := 0; z < s.Depth; z++ {
				if srcX < 0 || srcX >= s.Width {
					table = append(table, anyhwr.Fill)
				} else {
					table = append(table, (y*s.Width+srcX)*s.Depth+z)
				}
			}
		}
	}
	return table
}

func unskewTable(s anyhwr.Shape) []int {
	skewedWidth := SkewedWidth(s.Size)
	table := make([]int, 0, s.Volume())
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			for z := 0; z < s.Depth; z++ {
				table = append(table, (y*skewedWidth+x+y)*s.Depth+z)
			}
		}
	}
	return table
}

func repeatTable(table []int, batch, stride int) []int {
	res := make([]int, 0, len(table)*batch)
	for i := 0; i < batch; i++ {
		res = appendOffset(res, table, i*stride)
	}
	return res
}

func appendOffset(dst, table []int, offset int) []int {
	for _, x := range table {
		if x != anyhwr.Fill {
			x += offset
		}
		dst = append(dst, x)
	}
	return dst
}

func checkLen(in anydiff.Res, size int) {
	if in.Output().Len() != size {
		panic(fmt.Sprintf("input length should be %d but got %d", size, in.Output().Len()))
	}
}
