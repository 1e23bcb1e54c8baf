package anyhwr

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// Fill marks an entry of a reindexing table which does
// not read from the input.
const Fill = -1

// Reindex produces a vector whose i-th component is the
// table[i]-th component of in.
// Entries equal to Fill are set to fillValue instead.
//
// Gradients flow back to every input component that was
// read, accumulating over repeated reads.
func Reindex(in anydiff.Res, table []int, fillValue float64) anydiff.Res {
	c := in.Output().Creator()
	inLen := in.Output().Len()

	source := in
	mapTable := make([]int, len(table))
	for i, x := range table {
		if x == Fill {
			if source == in {
				fill := c.MakeVectorData(c.MakeNumericList([]float64{fillValue}))
				source = anydiff.Concat(in, anydiff.NewConst(fill))
			}
			mapTable[i] = inLen
		} else if x < 0 || x >= inLen {
			panic(fmt.Sprintf("table entry %d out of range [0, %d)", x, inLen))
		} else {
			mapTable[i] = x
		}
	}

	mapper := c.MakeMapper(source.Output().Len(), mapTable)
	out := c.MakeVector(len(mapTable))
	mapper.Map(source.Output(), out)
	return &reindexRes{
		In:     source,
		Mapper: mapper,
		OutVec: out,
	}
}

type reindexRes struct {
	In     anydiff.Res
	Mapper anyvec.Mapper
	OutVec anyvec.Vector
}

func (r *reindexRes) Output() anyvec.Vector {
	return r.OutVec
}

func (r *reindexRes) Vars() anydiff.VarSet {
	return r.In.Vars()
}

func (r *reindexRes) Propagate(u anyvec.Vector, g anydiff.Grad) {
	downstream := u.Creator().MakeVector(r.Mapper.InSize())
	r.Mapper.MapTranspose(u, downstream)
	r.In.Propagate(downstream, g)
}

// ColumnTable builds a reindexing table which selects the
// columns [start, end) of every row of a row-major matrix
// with the given number of columns.
func ColumnTable(rows, cols, start, end int) []int {
	table := make([]int, 0, rows*(end-start))
	for r := 0; r < rows; r++ {
		for c := start; c < end; c++ {
			table = append(table, r*cols+c)
		}
	}
	return table
}

// SliceColumns selects the columns [start, end) of each
// row in a row-major matrix.
func SliceColumns(in anydiff.Res, cols, start, end int) anydiff.Res {
	rows := in.Output().Len() / cols
	return Reindex(in, ColumnTable(rows, cols, start, end), 0)
}

// ConcatColumns joins row-major matrices side by side.
// Every matrix must have the same number of rows; cols
// gives the column count of each one.
func ConcatColumns(rows int, cols []int, mats ...anydiff.Res) anydiff.Res {
	if len(cols) != len(mats) {
		panic("column count mismatch")
	}
	var offsets []int
	var total, offset int
	for i, m := range mats {
		if m.Output().Len() != rows*cols[i] {
			panic(fmt.Sprintf("matrix %d should have length %d but has %d", i,
				rows*cols[i], m.Output().Len()))
		}
		offsets = append(offsets, offset)
		offset += m.Output().Len()
		total += cols[i]
	}
	table := make([]int, 0, rows*total)
	for r := 0; r < rows; r++ {
		for i, n := range cols {
			for c := 0; c < n; c++ {
				table = append(table, offsets[i]+r*n+c)
			}
		}
	}
	return Reindex(anydiff.Concat(mats...), table, 0)
}
