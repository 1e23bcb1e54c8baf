package anychunk

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyhwr"
)

// A Permutation reorders a list.
// The i-th element of a permuted list is the p[i]-th
// element of the original list.
type Permutation []int

// GroupByHeight finds a stable permutation which places
// examples with equal heights next to each other.
// Groups appear in the order of their first example.
func GroupByHeight(shapes []anyhwr.Shape) Permutation {
	return groupBy(shapes, func(s anyhwr.Shape) anyhwr.Shape {
		return anyhwr.Shape{Size: anyhwr.Size{Height: s.Height}}
	})
}

// GroupByShape is like GroupByHeight, but it groups
// examples with identical shapes.
func GroupByShape(shapes []anyhwr.Shape) Permutation {
	return groupBy(shapes, func(s anyhwr.Shape) anyhwr.Shape {
		return s
	})
}

func groupBy(shapes []anyhwr.Shape, key func(anyhwr.Shape) anyhwr.Shape) Permutation {
	var order []anyhwr.Shape
	groups := map[anyhwr.Shape][]int{}
	for i, s := range shapes {
		k := key(s)
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], i)
	}
	res := make(Permutation, 0, len(shapes))
	for _, k := range order {
		res = append(res, groups[k]...)
	}
	return res
}

// Inverse returns the permutation that undoes p.
func (p Permutation) Inverse() Permutation {
	res := make(Permutation, len(p))
	for i, x := range p {
		res[x] = i
	}
	return res
}

// Groups splits the permuted list into runs of elements
// for which same reports true between neighbors.
// Each run is given as a [start, end) pair.
func (p Permutation) Groups(same func(i, j int) bool) [][2]int {
	var res [][2]int
	for i := 0; i < len(p); i++ {
		if i == 0 || !same(p[i-1], p[i]) {
			res = append(res, [2]int{i, i + 1})
		} else {
			res[len(res)-1][1] = i + 1
		}
	}
	return res
}

// Permute applies a permutation to a slice.
func Permute[T any](p Permutation, list []T) []T {
	res := make([]T, len(p))
	for i, x := range p {
		res[i] = list[x]
	}
	return res
}

// RetrieveOriginalOrder undoes Permute.
func RetrieveOriginalOrder[T any](p Permutation, permuted []T) []T {
	res := make([]T, len(p))
	for i, x := range p {
		res[x] = permuted[i]
	}
	return res
}

// Apply reorders the examples of a batch.
func (p Permutation) Apply(b *anyhwr.Batch) *anyhwr.Batch {
	return &anyhwr.Batch{
		Data:   anyhwr.Reindex(b.Data, p.batchTable(b), 0),
		Shapes: Permute(p, b.Shapes),
	}
}

// Restore undoes Apply on a batch whose examples are in
// permuted order.
// The examples may have changed shape since Apply.
func (p Permutation) Restore(b *anyhwr.Batch) *anyhwr.Batch {
	return p.Inverse().Apply(b)
}

func (p Permutation) batchTable(b *anyhwr.Batch) []int {
	offsets := b.Offsets()
	table := make([]int, 0, offsets[len(offsets)-1])
	for _, x := range p {
		for j := offsets[x]; j < offsets[x+1]; j++ {
			table = append(table, j)
		}
	}
	return table
}

// Split breaks a batch into consecutive sub-batches with
// the given [start, end) ranges.
func Split(b *anyhwr.Batch, ranges [][2]int) []*anyhwr.Batch {
	offsets := b.Offsets()
	res := make([]*anyhwr.Batch, len(ranges))
	for i, r := range ranges {
		res[i] = &anyhwr.Batch{
			Data:   anydiff.Slice(b.Data, offsets[r[0]], offsets[r[1]]),
			Shapes: append([]anyhwr.Shape{}, b.Shapes[r[0]:r[1]]...),
		}
	}
	return res
}
