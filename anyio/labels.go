package anyio

import (
	"fmt"

	"github.com/unixpickle/anyhwr"
)

// LabelPadding fills the unused end of a padded label
// sequence.
// It is negative, so it never collides with a valid
// vocabulary index or CTC class.
const LabelPadding = -2

// PadLabels pads every label sequence with LabelPadding
// to the length of the longest one.
// It also returns the unpadded lengths.
func PadLabels(labels [][]int) (padded [][]int, lengths []int) {
	var maxLen int
	for _, l := range labels {
		if len(l) > maxLen {
			maxLen = len(l)
		}
	}
	padded = make([][]int, len(labels))
	lengths = make([]int, len(labels))
	for i, l := range labels {
		lengths[i] = len(l)
		padded[i] = make([]int, maxLen)
		copy(padded[i], l)
		for j := len(l); j < maxLen; j++ {
			padded[i][j] = LabelPadding
		}
	}
	return
}

// UnpadLabels removes trailing LabelPadding entries.
func UnpadLabels(padded [][]int) [][]int {
	res := make([][]int, len(padded))
	for i, l := range padded {
		n := len(l)
		for n > 0 && l[n-1] == LabelPadding {
			n--
		}
		res[i] = append([]int{}, l[:n]...)
	}
	return res
}

// ToCTCLabels converts vocabulary indices to CTC classes.
//
// Vocabularies reserve index 0 for the blank, while the
// CTC loss treats the last class as the blank, so every
// index is shifted down by one.
func ToCTCLabels(indices []int) ([]int, error) {
	res := make([]int, len(indices))
	for i, x := range indices {
		if x <= 0 {
			return nil, fmt.Errorf("%w: label %d at position %d", anyhwr.ErrInvalidArgument,
				x, i)
		}
		res[i] = x - 1
	}
	return res, nil
}

// FromCTCLabels reverses ToCTCLabels.
func FromCTCLabels(classes []int) []int {
	res := make([]int, len(classes))
	for i, x := range classes {
		res[i] = x + 1
	}
	return res
}
