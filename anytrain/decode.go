package anytrain

import (
	"fmt"
	"strings"

	"github.com/unixpickle/anyhwr"
	"github.com/unixpickle/anyhwr/anyio"
	"github.com/unixpickle/anyhwr/anymdlstm"
	"github.com/unixpickle/anyhwr/anyvocab"
	"github.com/unixpickle/anynet/anyctc"
)

// DefaultBlankThresh is a reasonable blank threshold for
// anyctc.BestLabels.
const DefaultBlankThresh = -1e-3

// DecodeLabels runs the network on the images and returns
// the most likely label of each one, as vocabulary
// indices.
func DecodeLabels(n *anymdlstm.Network, images *anyhwr.Batch,
	blankThresh float64) ([][]int, error) {
	out, err := n.Apply(images, anymdlstm.Evaluation)
	if err != nil {
		return nil, err
	}
	ctcLabels := anyctc.BestLabels(out.Seq(), blankThresh)
	res := make([][]int, len(ctcLabels))
	for i, l := range ctcLabels {
		res[i] = anyio.FromCTCLabels(l)
	}
	return res, nil
}

// Decode is like DecodeLabels, but it turns the labels
// into strings using the vocabulary.
func Decode(n *anymdlstm.Network, images *anyhwr.Batch, table *anyvocab.Table,
	blankThresh float64) ([]string, error) {
	labels, err := DecodeLabels(n, images, blankThresh)
	if err != nil {
		return nil, err
	}
	res := make([]string, len(labels))
	for i, l := range labels {
		res[i], err = LabelString(table, l)
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}

// LabelString joins the tokens of a label.
func LabelString(table *anyvocab.Table, label []int) (string, error) {
	var res strings.Builder
	for _, idx := range label {
		s, err := table.String(idx)
		if err != nil {
			return "", err
		}
		res.WriteString(s)
	}
	return res.String(), nil
}

// Stats summarizes an evaluation.
type Stats struct {
	Samples int

	// Chars is the total length of the expected labels.
	Chars int

	// Edits is the total edit distance between expected
	// and decoded labels.
	Edits int

	// Exact counts the perfectly decoded samples.
	Exact int
}

// ErrorRate returns the character error rate.
func (s *Stats) ErrorRate() float64 {
	if s.Chars == 0 {
		if s.Edits == 0 {
			return 0
		}
		return 1
	}
	return float64(s.Edits) / float64(s.Chars)
}

// Add adds the results for a batch of samples.
func (s *Stats) Add(expected, actual [][]int) {
	for i, e := range expected {
		d := EditDistance(e, actual[i])
		s.Samples++
		s.Chars += len(e)
		s.Edits += d
		if d == 0 {
			s.Exact++
		}
	}
}

func (s *Stats) String() string {
	return fmt.Sprintf("samples=%d cer=%.4f exact=%d", s.Samples, s.ErrorRate(), s.Exact)
}

// ErrorRate computes the character error rate of the
// decoded labels.
func ErrorRate(expected, actual [][]int) float64 {
	var s Stats
	s.Add(expected, actual)
	return s.ErrorRate()
}

// EditDistance computes the Levenshtein distance between
// two labels.
func EditDistance(a, b []int) int {
	row := make([]int, len(b)+1)
	for j := range row {
		row[j] = j
	}
	for i := 1; i <= len(a); i++ {
		diag := row[0]
		row[0] = i
		for j := 1; j <= len(b); j++ {
			above := row[j]
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			row[j] = minInt(minInt(row[j]+1, row[j-1]+1), diag+cost)
			diag = above
		}
	}
	return row[len(b)]
}

// Evaluate decodes every sample in the list, batchSize
// samples at a time, and compares the results to the
// labels.
func Evaluate(n *anymdlstm.Network, l SampleList, batchSize int,
	blankThresh float64) (*Stats, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("%w: batch size %d", anyhwr.ErrInvalidArgument, batchSize)
	}
	res := &Stats{}
	for i := 0; i < l.Len(); i += batchSize {
		sub := l.Slice(i, minInt(i+batchSize, l.Len())).(SampleList)
		batch, err := FetchBatch(sub, 0)
		if err != nil {
			return nil, err
		}
		actual, err := DecodeLabels(n, batch.Images, blankThresh)
		if err != nil {
			return nil, fmt.Errorf("evaluate: %w", err)
		}
		res.Add(batch.Unpadded(), actual)
	}
	return res, nil
}
