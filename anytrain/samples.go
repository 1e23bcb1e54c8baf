// Package anytrain trains and evaluates handwriting
// recognition networks with CTC.
package anytrain

import (
	"sort"

	"github.com/unixpickle/anyhwr"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvec"
)

// A Sample is a line image paired with its label.
//
// The label stores vocabulary indices, none of which may
// be the blank.
type Sample struct {
	Image anyvec.Vector
	Shape anyhwr.Shape
	Label []int
}

// A SampleList is an anysgd.SampleList that produces
// line samples.
type SampleList interface {
	anysgd.SampleList

	GetSample(idx int) (*Sample, error)
	Creator() anyvec.Creator
}

// A SliceSampleList is a SampleList with predetermined
// samples.
type SliceSampleList struct {
	Samples []*Sample
	C       anyvec.Creator

	// Window, if non-zero, makes PostShuffle sort every
	// run of Window samples by image height.
	// Setting it to the batch size keeps each mini-batch
	// random while making its images similar in height.
	Window int
}

// Len returns the number of samples.
func (s *SliceSampleList) Len() int {
	return len(s.Samples)
}

// Swap swaps two samples.
func (s *SliceSampleList) Swap(i, j int) {
	s.Samples[i], s.Samples[j] = s.Samples[j], s.Samples[i]
}

// Slice copies a sub-slice of the list.
func (s *SliceSampleList) Slice(i, j int) anysgd.SampleList {
	return &SliceSampleList{
		Samples: append([]*Sample{}, s.Samples[i:j]...),
		C:       s.C,
		Window:  s.Window,
	}
}

// GetSample returns the sample at the index.
func (s *SliceSampleList) GetSample(idx int) (*Sample, error) {
	return s.Samples[idx], nil
}

// Creator returns s.C.
func (s *SliceSampleList) Creator() anyvec.Creator {
	return s.C
}

// PostShuffle sorts each window by height.
func (s *SliceSampleList) PostShuffle() {
	if s.Window <= 1 {
		return
	}
	for i := 0; i < len(s.Samples); i += s.Window {
		window := s.Samples[i:minInt(i+s.Window, len(s.Samples))]
		sort.SliceStable(window, func(a, b int) bool {
			return window[a].Shape.Height < window[b].Shape.Height
		})
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
