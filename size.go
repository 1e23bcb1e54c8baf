package anyhwr

import "fmt"

// A Size is the height and width of a two-dimensional
// tensor.
// Both dimensions are positive.
type Size struct {
	Height int
	Width  int
}

// NewSize creates a Size.
// It fails with ErrInvalidArgument if either dimension is
// not positive.
func NewSize(height, width int) (Size, error) {
	if height <= 0 || width <= 0 {
		return Size{}, fmt.Errorf("%w: size %dx%d", ErrInvalidArgument, height, width)
	}
	return Size{Height: height, Width: width}, nil
}

// Area returns Height*Width.
func (s Size) Area() int {
	return s.Height * s.Width
}

// Aligned checks if both dimensions are multiples of the
// block's dimensions.
func (s Size) Aligned(block Size) bool {
	return s.Height%block.Height == 0 && s.Width%block.Width == 0
}

// RoundUp returns the smallest size at least as large as
// s whose dimensions are multiples of block's.
func (s Size) RoundUp(block Size) Size {
	return Size{
		Height: s.Height + (block.Height-s.Height%block.Height)%block.Height,
		Width:  s.Width + (block.Width-s.Width%block.Width)%block.Width,
	}
}

// Divide counts the blocks along each dimension.
// The size must be aligned to the block.
func (s Size) Divide(block Size) Size {
	return Size{Height: s.Height / block.Height, Width: s.Width / block.Width}
}

// Scale multiplies each dimension by the corresponding
// dimension of f.
func (s Size) Scale(f Size) Size {
	return Size{Height: s.Height * f.Height, Width: s.Width * f.Width}
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Height, s.Width)
}
