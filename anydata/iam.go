package anydata

import (
	"bufio"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyhwr"
	"github.com/unixpickle/anyhwr/anytrain"
	"github.com/unixpickle/anyhwr/anyvocab"
	"github.com/unixpickle/anynet/anyconv"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

// An IAMLine is one entry of the IAM database's lines.txt
// file.
type IAMLine struct {
	ID string

	// OK is false if the line was marked as containing
	// segmentation errors.
	OK bool

	GrayLevel  int
	Components int

	// BoundingBox stores x, y, width, and height.
	BoundingBox [4]int

	// Transcription separates words with '|'.
	Transcription string
}

// ParseIAMLines parses the lines.txt file.
// Comment lines, starting with '#', are skipped.
func ParseIAMLines(r io.Reader) ([]*IAMLine, error) {
	var res []*IAMLine
	scanner := bufio.NewScanner(r)
	var lineNum int
	for scanner.Scan() {
		lineNum++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		line, err := parseIAMLine(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		res = append(res, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, essentials.AddCtx("parse IAM lines", err)
	}
	return res, nil
}

func parseIAMLine(text string) (*IAMLine, error) {
	fields := strings.Fields(text)
	if len(fields) < 9 {
		return nil, fmt.Errorf("%w: expected at least 9 fields but got %d",
			anyhwr.ErrCorruptFile, len(fields))
	}
	res := &IAMLine{ID: fields[0], Transcription: strings.Join(fields[8:], " ")}
	switch fields[1] {
	case "ok":
		res.OK = true
	case "err":
	default:
		return nil, fmt.Errorf("%w: unknown status %q", anyhwr.ErrCorruptFile, fields[1])
	}
	ints := make([]int, 6)
	for i := range ints {
		x, err := strconv.Atoi(fields[i+2])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", anyhwr.ErrCorruptFile, err)
		}
		ints[i] = x
	}
	res.GrayLevel = ints[0]
	res.Components = ints[1]
	copy(res.BoundingBox[:], ints[2:])
	return res, nil
}

// ImagePath returns the path of the line's image, given
// the root of the database, which contains the lines/
// directory.
func (i *IAMLine) ImagePath(root string) string {
	parts := strings.Split(i.ID, "-")
	if len(parts) < 2 {
		return filepath.Join(root, "lines", i.ID+".png")
	}
	return filepath.Join(root, "lines", parts[0], parts[0]+"-"+parts[1], i.ID+".png")
}

// Characters splits the transcription into characters,
// turning word separators into spaces.
func (i *IAMLine) Characters() []string {
	text := strings.Replace(i.Transcription, "|", " ", -1)
	var res []string
	for _, r := range text {
		res = append(res, string(r))
	}
	return res
}

// LoadIAMImage loads a PNG file as a single-channel
// tensor with values between 0 (black) and 1 (white).
//
// If halve is set, the image is shrunk to half its size
// in each dimension.
func LoadIAMImage(path string, c anyvec.Creator, halve bool) (anyvec.Vector, anyhwr.Shape, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, anyhwr.Shape{}, essentials.AddCtx("load IAM image", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, anyhwr.Shape{}, essentials.AddCtx("load IAM image", err)
	}
	vec, shape := ImageTensor(c, img, halve)
	return vec, shape, nil
}

// ImageTensor converts an image to a grayscale tensor.
// See LoadIAMImage for details.
func ImageTensor(c anyvec.Creator, img image.Image, halve bool) (anyvec.Vector, anyhwr.Shape) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	rgb := anyconv.ImageToTensor(c, img)
	gray := anydiff.Scale(anydiff.SumCols(&anydiff.Matrix{
		Data: anydiff.NewConst(rgb),
		Rows: w * h,
		Cols: 3,
	}), c.MakeNumeric(1.0/3))
	shape := anyhwr.Shape{Size: anyhwr.Size{Height: h, Width: w}, Depth: 1}
	if !halve || w < 4 || h < 4 {
		return gray.Output(), shape
	}
	resize := &anyconv.Resize{
		Depth:        1,
		InputWidth:   w,
		InputHeight:  h,
		OutputWidth:  w / 2,
		OutputHeight: h / 2,
	}
	shape.Size = anyhwr.Size{Height: h / 2, Width: w / 2}
	return resize.Apply(gray, 1).Output(), shape
}

// IAMSamples loads the images of the lines and builds a
// vocabulary of every character in them.
func IAMSamples(root string, lines []*IAMLine, c anyvec.Creator,
	halve bool) (*anytrain.SliceSampleList, *anyvocab.Table, error) {
	table := anyvocab.NewTable()
	for _, line := range lines {
		table.AddAll(line.Characters())
	}
	res := &anytrain.SliceSampleList{C: c}
	for _, line := range lines {
		image, shape, err := LoadIAMImage(line.ImagePath(root), c, halve)
		if err != nil {
			return nil, nil, fmt.Errorf("line %s: %w", line.ID, err)
		}
		label, err := table.Indices(line.Characters())
		if err != nil {
			return nil, nil, err
		}
		for _, idx := range label {
			if idx == anyvocab.BlankIndex {
				return nil, nil, fmt.Errorf("%w: line %s contains the blank symbol",
					anyhwr.ErrInvalidArgument, line.ID)
			}
		}
		res.Samples = append(res.Samples, &anytrain.Sample{
			Image: image,
			Shape: shape,
			Label: label,
		})
	}
	return res, table, nil
}

// OKLines filters out lines with segmentation errors.
func OKLines(lines []*IAMLine) []*IAMLine {
	var res []*IAMLine
	for _, l := range lines {
		if l.OK {
			res = append(res, l)
		}
	}
	return res
}
