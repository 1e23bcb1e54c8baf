package anydata

import (
	"fmt"

	"github.com/unixpickle/anyhwr"
	"github.com/unixpickle/anyhwr/anytrain"
	"github.com/unixpickle/anyhwr/anyvocab"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvecsave"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var s sampleSet
	serializer.RegisterTypedDeserializer(s.SerializerType(), deserializeSampleSet)
	var c cachedSample
	serializer.RegisterTypedDeserializer(c.SerializerType(), deserializeCachedSample)
}

// SaveSamples writes preprocessed samples and their
// vocabulary to a file, so that images need not be
// decoded again.
func SaveSamples(path string, l *anytrain.SliceSampleList, table *anyvocab.Table) error {
	if err := serializer.SaveAny(path, table, sampleSet(l.Samples)); err != nil {
		return essentials.AddCtx("save samples", err)
	}
	return nil
}

// LoadSamples reads a file written by SaveSamples.
// The images are converted to the given creator.
func LoadSamples(path string, c anyvec.Creator) (*anytrain.SliceSampleList,
	*anyvocab.Table, error) {
	var table *anyvocab.Table
	var samples sampleSet
	if err := serializer.LoadAny(path, &table, &samples); err != nil {
		return nil, nil, essentials.AddCtx("load samples", err)
	}
	for _, s := range samples {
		s.Image = c.MakeVectorData(c.MakeNumericList(floats(s.Image)))
	}
	return &anytrain.SliceSampleList{Samples: samples, C: c}, table, nil
}

type sampleSet []*anytrain.Sample

func deserializeSampleSet(d []byte) (sampleSet, error) {
	slice, err := serializer.DeserializeSlice(d)
	if err != nil {
		return nil, err
	}
	res := make(sampleSet, len(slice))
	for i, x := range slice {
		s, ok := x.(cachedSample)
		if !ok {
			return nil, fmt.Errorf("%w: not a sample: %T", anyhwr.ErrCorruptFile, x)
		}
		res[i] = s.Sample
	}
	return res, nil
}

func (s sampleSet) SerializerType() string {
	return "github.com/unixpickle/anyhwr/anydata.sampleSet"
}

func (s sampleSet) Serialize() ([]byte, error) {
	slice := make([]serializer.Serializer, len(s))
	for i, x := range s {
		slice[i] = cachedSample{Sample: x}
	}
	return serializer.SerializeSlice(slice)
}

// cachedSample stores the label as a vector so that it
// can be saved with anyvecsave.
type cachedSample struct {
	*anytrain.Sample
}

func deserializeCachedSample(d []byte) (cachedSample, error) {
	var image, label *anyvecsave.S
	var height, width, depth serializer.Int
	err := serializer.DeserializeAny(d, &image, &label, &height, &width, &depth)
	if err != nil {
		return cachedSample{}, err
	}
	shape := anyhwr.Shape{
		Size:  anyhwr.Size{Height: int(height), Width: int(width)},
		Depth: int(depth),
	}
	if image.Vector.Len() != shape.Volume() {
		return cachedSample{}, fmt.Errorf("%w: image has %d values for shape %v",
			anyhwr.ErrCorruptFile, image.Vector.Len(), shape)
	}
	labelFloats := floats(label.Vector)
	res := &anytrain.Sample{
		Image: image.Vector,
		Shape: shape,
		Label: make([]int, len(labelFloats)),
	}
	for i, x := range labelFloats {
		res.Label[i] = int(x)
	}
	return cachedSample{Sample: res}, nil
}

func (c cachedSample) SerializerType() string {
	return "github.com/unixpickle/anyhwr/anydata.cachedSample"
}

func (c cachedSample) Serialize() ([]byte, error) {
	creator := c.Image.Creator()
	label := make([]float64, len(c.Label))
	for i, x := range c.Label {
		label[i] = float64(x)
	}
	return serializer.SerializeAny(
		&anyvecsave.S{Vector: c.Image},
		&anyvecsave.S{Vector: creator.MakeVectorData(creator.MakeNumericList(label))},
		serializer.Int(c.Shape.Height),
		serializer.Int(c.Shape.Width),
		serializer.Int(c.Shape.Depth),
	)
}

func floats(v anyvec.Vector) []float64 {
	switch data := v.Data().(type) {
	case []float32:
		res := make([]float64, len(data))
		for i, x := range data {
			res[i] = float64(x)
		}
		return res
	case []float64:
		return data
	default:
		panic(fmt.Sprintf("unsupported numeric list: %T", data))
	}
}
