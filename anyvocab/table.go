// Package anyvocab maps transcription tokens to the
// integer labels used during training and decoding.
package anyvocab

import (
	"bytes"
	"fmt"

	"github.com/unixpickle/anyhwr"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

const (
	// Blank is the token reserved for the CTC blank.
	Blank = "_"

	// BlankIndex is the index of Blank in every Table.
	BlankIndex = 0
)

func init() {
	var t Table
	serializer.RegisterTypedDeserializer(t.SerializerType(), DeserializeTable)
}

// A Table is a bidirectional mapping between strings and
// dense indices.
//
// Index 0 is always Blank.
// Strings are indexed in the order they were added, and
// a Table never shrinks.
type Table struct {
	strs    []string
	indices map[string]int
}

// NewTable creates a Table containing only Blank.
func NewTable() *Table {
	t := &Table{indices: map[string]int{}}
	t.Add(Blank)
	return t
}

// FromLines creates a Table containing every token of
// every line, indexed by first appearance.
func FromLines(lines [][]string) *Table {
	t := NewTable()
	for _, l := range lines {
		t.AddAll(l)
	}
	return t
}

// DeserializeTable deserializes a Table.
func DeserializeTable(d []byte) (*Table, error) {
	t, err := ReadTable(bytes.NewReader(d))
	if err != nil {
		return nil, essentials.AddCtx("deserialize Table", err)
	}
	return t, nil
}

// Add appends s to the table if it is not already there.
func (t *Table) Add(s string) {
	if _, ok := t.indices[s]; ok {
		return
	}
	t.indices[s] = len(t.strs)
	t.strs = append(t.strs, s)
}

// AddAll adds every string in order.
func (t *Table) AddAll(strs []string) {
	for _, s := range strs {
		t.Add(s)
	}
}

// Len returns the number of entries, including Blank.
func (t *Table) Len() int {
	return len(t.strs)
}

// Index finds the index of s.
func (t *Table) Index(s string) (int, error) {
	if idx, ok := t.indices[s]; ok {
		return idx, nil
	}
	return 0, fmt.Errorf("%w: %q", anyhwr.ErrKeyNotFound, s)
}

// String finds the string at index idx.
func (t *Table) String(idx int) (string, error) {
	if idx < 0 || idx >= len(t.strs) {
		return "", fmt.Errorf("%w: index %d with %d entries", anyhwr.ErrIndexOutOfRange,
			idx, len(t.strs))
	}
	return t.strs[idx], nil
}

// Indices maps every string to its index.
func (t *Table) Indices(strs []string) ([]int, error) {
	res := make([]int, len(strs))
	for i, s := range strs {
		idx, err := t.Index(s)
		if err != nil {
			return nil, err
		}
		res[i] = idx
	}
	return res, nil
}

// Strings maps every index to its string.
func (t *Table) Strings(indices []int) ([]string, error) {
	res := make([]string, len(indices))
	for i, idx := range indices {
		s, err := t.String(idx)
		if err != nil {
			return nil, err
		}
		res[i] = s
	}
	return res, nil
}

// Vocabulary returns a copy of the strings in index
// order.
func (t *Table) Vocabulary() []string {
	return append([]string{}, t.strs...)
}

// SerializerType returns the unique ID used to serialize
// a Table with the serializer package.
func (t *Table) SerializerType() string {
	return "github.com/unixpickle/anyhwr/anyvocab.Table"
}

// Serialize serializes the table in the same format
// used by WriteTo.
func (t *Table) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := t.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func fromStrings(strs []string) (*Table, error) {
	t := NewTable()
	for i, s := range strs {
		if i == BlankIndex && s == Blank {
			continue
		}
		if _, ok := t.indices[s]; ok {
			return nil, fmt.Errorf("%w: duplicate entry %q at index %d",
				anyhwr.ErrCorruptFile, s, i)
		}
		t.Add(s)
	}
	return t, nil
}
