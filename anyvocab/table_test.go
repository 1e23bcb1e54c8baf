package anyvocab

import (
	"bytes"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/unixpickle/anyhwr"
	"github.com/unixpickle/serializer"
)

func TestTableBasics(t *testing.T) {
	table := NewTable()
	if table.Len() != 1 {
		t.Fatalf("expected 1 entry but got %d", table.Len())
	}
	table.AddAll([]string{"a", "b", "a", "c"})
	table.Add("b")
	expected := []string{Blank, "a", "b", "c"}
	if actual := table.Vocabulary(); !reflect.DeepEqual(actual, expected) {
		t.Errorf("expected %v but got %v", expected, actual)
	}
	if idx, err := table.Index("c"); err != nil || idx != 3 {
		t.Errorf("bad index for c: %d (%v)", idx, err)
	}
	if s, err := table.String(BlankIndex); err != nil || s != Blank {
		t.Errorf("bad string for blank: %q (%v)", s, err)
	}
	if _, err := table.Index("z"); !errors.Is(err, anyhwr.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound but got %v", err)
	}
	for _, idx := range []int{-1, 4} {
		if _, err := table.String(idx); !errors.Is(err, anyhwr.ErrIndexOutOfRange) {
			t.Errorf("index %d: expected ErrIndexOutOfRange but got %v", idx, err)
		}
	}
	indices, err := table.Indices([]string{"c", "a"})
	if err != nil || !reflect.DeepEqual(indices, []int{3, 1}) {
		t.Errorf("bad indices %v (%v)", indices, err)
	}
	strs, err := table.Strings([]int{2, 0})
	if err != nil || !reflect.DeepEqual(strs, []string{"b", Blank}) {
		t.Errorf("bad strings %v (%v)", strs, err)
	}
}

func TestTableDeterminism(t *testing.T) {
	orders := [][]string{
		{"x", "y", "y", "z", "x"},
		{"x", "x", "y", "z", "y", "z"},
	}
	var tables []*Table
	for _, o := range orders {
		table := NewTable()
		table.AddAll(o)
		tables = append(tables, table)
	}
	if !reflect.DeepEqual(tables[0].Vocabulary(), tables[1].Vocabulary()) {
		t.Errorf("tables differ: %v and %v", tables[0].Vocabulary(), tables[1].Vocabulary())
	}
	for i, s := range tables[0].Vocabulary() {
		if idx, _ := tables[0].Index(s); idx != i {
			t.Errorf("string %q should have index %d but got %d", s, i, idx)
		}
	}
}

func TestTableFileRoundTrip(t *testing.T) {
	table := FromLines([][]string{{"h", "i", " ", "y", "o", "u"}, {"o", "k", "."}})
	path := filepath.Join(t.TempDir(), "vocab.txt")
	if err := table.Save(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(table.Vocabulary(), loaded.Vocabulary()) {
		t.Errorf("expected %q but got %q", table.Vocabulary(), loaded.Vocabulary())
	}
}

func TestReadTable(t *testing.T) {
	table, err := ReadTable(strings.NewReader("0 _\n\n1 a \n2  \n3 b\n"))
	if err != nil {
		t.Fatal(err)
	}
	expected := []string{Blank, "a", " ", "b"}
	if actual := table.Vocabulary(); !reflect.DeepEqual(actual, expected) {
		t.Errorf("expected %q but got %q", expected, actual)
	}

	empty, err := ReadTable(strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(empty.Vocabulary(), []string{Blank}) {
		t.Errorf("unexpected empty table %q", empty.Vocabulary())
	}

	noBlank, err := ReadTable(strings.NewReader("0 a\n1 b\n"))
	if err != nil {
		t.Fatal(err)
	}
	expected = []string{Blank, "a", "b"}
	if actual := noBlank.Vocabulary(); !reflect.DeepEqual(actual, expected) {
		t.Errorf("expected %q but got %q", expected, actual)
	}
}

func TestReadTableCorrupt(t *testing.T) {
	files := []string{
		"1 _\n",
		"0 _\n2 a\n",
		"0 _\nx a\n",
		"0 a\n1 _\n",
		"0 _\n1 a\n2 a\n",
	}
	for i, f := range files {
		if _, err := ReadTable(strings.NewReader(f)); !errors.Is(err, anyhwr.ErrCorruptFile) {
			t.Errorf("file %d: expected ErrCorruptFile but got %v", i, err)
		}
	}
}

func TestTableSerialize(t *testing.T) {
	table := FromLines([][]string{{"a", "b"}, {"c"}})
	data, err := serializer.SerializeAny(table)
	if err != nil {
		t.Fatal(err)
	}
	var decoded *Table
	if err := serializer.DeserializeAny(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(decoded.Vocabulary(), table.Vocabulary()) {
		t.Errorf("expected %v but got %v", table.Vocabulary(), decoded.Vocabulary())
	}
	var buf bytes.Buffer
	if _, err := decoded.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "0 _\n1 a\n2 b\n3 c\n" {
		t.Errorf("unexpected file contents %q", buf.String())
	}
}
