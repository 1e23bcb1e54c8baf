package anyvocab

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/unixpickle/anyhwr"
	"github.com/unixpickle/essentials"
)

// WriteTo writes the table as one "<index> <string>"
// line per entry.
func (t *Table) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	for i, s := range t.strs {
		k, err := fmt.Fprintf(bw, "%d %s\n", i, s)
		n += int64(k)
		if err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}

// Save writes the table to a file.
func (t *Table) Save(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return essentials.AddCtx("save table", err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil && closeErr != nil {
			err = essentials.AddCtx("save table", closeErr)
		}
	}()
	if _, err := t.WriteTo(f); err != nil {
		return essentials.AddCtx("save table", err)
	}
	return nil
}

// ReadTable reads a table in the format produced by
// WriteTo.
//
// Blank lines are ignored.
// Every other line must declare the index of the line
// among the non-blank lines, starting at 0.
// The string is trimmed unless it consists entirely of
// whitespace, so a space can itself be an entry.
//
// If the first entry is not Blank, Blank is inserted in
// front of the file's entries, shifting them up by one.
func ReadTable(r io.Reader) (*Table, error) {
	var strs []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.SplitN(line, " ", 2)
		idx, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad index %q", anyhwr.ErrCorruptFile,
				len(strs), parts[0])
		}
		if idx != len(strs) {
			return nil, fmt.Errorf("%w: line %d declares index %d", anyhwr.ErrCorruptFile,
				len(strs), idx)
		}
		var word string
		if len(parts) == 2 {
			word = parts[1]
		}
		if trimmed := strings.TrimSpace(word); trimmed != "" {
			word = trimmed
		}
		strs = append(strs, word)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return fromStrings(strs)
}

// Load reads a table from a file written by Save.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, essentials.AddCtx("load table", err)
	}
	defer f.Close()
	t, err := ReadTable(f)
	if err != nil {
		return nil, fmt.Errorf("load table %s: %w", path, err)
	}
	return t, nil
}
