package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Kind is the inferred type of a column.
type Kind int

const (
	KindText Kind = iota
	KindNumeric
	KindBool
)

const utf8BOM = "\ufeff"

var (
	// ErrEmpty is returned when the input has no header row.
	ErrEmpty = errors.New("dataset is empty")

	// ErrColumnNotFound is returned when a named column does not exist.
	ErrColumnNotFound = errors.New("column not found")

	naTokens = map[string]bool{
		"":     true,
		"NA":   true,
		"N/A":  true,
		"NaN":  true,
		"nan":  true,
		"null": true,
		"NULL": true,
	}
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindBool:
		return "bool"
	default:
		return "text"
	}
}

// Column is a single named column of the uploaded dataset. Values holds the
// parsed cells for numeric and bool columns (NaN for missing cells).
type Column struct {
	Name   string
	Kind   Kind
	Cells  []string
	Values []float64
}

// Frame is an in-memory, row-aligned table with unknown schema at load time.
type Frame struct {
	columns []*Column
	index   map[string]int
	rows    int
}

// Read parses CSV content with a header row into a Frame.
func Read(r io.Reader) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	cells := make([][]string, len(header))
	rows := 0
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", rows+1, err)
		}
		for j, v := range rec {
			cells[j] = append(cells[j], v)
		}
		rows++
	}

	f := &Frame{
		index: make(map[string]int, len(header)),
		rows:  rows,
	}
	for j, name := range uniqueNames(header) {
		col := cells[j]
		if col == nil {
			col = []string{}
		}
		f.index[name] = len(f.columns)
		f.columns = append(f.columns, newColumn(name, col))
	}

	return f, nil
}

// uniqueNames suffixes repeated header names with .1, .2, ...
func uniqueNames(header []string) []string {
	seen := make(map[string]int, len(header))
	out := make([]string, len(header))
	for i, name := range header {
		n, ok := seen[name]
		seen[name] = n + 1
		if !ok {
			out[i] = name
			continue
		}
		out[i] = fmt.Sprintf("%s.%d", name, n)
	}
	return out
}

func newColumn(name string, cells []string) *Column {
	c := &Column{Name: name, Cells: cells, Kind: KindText}

	if vals, ok := parseNumeric(cells); ok {
		c.Kind = KindNumeric
		c.Values = vals
		return c
	}

	if vals, ok := parseBool(cells); ok {
		c.Kind = KindBool
		c.Values = vals
	}

	return c
}

func parseNumeric(cells []string) ([]float64, bool) {
	vals := make([]float64, len(cells))
	for i, s := range cells {
		s = strings.TrimSpace(s)
		if naTokens[s] {
			vals[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, false
		}
		vals[i] = v
	}
	return vals, true
}

func parseBool(cells []string) ([]float64, bool) {
	vals := make([]float64, len(cells))
	seen := false
	for i, s := range cells {
		s = strings.TrimSpace(s)
		switch strings.ToLower(s) {
		case "true":
			vals[i] = 1
		case "false":
			vals[i] = 0
		default:
			if !naTokens[s] {
				return nil, false
			}
			vals[i] = math.NaN()
			continue
		}
		seen = true
	}
	return vals, seen
}

// Rows returns the number of data rows.
func (f *Frame) Rows() int {
	return f.rows
}

// Names returns column names in header order.
func (f *Frame) Names() []string {
	names := make([]string, len(f.columns))
	for i, c := range f.columns {
		names[i] = c.Name
	}
	return names
}

// Columns returns the columns in header order.
func (f *Frame) Columns() []*Column {
	return f.columns
}

// Has checks whether the frame contains the named column.
func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Column returns the named column.
func (f *Frame) Column(name string) (*Column, error) {
	i, ok := f.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	return f.columns[i], nil
}

// AddColumn appends a text column, replacing any column with the same name.
func (f *Frame) AddColumn(name string, cells []string) error {
	if len(cells) != f.rows {
		return fmt.Errorf("column %q has %d values, frame has %d rows", name, len(cells), f.rows)
	}

	c := &Column{Name: name, Kind: KindText, Cells: cells}
	if i, ok := f.index[name]; ok {
		f.columns[i] = c
		return nil
	}

	f.index[name] = len(f.columns)
	f.columns = append(f.columns, c)
	return nil
}

// Head returns up to n rows of raw cells.
func (f *Frame) Head(n int) [][]string {
	if n > f.rows || n < 0 {
		n = f.rows
	}
	out := make([][]string, n)
	for i := range n {
		row := make([]string, len(f.columns))
		for j, c := range f.columns {
			row[j] = c.Cells[i]
		}
		out[i] = row
	}
	return out
}

// WriteCSV writes the header and all rows.
func (f *Frame) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Names()); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, row := range f.Head(-1) {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
