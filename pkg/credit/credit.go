package credit

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/mchmarny/riskdash/pkg/dataset"
)

const (
	// Column is the name of the derived credit type column.
	Column = "Credit_Type"

	// DefaultPrefix is stripped from the winning indicator column name.
	DefaultPrefix = "Credit_Type_"

	// ColumnCount is the number of one-hot credit type indicators.
	ColumnCount = 4
)

var (
	// DefaultColumns are the mutually exclusive one-hot credit type indicators.
	DefaultColumns = []string{
		"Credit_Type_Consumer credit",
		"Credit_Type_Household credit",
		"Credit_Type_Residential mortgage credit",
		"Credit_Type_Total business and household credit",
	}

	// ErrMissingColumn is returned when a required indicator column is absent.
	ErrMissingColumn = errors.New("missing credit type indicator column")

	// ErrIndicatorType is returned when an indicator column holds text values.
	ErrIndicatorType = errors.New("credit type indicator column is not numeric")

	// ErrColumnCount is returned when the deriver is not configured with
	// exactly four indicator columns.
	ErrColumnCount = errors.New("credit type requires four indicator columns")

	// ErrNoIndicator is returned when a row has no usable indicator value.
	ErrNoIndicator = errors.New("row has no credit type indicator value")
)

// Deriver collapses one-hot credit type indicators into a single category.
// All indicator columns are a hard requirement of the uploaded dataset.
type Deriver struct {
	Columns []string
	Prefix  string
}

// New creates a deriver over the default indicator columns.
func New() *Deriver {
	return &Deriver{
		Columns: DefaultColumns,
		Prefix:  DefaultPrefix,
	}
}

// Derive returns the credit type label per row: the indicator column with the
// largest value (first column on ties) with the prefix removed.
func (d *Deriver) Derive(f *dataset.Frame) ([]string, error) {
	if len(d.Columns) != ColumnCount {
		return nil, fmt.Errorf("%w: got %d", ErrColumnCount, len(d.Columns))
	}

	cols := make([]*dataset.Column, len(d.Columns))
	for i, name := range d.Columns {
		c, err := f.Column(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
		if c.Kind == dataset.KindText {
			return nil, fmt.Errorf("%w: %q", ErrIndicatorType, name)
		}
		cols[i] = c
	}

	out := make([]string, f.Rows())
	for row := range f.Rows() {
		best := -1
		for i, c := range cols {
			v := c.Values[row]
			if math.IsNaN(v) {
				continue
			}
			if best < 0 || v > cols[best].Values[row] {
				best = i
			}
		}
		if best < 0 {
			return nil, fmt.Errorf("%w: row %d", ErrNoIndicator, row)
		}
		out[row] = strings.TrimPrefix(d.Columns[best], d.Prefix)
	}

	return out, nil
}
