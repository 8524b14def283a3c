package align

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/mchmarny/riskdash/pkg/dataset"
	"gonum.org/v1/gonum/mat"
)

var (
	// DefaultDrop lists target and leakage columns removed before alignment.
	DefaultDrop = []string{"risk_score", "credit_risk", "credit_risk_binary"}

	// ErrNoRows is returned when the uploaded dataset has no data rows.
	ErrNoRows = errors.New("dataset has no rows")

	// ErrNoSchema is returned when the aligner has no feature schema.
	ErrNoSchema = errors.New("feature schema is empty")
)

// Aligner reshapes an arbitrary uploaded dataset into the exact input schema
// the classifier expects.
//
// Schema features absent from the upload are filled with zeros. This is a
// policy, not an inferred value: the pipeline stays runnable under schema drift
// and the filled features are reported back to the caller in Matrix.Filled.
type Aligner struct {
	Drop   []string
	Schema []string
}

// Matrix is the aligned feature matrix. Features always equals the schema.
type Matrix struct {
	Features  []string   `json:"features"`
	X         *mat.Dense `json:"-"`
	Filled    []string   `json:"filled,omitempty"`
	Dropped   []string   `json:"dropped,omitempty"`
	Discarded []string   `json:"discarded,omitempty"`
}

// New creates an aligner for the schema using the default denylist.
func New(schema []string) *Aligner {
	return &Aligner{
		Drop:   DefaultDrop,
		Schema: schema,
	}
}

// Align drops denylisted columns, restricts to numeric columns, zero-fills
// missing schema features and orders the result to match the schema.
func (a *Aligner) Align(f *dataset.Frame) (*Matrix, error) {
	if len(a.Schema) == 0 {
		return nil, ErrNoSchema
	}
	if f == nil || f.Rows() == 0 {
		return nil, ErrNoRows
	}

	m := &Matrix{
		Features: make([]string, len(a.Schema)),
		X:        mat.NewDense(f.Rows(), len(a.Schema), nil),
	}
	copy(m.Features, a.Schema)

	drop := make(map[string]bool, len(a.Drop))
	for _, name := range a.Drop {
		drop[name] = true
	}

	// numeric columns remaining after the denylist
	numeric := make(map[string]*dataset.Column)
	for _, c := range f.Columns() {
		if drop[c.Name] {
			m.Dropped = append(m.Dropped, c.Name)
			continue
		}
		if c.Kind != dataset.KindNumeric {
			continue
		}
		numeric[c.Name] = c
	}

	inSchema := make(map[string]bool, len(a.Schema))
	for j, name := range a.Schema {
		if inSchema[name] {
			return nil, fmt.Errorf("duplicate schema feature %q", name)
		}
		inSchema[name] = true

		c, ok := numeric[name]
		if !ok {
			// mat.NewDense is zero-initialized
			m.Filled = append(m.Filled, name)
			continue
		}
		m.X.SetCol(j, c.Values)
	}

	for _, c := range f.Columns() {
		if _, ok := numeric[c.Name]; ok && !inSchema[c.Name] {
			m.Discarded = append(m.Discarded, c.Name)
		}
	}

	if len(m.Filled) > 0 {
		slog.Warn("schema features missing from upload, zero-filled",
			"count", len(m.Filled), "features", m.Filled)
	}
	slog.Debug("aligned features",
		"rows", f.Rows(),
		"features", len(m.Features),
		"dropped", m.Dropped,
		"discarded", len(m.Discarded))

	return m, nil
}

// Rows returns the number of aligned rows.
func (m *Matrix) Rows() int {
	r, _ := m.X.Dims()
	return r
}

// Head returns up to n aligned rows.
func (m *Matrix) Head(n int) [][]float64 {
	r, _ := m.X.Dims()
	if n > r || n < 0 {
		n = r
	}
	out := make([][]float64, n)
	for i := range n {
		out[i] = mat.Row(nil, i, m.X)
	}
	return out
}
