package model

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// LogisticRegression is a fitted linear classifier. A single coefficient row
// is a binary model scoring class 1; k rows form a multinomial model.
type LogisticRegression struct {
	w *mat.Dense // k x d
	b []float64
}

// NewLogisticRegression builds a model from coefficient rows and intercepts.
func NewLogisticRegression(coef [][]float64, intercept []float64) (*LogisticRegression, error) {
	if len(coef) == 0 || len(coef[0]) == 0 {
		return nil, errors.New("coefficients required")
	}
	if len(intercept) != len(coef) {
		return nil, fmt.Errorf("intercept has %d values, coefficients have %d rows", len(intercept), len(coef))
	}

	k, d := len(coef), len(coef[0])
	w := mat.NewDense(k, d, nil)
	for i, row := range coef {
		if len(row) != d {
			return nil, fmt.Errorf("coefficient row %d has %d values, want %d", i, len(row), d)
		}
		w.SetRow(i, row)
	}

	b := make([]float64, k)
	copy(b, intercept)

	return &LogisticRegression{w: w, b: b}, nil
}

// NumFeatures returns the input width.
func (m *LogisticRegression) NumFeatures() int {
	_, d := m.w.Dims()
	return d
}

// NumClasses returns 2 for binary models, otherwise the number of rows.
func (m *LogisticRegression) NumClasses() int {
	k, _ := m.w.Dims()
	if k == 1 {
		return 2
	}
	return k
}

// Coef returns a copy of the coefficient row that scores class.
func (m *LogisticRegression) Coef(class int) []float64 {
	k, _ := m.w.Dims()
	if k == 1 {
		class = 0
	}
	return mat.Row(nil, class, m.w)
}

// Predict returns the class index per row, preserving row order.
func (m *LogisticRegression) Predict(X mat.Matrix) ([]int, error) {
	if err := checkInput(X, m.NumFeatures()); err != nil {
		return nil, err
	}

	r, _ := X.Dims()
	k, _ := m.w.Dims()

	var z mat.Dense
	z.Mul(X, m.w.T())

	out := make([]int, r)
	scores := make([]float64, k)
	for i := range r {
		for c := range k {
			scores[c] = z.At(i, c) + m.b[c]
		}
		if k == 1 {
			// p(y=1) >= 0.5
			if scores[0] >= 0 {
				out[i] = 1
			}
			continue
		}
		out[i] = argmax(scores)
	}

	return out, nil
}
