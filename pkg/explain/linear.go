package explain

import (
	"errors"
	"fmt"

	"github.com/mchmarny/riskdash/pkg/model"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrUnsupportedModel is returned for classifiers that are not linear.
	ErrUnsupportedModel = errors.New("model type is not supported by the linear explainer")

	// ErrShape is returned when matrix dimensions disagree.
	ErrShape = errors.New("attribution input shape mismatch")
)

// Linear computes exact attributions for linear classifiers assuming
// independent features: phi[i][j] = coef[c_i][j] * (x[i][j] - mean[j]), where
// c_i is the class predicted for row i and mean is taken over the background.
type Linear struct {
	model    model.Linear
	features []string
	mean     []float64
}

// NewLinear builds an explainer over the background data (usually the aligned
// upload itself).
func NewLinear(m model.Classifier, features []string, background mat.Matrix) (*Linear, error) {
	lm, ok := m.(model.Linear)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedModel, m)
	}

	r, c := background.Dims()
	if c != lm.NumFeatures() || c != len(features) {
		return nil, fmt.Errorf("%w: background has %d columns, model %d, features %d",
			ErrShape, c, lm.NumFeatures(), len(features))
	}
	if r == 0 {
		return nil, fmt.Errorf("%w: empty background", ErrShape)
	}

	mean := make([]float64, c)
	col := make([]float64, r)
	for j := range c {
		mat.Col(col, j, background)
		mean[j] = stat.Mean(col, nil)
	}

	return &Linear{
		model:    lm,
		features: features,
		mean:     mean,
	}, nil
}

// Baseline returns the background feature means.
func (l *Linear) Baseline() []float64 {
	out := make([]float64, len(l.mean))
	copy(out, l.mean)
	return out
}

// Explain returns per-row, per-feature attribution values for the predicted
// classes. labels are carried into the wide and long tables.
func (l *Linear) Explain(X mat.Matrix, classes []int, labels []string) (*Attribution, error) {
	r, c := X.Dims()
	if c != len(l.features) {
		return nil, fmt.Errorf("%w: got %d columns, want %d", ErrShape, c, len(l.features))
	}
	if len(classes) != r || len(labels) != r {
		return nil, fmt.Errorf("%w: %d rows, %d classes, %d labels", ErrShape, r, len(classes), len(labels))
	}

	coef := make(map[int][]float64)
	values := mat.NewDense(r, c, nil)
	for i := range r {
		w, ok := coef[classes[i]]
		if !ok {
			if classes[i] < 0 || classes[i] >= l.model.NumClasses() {
				return nil, fmt.Errorf("class %d out of range for row %d", classes[i], i)
			}
			w = l.model.Coef(classes[i])
			coef[classes[i]] = w
		}
		for j := range c {
			values.Set(i, j, w[j]*(X.At(i, j)-l.mean[j]))
		}
	}

	a := &Attribution{
		Features: make([]string, c),
		Labels:   make([]string, r),
		Values:   values,
	}
	copy(a.Features, l.features)
	copy(a.Labels, labels)

	return a, nil
}
