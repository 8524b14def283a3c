package model

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrShape is returned when input dimensions do not match the model.
	ErrShape = errors.New("input shape does not match model")

	// ErrNotFinite is returned when the input contains NaN or Inf values.
	ErrNotFinite = errors.New("input contains NaN or infinite values")
)

// Classifier maps each row of X to a class index.
type Classifier interface {
	Predict(X mat.Matrix) ([]int, error)
	NumFeatures() int
	NumClasses() int
}

// Linear is a classifier whose decision for a class is an affine function of
// the input. Coef returns the coefficient row that scores the given class.
type Linear interface {
	Classifier
	Coef(class int) []float64
}

func checkInput(X mat.Matrix, features int) error {
	r, c := X.Dims()
	if c != features {
		return fmt.Errorf("%w: got %d features, want %d", ErrShape, c, features)
	}
	for i := range r {
		for j := range c {
			v := X.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: row %d, column %d", ErrNotFinite, i, j)
			}
		}
	}
	return nil
}

// argmax returns the index of the largest value, lowest index on ties.
func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
