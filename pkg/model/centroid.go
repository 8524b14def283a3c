package model

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// NearestCentroid assigns each row to the class with the closest centroid.
type NearestCentroid struct {
	centroids *mat.Dense // k x d
}

// NewNearestCentroid builds a model from one centroid per class.
func NewNearestCentroid(centroids [][]float64) (*NearestCentroid, error) {
	if len(centroids) < 2 || len(centroids[0]) == 0 {
		return nil, errors.New("at least two non-empty centroids required")
	}

	k, d := len(centroids), len(centroids[0])
	c := mat.NewDense(k, d, nil)
	for i, row := range centroids {
		if len(row) != d {
			return nil, fmt.Errorf("centroid %d has %d values, want %d", i, len(row), d)
		}
		c.SetRow(i, row)
	}

	return &NearestCentroid{centroids: c}, nil
}

func (m *NearestCentroid) NumFeatures() int {
	_, d := m.centroids.Dims()
	return d
}

func (m *NearestCentroid) NumClasses() int {
	k, _ := m.centroids.Dims()
	return k
}

// Predict returns the index of the nearest centroid (Euclidean) per row.
func (m *NearestCentroid) Predict(X mat.Matrix) ([]int, error) {
	if err := checkInput(X, m.NumFeatures()); err != nil {
		return nil, err
	}

	r, _ := X.Dims()
	k, _ := m.centroids.Dims()
	out := make([]int, r)
	dist := make([]float64, k)
	row := make([]float64, m.NumFeatures())
	for i := range r {
		mat.Row(row, i, X)
		for c := range k {
			// negated so argmax picks the nearest
			dist[c] = -floats.Distance(row, m.centroids.RawRowView(c), 2)
		}
		out[i] = argmax(dist)
	}

	return out, nil
}
