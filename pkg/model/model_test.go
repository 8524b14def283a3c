package model

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestLogisticRegression_Binary(t *testing.T) {
	m, err := NewLogisticRegression([][]float64{{1, -1}}, []float64{0})
	require.NoError(t, err)
	assert.Equal(t, 2, m.NumClasses())
	assert.Equal(t, 2, m.NumFeatures())

	X := mat.NewDense(3, 2, []float64{
		2, 1, // 1 -> class 1
		1, 2, // -1 -> class 0
		1, 1, // 0 -> class 1 (p = 0.5)
	})
	got, err := m.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0, 1}, got)

	// binary models explain every class with the single row
	assert.Equal(t, []float64{1, -1}, m.Coef(0))
	assert.Equal(t, []float64{1, -1}, m.Coef(1))
}

func TestLogisticRegression_Multinomial(t *testing.T) {
	m, err := NewLogisticRegression(
		[][]float64{{1, 0}, {0, 1}, {0, 0}},
		[]float64{0, 0, 0.5},
	)
	require.NoError(t, err)
	assert.Equal(t, 3, m.NumClasses())

	X := mat.NewDense(4, 2, []float64{
		2, 0,
		0, 2,
		0.1, 0.1,
		1, 1, // tie between 0 and 1 -> lowest index
	})
	got, err := m.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 0}, got)
	assert.Equal(t, []float64{0, 1}, m.Coef(1))
}

func TestLogisticRegression_Errors(t *testing.T) {
	_, err := NewLogisticRegression(nil, nil)
	assert.Error(t, err)

	_, err = NewLogisticRegression([][]float64{{1, 2}}, []float64{0, 1})
	assert.Error(t, err)

	_, err = NewLogisticRegression([][]float64{{1, 2}, {1}}, []float64{0, 1})
	assert.Error(t, err)

	m, err := NewLogisticRegression([][]float64{{1, 2}}, []float64{0})
	require.NoError(t, err)

	_, err = m.Predict(mat.NewDense(1, 3, nil))
	assert.ErrorIs(t, err, ErrShape)

	_, err = m.Predict(mat.NewDense(1, 2, []float64{math.NaN(), 1}))
	assert.ErrorIs(t, err, ErrNotFinite)
}

func TestNearestCentroid(t *testing.T) {
	m, err := NewNearestCentroid([][]float64{{0, 0}, {10, 10}})
	require.NoError(t, err)
	assert.Equal(t, 2, m.NumClasses())

	got, err := m.Predict(mat.NewDense(3, 2, []float64{1, 1, 9, 8, 5, 5}))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 0}, got)

	_, ok := any(m).(Linear)
	assert.False(t, ok)

	_, err = NewNearestCentroid([][]float64{{1}})
	assert.Error(t, err)
}

func TestLabelEncoder(t *testing.T) {
	e := &LabelEncoder{Classes: []string{"High", "Low", "Medium"}}

	got, err := e.Decode([]int{2, 0, 1, 0})
	require.NoError(t, err)
	assert.Equal(t, []string{"Medium", "High", "Low", "High"}, got)

	_, err = e.Decode([]int{3})
	assert.ErrorIs(t, err, ErrUnknownClass)

	i, err := e.Encode("Low")
	require.NoError(t, err)
	assert.Equal(t, 1, i)

	_, err = e.Encode("None")
	assert.Error(t, err)
}

func TestDecodeClassifier(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr bool
		linear  bool
	}{
		{"logistic", `{"kind":"logistic","coef":[[1,2]],"intercept":[0]}`, false, true},
		{"centroid", `{"kind":"centroid","centroids":[[0],[1]]}`, false, false},
		{"unknown kind", `{"kind":"forest"}`, true, false},
		{"missing coef", `{"kind":"logistic","intercept":[0]}`, true, false},
		{"missing centroids", `{"kind":"centroid"}`, true, false},
		{"corrupt", `{"kind":`, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := DecodeClassifier(strings.NewReader(tt.doc))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			_, ok := c.(Linear)
			assert.Equal(t, tt.linear, ok)
		})
	}
}

func TestEncodeClassifier_RoundTrip(t *testing.T) {
	m, err := NewLogisticRegression([][]float64{{1, 2}, {3, 4}}, []float64{0.5, -0.5})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, EncodeClassifier(&buf, m))

	c, err := DecodeClassifier(&buf)
	require.NoError(t, err)

	X := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	want, err := m.Predict(X)
	require.NoError(t, err)
	got, err := c.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDecodeEncoder(t *testing.T) {
	e, err := DecodeEncoder(strings.NewReader(`{"classes":["High","Low"]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"High", "Low"}, e.Classes)

	_, err = DecodeEncoder(strings.NewReader(`{"classes":["High"]}`))
	assert.Error(t, err)

	_, err = DecodeEncoder(strings.NewReader(`{"classes":["High","High"]}`))
	assert.Error(t, err)
}

func TestPredictor(t *testing.T) {
	m, err := NewLogisticRegression([][]float64{{1}}, []float64{-1})
	require.NoError(t, err)
	p := &Predictor{Model: m, Encoder: &LabelEncoder{Classes: []string{"Low", "High"}}}

	labels, classes, err := p.Predict(mat.NewDense(3, 1, []float64{0, 2, 1}))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 1}, classes)
	assert.Equal(t, []string{"Low", "High", "High"}, labels)

	_, _, err = (&Predictor{}).Predict(mat.NewDense(1, 1, nil))
	assert.Error(t, err)
}
