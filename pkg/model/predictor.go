package model

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Predictor runs a classifier and decodes its output into risk labels.
type Predictor struct {
	Model   Classifier
	Encoder *LabelEncoder
}

// Predict returns one label and one class index per row of X, in row order.
func (p *Predictor) Predict(X mat.Matrix) ([]string, []int, error) {
	if p.Model == nil || p.Encoder == nil {
		return nil, nil, errors.New("predictor requires a model and a label encoder")
	}

	classes, err := p.Model.Predict(X)
	if err != nil {
		return nil, nil, fmt.Errorf("predicting: %w", err)
	}

	labels, err := p.Encoder.Decode(classes)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding predictions: %w", err)
	}

	return labels, classes, nil
}
