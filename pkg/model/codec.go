package model

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
)

const (
	KindLogistic = "logistic"
	KindCentroid = "centroid"
)

var validate = validator.New()

// Document is the serialized form of a trained classifier.
type Document struct {
	Kind      string      `json:"kind" validate:"required,oneof=logistic centroid"`
	Coef      [][]float64 `json:"coef,omitempty" validate:"required_if=Kind logistic"`
	Intercept []float64   `json:"intercept,omitempty" validate:"required_if=Kind logistic"`
	Centroids [][]float64 `json:"centroids,omitempty" validate:"required_if=Kind centroid"`
}

// DecodeClassifier reads a classifier document.
func DecodeClassifier(r io.Reader) (Classifier, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding model: %w", err)
	}
	if err := validate.Struct(&doc); err != nil {
		return nil, fmt.Errorf("validating model: %w", err)
	}

	switch doc.Kind {
	case KindCentroid:
		return NewNearestCentroid(doc.Centroids)
	default:
		return NewLogisticRegression(doc.Coef, doc.Intercept)
	}
}

// EncodeClassifier writes the document form of a supported classifier.
func EncodeClassifier(w io.Writer, c Classifier) error {
	var doc Document
	switch m := c.(type) {
	case *LogisticRegression:
		k, _ := m.w.Dims()
		doc.Kind = KindLogistic
		doc.Intercept = m.b
		for i := range k {
			doc.Coef = append(doc.Coef, m.w.RawRowView(i))
		}
	case *NearestCentroid:
		doc.Kind = KindCentroid
		for i := range m.NumClasses() {
			doc.Centroids = append(doc.Centroids, m.centroids.RawRowView(i))
		}
	default:
		return fmt.Errorf("unsupported classifier type: %T", c)
	}

	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(&doc)
}

// DecodeEncoder reads a label encoder document.
func DecodeEncoder(r io.Reader) (*LabelEncoder, error) {
	var e LabelEncoder
	if err := json.NewDecoder(r).Decode(&e); err != nil {
		return nil, fmt.Errorf("decoding label encoder: %w", err)
	}
	if err := validate.Struct(&e); err != nil {
		return nil, fmt.Errorf("validating label encoder: %w", err)
	}
	return &e, nil
}
