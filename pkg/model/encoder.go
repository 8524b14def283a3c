package model

import (
	"errors"
	"fmt"
)

// ErrUnknownClass is returned when a class index has no label.
var ErrUnknownClass = errors.New("class index has no label")

// LabelEncoder is a fixed mapping between class indices and risk labels.
type LabelEncoder struct {
	Classes []string `json:"classes" yaml:"classes" validate:"required,min=2,unique,dive,required"`
}

// Decode maps class indices back to labels, preserving order.
func (e *LabelEncoder) Decode(idx []int) ([]string, error) {
	out := make([]string, len(idx))
	for i, c := range idx {
		if c < 0 || c >= len(e.Classes) {
			return nil, fmt.Errorf("%w: %d (row %d)", ErrUnknownClass, c, i)
		}
		out[i] = e.Classes[c]
	}
	return out, nil
}

// Encode maps a label to its class index.
func (e *LabelEncoder) Encode(label string) (int, error) {
	for i, c := range e.Classes {
		if c == label {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown label %q", label)
}
