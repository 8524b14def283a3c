package explain

import (
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/mat"
)

const (
	LabelColumn   = "Predicted Credit Risk"
	FeatureColumn = "Feature"
	ValueColumn   = "SHAP_value"
)

// Attribution holds one value per (row, feature) pair.
type Attribution struct {
	Features []string
	Labels   []string
	Values   *mat.Dense
}

// Record is one row of the long (melted) attribution table.
type Record struct {
	Label   string  `json:"label" yaml:"label"`
	Feature string  `json:"feature" yaml:"feature"`
	Value   float64 `json:"value" yaml:"value"`
}

// Ranked is a feature with its mean absolute attribution.
type Ranked struct {
	Feature string  `json:"feature" yaml:"feature"`
	Value   float64 `json:"value" yaml:"value"`
}

// Rows returns the number of samples.
func (a *Attribution) Rows() int {
	r, _ := a.Values.Dims()
	return r
}

// Wide returns the header and rows of the wide table: one row per sample,
// one column per feature followed by the predicted label.
func (a *Attribution) Wide() ([]string, [][]string) {
	header := make([]string, 0, len(a.Features)+1)
	header = append(header, a.Features...)
	header = append(header, LabelColumn)

	r, c := a.Values.Dims()
	rows := make([][]string, r)
	for i := range r {
		row := make([]string, c+1)
		for j := range c {
			row[j] = FormatValue(a.Values.At(i, j))
		}
		row[c] = a.Labels[i]
		rows[i] = row
	}
	return header, rows
}

// Long melts the wide table keeping the label as identifier. Records are
// feature-major: all rows for the first feature, then the second, and so on.
func (a *Attribution) Long() []Record {
	r, c := a.Values.Dims()
	out := make([]Record, 0, r*c)
	for j := range c {
		for i := range r {
			out = append(out, Record{
				Label:   a.Labels[i],
				Feature: a.Features[j],
				Value:   a.Values.At(i, j),
			})
		}
	}
	return out
}

// MeanAbs returns the mean absolute attribution per feature, in feature order.
func (a *Attribution) MeanAbs() []float64 {
	r, c := a.Values.Dims()
	out := make([]float64, c)
	for j := range c {
		s := 0.0
		for i := range r {
			s += math.Abs(a.Values.At(i, j))
		}
		out[j] = s / float64(r)
	}
	return out
}

// Top ranks features by mean absolute attribution, descending, and returns
// the first n. Equal values keep feature order.
func (a *Attribution) Top(n int) []Ranked {
	means := a.MeanAbs()
	ranked := make([]Ranked, len(means))
	for j, v := range means {
		ranked[j] = Ranked{Feature: a.Features[j], Value: v}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Value > ranked[j].Value
	})
	if n >= 0 && n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

// FormatValue renders a float the shortest way that round-trips.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
