package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/mchmarny/riskdash/pkg/explain"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

const (
	summaryMaxFeatures = 20
	chartFormat        = "png"
	jitterSpread       = 0.6
)

var (
	// ErrNoData is returned when there is nothing to chart.
	ErrNoData = errors.New("no data to chart")

	lowColor  = color.RGBA{R: 0, G: 138, B: 250, A: 255}
	highColor = color.RGBA{R: 255, G: 0, B: 82, A: 255}
	barColor  = color.RGBA{R: 0, G: 138, B: 250, A: 255}
)

// Charts holds the rendered PNG images of an attribution.
type Charts struct {
	Summary []byte
	Top     []byte
}

// RenderCharts renders the summary and top feature charts concurrently.
func RenderCharts(ctx context.Context, a *explain.Attribution, X mat.Matrix, top []explain.Ranked) (*Charts, error) {
	c := &Charts{}
	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		b, err := SummaryPlot(a, X)
		if err != nil {
			return fmt.Errorf("rendering summary plot: %w", err)
		}
		c.Summary = b
		return nil
	})

	g.Go(func() error {
		b, err := TopPlot(top)
		if err != nil {
			return fmt.Errorf("rendering top features plot: %w", err)
		}
		c.Top = b
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return c, nil
}

// SummaryPlot renders one horizontal band per feature (most important on top)
// with a point per sample at its attribution value, colored by the sample's
// feature value from low (blue) to high (red).
func SummaryPlot(a *explain.Attribution, X mat.Matrix) ([]byte, error) {
	r, c := a.Values.Dims()
	if r == 0 || c == 0 {
		return nil, ErrNoData
	}
	if xr, xc := X.Dims(); xr != r || xc != c {
		return nil, fmt.Errorf("feature matrix is %dx%d, attribution is %dx%d", xr, xc, r, c)
	}

	n := min(c, summaryMaxFeatures)
	order := a.Top(n)
	index := make(map[string]int, c)
	for j, f := range a.Features {
		index[f] = j
	}

	p := plot.New()
	p.Title.Text = "Feature attribution summary"
	p.X.Label.Text = "SHAP value (impact on model output)"
	p.Add(plotter.NewGrid())

	names := make([]string, n)
	for rank, ranked := range order {
		j := index[ranked.Feature]
		y := float64(n - 1 - rank)
		names[n-1-rank] = ranked.Feature

		pts := make(plotter.XYs, r)
		for i := range r {
			pts[i].X = a.Values.At(i, j)
			pts[i].Y = y + jitter(i)
		}

		s, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, fmt.Errorf("creating scatter for %s: %w", ranked.Feature, err)
		}

		norm := normalize(mat.Col(nil, j, X))
		s.GlyphStyleFunc = func(i int) draw.GlyphStyle {
			return draw.GlyphStyle{
				Color:  ramp(norm[i]),
				Radius: vg.Points(2),
				Shape:  draw.CircleGlyph{},
			}
		}
		p.Add(s)
	}
	p.NominalY(names...)

	return render(p, 7*vg.Inch, vg.Length(n)*0.4*vg.Inch+1.5*vg.Inch)
}

// TopPlot renders the ranked features as horizontal bars, largest on top.
func TopPlot(top []explain.Ranked) ([]byte, error) {
	if len(top) == 0 {
		return nil, ErrNoData
	}

	n := len(top)
	vals := make(plotter.Values, n)
	names := make([]string, n)
	for i, t := range top {
		vals[n-1-i] = t.Value
		names[n-1-i] = t.Feature
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Top %d features impacting risk prediction", n)
	p.X.Label.Text = "mean(|SHAP value|)"

	bars, err := plotter.NewBarChart(vals, vg.Points(18))
	if err != nil {
		return nil, fmt.Errorf("creating bar chart: %w", err)
	}
	bars.Horizontal = true
	bars.Color = barColor
	bars.LineStyle.Width = 0

	p.Add(bars)
	p.NominalY(names...)

	return render(p, 7*vg.Inch, vg.Length(n)*0.4*vg.Inch+1.5*vg.Inch)
}

func render(p *plot.Plot, w, h vg.Length) ([]byte, error) {
	wt, err := p.WriterTo(w, h, chartFormat)
	if err != nil {
		return nil, fmt.Errorf("creating %s writer: %w", chartFormat, err)
	}

	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encoding %s: %w", chartFormat, err)
	}
	return buf.Bytes(), nil
}

// jitter spreads points vertically within a band, deterministically.
func jitter(i int) float64 {
	return (float64((i*7919)%97)/96.0 - 0.5) * jitterSpread
}

// normalize min-max scales values into [0, 1]; constant columns map to 0.5.
func normalize(v []float64) []float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, x := range v {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	out := make([]float64, len(v))
	for i, x := range v {
		if hi == lo {
			out[i] = 0.5
			continue
		}
		out[i] = (x - lo) / (hi - lo)
	}
	return out
}

func ramp(t float64) color.Color {
	mix := func(a, b uint8) uint8 {
		return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
	}
	return color.RGBA{
		R: mix(lowColor.R, highColor.R),
		G: mix(lowColor.G, highColor.G),
		B: mix(lowColor.B, highColor.B),
		A: 255,
	}
}
