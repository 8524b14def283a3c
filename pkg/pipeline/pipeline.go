package pipeline

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mchmarny/riskdash/pkg/align"
	"github.com/mchmarny/riskdash/pkg/artifact"
	"github.com/mchmarny/riskdash/pkg/config"
	"github.com/mchmarny/riskdash/pkg/credit"
	"github.com/mchmarny/riskdash/pkg/data"
	"github.com/mchmarny/riskdash/pkg/dataset"
	"github.com/mchmarny/riskdash/pkg/explain"
	"github.com/mchmarny/riskdash/pkg/model"
	"github.com/mchmarny/riskdash/pkg/report"
)

// ExplainHint accompanies every recovered attribution failure.
const ExplainHint = "Attribution requires numeric input only and aligned features."

// Paths are the fixed output locations of a run.
type Paths struct {
	Predictions  string `json:"predictions" yaml:"predictions"`
	Attributions string `json:"attributions,omitempty" yaml:"attributions,omitempty"`
}

// Runner executes the upload pipeline. Runs are serialized because every run
// writes to the same output paths.
type Runner struct {
	Artifacts *artifact.Set
	Aligner   *align.Aligner
	Deriver   *credit.Deriver
	Paths     Paths
	Top       int
	Preview   int
	DB        *sql.DB

	mu sync.Mutex
}

// Result is everything one run produced. Fields after a recovered failure
// stay empty. ExplainError means no attributions were computed; SaveError and
// ChartError only affect the attribution file and the charts.
type Result struct {
	ID           string               `json:"id" yaml:"id"`
	Source       string               `json:"source" yaml:"source"`
	Rows         int                  `json:"rows" yaml:"rows"`
	Columns      []string             `json:"columns" yaml:"columns"`
	Preview      [][]string           `json:"preview" yaml:"preview"`
	Features     []string             `json:"features" yaml:"features"`
	Aligned      [][]float64          `json:"aligned" yaml:"aligned"`
	Filled       []string             `json:"filled,omitempty" yaml:"filled,omitempty"`
	Dropped      []string             `json:"dropped,omitempty" yaml:"dropped,omitempty"`
	Discarded    []string             `json:"discarded,omitempty" yaml:"discarded,omitempty"`
	Predictions  []string             `json:"predictions" yaml:"predictions"`
	CreditTypes  []string             `json:"credit_types" yaml:"creditTypes"`
	Labels       []*data.LabelCount   `json:"labels" yaml:"labels"`
	Outputs      Paths                `json:"outputs" yaml:"outputs"`
	Top          []explain.Ranked     `json:"top,omitempty" yaml:"top,omitempty"`
	Baseline     []float64            `json:"baseline,omitempty" yaml:"baseline,omitempty"`
	ExplainError string               `json:"explain_error,omitempty" yaml:"explainError,omitempty"`
	ExplainHint  string               `json:"explain_hint,omitempty" yaml:"explainHint,omitempty"`
	SaveError    string               `json:"save_error,omitempty" yaml:"saveError,omitempty"`
	ChartError   string               `json:"chart_error,omitempty" yaml:"chartError,omitempty"`
	Duration     time.Duration        `json:"duration" yaml:"duration"`
	CreatedAt    time.Time            `json:"created_at" yaml:"createdAt"`
	Attribution  *explain.Attribution `json:"-" yaml:"-"`
	Charts       *report.Charts       `json:"-" yaml:"-"`
}

// New creates a runner from loaded artifacts and config. db may be nil.
func New(set *artifact.Set, cfg *config.Config, db *sql.DB) (*Runner, error) {
	if set == nil {
		return nil, errors.New("artifacts required")
	}
	if cfg == nil {
		return nil, errors.New("config required")
	}

	a := align.New(set.Features)
	a.Drop = cfg.Align.Drop

	return &Runner{
		Artifacts: set,
		Aligner:   a,
		Deriver: &credit.Deriver{
			Columns: cfg.Credit.Columns,
			Prefix:  cfg.Credit.Prefix,
		},
		Paths: Paths{
			Predictions:  cfg.Output.Predictions,
			Attributions: cfg.Output.Attributions,
		},
		Top:     cfg.Report.Top,
		Preview: cfg.Report.Preview,
		DB:      db,
	}, nil
}

// Run executes one upload end to end. It stops at the first fatal error;
// attribution failures are recorded in Result.ExplainError instead.
func (p *Runner) Run(ctx context.Context, name string, r io.Reader) (*Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	res, err := p.run(ctx, name, r)
	runDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		runsTotal.WithLabelValues(resultFailure).Inc()
		return nil, err
	}

	res.Duration = time.Since(start)
	res.CreatedAt = start.UTC()

	if res.Partial() {
		runsTotal.WithLabelValues(resultPartial).Inc()
	} else {
		runsTotal.WithLabelValues(resultSuccess).Inc()
	}
	zeroFilled.Observe(float64(len(res.Filled)))
	for _, l := range res.Labels {
		predictionsTotal.WithLabelValues(l.Label).Add(float64(l.Count))
	}

	p.record(res)
	return res, nil
}

func (p *Runner) run(ctx context.Context, name string, r io.Reader) (*Result, error) {
	if p.Artifacts == nil || p.Aligner == nil || p.Deriver == nil {
		return nil, errors.New("runner not initialized")
	}

	log := slog.With("run", name)

	f, err := dataset.Read(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}

	m, err := p.Aligner.Align(f)
	if err != nil {
		return nil, fmt.Errorf("aligning features: %w", err)
	}
	log.Debug("features aligned", "rows", m.Rows(), "filled", len(m.Filled))

	pred := &model.Predictor{
		Model:   p.Artifacts.Model,
		Encoder: p.Artifacts.Encoder,
	}
	labels, classes, err := pred.Predict(m.X)
	if err != nil {
		return nil, err
	}

	types, err := p.Deriver.Derive(f)
	if err != nil {
		return nil, fmt.Errorf("deriving credit type: %w", err)
	}

	res := &Result{
		ID:          uuid.NewString(),
		Source:      name,
		Rows:        f.Rows(),
		Columns:     f.Names(),
		Preview:     f.Head(p.Preview),
		Features:    m.Features,
		Aligned:     m.Head(p.Preview),
		Filled:      m.Filled,
		Dropped:     m.Dropped,
		Discarded:   m.Discarded,
		Predictions: labels,
		CreditTypes: types,
		Labels:      countLabels(labels),
	}

	if err := f.AddColumn(explain.LabelColumn, labels); err != nil {
		return nil, fmt.Errorf("adding predictions: %w", err)
	}
	if err := f.AddColumn(credit.Column, types); err != nil {
		return nil, fmt.Errorf("adding credit type: %w", err)
	}
	if err := report.WritePredictions(p.Paths.Predictions, f); err != nil {
		return nil, fmt.Errorf("saving predictions: %w", err)
	}
	res.Outputs.Predictions = p.Paths.Predictions
	log.Info("predictions saved", "path", p.Paths.Predictions, "rows", res.Rows)

	if err := p.explain(ctx, log, res, m, classes); err != nil {
		log.Warn("attribution failed", "error", err)
		res.ExplainError = err.Error()
		res.ExplainHint = ExplainHint
	}

	return res, nil
}

// Partial reports whether any recoverable stage of the run failed.
func (r *Result) Partial() bool {
	return r.ExplainError != "" || r.SaveError != "" || r.ChartError != ""
}

// errorSummary joins the recovered failures of a run for the history record.
func (r *Result) errorSummary() string {
	var list []string
	for _, e := range []string{r.ExplainError, r.SaveError, r.ChartError} {
		if e != "" {
			list = append(list, e)
		}
	}
	return strings.Join(list, "; ")
}

// explain computes attributions, writes the long table and renders charts.
// The returned error means no attributions exist. Write and chart failures
// are reported on res and do not affect each other.
func (p *Runner) explain(ctx context.Context, log *slog.Logger, res *Result, m *align.Matrix, classes []int) error {
	ex, err := explain.NewLinear(p.Artifacts.Model, m.Features, m.X)
	if err != nil {
		return err
	}

	a, err := ex.Explain(m.X, classes, res.Predictions)
	if err != nil {
		return err
	}

	res.Attribution = a
	res.Top = a.Top(p.Top)
	res.Baseline = ex.Baseline()

	if err := report.WriteAttributions(p.Paths.Attributions, a); err != nil {
		log.Warn("attribution write failed", "path", p.Paths.Attributions, "error", err)
		res.SaveError = fmt.Sprintf("saving attributions: %v", err)
	} else {
		res.Outputs.Attributions = p.Paths.Attributions
		log.Info("attributions saved", "path", p.Paths.Attributions)
	}

	charts, err := report.RenderCharts(ctx, a, m.X, res.Top)
	if err != nil {
		log.Warn("chart rendering failed", "error", err)
		res.ChartError = err.Error()
		return nil
	}
	res.Charts = charts
	return nil
}

func (p *Runner) record(res *Result) {
	if p.DB == nil {
		return
	}

	run := &data.Run{
		ID:           res.ID,
		Source:       res.Source,
		Rows:         res.Rows,
		Features:     len(res.Features),
		Filled:       res.Filled,
		ExplainError: res.errorSummary(),
		DurationMS:   res.Duration.Milliseconds(),
		CreatedAt:    res.CreatedAt,
		Labels:       res.Labels,
	}
	for _, t := range res.Top {
		run.TopFeatures = append(run.TopFeatures, &data.FeatureRank{
			Feature: t.Feature,
			Value:   t.Value,
		})
	}

	if err := data.SaveRun(p.DB, run); err != nil {
		slog.Warn("saving run history", "run", res.ID, "error", err)
	}
}

// countLabels returns prediction counts, largest first then by label.
func countLabels(labels []string) []*data.LabelCount {
	counts := make(map[string]int)
	for _, l := range labels {
		counts[l]++
	}

	list := make([]*data.LabelCount, 0, len(counts))
	for l, c := range counts {
		list = append(list, &data.LabelCount{Label: l, Count: c})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Count != list[j].Count {
			return list[i].Count > list[j].Count
		}
		return list[i].Label < list[j].Label
	})
	return list
}

// IsInputError reports whether err was caused by the uploaded data rather
// than by the artifacts or the environment.
func IsInputError(err error) bool {
	var pe *csv.ParseError
	return errors.As(err, &pe) ||
		errors.Is(err, dataset.ErrEmpty) ||
		errors.Is(err, align.ErrNoRows) ||
		errors.Is(err, credit.ErrMissingColumn) ||
		errors.Is(err, credit.ErrNoIndicator) ||
		errors.Is(err, credit.ErrIndicatorType) ||
		errors.Is(err, model.ErrNotFinite)
}
