package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mchmarny/riskdash/pkg/dataset"
	"github.com/mchmarny/riskdash/pkg/explain"
)

const (
	dirMode  = 0700
	fileMode = 0600
)

// WritePredictions persists the uploaded frame, including the derived
// prediction and credit type columns, to path.
func WritePredictions(path string, f *dataset.Frame) error {
	return writeFile(path, f.WriteCSV)
}

// WriteAttributions persists the long attribution table to path.
func WriteAttributions(path string, a *explain.Attribution) error {
	return writeFile(path, func(w io.Writer) error {
		return writeLong(w, a.Long())
	})
}

func writeLong(w io.Writer, records []explain.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{explain.LabelColumn, explain.FeatureColumn, explain.ValueColumn}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write([]string{r.Label, r.Feature, explain.FormatValue(r.Value)}); err != nil {
			return fmt.Errorf("writing record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeFile(path string, fn func(io.Writer) error) (retErr error) {
	if path == "" {
		return fmt.Errorf("output path required")
	}

	if err := os.MkdirAll(filepath.Dir(path), dirMode); err != nil {
		return fmt.Errorf("creating output dir for %s: %w", path, err)
	}

	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fileMode)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && retErr == nil {
			retErr = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()

	if err := fn(out); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	slog.Debug("report written", "path", path)
	return nil
}
