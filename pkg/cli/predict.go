package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mchmarny/riskdash/pkg/artifact"
	"github.com/mchmarny/riskdash/pkg/net"
	"github.com/mchmarny/riskdash/pkg/pipeline"
	"github.com/urfave/cli/v3"
)

const (
	summaryChartFile = "attribution_summary.png"
	topChartFile     = "top_features.png"
	chartFileMode    = 0600
	chartDirMode     = 0700
)

var (
	inputFileFlag = &cli.StringFlag{
		Name:    "file",
		Aliases: []string{"f"},
		Usage:   "Path to the CSV file to score",
	}

	chartDirFlag = &cli.StringFlag{
		Name:  "charts",
		Usage: "Directory to write attribution charts to (optional)",
	}

	predictCmd = &cli.Command{
		Name:    "predict",
		Aliases: []string{"p"},
		Usage:   "Score a CSV file and save predictions and attributions",
		UsageText: `riskdash predict --file loans.csv
   riskdash predict --file loans.csv --charts ./charts --format yaml`,
		HideHelpCommand: true,
		Action:          cmdPredict,
		Flags: []cli.Flag{
			inputFileFlag,
			chartDirFlag,
		},
	}
)

type predictSummary struct {
	*pipeline.Result `yaml:",inline"`
	Charts           []string `json:"charts,omitempty" yaml:"charts,omitempty"`
}

func cmdPredict(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String(inputFileFlag.Name)
	if path == "" {
		return cli.ShowSubcommandHelp(cmd)
	}

	cfg := getConfig(cmd)

	runner, err := newRunner(ctx, cfg)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	res, err := runner.Run(ctx, filepath.Base(path), f)
	if err != nil {
		return fmt.Errorf("running pipeline on %s: %w", path, err)
	}

	if res.ExplainError != "" {
		slog.Warn("attributions unavailable", "error", res.ExplainError, "hint", res.ExplainHint)
	}
	if res.SaveError != "" {
		slog.Warn("attributions not saved", "error", res.SaveError)
	}
	if res.ChartError != "" {
		slog.Warn("charts not rendered", "error", res.ChartError)
	}

	out := &predictSummary{Result: res}
	if dir := cmd.String(chartDirFlag.Name); dir != "" && res.Charts != nil {
		if out.Charts, err = writeCharts(dir, res); err != nil {
			return err
		}
	}

	return encode(out)
}

// newRunner loads the configured artifacts and builds a pipeline runner.
func newRunner(ctx context.Context, cfg *appConfig) (*pipeline.Runner, error) {
	token, err := getArtifactToken(cfg.HomeDir)
	if err != nil {
		slog.Debug("no artifact token, using anonymous client", "error", err)
	}

	loader := &artifact.Loader{
		CacheDir: filepath.Join(cfg.HomeDir, cacheDirName),
		Client:   net.GetHTTPClient(ctx, token),
	}

	set, err := loader.Load(ctx, cfg.Config.Artifacts)
	if err != nil {
		return nil, fmt.Errorf("loading artifacts: %w", err)
	}

	return pipeline.New(set, cfg.Config, cfg.DB)
}

func writeCharts(dir string, res *pipeline.Result) ([]string, error) {
	if err := os.MkdirAll(dir, chartDirMode); err != nil {
		return nil, fmt.Errorf("creating chart dir %s: %w", dir, err)
	}

	charts := []struct {
		name string
		b    []byte
	}{
		{summaryChartFile, res.Charts.Summary},
		{topChartFile, res.Charts.Top},
	}

	list := make([]string, 0, len(charts))
	for _, c := range charts {
		p := filepath.Join(dir, c.name)
		if err := os.WriteFile(p, c.b, chartFileMode); err != nil {
			return nil, fmt.Errorf("writing chart %s: %w", p, err)
		}
		list = append(list, p)
	}
	return list, nil
}
