package cli

import (
	"context"
	"fmt"

	"github.com/mchmarny/riskdash/pkg/data"
	"github.com/urfave/cli/v3"
)

const (
	runsLimitDefault = 20
	runsLimitMax     = 500
)

var (
	runsLimitFlag = &cli.IntFlag{
		Name:  "limit",
		Usage: fmt.Sprintf("Maximum number of runs to list (max: %d)", runsLimitMax),
		Value: runsLimitDefault,
	}

	runIDFlag = &cli.StringFlag{
		Name:  "id",
		Usage: "Show a single run with its top features",
	}

	runsCmd = &cli.Command{
		Name:            "runs",
		Aliases:         []string{"r"},
		Usage:           "List pipeline run history",
		HideHelpCommand: true,
		Action:          cmdRuns,
		Flags: []cli.Flag{
			runsLimitFlag,
			runIDFlag,
		},
	}
)

func cmdRuns(_ context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)

	if id := cmd.String(runIDFlag.Name); id != "" {
		r, err := data.GetRun(cfg.DB, id)
		if err != nil {
			return fmt.Errorf("getting run: %w", err)
		}
		return encode(r)
	}

	limit := int(cmd.Int(runsLimitFlag.Name))
	if limit <= 0 || limit > runsLimitMax {
		limit = runsLimitDefault
	}

	list, err := data.GetRuns(cfg.DB, limit)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}

	return encode(list)
}
