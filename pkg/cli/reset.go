package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mchmarny/riskdash/pkg/data"
	"github.com/urfave/cli/v3"
)

var (
	yesFlag = &cli.BoolFlag{
		Name:    "yes",
		Aliases: []string{"y"},
		Usage:   "Skip the confirmation prompt",
	}

	resetCmd = &cli.Command{
		Name:            "reset",
		Usage:           "Delete all run history and start fresh",
		HideHelpCommand: true,
		Flags:           []cli.Flag{yesFlag},
		Action:          cmdReset,
	}
)

func cmdReset(_ context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)

	if !cmd.Bool(yesFlag.Name) {
		ok, err := confirm(os.Stdin, fmt.Sprintf("This will permanently delete all run history in %s", cfg.DBPath))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Aborted.")
			return nil
		}
	}

	n, err := data.DeleteRuns(cfg.DB)
	if err != nil {
		return fmt.Errorf("deleting run history: %w", err)
	}

	slog.Info("run history deleted", "path", cfg.DBPath, "runs", n)
	fmt.Println("Reset complete.")
	return nil
}

func confirm(r io.Reader, msg string) (bool, error) {
	fmt.Println(msg)
	fmt.Print("Are you sure? [y/N]: ")

	answer, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("reading input: %w", err)
	}
	return strings.ToLower(strings.TrimSpace(answer)) == "y", nil
}
