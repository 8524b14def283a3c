package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mchmarny/riskdash/pkg/config"
	"github.com/mchmarny/riskdash/pkg/data"
	"github.com/mchmarny/riskdash/pkg/logging"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	appName      = "riskdash"
	appConfigKey = "app-config"
	cacheDirName = "cache"

	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	version = "v0.0.1-default"
	commit  = ""
	date    = ""

	outputFormat = formatJSON

	debugFlag = &cli.BoolFlag{
		Name:    "debug",
		Usage:   "Prints verbose logs (optional, default: false)",
		Sources: cli.EnvVars("RISKDASH_DEBUG"),
	}

	configDirFlag = &cli.StringFlag{
		Name:    "config",
		Usage:   "Directory holding config.yaml (default: $HOME/.riskdash)",
		Sources: cli.EnvVars("RISKDASH_CONFIG"),
	}

	dbFilePathFlag = &cli.StringFlag{
		Name:  "db",
		Usage: "Path to the Sqlite run history file",
	}

	formatFlag = &cli.StringFlag{
		Name:  "format",
		Usage: "Output format [json, yaml]",
		Value: formatJSON,
	}
)

// Execute creates and runs the CLI application.
func Execute() {
	initLogging(false)

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

type appConfig struct {
	HomeDir   string
	ConfigDir string
	DBPath    string
	Debug     bool
	DB        *sql.DB
	Config    *config.Config
}

func getConfig(cmd *cli.Command) *appConfig {
	return cmd.Root().Metadata[appConfigKey].(*appConfig)
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:                  appName,
		Version:               fmt.Sprintf("%s (%s - %s)", version, commit, date),
		EnableShellCompletion: true,
		HideHelpCommand:       true,
		Usage:                 "Credit risk predictions with feature attribution",
		Metadata:              map[string]any{},
		Flags: []cli.Flag{
			debugFlag,
			configDirFlag,
			dbFilePathFlag,
			formatFlag,
		},
		Commands: []*cli.Command{
			predictCmd,
			serverCmd,
			runsCmd,
			authCmd,
			resetCmd,
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			debug := cmd.Bool(debugFlag.Name)
			initLogging(debug)

			f := cmd.String(formatFlag.Name)
			if f == formatYAML || f == "yml" {
				outputFormat = formatYAML
			}

			home := getHomeDir()

			confDir := cmd.String(configDirFlag.Name)
			if confDir == "" {
				confDir = home
			}
			conf, err := config.ReadOrCreate(confDir)
			if err != nil {
				return ctx, fmt.Errorf("reading config: %w", err)
			}
			conf.Resolve(confDir)

			dbPath := cmd.String(dbFilePathFlag.Name)
			if dbPath == "" {
				dbPath = filepath.Join(home, data.DataFileName)
			}

			if err := data.Init(dbPath); err != nil {
				return ctx, fmt.Errorf("initializing database: %w", err)
			}

			db, err := data.GetDB(dbPath)
			if err != nil {
				return ctx, fmt.Errorf("opening database: %w", err)
			}

			cmd.Root().Metadata[appConfigKey] = &appConfig{
				HomeDir:   home,
				ConfigDir: confDir,
				DBPath:    dbPath,
				Debug:     debug,
				DB:        db,
				Config:    conf,
			}
			return ctx, nil
		},
		After: func(_ context.Context, cmd *cli.Command) error {
			if cfg, ok := cmd.Root().Metadata[appConfigKey].(*appConfig); ok && cfg.DB != nil {
				cfg.DB.Close()
			}
			return nil
		},
	}
}

func initLogging(debug bool) {
	level := "info"
	if debug {
		level = "debug"
	}
	logging.SetDefaultCLILogger(level)
}

func getHomeDir() string {
	dir, created, err := config.GetOrCreateHomeDir(appName)
	if err != nil {
		slog.Debug("error getting home dir, using current dir instead", "error", err)
		return "."
	}
	if created {
		slog.Debug("created home dir", "path", dir)
	}
	return dir
}

func encode(v any) error {
	return encodeTo(os.Stdout, v)
}

func encodeTo(w io.Writer, v any) error {
	if outputFormat == formatYAML {
		return yaml.NewEncoder(w).Encode(v)
	}
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(v)
}
