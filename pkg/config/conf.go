package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mchmarny/riskdash/pkg/align"
	"github.com/mchmarny/riskdash/pkg/artifact"
	"github.com/mchmarny/riskdash/pkg/credit"
	"gopkg.in/yaml.v3"
)

const (
	configFileName = "config.yaml"
	dirMode        = 0700
	fileMode       = 0600

	defaultArtifactDir      = "models"
	defaultOutputDir        = "output"
	defaultPredictionsFile  = "predicted_credit_risk.csv"
	defaultAttributionsFile = "shap_summary.csv"
	defaultTop              = 5
	defaultPreview          = 5
)

var validate = validator.New()

// Config represents app config object.
type Config struct {
	Artifacts artifact.Sources `yaml:"artifacts" validate:"required"`
	Output    Output           `yaml:"output" validate:"required"`
	Align     Align            `yaml:"align"`
	Credit    Credit           `yaml:"credit" validate:"required"`
	Report    Report           `yaml:"report" validate:"required"`
}

// Output locates the files each run writes.
type Output struct {
	Predictions  string `yaml:"predictions" validate:"required"`
	Attributions string `yaml:"attributions" validate:"required"`
}

// Align lists upload columns that never reach the model.
type Align struct {
	Drop []string `yaml:"drop" validate:"dive,required"`
}

// Credit configures the credit type derivation.
type Credit struct {
	Columns []string `yaml:"columns" validate:"len=4,unique,dive,required"`
	Prefix  string   `yaml:"prefix"`
}

// Report sizes the ranked feature list and the row previews.
type Report struct {
	Top     int `yaml:"top" validate:"min=1,max=50"`
	Preview int `yaml:"preview" validate:"min=0,max=100"`
}

func getDefaultConfig() *Config {
	return &Config{
		Artifacts: artifact.Sources{
			Model:    filepath.Join(defaultArtifactDir, artifact.ModelFileName),
			Encoder:  filepath.Join(defaultArtifactDir, artifact.EncoderFileName),
			Features: filepath.Join(defaultArtifactDir, artifact.FeaturesFileName),
		},
		Output: Output{
			Predictions:  filepath.Join(defaultOutputDir, defaultPredictionsFile),
			Attributions: filepath.Join(defaultOutputDir, defaultAttributionsFile),
		},
		Align: Align{
			Drop: append([]string(nil), align.DefaultDrop...),
		},
		Credit: Credit{
			Columns: append([]string(nil), credit.DefaultColumns...),
			Prefix:  credit.DefaultPrefix,
		},
		Report: Report{
			Top:     defaultTop,
			Preview: defaultPreview,
		},
	}
}

// Validate checks the config against its constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Resolve makes relative local paths absolute against dir. Remote artifact
// URLs are left as is.
func (c *Config) Resolve(dir string) {
	abs := func(p string) string {
		if p == "" || artifact.IsRemote(p) || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	c.Artifacts.Model = abs(c.Artifacts.Model)
	c.Artifacts.Encoder = abs(c.Artifacts.Encoder)
	c.Artifacts.Features = abs(c.Artifacts.Features)
	c.Output.Predictions = abs(c.Output.Predictions)
	c.Output.Attributions = abs(c.Output.Attributions)
}

// Save writes the config to dirPath.
func Save(dirPath string, c *Config) error {
	if dirPath == "" {
		return errors.New("config directory required")
	}
	if c == nil {
		return errors.New("config required")
	}
	if err := c.Validate(); err != nil {
		return err
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	path := filepath.Join(dirPath, configFileName)
	if err := os.WriteFile(path, b, fileMode); err != nil {
		return fmt.Errorf("writing config file %s: %w", path, err)
	}
	return nil
}

// ReadOrCreate reads app config from directory or creates a new one.
// Missing keys take their default values.
func ReadOrCreate(dirPath string) (*Config, error) {
	if dirPath == "" {
		return nil, errors.New("config directory required")
	}

	if err := os.MkdirAll(dirPath, dirMode); err != nil {
		return nil, fmt.Errorf("creating dir %s: %w", dirPath, err)
	}

	path := filepath.Join(dirPath, configFileName)

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		slog.Debug("creating default config", "path", path)
		if err := Save(dirPath, getDefaultConfig()); err != nil {
			return nil, fmt.Errorf("creating default config: %w", err)
		}
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	c := getDefaultConfig()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("unmarshaling config file %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// GetOrCreateHomeDir returns the home directory for the current user.
// The create flag is set to true if the directory was created.
func GetOrCreateHomeDir(name string) (path string, created bool, err error) {
	if name == "" {
		return "", false, errors.New("name cannot be empty")
	}

	if !strings.HasPrefix(name, ".") {
		name = "." + name
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", false, fmt.Errorf("getting user home dir: %w", err)
	}

	dir := filepath.Join(home, name)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		slog.Debug("creating dir", "path", dir)
		if err := os.Mkdir(dir, dirMode); err != nil {
			return "", false, fmt.Errorf("creating dir %s: %w", dir, err)
		}
		created = true
	}
	return dir, created, nil
}
