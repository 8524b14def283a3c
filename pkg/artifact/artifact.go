package artifact

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/mchmarny/riskdash/pkg/model"
	"github.com/mchmarny/riskdash/pkg/net"
)

// Standard artifact file names.
const (
	ModelFileName    = "credit_risk_model.json"
	EncoderFileName  = "label_encoder.json"
	FeaturesFileName = "feature_names.json"
)

// ErrArtifact wraps every artifact load failure. Callers treat it as fatal.
var ErrArtifact = errors.New("artifact load failed")

// Sources locates the three artifacts. Each is a local path or an http(s) URL.
type Sources struct {
	Model    string `json:"model" yaml:"model" validate:"required"`
	Encoder  string `json:"encoder" yaml:"encoder" validate:"required"`
	Features string `json:"features" yaml:"features" validate:"required"`
}

// Set is the loaded, read-only artifact bundle shared by all runs.
type Set struct {
	Model    model.Classifier
	Encoder  *model.LabelEncoder
	Features []string
}

// Loader resolves and decodes artifacts. Remote artifacts are downloaded into
// CacheDir with Client.
type Loader struct {
	CacheDir string
	Client   *http.Client
}

// Load reads, decodes and cross-validates the artifacts.
func (l *Loader) Load(ctx context.Context, src Sources) (*Set, error) {
	s := &Set{}

	if err := l.load(ctx, src.Model, func(r io.Reader) (err error) {
		s.Model, err = model.DecodeClassifier(r)
		return err
	}); err != nil {
		return nil, err
	}

	if err := l.load(ctx, src.Encoder, func(r io.Reader) (err error) {
		s.Encoder, err = model.DecodeEncoder(r)
		return err
	}); err != nil {
		return nil, err
	}

	if err := l.load(ctx, src.Features, func(r io.Reader) (err error) {
		s.Features, err = decodeFeatures(r)
		return err
	}); err != nil {
		return nil, err
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArtifact, err)
	}

	slog.Debug("artifacts loaded",
		"features", len(s.Features),
		"classes", s.Encoder.Classes,
		"model", fmt.Sprintf("%T", s.Model))

	return s, nil
}

// Validate checks that the artifacts agree with each other.
func (s *Set) Validate() error {
	if s.Model == nil || s.Encoder == nil {
		return errors.New("model and label encoder required")
	}
	if n := s.Model.NumFeatures(); n != len(s.Features) {
		return fmt.Errorf("model expects %d features, schema lists %d", n, len(s.Features))
	}
	if n := s.Model.NumClasses(); n > len(s.Encoder.Classes) {
		return fmt.Errorf("model predicts %d classes, encoder knows %d", n, len(s.Encoder.Classes))
	}
	return nil
}

func (l *Loader) load(ctx context.Context, src string, decode func(io.Reader) error) error {
	p, err := l.resolve(ctx, src)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrArtifact, src, err)
	}

	f, err := os.Open(p)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrArtifact, err)
	}
	defer f.Close()

	if err := decode(f); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrArtifact, p, err)
	}
	return nil
}

// resolve returns a local path for src, downloading remote sources.
func (l *Loader) resolve(ctx context.Context, src string) (string, error) {
	if src == "" {
		return "", errors.New("artifact source not specified")
	}
	if !IsRemote(src) {
		return src, nil
	}
	if l.CacheDir == "" {
		return "", errors.New("cache dir required for remote artifacts")
	}

	sum := sha256.Sum256([]byte(src))
	name := hex.EncodeToString(sum[:8]) + "-" + path.Base(src)
	p := filepath.Join(l.CacheDir, name)

	slog.Debug("downloading artifact", "url", src, "path", p)
	if err := net.Download(ctx, l.Client, src, p); err != nil {
		return "", fmt.Errorf("downloading: %w", err)
	}
	return p, nil
}

// IsRemote reports whether src is an http(s) URL.
func IsRemote(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

func decodeFeatures(r io.Reader) ([]string, error) {
	var names []string
	if err := json.NewDecoder(r).Decode(&names); err != nil {
		return nil, fmt.Errorf("decoding feature names: %w", err)
	}
	if len(names) == 0 {
		return nil, errors.New("feature names empty")
	}

	seen := make(map[string]bool, len(names))
	for i, n := range names {
		if strings.TrimSpace(n) == "" {
			return nil, fmt.Errorf("feature %d has no name", i)
		}
		if seen[n] {
			return nil, fmt.Errorf("duplicate feature %q", n)
		}
		seen[n] = true
	}
	return names, nil
}

// Save writes a set to dir using the standard file names. It is used to
// produce fixtures and to export a bundle for other environments.
func Save(dir string, s *Set) (*Sources, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}

	src := &Sources{
		Model:    filepath.Join(dir, ModelFileName),
		Encoder:  filepath.Join(dir, EncoderFileName),
		Features: filepath.Join(dir, FeaturesFileName),
	}

	if err := writeFile(src.Model, func(w io.Writer) error {
		return model.EncodeClassifier(w, s.Model)
	}); err != nil {
		return nil, err
	}
	if err := writeFile(src.Encoder, func(w io.Writer) error {
		return json.NewEncoder(w).Encode(s.Encoder)
	}); err != nil {
		return nil, err
	}
	if err := writeFile(src.Features, func(w io.Writer) error {
		return json.NewEncoder(w).Encode(s.Features)
	}); err != nil {
		return nil, err
	}

	return src, nil
}

func writeFile(p string, fn func(io.Writer) error) error {
	f, err := os.Create(p)
	if err != nil {
		return fmt.Errorf("creating %s: %w", p, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", p, err)
	}
	return f.Close()
}
