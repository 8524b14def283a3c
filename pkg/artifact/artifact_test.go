package artifact

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/mchmarny/riskdash/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSet(t *testing.T) *Set {
	t.Helper()
	m, err := model.NewLogisticRegression([][]float64{{1, 2, 3}}, []float64{0})
	require.NoError(t, err)
	return &Set{
		Model:    m,
		Encoder:  &model.LabelEncoder{Classes: []string{"Low", "High"}},
		Features: []string{"a", "b", "c"},
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	src, err := Save(dir, testSet(t))
	require.NoError(t, err)

	s, err := (&Loader{}).Load(context.Background(), *src)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, s.Features)
	assert.Equal(t, []string{"Low", "High"}, s.Encoder.Classes)
	assert.Equal(t, 3, s.Model.NumFeatures())
}

func TestLoad_MissingArtifact(t *testing.T) {
	dir := t.TempDir()
	src, err := Save(dir, testSet(t))
	require.NoError(t, err)
	require.NoError(t, os.Remove(src.Encoder))

	_, err = (&Loader{}).Load(context.Background(), *src)
	assert.ErrorIs(t, err, ErrArtifact)
}

func TestLoad_CorruptArtifact(t *testing.T) {
	dir := t.TempDir()
	src, err := Save(dir, testSet(t))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(src.Model, []byte("not json"), 0600))

	_, err = (&Loader{}).Load(context.Background(), *src)
	assert.ErrorIs(t, err, ErrArtifact)
}

func TestLoad_SchemaMismatch(t *testing.T) {
	dir := t.TempDir()
	src, err := Save(dir, testSet(t))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(src.Features, []byte(`["a","b"]`), 0600))

	_, err = (&Loader{}).Load(context.Background(), *src)
	assert.ErrorIs(t, err, ErrArtifact)
}

func TestLoad_EmptySource(t *testing.T) {
	_, err := (&Loader{}).Load(context.Background(), Sources{})
	assert.ErrorIs(t, err, ErrArtifact)
}

func TestLoad_Remote(t *testing.T) {
	dir := t.TempDir()
	_, err := Save(dir, testSet(t))
	require.NoError(t, err)

	srv := httptest.NewServer(http.FileServer(http.Dir(dir)))
	defer srv.Close()

	l := &Loader{CacheDir: filepath.Join(t.TempDir(), "cache")}
	s, err := l.Load(context.Background(), Sources{
		Model:    srv.URL + "/" + ModelFileName,
		Encoder:  srv.URL + "/" + EncoderFileName,
		Features: filepath.Join(dir, FeaturesFileName),
	})
	require.NoError(t, err)
	assert.Len(t, s.Features, 3)

	entries, err := os.ReadDir(l.CacheDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestLoad_RemoteWithoutCache(t *testing.T) {
	_, err := (&Loader{}).Load(context.Background(), Sources{
		Model:    "https://example.com/model.json",
		Encoder:  "e",
		Features: "f",
	})
	assert.ErrorIs(t, err, ErrArtifact)
}

func TestDecodeFeatures(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"valid", `["a","b"]`, false},
		{"empty", `[]`, true},
		{"blank name", `["a"," "]`, true},
		{"duplicate", `["a","a"]`, true},
		{"not a list", `{"a":1}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := filepath.Join(t.TempDir(), "f.json")
			require.NoError(t, os.WriteFile(p, []byte(tt.in), 0600))
			f, err := os.Open(p)
			require.NoError(t, err)
			defer f.Close()

			_, err = decodeFeatures(f)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("https://example.com/m.json"))
	assert.True(t, IsRemote("http://example.com/m.json"))
	assert.False(t, IsRemote("models/m.json"))
}
