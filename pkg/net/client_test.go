package net

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPClient(t *testing.T) {
	client := GetHTTPClient(context.Background(), "")
	require.NotNil(t, client)
	assert.Equal(t, reqTransport, client.Transport)
}

func TestGetOAuthClient(t *testing.T) {
	ctx := context.Background()
	client := GetOAuthClient(ctx, "test-token")
	assert.NotNil(t, client)
}

func TestPrintHTTPResponse_Nil(t *testing.T) {
	// should not panic
	PrintHTTPResponse(nil)
}

func TestPrintHTTPResponse_WithResponse(t *testing.T) {
	resp := &http.Response{
		StatusCode: 200,
		Header:     http.Header{},
		Body:       http.NoBody,
	}
	// should not panic
	PrintHTTPResponse(resp)
}

func TestDownload(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		switch r.URL.Path {
		case "/model.json":
			w.Write([]byte(`{"kind":"logistic"}`))
		case "/error":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	dir := t.TempDir()

	path := filepath.Join(dir, "cache", "model.json")
	require.NoError(t, Download(ctx, GetOAuthClient(ctx, "secret"), srv.URL+"/model.json", path))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"kind":"logistic"}`, string(b))
	assert.Equal(t, "Bearer secret", gotAuth)

	err = Download(ctx, nil, srv.URL+"/missing", filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, ErrorURLNotFound)

	err = Download(ctx, nil, srv.URL+"/error", filepath.Join(dir, "error.json"))
	assert.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "error.json"))
	assert.True(t, os.IsNotExist(statErr))
}
