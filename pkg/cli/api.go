package cli

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/mchmarny/riskdash/pkg/data"
	"github.com/mchmarny/riskdash/pkg/pipeline"
)

const apiSourceName = "api.csv"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// predictAPIHandler accepts either a multipart upload or a raw CSV body.
func predictAPIHandler(runner *pipeline.Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := apiSourceName
		var body io.Reader

		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
			file, header, err := formFile(w, r)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			defer file.Close()
			name = header.Filename
			body = file
		} else {
			body = http.MaxBytesReader(w, r.Body, uploadMaxBytes)
		}

		res, err := runner.Run(r.Context(), name, body)
		if err != nil {
			slog.Error("pipeline failed", "source", name, "error", err)
			writeError(w, runErrorStatus(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func runsAPIHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := queryParamInt(r, "limit", runsLimitDefault)
		list, err := data.GetRuns(db, limit)
		if err != nil {
			slog.Error("failed to list runs", "error", err)
			writeError(w, http.StatusInternalServerError, "error listing runs")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func runAPIHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		run, err := data.GetRun(db, id)
		if err != nil {
			if errors.Is(err, data.ErrRunNotFound) {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			slog.Error("failed to get run", "id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "error getting run")
			return
		}
		writeJSON(w, http.StatusOK, run)
	}
}

func labelsAPIHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		list, err := data.GetLabelCounts(db)
		if err != nil {
			slog.Error("failed to count labels", "error", err)
			writeError(w, http.StatusInternalServerError, "error counting labels")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func queryParamInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}

	i, err := strconv.Atoi(v)
	if err != nil {
		slog.Error("error converting query string to int", "value", v, "error", err)
		return def
	}

	if i < 1 || i > runsLimitMax {
		return def
	}

	return i
}
