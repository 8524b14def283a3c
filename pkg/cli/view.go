package cli

import (
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/mchmarny/riskdash/pkg/data"
	"github.com/mchmarny/riskdash/pkg/explain"
	"github.com/mchmarny/riskdash/pkg/pipeline"
)

const (
	uploadFieldName = "file"
	uploadMaxBytes  = 32 << 20
	recentRunsLimit = 10
	tableMaxRows    = 20
)

var templateFuncs = template.FuncMap{
	"value": explain.FormatValue,
	"add":   func(a, b int) int { return a + b },
}

func faviconHandler(w http.ResponseWriter, r *http.Request) {
	file, err := embedFS.ReadFile("assets/img/favicon.svg")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	if _, err = w.Write(file); err != nil {
		slog.Error("failed to write favicon", "error", err)
	}
}

func homeViewHandler(tmpl *template.Template, db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		renderHome(w, tmpl, db, http.StatusOK, r.URL.Query().Get("err"))
	}
}

func renderHome(w http.ResponseWriter, tmpl *template.Template, db *sql.DB, status int, msg string) {
	d := map[string]any{
		"version":    version,
		"commit":     commit,
		"build_date": date,
		"err":        msg,
	}

	if db != nil {
		runs, err := data.GetRuns(db, recentRunsLimit)
		if err != nil {
			slog.Error("listing runs", "error", err)
		}
		d["runs"] = runs
	}

	render(w, tmpl, "home", status, d)
}

func uploadViewHandler(tmpl *template.Template, runner *pipeline.Runner, db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file, header, err := formFile(w, r)
		if err != nil {
			renderHome(w, tmpl, db, http.StatusBadRequest, err.Error())
			return
		}
		defer file.Close()

		res, err := runner.Run(r.Context(), header.Filename, file)
		if err != nil {
			slog.Error("pipeline failed", "file", header.Filename, "error", err)
			renderHome(w, tmpl, db, runErrorStatus(err), err.Error())
			return
		}

		render(w, tmpl, "result", http.StatusOK, newResultView(res))
	}
}

// resultView is the results page model. Charts are inlined as data URIs.
type resultView struct {
	Version      string
	Result       *pipeline.Result
	Predictions  []predictionRow
	Attributions [][]string
	Header       []string
	SummaryChart template.URL
	TopChart     template.URL
}

type predictionRow struct {
	Row        int
	Label      string
	CreditType string
}

func newResultView(res *pipeline.Result) *resultView {
	v := &resultView{
		Version: version,
		Result:  res,
	}
	for i := 0; i < len(res.Predictions) && i < tableMaxRows; i++ {
		v.Predictions = append(v.Predictions, predictionRow{
			Row:        i,
			Label:      res.Predictions[i],
			CreditType: res.CreditTypes[i],
		})
	}
	if res.Charts != nil {
		v.SummaryChart = pngDataURI(res.Charts.Summary)
		v.TopChart = pngDataURI(res.Charts.Top)
	}
	if res.Attribution != nil {
		header, rows := res.Attribution.Wide()
		if len(rows) > tableMaxRows {
			rows = rows[:tableMaxRows]
		}
		v.Header = header
		v.Attributions = rows
	}
	return v
}

func pngDataURI(b []byte) template.URL {
	if len(b) == 0 {
		return ""
	}
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(b)) //nolint:gosec
}

func formFile(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	r.Body = http.MaxBytesReader(w, r.Body, uploadMaxBytes)
	if err := r.ParseMultipartForm(uploadMaxBytes); err != nil {
		return nil, nil, fmt.Errorf("parsing upload: %w", err)
	}

	file, header, err := r.FormFile(uploadFieldName)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil, errors.New("no CSV file selected")
		}
		return nil, nil, fmt.Errorf("reading upload: %w", err)
	}
	return file, header, nil
}

func runErrorStatus(err error) int {
	if pipeline.IsInputError(err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func render(w http.ResponseWriter, tmpl *template.Template, name string, status int, d any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, name, d); err != nil {
		slog.Error("template render failed", "template", name, "error", err)
	}
}
