package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/tablegen/internal/core"
	"github.com/JonMunkholm/tablegen/internal/formatter"
	"github.com/JonMunkholm/tablegen/internal/logging"
)

// multipartMemory is the part of a multipart body kept in memory; the rest
// spills to temporary files.
const multipartMemory = 32 << 20

// GenerateRequest is the body of POST /api/generate.
type GenerateRequest struct {
	Prompt string `json:"prompt"`
	Format string `json:"format" validate:"omitempty,oneof=xlsx csv parquet"`
}

// SynthesizeForm holds the non-file fields of POST /api/synthesize.
type SynthesizeForm struct {
	Mode       string `validate:"omitempty,oneof=single multi"`
	Rows       int    `validate:"gte=0"`
	MaxTextLen int    `validate:"gte=0"`
}

// TableResponse is a recovered or normalized table.
type TableResponse struct {
	Name     string        `json:"name"`
	Columns  []core.Column `json:"columns"`
	Rows     [][]string    `json:"rows"`
	RowCount int           `json:"rowCount"`
}

// SynthesizeResponse is the run summary plus download links.
type SynthesizeResponse struct {
	*core.RunResult
	Downloads []string `json:"downloads"`
}

func toTableResponse(t *core.Table) TableResponse {
	rows := t.Rows
	if rows == nil {
		rows = [][]string{}
	}
	return TableResponse{Name: t.Name, Columns: t.Columns, Rows: rows, RowCount: t.NumRows()}
}

// handleIndex renders the landing page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	runs, err := s.service.RecentRuns(r.Context(), 20)
	if err != nil {
		logging.FromContext(r.Context()).Warn("load recent runs", "error", err)
	}

	var buf bytes.Buffer
	if err := indexPage(s.service.Config(), runs).Render(r.Context(), &buf); err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok")
}

// handleGenerate turns a prompt into a downloadable dataset.
//
// Failures keep the {error, details} body that clients of the generator
// already parse; everything else goes through respondError.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxTextSize)

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, r, http.StatusBadRequest, GenerateErrorResponse{Error: "Invalid request body", Details: err.Error()})
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, GenerateErrorResponse{Error: "Invalid request", Details: validationError(err).Error()})
		return
	}
	format, err := core.ParseFormat(req.Format, "")
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	res, err := s.service.GenerateFromPrompt(ctx, req.Prompt, format)
	if err != nil {
		var re *core.RecoveryError
		switch {
		case errors.Is(err, core.ErrPromptRequired):
			writeJSON(w, r, http.StatusBadRequest, GenerateErrorResponse{Error: "Prompt is required"})
		case errors.As(err, &re):
			writeJSON(w, r, http.StatusBadRequest, GenerateErrorResponse{Error: "Model did not output valid CSV", Details: re.Error()})
		default:
			s.respondError(w, r, err, 0)
		}
		return
	}

	s.serveArtifact(w, r, res.RunID, res.Artifacts[0].Name)
}

// handleRecover recovers a table from the raw request body.
func (s *Server) handleRecover(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxTextSize)
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		s.respondError(w, r, badRequest("read body", err), 0)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	table, err := s.service.Recover(ctx, string(raw))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, r, http.StatusOK, toTableResponse(table))
}

// handleSchema infers the schema of the uploaded CSV files. The format
// query parameter selects json (default), text, markdown or yaml.
func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))

	tables, err := s.readUploadedTables(w, r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	schema, err := s.service.InferSchema(ctx, tables)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	if format == "" || format == formatter.FormatJSON {
		writeJSON(w, r, http.StatusOK, schema)
		return
	}

	var buf bytes.Buffer
	f, err := formatter.New(format, &buf)
	if err != nil {
		s.respondError(w, r, &core.ConfigurationError{Field: "format", Reason: err.Error()}, http.StatusBadRequest)
		return
	}
	if err := f.Format(schema); err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", formatter.ContentType(format))
	_, _ = buf.WriteTo(w)
}

// handleNormalize normalizes one uploaded CSV file and returns it as CSV.
func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	tables, err := s.readUploadedTables(w, r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	mode, err := core.ParseMode(r.FormValue("mode"))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	maxTextLen, err := formInt(r, "max_text_len")
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	out, err := core.Normalize(tables[0], core.NormalizeOptions{Mode: mode, MaxTextLen: maxTextLen})
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	var buf bytes.Buffer
	if err := core.EncodeCSV(&buf, out); err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", core.FormatCSV.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="normalized_%s.csv"`, out.Name))
	_, _ = buf.WriteTo(w)
}

// handleSynthesize trains on the uploaded tables and samples synthetic ones.
func (s *Server) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	tables, err := s.readUploadedTables(w, r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	form := SynthesizeForm{Mode: r.FormValue("mode")}
	if form.Rows, err = formInt(r, "rows"); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	if form.MaxTextLen, err = formInt(r, "max_text_len"); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	if err := s.validate.Struct(form); err != nil {
		s.respondError(w, r, validationError(err), http.StatusBadRequest)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	res, err := s.service.Synthesize(ctx, core.SynthesizeRequest{
		Mode:       core.Mode(form.Mode),
		Tables:     tables,
		Rows:       form.Rows,
		MaxTextLen: form.MaxTextLen,
	})
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	resp := SynthesizeResponse{RunResult: res, Downloads: make([]string, 0, len(res.Artifacts))}
	for _, a := range res.Artifacts {
		resp.Downloads = append(resp.Downloads, artifactURL(res.RunID, a.Name))
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// handleDownloadArtifact streams a stored artifact.
func (s *Server) handleDownloadArtifact(w http.ResponseWriter, r *http.Request) {
	s.serveArtifact(w, r, chi.URLParam(r, "runID"), chi.URLParam(r, "name"))
}

// handleListRuns returns recent run history, newest first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.service.RecentRuns(r.Context(), parseIntParam(r, "limit", 50))
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []core.RunRecord{}
	}
	writeJSON(w, r, http.StatusOK, runs)
}

// handleRunStatus reports run slot usage.
func (s *Server) handleRunStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.service.RunLimiterStatus())
}

func (s *Server) serveArtifact(w http.ResponseWriter, r *http.Request, runID, name string) {
	rc, err := s.service.OpenArtifact(r.Context(), runID, name)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	defer rc.Close()

	format := core.Format(strings.TrimPrefix(path.Ext(name), "."))
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	w.Header().Set("X-Run-ID", runID)
	if _, err := io.Copy(w, rc); err != nil {
		logging.FromContext(r.Context()).Warn("artifact download interrupted", "run_id", runID, "name", name, "error", err)
	}
}

// readUploadedTables parses every CSV part named "files" (or "file").
// Each table is named after its file stem.
func (s *Server) readUploadedTables(w http.ResponseWriter, r *http.Request) ([]*core.Table, error) {
	maxFiles := s.cfg.Upload.MaxFiles
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize*int64(maxFiles))

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, badRequest("invalid form", err)
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		headers = r.MultipartForm.File["file"]
	}
	if len(headers) == 0 {
		return nil, badRequest("no file provided", nil)
	}
	if len(headers) > maxFiles {
		return nil, badRequest(fmt.Sprintf("too many files: %d (max %d)", len(headers), maxFiles), nil)
	}

	tables := make([]*core.Table, 0, len(headers))
	for _, fh := range headers {
		t, err := s.readUploadedTable(fh)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, nil
}

func (s *Server) readUploadedTable(fh *multipart.FileHeader) (*core.Table, error) {
	if fh.Size > s.cfg.Upload.MaxFileSize {
		return nil, badRequest(fmt.Sprintf("%s: file too large", fh.Filename), nil)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()

	t, err := core.ReadTable(core.TableNameFromFilename(fh.Filename), f)
	if err != nil {
		return nil, badRequest("read "+fh.Filename, err)
	}
	return t, nil
}

// formInt parses an optional integer form value; empty means 0.
func formInt(r *http.Request, name string) (int, error) {
	v := strings.TrimSpace(r.FormValue(name))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &core.ConfigurationError{Field: name, Reason: fmt.Sprintf("%q is not an integer", v)}
	}
	return n, nil
}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	i, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// validationError reports the first failed field as a configuration error.
func validationError(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return err
	}
	fe := ve[0]
	return &core.ConfigurationError{
		Field:  strings.ToLower(fe.Field()),
		Reason: fmt.Sprintf("value %v fails %q", fe.Value(), fe.Tag()+optionalParam(fe.Param())),
	}
}

func optionalParam(p string) string {
	if p == "" {
		return ""
	}
	return "=" + p
}

func artifactURL(runID, name string) string {
	return "/api/artifacts/" + url.PathEscape(runID) + "/" + url.PathEscape(name)
}
