// Package server exposes the pipeline as a JSON HTTP API.
package server

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/KaramelBytes/pivotloom-cli/internal/analysis"
	"github.com/KaramelBytes/pivotloom-cli/internal/chart"
	"github.com/KaramelBytes/pivotloom-cli/internal/export"
	"github.com/KaramelBytes/pivotloom-cli/internal/filter"
	"github.com/KaramelBytes/pivotloom-cli/internal/pipeline"
	"github.com/KaramelBytes/pivotloom-cli/internal/pivot"
	"github.com/KaramelBytes/pivotloom-cli/internal/session"
	"github.com/KaramelBytes/pivotloom-cli/internal/summary"
	"github.com/KaramelBytes/pivotloom-cli/internal/table"
)

// DefaultMaxUpload caps request bodies at 32 MiB.
const DefaultMaxUpload = 32 << 20

// Options configures a Server.
type Options struct {
	// Token, when set, is required as "Authorization: Bearer <token>" on /api routes.
	Token string
	// MaxUpload caps upload size in bytes; 0 means DefaultMaxUpload.
	MaxUpload int64
	// Quiet disables request logging.
	Quiet bool
	// AllowURLUploads lets clients have the server fetch ?url= sources.
	AllowURLUploads bool
}

// Server serves tables held in the pipeline's session store.
type Server struct {
	p   *pipeline.Pipeline
	opt Options
}

// New creates a Server over p.
func New(p *pipeline.Pipeline, opt Options) *Server {
	if opt.MaxUpload <= 0 {
		opt.MaxUpload = DefaultMaxUpload
	}
	return &Server{p: p, opt: opt}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	if !s.opt.Quiet {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/api/tables", func(r chi.Router) {
		r.Use(s.auth)
		r.Post("/", s.handleUpload)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/columns", s.handleColumns)
			r.Get("/columns/{column}/values", s.handleValues)
			r.Get("/describe", s.handleDescribe)
			r.Post("/pivot", s.handlePivot)
			r.Post("/chart", s.handleChart)
			r.Get("/export/{format}", s.handleExport)
			r.Delete("/", s.handleClose)
		})
	})
	return r
}

func (s *Server) auth(next http.Handler) http.Handler {
	if s.opt.Token == "" {
		return next
	}
	want := []byte("Bearer " + s.opt.Token)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := []byte(r.Header.Get("Authorization"))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "missing or invalid token", Kind: "auth"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type tableInfo struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Rows    int          `json:"rows"`
	Cached  bool         `json:"cached,omitempty"`
	Columns table.Schema `json:"columns"`
}

// handleUpload accepts a multipart "file" field, a raw body named by ?name=, or ?url=
// when AllowURLUploads is set.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	src := pipeline.Source{Name: q.Get("name"), Sheet: q.Get("sheet"), URL: q.Get("url")}
	if v := q.Get("sheet_index"); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil || i < 1 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "sheet_index must be a positive integer", Kind: "request"})
			return
		}
		src.SheetIndex = i
	}
	if src.URL != "" && !s.opt.AllowURLUploads {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "url uploads are disabled on this server", Kind: "request"})
		return
	}
	if src.URL == "" {
		r.Body = http.MaxBytesReader(w, r.Body, s.opt.MaxUpload)
		data, name, err := readUpload(r)
		if err != nil {
			requestError(w, err)
			return
		}
		src.Data = data
		if src.Name == "" {
			src.Name = name
		}
	}
	l, err := s.p.LoadTable(r.Context(), src)
	if err != nil {
		s.fail(w, err)
		return
	}
	name := src.Name
	if name == "" {
		name = l.Table.Name
	}
	sess := s.p.Sessions().Open(name, l.Key, l.Table)
	writeJSON(w, http.StatusCreated, tableInfo{
		ID:      sess.ID,
		Name:    sess.Name,
		Rows:    l.Table.Rows(),
		Cached:  l.Cached,
		Columns: s.p.ListColumns(l.Table),
	})
}

func readUpload(r *http.Request) ([]byte, string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, "", fmt.Errorf("read file field: %w", err)
		}
		defer file.Close()
		b, err := io.ReadAll(file)
		if err != nil {
			return nil, "", fmt.Errorf("read upload: %w", err)
		}
		return b, header.Filename, nil
	}
	b, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	return b, "", nil
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.p.Sessions().Get(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleColumns(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, tableInfo{ID: sess.ID, Name: sess.Name, Rows: sess.Table.Rows(), Columns: s.p.ListColumns(sess.Table)})
}

func (s *Server) handleValues(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	col := chi.URLParam(r, "column")
	vals, found := filter.DistinctValues(sess.Table, col)
	if !found {
		writeJSON(w, http.StatusNotFound, errorBody{Error: fmt.Sprintf("column %q not found", col), Kind: pipeline.KindNotFound})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"column": col, "values": vals})
}

func (s *Server) handleDescribe(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	opt := analysis.DefaultOptions()
	opt.GroupBy = r.URL.Query().Get("group_by")
	rep := analysis.Profile(sess.Table, opt)
	if r.URL.Query().Get("format") == "md" {
		w.Header().Set("Content-Type", export.MarkdownFormat.ContentType())
		_, _ = io.WriteString(w, rep.Markdown())
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

type pivotRequest struct {
	Filter  filter.Spec     `json:"filter"`
	Pivot   pivot.Spec      `json:"pivot"`
	Augment summary.Options `json:"augment"`
}

type pivotResponse struct {
	Table    json.RawMessage `json:"table"`
	KPIs     []analysis.KPI  `json:"kpis"`
	Warnings []string        `json:"warnings,omitempty"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		requestError(w, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

// run recomputes a pivot for sess and stores the selections on success.
func (s *Server) run(sess *session.Session, req pivotRequest) (*pipeline.PivotOutcome, error) {
	if req.Pivot.Aggregator != "" {
		agg, err := pivot.ParseAggregator(string(req.Pivot.Aggregator))
		if err != nil {
			return nil, err
		}
		req.Pivot.Aggregator = agg
	}
	out, err := s.p.RunPivot(sess.Table, req.Filter, req.Pivot, req.Augment)
	if err != nil {
		return nil, err
	}
	if err := s.p.Sessions().Save(sess.WithSelections(req.Filter, out.Pivot.Spec, req.Augment)); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Server) handlePivot(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req pivotRequest
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := s.run(sess, req)
	if err != nil {
		s.fail(w, err)
		return
	}
	body, err := export.JSON(out.Augmented.Table)
	if err != nil {
		s.fail(w, err)
		return
	}
	kpis, err := analysis.MetricKPIs(out.Filtered, out.Pivot.Spec.ValueFields, out.Pivot.Aggregator)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pivotResponse{Table: body, KPIs: kpis, Warnings: messages(out.Warnings)})
}

type chartRequest struct {
	pivotRequest
	Kind          string   `json:"kind"`
	IDFields      []string `json:"id_fields"`
	IncludeTotals bool     `json:"include_totals"`
	Title         string   `json:"title"`
}

type chartResponse struct {
	Projection *chart.Projection `json:"projection"`
	Warnings   []string          `json:"warnings,omitempty"`
}

// handleChart answers with the projection as JSON, or an HTML page with ?format=html.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req chartRequest
	if !decodeBody(w, r, &req) {
		return
	}
	kind, err := chart.ParseKind(req.Kind)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Kind: "request"})
		return
	}
	out, err := s.run(sess, req.pivotRequest)
	if err != nil {
		s.fail(w, err)
		return
	}
	var proj *chart.Projection
	if req.IncludeTotals {
		ids := req.IDFields
		if len(ids) == 0 {
			ids = out.Pivot.Spec.RowFields
		}
		proj, err = pipeline.ProjectTable(out.Augmented.Table, ids, kind)
	} else {
		proj, err = s.p.ProjectForChart(out.Augmented, req.IDFields, kind)
	}
	if err != nil {
		s.fail(w, err)
		return
	}
	if r.URL.Query().Get("format") == "html" {
		var buf bytes.Buffer
		title := req.Title
		if title == "" {
			title = sess.Name
		}
		if err := chart.RenderHTML(&buf, proj, title); err != nil {
			s.fail(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(buf.Bytes())
		return
	}
	writeJSON(w, http.StatusOK, chartResponse{Projection: proj, Warnings: messages(out.Warnings)})
}

// handleExport encodes the last pivot of the session, or the base table if none ran yet.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	format, err := export.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Kind: "request"})
		return
	}
	t := sess.Table
	ids := table.ListColumns(t).Categorical
	if len(sess.Pivot.RowFields) > 0 {
		out, err := s.p.RunPivot(sess.Table, sess.Filter, sess.Pivot, sess.Augment)
		if err != nil {
			s.fail(w, err)
			return
		}
		t, ids = out.Augmented.Table, out.Pivot.Spec.RowFields
	}
	b, err := export.Encode(t, format, ids)
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportName(sess.Name, format)))
	_, _ = w.Write(b)
}

func exportName(name string, f export.Format) string {
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	if name == "" {
		name = "pivot"
	}
	return name + "." + string(f)
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	if !s.p.Sessions().Close(chi.URLParam(r, "id")) {
		s.fail(w, session.ErrNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	kind := pipeline.Classify(err)
	status := http.StatusInternalServerError
	switch kind {
	case pipeline.KindParse:
		status = http.StatusBadRequest
	case pipeline.KindPivot, pipeline.KindChart:
		status = http.StatusUnprocessableEntity
	case pipeline.KindFetch:
		status = http.StatusBadGateway
	case pipeline.KindNotFound:
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		log.Printf("internal error: %v", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Kind: kind})
}

// requestError reports a malformed or oversized request.
func requestError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		status = http.StatusRequestEntityTooLarge
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Kind: "request"})
}

func messages(ws []error) []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.Error()
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
