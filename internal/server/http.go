package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fastjson"

	"github.com/coffersTech/topicview/internal/engine"
	"github.com/coffersTech/topicview/internal/grid"
	"github.com/coffersTech/topicview/internal/metrics"
	"github.com/coffersTech/topicview/internal/model"
	"github.com/coffersTech/topicview/internal/registry"
	"github.com/coffersTech/topicview/internal/source"
	"github.com/coffersTech/topicview/internal/storage"
)

// maxBodySize bounds request bodies, pushed batches included.
const maxBodySize = 64 << 20

const defaultHistogramInterval = int64(60_000)

// ViewServer exposes one message view over HTTP.
type ViewServer struct {
	controller *engine.Controller
	grid       *grid.Grid
	fetcher    source.Fetcher
	exporter   *storage.Exporter
	writer     *storage.ExportWriter
	topics     *registry.Store
	logger     *slog.Logger
	webDir     string // Directory for static web files
	srv        *http.Server
	parser     fastjson.ParserPool
	fetchLimit int
	timeout    time.Duration
}

// Options configure a ViewServer. Fetcher and Exporter may be nil, which
// disables the fetch route and storing exports respectively.
type Options struct {
	Fetcher      source.Fetcher
	Exporter     *storage.Exporter
	Codec        storage.Codec
	Topics       *registry.Store // created when nil
	Logger       *slog.Logger
	WebDir       string
	FetchLimit   int
	FetchTimeout time.Duration
}

// NewViewServer wires the controller to a grid and the given collaborators.
func NewViewServer(c *engine.Controller, opts Options) (*ViewServer, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Topics == nil {
		opts.Topics = registry.NewStore()
	}
	if opts.Codec == 0 {
		opts.Codec = storage.CodecZstd
	}
	w, err := storage.NewExportWriter(opts.Codec)
	if err != nil {
		return nil, err
	}

	g := grid.New()
	g.OnFilterChanged(c.OnFilterChanged)
	c.OnGridReady(g)

	return &ViewServer{
		controller: c,
		grid:       g,
		fetcher:    opts.Fetcher,
		exporter:   opts.Exporter,
		writer:     w,
		topics:     opts.Topics,
		logger:     opts.Logger,
		webDir:     opts.WebDir,
		fetchLimit: opts.FetchLimit,
		timeout:    opts.FetchTimeout,
	}, nil
}

// Handler returns the routes of the server.
func (s *ViewServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/fetch", s.handleFetch)
	mux.HandleFunc("/api/batch", s.handleBatch)
	mux.HandleFunc("/api/view", s.handleView)
	mux.HandleFunc("/api/filter", s.handleFilter)
	mux.HandleFunc("/api/search", s.handleSearch)
	mux.HandleFunc("/api/export", s.handleExport)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/histogram", s.handleHistogram)
	mux.HandleFunc("/api/topics", registry.NewServer(s.topics).HandleListTopics)
	mux.Handle("/metrics", promhttp.Handler())

	// Static file serving for web directory
	if s.webDir != "" {
		fs := http.FileServer(http.Dir(s.webDir))
		mux.Handle("/", fs)
	}
	return mux
}

// Start runs the HTTP server.
func (s *ViewServer) Start(addr string) error {
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("view server listening", "addr", addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *ViewServer) Shutdown(ctx context.Context) error {
	if s.srv != nil {
		return s.srv.Shutdown(ctx)
	}
	return nil
}

type columnView struct {
	engine.ColumnDefinition
	Visible bool `json:"visible"`
}

type viewResponse struct {
	Title    string                 `json:"title"`
	Error    string                 `json:"error,omitempty"`
	Warning  string                 `json:"warning,omitempty"`
	BatchID  string                 `json:"batchId,omitempty"`
	Search   string                 `json:"search"`
	Filters  engine.FilterModel     `json:"filters"`
	Columns  []columnView           `json:"columns"`
	Visible  []string               `json:"visibleColumns"`
	Rows     [][]string             `json:"rows"`
	Raw      []engine.RawProjection `json:"raw"`
	RowCount int                    `json:"rowCount"`
}

func (s *ViewServer) view() viewResponse {
	c := s.controller
	resp := viewResponse{
		Title:   c.Title(),
		Error:   c.Error(),
		Warning: c.Warning(),
		BatchID: c.BatchID(),
		Search:  c.Search(),
		Filters: s.grid.FilterModel(),
		Raw:     c.RawProjections(),
	}
	for _, col := range s.grid.Columns() {
		resp.Columns = append(resp.Columns, columnView{
			ColumnDefinition: col,
			Visible:          s.grid.ColumnVisible(col.Key()),
		})
	}
	visible, rows := s.grid.Render()
	for _, col := range visible {
		resp.Visible = append(resp.Visible, col.Field)
	}
	resp.Rows = rows
	resp.RowCount = len(c.Rows())
	return resp
}

func (s *ViewServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("json encode error", "error", err)
	}
}

func (s *ViewServer) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		s.logger.Warn("failed to read body", "error", err, "path", r.URL.Path)
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return nil, false
	}
	defer r.Body.Close()
	return body, true
}

// parseObject parses a JSON object body. An empty body is an empty object.
func (s *ViewServer) parseObject(w http.ResponseWriter, body []byte, fn func(v *fastjson.Value) error) bool {
	if len(body) == 0 {
		body = []byte("{}")
	}
	p := s.parser.Get()
	defer s.parser.Put(p)

	v, err := p.ParseBytes(body)
	if err == nil && v.Type() != fastjson.TypeObject {
		err = errors.New("expected a JSON object")
	}
	if err == nil {
		err = fn(v)
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid request: %v", err), http.StatusBadRequest)
		return false
	}
	return true
}

// handleFetch processes POST /api/fetch: pull a batch through the configured
// fetcher and switch to its topic context once the fetch succeeded.
func (s *ViewServer) handleFetch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.fetcher == nil {
		http.Error(w, "No fetch source configured", http.StatusNotImplemented)
		return
	}
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	q := source.Query{Limit: s.fetchLimit, Timeout: s.timeout}
	if !s.parseObject(w, body, func(v *fastjson.Value) error {
		q.Topic = string(v.GetStringBytes("topic"))
		q.Partition = string(v.GetStringBytes("partition"))
		if n := v.GetInt("limit"); n > 0 {
			q.Limit = n
		}
		if ms := v.GetInt64("timeoutMs"); ms > 0 {
			q.Timeout = time.Duration(ms) * time.Millisecond
		}
		return nil
	}) {
		return
	}

	s.controller.OnFetchStarted()
	started := time.Now()
	res := s.fetcher.Fetch(r.Context(), q)
	metrics.ObserveFetch(started)
	// a failed fetch keeps the previous context with its rows
	if res.Error == "" {
		s.controller.SetBrowseContext(q.Browse())
	}
	s.controller.OnBatchFetched(res)
	s.observe(res)

	s.writeJSON(w, http.StatusOK, s.view())
}

// handleBatch processes POST /api/batch: an external collaborator pushes a
// fetch result for the current context.
func (s *ViewServer) handleBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	res, err := source.DecodeFetchResult(body)
	if err != nil {
		s.logger.Warn("invalid batch", "error", err)
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	if q := r.URL.Query(); q.Has("topic") && res.Error == "" {
		s.controller.SetBrowseContext(model.BrowseContext{
			Topic:     q.Get("topic"),
			Partition: q.Get("partition"),
		})
	}
	s.controller.OnFetchStarted()
	s.controller.OnBatchFetched(res)
	s.observe(res)

	s.writeJSON(w, http.StatusOK, s.view())
}

// handleView processes GET /api/view.
func (s *ViewServer) handleView(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, s.view())
}

// handleFilter processes POST /api/filter. The body is either
// {"field": ..., "expr": ...} for one column or {"model": {...}} to replace
// every filter.
func (s *ViewServer) handleFilter(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	if !s.parseObject(w, body, func(v *fastjson.Value) error {
		if m := v.GetObject("model"); m != nil {
			fm := make(engine.FilterModel)
			var visitErr error
			m.Visit(func(key []byte, val *fastjson.Value) {
				b, err := val.StringBytes()
				if err != nil {
					visitErr = fmt.Errorf("filter %q: %w", key, err)
					return
				}
				fm[string(key)] = string(b)
			})
			if visitErr != nil {
				return visitErr
			}
			return s.grid.SetFilterModel(fm)
		}
		field := string(v.GetStringBytes("field"))
		if field == "" {
			return errors.New("missing field")
		}
		return s.grid.SetFilter(field, string(v.GetStringBytes("expr")))
	}) {
		return
	}

	s.writeJSON(w, http.StatusOK, s.view())
}

// handleSearch processes POST /api/search.
func (s *ViewServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	var text string
	if !s.parseObject(w, body, func(v *fastjson.Value) error {
		text = string(v.GetStringBytes("text"))
		return nil
	}) {
		return
	}

	s.controller.OnSearchChanged(text)
	s.writeJSON(w, http.StatusOK, s.view())
}

// handleExport serves the applied batch as an export file on GET and stores
// it through the configured destination on POST.
func (s *ViewServer) handleExport(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		data, err := s.writer.Encode(s.controller.RawProjections())
		if err != nil {
			s.logger.Error("export failed", "error", err)
			http.Error(w, "Export failed", http.StatusInternalServerError)
			return
		}
		name := storage.ExportName(s.controller.BatchID(), time.Now())
		w.Header().Set("Content-Type", storage.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		w.WriteHeader(http.StatusOK)
		w.Write(data)

	case http.MethodPost:
		if s.exporter == nil {
			http.Error(w, "No export destination configured", http.StatusNotImplemented)
			return
		}
		location, err := s.exporter.Export(r.Context(), s.controller)
		if err != nil {
			s.logger.Error("export failed", "error", err)
			http.Error(w, "Export failed", http.StatusBadGateway)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{"location": location})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleStats processes GET /api/stats.
func (s *ViewServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, s.controller.Stats())
}

// handleHistogram processes GET /api/histogram?interval=<ms>: row counts per
// time bucket over the rows that pass the filters and the search.
func (s *ViewServer) handleHistogram(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	interval := defaultHistogramInterval
	if v := r.URL.Query().Get("interval"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid interval", http.StatusBadRequest)
			return
		}
		interval = n
	}
	s.writeJSON(w, http.StatusOK, engine.Histogram(s.grid.RowsAfterFilter(), interval))
}

// observe counts the batch and lists the topics of a usable one.
func (s *ViewServer) observe(res model.FetchResult) {
	metrics.ObserveBatch(res, s.controller.Stats())
	if res.Error == "" {
		s.topics.Observe(res.Messages)
	}
}
