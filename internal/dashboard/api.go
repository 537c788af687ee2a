package dashboard

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/criapa/DOE-PE/internal/catalog"
	"github.com/criapa/DOE-PE/internal/logger"
	"github.com/criapa/DOE-PE/internal/report"
)

const (
	defaultTopTopics = 10
	maxLimit         = 10_000
)

type server struct {
	svc *Service
	log *slog.Logger
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewRouter exposes the dashboard API
func NewRouter(svc *Service, log *slog.Logger) http.Handler {
	s := &server{svc: svc, log: logger.OrDiscard(log)}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/findings", s.handleFindings)
		r.Get("/findings.csv", s.handleFindingsCSV)
		r.Get("/opportunities", s.handleOpportunities)
		r.Get("/kpis", s.handleKPIs)
		r.Get("/categories", s.handleCategories)
		r.Get("/topics", s.handleTopics)
		r.Post("/reload", s.handleReload)
	})
	return r
}

// ListenAndServe serves the API on addr until ctx is cancelled
func ListenAndServe(ctx context.Context, addr string, handler http.Handler, log *slog.Logger) error {
	log = logger.OrDiscard(log)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("dashboard api starting", slog.String("addr", addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "records": s.svc.Size()})
}

func (s *server) handleFindings(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	recs, err := s.svc.Store().Query(r.Context(), f)
	if err != nil {
		s.fail(w, err)
		return
	}
	if recs == nil {
		recs = []Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *server) handleOpportunities(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	f.Categories = []string{catalog.CategoryContests}

	recs, err := s.svc.Store().Query(r.Context(), f)
	if err != nil {
		s.fail(w, err)
		return
	}
	if recs == nil {
		recs = []Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *server) handleFindingsCSV(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	recs, err := s.svc.Store().Query(r.Context(), f)
	if err != nil {
		s.fail(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="doe_filtrado.csv"`)
	w.WriteHeader(http.StatusOK)
	if err := writeCSV(w, recs); err != nil {
		s.log.Warn("csv export interrupted", slog.Any("err", err))
	}
}

func writeCSV(w io.Writer, recs []Record) error {
	if _, err := io.WriteString(w, report.UTF8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	if err := cw.Write(append(append([]string{}, report.CSVHeader...), "arquivo_origem")); err != nil {
		return err
	}
	for _, rec := range recs {
		if err := cw.Write(append(report.CSVRecord(rec.Finding), rec.OriginFile)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (s *server) handleKPIs(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	k, err := s.svc.Store().KPIs(r.Context(), f)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, k)
}

func (s *server) handleCategories(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	counts, err := s.svc.Store().ByCategory(r.Context(), f)
	if err != nil {
		s.fail(w, err)
		return
	}
	if counts == nil {
		counts = []CategoryCount{}
	}
	writeJSON(w, http.StatusOK, counts)
}

func (s *server) handleTopics(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	n := clampInt(r.URL.Query().Get("n"), defaultTopTopics, 100)

	topics, err := s.svc.Store().TopTopics(r.Context(), f, n)
	if err != nil {
		s.fail(w, err)
		return
	}
	if topics == nil {
		topics = []TopicCount{}
	}
	writeJSON(w, http.StatusOK, topics)
}

func (s *server) handleReload(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Reload(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"files":   res.Files,
		"records": len(res.Records),
		"errors":  res.Errors,
	})
}

func (s *server) fail(w http.ResponseWriter, err error) {
	s.log.Error("dashboard query failed", slog.Any("err", err))
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
}

// parseFilter reads impact, category, q and limit query parameters
func parseFilter(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	f := Filter{
		Categories: parseCSV(q.Get("category")),
		Query:      strings.TrimSpace(q.Get("q")),
		Limit:      clampInt(q.Get("limit"), 0, maxLimit),
	}
	for _, raw := range parseCSV(q.Get("impact")) {
		imp, err := catalog.ParseImpact(raw)
		if err != nil {
			return Filter{}, err
		}
		f.Impacts = append(f.Impacts, imp)
	}
	return f, nil
}

func parseCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func clampInt(raw string, fallback, max int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	if value > max {
		return max
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}
