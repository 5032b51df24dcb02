// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/pdiddy/abstract-miner/pkg/types"
)

// Server serves a report over HTTP so plotting tools can query it with
// their own thresholds.
type Server struct {
	report   types.Report
	defaults types.ReportThresholds
	log      io.Writer
}

// NewServer returns a Server for rep. defaults apply when a request omits a
// threshold parameter.
func NewServer(rep types.Report, defaults types.ReportThresholds, log io.Writer) *Server {
	return &Server{report: rep, defaults: defaults, log: log}
}

const apiPrefix = "/api/v1"

// Routes returns the HTTP handler. A known path requested with any method
// other than GET answers 405.
func (s *Server) Routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.loggingMiddleware)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	r.HandleFunc(apiPrefix+"/health", s.healthHandler).Methods(http.MethodGet)
	r.HandleFunc(apiPrefix+"/report", s.reportHandler).Methods(http.MethodGet)
	r.HandleFunc(apiPrefix+"/report/{category}", s.categoryHandler).Methods(http.MethodGet)
	return r
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", http.MethodGet)
	writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	fmt.Fprintf(s.log, "serving report on %s\n", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		fmt.Fprintf(s.log, "%s %s %v\n", r.Method, r.URL.RequestURI(), time.Since(start).Round(time.Microsecond))
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "records": s.report.Records})
}

func (s *Server) reportHandler(w http.ResponseWriter, r *http.Request) {
	th, err := s.thresholds(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, Apply(s.report, th))
}

func (s *Server) categoryHandler(w http.ResponseWriter, r *http.Request) {
	c := types.Category(mux.Vars(r)["category"])
	if _, ok := s.report.Table(c); !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown category %q", c))
		return
	}
	th, err := s.thresholds(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rep := Apply(s.report, th)
	filtered, _ := rep.Table(c)
	writeJSON(w, http.StatusOK, map[string]any{"category": c, "entries": filtered})
}

// thresholds reads the *_min query parameters, falling back to defaults.
func (s *Server) thresholds(r *http.Request) (types.ReportThresholds, error) {
	th := s.defaults
	q := r.URL.Query()
	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"journal_min", &th.Journal},
		{"label_min", &th.Label},
		{"subject_category_min", &th.SubjectCategory},
		{"keyword_min", &th.Keyword},
	} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return th, fmt.Errorf("%s must be a non-negative integer, got %q", p.name, v)
		}
		*p.dst = n
	}
	return th, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
