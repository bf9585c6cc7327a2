package http

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/couchcryptid/cruise-data-etl/internal/domain"
	"github.com/couchcryptid/cruise-data-etl/internal/products"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CruiseLister enumerates cruises with raw data.
type CruiseLister interface {
	Cruises(ctx context.Context) ([]string, error)
}

// ProductGenerator renders products on demand.
type ProductGenerator interface {
	Product(ctx context.Context, cruise, product string) (products.Table, error)
	CastStations(ctx context.Context, cruise string) (*domain.CastStations, error)
}

// ProductFiles opens previously stored products.
type ProductFiles interface {
	Open(cruise, product, ext string) (*os.File, error)
}

// API groups the backends of the /api routes. Files may be nil.
type API struct {
	Cruises   CruiseLister
	Generator ProductGenerator
	Files     ProductFiles
}

// Server exposes health, readiness, metrics and the product API.
type Server struct {
	httpServer *http.Server
	api        API
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and
// /api routes.
func NewServer(addr string, api API, ready sharedobs.ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		api:    api,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/cruises", s.handleCruises)
	mux.HandleFunc("GET /api/events/{cruise}", s.handleProduct(products.ProductElog))
	mux.HandleFunc("GET /api/underway/{cruise}", s.handleProduct(products.ProductUnderway))
	mux.HandleFunc("GET /api/stations/{cruise}", s.handleProduct(products.ProductStations))
	mux.HandleFunc("GET /api/ctd/{cruise}/{file}", s.handleCTDMetadata)
	mux.HandleFunc("GET /api/ctd/{cruise}/casts/{cast}/station", s.handleCastStation)
	mux.HandleFunc("GET /api/products/{cruise}/{file}", s.handleStoredProduct)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleCruises(w http.ResponseWriter, r *http.Request) {
	cruises, err := s.api.Cruises.Cruises(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if cruises == nil {
		cruises = []string{}
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{"cruises": cruises})
}

// handleProduct serves /api/<kind>/{cruise}[.csv|.json].
func (s *Server) handleProduct(product string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cruise, format := splitFormat(r.PathValue("cruise"))
		if !s.validCruise(w, r, cruise) {
			return
		}
		s.renderProduct(w, r, cruise, product, format)
	}
}

// handleCTDMetadata serves /api/ctd/{cruise}/metadata[.csv|.json].
func (s *Server) handleCTDMetadata(w http.ResponseWriter, r *http.Request) {
	name, format := splitFormat(r.PathValue("file"))
	if name != "metadata" {
		http.NotFound(w, r)
		return
	}
	cruise := r.PathValue("cruise")
	if !s.validCruise(w, r, cruise) {
		return
	}
	s.renderProduct(w, r, cruise, products.ProductCTDMetadata, format)
}

func (s *Server) handleCastStation(w http.ResponseWriter, r *http.Request) {
	cruise, cast := r.PathValue("cruise"), r.PathValue("cast")
	if !s.validCruise(w, r, cruise) {
		return
	}
	cs, err := s.api.Generator.CastStations(r.Context(), cruise)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	station := cs.StationFor(cast)
	if station == "" {
		sharedobs.WriteJSON(w, http.StatusNotFound, map[string]string{
			"error": "no station recorded for cast " + cast,
		})
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]string{
		"cruise":  strings.ToLower(cruise),
		"cast":    cast,
		"station": station,
	})
}

// handleStoredProduct serves /api/products/{cruise}/{product}.{csv|json|meta.json}.
func (s *Server) handleStoredProduct(w http.ResponseWriter, r *http.Request) {
	if s.api.Files == nil {
		http.NotFound(w, r)
		return
	}
	cruise := r.PathValue("cruise")
	if !s.validCruise(w, r, cruise) {
		return
	}
	product, ext, ok := strings.Cut(r.PathValue("file"), ".")
	if !ok || !slices.Contains(products.All, product) {
		http.NotFound(w, r)
		return
	}
	f, err := s.api.Files.Open(cruise, product, ext)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if ext == "csv" {
		w.Header().Set("Content-Disposition", attachment(products.BaseName(cruise, product)+".csv"))
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func (s *Server) renderProduct(w http.ResponseWriter, r *http.Request, cruise, product, format string) {
	if format != "json" && format != "csv" {
		http.NotFound(w, r)
		return
	}
	table, err := s.api.Generator.Product(r.Context(), cruise, product)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if format == "csv" {
		err = products.WriteCSV(&buf, table)
	} else {
		err = products.WriteJSON(&buf, table)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if format == "csv" {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", attachment(products.BaseName(cruise, product)+".csv"))
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes()) //nolint:errcheck // client went away
}

// writeError maps missing and malformed inputs to 404; anything else is a
// 500 and gets logged.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if domain.IsNotFound(err) {
		sharedobs.WriteJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	s.logger.Error("api request failed", "path", r.URL.Path, "error", err)
	sharedobs.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

// splitFormat strips a ".csv" or ".json" suffix. No suffix means json.
// validCruise writes a 404 for cruise names that are not plain identifiers.
func (s *Server) validCruise(w http.ResponseWriter, r *http.Request, cruise string) bool {
	if err := domain.ValidateCruise(cruise); err != nil {
		s.writeError(w, r, err)
		return false
	}
	return true
}

func splitFormat(name string) (base, format string) {
	for _, ext := range []string{"csv", "json"} {
		if b, ok := strings.CutSuffix(name, "."+ext); ok {
			return b, ext
		}
	}
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		return name[:i], name[i+1:]
	}
	return name, "json"
}

func attachment(filename string) string {
	return `attachment; filename="` + filename + `"`
}
