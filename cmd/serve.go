package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/popframe/internal/export"
	"github.com/sells-group/popframe/internal/loader"
	"github.com/sells-group/popframe/internal/model"
	"github.com/sells-group/popframe/internal/region"
	"github.com/sells-group/popframe/internal/store"
)

// maxRequestBytes bounds a region payload.
const maxRequestBytes = 64 << 20

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}
		eng, err := newEngine(cfg)
		if err != nil {
			return err
		}
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		if st != nil {
			defer st.Close() //nolint:errcheck
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		limiter := rate.NewLimiter(rate.Limit(cfg.Server.RatePerSec), cfg.Server.Burst)
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newServer(eng, st, limiter).routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// server answers engine requests over HTTP. st may be nil.
type server struct {
	eng     *engine
	st      store.Store
	limiter *rate.Limiter
}

func newServer(eng *engine, st store.Store, limiter *rate.Limiter) *server {
	return &server{eng: eng, st: st, limiter: limiter}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"X-Run-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		if s.limiter != nil {
			r.Use(rateLimit(s.limiter))
		}
		r.Post("/network", s.handleNetwork)
		r.Post("/agglomerations", s.handleAgglomerations)
		r.Post("/analysis", s.handleAnalysis)
	})
	return r
}

// regionRequest is the JSON body of every engine endpoint. Populations is
// either an object of overrides keyed by settlement id, or a GeoJSON
// FeatureCollection of population units.
type regionRequest struct {
	Settlements json.RawMessage `json:"settlements"`
	Matrix      struct {
		IDs    []int64     `json:"ids"`
		Values [][]float64 `json:"values"`
	} `json:"matrix"`
	Boundary    json.RawMessage `json:"boundary"`
	Populations json.RawMessage `json:"populations,omitempty"`
}

func (s *server) decodeRegion(w http.ResponseWriter, r *http.Request) (*region.Region, region.PopulationSource, error) {
	src := region.UseDefault()

	var req regionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		return nil, src, eris.Wrapf(model.ErrInvalidInput, "decode request: %v", err)
	}
	if len(req.Settlements) == 0 || len(req.Boundary) == 0 {
		return nil, src, eris.Wrap(model.ErrInvalidInput, "settlements and boundary are required")
	}

	settlements, err := loader.DecodeSettlements(req.Settlements, loader.DefaultFields())
	if err != nil {
		return nil, src, err
	}
	matrix, err := model.NewMatrix(req.Matrix.IDs, req.Matrix.Values)
	if err != nil {
		return nil, src, err
	}
	boundary, err := loader.DecodeBoundary(req.Boundary)
	if err != nil {
		return nil, src, err
	}
	in := &loader.Inputs{
		Settlements: settlements,
		Matrix:      matrix,
		Boundary:    loader.WithSRID(boundary, s.eng.srid),
		Populations: src,
	}
	if len(req.Populations) > 0 && string(req.Populations) != "null" {
		if loader.IsFeatureCollection(req.Populations) {
			units, err := loader.DecodeUnits(req.Populations, loader.DefaultFields())
			if err != nil {
				return nil, src, err
			}
			for i := range units {
				units[i].Geometry = loader.WithSRID(units[i].Geometry, s.eng.srid)
			}
			in.Units = units
		} else {
			pops, err := loader.DecodePopulations(req.Populations)
			if err != nil {
				return nil, src, err
			}
			in.Populations = region.Provided(pops)
		}
	}

	return s.eng.prepare(in)
}

// handleNetwork answers the whole network, or only its points or lines
// with ?view=nodes or ?view=edges.
func (s *server) handleNetwork(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reg, src, err := s.decodeRegion(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	t, err := startRun(ctx, s.st, model.RunKindNetwork, nil)
	if err != nil {
		writeError(w, err)
		return
	}

	start := time.Now()
	res, err := s.eng.runNetwork(reg, src)
	if err != nil {
		writeError(w, t.finish(ctx, nil, err))
		return
	}
	if err := t.finish(ctx, networkSummary(res, start), nil); err != nil {
		zap.L().Warn("serve: record network run", zap.Error(err))
	}
	var fc *geojson.FeatureCollection
	switch r.URL.Query().Get("view") {
	case "nodes":
		fc = export.NodeFeatures(res.Graph)
	case "edges":
		fc = export.EdgeFeatures(res.Graph)
	default:
		fc = export.NetworkFeatures(res.Graph)
	}
	writeFeatures(w, t.ID(), func() error { return export.WriteGeoJSON(w, fc) })
}

// handleAgglomerations answers agglomeration polygons, or settlement
// memberships when called with ?view=membership.
func (s *server) handleAgglomerations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reg, src, err := s.decodeRegion(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	t, err := startRun(ctx, s.st, model.RunKindAgglomeration, s.eng.agglomeration)
	if err != nil {
		writeError(w, err)
		return
	}

	start := time.Now()
	res, err := s.eng.runAgglomeration(reg, src)
	if err != nil {
		writeError(w, t.finish(ctx, nil, err))
		return
	}
	if err := t.saveAgglomerations(ctx, res.Agglomerations, res.Memberships); err != nil {
		writeError(w, t.finish(ctx, nil, err))
		return
	}
	if err := t.finish(ctx, agglomerationSummary(res, start), nil); err != nil {
		zap.L().Warn("serve: record agglomeration run", zap.Error(err))
	}

	fc := export.AgglomerationFeatures(res.Agglomerations)
	if r.URL.Query().Get("view") == "membership" {
		fc = export.MembershipFeatures(res.Settlements, res.Memberships)
	}
	writeFeatures(w, t.ID(), func() error { return export.WriteGeoJSON(w, fc) })
}

func (s *server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reg, src, err := s.decodeRegion(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	t, err := startRun(ctx, s.st, model.RunKindAnalysis, s.eng.analysis)
	if err != nil {
		writeError(w, err)
		return
	}

	start := time.Now()
	res, err := s.eng.runAnalysis(reg, src)
	if err != nil {
		writeError(w, t.finish(ctx, nil, err))
		return
	}
	if err := t.finish(ctx, analysisSummary(res, start), nil); err != nil {
		zap.L().Warn("serve: record analysis run", zap.Error(err))
	}
	writeFeatures(w, t.ID(), func() error {
		return export.WriteGeoJSON(w, export.AreaFeatures(res.Areas))
	})
}

func rateLimit(l *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow() {
				writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeFeatures(w http.ResponseWriter, runID string, write func() error) {
	w.Header().Set("Content-Type", "application/geo+json")
	if runID != "" {
		w.Header().Set("X-Run-ID", runID)
	}
	w.WriteHeader(http.StatusOK)
	if err := write(); err != nil {
		zap.L().Error("serve: write response", zap.Error(err))
	}
}

// writeError maps rejected input to 400 and everything else to 500.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if eris.Is(err, model.ErrInvalidInput) || eris.Is(err, model.ErrUnclassifiable) {
		status = http.StatusBadRequest
	} else {
		zap.L().Error("serve: request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
