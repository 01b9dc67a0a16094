package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/awards-cli/internal/award"
	"github.com/sells-group/awards-cli/internal/model"
	"github.com/sells-group/awards-cli/internal/pipeline"
	"github.com/sells-group/awards-cli/internal/scheduler"
	"github.com/sells-group/awards-cli/internal/store"
)

const (
	awardsCacheControl = "s-maxage=604800, stale-while-revalidate"
	maxDocumentBytes   = 4 << 20
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve award lists and configuration documents over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		if cfg.Schedule.Enabled {
			sched := scheduler.New(env.Service, cfg.Schedule.Spec, cfg.Schedule.Brands)
			if err := sched.Start(ctx); err != nil {
				return err
			}
			defer func() { <-sched.Stop().Done() }()
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           buildRouter(env, routerOptions{Metrics: cfg.Metrics.Enabled, CORSOrigins: cfg.Server.CORSOrigins}),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
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

type routerOptions struct {
	Metrics     bool
	CORSOrigins []string
	Now         func() time.Time
}

// buildRouter wires the HTTP API onto env.
func buildRouter(env *appEnv, opts routerOptions) http.Handler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	h := &handlers{env: env, now: opts.Now}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/awards", func(r chi.Router) {
		r.Get("/", h.awards)
		r.Get("/{brand}", h.brandAwards)
	})

	r.Route("/api/json-provider/{collection}/{document}", func(r chi.Router) {
		r.Get("/", h.document)
		r.Put("/", h.putDocument)
		r.Get("/{key}", h.documentKey)
		r.Options("/{key}", h.documentKeyOptions)
	})

	if opts.Metrics && env.Metrics != nil {
		r.Handle("/metrics", env.Metrics.Handler())
	}
	return r
}

type handlers struct {
	env *appEnv
	now func() time.Time
}

func (h *handlers) awards(w http.ResponseWriter, r *http.Request) {
	awards := h.env.Service.AggregateAwards(r.Context(), bypassRequested(r))
	if r.URL.Query().Get("upcoming") == "true" {
		awards = upcoming(awards, h.now())
	}
	w.Header().Set("Cache-Control", awardsCacheControl)
	writeJSON(w, http.StatusOK, awards)
}

func (h *handlers) brandAwards(w http.ResponseWriter, r *http.Request) {
	awards, err := h.env.Service.AggregateAwardsForBrand(r.Context(), chi.URLParam(r, "brand"), bypassRequested(r))
	if errors.Is(err, pipeline.ErrBrandNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Brand not found or no awards"})
		return
	}
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if r.URL.Query().Get("upcoming") == "true" {
		awards = upcoming(awards, h.now())
	}
	w.Header().Set("Cache-Control", awardsCacheControl)
	writeJSON(w, http.StatusOK, awards)
}

func (h *handlers) document(w http.ResponseWriter, r *http.Request) {
	data, ok := h.loadDocument(w, r)
	if !ok {
		return
	}
	writeRawJSON(w, http.StatusOK, data)
}

func (h *handlers) documentKey(w http.ResponseWriter, r *http.Request) {
	setKeyCORS(w)
	data, ok := h.loadDocument(w, r)
	if !ok {
		return
	}
	key := chi.URLParam(r, "key")
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": fmt.Sprintf("Key '%s' not found", key)})
		return
	}
	value, found := fields[key]
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": fmt.Sprintf("Key '%s' not found", key)})
		return
	}
	writeRawJSON(w, http.StatusOK, value)
}

func (h *handlers) documentKeyOptions(w http.ResponseWriter, _ *http.Request) {
	setKeyCORS(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) putDocument(w http.ResponseWriter, r *http.Request) {
	if h.env.Writer == nil {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Store is read-only"})
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxDocumentBytes+1))
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if len(body) > maxDocumentBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "Document too large"})
		return
	}
	body = bytes.TrimSpace(body)
	if !json.Valid(body) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON"})
		return
	}

	collection, document := chi.URLParam(r, "collection"), chi.URLParam(r, "document")
	if _, err := h.env.Writer.PutDocuments(r.Context(), []store.Document{{
		Collection: collection,
		Name:       document,
		Data:       body,
	}}); err != nil {
		writeInternalError(w, err)
		return
	}
	// Refresh the cached copy so readers see the write.
	if _, err := h.env.Docs.Document(r.Context(), collection, document, true); err != nil {
		zap.L().Warn("document cache refresh failed",
			zap.String("collection", collection),
			zap.String("document", document),
			zap.Error(err),
		)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// loadDocument reads the routed document, writing the error response
// itself when it cannot.
func (h *handlers) loadDocument(w http.ResponseWriter, r *http.Request) (json.RawMessage, bool) {
	data, err := h.env.Docs.Document(r.Context(), chi.URLParam(r, "collection"), chi.URLParam(r, "document"), bypassRequested(r))
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Document not found"})
		return nil, false
	}
	if err != nil {
		writeInternalError(w, err)
		return nil, false
	}
	return data, true
}

func bypassRequested(r *http.Request) bool {
	return r.URL.Query().Get("cache") == "false"
}

// upcoming keeps awards whose event date is after now.
func upcoming(awards []model.Award, now time.Time) []model.Award {
	out := make([]model.Award, 0, len(awards))
	for _, a := range awards {
		if t, ok := award.ParseDate(a.FieldDate); ok && t.After(now) {
			out = append(out, a)
		}
	}
	return out
}

func setKeyCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("write response failed", zap.Error(err))
	}
}

func writeRawJSON(w http.ResponseWriter, status int, data json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeInternalError(w http.ResponseWriter, err error) {
	zap.L().Error("request failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error":   "Internal Server Error",
		"message": err.Error(),
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
