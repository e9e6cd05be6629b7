package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sponsorlens/riskscan/internal/model"
	"github.com/sponsorlens/riskscan/internal/pipeline"
)

var servePort int

// scanGuard serializes scans per creator key. The store is last-writer-wins,
// so interleaved rescans of the same creator would race on the cache entry.
type scanGuard struct {
	mu     sync.Mutex
	active map[string]bool
}

func newScanGuard() *scanGuard {
	return &scanGuard{active: make(map[string]bool)}
}

// tryAcquire reports whether the key was free and marks it in flight.
func (g *scanGuard) tryAcquire(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active[key] {
		return false
	}
	g.active[key] = true
	return true
}

func (g *scanGuard) release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.active, key)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for scan requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		guard := newScanGuard()

		r.Post("/api/scans", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				Name       string   `json:"name"`
				Handle     string   `json:"handle"`
				ChannelURL string   `json:"channel_url"`
				Aliases    []string `json:"aliases"`
				Force      bool     `json:"force"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
				return
			}
			if body.Name == "" {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
				return
			}

			creator := model.Creator{
				Name:       body.Name,
				Handle:     body.Handle,
				ChannelURL: body.ChannelURL,
			}

			if !guard.tryAcquire(creator.Key()) {
				writeJSON(w, http.StatusConflict, map[string]string{
					"error":   "scan already in progress for creator",
					"creator": creator.Name,
				})
				return
			}

			// Scans run minutes, not milliseconds. Accept and work in the
			// background; the outcome is retrievable once persisted.
			go func() {
				defer guard.release(creator.Key())
				outcome, err := env.Pipeline.Run(ctx, creator, pipeline.RunOptions{
					Aliases: body.Aliases,
					Force:   body.Force,
				})
				if err != nil {
					zap.L().Error("api scan failed",
						zap.String("creator", creator.Name),
						zap.Error(err),
					)
					return
				}
				zap.L().Info("api scan complete",
					zap.String("creator", creator.Name),
					zap.String("risk_level", string(outcome.RiskLevel)),
				)
			}()

			writeJSON(w, http.StatusAccepted, map[string]string{
				"status":  "accepted",
				"creator": creator.Name,
			})
		})

		r.Get("/api/outcomes/{name}", func(w http.ResponseWriter, req *http.Request) {
			creator := model.Creator{Name: chi.URLParam(req, "name")}
			outcome, err := env.Store.GetOutcome(req.Context(), creator.Key())
			if err != nil {
				zap.L().Error("api outcome lookup failed", zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "lookup failed"})
				return
			}
			if outcome == nil {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "no outcome for creator"})
				return
			}
			writeJSON(w, http.StatusOK, outcome)
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
