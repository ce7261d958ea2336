package main

import (
	"context"
	"encoding/json"
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
	"go.uber.org/zap"

	"github.com/civicsignal/civicsync/internal/model"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler and the HTTP API",
	Long:  "Starts the connector scheduler, the recompute drainer, and an HTTP API for health checks, manual runs, votes, and alignment lookups.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		// Scheduler and recompute drainer run for the life of the server.
		go func() {
			if err := env.Ingest.Run(ctx); err != nil && ctx.Err() == nil {
				zap.L().Error("scheduler stopped", zap.Error(err))
			}
		}()
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if _, err := env.Align.DrainQueue(ctx, cfg.Ingest.MaxConcurrent); err != nil {
						zap.L().Error("draining recompute queue", zap.Error(err))
					}
				}
			}
		}()

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST"},
			AllowedHeaders: []string{"Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			if err := env.Store.Ping(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Post("/connectors/{name}/run", func(w http.ResponseWriter, req *http.Request) {
			name := chi.URLParam(req, "name")
			c, err := env.Registry.Get(name)
			if err != nil {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown connector"})
				return
			}

			// The run outlives the request; the lock makes double triggers
			// harmless.
			go func() {
				if _, err := env.Ingest.RunConnector(ctx, c); err != nil {
					zap.L().Error("triggered run failed",
						zap.String("connector", name), zap.Error(err))
				}
			}()
			writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "connector": name})
		})

		r.Put("/users/{id}/address", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				Address string `json:"address"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.Address == "" {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "address is required"})
				return
			}
			n, err := env.Reps.RefreshUser(req.Context(), chi.URLParam(req, "id"), body.Address)
			if err != nil {
				zap.L().Error("refreshing representatives", zap.Error(err))
				writeJSON(w, http.StatusBadGateway, map[string]string{"error": "representative lookup failed"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"status": "refreshed", "officials": n})
		})

		r.Post("/votes", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				UserID    string `json:"user_id"`
				MeasureID string `json:"measure_id"`
				Value     string `json:"value"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
				return
			}
			v := model.UserVoteValue(body.Value)
			if body.UserID == "" || body.MeasureID == "" ||
				(v != model.UserVoteYes && v != model.UserVoteNo && v != model.UserVoteSkip) {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id, measure_id, and a valid value are required"})
				return
			}

			m, err := env.Store.GetMeasureByID(req.Context(), body.MeasureID)
			if err != nil {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "lookup failed"})
				return
			}
			if m == nil {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "measure not found"})
				return
			}

			changed, err := env.Store.UpsertUserVote(req.Context(), &model.UserVote{
				UserID:    body.UserID,
				MeasureID: body.MeasureID,
				Value:     v,
			})
			if err != nil {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "recording vote failed"})
				return
			}
			if changed {
				if err := env.Store.EnqueueRecompute(req.Context(), body.MeasureID); err != nil {
					zap.L().Error("enqueue recompute", zap.Error(err))
				}
			}
			writeJSON(w, http.StatusOK, map[string]any{"status": "recorded", "changed": changed})
		})

		r.Get("/alignment", func(w http.ResponseWriter, req *http.Request) {
			userID := req.URL.Query().Get("user")
			measureID := req.URL.Query().Get("measure")
			if userID == "" || measureID == "" {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user and measure query parameters are required"})
				return
			}
			result, err := env.Store.GetMatchResult(req.Context(), userID, measureID)
			if err != nil {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "lookup failed"})
				return
			}
			if result == nil {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "no match result"})
				return
			}
			writeJSON(w, http.StatusOK, result)
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
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload) //nolint:errcheck
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
