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
	"go.uber.org/zap"

	"github.com/habitmastery/blueprint-api/internal/funnel"
	"github.com/habitmastery/blueprint-api/internal/model"
	"github.com/habitmastery/blueprint-api/internal/storage"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the report generation API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initFunnel(ctx, true)
		if err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      newRouter(env),
			ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutS) * time.Second,
			WriteTimeout: time.Duration(cfg.Server.WriteTimeoutS) * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownSecs)*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// reportRequest is the POST /api/reports body. FormData is a pointer so an
// absent key is distinguishable from an empty form and can be rejected.
type reportRequest struct {
	ContactID string             `json:"contactId"`
	Email     string             `json:"email"`
	FormData  *model.FormAnswers `json:"formData"`
	Force     bool               `json:"force,omitempty"`
}

func newRouter(env *funnelEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/reports", func(w http.ResponseWriter, r *http.Request) {
		var req reportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.FormData == nil {
			writeError(w, http.StatusBadRequest, funnel.ErrMissingFields.Error())
			return
		}

		env2, err := env.Orchestrator.Run(r.Context(), funnel.Request{
			ContactID:   req.ContactID,
			Email:       req.Email,
			FormAnswers: *req.FormData,
			Force:       req.Force,
		})
		if err != nil {
			status := statusForError(err)
			if status == http.StatusNotFound {
				writeError(w, status, err.Error(), map[string]string{"contactId": req.ContactID})
				return
			}
			writeError(w, status, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, env2)
	})

	r.Get("/api/reports/{reportID}", func(w http.ResponseWriter, r *http.Request) {
		reportID := chi.URLParam(r, "reportID")

		rec, err := env.Gateway.GetReport(r.Context(), reportID)
		if err != nil {
			if errors.Is(err, storage.ErrObjectNotFound) {
				writeError(w, http.StatusNotFound, "report not found")
				return
			}
			zap.L().Error("report fetch failed",
				zap.String("report_id", reportID),
				zap.Error(err),
			)
			writeError(w, http.StatusBadGateway, "report store unavailable")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"success": true, "report": rec})
	})

	return r
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, funnel.ErrMissingFields):
		return http.StatusBadRequest
	case errors.Is(err, funnel.ErrContactNotFound):
		return http.StatusNotFound
	case errors.Is(err, funnel.ErrEmailMismatch):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, details ...any) {
	body := map[string]any{"success": false, "error": msg}
	if len(details) > 0 && details[0] != nil {
		body["details"] = details[0]
	}
	writeJSON(w, status, body)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
