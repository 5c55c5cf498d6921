package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"scene-prompt-server/modules/common/media"
	"scene-prompt-server/modules/common/redis"
	"scene-prompt-server/modules/composer"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the HTTP API server.

Endpoints:
  /health, /                 health check
  /metrics                   Prometheus metrics
  /api/schema/{variant}      scene fields
  /api/sessions/...          session + workspace actions
  /ws?session=<id>           workspace state events
  /admin/cleanup             force session cleanup`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx, serverLogs)
		if err != nil {
			return err
		}
		defer a.logger.Sync()

		port := a.cfg.Port
		if servePort != "" {
			port = servePort
		}
		a.logger.Info("⚙️  Config loaded", a.cfg.Summary()...)

		// 재진입 guard (Redis 설정 시 공유 guard)
		var guard composer.Guard = composer.NewMemoryGuard()
		rdb, err := redis.Connect(ctx, a.cfg, a.logger)
		if err != nil {
			return err
		}
		if rdb != nil {
			defer rdb.Close()
			guard = composer.NewRedisGuard(rdb, a.cfg.GuardTTL, a.logger)
		}

		sessions := composer.NewSessionManager(a.service, guard, composer.SessionOptions{
			TTL:     a.cfg.SessionTTL,
			IdleTTL: a.cfg.SessionIdleTTL,
		}, a.logger)
		sessions.StartCleanupRoutine(ctx, 5*time.Minute)

		handler := composer.NewHandler(sessions, media.NewEncoder(a.cfg.MediaMaxBytes), a.logger)

		// 라우터 설정
		r := mux.NewRouter()
		r.Use(composer.RecoveryMiddleware(a.logger))
		r.Use(composer.RequestIDMiddleware())
		r.Use(composer.LoggingMiddleware(a.logger))

		r.HandleFunc("/", healthCheck).Methods("GET")
		r.HandleFunc("/health", healthCheck).Methods("GET")
		r.Handle("/metrics", promhttp.Handler()).Methods("GET")
		handler.RegisterRoutes(r)

		srv := &http.Server{
			Addr:              ":" + port,
			Handler:           composer.EnableCORS(r), // preflight 는 라우트 매칭 전에 처리
			ReadHeaderTimeout: 10 * time.Second,
		}

		a.logger.Info("🚀 Scene prompt server starting", zap.String("port", port))
		a.logger.Info("📡 WebSocket endpoint", zap.String("url", "ws://localhost:"+port+"/ws?session=<id>"))

		errCh := make(chan error, 1)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		a.logger.Info("🛑 Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (default: PORT or 8080)")
}

// 헬스 체크 엔드포인트
func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "scene-prompt-server",
	})
}
