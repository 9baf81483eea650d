// Пакет server — HTTP-сервер AgriQCert с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на API Gateway.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ArokiaMartinN/agriqcert/internal/api/handlers"
	"github.com/ArokiaMartinN/agriqcert/internal/api/middleware"
	"github.com/ArokiaMartinN/agriqcert/internal/config"
	"github.com/ArokiaMartinN/agriqcert/internal/ratelimit"
)

// Server — HTTP-сервер AgriQCert.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с настроенными routes и middleware.
// jwtAuth — JWT middleware (может быть nil для тестирования без auth).
// limiter — ограничитель частоты публичных verify-запросов (может быть nil).
func New(cfg *config.Config, logger *slog.Logger, handler *handlers.APIHandler, jwtAuth *middleware.JWTAuth, limiter *ratelimit.Limiter) *Server {
	router := NewRouter(logger, handler, jwtAuth, limiter)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// NewRouter собирает chi-роутер с маршрутами API и middleware.
// Вынесен отдельно для тестирования маршрутизации без запуска сервера.
func NewRouter(logger *slog.Logger, handler *handlers.APIHandler, jwtAuth *middleware.JWTAuth, limiter *ratelimit.Limiter) chi.Router {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	// JWT middleware с исключениями для публичных endpoints.
	// Health и metrics проверяются Kubernetes напрямую; auth и verify
	// доступны без токена.
	if jwtAuth != nil {
		router.Use(jwtAuthWithExclusions(jwtAuth,
			"/health/",
			"/metrics",
			"/api/v1/auth/",
			"/api/v1/credentials/verify",
		))
	}

	router.Get("/health/live", handler.HealthLive)
	router.Get("/health/ready", handler.HealthReady)
	router.Get("/metrics", handler.GetMetrics)

	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", handler.Register)
		r.Post("/auth/login", handler.Login)

		r.Route("/batches", func(r chi.Router) {
			r.Post("/", handler.SubmitBatch)
			r.Get("/", handler.ListBatches)
			r.Get("/{id}", handler.GetBatch)
			r.Put("/{id}", handler.UpdateBatch)
			r.Delete("/{id}", handler.DeleteBatch)

			r.With(middleware.RequireRole("qa_agency", "admin")).
				Post("/{id}/reject", handler.RejectBatch)
		})

		r.Route("/inspections", func(r chi.Router) {
			r.Get("/", handler.ListInspections)
			r.Get("/{id}", handler.GetInspection)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole("qa_agency", "admin"))
				r.Post("/", handler.ScheduleInspection)
				r.Put("/{id}", handler.RecordFindings)
				r.Post("/{id}/complete", handler.CompleteInspection)
			})
		})

		r.Route("/credentials", func(r chi.Router) {
			r.With(middleware.RequireRole("qa_agency", "admin")).
				Post("/generate", handler.GenerateCredential)

			// Публичная верификация — с ограничением частоты
			r.Group(func(r chi.Router) {
				r.Use(limiter.Middleware())
				r.Post("/verify", handler.VerifyCredentialDocument)
				r.Get("/verify/{id}", handler.VerifyCredential)
			})

			r.Get("/{id}", handler.GetCredential)
			r.Get("/{id}/qrcode", handler.GetCredentialQRCode)
		})
	})

	return router
}

// jwtAuthWithExclusions оборачивает JWTAuth.Middleware(), пропуская указанные пути.
// Запросы к путям, начинающимся с любого из excludePrefixes, проходят без JWT.
func jwtAuthWithExclusions(jwtAuth *middleware.JWTAuth, excludePrefixes ...string) func(http.Handler) http.Handler {
	jwtMiddleware := jwtAuth.Middleware()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Проверяем, начинается ли путь с исключённого префикса
			for _, prefix := range excludePrefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			// Применяем JWT middleware
			jwtMiddleware(next).ServeHTTP(w, r)
		})
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
