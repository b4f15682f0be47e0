// Package server HTTP сервис хранилища бронирований: /bookings, /health, /metrics
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/region23/navatar/internal/config"
	"github.com/region23/navatar/internal/identity"
	"github.com/region23/navatar/internal/middleware"
	"github.com/region23/navatar/internal/storage"
	"github.com/region23/navatar/pkg/logger"
)

// Server представляет HTTP сервер с middleware
type Server struct {
	httpServer     *http.Server
	config         *config.Config
	logger         *logger.Logger
	store          storage.ReservationStore
	codec          *identity.TokenCodec
	rateLimiter    *middleware.RateLimiter
	securityLogger *SecurityLogger
	healthChecker  *HealthChecker
	now            func() time.Time
	loc            *time.Location
	version        string
}

// Option настраивает сервер
type Option func(*Server)

// WithTokenCodec включает проверку Bearer токенов владельца
func WithTokenCodec(codec *identity.TokenCodec) Option {
	return func(s *Server) { s.codec = codec }
}

// WithClock подменяет источник текущего времени
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithVersion версия, отдаваемая в /health
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// New создает новый HTTP сервер
func New(cfg *config.Config, log *logger.Logger, store storage.ReservationStore, opts ...Option) *Server {
	server := &Server{
		config:         cfg,
		logger:         log,
		store:          store,
		securityLogger: NewSecurityLogger(log),
		now:            time.Now,
		loc:            cfg.Location,
		version:        "dev",
	}
	for _, opt := range opts {
		opt(server)
	}
	if server.loc == nil {
		server.loc = time.Local
	}

	// Создаем rate limiter для HTTP запросов
	server.rateLimiter = middleware.NewRateLimiter(cfg.Server.RateLimit, time.Minute, log)
	server.healthChecker = NewHealthChecker(store, server.version)

	// Создаем HTTP сервер с таймаутами
	server.httpServer = &http.Server{
		Addr:           ":" + cfg.Server.Port,
		Handler:        server.setupRoutes(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	return server
}

// Handler возвращает корневой обработчик со всеми middleware
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr адрес, на котором слушает сервер
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// setupRoutes настраивает маршруты с middleware
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	// API бронирований
	mux.HandleFunc("GET /bookings/{$}", s.handleList)
	mux.HandleFunc("POST /bookings/{$}", s.handleCreate)
	mux.HandleFunc("DELETE /bookings/{id}", s.handleDelete)

	mux.HandleFunc("GET /health", s.healthChecker.HealthHandler)

	// Метрики Prometheus
	mux.Handle("GET /metrics", promhttp.Handler())

	return s.applyMiddleware(mux)
}

// applyMiddleware применяет middleware в правильном порядке
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	// Применяем middleware в обратном порядке (последний применяется первым)

	// 6. Основной обработчик
	h := handler

	// 5. Prometheus метрики
	h = middleware.PrometheusMiddleware(h)

	// 4. Базовая валидация запроса
	h = s.requestValidationMiddleware(h)

	// 3. Rate limiting
	h = middleware.HTTPRateLimitMiddleware(s.rateLimiter)(h)

	// 2. Аудит и логирование
	h = s.securityAuditMiddleware(s.securityLogger)(h)
	h = s.loggingMiddleware(h)

	// 1. Security headers (применяется первым, выполняется последним)
	h = s.securityHeadersMiddleware(h)

	return h
}

// Start запускает сервер и блокируется до отмены ctx
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server failed to start: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve обслуживает запросы на готовом listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("Starting HTTP server",
		logger.String("addr", ln.Addr().String()),
	)

	// Запускаем сервер в отдельной горутине
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server failed: %w", err)
		}
	}()

	// Ждем завершения контекста или ошибки
	select {
	case err := <-errCh:
		s.rateLimiter.Close()
		return err
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown корректно завершает работу сервера
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")

	// Устанавливаем таймаут для graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if s.rateLimiter != nil {
		s.rateLimiter.Close()
	}

	// Завершаем HTTP сервер
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Error during server shutdown", logger.Error(err))
		s.securityLogger.LogSystemEvent("server_shutdown_error", "error", map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}

	s.logger.Info("HTTP server shut down successfully")
	return nil
}
