package server

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/region23/navatar/pkg/logger"
)

// SecurityLogger логирует события безопасности
type SecurityLogger struct {
	logger *logger.Logger
}

// NewSecurityLogger создает новый логгер безопасности
func NewSecurityLogger(log *logger.Logger) *SecurityLogger {
	return &SecurityLogger{logger: log}
}

// LogFailedAuth логирует неудачную попытку аутентификации
func (sl *SecurityLogger) LogFailedAuth(r *http.Request, reason string) {
	sl.logger.Warn("Authentication failed",
		logger.String("reason", reason),
		logger.String("ip", clientIP(r)),
		logger.String("path", r.URL.Path),
		logger.String("method", r.Method),
	)
}

// LogForbidden логирует попытку действовать от имени другого владельца
func (sl *SecurityLogger) LogForbidden(r *http.Request, owner, target string) {
	sl.logger.Warn("Owner mismatch",
		logger.String("token_owner", owner),
		logger.String("requested_owner", target),
		logger.String("ip", clientIP(r)),
		logger.String("path", r.URL.Path),
	)
}

// LogValidationError логирует ошибки валидации
func (sl *SecurityLogger) LogValidationError(r *http.Request, fieldName string, value interface{}, reason string) {
	sl.logger.Warn("Validation error",
		logger.String("field", fieldName),
		logger.Any("value", value),
		logger.String("reason", reason),
		logger.String("ip", clientIP(r)),
		logger.String("path", r.URL.Path),
	)
}

// LogSystemEvent логирует системные события
func (sl *SecurityLogger) LogSystemEvent(event string, level string, details map[string]interface{}) {
	fields := []logger.Field{
		logger.String("event", event),
		logger.Int64("timestamp", time.Now().UTC().Unix()),
	}
	for key, value := range details {
		fields = append(fields, logger.Any(key, value))
	}

	switch strings.ToLower(level) {
	case "error":
		sl.logger.Error("System event", fields...)
	case "warn", "warning":
		sl.logger.Warn("System event", fields...)
	case "debug":
		sl.logger.Debug("System event", fields...)
	default:
		sl.logger.Info("System event", fields...)
	}
}

// clientIP адрес клиента для журнала безопасности
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		first, _, _ := strings.Cut(ip, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// securityAuditMiddleware логирует изменяющие запросы и ответы с ошибкой
func (s *Server) securityAuditMiddleware(securityLogger *SecurityLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &auditResponseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(wrapped, r)

			mutating := r.Method == http.MethodPost || r.Method == http.MethodDelete
			if !mutating && wrapped.statusCode < 400 {
				return
			}

			details := map[string]interface{}{
				"method":        r.Method,
				"path":          r.URL.Path,
				"ip":            clientIP(r),
				"status_code":   wrapped.statusCode,
				"duration_ms":   time.Since(start).Milliseconds(),
				"bytes_written": wrapped.bytesWritten,
			}
			level := "info"
			if wrapped.statusCode >= 500 {
				level = "error"
			} else if wrapped.statusCode == http.StatusUnauthorized || wrapped.statusCode == http.StatusForbidden {
				level = "warn"
			}
			securityLogger.LogSystemEvent("bookings_audit", level, details)
		})
	}
}

// auditResponseWriter оборачивает ResponseWriter для сбора метрик
type auditResponseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
}

// WriteHeader перехватывает status code
func (arw *auditResponseWriter) WriteHeader(code int) {
	arw.statusCode = code
	arw.ResponseWriter.WriteHeader(code)
}

// Write перехватывает количество записанных байт
func (arw *auditResponseWriter) Write(data []byte) (int, error) {
	n, err := arw.ResponseWriter.Write(data)
	arw.bytesWritten += int64(n)
	return n, err
}
