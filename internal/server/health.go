package server

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/region23/navatar/internal/storage"
	"github.com/region23/navatar/pkg/metrics"
)

// HealthResponse представляет ответ health check
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Version   string                 `json:"version,omitempty"`
	Uptime    string                 `json:"uptime,omitempty"`
	Checks    map[string]string      `json:"checks"`
	Metrics   map[string]interface{} `json:"metrics,omitempty"`
}

// HealthChecker проверяет состояние системы
type HealthChecker struct {
	store     storage.ReservationStore
	startTime time.Time
	version   string
}

// NewHealthChecker создает новый health checker
func NewHealthChecker(store storage.ReservationStore, version string) *HealthChecker {
	return &HealthChecker{
		store:     store,
		startTime: time.Now(),
		version:   version,
	}
}

// HealthHandler обрабатывает запросы health check
func (h *HealthChecker) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	overallStatus := "healthy"

	// Проверка хранилища
	if err := h.checkStore(ctx); err != nil {
		checks["store"] = "unhealthy: " + err.Error()
		overallStatus = "unhealthy"
	} else {
		checks["store"] = "healthy"
	}

	// Проверка памяти
	checks["memory"] = h.checkMemory()
	if checks["memory"] != "healthy" && overallStatus == "healthy" {
		overallStatus = "warning"
	}

	// Проверка горутин
	checks["goroutines"] = h.checkGoroutines()
	if checks["goroutines"] != "healthy" && overallStatus == "healthy" {
		overallStatus = "warning"
	}

	response := HealthResponse{
		Status:    overallStatus,
		Timestamp: time.Now().Format(time.RFC3339),
		Version:   h.version,
		Uptime:    time.Since(h.startTime).String(),
		Checks:    checks,
		Metrics:   h.collectMetrics(),
	}

	// 200 и для warning
	status := http.StatusOK
	if overallStatus == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

// checkStore проверяет доступность хранилища
func (h *HealthChecker) checkStore(ctx context.Context) error {
	if h.store == nil {
		return nil
	}
	return h.store.Ping(ctx)
}

// checkMemory проверяет использование памяти
func (h *HealthChecker) checkMemory() string {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	metrics.MemoryUsage.Set(float64(m.Alloc))

	const warningLimit = 256 * 1024 * 1024  // 256MB
	const criticalLimit = 512 * 1024 * 1024 // 512MB

	switch {
	case m.Alloc > criticalLimit:
		return "critical: memory usage > 512MB"
	case m.Alloc > warningLimit:
		return "warning: memory usage > 256MB"
	}
	return "healthy"
}

// checkGoroutines проверяет количество горутин
func (h *HealthChecker) checkGoroutines() string {
	count := runtime.NumGoroutine()

	metrics.GoroutinesCount.Set(float64(count))

	const warningLimit = 200
	const criticalLimit = 1000

	switch {
	case count > criticalLimit:
		return "critical: too many goroutines"
	case count > warningLimit:
		return "warning: high goroutine count"
	}
	return "healthy"
}

// collectMetrics собирает основные метрики для health check
func (h *HealthChecker) collectMetrics() map[string]interface{} {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return map[string]interface{}{
		"memory": map[string]interface{}{
			"alloc_bytes": m.Alloc,
			"sys_bytes":   m.Sys,
			"num_gc":      m.NumGC,
		},
		"runtime": map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"gomaxprocs": runtime.GOMAXPROCS(0),
			"version":    runtime.Version(),
		},
		"uptime_seconds": time.Since(h.startTime).Seconds(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
