package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/region23/navatar/pkg/logger"
)

// TokenBucket реализует алгоритм Token Bucket для rate limiting
type TokenBucket struct {
	capacity   float64
	tokens     float64
	refillRate float64 // токенов в секунду
	lastRefill time.Time
	now        func() time.Time
	mu         sync.Mutex
}

// NewTokenBucket создает новый TokenBucket
func NewTokenBucket(capacity int, refillRate float64) *TokenBucket {
	return newTokenBucket(capacity, refillRate, time.Now)
}

func newTokenBucket(capacity int, refillRate float64, now func() time.Time) *TokenBucket {
	return &TokenBucket{
		capacity:   float64(capacity),
		tokens:     float64(capacity),
		refillRate: refillRate,
		lastRefill: now(),
		now:        now,
	}
}

// Allow проверяет, доступен ли токен
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	tb.lastRefill = now

	// Дробные токены накапливаются, частые запросы не обнуляют пополнение
	tb.tokens += elapsed * tb.refillRate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}

	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}

	return false
}

// RateLimiter предоставляет функциональность ограничения скорости запросов
type RateLimiter struct {
	limiters   map[string]*TokenBucket
	lastAccess map[string]time.Time
	mu         sync.Mutex
	capacity   int
	refillRate float64
	logger     *logger.Logger
	now        func() time.Time

	cleanupInterval time.Duration
	idleTTL         time.Duration
	done            chan struct{}
	closeOnce       sync.Once
}

// NewRateLimiter создает limiter на requests запросов за duration для каждого ключа
func NewRateLimiter(requests int, duration time.Duration, log *logger.Logger) *RateLimiter {
	if requests <= 0 {
		requests = 1
	}
	rl := &RateLimiter{
		limiters:        make(map[string]*TokenBucket),
		lastAccess:      make(map[string]time.Time),
		capacity:        requests,
		refillRate:      float64(requests) / duration.Seconds(),
		logger:          log,
		now:             time.Now,
		cleanupInterval: 5 * time.Minute,
		idleTTL:         10 * time.Minute,
		done:            make(chan struct{}),
	}

	// Запускаем goroutine для очистки неиспользуемых limiters
	go rl.cleanupRoutine()

	return rl
}

// GetLimiter возвращает bucket для ключа (IP клиента)
func (rl *RateLimiter) GetLimiter(key string) *TokenBucket {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[key]
	if !exists {
		limiter = newTokenBucket(rl.capacity, rl.refillRate, rl.now)
		rl.limiters[key] = limiter
	}

	rl.lastAccess[key] = rl.now()
	return limiter
}

// Allow проверяет, разрешен ли запрос для данного ключа
func (rl *RateLimiter) Allow(key string) bool {
	return rl.GetLimiter(key).Allow()
}

// cleanupRoutine периодически удаляет неиспользуемые limiters
func (rl *RateLimiter) cleanupRoutine() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.done:
			return
		}
	}
}

// cleanup удаляет limiters, которые не использовались дольше idleTTL
func (rl *RateLimiter) cleanup() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.idleTTL)
	var cleaned int

	for key, lastAccessed := range rl.lastAccess {
		if lastAccessed.Before(cutoff) {
			delete(rl.limiters, key)
			delete(rl.lastAccess, key)
			cleaned++
		}
	}

	if cleaned > 0 {
		rl.logger.Debug("Cleaned up rate limiters",
			logger.Int("cleaned_count", cleaned),
			logger.Int("remaining_count", len(rl.limiters)),
		)
	}
	return cleaned
}

// Close останавливает cleanup routine
func (rl *RateLimiter) Close() {
	rl.closeOnce.Do(func() { close(rl.done) })
}

// HTTPRateLimitMiddleware создает HTTP middleware для rate limiting
func HTTPRateLimitMiddleware(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Используем IP адрес как ключ
			key := getRealIP(r)

			if !limiter.Allow(key) {
				limiter.logger.Warn("Rate limit exceeded",
					logger.String("ip", key),
					logger.String("user_agent", r.UserAgent()),
				)

				w.Header().Set("Retry-After", "60")
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getRealIP извлекает реальный IP адрес из запроса
func getRealIP(r *http.Request) string {
	// Проверяем заголовки в порядке приоритета
	headers := []string{
		"CF-Connecting-IP", // Cloudflare
		"X-Forwarded-For",  // Стандартный заголовок
		"X-Real-IP",        // Nginx
	}

	for _, header := range headers {
		ip := r.Header.Get(header)
		if ip == "" {
			continue
		}
		// X-Forwarded-For может содержать несколько IP через запятую
		if first, _, found := strings.Cut(ip, ","); found {
			ip = first
		}
		return strings.TrimSpace(ip)
	}

	// Fallback на RemoteAddr без порта
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
