package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики движка бронирования
var (
	// Метрики бронирований
	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "navatar_bookings_total",
			Help: "Количество попыток бронирования по результату",
		},
		[]string{"outcome"}, // confirmed, past_slot, overlap, invalid, persistence
	)

	CancellationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "navatar_cancellations_total",
			Help: "Количество отмен бронирований по результату",
		},
		[]string{"outcome"}, // cancelled, not_found, persistence
	)

	AvailabilityChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "navatar_availability_checks_total",
			Help: "Количество проверок доступности слота",
		},
		[]string{"result"},
	)

	SnapshotSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "navatar_snapshot_reservations",
			Help: "Количество бронирований в последнем снимке хранилища",
		},
	)

	SnapshotRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "navatar_snapshot_refreshes_total",
			Help: "Количество обновлений снимка",
		},
		[]string{"status"},
	)

	// Метрики напоминаний
	RemindersFired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "navatar_reminders_fired_total",
			Help: "Количество отправленных напоминаний",
		},
		[]string{"threshold", "channel"},
	)

	ReminderTickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "navatar_reminder_tick_duration_seconds",
			Help:    "Время одного прохода планировщика напоминаний",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
		},
	)

	// Метрики уведомлений
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "navatar_notifications_sent_total",
			Help: "Общее количество отправленных уведомлений",
		},
		[]string{"category", "status"},
	)

	// Метрики хранилища
	StoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "navatar_store_operations_total",
			Help: "Общее количество операций с хранилищем",
		},
		[]string{"backend", "operation", "status"},
	)

	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "navatar_store_operation_duration_seconds",
			Help:    "Время операций с хранилищем в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	// Метрики ошибок
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "navatar_errors_total",
			Help: "Общее количество ошибок",
		},
		[]string{"component", "error_type"},
	)

	// Метрики HTTP сервера
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "navatar_http_requests_total",
			Help: "Общее количество HTTP запросов",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "navatar_http_request_duration_seconds",
			Help:    "Время обработки HTTP запросов в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Системные метрики, обновляются health check
	MemoryUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "navatar_memory_usage_bytes",
			Help: "Использование памяти в байтах",
		},
	)

	GoroutinesCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "navatar_goroutines_count",
			Help: "Количество активных горутин",
		},
	)
)

// RecordBooking записывает результат бронирования
func RecordBooking(outcome string) {
	BookingsTotal.WithLabelValues(outcome).Inc()
}

// RecordCancellation записывает результат отмены
func RecordCancellation(outcome string) {
	CancellationsTotal.WithLabelValues(outcome).Inc()
}

// RecordAvailability записывает результат проверки доступности
func RecordAvailability(result string) {
	AvailabilityChecks.WithLabelValues(result).Inc()
}

// RecordRefresh записывает обновление снимка
func RecordRefresh(status string, size int) {
	SnapshotRefreshes.WithLabelValues(status).Inc()
	if status == "ok" {
		SnapshotSize.Set(float64(size))
	}
}

// RecordReminder записывает отправленное напоминание
func RecordReminder(threshold, channel string) {
	RemindersFired.WithLabelValues(threshold, channel).Inc()
}

// RecordNotification записывает метрику отправки уведомления
func RecordNotification(category, status string) {
	NotificationsSent.WithLabelValues(category, status).Inc()
}

// RecordStoreOperation записывает метрику операции с хранилищем
func RecordStoreOperation(backend, operation, status string, seconds float64) {
	StoreOperations.WithLabelValues(backend, operation, status).Inc()
	StoreOperationDuration.WithLabelValues(backend, operation).Observe(seconds)
}

// RecordError записывает метрику ошибки
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// RecordHTTPRequest записывает метрику HTTP запроса
func RecordHTTPRequest(method, endpoint, status string) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
}
