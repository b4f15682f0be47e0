// Package scheduler периодически проверяет ближайшую бронь пользователя и
// отправляет не более одного напоминания на каждый порог.
package scheduler

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/region23/navatar/internal/booking"
	"github.com/region23/navatar/internal/notify"
	"github.com/region23/navatar/pkg/errors"
	"github.com/region23/navatar/pkg/logger"
	"github.com/region23/navatar/pkg/metrics"
)

// Значения по умолчанию
const (
	DefaultInterval  = 30 * time.Second
	DefaultTolerance = 48 * time.Second
)

// DefaultThresholds пороги напоминаний в минутах
var DefaultThresholds = []int{30, 10, 5, 1}

// Reminder сработавшее напоминание
type Reminder struct {
	Reservation booking.Reservation
	Threshold   int
	Minutes     float64
	Text        string
}

// ReminderScheduler цикл напоминаний одной сессии
type ReminderScheduler struct {
	owner  string
	source SnapshotSource
	sink   notify.Notifier
	state  *ReminderState
	log    *logger.Logger

	thresholds []int
	tolerance  time.Duration
	interval   time.Duration
	loc        *time.Location
	resource   string
	now        func() time.Time

	mu         sync.Mutex
	running    bool
	stopped    bool
	cancel     context.CancelFunc
	done       chan struct{}
	stopOnce   sync.Once
	permOnce   sync.Once
	permission atomic.Int32

	refreshing atomic.Bool
	wg         sync.WaitGroup
}

// Option настраивает планировщик
type Option func(*ReminderScheduler)

// WithThresholds задает пороги в минутах
func WithThresholds(minutes ...int) Option {
	return func(s *ReminderScheduler) {
		if len(minutes) > 0 {
			s.thresholds = append([]int(nil), minutes...)
		}
	}
}

// WithTolerance ширина окна срабатывания порога
func WithTolerance(d time.Duration) Option {
	return func(s *ReminderScheduler) { s.tolerance = d }
}

// WithInterval период опроса
func WithInterval(d time.Duration) Option {
	return func(s *ReminderScheduler) { s.interval = d }
}

// WithClock подменяет источник времени
func WithClock(now func() time.Time) Option {
	return func(s *ReminderScheduler) { s.now = now }
}

// WithLocation часовой пояс броней
func WithLocation(loc *time.Location) Option {
	return func(s *ReminderScheduler) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithResourceName имя ресурса в текстах
func WithResourceName(name string) Option {
	return func(s *ReminderScheduler) { s.resource = name }
}

// WithLogger задает логгер
func WithLogger(log *logger.Logger) Option {
	return func(s *ReminderScheduler) { s.log = log }
}

// New создает планировщик для владельца owner
func New(owner string, source SnapshotSource, sink notify.Notifier, state *ReminderState, opts ...Option) *ReminderScheduler {
	if state == nil {
		state = NewReminderState()
	}
	s := &ReminderScheduler{
		owner:      owner,
		source:     source,
		sink:       sink,
		state:      state,
		log:        logger.Discard(),
		thresholds: append([]int(nil), DefaultThresholds...),
		tolerance:  DefaultTolerance,
		interval:   DefaultInterval,
		loc:        time.Local,
		resource:   DefaultResourceName,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(s.thresholds)))
	return s
}

// State возвращает состояние напоминаний
func (s *ReminderScheduler) State() *ReminderState {
	return s.state
}

// Start запускает цикл. Повторный запуск и запуск после Stop возвращают ошибку.
func (s *ReminderScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return errors.ErrSchedulerStopped
	}
	if s.running {
		return errors.ErrSchedulerRunning
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.run(loopCtx, s.done)

	s.log.Info("Reminder scheduler started",
		logger.String("owner", s.owner),
		logger.Duration("interval", s.interval),
		logger.Duration("tolerance", s.tolerance))
	return nil
}

// Stop останавливает цикл и ждет фоновые обновления. Идемпотентен.
func (s *ReminderScheduler) Stop() error {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		cancel, done, running := s.cancel, s.done, s.running
		s.running = false
		s.mu.Unlock()

		if running {
			cancel()
			<-done
		}
		s.wg.Wait()
		s.log.Info("Reminder scheduler stopped", logger.String("owner", s.owner))
	})
	return nil
}

func (s *ReminderScheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	s.RequestPermission(ctx)

	t := time.NewTicker(s.interval)
	defer t.Stop()

	// первый проход сразу
	s.kick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.kick(ctx)
		}
	}
}

func (s *ReminderScheduler) kick(ctx context.Context) {
	s.refreshAsync(ctx)
	s.Tick(ctx)
}

// RequestPermission запрашивает разрешение на алерты один раз за сессию
func (s *ReminderScheduler) RequestPermission(ctx context.Context) notify.Permission {
	s.permOnce.Do(func() {
		perm, err := s.sink.RequestPermission(ctx)
		if err != nil {
			s.log.Warn("Alert permission unavailable", logger.Error(err))
			perm = notify.PermissionDenied
		}
		s.permission.Store(int32(perm))
		s.log.Debug("Alert permission", logger.String("permission", perm.String()))
	})
	return notify.Permission(s.permission.Load())
}

// refreshAsync обновляет снимок в фоне; пока идет одно обновление, новое не запускается
func (s *ReminderScheduler) refreshAsync(ctx context.Context) {
	if !s.refreshing.CompareAndSwap(false, true) {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.refreshing.Store(false)

		rctx, cancel := context.WithTimeout(ctx, s.interval)
		defer cancel()
		if err := s.source.Refresh(rctx); err != nil && ctx.Err() == nil {
			s.log.Warn("Snapshot refresh failed, using previous snapshot", logger.Error(err))
		}
	}()
}

// Tick один проход по последнему снимку. Возвращает сработавшие напоминания.
func (s *ReminderScheduler) Tick(ctx context.Context) []Reminder {
	started := time.Now()
	defer func() {
		metrics.ReminderTickDuration.Observe(time.Since(started).Seconds())
	}()

	now := s.now().In(s.loc)
	upcoming := booking.Upcoming(s.source.Latest(), s.owner, now)

	ids := make([]string, 0, len(upcoming))
	for _, r := range upcoming {
		ids = append(ids, r.Identity())
	}
	s.state.Retain(ids...)

	if len(upcoming) == 0 {
		return nil
	}

	next := upcoming[0]
	start, err := next.StartAt(s.loc)
	if err != nil {
		s.log.Warn("Skipping malformed reservation", logger.String("reservation", next.String()), logger.Error(err))
		return nil
	}
	minutes := start.Sub(now).Minutes()
	if minutes < 0 {
		return nil
	}

	band := s.tolerance.Minutes()
	var fired []Reminder
	for _, threshold := range s.thresholds {
		t := float64(threshold)
		if minutes > t || minutes <= t-band {
			continue
		}
		if !s.state.MarkFired(next.Identity(), threshold) {
			continue
		}

		rem := Reminder{
			Reservation: next,
			Threshold:   threshold,
			Minutes:     minutes,
			Text:        ReminderMessage(s.resource, minutes),
		}
		s.deliver(ctx, rem)
		fired = append(fired, rem)
	}
	return fired
}

func (s *ReminderScheduler) deliver(ctx context.Context, rem Reminder) {
	threshold := strconv.Itoa(rem.Threshold)

	s.log.Info("Reminder fired",
		logger.String("owner", s.owner),
		logger.String("reservation", rem.Reservation.String()),
		logger.Int("threshold", rem.Threshold),
		logger.Float64("minutes", rem.Minutes))

	if err := s.sink.ShowMessage(ctx, rem.Text, notify.CategoryReminder); err != nil {
		s.log.Warn("Failed to show reminder", logger.Error(err))
	} else {
		metrics.RecordReminder(threshold, "message")
	}

	if notify.Permission(s.permission.Load()) != notify.PermissionGranted {
		return
	}

	// алерт уходит по сети, цикл его не ждет
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.interval)
		defer cancel()
		if err := s.sink.Alert(actx, rem.Text); err != nil {
			s.log.Warn("Failed to send alert", logger.Error(err))
			return
		}
		metrics.RecordReminder(threshold, "alert")
	}()
}
