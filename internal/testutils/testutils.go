// Package testutils общие помощники для тестов
package testutils

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/region23/navatar/internal/booking"
	"github.com/region23/navatar/internal/notify"
	"github.com/region23/navatar/pkg/logger"
)

// SetupTestLogger создает тестовый логгер
func SetupTestLogger() *logger.Logger {
	return logger.New(logger.LevelDebug)
}

// SetupBufferedLogger создает логгер, пишущий в буфер, для проверки записей
func SetupBufferedLogger() (*logger.Logger, *SyncBuffer) {
	buf := &SyncBuffer{}
	return logger.NewWithWriter(logger.LevelDebug, buf), buf
}

// TestContext создает контекст для тестов
func TestContext() context.Context {
	return context.Background()
}

// SyncBuffer потокобезопасный буфер
type SyncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *SyncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *SyncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Reservation создает бронь для тестов
func Reservation(id, owner, date, start, end string) booking.Reservation {
	return booking.Reservation{ID: id, OwnerID: owner, Date: date, StartTime: start, EndTime: end}
}

// Clock управляемые часы
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock создает часы, остановленные на now
func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

// Now возвращает текущее значение
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance сдвигает часы вперед
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set устанавливает время
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Message одно сообщение, полученное RecordingSink
type Message struct {
	Text     string
	Category notify.Category
}

// RecordingSink запоминает все сообщения и алерты
type RecordingSink struct {
	mu         sync.Mutex
	messages   []Message
	alerts     []string
	Permission notify.Permission
	Requests   int
	Fail       error
}

// NewRecordingSink создает приемник с выданным разрешением на алерты
func NewRecordingSink() *RecordingSink {
	return &RecordingSink{Permission: notify.PermissionGranted}
}

func (s *RecordingSink) ShowMessage(_ context.Context, text string, category notify.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, Message{Text: text, Category: category})
	return s.Fail
}

func (s *RecordingSink) RequestPermission(context.Context) (notify.Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Requests++
	return s.Permission, nil
}

func (s *RecordingSink) Alert(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, text)
	return nil
}

// Messages возвращает копию полученных сообщений
func (s *RecordingSink) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

// Alerts возвращает копию полученных алертов
func (s *RecordingSink) Alerts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.alerts...)
}

// Last возвращает последнее сообщение
func (s *RecordingSink) Last() Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 {
		return Message{}
	}
	return s.messages[len(s.messages)-1]
}

// Reset очищает накопленное
func (s *RecordingSink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.alerts = nil
}

// AssertEqual проверяет равенство значений
func AssertEqual(t testing.TB, expected, actual interface{}, msg string) {
	t.Helper()
	if !reflect.DeepEqual(expected, actual) {
		t.Errorf("%s: expected %v, got %v", msg, expected, actual)
	}
}

// AssertNotEqual проверяет неравенство значений
func AssertNotEqual(t testing.TB, notExpected, actual interface{}, msg string) {
	t.Helper()
	if reflect.DeepEqual(notExpected, actual) {
		t.Errorf("%s: did not expect %v", msg, actual)
	}
}

// AssertNoError останавливает тест при ошибке
func AssertNoError(t testing.TB, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", msg, err)
	}
}

// AssertError проверяет наличие ошибки
func AssertError(t testing.TB, err error, msg string) {
	t.Helper()
	if err == nil {
		t.Errorf("%s: expected error, got nil", msg)
	}
}

// AssertErrorIs проверяет ошибку через errors.Is
func AssertErrorIs(t testing.TB, err, target error, msg string) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Errorf("%s: expected %v, got %v", msg, target, err)
	}
}

// AssertTrue проверяет истинность условия
func AssertTrue(t testing.TB, cond bool, msg string) {
	t.Helper()
	if !cond {
		t.Errorf("%s: expected true", msg)
	}
}

// AssertFalse проверяет ложность условия
func AssertFalse(t testing.TB, cond bool, msg string) {
	t.Helper()
	if cond {
		t.Errorf("%s: expected false", msg)
	}
}

// AssertContains проверяет вхождение подстроки
func AssertContains(t testing.TB, s, substr, msg string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("%s: %q does not contain %q", msg, s, substr)
	}
}

// Eventually ждет выполнения условия
func Eventually(t testing.TB, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("%s: condition not met within %v", msg, timeout)
}
