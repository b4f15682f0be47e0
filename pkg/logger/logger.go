package logger

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"
)

// LogLevel определяет уровень логирования
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var levelNames = map[LogLevel]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
	LevelFatal: "FATAL",
}

// ParseLevel разбирает уровень из строки конфигурации (debug, info, warn, error)
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	case "fatal":
		return LevelFatal, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// String возвращает имя уровня
func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

// Logger представляет структурированный логгер
type Logger struct {
	mu     sync.RWMutex
	level  LogLevel
	logger *log.Logger
}

// New создает новый логгер, пишущий в stdout
func New(level LogLevel) *Logger {
	return NewWithWriter(level, os.Stdout)
}

// NewWithWriter создает логгер с произвольным приемником (используется в тестах)
func NewWithWriter(level LogLevel, w io.Writer) *Logger {
	return &Logger{
		level:  level,
		logger: log.New(w, "", 0),
	}
}

// Discard возвращает логгер, который ничего не пишет
func Discard() *Logger {
	return NewWithWriter(LevelFatal+1, io.Discard)
}

// SetLevel устанавливает уровень логирования
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// Level возвращает текущий уровень
func (l *Logger) Level() LogLevel {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

// Debug записывает debug сообщение
func (l *Logger) Debug(msg string, fields ...Field) {
	l.log(LevelDebug, msg, fields...)
}

// Info записывает info сообщение
func (l *Logger) Info(msg string, fields ...Field) {
	l.log(LevelInfo, msg, fields...)
}

// Warn записывает warning сообщение
func (l *Logger) Warn(msg string, fields ...Field) {
	l.log(LevelWarn, msg, fields...)
}

// Error записывает error сообщение
func (l *Logger) Error(msg string, fields ...Field) {
	l.log(LevelError, msg, fields...)
}

// Fatal записывает fatal сообщение и завершает программу
func (l *Logger) Fatal(msg string, fields ...Field) {
	l.log(LevelFatal, msg, fields...)
	os.Exit(1)
}

// WithContext возвращает логгер с контекстом
func (l *Logger) WithContext(ctx context.Context) *ContextLogger {
	return &ContextLogger{
		logger: l,
		ctx:    ctx,
	}
}

// WithFields возвращает логгер с предустановленными полями
func (l *Logger) WithFields(fields ...Field) *FieldLogger {
	return &FieldLogger{
		logger: l,
		fields: fields,
	}
}

// log выполняет фактическое логирование
func (l *Logger) log(level LogLevel, msg string, fields ...Field) {
	if level < l.Level() {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	levelName := levelNames[level]

	// Получить информацию о вызывающем коде
	_, file, line, ok := runtime.Caller(2)
	caller := "unknown"
	if ok {
		caller = fmt.Sprintf("%s:%d", getShortFileName(file), line)
	}

	fieldsStr := ""
	if len(fields) > 0 {
		parts := make([]string, 0, len(fields))
		for _, field := range fields {
			parts = append(parts, field.String())
		}
		fieldsStr = " " + strings.Join(parts, " ")
	}

	l.logger.Printf("[%s] %s %s %s%s", timestamp, levelName, caller, msg, fieldsStr)
}

// getShortFileName возвращает короткое имя файла
func getShortFileName(file string) string {
	parts := strings.Split(file, "/")
	if len(parts) >= 2 {
		return strings.Join(parts[len(parts)-2:], "/")
	}
	return file
}

// ContextLogger оборачивает логгер с контекстом
type ContextLogger struct {
	logger *Logger
	ctx    context.Context
}

// Debug записывает debug сообщение с контекстом
func (cl *ContextLogger) Debug(msg string, fields ...Field) {
	cl.logger.log(LevelDebug, msg, cl.withCtx(fields)...)
}

// Info записывает info сообщение с контекстом
func (cl *ContextLogger) Info(msg string, fields ...Field) {
	cl.logger.log(LevelInfo, msg, cl.withCtx(fields)...)
}

// Warn записывает warning сообщение с контекстом
func (cl *ContextLogger) Warn(msg string, fields ...Field) {
	cl.logger.log(LevelWarn, msg, cl.withCtx(fields)...)
}

// Error записывает error сообщение с контекстом
func (cl *ContextLogger) Error(msg string, fields ...Field) {
	cl.logger.log(LevelError, msg, cl.withCtx(fields)...)
}

// withCtx добавляет причину отмены контекста, если она есть
func (cl *ContextLogger) withCtx(fields []Field) []Field {
	if cl.ctx == nil || cl.ctx.Err() == nil {
		return fields
	}
	return append(fields, Field{Key: "ctx_err", Value: cl.ctx.Err()})
}

// FieldLogger оборачивает логгер с предустановленными полями
type FieldLogger struct {
	logger *Logger
	fields []Field
}

// Debug записывает debug сообщение с предустановленными полями
func (fl *FieldLogger) Debug(msg string, fields ...Field) {
	fl.logger.log(LevelDebug, msg, fl.merge(fields)...)
}

// Info записывает info сообщение с предустановленными полями
func (fl *FieldLogger) Info(msg string, fields ...Field) {
	fl.logger.log(LevelInfo, msg, fl.merge(fields)...)
}

// Warn записывает warning сообщение с предустановленными полями
func (fl *FieldLogger) Warn(msg string, fields ...Field) {
	fl.logger.log(LevelWarn, msg, fl.merge(fields)...)
}

// Error записывает error сообщение с предустановленными полями
func (fl *FieldLogger) Error(msg string, fields ...Field) {
	fl.logger.log(LevelError, msg, fl.merge(fields)...)
}

// merge копирует поля, чтобы не портить общий срез между вызовами
func (fl *FieldLogger) merge(fields []Field) []Field {
	all := make([]Field, 0, len(fl.fields)+len(fields))
	all = append(all, fl.fields...)
	return append(all, fields...)
}

// Field представляет поле логирования
type Field struct {
	Key   string
	Value interface{}
}

// String возвращает строковое представление поля
func (f Field) String() string {
	return fmt.Sprintf("%s=%v", f.Key, f.Value)
}

// Вспомогательные функции для создания полей
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

func Float64(key string, value float64) Field {
	return Field{Key: key, Value: fmt.Sprintf("%.2f", value)}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Error(err error) Field {
	return Field{Key: "error", Value: err}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}

func Any(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}
