// Package notify доставляет пользователю сообщения и системные алерты
package notify

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/region23/navatar/pkg/errors"
	"github.com/region23/navatar/pkg/logger"
	"github.com/region23/navatar/pkg/metrics"
)

// Category вид сообщения
type Category string

const (
	CategorySuccess  Category = "success"
	CategoryError    Category = "error"
	CategoryInfo     Category = "info"
	CategoryReminder Category = "reminder"
)

// Permission состояние разрешения на системные алерты
type Permission int

const (
	PermissionDefault Permission = iota
	PermissionGranted
	PermissionDenied
)

func (p Permission) String() string {
	switch p {
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	}
	return "default"
}

// NotificationSink показывает короткое сообщение пользователю
type NotificationSink interface {
	ShowMessage(ctx context.Context, text string, category Category) error
}

// AlertSink системный канал алертов, доступный только с разрешения
type AlertSink interface {
	RequestPermission(ctx context.Context) (Permission, error)
	Alert(ctx context.Context, text string) error
}

// Notifier объединяет оба канала
type Notifier interface {
	NotificationSink
	AlertSink
}

// ConsoleSink печатает сообщения в writer
type ConsoleSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsoleSink создает консольный приемник
func NewConsoleSink(w io.Writer) *ConsoleSink {
	return &ConsoleSink{w: w}
}

func (c *ConsoleSink) ShowMessage(_ context.Context, text string, category Category) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.w, "[%s] %s\n", category, text)
	return err
}

// Combined сообщения идут в Messages, алерты в Alerts, если разрешены
type Combined struct {
	Messages NotificationSink
	Alerts   AlertSink
	log      *logger.Logger
}

var _ Notifier = (*Combined)(nil)

// Combine собирает Notifier. alerts может быть nil.
func Combine(messages NotificationSink, alerts AlertSink, log *logger.Logger) *Combined {
	if log == nil {
		log = logger.Discard()
	}
	return &Combined{Messages: messages, Alerts: alerts, log: log}
}

func (c *Combined) ShowMessage(ctx context.Context, text string, category Category) error {
	err := c.Messages.ShowMessage(ctx, text, category)
	status := "ok"
	if err != nil {
		status = "error"
		c.log.Warn("Failed to show message", logger.String("category", string(category)), logger.Error(err))
	}
	metrics.RecordNotification(string(category), status)
	return err
}

func (c *Combined) RequestPermission(ctx context.Context) (Permission, error) {
	if c.Alerts == nil {
		return PermissionDenied, nil
	}
	return c.Alerts.RequestPermission(ctx)
}

func (c *Combined) Alert(ctx context.Context, text string) error {
	if c.Alerts == nil {
		return errors.ErrAlertsUnavailable
	}
	err := c.Alerts.Alert(ctx, text)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.RecordNotification("alert", status)
	return err
}
