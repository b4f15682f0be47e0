package notify_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-telegram/bot"

	"github.com/region23/navatar/internal/notify"
	"github.com/region23/navatar/internal/testutils"
	"github.com/region23/navatar/pkg/errors"
)

func TestConsoleSink(t *testing.T) {
	var buf bytes.Buffer
	sink := notify.NewConsoleSink(&buf)

	testutils.AssertNoError(t, sink.ShowMessage(context.Background(), "Booking confirmed", notify.CategorySuccess), "show")
	testutils.AssertEqual(t, "[success] Booking confirmed\n", buf.String(), "output")
}

func TestCombinedWithoutAlerts(t *testing.T) {
	rec := testutils.NewRecordingSink()
	c := notify.Combine(rec, nil, nil)

	perm, err := c.RequestPermission(context.Background())
	testutils.AssertNoError(t, err, "permission")
	testutils.AssertEqual(t, notify.PermissionDenied, perm, "denied without alert sink")
	testutils.AssertErrorIs(t, c.Alert(context.Background(), "x"), errors.ErrAlertsUnavailable, "alert")

	testutils.AssertNoError(t, c.ShowMessage(context.Background(), "hello", notify.CategoryInfo), "show")
	testutils.AssertEqual(t, 1, len(rec.Messages()), "forwarded")
}

type fakeTelegram struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeTelegram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls = append(f.calls, r.URL.Path)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"navatar"}}`))
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"}}}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":404,"description":"Not Found"}`))
	}
}

func (f *fakeTelegram) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func TestTelegramSink(t *testing.T) {
	fake := &fakeTelegram{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	sink, err := notify.NewTelegramSink("123:abc", 42, bot.WithServerURL(srv.URL))
	testutils.AssertNoError(t, err, "new sink")

	perm, err := sink.RequestPermission(context.Background())
	testutils.AssertNoError(t, err, "permission")
	testutils.AssertEqual(t, notify.PermissionGranted, perm, "granted")

	testutils.AssertNoError(t, sink.Alert(context.Background(), "Your session with Navatar started!"), "alert")

	calls := fake.Calls()
	testutils.AssertEqual(t, 2, len(calls), "two api calls")
	testutils.AssertTrue(t, strings.HasSuffix(calls[1], "/sendMessage"), "sendMessage called")
}

func TestTelegramSinkWithoutChat(t *testing.T) {
	fake := &fakeTelegram{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	sink, err := notify.NewTelegramSink("123:abc", 0, bot.WithServerURL(srv.URL))
	testutils.AssertNoError(t, err, "new sink")

	perm, err := sink.RequestPermission(context.Background())
	testutils.AssertNoError(t, err, "permission")
	testutils.AssertEqual(t, notify.PermissionDenied, perm, "denied")
	testutils.AssertEqual(t, 0, len(fake.Calls()), "no api calls")
}
