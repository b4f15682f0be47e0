package remote_test

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/region23/navatar/internal/booking"
	"github.com/region23/navatar/internal/config"
	"github.com/region23/navatar/internal/identity"
	"github.com/region23/navatar/internal/server"
	"github.com/region23/navatar/internal/storage"
	"github.com/region23/navatar/internal/storage/memory"
	"github.com/region23/navatar/internal/storage/remote"
	"github.com/region23/navatar/internal/storage/storagetest"
	"github.com/region23/navatar/internal/testutils"
	"github.com/region23/navatar/pkg/errors"
)

func serviceConfig() *config.Config {
	return &config.Config{
		Server:              config.ServerConfig{Port: "0", RateLimit: 100000},
		SlotGranularityMins: 5,
		Location:            time.UTC,
	}
}

// startService поднимает HTTP сервис бронирований поверх хранилища в памяти
func startService(t *testing.T, opts ...server.Option) string {
	t.Helper()
	opts = append([]server.Option{server.WithClock(func() time.Time {
		return time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	})}, opts...)
	srv := server.New(serviceConfig(), testutils.SetupTestLogger(), memory.New(), opts...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Shutdown(context.Background())
	})
	return ts.URL
}

func TestRemoteContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.ReservationStore {
		c, err := remote.New(startService(t))
		testutils.AssertNoError(t, err, "client")
		t.Cleanup(func() { _ = c.Close() })
		return c
	})
}

func TestRemoteRejectsSchemes(t *testing.T) {
	_, err := remote.New("ftp://example.com")
	testutils.AssertError(t, err, "ftp is not supported")
}

func TestRemoteUnreachable(t *testing.T) {
	c, err := remote.New("http://127.0.0.1:1", remote.WithTimeout(200*time.Millisecond))
	testutils.AssertNoError(t, err, "client")

	_, err = c.List(testutils.TestContext(), storage.Filter{})
	testutils.AssertErrorIs(t, err, errors.ErrPersistence, "connection refused is a persistence failure")
}

func TestRemotePastSlotCode(t *testing.T) {
	c, err := remote.New(startService(t))
	testutils.AssertNoError(t, err, "client")

	_, err = c.Create(testutils.TestContext(), testutils.Reservation("", "alice", "2029-12-31", "10:00", "11:00"))
	testutils.AssertErrorIs(t, err, errors.ErrPastSlot, "past slot code mapped back")
}

func TestRemoteOwnOverlapMessage(t *testing.T) {
	c, err := remote.New(startService(t))
	testutils.AssertNoError(t, err, "client")
	ctx := testutils.TestContext()

	_, err = c.Create(ctx, testutils.Reservation("", "alice", "2030-05-01", "09:00", "10:00"))
	testutils.AssertNoError(t, err, "first")

	_, err = c.Create(ctx, testutils.Reservation("", "alice", "2030-05-01", "09:30", "10:30"))
	testutils.AssertErrorIs(t, err, errors.ErrSlotOverlap, "overlap")
	testutils.AssertEqual(t, "You have already booked a slot that overlaps with this time.",
		errors.UserMessage(err, ""), "owner-aware message survives the wire")
}

func TestRemoteToken(t *testing.T) {
	hashKey, blockKey := identity.GenerateKeys()
	codec, err := identity.NewTokenCodecFromBase64(hashKey, blockKey, time.Hour)
	testutils.AssertNoError(t, err, "codec")
	url := startService(t, server.WithTokenCodec(codec))
	ctx := testutils.TestContext()
	candidate := testutils.Reservation("", "alice", "2030-05-01", "09:00", "10:00")

	anon, err := remote.New(url)
	testutils.AssertNoError(t, err, "anonymous client")
	_, err = anon.Create(ctx, candidate)
	testutils.AssertErrorIs(t, err, errors.ErrUnauthorized, "token required")
	testutils.AssertErrorIs(t, err, errors.ErrPersistence, "surfaced as persistence failure")

	token, err := codec.Issue("alice")
	testutils.AssertNoError(t, err, "issue")
	authed, err := remote.New(url, remote.WithToken(token))
	testutils.AssertNoError(t, err, "authed client")

	created, err := authed.Create(ctx, candidate)
	testutils.AssertNoError(t, err, "create with token")
	testutils.AssertNoError(t, authed.Delete(ctx, created.ID), "delete own booking")
}

func TestRemoteUnexpectedStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	c, err := remote.New(ts.URL)
	testutils.AssertNoError(t, err, "client")

	var perr *booking.PersistenceError
	_, err = c.List(testutils.TestContext(), storage.Filter{})
	if !stderrors.As(err, &perr) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	testutils.AssertEqual(t, "list", perr.Op, "operation recorded")
	testutils.AssertErrorIs(t, c.Ping(testutils.TestContext()), errors.ErrPersistence, "ping")
}

func TestTimeoutKeepsCustomClient(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /bookings/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/moved", http.StatusFound)
	})
	mux.HandleFunc("GET /moved", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("[]"))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	redirects := 0
	hc := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		redirects++
		return nil
	}}
	c, err := remote.New(ts.URL, remote.WithHTTPClient(hc), remote.WithTimeout(2*time.Second))
	testutils.AssertNoError(t, err, "new")

	items, err := c.List(testutils.TestContext(), storage.Filter{})
	testutils.AssertNoError(t, err, "list")
	testutils.AssertEqual(t, 0, len(items), "empty")
	testutils.AssertEqual(t, 1, redirects, "custom redirect policy kept")
	testutils.AssertEqual(t, time.Duration(0), hc.Timeout, "caller's client untouched")
}
