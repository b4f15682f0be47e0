package cli

import (
	"bytes"
	stderrors "errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/region23/navatar/internal/identity"
	"github.com/region23/navatar/internal/testutils"
)

// setupEnv изолированное окружение с sqlite во временном каталоге
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for k, v := range map[string]string{
		"STORAGE_DRIVER":         "sqlite",
		"DB_FILE":                filepath.Join(dir, "navatar.db"),
		"CACHE_FILE":             filepath.Join(dir, "snapshot.json"),
		"OWNER_ID":               "alice",
		"OWNER_TOKEN":            "",
		"TOKEN_HASH_KEY":         "",
		"TOKEN_BLOCK_KEY":        "",
		"TELEGRAM_TOKEN":         "",
		"TELEGRAM_ALERT_CHAT_ID": "",
		"TIMEZONE":               "UTC",
		"LOG_LEVEL":              "error",
	} {
		t.Setenv(k, v)
	}
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func idFrom(t *testing.T, out string) string {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		if id, ok := strings.CutPrefix(line, "id: "); ok {
			return strings.TrimSpace(id)
		}
	}
	t.Fatalf("no id in output %q", out)
	return ""
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	testutils.AssertNoError(t, err, "version")
	testutils.AssertContains(t, out, "navatar dev", "version line")
}

func TestBookListCancel(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "book", "--date", "2099-01-01", "--start", "10:00", "--end", "11:00")
	testutils.AssertNoError(t, err, "book")
	testutils.AssertContains(t, out, "[success] Booking confirmed for January 1, 2099 from 10:00 to 11:00", "confirmation")
	id := idFrom(t, out)

	out, err = run(t, "list")
	testutils.AssertNoError(t, err, "list")
	testutils.AssertContains(t, out, id, "booking listed")

	out, err = run(t, "cancel", "--id", id)
	testutils.AssertNoError(t, err, "cancel")
	testutils.AssertContains(t, out, "[success] Booking cancelled for January 1, 2099 at 10:00", "cancellation")

	out, err = run(t, "list")
	testutils.AssertNoError(t, err, "list after cancel")
	testutils.AssertContains(t, out, "No upcoming bookings.", "empty")

	_, err = run(t, "cancel", "--id", id)
	testutils.AssertError(t, err, "second cancel fails")
}

func TestBookConflictAcrossOwners(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "book", "--date", "2099-01-01", "--start", "10:00", "--end", "11:00")
	testutils.AssertNoError(t, err, "alice books")

	out, err := run(t, "--owner", "bob", "book", "--date", "2099-01-01", "--start", "10:30", "--end", "11:30")
	testutils.AssertError(t, err, "bob overlaps")
	var shown shownError
	testutils.AssertTrue(t, stderrors.As(err, &shown), "message already shown")
	testutils.AssertContains(t, out, "[error] This slot is already booked by someone else.", "foreign overlap")

	out, err = run(t, "--owner", "bob", "book", "--date", "2099-01-01", "--start", "11:00", "--end", "12:00")
	testutils.AssertNoError(t, err, "adjacent slot")
	testutils.AssertContains(t, out, "Booking confirmed", "adjacent confirmed")
}

func TestCheck(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "check", "--date", "2099-01-01", "--start", "10:00", "--end", "11:00")
	testutils.AssertNoError(t, err, "free slot")
	testutils.AssertContains(t, out, "[info] This slot is available.", "available")

	out, err = run(t, "check", "--date", "2000-01-01", "--start", "10:00", "--end", "11:00")
	testutils.AssertError(t, err, "past slot")
	testutils.AssertContains(t, out, "You cannot book a slot in the past.", "past message")
}

func TestCancelNeedsTarget(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "cancel", "--date", "2099-01-01")
	testutils.AssertError(t, err, "incomplete target")
}

func TestListOffline(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "book", "--date", "2099-02-01", "--start", "09:00", "--end", "09:30")
	testutils.AssertNoError(t, err, "book")
	id := idFrom(t, out)

	// хранилище больше не нужно: снимок читается из CACHE_FILE
	t.Setenv("STORAGE_DRIVER", "remote")
	t.Setenv("STORE_URL", "http://127.0.0.1:1")
	out, err = run(t, "list", "--offline", "--json")
	testutils.AssertNoError(t, err, "offline list")
	testutils.AssertContains(t, out, id, "cached booking")
	testutils.AssertContains(t, out, `"startTime": "09:00"`, "tuple json")
}

func TestKeysAndToken(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "keys")
	testutils.AssertNoError(t, err, "keys")
	testutils.AssertContains(t, out, "export TOKEN_HASH_KEY=", "hash key")

	_, err = run(t, "--owner", "carol", "token")
	testutils.AssertError(t, err, "token without keys")

	hash, block := identity.GenerateKeys()
	t.Setenv("TOKEN_HASH_KEY", hash)
	t.Setenv("TOKEN_BLOCK_KEY", block)
	out, err = run(t, "--owner", "carol", "token")
	testutils.AssertNoError(t, err, "token")
	token := strings.TrimSpace(strings.TrimPrefix(out, "export OWNER_TOKEN="))

	codec, err := identity.NewTokenCodecFromBase64(hash, block, tokenTTL)
	testutils.AssertNoError(t, err, "codec")
	owner, err := codec.Parse(token)
	testutils.AssertNoError(t, err, "parse issued token")
	testutils.AssertEqual(t, "carol", owner, "owner round trip")

	// OWNER_TOKEN определяет владельца, если --owner не задан
	t.Setenv("OWNER_ID", "")
	t.Setenv("OWNER_TOKEN", token)
	out, err = run(t, "book", "--date", "2099-03-01", "--start", "10:00", "--end", "10:30")
	testutils.AssertNoError(t, err, "book with token")
	out, err = run(t, "list", "--all", "--json")
	testutils.AssertNoError(t, err, "list all")
	testutils.AssertContains(t, out, `"ownerId": "carol"`, "owner from token")
}

func TestServerRejectsRemoteDriver(t *testing.T) {
	setupEnv(t)
	t.Setenv("STORAGE_DRIVER", "remote")
	t.Setenv("STORE_URL", "http://127.0.0.1:1")
	_, err := run(t, "server")
	testutils.AssertError(t, err, "remote driver refused")
}
