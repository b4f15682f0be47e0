package identity

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/region23/navatar/internal/testutils"
	"github.com/region23/navatar/pkg/errors"
)

func newCodec(t *testing.T) *TokenCodec {
	t.Helper()
	hash, block := GenerateKeys()
	c, err := NewTokenCodecFromBase64(hash, block, time.Hour)
	testutils.AssertNoError(t, err, "codec")
	return c
}

func TestIssueParse(t *testing.T) {
	c := newCodec(t)
	token, err := c.Issue("alice")
	testutils.AssertNoError(t, err, "issue")

	owner, err := c.Parse(token)
	testutils.AssertNoError(t, err, "parse")
	testutils.AssertEqual(t, "alice", owner, "owner")

	_, err = newCodec(t).Parse(token)
	testutils.AssertErrorIs(t, err, errors.ErrUnauthorized, "foreign key")

	_, err = c.Issue("")
	testutils.AssertErrorIs(t, err, errors.ErrInvalidOwner, "empty owner")
}

func TestFromRequest(t *testing.T) {
	c := newCodec(t)
	token, _ := c.Issue("bob")

	r := httptest.NewRequest("POST", "/bookings/", nil)
	_, err := FromRequest(r, c)
	testutils.AssertErrorIs(t, err, errors.ErrUnauthorized, "missing header")

	r.Header.Set("Authorization", "Bearer "+token)
	owner, err := FromRequest(r, c)
	testutils.AssertNoError(t, err, "bearer")
	testutils.AssertEqual(t, "bob", owner, "owner")

	r.Header.Set("Authorization", "Bearer garbage")
	_, err = FromRequest(r, c)
	testutils.AssertErrorIs(t, err, errors.ErrUnauthorized, "garbage token")
}

func TestProviders(t *testing.T) {
	ctx := context.Background()

	owner, err := Static("carol").OwnerID(ctx)
	testutils.AssertNoError(t, err, "static")
	testutils.AssertEqual(t, "carol", owner, "static owner")

	_, err = Static("").OwnerID(ctx)
	testutils.AssertErrorIs(t, err, errors.ErrInvalidOwner, "empty static")

	c := newCodec(t)
	token, _ := c.Issue("dave")
	owner, err = Token{Codec: c, Value: token}.OwnerID(ctx)
	testutils.AssertNoError(t, err, "token provider")
	testutils.AssertEqual(t, "dave", owner, "token owner")

	ctx = WithOwner(ctx, "erin")
	owner, ok := OwnerFromContext(ctx)
	testutils.AssertTrue(t, ok, "owner in context")
	testutils.AssertEqual(t, "erin", owner, "context owner")
}

func TestBadKeys(t *testing.T) {
	_, err := NewTokenCodecFromBase64("not base64!", "", 0)
	testutils.AssertError(t, err, "bad base64")
	_, err = NewTokenCodecFromBase64("c2hvcnQ=", "", 0)
	testutils.AssertError(t, err, "short hash key")
}
