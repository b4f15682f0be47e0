package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/region23/navatar/internal/booking"
	"github.com/region23/navatar/internal/storage"
	"github.com/region23/navatar/internal/validation"
	"github.com/region23/navatar/pkg/errors"
)

// errInvalidBody тело запроса не разобрано
var errInvalidBody = errors.New("INVALID_JSON", "request body must be a booking JSON object")

// decodeCandidate разбирает тело POST /bookings/
func decodeCandidate(r *http.Request) (booking.Reservation, error) {
	var c booking.Reservation
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return booking.Reservation{}, errInvalidBody.WithError(err)
	}
	if dec.More() {
		return booking.Reservation{}, errInvalidBody.WithError(fmt.Errorf("trailing data after object"))
	}
	// id назначает хранилище
	c.ID = ""
	return c, nil
}

// parseFilter читает from, to и owner из query
func parseFilter(r *http.Request) (storage.Filter, error) {
	q := r.URL.Query()
	f := storage.Filter{
		From:    q.Get("from"),
		To:      q.Get("to"),
		OwnerID: q.Get("owner"),
	}
	for _, d := range []string{f.From, f.To} {
		if d == "" {
			continue
		}
		if _, err := validation.ValidateDate(d); err != nil {
			return storage.Filter{}, err
		}
	}
	if f.From != "" && f.To != "" && f.From > f.To {
		return storage.Filter{}, errors.ErrInvalidRange.WithContext("from is after to")
	}
	if f.OwnerID != "" {
		if err := validation.ValidateOwnerID(f.OwnerID); err != nil {
			return storage.Filter{}, err
		}
	}
	return f, nil
}
