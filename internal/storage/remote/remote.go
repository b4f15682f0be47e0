// Package remote клиент хранилища, работающий через HTTP API сервиса бронирований
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/region23/navatar/internal/booking"
	"github.com/region23/navatar/internal/storage"
	"github.com/region23/navatar/pkg/errors"
)

// ErrorBody тело ответа сервиса при ошибке
type ErrorBody struct {
	Error    string               `json:"error"`
	Code     string               `json:"code,omitempty"`
	Conflict *booking.Reservation `json:"conflict,omitempty"`
}

// Client реализует storage.ReservationStore поверх /bookings
type Client struct {
	base  *url.URL
	http  *http.Client
	token string
}

var _ storage.ReservationStore = (*Client)(nil)

// Option настраивает клиент
type Option func(*Client)

// WithHTTPClient подменяет http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout задает таймаут запроса
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			hc := *c.http
			hc.Timeout = d
			c.http = &hc
		}
	}
}

// WithToken добавляет Authorization: Bearer к запросам
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New создает клиент для baseURL вида http://host:port
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse store url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("store url %q: scheme must be http or https", baseURL)
	}
	c := &Client{base: u, http: &http.Client{Timeout: 10 * time.Second}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := *c.base
	u.Path = c.base.Path + path
	if q != nil {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func (c *Client) do(ctx context.Context, op, method, target string, body interface{}) (*http.Response, error) {
	var rdr io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, booking.Persistence(op, err)
		}
		rdr = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rdr)
	if err != nil {
		return nil, booking.Persistence(op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, booking.Persistence(op, err)
	}
	return resp, nil
}

func (c *Client) List(ctx context.Context, f storage.Filter) ([]booking.Reservation, error) {
	q := url.Values{}
	if f.From != "" {
		q.Set("from", f.From)
	}
	if f.To != "" {
		q.Set("to", f.To)
	}
	if f.OwnerID != "" {
		q.Set("owner", f.OwnerID)
	}

	resp, err := c.do(ctx, "list", http.MethodGet, c.endpoint("/bookings/", q), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.unexpected("list", resp)
	}

	var items []booking.Reservation
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, booking.Persistence("list", fmt.Errorf("decode bookings: %w", err))
	}
	if items == nil {
		items = []booking.Reservation{}
	}
	return items, nil
}

func (c *Client) Create(ctx context.Context, r booking.Reservation) (booking.Reservation, error) {
	r.ID = ""
	resp, err := c.do(ctx, "create", http.MethodPost, c.endpoint("/bookings/", nil), r)
	if err != nil {
		return booking.Reservation{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated, http.StatusOK:
		var created booking.Reservation
		if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
			return booking.Reservation{}, booking.Persistence("create", fmt.Errorf("decode booking: %w", err))
		}
		return created, nil
	case http.StatusConflict:
		var eb ErrorBody
		_ = json.NewDecoder(resp.Body).Decode(&eb)
		oe := &booking.OverlapError{Owner: r.OwnerID}
		if eb.Conflict != nil {
			oe.With = *eb.Conflict
		}
		return booking.Reservation{}, oe
	case http.StatusUnprocessableEntity, http.StatusBadRequest:
		return booking.Reservation{}, c.rejected(resp)
	}
	return booking.Reservation{}, c.unexpected("create", resp)
}

func (c *Client) Delete(ctx context.Context, id string) error {
	resp, err := c.do(ctx, "delete", http.MethodDelete, c.endpoint("/bookings/"+url.PathEscape(id), nil), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusOK:
		return nil
	case http.StatusNotFound:
		return errors.ErrBookingNotFound.WithContext(map[string]interface{}{"id": id})
	}
	return c.unexpected("delete", resp)
}

func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, "ping", http.MethodGet, c.endpoint("/health", nil), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return c.unexpected("ping", resp)
	}
	return nil
}

func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// rejected восстанавливает AppError по коду из ответа сервиса
func (c *Client) rejected(resp *http.Response) error {
	var eb ErrorBody
	_ = json.NewDecoder(resp.Body).Decode(&eb)
	for _, known := range []*errors.AppError{
		errors.ErrPastSlot, errors.ErrInvalidRange, errors.ErrInvalidDate,
		errors.ErrInvalidTime, errors.ErrInvalidOwner,
	} {
		if eb.Code == known.Code {
			return known
		}
	}
	return booking.Persistence("create", fmt.Errorf("rejected: %s", eb.Error))
}

func (c *Client) unexpected(op string, resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return booking.Persistence(op, errors.ErrUnauthorized.WithContext(strings.TrimSpace(string(msg))))
	}
	return booking.Persistence(op, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))))
}
