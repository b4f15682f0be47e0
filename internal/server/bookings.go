package server

import (
	stderrors "errors"
	"net/http"

	"github.com/region23/navatar/internal/booking"
	"github.com/region23/navatar/internal/identity"
	"github.com/region23/navatar/internal/storage"
	"github.com/region23/navatar/internal/storage/remote"
	"github.com/region23/navatar/internal/validation"
	"github.com/region23/navatar/pkg/errors"
	"github.com/region23/navatar/pkg/logger"
	"github.com/region23/navatar/pkg/metrics"
)

// handleList GET /bookings/?from=&to=&owner=
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	items, err := s.store.List(r.Context(), f)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if items == nil {
		items = []booking.Reservation{}
	}
	writeJSON(w, http.StatusOK, items)
}

// handleCreate POST /bookings/: 201 с записью или 409 с конфликтующей бронью
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	c, err := decodeCandidate(r)
	if err != nil {
		s.securityLogger.LogValidationError(r, "body", nil, err.Error())
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	if s.codec != nil {
		owner, ok := s.authorize(w, r)
		if !ok {
			return
		}
		if c.OwnerID == "" {
			c.OwnerID = owner
		}
		if c.OwnerID != owner {
			s.securityLogger.LogForbidden(r, owner, c.OwnerID)
			s.writeError(w, http.StatusForbidden, errors.ErrUnauthorized.WithMessage("token owner does not match ownerId"))
			return
		}
	}

	if err := validation.ValidateOwnerID(c.OwnerID); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := validation.ValidateCandidate(c, s.config.SlotGranularityMins); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if res := booking.CheckCandidate(c, nil, s.now().In(s.loc)); res.Kind == booking.PastSlot {
		metrics.RecordBooking("past_slot")
		s.writeError(w, http.StatusUnprocessableEntity, errors.ErrPastSlot)
		return
	}

	created, err := s.store.Create(r.Context(), c)
	if err != nil {
		var overlap *booking.OverlapError
		if stderrors.As(err, &overlap) {
			metrics.RecordBooking("overlap")
			conflict := overlap.With
			writeJSON(w, http.StatusConflict, remote.ErrorBody{
				Error:    errors.UserMessage(err, errors.ErrSlotOverlap.Message),
				Code:     errors.ErrSlotOverlap.Code,
				Conflict: &conflict,
			})
			return
		}
		metrics.RecordBooking("persistence")
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	metrics.RecordBooking("confirmed")
	s.logger.Info("Booking created",
		logger.String("id", created.ID),
		logger.String("owner_id", created.OwnerID),
		logger.String("slot", created.String()),
	)
	writeJSON(w, http.StatusCreated, created)
}

// handleDelete DELETE /bookings/{id}: 204 или 404
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		s.writeError(w, http.StatusNotFound, errors.ErrBookingNotFound)
		return
	}

	if s.codec != nil {
		owner, ok := s.authorize(w, r)
		if !ok {
			return
		}
		// Чужие брони не видны: отвечаем так же, как на неизвестный id
		mine, err := s.store.List(r.Context(), storage.Filter{OwnerID: owner})
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err)
			return
		}
		if !containsID(mine, id) {
			metrics.RecordCancellation("not_found")
			s.writeError(w, http.StatusNotFound, errors.ErrBookingNotFound)
			return
		}
	}

	if err := s.store.Delete(r.Context(), id); err != nil {
		if stderrors.Is(err, errors.ErrBookingNotFound) {
			metrics.RecordCancellation("not_found")
			s.writeError(w, http.StatusNotFound, err)
			return
		}
		metrics.RecordCancellation("persistence")
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	metrics.RecordCancellation("cancelled")
	s.logger.Info("Booking deleted", logger.String("id", id))
	w.WriteHeader(http.StatusNoContent)
}

// authorize проверяет Bearer токен и возвращает владельца
func (s *Server) authorize(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner, err := identity.FromRequest(r, s.codec)
	if err != nil {
		s.securityLogger.LogFailedAuth(r, err.Error())
		w.Header().Set("WWW-Authenticate", `Bearer realm="navatar"`)
		s.writeError(w, http.StatusUnauthorized, errors.ErrUnauthorized)
		return "", false
	}
	return owner, true
}

// writeError отдает {error, code}; детали 5xx остаются в журнале
func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	code := errors.ErrPersistence.Code
	if appErr, ok := errors.GetAppError(err); ok {
		code = appErr.Code
	}
	msg := errors.UserMessage(err, http.StatusText(status))
	if status >= http.StatusInternalServerError {
		s.logger.Error("Store request failed", logger.Error(err), logger.Int("status", status))
		metrics.RecordError("server", code)
		msg = errors.ErrPersistence.Message
	}
	writeJSON(w, status, remote.ErrorBody{Error: msg, Code: code})
}

func containsID(items []booking.Reservation, id string) bool {
	for i := range items {
		if items[i].ID == id {
			return true
		}
	}
	return false
}
