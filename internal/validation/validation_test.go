package validation

import (
	"testing"

	"github.com/region23/navatar/internal/booking"
	"github.com/region23/navatar/pkg/errors"
)

func TestValidateDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid date", "2025-03-14", false},
		{"past date is still well formed", "2001-01-01", false},
		{"empty", "", true},
		{"wrong format", "14.03.2025", true},
		{"impossible day", "2025-02-30", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateDate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateTime(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		allowEndOfDay bool
		want          int
		wantErr       bool
	}{
		{"morning", "09:05", false, 545, false},
		{"midnight start", "00:00", false, 0, false},
		{"end of day as end", "24:00", true, 1440, false},
		{"end of day as start", "24:00", false, 0, true},
		{"single digit hour", "9:05", false, 0, true},
		{"bad minutes", "09:75", false, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateTime(tt.input, tt.allowEndOfDay)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateTime() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ValidateTime() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateCandidate(t *testing.T) {
	tests := []struct {
		name    string
		c       booking.Reservation
		wantErr *errors.AppError
	}{
		{"ok", booking.Reservation{Date: "2025-03-14", StartTime: "09:00", EndTime: "10:30"}, nil},
		{"to end of day", booking.Reservation{Date: "2025-03-14", StartTime: "23:30", EndTime: "24:00"}, nil},
		{"missing end", booking.Reservation{Date: "2025-03-14", StartTime: "09:00"}, errors.ErrInvalidRange},
		{"missing date", booking.Reservation{StartTime: "09:00", EndTime: "10:00"}, errors.ErrInvalidRange},
		{"end before start", booking.Reservation{Date: "2025-03-14", StartTime: "10:00", EndTime: "09:00"}, errors.ErrInvalidRange},
		{"empty window", booking.Reservation{Date: "2025-03-14", StartTime: "10:00", EndTime: "10:00"}, errors.ErrInvalidRange},
		{"off grid", booking.Reservation{Date: "2025-03-14", StartTime: "10:03", EndTime: "11:00"}, errors.ErrInvalidTime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCandidate(tt.c, DefaultGranularity)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.IsAppError(err) {
				t.Fatalf("expected AppError, got %v", err)
			}
			appErr, _ := errors.GetAppError(err)
			if appErr.Code != tt.wantErr.Code {
				t.Errorf("code = %s, want %s", appErr.Code, tt.wantErr.Code)
			}
		})
	}
}

func TestValidateOwnerID(t *testing.T) {
	if err := ValidateOwnerID("user@example.com"); err != nil {
		t.Errorf("email owner rejected: %v", err)
	}
	if err := ValidateOwnerID("  "); err == nil {
		t.Error("blank owner accepted")
	}
	if err := ValidateOwnerID("bad owner"); err == nil {
		t.Error("owner with spaces accepted")
	}
}

func TestValidateGranularityMinutes(t *testing.T) {
	for _, step := range []int{1, 5, 15, 30, 60} {
		if err := ValidateGranularityMinutes(step); err != nil {
			t.Errorf("step %d rejected: %v", step, err)
		}
	}
	for _, step := range []int{0, 7, 90} {
		if err := ValidateGranularityMinutes(step); err == nil {
			t.Errorf("step %d accepted", step)
		}
	}
}
