package booking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/careloop/telehealth-client/internal/portal"
	"github.com/careloop/telehealth-client/pkg/logging"
)

// API is the slice of the portal client the booking flows need.
type API interface {
	ListAvailableDoctors(ctx context.Context) ([]portal.User, error)
	ListDoctorSlots(ctx context.Context, doctorID string) ([]portal.AvailabilitySlot, error)
	CreateConsultation(ctx context.Context, req portal.BookingRequest) (*portal.BookingResult, error)
}

// Service drives the patient-side booking flows. The server owns slot
// locking; two patients racing for one slot is resolved there, invisibly to
// this code.
type Service struct {
	api    API
	logger *logging.Logger
	now    func() time.Time
}

// NewService creates a booking service.
func NewService(api API, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		api:    api,
		logger: logger.Component("booking"),
		now:    time.Now,
	}
}

// AvailableDoctors lists doctors currently offering slots.
func (s *Service) AvailableDoctors(ctx context.Context) ([]portal.User, error) {
	doctors, err := s.api.ListAvailableDoctors(ctx)
	if err != nil {
		return nil, fmt.Errorf("booking: list doctors: %w", err)
	}
	return doctors, nil
}

// OpenSlots returns a doctor's unbooked slots starting strictly after the
// wall clock at fetch time, earliest first. A slot expiring between fetch
// and book is resolved server-side at booking time.
func (s *Service) OpenSlots(ctx context.Context, doctorID string) ([]portal.AvailabilitySlot, error) {
	if strings.TrimSpace(doctorID) == "" {
		return nil, errors.New("booking: doctor id required")
	}
	slots, err := s.api.ListDoctorSlots(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("booking: list slots: %w", err)
	}
	return FilterUpcoming(slots, s.now()), nil
}

// FilterUpcoming keeps unbooked slots whose start time is strictly after
// now, sorted by start time. Pure function.
func FilterUpcoming(slots []portal.AvailabilitySlot, now time.Time) []portal.AvailabilitySlot {
	out := make([]portal.AvailabilitySlot, 0, len(slots))
	for _, slot := range slots {
		if slot.Booked {
			continue
		}
		if !slot.StartTime.After(now) {
			continue
		}
		out = append(out, slot)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartTime.Before(out[j].StartTime)
	})
	if len(out) == 0 {
		return nil
	}
	return out
}

// QuickBook books a consultation letting the server auto-assign a doctor.
// The request carries neither doctor nor date.
func (s *Service) QuickBook(ctx context.Context, reason string) (*portal.BookingResult, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, errors.New("booking: reason required")
	}
	result, err := s.api.CreateConsultation(ctx, portal.BookingRequest{Reason: reason})
	if err != nil {
		return nil, fmt.Errorf("booking: quick book: %w", err)
	}
	s.logger.Info("consultation quick-booked",
		"consultation_id", result.Consultation.ID,
		"doctor_id", result.Consultation.DoctorID,
	)
	return result, nil
}

// ScheduleBook books a specific doctor's slot. Both doctor and slot are
// required.
func (s *Service) ScheduleBook(ctx context.Context, doctorID string, slot portal.AvailabilitySlot, reason string) (*portal.BookingResult, error) {
	if strings.TrimSpace(doctorID) == "" {
		return nil, errors.New("booking: doctor id required")
	}
	if slot.StartTime.IsZero() {
		return nil, errors.New("booking: slot required")
	}
	if strings.TrimSpace(reason) == "" {
		return nil, errors.New("booking: reason required")
	}
	start := slot.StartTime
	result, err := s.api.CreateConsultation(ctx, portal.BookingRequest{
		DoctorID:       doctorID,
		ScheduledStart: &start,
		Reason:         reason,
	})
	if err != nil {
		return nil, fmt.Errorf("booking: schedule book: %w", err)
	}
	s.logger.Info("consultation scheduled",
		"consultation_id", result.Consultation.ID,
		"doctor_id", doctorID,
		"start", start,
	)
	return result, nil
}
