package portal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SlotRequest creates an availability window for the authenticated doctor.
type SlotRequest struct {
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	DurationMins int       `json:"duration_mins"`
	BufferMins   int       `json:"buffer_mins,omitempty"`
}

func (r SlotRequest) validate() error {
	if r.StartTime.IsZero() || r.EndTime.IsZero() {
		return errors.New("portal: slot start and end required")
	}
	if !r.EndTime.After(r.StartTime) {
		return errors.New("portal: slot end must be after start")
	}
	if r.DurationMins <= 0 {
		return errors.New("portal: slot duration must be positive")
	}
	return nil
}

// ListAvailableDoctors returns doctors currently offering slots.
func (c *Client) ListAvailableDoctors(ctx context.Context) ([]User, error) {
	data, err := c.invoke(ctx, http.MethodGet, "/doctors/availability", nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[User](data)
}

// ListDoctorSlots returns a doctor's availability windows. The server does
// not filter out past slots; callers apply their own "now" cutoff.
func (c *Client) ListDoctorSlots(ctx context.Context, doctorID string) ([]AvailabilitySlot, error) {
	if strings.TrimSpace(doctorID) == "" {
		return nil, errors.New("portal: doctor id required")
	}
	q := url.Values{}
	q.Set("doctor_id", doctorID)
	data, err := c.invoke(ctx, http.MethodGet, "/doctors/availability/slots", q, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[AvailabilitySlot](data)
}

// CreateSlot publishes a new availability window.
func (c *Client) CreateSlot(ctx context.Context, req SlotRequest) (*AvailabilitySlot, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("portal: marshal slot request: %w", err)
	}
	data, err := c.invoke(ctx, http.MethodPost, "/doctors/availability", nil, body)
	if err != nil {
		return nil, err
	}
	return decodeJSON[AvailabilitySlot](data)
}

// DeleteSlot removes an availability window by id.
func (c *Client) DeleteSlot(ctx context.Context, slotID string) error {
	if strings.TrimSpace(slotID) == "" {
		return errors.New("portal: slot id required")
	}
	_, err := c.invoke(ctx, http.MethodDelete, fmt.Sprintf("/doctors/availability/%s", slotID), nil, nil)
	return err
}
