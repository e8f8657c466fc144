package portal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// BookingRequest creates a consultation. Quick-book omits DoctorID and
// ScheduledStart; the server auto-assigns a doctor. Scheduled booking
// requires both.
type BookingRequest struct {
	DoctorID       string     `json:"doctor_id,omitempty"`
	ScheduledStart *time.Time `json:"scheduled_start,omitempty"`
	Reason         string     `json:"reason"`
}

func (r BookingRequest) validate() error {
	if strings.TrimSpace(r.Reason) == "" {
		return errors.New("portal: booking reason required")
	}
	hasDoctor := strings.TrimSpace(r.DoctorID) != ""
	hasDate := r.ScheduledStart != nil && !r.ScheduledStart.IsZero()
	if hasDoctor != hasDate {
		return errors.New("portal: scheduled booking requires both doctor and date")
	}
	return nil
}

// BookingResult is the server's reply to a booking request.
type BookingResult struct {
	Consultation Consultation `json:"consultation"`
	AutoAssigned bool         `json:"auto_assigned"`
}

func consultationsPath(role Role) string {
	switch role {
	case RoleDoctor:
		return "/consultations/doctor"
	case RolePatient:
		return "/consultations/patient"
	default:
		return "/consultations"
	}
}

// ListConsultations fetches the role-scoped consultation collection.
func (c *Client) ListConsultations(ctx context.Context, role Role) ([]Consultation, error) {
	data, err := c.invoke(ctx, http.MethodGet, consultationsPath(role), nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[Consultation](data)
}

// CreateConsultation books a consultation in either quick or scheduled mode.
func (c *Client) CreateConsultation(ctx context.Context, req BookingRequest) (*BookingResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("portal: marshal booking request: %w", err)
	}
	data, err := c.invoke(ctx, http.MethodPost, "/consultations", nil, body)
	if err != nil {
		return nil, err
	}
	return decodeJSON[BookingResult](data)
}

// StartConsultation requests the ACTIVE transition, doctor side.
func (c *Client) StartConsultation(ctx context.Context, consultationID string) error {
	return c.transition(ctx, consultationID, "start", nil)
}

// CompleteConsultation requests the COMPLETED transition.
func (c *Client) CompleteConsultation(ctx context.Context, consultationID string) error {
	return c.transition(ctx, consultationID, "complete", nil)
}

// CancelConsultation requests the CANCELLED transition.
func (c *Client) CancelConsultation(ctx context.Context, consultationID string) error {
	return c.transition(ctx, consultationID, "cancel", nil)
}

// RescheduleConsultation moves the consultation to a new start time.
func (c *Client) RescheduleConsultation(ctx context.Context, consultationID string, newStart time.Time) error {
	if newStart.IsZero() {
		return errors.New("portal: new start time required")
	}
	payload := map[string]time.Time{"scheduled_start": newStart}
	return c.transition(ctx, consultationID, "reschedule", payload)
}

func (c *Client) transition(ctx context.Context, consultationID, action string, payload any) error {
	if strings.TrimSpace(consultationID) == "" {
		return errors.New("portal: consultation id required")
	}
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("portal: marshal %s payload: %w", action, err)
		}
	}
	_, err := c.invoke(ctx, http.MethodPost, fmt.Sprintf("/consultations/%s/%s", consultationID, action), nil, body)
	return err
}

// ListMessages fetches a consultation's message list.
func (c *Client) ListMessages(ctx context.Context, consultationID string) ([]Message, error) {
	if strings.TrimSpace(consultationID) == "" {
		return nil, errors.New("portal: consultation id required")
	}
	data, err := c.invoke(ctx, http.MethodGet, fmt.Sprintf("/consultations/%s/messages", consultationID), nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[Message](data)
}

// SendMessage posts a chat message and returns the server's copy.
func (c *Client) SendMessage(ctx context.Context, consultationID, body string) (*Message, error) {
	if strings.TrimSpace(consultationID) == "" {
		return nil, errors.New("portal: consultation id required")
	}
	if strings.TrimSpace(body) == "" {
		return nil, errors.New("portal: message body required")
	}
	payload, err := json.Marshal(map[string]string{"body": body})
	if err != nil {
		return nil, fmt.Errorf("portal: marshal message: %w", err)
	}
	data, err := c.invoke(ctx, http.MethodPost, fmt.Sprintf("/consultations/%s/messages", consultationID), nil, payload)
	if err != nil {
		return nil, err
	}
	return decodeJSON[Message](data)
}
