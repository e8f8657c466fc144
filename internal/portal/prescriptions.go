package portal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// PrescriptionRequest creates or replaces a prescription.
type PrescriptionRequest struct {
	PatientID   string            `json:"patient_id"`
	Medications []MedicationEntry `json:"medications"`
	Diagnosis   string            `json:"diagnosis,omitempty"`
	Notes       string            `json:"notes,omitempty"`
	Allergies   string            `json:"allergies,omitempty"`
}

func (r PrescriptionRequest) validate() error {
	if strings.TrimSpace(r.PatientID) == "" {
		return errors.New("portal: patient id required")
	}
	if len(r.Medications) == 0 {
		return errors.New("portal: at least one medication required")
	}
	for i, m := range r.Medications {
		if strings.TrimSpace(m.Name) == "" {
			return fmt.Errorf("portal: medication %d missing name", i)
		}
	}
	return nil
}

// ListPrescriptions fetches the role-scoped prescription collection.
func (c *Client) ListPrescriptions(ctx context.Context, role Role) ([]Prescription, error) {
	path := "/prescriptions"
	if role == RolePatient {
		path = "/prescriptions/patient"
	}
	data, err := c.invoke(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[Prescription](data)
}

// CreatePrescription issues a new prescription.
func (c *Client) CreatePrescription(ctx context.Context, req PrescriptionRequest) (*Prescription, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("portal: marshal prescription: %w", err)
	}
	data, err := c.invoke(ctx, http.MethodPost, "/prescriptions", nil, body)
	if err != nil {
		return nil, err
	}
	return decodeJSON[Prescription](data)
}

// UpdatePrescription replaces an existing prescription's contents.
func (c *Client) UpdatePrescription(ctx context.Context, prescriptionID string, req PrescriptionRequest) (*Prescription, error) {
	if strings.TrimSpace(prescriptionID) == "" {
		return nil, errors.New("portal: prescription id required")
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("portal: marshal prescription: %w", err)
	}
	data, err := c.invoke(ctx, http.MethodPut, fmt.Sprintf("/prescriptions/%s", prescriptionID), nil, body)
	if err != nil {
		return nil, err
	}
	return decodeJSON[Prescription](data)
}

// DeletePrescription removes a prescription by id.
func (c *Client) DeletePrescription(ctx context.Context, prescriptionID string) error {
	if strings.TrimSpace(prescriptionID) == "" {
		return errors.New("portal: prescription id required")
	}
	_, err := c.invoke(ctx, http.MethodDelete, fmt.Sprintf("/prescriptions/%s", prescriptionID), nil, nil)
	return err
}

// SendPrescriptionSMS asks the server to deliver the prescription by SMS.
// The gateway integration lives entirely server-side.
func (c *Client) SendPrescriptionSMS(ctx context.Context, prescriptionID string) (*Prescription, error) {
	if strings.TrimSpace(prescriptionID) == "" {
		return nil, errors.New("portal: prescription id required")
	}
	data, err := c.invoke(ctx, http.MethodPost, fmt.Sprintf("/prescriptions/%s/send-sms", prescriptionID), nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeJSON[Prescription](data)
}
