package portal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// GetMedicalHistory fetches a patient's full clinical record.
func (c *Client) GetMedicalHistory(ctx context.Context, patientID string) (*MedicalHistory, error) {
	if strings.TrimSpace(patientID) == "" {
		return nil, errors.New("portal: patient id required")
	}
	q := url.Values{}
	q.Set("patient_id", patientID)
	data, err := c.invoke(ctx, http.MethodGet, "/medical-history", q, nil)
	if err != nil {
		return nil, err
	}
	return decodeJSON[MedicalHistory](data)
}

// UpdateMedicalHistory replaces the record wholesale. Sections are arrays
// edited as a unit; there is no per-item endpoint.
func (c *Client) UpdateMedicalHistory(ctx context.Context, history MedicalHistory) (*MedicalHistory, error) {
	if strings.TrimSpace(history.PatientID) == "" {
		return nil, errors.New("portal: patient id required")
	}
	body, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("portal: marshal medical history: %w", err)
	}
	data, err := c.invoke(ctx, http.MethodPut, "/medical-history", nil, body)
	if err != nil {
		return nil, err
	}
	return decodeJSON[MedicalHistory](data)
}

// SearchTerms queries the coded-terminology endpoint for a section category
// (allergy, medication, procedure).
func (c *Client) SearchTerms(ctx context.Context, category, query string) ([]TermResult, error) {
	category = strings.TrimSpace(category)
	query = strings.TrimSpace(query)
	if category == "" {
		return nil, errors.New("portal: term category required")
	}
	if query == "" {
		return nil, errors.New("portal: term query required")
	}
	q := url.Values{}
	q.Set("category", category)
	q.Set("q", query)
	data, err := c.invoke(ctx, http.MethodGet, "/medical-history/terms", q, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[TermResult](data)
}
