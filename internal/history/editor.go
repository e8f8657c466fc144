package history

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/careloop/telehealth-client/internal/portal"
	"github.com/careloop/telehealth-client/pkg/logging"
)

// RecordAPI is the slice of the portal client the editor needs.
type RecordAPI interface {
	GetMedicalHistory(ctx context.Context, patientID string) (*portal.MedicalHistory, error)
	UpdateMedicalHistory(ctx context.Context, history portal.MedicalHistory) (*portal.MedicalHistory, error)
	SearchTerms(ctx context.Context, category, query string) ([]portal.TermResult, error)
}

// Editor mediates between section drafts and one patient's server-side
// record. Every draft save replaces its section on the cached record, PUTs
// the record wholesale, and adopts the server's response as the new cache.
type Editor struct {
	api       RecordAPI
	patientID string
	logger    *logging.Logger

	mu     sync.Mutex
	record portal.MedicalHistory
	loaded bool
}

// NewEditor creates an editor for one patient's record. Call Load before
// opening drafts.
func NewEditor(api RecordAPI, patientID string, logger *logging.Logger) (*Editor, error) {
	if api == nil {
		return nil, errors.New("history: record api required")
	}
	if patientID == "" {
		return nil, errors.New("history: patient id required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Editor{api: api, patientID: patientID, logger: logger.Component("history")}, nil
}

// Load fetches the record from the server, replacing any cached copy.
func (e *Editor) Load(ctx context.Context) error {
	record, err := e.api.GetMedicalHistory(ctx, e.patientID)
	if err != nil {
		return fmt.Errorf("history: load record: %w", err)
	}
	e.mu.Lock()
	e.record = *record
	e.loaded = true
	e.mu.Unlock()
	return nil
}

// Record returns the cached record.
func (e *Editor) Record() (portal.MedicalHistory, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.record, e.loaded
}

// persistSection is shared by every section's save closure.
func (e *Editor) persistSection(ctx context.Context, apply func(*portal.MedicalHistory)) error {
	e.mu.Lock()
	if !e.loaded {
		e.mu.Unlock()
		return errors.New("history: record not loaded")
	}
	updated := e.record
	apply(&updated)
	e.mu.Unlock()

	saved, err := e.api.UpdateMedicalHistory(ctx, updated)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.record = *saved
	e.mu.Unlock()
	e.logger.Info("medical history section saved", "patient_id", e.patientID)
	return nil
}

// ConditionsDraft opens a draft over the chronic-conditions section.
func (e *Editor) ConditionsDraft() *Draft[string] {
	record, _ := e.Record()
	return NewDraft(record.ChronicConditions, func(ctx context.Context, items []string) error {
		return e.persistSection(ctx, func(h *portal.MedicalHistory) { h.ChronicConditions = items })
	})
}

// AllergiesDraft opens a draft over the allergies section.
func (e *Editor) AllergiesDraft() *Draft[portal.Allergy] {
	record, _ := e.Record()
	return NewDraft(record.Allergies, func(ctx context.Context, items []portal.Allergy) error {
		return e.persistSection(ctx, func(h *portal.MedicalHistory) { h.Allergies = items })
	})
}

// MedicationsDraft opens a draft over the current-medications section.
func (e *Editor) MedicationsDraft() *Draft[portal.CurrentMedication] {
	record, _ := e.Record()
	return NewDraft(record.Medications, func(ctx context.Context, items []portal.CurrentMedication) error {
		return e.persistSection(ctx, func(h *portal.MedicalHistory) { h.Medications = items })
	})
}

// SurgeriesDraft opens a draft over the past-surgeries section.
func (e *Editor) SurgeriesDraft() *Draft[portal.Surgery] {
	record, _ := e.Record()
	return NewDraft(record.Surgeries, func(ctx context.Context, items []portal.Surgery) error {
		return e.persistSection(ctx, func(h *portal.MedicalHistory) { h.Surgeries = items })
	})
}

// FamilyHistoryDraft opens a draft over the family-history section.
func (e *Editor) FamilyHistoryDraft() *Draft[portal.FamilyHistoryEntry] {
	record, _ := e.Record()
	return NewDraft(record.FamilyHistory, func(ctx context.Context, items []portal.FamilyHistoryEntry) error {
		return e.persistSection(ctx, func(h *portal.MedicalHistory) { h.FamilyHistory = items })
	})
}

// EmergencyContactsDraft opens a draft over the emergency-contacts section.
func (e *Editor) EmergencyContactsDraft() *Draft[portal.EmergencyContact] {
	record, _ := e.Record()
	return NewDraft(record.EmergencyContacts, func(ctx context.Context, items []portal.EmergencyContact) error {
		return e.persistSection(ctx, func(h *portal.MedicalHistory) { h.EmergencyContacts = items })
	})
}

// VitalsDraft opens a draft over the vital-signs section. BMI is filled in
// from height and weight on save.
func (e *Editor) VitalsDraft() *Draft[portal.VitalSigns] {
	record, _ := e.Record()
	return NewDraft(record.Vitals, func(ctx context.Context, items []portal.VitalSigns) error {
		for i := range items {
			items[i].BMI = BMI(items[i].HeightCm, items[i].WeightKg)
		}
		return e.persistSection(ctx, func(h *portal.MedicalHistory) { h.Vitals = items })
	})
}

// SaveSocial replaces the social-history object. It is a single struct, not
// an array, so it does not go through a Draft.
func (e *Editor) SaveSocial(ctx context.Context, social portal.SocialHistory) error {
	return e.persistSection(ctx, func(h *portal.MedicalHistory) { h.Social = social })
}

// TermSearch opens a sequence-tagged typeahead over the terminology
// endpoint for one category.
func (e *Editor) TermSearch(category string) (*Typeahead, error) {
	return NewTypeahead(category, e.api.SearchTerms)
}
