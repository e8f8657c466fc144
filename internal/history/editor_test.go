package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careloop/telehealth-client/internal/portal"
)

type fakeRecordAPI struct {
	record     portal.MedicalHistory
	lastUpdate portal.MedicalHistory
	updates    int
}

func (f *fakeRecordAPI) GetMedicalHistory(ctx context.Context, patientID string) (*portal.MedicalHistory, error) {
	r := f.record
	return &r, nil
}

func (f *fakeRecordAPI) UpdateMedicalHistory(ctx context.Context, history portal.MedicalHistory) (*portal.MedicalHistory, error) {
	f.updates++
	f.lastUpdate = history
	history.UpdatedAt = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	f.record = history
	return &history, nil
}

func (f *fakeRecordAPI) SearchTerms(ctx context.Context, category, query string) ([]portal.TermResult, error) {
	return nil, nil
}

func TestEditorSectionSaveReplacesWholeRecord(t *testing.T) {
	api := &fakeRecordAPI{record: portal.MedicalHistory{
		PatientID:         "p-1",
		ChronicConditions: []string{"asthma"},
		Allergies:         []portal.Allergy{{Name: "Penicillin"}},
	}}
	ed, err := NewEditor(api, "p-1", nil)
	require.NoError(t, err)
	require.NoError(t, ed.Load(context.Background()))

	draft := ed.AllergiesDraft()
	draft.Add(portal.Allergy{Name: "Latex", Severity: "mild"})
	require.NoError(t, draft.Save(context.Background()))

	require.Equal(t, 1, api.updates)
	assert.Len(t, api.lastUpdate.Allergies, 2)
	// Untouched sections travel with the update.
	assert.Equal(t, []string{"asthma"}, api.lastUpdate.ChronicConditions)

	record, loaded := ed.Record()
	require.True(t, loaded)
	assert.Len(t, record.Allergies, 2)
	assert.False(t, record.UpdatedAt.IsZero())
}

func TestEditorRequiresLoadBeforeSave(t *testing.T) {
	ed, err := NewEditor(&fakeRecordAPI{}, "p-1", nil)
	require.NoError(t, err)

	draft := ed.ConditionsDraft()
	draft.Add("diabetes")
	assert.Error(t, draft.Save(context.Background()))
}

func TestEditorVitalsSaveComputesBMI(t *testing.T) {
	api := &fakeRecordAPI{record: portal.MedicalHistory{PatientID: "p-1"}}
	ed, err := NewEditor(api, "p-1", nil)
	require.NoError(t, err)
	require.NoError(t, ed.Load(context.Background()))

	draft := ed.VitalsDraft()
	draft.Add(portal.VitalSigns{HeightCm: 170, WeightKg: 70, RecordedAt: time.Now()})
	require.NoError(t, draft.Save(context.Background()))

	require.Len(t, api.lastUpdate.Vitals, 1)
	assert.InDelta(t, 24.2, api.lastUpdate.Vitals[0].BMI, 0.001)
}

func TestEditorSaveSocial(t *testing.T) {
	api := &fakeRecordAPI{record: portal.MedicalHistory{PatientID: "p-1"}}
	ed, err := NewEditor(api, "p-1", nil)
	require.NoError(t, err)
	require.NoError(t, ed.Load(context.Background()))

	require.NoError(t, ed.SaveSocial(context.Background(), portal.SocialHistory{Smoking: "never"}))
	assert.Equal(t, "never", api.lastUpdate.Social.Smoking)
}

func TestNewEditorValidation(t *testing.T) {
	_, err := NewEditor(nil, "p-1", nil)
	assert.Error(t, err)

	_, err = NewEditor(&fakeRecordAPI{}, "", nil)
	assert.Error(t, err)
}
