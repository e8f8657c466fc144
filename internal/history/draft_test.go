package history

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careloop/telehealth-client/internal/portal"
)

func TestDraftEditsDoNotTouchOriginal(t *testing.T) {
	original := []portal.Allergy{{Name: "Penicillin"}}
	draft := NewDraft(original, nil)

	draft.Add(portal.Allergy{Name: "Latex"})
	require.NoError(t, draft.UpdateAt(0, portal.Allergy{Name: "Penicillin", Severity: "severe"}))

	assert.Equal(t, "Penicillin", original[0].Name)
	assert.Empty(t, original[0].Severity)
	assert.Len(t, original, 1)
	assert.Equal(t, 2, draft.Len())
	assert.True(t, draft.Dirty())
}

func TestDraftRemoveAt(t *testing.T) {
	draft := NewDraft([]string{"asthma", "diabetes", "hypertension"}, nil)

	require.NoError(t, draft.RemoveAt(1))
	assert.Equal(t, []string{"asthma", "hypertension"}, draft.Items())

	assert.Error(t, draft.RemoveAt(5))
	assert.Error(t, draft.RemoveAt(-1))
	assert.Error(t, draft.UpdateAt(2, "x"))
}

func TestDraftSave(t *testing.T) {
	var saved []string
	draft := NewDraft([]string{"asthma"}, func(ctx context.Context, items []string) error {
		saved = items
		return nil
	})
	draft.Add("diabetes")

	require.NoError(t, draft.Save(context.Background()))
	assert.Equal(t, []string{"asthma", "diabetes"}, saved)
	assert.False(t, draft.Dirty())
}

func TestDraftSaveFailureStaysDirty(t *testing.T) {
	draft := NewDraft([]string{}, func(ctx context.Context, items []string) error {
		return errors.New("server unavailable")
	})
	draft.Add("asthma")

	err := draft.Save(context.Background())
	require.Error(t, err)
	assert.True(t, draft.Dirty())
}
