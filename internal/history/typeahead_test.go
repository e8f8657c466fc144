package history

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careloop/telehealth-client/internal/portal"
)

func TestTypeaheadMinimumQueryLength(t *testing.T) {
	var calls int
	ta, err := NewTypeahead("allergy", func(ctx context.Context, category, query string) ([]portal.TermResult, error) {
		calls++
		return []portal.TermResult{{Code: "A1", Display: query}}, nil
	})
	require.NoError(t, err)

	applied, err := ta.Lookup(context.Background(), "as")
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Zero(t, calls)

	applied, err = ta.Lookup(context.Background(), "asp")
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, 1, calls)
	require.Len(t, ta.Results(), 1)

	// Shrinking below the minimum clears what was shown.
	_, err = ta.Lookup(context.Background(), "a")
	require.NoError(t, err)
	assert.Empty(t, ta.Results())
}

func TestTypeaheadDiscardsStaleResponse(t *testing.T) {
	releaseA := make(chan struct{})
	aStarted := make(chan struct{})

	ta, err := NewTypeahead("medication", func(ctx context.Context, category, query string) ([]portal.TermResult, error) {
		if query == "aspir" {
			close(aStarted)
			<-releaseA
			return []portal.TermResult{{Code: "OLD", Display: "Aspirin (stale)"}}, nil
		}
		return []portal.TermResult{{Code: "NEW", Display: "Aspirin 75mg"}}, nil
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	var appliedA bool
	wg.Add(1)
	go func() {
		defer wg.Done()
		appliedA, _ = ta.Lookup(context.Background(), "aspir")
	}()

	select {
	case <-aStarted:
	case <-time.After(2 * time.Second):
		t.Fatal("first lookup never started")
	}

	appliedB, err := ta.Lookup(context.Background(), "aspirin")
	require.NoError(t, err)
	require.True(t, appliedB)

	close(releaseA)
	wg.Wait()

	assert.False(t, appliedA)
	results := ta.Results()
	require.Len(t, results, 1)
	assert.Equal(t, "NEW", results[0].Code)
}

func TestTypeaheadStaleErrorIgnored(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})

	ta, err := NewTypeahead("procedure", func(ctx context.Context, category, query string) ([]portal.TermResult, error) {
		if query == "appen" {
			close(started)
			<-release
			return nil, errors.New("timeout")
		}
		return []portal.TermResult{{Code: "AP1", Display: "Appendectomy"}}, nil
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	var errA error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errA = ta.Lookup(context.Background(), "appen")
	}()
	<-started

	_, err = ta.Lookup(context.Background(), "append")
	require.NoError(t, err)

	close(release)
	wg.Wait()

	// The superseded lookup neither errors nor disturbs the newer results.
	assert.NoError(t, errA)
	require.Len(t, ta.Results(), 1)
}

func TestNewTypeaheadValidation(t *testing.T) {
	_, err := NewTypeahead("", func(ctx context.Context, c, q string) ([]portal.TermResult, error) { return nil, nil })
	assert.Error(t, err)

	_, err = NewTypeahead("allergy", nil)
	assert.Error(t, err)
}
