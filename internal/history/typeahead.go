package history

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/careloop/telehealth-client/internal/portal"
)

// MinQueryLength is how many characters a typeahead query needs before the
// terminology endpoint is consulted.
const MinQueryLength = 3

// SearchFunc queries the coded-terminology endpoint for one category.
type SearchFunc func(ctx context.Context, category, query string) ([]portal.TermResult, error)

// Typeahead runs coded-term lookups for one section editor. Every lookup is
// tagged with a sequence number; a response belonging to anything but the
// newest issued lookup is discarded, so a slow early query can never
// overwrite the results of a later one.
type Typeahead struct {
	search   SearchFunc
	category string

	mu      sync.Mutex
	issued  uint64
	results []portal.TermResult
}

// NewTypeahead creates a typeahead for one terminology category (allergy,
// medication, procedure).
func NewTypeahead(category string, search SearchFunc) (*Typeahead, error) {
	if strings.TrimSpace(category) == "" {
		return nil, fmt.Errorf("history: typeahead category required")
	}
	if search == nil {
		return nil, fmt.Errorf("history: typeahead search function required")
	}
	return &Typeahead{search: search, category: category}, nil
}

// Lookup issues a search for the current input. It reports whether the
// response was applied; stale responses and sub-minimum queries leave the
// result set alone (queries below the minimum clear it instead).
func (t *Typeahead) Lookup(ctx context.Context, query string) (bool, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinQueryLength {
		t.mu.Lock()
		t.issued++
		t.results = nil
		t.mu.Unlock()
		return false, nil
	}

	t.mu.Lock()
	t.issued++
	seq := t.issued
	t.mu.Unlock()

	results, err := t.search(ctx, t.category, query)

	t.mu.Lock()
	defer t.mu.Unlock()
	if seq != t.issued {
		// A newer lookup has been issued; whatever this one found is stale.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("history: term lookup: %w", err)
	}
	t.results = results
	return true, nil
}

// Results returns a copy of the latest applied result set.
func (t *Typeahead) Results() []portal.TermResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]portal.TermResult, len(t.results))
	copy(out, t.results)
	return out
}
