package chat

import (
	"context"
	"errors"
	"sync"

	"github.com/careloop/telehealth-client/internal/portal"
	"github.com/careloop/telehealth-client/pkg/logging"
)

// Lister fetches one consultation's message list.
type Lister interface {
	ListMessages(ctx context.Context, consultationID string) ([]portal.Message, error)
}

// Follower keeps a Thread per active consultation fed from polls. Its Fetch
// method is the fetch function of the messages poller.
type Follower struct {
	lister   Lister
	source   func() []portal.Consultation
	selfID   string
	selfRole portal.Role
	logger   *logging.Logger

	mu      sync.Mutex
	threads map[string]*Thread
}

// NewFollower creates a follower over the given consultation source,
// typically the state store's Consultations accessor.
func NewFollower(lister Lister, source func() []portal.Consultation, selfID string, selfRole portal.Role, logger *logging.Logger) (*Follower, error) {
	if lister == nil {
		return nil, errors.New("chat: message lister required")
	}
	if source == nil {
		return nil, errors.New("chat: consultation source required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Follower{
		lister:   lister,
		source:   source,
		selfID:   selfID,
		selfRole: selfRole,
		logger:   logger.Component("chat"),
		threads:  make(map[string]*Thread),
	}, nil
}

// Fetch polls messages for every active consultation and reconciles each
// thread. Threads for consultations that left the active set are dropped.
func (f *Follower) Fetch(ctx context.Context) error {
	active := make(map[string]struct{})
	var firstErr error
	for _, c := range f.source() {
		if c.Status != portal.ConsultationActive {
			continue
		}
		active[c.ID] = struct{}{}
		msgs, err := f.lister.ListMessages(ctx, c.ID)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		f.Thread(c.ID).Reconcile(msgs)
	}

	f.mu.Lock()
	for id := range f.threads {
		if _, ok := active[id]; !ok {
			delete(f.threads, id)
		}
	}
	f.mu.Unlock()
	return firstErr
}

// Thread returns the thread for a consultation, creating it if needed.
func (f *Follower) Thread(consultationID string) *Thread {
	f.mu.Lock()
	defer f.mu.Unlock()
	th, ok := f.threads[consultationID]
	if !ok {
		th = NewThread(consultationID, f.selfID, f.selfRole, f.logger)
		f.threads[consultationID] = th
	}
	return th
}
