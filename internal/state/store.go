package state

import (
	"sync"
	"time"

	"github.com/careloop/telehealth-client/internal/portal"
)

// Slice names, used in update notifications and sync metrics labels.
const (
	SliceAuth          = "auth"
	SliceConsultations = "consultations"
	SlicePrescriptions = "prescriptions"
	SliceMessages      = "messages"
	SliceAdminUsers    = "admin_users"
	SliceDashboard     = "dashboard"
)

type consultationRec struct{ portal.Consultation }

func (r consultationRec) Key() string { return r.ID }

type prescriptionRec struct{ portal.Prescription }

func (r prescriptionRec) Key() string { return r.ID }

type userRec struct{ portal.User }

func (r userRec) Key() string { return r.ID }

// Update describes one applied state change.
type Update struct {
	Slice string
	At    time.Time
}

// Listener receives store updates. Called synchronously after a slice is
// replaced; listeners must not call back into the store.
type Listener func(Update)

// Store is an explicit, injected application-state container holding the
// last-fetched server snapshot per slice. All mutation goes through reducer
// application under the write lock; reads return copies.
type Store struct {
	mu sync.RWMutex

	auth          portal.AuthStatus
	consultations []consultationRec
	prescriptions []prescriptionRec
	adminUsers    []userRec
	dashboard     *portal.DashboardStats

	selectedConsultationID string
	selectedPrescriptionID string

	listeners []Listener
	now       func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{now: time.Now}
}

// Subscribe registers a listener for slice updates.
func (s *Store) Subscribe(l Listener) {
	if l == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

func (s *Store) notify(slice string) {
	update := Update{Slice: slice, At: s.now()}
	s.mu.RLock()
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()
	for _, l := range listeners {
		l(update)
	}
}

// SetAuth replaces the auth slice.
func (s *Store) SetAuth(status portal.AuthStatus) {
	s.mu.Lock()
	s.auth = status
	s.mu.Unlock()
	s.notify(SliceAuth)
}

// Auth returns the cached auth snapshot.
func (s *Store) Auth() portal.AuthStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.auth
}

// SetConsultations applies a fetched consultation collection. The current
// selection is re-resolved by id: still present means the selection now
// points at the refreshed record, vanished means it is cleared.
func (s *Store) SetConsultations(next []portal.Consultation) {
	recs := make([]consultationRec, 0, len(next))
	for _, c := range next {
		recs = append(recs, consultationRec{c})
	}

	s.mu.Lock()
	s.consultations = ReconcileByID(s.consultations, recs, nil)
	if _, ok := ResolveSelection(s.selectedConsultationID, s.consultations); !ok {
		s.selectedConsultationID = ""
	}
	s.mu.Unlock()
	s.notify(SliceConsultations)
}

// Consultations returns a copy of the consultation slice.
func (s *Store) Consultations() []portal.Consultation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]portal.Consultation, 0, len(s.consultations))
	for _, r := range s.consultations {
		out = append(out, r.Consultation)
	}
	return out
}

// SelectConsultation marks a consultation as the active selection. Selecting
// an id not present in the slice is allowed; it resolves (or clears) on the
// next read or refresh.
func (s *Store) SelectConsultation(id string) {
	s.mu.Lock()
	s.selectedConsultationID = id
	s.mu.Unlock()
}

// SelectedConsultation resolves the current selection against the latest
// fetched collection.
func (s *Store) SelectedConsultation() (portal.Consultation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := ResolveSelection(s.selectedConsultationID, s.consultations)
	return rec.Consultation, ok
}

// SetPrescriptions applies a fetched prescription collection, re-resolving
// the prescription selection the same way consultations are.
func (s *Store) SetPrescriptions(next []portal.Prescription) {
	recs := make([]prescriptionRec, 0, len(next))
	for _, p := range next {
		recs = append(recs, prescriptionRec{p})
	}

	s.mu.Lock()
	s.prescriptions = ReconcileByID(s.prescriptions, recs, nil)
	if _, ok := ResolveSelection(s.selectedPrescriptionID, s.prescriptions); !ok {
		s.selectedPrescriptionID = ""
	}
	s.mu.Unlock()
	s.notify(SlicePrescriptions)
}

// Prescriptions returns a copy of the prescription slice.
func (s *Store) Prescriptions() []portal.Prescription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]portal.Prescription, 0, len(s.prescriptions))
	for _, r := range s.prescriptions {
		out = append(out, r.Prescription)
	}
	return out
}

// SelectPrescription marks a prescription as the active selection.
func (s *Store) SelectPrescription(id string) {
	s.mu.Lock()
	s.selectedPrescriptionID = id
	s.mu.Unlock()
}

// SelectedPrescription resolves the prescription selection.
func (s *Store) SelectedPrescription() (portal.Prescription, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := ResolveSelection(s.selectedPrescriptionID, s.prescriptions)
	return rec.Prescription, ok
}

// SetAdminUsers replaces the admin-users slice.
func (s *Store) SetAdminUsers(next []portal.User) {
	recs := make([]userRec, 0, len(next))
	for _, u := range next {
		recs = append(recs, userRec{u})
	}
	s.mu.Lock()
	s.adminUsers = ReconcileByID(s.adminUsers, recs, nil)
	s.mu.Unlock()
	s.notify(SliceAdminUsers)
}

// AdminUsers returns a copy of the admin-users slice.
func (s *Store) AdminUsers() []portal.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]portal.User, 0, len(s.adminUsers))
	for _, r := range s.adminUsers {
		out = append(out, r.User)
	}
	return out
}

// SetDashboard replaces the dashboard snapshot.
func (s *Store) SetDashboard(stats *portal.DashboardStats) {
	s.mu.Lock()
	s.dashboard = stats
	s.mu.Unlock()
	s.notify(SliceDashboard)
}

// Dashboard returns the cached dashboard snapshot, or nil before the first
// successful fetch.
func (s *Store) Dashboard() *portal.DashboardStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dashboard == nil {
		return nil
	}
	out := *s.dashboard
	return &out
}
