package merge

import (
	"context"
	"errors"
	"sync"

	"crm_backend/internal/leads/domain"
)

var errStore = errors.New("store unavailable")

type fakeStore struct {
	mu        sync.Mutex
	leads     map[string]domain.Lead
	getErr    map[string]error
	deleteErr map[string]error
	updateErr error

	gets    int
	updates []domain.LeadUpdate
	deletes []string
	calls   []string
}

func newFakeStore(leads ...domain.Lead) *fakeStore {
	s := &fakeStore{
		leads:     make(map[string]domain.Lead),
		getErr:    make(map[string]error),
		deleteErr: make(map[string]error),
	}
	for _, l := range leads {
		s.leads[l.ID] = l
	}
	return s
}

func (s *fakeStore) GetLead(_ context.Context, id string) (domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if err := s.getErr[id]; err != nil {
		return domain.Lead{}, err
	}
	lead, ok := s.leads[id]
	if !ok {
		return domain.Lead{}, errors.New("lead not found")
	}
	return lead.Clone(), nil
}

func (s *fakeStore) UpdateLead(_ context.Context, id string, update domain.LeadUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "update:"+id)
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updates = append(s.updates, update)

	lead := s.leads[id]
	lead.Name = update.Name
	lead.Phone = update.Phone
	lead.Status = update.Status
	lead.Attributes = update.Attributes
	lead.AssigneeIDs = update.AssigneeIDs
	lead.Attachments = update.Attachments
	lead.OrderIDs = update.OrderIDs
	lead.ActivityIDs = update.ActivityIDs
	s.leads[id] = lead
	return nil
}

func (s *fakeStore) DeleteLead(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "delete:"+id)
	if err := s.deleteErr[id]; err != nil {
		return err
	}
	s.deletes = append(s.deletes, id)
	delete(s.leads, id)
	return nil
}

func (s *fakeStore) touched() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets + len(s.calls)
}

type fakeInvalidator struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeInvalidator) InvalidateLeadListings(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

type fakeArchiver struct {
	store    *fakeStore
	masterID string
	ids      []string
	err      error
}

func (f *fakeArchiver) ArchiveDuplicates(_ context.Context, masterID string, duplicates []domain.Lead) error {
	f.masterID = masterID
	for _, d := range duplicates {
		f.ids = append(f.ids, d.ID)
	}
	if f.store != nil {
		f.store.mu.Lock()
		f.store.calls = append(f.store.calls, "archive:"+masterID)
		f.store.mu.Unlock()
	}
	return f.err
}
