package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/mrb4ll0/itc-trainee-api/model"
	"github.com/mrb4ll0/itc-trainee-api/store"
)

// TraineeRepository is the single source of truth wrapper over the trainee
// collections. The known-id cache follows one rule: load on miss, write
// through on mutation. Ids are only ever added during a session, never
// removed, so concurrent eligibility checks can share it safely.
type TraineeRepository struct {
	store store.DocumentStore

	mu       sync.RWMutex
	knownIDs map[string]map[string]bool // companyID -> trainee ids
}

// NewTraineeRepository creates a repository over the given document store
func NewTraineeRepository(docStore store.DocumentStore) *TraineeRepository {
	return &TraineeRepository{
		store:    docStore,
		knownIDs: make(map[string]map[string]bool),
	}
}

func (r *TraineeRepository) knownLocked(companyID, id string) bool {
	ids, ok := r.knownIDs[companyID]
	return ok && ids[id]
}

func (r *TraineeRepository) remember(companyID string, ids ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.knownIDs[companyID] == nil {
		r.knownIDs[companyID] = make(map[string]bool)
	}
	for _, id := range ids {
		r.knownIDs[companyID][id] = true
	}
}

// Exists reports whether a trainee with the given id already exists. The
// in-memory set answers first; only a miss goes to the store, and a store
// hit refreshes the set so the same id never causes a second round-trip
// in one session.
func (r *TraineeRepository) Exists(ctx context.Context, companyID, id string) (bool, error) {
	r.mu.RLock()
	known := r.knownLocked(companyID, id)
	r.mu.RUnlock()
	if known {
		return true, nil
	}

	found, err := r.store.Exists(ctx, store.TraineeCollection(companyID), "id", id)
	if err != nil {
		return false, fmt.Errorf("trainee existence check failed for %s: %w", id, err)
	}
	if found {
		r.remember(companyID, id)
	}
	return found, nil
}

// Save serializes and upserts a trainee, recording its id in the cache
// (write-through)
func (r *TraineeRepository) Save(ctx context.Context, companyID string, t *model.Trainee) error {
	doc, err := SerializeTrainee(t)
	if err != nil {
		return err
	}
	if err := r.store.Put(ctx, store.TraineeCollection(companyID), t.ID, doc); err != nil {
		return fmt.Errorf("failed to persist trainee %s: %w", t.ID, err)
	}
	r.remember(companyID, t.ID)
	return nil
}

// Get loads one trainee by id
func (r *TraineeRepository) Get(ctx context.Context, companyID, id string) (*model.Trainee, error) {
	doc, err := r.store.Get(ctx, store.TraineeCollection(companyID), id)
	if err != nil {
		return nil, err
	}
	r.remember(companyID, id)
	return DeserializeTrainee(doc), nil
}

// List loads every trainee for a company and refreshes the known-id cache
func (r *TraineeRepository) List(ctx context.Context, companyID string) ([]*model.Trainee, error) {
	docs, err := r.store.GetAll(ctx, store.TraineeCollection(companyID))
	if err != nil {
		return nil, fmt.Errorf("failed to list trainees: %w", err)
	}

	trainees := make([]*model.Trainee, 0, len(docs))
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		t := DeserializeTrainee(doc)
		trainees = append(trainees, t)
		if t.ID != "" {
			ids = append(ids, t.ID)
		}
	}
	r.remember(companyID, ids...)

	return trainees, nil
}
