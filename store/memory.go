package store

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory DocumentStore used by tests and local
// development. It is safe for concurrent use.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]Document

	// FailPut, when set, is consulted before every Put; a non-nil return is
	// surfaced as the write error. Lets tests inject per-item store failures.
	FailPut func(collectionPath, id string) error
	// FailPatch behaves like FailPut for Patch calls
	FailPatch func(collectionPath, id string) error

	putCount   int
	patchCount int
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]Document),
	}
}

// Exists reports whether any document in the collection has field == value
func (s *MemoryStore) Exists(ctx context.Context, collectionPath, field string, value interface{}) (bool, error) {
	if err := ValidatePath(collectionPath); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, doc := range s.collections[collectionPath] {
		if doc[field] == value {
			return true, nil
		}
	}
	return false, nil
}

// GetAll returns every document in the collection
func (s *MemoryStore) GetAll(ctx context.Context, collectionPath string) ([]Document, error) {
	if err := ValidatePath(collectionPath); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []Document
	for _, doc := range s.collections[collectionPath] {
		docs = append(docs, cloneDocument(doc))
	}
	return docs, nil
}

// Get returns the document with the given id
func (s *MemoryStore) Get(ctx context.Context, collectionPath, id string) (Document, error) {
	if err := ValidatePath(collectionPath); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.collections[collectionPath][id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneDocument(doc), nil
}

// Put fully overwrites (upserts) the document with the given id
func (s *MemoryStore) Put(ctx context.Context, collectionPath, id string, doc Document) error {
	if err := ValidatePath(collectionPath); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.FailPut != nil {
		if err := s.FailPut(collectionPath, id); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.collections[collectionPath] == nil {
		s.collections[collectionPath] = make(map[string]Document)
	}
	s.collections[collectionPath][id] = cloneDocument(doc)
	s.putCount++
	return nil
}

// Patch merges the partial document into the stored one
func (s *MemoryStore) Patch(ctx context.Context, collectionPath, id string, partial Document) error {
	if err := ValidatePath(collectionPath); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.FailPatch != nil {
		if err := s.FailPatch(collectionPath, id); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.collections[collectionPath][id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range partial {
		doc[k] = v
	}
	s.patchCount++
	return nil
}

// WriteCount returns the number of Put and Patch calls accepted so far
func (s *MemoryStore) WriteCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.putCount + s.patchCount
}

func cloneDocument(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return cloneDocument(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
