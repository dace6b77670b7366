// Package store provides the document-store abstraction the migration
// subsystem persists into. Collections are addressed by slash-separated
// paths namespaced by company id, e.g. companies/{companyID}/currenttrainee.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a document does not exist
	ErrNotFound = errors.New("document not found")
)

// Document is a stored record. Values are strings, numbers, booleans, slices
// or nested map[string]interface{} trees; a persisted document never contains
// nil at any depth (the codec enforces that before Put).
type Document = map[string]interface{}

// DocumentStore is the abstract contract over the hosted document database
type DocumentStore interface {
	// Exists reports whether any document in the collection has field == value
	Exists(ctx context.Context, collectionPath, field string, value interface{}) (bool, error)
	// GetAll returns every document in the collection
	GetAll(ctx context.Context, collectionPath string) ([]Document, error)
	// Get returns the document with the given id, or ErrNotFound
	Get(ctx context.Context, collectionPath, id string) (Document, error)
	// Put fully overwrites (upserts) the document with the given id
	Put(ctx context.Context, collectionPath, id string, doc Document) error
	// Patch merges the partial document into the stored one
	Patch(ctx context.Context, collectionPath, id string, partial Document) error
}

// TraineeCollection returns the current-trainee collection path for a company
func TraineeCollection(companyID string) string {
	return fmt.Sprintf("companies/%s/currenttrainee", companyID)
}

// ApplicationCollection returns the applications collection path for a company.
// The collection is owned by the applications collaborator; this subsystem
// only patches statuses back into it.
func ApplicationCollection(companyID string) string {
	return fmt.Sprintf("companies/%s/applications", companyID)
}

// ValidatePath rejects empty or malformed collection paths before they reach
// a backend
func ValidatePath(collectionPath string) error {
	if collectionPath == "" {
		return errors.New("empty collection path")
	}
	for _, seg := range strings.Split(collectionPath, "/") {
		if seg == "" {
			return fmt.Errorf("malformed collection path %q", collectionPath)
		}
	}
	return nil
}
