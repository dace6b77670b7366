package store

import (
	"context"
	"errors"
	"testing"
)

func TestCollectionPaths(t *testing.T) {
	if got := TraineeCollection("company-1"); got != "companies/company-1/currenttrainee" {
		t.Errorf("TraineeCollection = %q", got)
	}
	if got := ApplicationCollection("company-1"); got != "companies/company-1/applications" {
		t.Errorf("ApplicationCollection = %q", got)
	}
}

func TestValidatePath(t *testing.T) {
	for _, valid := range []string{"companies/c1/applications", "todos", "a/b"} {
		if err := ValidatePath(valid); err != nil {
			t.Errorf("ValidatePath(%q) = %v", valid, err)
		}
	}
	for _, invalid := range []string{"", "/leading", "trailing/", "a//b"} {
		if err := ValidatePath(invalid); err == nil {
			t.Errorf("ValidatePath(%q) should fail", invalid)
		}
	}
}

func TestMemoryStoreCRUD(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	coll := "companies/c1/applications"

	if _, err := s.Get(ctx, coll, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing = %v, want ErrNotFound", err)
	}

	doc := Document{"id": "d1", "status": "accepted"}
	if err := s.Put(ctx, coll, "d1", doc); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get(ctx, coll, "d1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got["status"] != "accepted" {
		t.Errorf("status = %v", got["status"])
	}

	// Returned documents are clones; mutating them must not leak back
	got["status"] = "mutated"
	again, _ := s.Get(ctx, coll, "d1")
	if again["status"] != "accepted" {
		t.Error("stored document was mutated through a returned copy")
	}

	if err := s.Patch(ctx, coll, "d1", Document{"status": "in_training"}); err != nil {
		t.Fatalf("Patch: %v", err)
	}
	patched, _ := s.Get(ctx, coll, "d1")
	if patched["status"] != "in_training" || patched["id"] != "d1" {
		t.Errorf("patched = %v", patched)
	}

	if err := s.Patch(ctx, coll, "missing", Document{"x": 1}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Patch missing = %v, want ErrNotFound", err)
	}

	ok, err := s.Exists(ctx, coll, "status", "in_training")
	if err != nil || !ok {
		t.Errorf("Exists = (%v, %v)", ok, err)
	}
	ok, _ = s.Exists(ctx, coll, "status", "rejected")
	if ok {
		t.Error("Exists should be false for an absent value")
	}

	docs, err := s.GetAll(ctx, coll)
	if err != nil || len(docs) != 1 {
		t.Errorf("GetAll = (%d docs, %v)", len(docs), err)
	}

	if s.WriteCount() != 2 {
		t.Errorf("WriteCount = %d, want 2", s.WriteCount())
	}
}

func TestMemoryStoreRejectsCancelledContext(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Put(ctx, "c/x", "d1", Document{}); err == nil {
		t.Error("Put with cancelled context should fail")
	}
	if _, err := s.GetAll(ctx, "c/x"); err == nil {
		t.Error("GetAll with cancelled context should fail")
	}
}

func TestMemoryStoreFailureInjection(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	boom := errors.New("injected")

	s.FailPut = func(collectionPath, id string) error {
		if id == "bad" {
			return boom
		}
		return nil
	}

	if err := s.Put(ctx, "c/x", "bad", Document{}); !errors.Is(err, boom) {
		t.Errorf("Put = %v, want injected error", err)
	}
	if err := s.Put(ctx, "c/x", "good", Document{}); err != nil {
		t.Errorf("Put = %v", err)
	}
	if s.WriteCount() != 1 {
		t.Errorf("rejected writes must not count, got %d", s.WriteCount())
	}
}
