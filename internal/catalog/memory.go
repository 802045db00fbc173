package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for local runs and tests. It
// mirrors DynamoStore's semantics, including the signature uniqueness
// guarantee.
type MemoryStore struct {
	mu         sync.RWMutex
	designs    map[string]map[string]*DesignRecord // scope → id → record
	signatures map[string]map[string]string        // scope → signature hex → design id
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		designs:    make(map[string]map[string]*DesignRecord),
		signatures: make(map[string]map[string]string),
	}
}

func (s *MemoryStore) InsertDesign(ctx context.Context, rec *DesignRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now().Unix()
	if rec.CreatedAt == 0 {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	scope := rec.Scope()
	sigKey := rec.Phash + rec.Dhash

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.signatures[scope][sigKey]; exists {
		return fmt.Errorf("insert design %s: %w", rec.ID, ErrDuplicateSignature)
	}

	if s.designs[scope] == nil {
		s.designs[scope] = make(map[string]*DesignRecord)
		s.signatures[scope] = make(map[string]string)
	}

	stored := *rec
	s.designs[scope][rec.ID] = &stored
	s.signatures[scope][sigKey] = rec.ID
	return nil
}

func (s *MemoryStore) GetDesign(ctx context.Context, scope, id string) (*DesignRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.designs[scope][id]
	if !ok {
		return nil, nil
	}
	out := *rec
	return &out, nil
}

func (s *MemoryStore) ActiveSignatures(ctx context.Context, scope string) ([]SignatureEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []SignatureEntry
	for _, rec := range s.designs[scope] {
		if !rec.IsActive {
			continue
		}
		sig, err := rec.Signature()
		if err != nil {
			continue
		}
		entries = append(entries, SignatureEntry{DesignID: rec.ID, Signature: sig})
	}
	return entries, nil
}

// Len reports the number of records across all scopes.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, scoped := range s.designs {
		n += len(scoped)
	}
	return n
}
