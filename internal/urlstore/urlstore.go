// Package urlstore keeps the in-memory registry of short URLs with their
// owners and visit analytics. Every operation goes through the Store so
// the id-uniqueness and ownership invariants cannot be bypassed.
package urlstore

import (
	"fmt"
	"sync"
	"time"

	"github.com/ArcaneCipher/tinyapp/internal/keygen"
	"github.com/ArcaneCipher/tinyapp/internal/models"
	"github.com/ArcaneCipher/tinyapp/internal/visits"
)

type urlValidator interface {
	IsValid(candidate string) bool
}

// Store owns the short-id → entry map. Mutations are serialized by a
// mutex; readers get defensive snapshots, never live entry pointers.
type Store struct {
	mu        sync.RWMutex
	entries   map[string]*models.ShortURLEntry
	order     []string
	keys      *keygen.Generator
	validator urlValidator
	tracker   *visits.Tracker
}

func New(keys *keygen.Generator, validator urlValidator) *Store {
	return &Store{
		entries:   map[string]*models.ShortURLEntry{},
		keys:      keys,
		validator: validator,
		tracker:   visits.NewTracker(),
	}
}

// Create registers longURL under a freshly generated short id owned by
// ownerID. The visit fields start empty.
func (s *Store) Create(ownerID, longURL string) (models.ShortURLEntry, error) {
	if !s.validator.IsValid(longURL) {
		return models.ShortURLEntry{}, models.ErrInvalidURL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.keys.Generate(func(key string) bool {
		_, taken := s.entries[key]
		return taken
	})
	if err != nil {
		return models.ShortURLEntry{}, fmt.Errorf("generating short id: %w", err)
	}

	entry := &models.ShortURLEntry{
		ID:             id,
		LongURL:        longURL,
		OwnerID:        ownerID,
		UniqueVisitors: map[string]struct{}{},
	}
	s.entries[id] = entry
	s.order = append(s.order, id)

	return snapshot(entry), nil
}

// Get returns a snapshot of the entry with the given id.
func (s *Store) Get(id string) (models.ShortURLEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, found := s.entries[id]
	if !found {
		return models.ShortURLEntry{}, false
	}
	return snapshot(entry), true
}

// ListForOwner returns the owner's entries in insertion order.
func (s *Store) ListForOwner(ownerID string) []models.ShortURLEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.ShortURLEntry
	for _, id := range s.order {
		entry := s.entries[id]
		if entry.OwnerID == ownerID {
			result = append(result, snapshot(entry))
		}
	}
	return result
}

// Update replaces the long URL behind id, preserving the visit fields.
// Only the owner may update an entry.
func (s *Store) Update(id, ownerID, newLongURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, found := s.entries[id]
	if !found {
		return models.ErrNotFound
	}
	if entry.OwnerID != ownerID {
		return models.ErrForbidden
	}
	if !s.validator.IsValid(newLongURL) {
		return models.ErrInvalidURL
	}

	entry.LongURL = newLongURL

	return nil
}

// Delete removes the entry with the given id. Only the owner may delete it.
func (s *Store) Delete(id, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, found := s.entries[id]
	if !found {
		return models.ErrNotFound
	}
	if entry.OwnerID != ownerID {
		return models.ErrForbidden
	}

	delete(s.entries, id)
	for i, orderedID := range s.order {
		if orderedID == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	return nil
}

// Resolve returns the long URL behind id. It requires no ownership: short
// links are meant to be followed by anyone.
func (s *Store) Resolve(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, found := s.entries[id]
	if !found {
		return "", false
	}
	return entry.LongURL, true
}

// RecordVisit logs a redirect through id by visitorID. The entry is
// mutated under the store lock so the analytics invariants hold in a
// concurrent host.
func (s *Store) RecordVisit(id, visitorID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, found := s.entries[id]
	if !found {
		return models.ErrNotFound
	}

	s.tracker.RecordVisit(entry, visitorID, now)

	return nil
}

// Count returns the number of registered short URLs.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}

func snapshot(entry *models.ShortURLEntry) models.ShortURLEntry {
	copied := *entry
	copied.UniqueVisitors = make(map[string]struct{}, len(entry.UniqueVisitors))
	for visitor := range entry.UniqueVisitors {
		copied.UniqueVisitors[visitor] = struct{}{}
	}
	copied.VisitLog = append([]models.Visit(nil), entry.VisitLog...)
	return copied
}
