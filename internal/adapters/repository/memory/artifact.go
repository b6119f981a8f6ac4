// Package memory provides an in-process artifact store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/flowgraph/flowlogic/internal/core/artifact"
	"github.com/flowgraph/flowlogic/pkg/serialization"
)

var _ artifact.Saver = (*Saver)(nil)

// Saver implements artifact.Saver over a guarded map. Artifacts are stored
// serialized so callers never share slices with the store.
type Saver struct {
	mu         sync.RWMutex
	entries    map[string]*entry
	serializer *serialization.Serializer
	ttl        time.Duration
	maxEntries int
	now        func() time.Time

	stop      chan struct{}
	closeOnce sync.Once
}

// Config holds configuration for Saver
type Config struct {
	TTL             time.Duration // zero keeps artifacts until deleted
	MaxEntries      int           // oldest artifacts are evicted beyond this
	CleanupInterval time.Duration // zero disables the background sweep
	Serializer      *serialization.Serializer
}

type entry struct {
	meta      artifact.Artifact // Files left nil
	data      []byte
	expiresAt time.Time
}

// Stats describes the store contents.
type Stats struct {
	Count int   `json:"count"`
	Bytes int64 `json:"bytes"`
}

// NewSaver creates an in-memory artifact saver
func NewSaver(config Config) *Saver {
	if config.MaxEntries <= 0 {
		config.MaxEntries = 1000
	}
	if config.Serializer == nil {
		config.Serializer = serialization.DefaultSerializer()
	}

	s := &Saver{
		entries:    make(map[string]*entry),
		serializer: config.Serializer,
		ttl:        config.TTL,
		maxEntries: config.MaxEntries,
		now:        time.Now,
		stop:       make(chan struct{}),
	}
	if config.TTL > 0 && config.CleanupInterval > 0 {
		go s.sweep(config.CleanupInterval)
	}
	return s
}

// DefaultSaver creates a Saver with default configuration
func DefaultSaver() *Saver {
	return NewSaver(Config{})
}

// Save stores an artifact, replacing any with the same ID.
func (s *Saver) Save(_ context.Context, a *artifact.Artifact) error {
	if a == nil {
		return artifact.ErrInvalidArtifactID
	}
	if err := a.Validate(); err != nil {
		return fmt.Errorf("artifact validation failed: %w", err)
	}

	data, err := s.serializer.Serialize(a.Files)
	if err != nil {
		return fmt.Errorf("%w: %v", artifact.ErrSaveFailed, err)
	}

	e := &entry{meta: *a, data: data}
	e.meta.Files = nil
	e.meta.FlowIDs = append([]string(nil), a.FlowIDs...)
	if s.ttl > 0 {
		e.expiresAt = s.now().Add(s.ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[a.ID] = e
	s.evictLocked()
	return nil
}

// Load retrieves an artifact by ID
func (s *Saver) Load(_ context.Context, id string) (*artifact.Artifact, error) {
	if id == "" {
		return nil, artifact.ErrInvalidArtifactID
	}

	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok || s.expired(e) {
		return nil, artifact.ErrArtifactNotFound
	}
	return s.decode(e)
}

// List returns artifacts matching the filter, newest first
func (s *Saver) List(_ context.Context, filter artifact.Filter) ([]*artifact.Artifact, error) {
	if err := filter.Validate(); err != nil {
		return nil, fmt.Errorf("filter validation failed: %w", err)
	}

	s.mu.RLock()
	matched := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		if !s.expired(e) && filter.Matches(&e.meta) {
			matched = append(matched, e)
		}
	}
	s.mu.RUnlock()

	sortNewestFirst(matched)

	if filter.Offset >= len(matched) {
		return []*artifact.Artifact{}, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}

	out := make([]*artifact.Artifact, 0, len(matched))
	for _, e := range matched {
		a, err := s.decode(e)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// Delete removes an artifact by ID
func (s *Saver) Delete(_ context.Context, id string) error {
	if id == "" {
		return artifact.ErrInvalidArtifactID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return artifact.ErrArtifactNotFound
	}
	delete(s.entries, id)
	return nil
}

// Stats reports the number and encoded size of stored artifacts.
func (s *Saver) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st Stats
	for _, e := range s.entries {
		st.Count++
		st.Bytes += int64(len(e.data))
	}
	return st
}

// Close stops the background sweep.
func (s *Saver) Close() error {
	s.closeOnce.Do(func() { close(s.stop) })
	return nil
}

func (s *Saver) decode(e *entry) (*artifact.Artifact, error) {
	a := e.meta
	a.FlowIDs = append([]string(nil), e.meta.FlowIDs...)
	if err := s.serializer.Deserialize(e.data, &a.Files); err != nil {
		return nil, fmt.Errorf("%w: %v", artifact.ErrLoadFailed, err)
	}
	return &a, nil
}

func (s *Saver) expired(e *entry) bool {
	return !e.expiresAt.IsZero() && s.now().After(e.expiresAt)
}

// evictLocked drops the oldest artifacts until the store fits maxEntries.
func (s *Saver) evictLocked() {
	if len(s.entries) <= s.maxEntries {
		return
	}
	all := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		all = append(all, e)
	}
	sortNewestFirst(all)
	for _, e := range all[s.maxEntries:] {
		delete(s.entries, e.meta.ID)
	}
}

func (s *Saver) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			for id, e := range s.entries {
				if s.expired(e) {
					delete(s.entries, id)
				}
			}
			s.mu.Unlock()
		case <-s.stop:
			return
		}
	}
}

func sortNewestFirst(entries []*entry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i].meta, entries[j].meta
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
