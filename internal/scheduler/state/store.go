package state

import (
	"sync"
	"time"

	"github.com/friendsincode/signalcaster/internal/playout"
)

// RecentPlay stores recent play metadata for separation logic.
type RecentPlay struct {
	MediaID   string
	Artist    string
	Album     string
	Label     string
	PlayedAt  time.Time
	StationID string
	MountID   string
}

// Store keeps in-memory state for quick separation checks and carries each
// station's playout.PlayoutBuilderState between scheduler ticks, so a build
// resumes from exactly where the previous tick's build left off instead of
// restarting the schedule from its first item every cycle.
type Store struct {
	mu     sync.RWMutex
	recent []RecentPlay

	buildMu    sync.RWMutex
	buildState map[string]playout.PlayoutBuilderState
}

// NewStore creates a scheduler state store.
func NewStore() *Store {
	return &Store{
		recent:     make([]RecentPlay, 0, 128),
		buildState: make(map[string]playout.PlayoutBuilderState),
	}
}

// BuildState returns the station's saved build state and whether one exists.
func (s *Store) BuildState(stationID string) (playout.PlayoutBuilderState, bool) {
	s.buildMu.RLock()
	defer s.buildMu.RUnlock()
	state, ok := s.buildState[stationID]
	return state, ok
}

// SetBuildState saves the station's build state for the next tick to resume from.
func (s *Store) SetBuildState(stationID string, state playout.PlayoutBuilderState) {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()
	s.buildState[stationID] = state
}

// Add registers a play event.
func (s *Store) Add(play RecentPlay) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recent = append(s.recent, play)
}

// Recent returns snapshot of tracked plays.
func (s *Store) Recent() []RecentPlay {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RecentPlay, len(s.recent))
	copy(out, s.recent)
	return out
}

// Prune removes entries older than cutoff.
func (s *Store) Prune(cutoff time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	filtered := s.recent[:0]
	for _, rp := range s.recent {
		if rp.PlayedAt.After(cutoff) {
			filtered = append(filtered, rp)
		}
	}
	s.recent = filtered
}
