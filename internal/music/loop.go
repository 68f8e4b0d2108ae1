package music

import (
	"strings"
	"sync"

	"github.com/kingsrock/kingsbot/internal/player"
)

// LoopMode is the per-guild repeat policy.
type LoopMode string

const (
	LoopOff   LoopMode = "off"
	LoopTrack LoopMode = "track"
	LoopQueue LoopMode = "queue"
)

// playedHistoryLimit bounds the per-guild played-tracks record kept for
// queue-loop restoration.
const playedHistoryLimit = 10

// Next returns the successor in the off → track → queue → off cycle.
func (m LoopMode) Next() LoopMode {
	switch m {
	case LoopOff:
		return LoopTrack
	case LoopTrack:
		return LoopQueue
	default:
		return LoopOff
	}
}

// Display returns the user-facing label for the mode.
func (m LoopMode) Display() string {
	switch m {
	case LoopTrack:
		return "🔂 Track Loop"
	case LoopQueue:
		return "🔁 Queue Loop"
	default:
		return "➡️ No Loop"
	}
}

// RepeatMode converts the loop mode to the node's repeat setting.
func (m LoopMode) RepeatMode() player.RepeatMode {
	switch m {
	case LoopTrack:
		return player.RepeatTrack
	case LoopQueue:
		return player.RepeatQueue
	default:
		return player.RepeatOff
	}
}

// ParseLoopMode resolves a user token into a mode. Each mode has a few
// accepted synonyms; anything else is ErrInvalidLoopMode.
func ParseLoopMode(token string) (LoopMode, error) {
	switch strings.ToLower(token) {
	case "track", "t", "song":
		return LoopTrack, nil
	case "queue", "q", "all":
		return LoopQueue, nil
	case "off", "disable", "none":
		return LoopOff, nil
	}
	return LoopOff, ErrInvalidLoopMode
}

// LoopStore holds per-guild loop modes and the bounded history of played
// tracks. Its lifecycle is independent of sessions; Clear ties the two
// together on player destroy.
type LoopStore struct {
	mu      sync.Mutex
	modes   map[string]LoopMode
	history map[string][]player.Track
}

func NewLoopStore() *LoopStore {
	return &LoopStore{
		modes:   make(map[string]LoopMode),
		history: make(map[string][]player.Track),
	}
}

// Mode returns the guild's loop mode, defaulting to off.
func (s *LoopStore) Mode(guildID string) LoopMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.modes[guildID]; ok {
		return m
	}
	return LoopOff
}

// SetMode overwrites the guild's mode. History is only meaningful under
// queue loop, so any other mode drops it.
func (s *LoopStore) SetMode(guildID string, mode LoopMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modes[guildID] = mode
	if mode != LoopQueue {
		delete(s.history, guildID)
	}
}

// RecordPlayed appends a track to the guild's played history, dropping
// the oldest entry past the bound.
func (s *LoopStore) RecordPlayed(guildID string, track player.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	played := append(s.history[guildID], track)
	if len(played) > playedHistoryLimit {
		played = played[len(played)-playedHistoryLimit:]
	}
	s.history[guildID] = played
}

// Played returns a copy of the guild's played history.
func (s *LoopStore) Played(guildID string) []player.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	played := s.history[guildID]
	out := make([]player.Track, len(played))
	copy(out, played)
	return out
}

// Clear removes mode and history for the guild entirely.
func (s *LoopStore) Clear(guildID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.modes, guildID)
	delete(s.history, guildID)
}
