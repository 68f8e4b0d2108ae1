package music

import (
	"context"
	"sync"

	"github.com/kingsrock/kingsbot/internal/player"
)

// PlaybackState is the session's coarse playback status.
type PlaybackState int

const (
	StateIdle PlaybackState = iota
	StatePlaying
	StatePaused
)

func (s PlaybackState) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	}
	return "idle"
}

// Session is the per-guild playback context. At most one exists per guild.
// Current is non-nil exactly while the state is playing or paused.
// Readers and writers hold the registry's per-guild lock.
type Session struct {
	GuildID        string
	VoiceChannelID string
	TextChannelID  string

	Queue   []player.Track
	Current *player.Track
	State   PlaybackState
}

// Advance moves the queue head into Current and marks the session playing.
// With an empty queue it only flips the state, leaving Current for the
// trackStart event to fill in.
func (s *Session) Advance() {
	if len(s.Queue) > 0 {
		head := s.Queue[0]
		s.Queue = s.Queue[1:]
		s.Current = &head
	}
	if s.Current != nil {
		s.State = StatePlaying
	}
}

// Reset clears playback state after a stop or queue end.
func (s *Session) Reset() {
	s.Queue = nil
	s.Current = nil
	s.State = StateIdle
}

// SessionRegistry maps guild IDs to their single active session and keeps
// the external player in lockstep: connect precedes session creation,
// disconnect precedes removal.
type SessionRegistry struct {
	manager player.Manager

	mu       sync.Mutex
	sessions map[string]*Session
	locks    map[string]*sync.Mutex
}

func NewSessionRegistry(manager player.Manager) *SessionRegistry {
	return &SessionRegistry{
		manager:  manager,
		sessions: make(map[string]*Session),
		locks:    make(map[string]*sync.Mutex),
	}
}

// GuildLock returns the per-guild mutex serializing every mutation of the
// guild's session. Command handlers run one goroutine per gateway event
// and the reactor runs on its own; all of them take this lock before
// touching session state.
func (r *SessionRegistry) GuildLock(guildID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.locks[guildID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[guildID] = l
	}
	return l
}

// Create connects the external player and allocates an idle session.
// The session is only stored once the connect call succeeded.
func (r *SessionRegistry) Create(ctx context.Context, guildID, voiceChannelID, textChannelID string) (*Session, error) {
	r.mu.Lock()
	if _, ok := r.sessions[guildID]; ok {
		r.mu.Unlock()
		return nil, ErrAlreadyConnected
	}
	r.mu.Unlock()

	if err := r.manager.Connect(ctx, guildID, voiceChannelID); err != nil {
		return nil, err
	}

	sess := &Session{
		GuildID:        guildID,
		VoiceChannelID: voiceChannelID,
		TextChannelID:  textChannelID,
		State:          StateIdle,
	}

	r.mu.Lock()
	r.sessions[guildID] = sess
	r.mu.Unlock()
	return sess, nil
}

// Get is a pure lookup.
func (r *SessionRegistry) Get(guildID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[guildID]
	return sess, ok
}

// Destroy tears down the external player and removes the session. A
// missing session is a no-op; a failed external call leaves the session
// in place and is surfaced to the caller.
func (r *SessionRegistry) Destroy(ctx context.Context, guildID string) error {
	if _, ok := r.Get(guildID); !ok {
		return nil
	}

	if err := r.manager.Destroy(ctx, guildID); err != nil {
		return err
	}

	r.Remove(guildID)
	return nil
}

// Remove drops the session without issuing a control call. Used when the
// node itself reports the player gone.
func (r *SessionRegistry) Remove(guildID string) {
	r.mu.Lock()
	delete(r.sessions, guildID)
	r.mu.Unlock()
}

// Count returns the number of live sessions.
func (r *SessionRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
