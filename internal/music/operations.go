package music

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kingsrock/kingsbot/internal/player"
)

// Operations are the playback commands over the session registry, the
// loop store and the external player. Each call is a short transaction:
// the external control call happens first, local state mutates only on
// success. Every operation holds the per-guild lock, so commands and
// reactor handlers never touch a session concurrently.
type Operations struct {
	registry *SessionRegistry
	loops    *LoopStore
	manager  player.Manager
	log      zerolog.Logger
}

func NewOperations(registry *SessionRegistry, loops *LoopStore, manager player.Manager, log zerolog.Logger) *Operations {
	return &Operations{
		registry: registry,
		loops:    loops,
		manager:  manager,
		log:      log.With().Str("component", "music").Logger(),
	}
}

// Registry exposes the session registry for read-side consumers.
func (o *Operations) Registry() *SessionRegistry { return o.registry }

// Loops exposes the loop store for read-side consumers.
func (o *Operations) Loops() *LoopStore { return o.loops }

// Join creates a session for the requester's voice channel.
// voiceChannelID is empty when the requester is not voice-connected.
func (o *Operations) Join(ctx context.Context, guildID, voiceChannelID, textChannelID string) (*Session, error) {
	if voiceChannelID == "" {
		return nil, ErrNoVoiceChannel
	}

	lock := o.registry.GuildLock(guildID)
	lock.Lock()
	defer lock.Unlock()

	return o.registry.Create(ctx, guildID, voiceChannelID, textChannelID)
}

// Leave destroys the guild's session and its loop policy.
func (o *Operations) Leave(ctx context.Context, guildID string) error {
	lock := o.registry.GuildLock(guildID)
	lock.Lock()
	defer lock.Unlock()

	if _, ok := o.registry.Get(guildID); !ok {
		return ErrNotConnected
	}
	if err := o.registry.Destroy(ctx, guildID); err != nil {
		return fmt.Errorf("failed to destroy player: %w", err)
	}
	o.loops.Clear(guildID)
	return nil
}

// PlayResult describes what Play enqueued.
type PlayResult struct {
	Tracks       []player.Track
	PlaylistName string
	Started      bool
}

// Play searches the query and enqueues the result, creating the session
// first if needed. When playback is idle the queue head starts
// immediately; an in-progress track is never interrupted.
func (o *Operations) Play(ctx context.Context, guildID, voiceChannelID, textChannelID, requesterID, query string) (*PlayResult, error) {
	if voiceChannelID == "" {
		return nil, ErrNoVoiceChannel
	}
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	lock := o.registry.GuildLock(guildID)
	lock.Lock()
	defer lock.Unlock()

	sess, ok := o.registry.Get(guildID)
	if !ok {
		var err error
		sess, err = o.registry.Create(ctx, guildID, voiceChannelID, textChannelID)
		if err != nil {
			return nil, err
		}
	}

	res, err := o.manager.Search(ctx, query, requesterID)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	if res == nil || len(res.Tracks) == 0 {
		return nil, ErrNoResults
	}

	tracks := res.Tracks
	if !res.IsPlaylist() {
		tracks = tracks[:1]
	}

	if err := o.manager.Enqueue(ctx, guildID, tracks); err != nil {
		return nil, fmt.Errorf("enqueue failed: %w", err)
	}
	sess.Queue = append(sess.Queue, tracks...)

	result := &PlayResult{Tracks: tracks, PlaylistName: res.PlaylistName}

	if sess.State == StateIdle {
		if err := o.manager.Play(ctx, guildID); err != nil {
			return nil, fmt.Errorf("play failed: %w", err)
		}
		sess.Advance()
		result.Started = true
	}

	return result, nil
}

// SkipResult reports what Skip did.
type SkipResult struct {
	Skipped player.Track
	Stopped bool
}

// Skip advances past the current track. With an empty trailing queue it
// degrades to a full stop so the node is never told to play nothing.
func (o *Operations) Skip(ctx context.Context, guildID string) (*SkipResult, error) {
	lock := o.registry.GuildLock(guildID)
	lock.Lock()
	defer lock.Unlock()

	sess, ok := o.registry.Get(guildID)
	if !ok || sess.Current == nil {
		return nil, ErrNothingPlaying
	}

	skipped := *sess.Current

	if len(sess.Queue) == 0 {
		if err := o.manager.Stop(ctx, guildID); err != nil {
			return nil, fmt.Errorf("stop failed: %w", err)
		}
		sess.Reset()
		return &SkipResult{Skipped: skipped, Stopped: true}, nil
	}

	if err := o.manager.Skip(ctx, guildID); err != nil {
		return nil, fmt.Errorf("skip failed: %w", err)
	}
	sess.Current = nil
	sess.Advance()
	return &SkipResult{Skipped: skipped}, nil
}

// Stop halts playback and clears the queue, leaving the session idle.
func (o *Operations) Stop(ctx context.Context, guildID string) error {
	lock := o.registry.GuildLock(guildID)
	lock.Lock()
	defer lock.Unlock()

	sess, ok := o.registry.Get(guildID)
	if !ok {
		return ErrNothingPlaying
	}
	if err := o.manager.Stop(ctx, guildID); err != nil {
		return fmt.Errorf("stop failed: %w", err)
	}
	sess.Reset()
	return nil
}

// Pause suspends a playing session.
func (o *Operations) Pause(ctx context.Context, guildID string) error {
	lock := o.registry.GuildLock(guildID)
	lock.Lock()
	defer lock.Unlock()

	sess, ok := o.registry.Get(guildID)
	if !ok {
		return ErrNothingPlaying
	}
	switch sess.State {
	case StatePaused:
		return ErrAlreadyPaused
	case StateIdle:
		return ErrNothingPlaying
	}
	if err := o.manager.Pause(ctx, guildID); err != nil {
		return fmt.Errorf("pause failed: %w", err)
	}
	sess.State = StatePaused
	return nil
}

// Resume continues a paused session.
func (o *Operations) Resume(ctx context.Context, guildID string) error {
	lock := o.registry.GuildLock(guildID)
	lock.Lock()
	defer lock.Unlock()

	sess, ok := o.registry.Get(guildID)
	if !ok {
		return ErrNothingPlaying
	}
	switch sess.State {
	case StatePlaying:
		return ErrNotPaused
	case StateIdle:
		return ErrNothingPlaying
	}
	if err := o.manager.Resume(ctx, guildID); err != nil {
		return fmt.Errorf("resume failed: %w", err)
	}
	sess.State = StatePlaying
	return nil
}

// QueueView renders the guild's queue. ErrNothingPlaying means there is
// no session at all; ok=false means the session exists but is empty.
func (o *Operations) QueueView(guildID string) (string, bool, error) {
	lock := o.registry.GuildLock(guildID)
	lock.Lock()
	defer lock.Unlock()

	sess, ok := o.registry.Get(guildID)
	if !ok {
		return "", false, ErrNothingPlaying
	}
	view, filled := RenderQueue(sess, o.loops.Mode(guildID))
	return view, filled, nil
}

// SetLoop sets or cycles the guild's loop mode. An empty token cycles
// off → track → queue → off. The node's repeat setting is updated first;
// local policy only changes when that call succeeds.
func (o *Operations) SetLoop(ctx context.Context, guildID, token string) (LoopMode, error) {
	var mode LoopMode
	if token == "" {
		mode = o.loops.Mode(guildID).Next()
	} else {
		var err error
		mode, err = ParseLoopMode(token)
		if err != nil {
			return "", err
		}
	}

	if err := o.manager.SetRepeatMode(ctx, guildID, mode.RepeatMode()); err != nil {
		return "", fmt.Errorf("failed to set repeat mode: %w", err)
	}
	o.loops.SetMode(guildID, mode)

	o.log.Debug().Str("guild", guildID).Str("mode", string(mode)).Msg("loop mode changed")
	return mode, nil
}
