// Package player defines the external audio-node capability the bot
// drives. The real implementation lives in internal/lavalink; tests use
// an in-memory fake.
package player

import (
	"context"
	"time"
)

// RepeatMode mirrors the node's repeat setting.
type RepeatMode string

const (
	RepeatOff   RepeatMode = "off"
	RepeatTrack RepeatMode = "track"
	RepeatQueue RepeatMode = "queue"
)

// Track is one playable item. Immutable once enqueued.
type Track struct {
	Title       string
	Artist      string
	Duration    time.Duration
	URI         string
	RequesterID string

	// Encoded is the node's opaque playback handle.
	Encoded string
}

// SearchResult is what the node returned for a query. PlaylistName is
// non-empty when the query resolved to a whole playlist.
type SearchResult struct {
	Tracks       []Track
	PlaylistName string
}

// IsPlaylist reports whether the result should be enqueued as a whole.
func (r *SearchResult) IsPlaylist() bool {
	return r.PlaylistName != ""
}

// Manager is the control surface of the audio node. Every call that
// reaches the node takes a context and returns the node's verdict;
// callers must not mutate their own state until the call succeeds.
type Manager interface {
	// Connect joins the given voice channel for the guild.
	Connect(ctx context.Context, guildID, voiceChannelID string) error

	// Destroy tears down the guild's player and leaves voice.
	Destroy(ctx context.Context, guildID string) error

	// Search resolves a free-text query or URL into tracks.
	Search(ctx context.Context, query, requesterID string) (*SearchResult, error)

	// Enqueue appends tracks to the node-side queue.
	Enqueue(ctx context.Context, guildID string, tracks []Track) error

	// Play starts playback of the queue head.
	Play(ctx context.Context, guildID string) error

	Pause(ctx context.Context, guildID string) error
	Resume(ctx context.Context, guildID string) error

	// Skip advances to the next queued track.
	Skip(ctx context.Context, guildID string) error

	// Stop halts playback and clears the node-side queue.
	Stop(ctx context.Context, guildID string) error

	// SetRepeatMode sets the node's repeat policy; the node owns loop
	// continuation from then on.
	SetRepeatMode(ctx context.Context, guildID string, mode RepeatMode) error

	// Events is the node's lifecycle notification stream.
	Events() <-chan Event
}
