package music

import "errors"

// Sentinel errors surfaced by playback operations. The command layer maps
// these to user-facing reply text; anything else is treated as an external
// service failure.
var (
	ErrAlreadyConnected = errors.New("already connected to a voice channel")
	ErrNotConnected     = errors.New("not connected to a voice channel")
	ErrNoVoiceChannel   = errors.New("requester is not in a voice channel")
	ErrEmptyQuery       = errors.New("empty query")
	ErrNoResults        = errors.New("no results")
	ErrNothingPlaying   = errors.New("nothing is playing")
	ErrAlreadyPaused    = errors.New("playback is already paused")
	ErrNotPaused        = errors.New("playback is not paused")
	ErrInvalidLoopMode  = errors.New("invalid loop mode")
)
