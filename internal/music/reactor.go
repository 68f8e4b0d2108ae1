package music

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kingsrock/kingsbot/internal/player"
)

// Notifier posts user-facing status text to a channel. The discord layer
// implements it; tests record the calls.
type Notifier interface {
	Notify(channelID, message string)
}

// Reactor consumes the node's lifecycle stream and keeps local state
// consistent with what the node actually did. It is the only writer of
// session state outside the playback operations.
type Reactor struct {
	registry *SessionRegistry
	loops    *LoopStore
	manager  player.Manager
	notifier Notifier
	log      zerolog.Logger
}

func NewReactor(registry *SessionRegistry, loops *LoopStore, manager player.Manager, notifier Notifier, log zerolog.Logger) *Reactor {
	return &Reactor{
		registry: registry,
		loops:    loops,
		manager:  manager,
		notifier: notifier,
		log:      log.With().Str("component", "reactor").Logger(),
	}
}

// Run consumes events until the stream closes or the context ends.
func (r *Reactor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-r.manager.Events():
			if !ok {
				return
			}
			r.Handle(ctx, ev)
		}
	}
}

// Handle processes a single event. A panicking handler must not take the
// stream down with it.
func (r *Reactor) Handle(ctx context.Context, ev player.Event) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().Str("event", ev.Kind.String()).Str("guild", ev.GuildID).
				Interface("panic", rec).Msg("event handler panicked")
		}
	}()

	switch ev.Kind {
	case player.EventTrackStart:
		r.onTrackStart(ev)
	case player.EventTrackEnd:
		r.onTrackEnd(ev)
	case player.EventTrackError:
		r.onTrackError(ev)
	case player.EventTrackStuck:
		r.onTrackStuck(ctx, ev)
	case player.EventQueueEnd:
		r.onQueueEnd(ev)
	case player.EventPlayerMove:
		r.onPlayerMove(ctx, ev)
	case player.EventPlayerDestroy:
		r.onPlayerDestroy(ev)
	case player.EventNodeConnect:
		r.log.Info().Str("node", ev.Node).Msg("node connected")
	case player.EventNodeDisconnect:
		r.log.Warn().Str("node", ev.Node).Msg("node disconnected")
	case player.EventNodeError:
		r.log.Error().Str("node", ev.Node).Err(ev.Err).Msg("node error")
	}
}

func (r *Reactor) onTrackStart(ev player.Event) {
	sess, ok := r.registry.Get(ev.GuildID)
	if !ok || ev.Track == nil {
		return
	}

	lock := r.registry.GuildLock(ev.GuildID)
	lock.Lock()
	// The node may have advanced on its own (auto-advance after track
	// end); keep the local queue in lockstep.
	if len(sess.Queue) > 0 && sess.Queue[0].URI == ev.Track.URI {
		sess.Queue = sess.Queue[1:]
	}
	sess.Current = ev.Track
	sess.State = StatePlaying
	lock.Unlock()

	r.notifier.Notify(sess.TextChannelID, fmt.Sprintf("🎵 Now playing: %s", TrackLine(*ev.Track)))
}

func (r *Reactor) onTrackEnd(ev player.Event) {
	// Loop continuation belongs to the node's repeat setting; locally we
	// only record history for queue-loop restoration.
	if ev.Track != nil && r.loops.Mode(ev.GuildID) == LoopQueue {
		r.loops.RecordPlayed(ev.GuildID, *ev.Track)
	}
	r.log.Debug().Str("guild", ev.GuildID).Msg("track ended")
}

func (r *Reactor) onTrackError(ev player.Event) {
	sess, ok := r.registry.Get(ev.GuildID)
	if !ok {
		return
	}

	msg := "❌ Something went wrong playing that track."
	if ev.Track != nil {
		msg = fmt.Sprintf("❌ Failed to play %s", TrackLine(*ev.Track))
	}
	if ev.Err != nil {
		msg += fmt.Sprintf(" (%v)", ev.Err)
	}
	r.notifier.Notify(sess.TextChannelID, msg)
	r.log.Error().Str("guild", ev.GuildID).Err(ev.Err).Msg("track error")
}

func (r *Reactor) onTrackStuck(ctx context.Context, ev player.Event) {
	sess, ok := r.registry.Get(ev.GuildID)
	if !ok {
		return
	}

	if ev.Track != nil {
		r.notifier.Notify(sess.TextChannelID, fmt.Sprintf("⚠️ %s got stuck, skipping it.", TrackLine(*ev.Track)))
	} else {
		r.notifier.Notify(sess.TextChannelID, "⚠️ Track got stuck, skipping it.")
	}

	lock := r.registry.GuildLock(ev.GuildID)
	lock.Lock()
	defer lock.Unlock()

	// Mirror the skip command: with nothing queued behind the stuck
	// track, stop outright so the session does not stay playing forever.
	if len(sess.Queue) == 0 {
		if err := r.manager.Stop(ctx, ev.GuildID); err != nil {
			r.log.Error().Str("guild", ev.GuildID).Err(err).Msg("failed to stop after stuck track")
			return
		}
		sess.Reset()
		return
	}

	if err := r.manager.Skip(ctx, ev.GuildID); err != nil {
		r.log.Error().Str("guild", ev.GuildID).Err(err).Msg("failed to skip stuck track")
	}
}

func (r *Reactor) onQueueEnd(ev player.Event) {
	sess, ok := r.registry.Get(ev.GuildID)
	if !ok {
		return
	}

	lock := r.registry.GuildLock(ev.GuildID)
	lock.Lock()
	sess.Reset()
	lock.Unlock()

	r.notifier.Notify(sess.TextChannelID, "✅ Queue finished! Add more songs or I'll leave in 5 minutes.")
}

func (r *Reactor) onPlayerMove(ctx context.Context, ev player.Event) {
	sess, ok := r.registry.Get(ev.GuildID)
	if !ok {
		return
	}

	lock := r.registry.GuildLock(ev.GuildID)
	lock.Lock()
	defer lock.Unlock()

	if ev.NewChannelID == "" {
		// Force-disconnected from voice; drop the session so local state
		// matches the actual connection.
		if err := r.registry.Destroy(ctx, ev.GuildID); err != nil {
			r.log.Error().Str("guild", ev.GuildID).Err(err).Msg("failed to destroy moved player")
			r.registry.Remove(ev.GuildID)
		}
		r.loops.Clear(ev.GuildID)
		return
	}
	sess.VoiceChannelID = ev.NewChannelID
}

func (r *Reactor) onPlayerDestroy(ev player.Event) {
	r.registry.Remove(ev.GuildID)
	r.loops.Clear(ev.GuildID)
	r.log.Info().Str("guild", ev.GuildID).Msg("player destroyed")
}
