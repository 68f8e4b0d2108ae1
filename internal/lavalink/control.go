package lavalink

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/kingsrock/kingsbot/internal/player"
)

// Connect implements player.Manager: ask the gateway to join voice and
// allocate node-side state for the guild.
func (m *Manager) Connect(ctx context.Context, guildID, voiceChannelID string) error {
	m.mu.Lock()
	if !m.connected {
		m.mu.Unlock()
		return fmt.Errorf("no available node")
	}
	m.mu.Unlock()

	if err := m.dg.ChannelVoiceJoinManual(guildID, voiceChannelID, false, true); err != nil {
		return fmt.Errorf("voice join: %w", err)
	}

	m.mu.Lock()
	gs, ok := m.guilds[guildID]
	if !ok {
		gs = &guildState{repeat: player.RepeatOff}
		m.guilds[guildID] = gs
	}
	gs.voiceChannelID = voiceChannelID
	m.mu.Unlock()
	return nil
}

// Destroy implements player.Manager: drop the node player, leave voice
// and report the destruction on the event stream.
func (m *Manager) Destroy(ctx context.Context, guildID string) error {
	path, err := m.playerPath(guildID)
	if err == nil {
		if err := m.request(ctx, http.MethodDelete, path, nil, nil); err != nil {
			m.log.Warn().Str("guild", guildID).Err(err).Msg("node player delete failed")
		}
	}

	if err := m.dg.ChannelVoiceJoinManual(guildID, "", false, true); err != nil {
		return fmt.Errorf("voice leave: %w", err)
	}

	m.mu.Lock()
	if gs, ok := m.guilds[guildID]; ok {
		m.stopIdleTimer(gs)
		delete(m.guilds, guildID)
	}
	m.mu.Unlock()

	m.emit(player.Event{Kind: player.EventPlayerDestroy, GuildID: guildID})
	return nil
}

// Enqueue implements player.Manager.
func (m *Manager) Enqueue(ctx context.Context, guildID string, tracks []player.Track) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	gs, ok := m.guilds[guildID]
	if !ok {
		return fmt.Errorf("no player for guild %s", guildID)
	}
	m.stopIdleTimer(gs)
	gs.queue = append(gs.queue, tracks...)
	return nil
}

// Play implements player.Manager: start the queue head if nothing is
// active yet.
func (m *Manager) Play(ctx context.Context, guildID string) error {
	m.mu.Lock()
	gs, ok := m.guilds[guildID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("no player for guild %s", guildID)
	}
	if gs.current != nil {
		m.mu.Unlock()
		return nil
	}
	next := m.popLocked(gs)
	gs.current = next
	m.mu.Unlock()

	if next == nil {
		return fmt.Errorf("queue is empty")
	}
	return m.startTrack(ctx, guildID, *next)
}

func (m *Manager) startTrack(ctx context.Context, guildID string, t player.Track) error {
	return m.updatePlayer(ctx, guildID, map[string]any{
		"track": map[string]any{"encoded": t.Encoded},
	})
}

// Pause implements player.Manager.
func (m *Manager) Pause(ctx context.Context, guildID string) error {
	return m.setPaused(ctx, guildID, true)
}

// Resume implements player.Manager.
func (m *Manager) Resume(ctx context.Context, guildID string) error {
	return m.setPaused(ctx, guildID, false)
}

func (m *Manager) setPaused(ctx context.Context, guildID string, paused bool) error {
	if err := m.updatePlayer(ctx, guildID, map[string]any{"paused": paused}); err != nil {
		return err
	}
	m.mu.Lock()
	if gs, ok := m.guilds[guildID]; ok {
		gs.paused = paused
	}
	m.mu.Unlock()
	return nil
}

// Skip implements player.Manager: replace the active track with the next
// queued one. The TrackEndEvent arrives with reason "replaced", so no
// auto-advance fires on top of this.
func (m *Manager) Skip(ctx context.Context, guildID string) error {
	m.mu.Lock()
	gs, ok := m.guilds[guildID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("no player for guild %s", guildID)
	}
	next := m.popLocked(gs)
	gs.current = next
	m.mu.Unlock()

	if next == nil {
		return m.Stop(ctx, guildID)
	}
	return m.startTrack(ctx, guildID, *next)
}

// Stop implements player.Manager: halt playback and clear the queue.
// A stopped player is idle, so the empty-queue teardown timer starts
// counting from here too.
func (m *Manager) Stop(ctx context.Context, guildID string) error {
	if err := m.updatePlayer(ctx, guildID, map[string]any{
		"track": map[string]any{"encoded": nil},
	}); err != nil {
		return err
	}

	m.mu.Lock()
	if gs, ok := m.guilds[guildID]; ok {
		gs.queue = nil
		gs.current = nil
		gs.paused = false
	}
	m.mu.Unlock()

	m.startIdleTimer(guildID)
	return nil
}

// SetRepeatMode implements player.Manager. Repeat is applied locally at
// track-end time; the node itself has no repeat setting.
func (m *Manager) SetRepeatMode(ctx context.Context, guildID string, mode player.RepeatMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	gs, ok := m.guilds[guildID]
	if !ok {
		gs = &guildState{}
		m.guilds[guildID] = gs
	}
	gs.repeat = mode
	return nil
}

// OnVoiceServerUpdate forwards the gateway's voice credentials to the
// node; playback cannot start before the node has them.
func (m *Manager) OnVoiceServerUpdate(s *discordgo.Session, v *discordgo.VoiceServerUpdate) {
	m.mu.Lock()
	gs, ok := m.guilds[v.GuildID]
	if !ok {
		m.mu.Unlock()
		return
	}
	gs.voiceToken = v.Token
	gs.voiceEndpoint = v.Endpoint
	session := gs.voiceSession
	m.mu.Unlock()

	if session == "" {
		return
	}
	m.pushVoiceUpdate(v.GuildID, v.Token, v.Endpoint, session)
}

// OnVoiceStateUpdate tracks the bot's own voice session and surfaces
// moves and forced disconnects as player events.
func (m *Manager) OnVoiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if v.UserID != s.State.User.ID {
		return
	}

	m.mu.Lock()
	gs, ok := m.guilds[v.GuildID]
	if !ok {
		m.mu.Unlock()
		return
	}

	if v.ChannelID == "" {
		m.mu.Unlock()
		m.emit(player.Event{Kind: player.EventPlayerMove, GuildID: v.GuildID, NewChannelID: ""})
		return
	}

	moved := gs.voiceChannelID != "" && gs.voiceChannelID != v.ChannelID
	gs.voiceChannelID = v.ChannelID
	gs.voiceSession = v.SessionID
	token, endpoint := gs.voiceToken, gs.voiceEndpoint
	m.mu.Unlock()

	if token != "" && endpoint != "" {
		m.pushVoiceUpdate(v.GuildID, token, endpoint, v.SessionID)
	}
	if moved {
		m.emit(player.Event{Kind: player.EventPlayerMove, GuildID: v.GuildID, NewChannelID: v.ChannelID})
	}
}

func (m *Manager) pushVoiceUpdate(guildID, token, endpoint, sessionID string) {
	err := m.updatePlayer(context.Background(), guildID, map[string]any{
		"voice": map[string]any{
			"token":     token,
			"endpoint":  endpoint,
			"sessionId": sessionID,
		},
	})
	if err != nil {
		m.log.Error().Str("guild", guildID).Err(err).Msg("failed to push voice update")
	}
}
