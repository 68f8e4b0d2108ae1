// Package lavalink implements the audio-node capability against a
// Lavalink v4 node: REST for control calls, a websocket for the
// lifecycle event stream. The voice handshake itself (codec work, UDP
// transport) is entirely the node's business.
package lavalink

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/kingsrock/kingsbot/internal/player"
	"github.com/kingsrock/kingsbot/internal/version"
)

// Config is the node endpoint configuration.
type Config struct {
	Host           string
	Port           int
	Password       string
	Secure         bool
	SearchPlatform string
}

func (c Config) restBase() string {
	scheme := "http"
	if c.Secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d/v4", scheme, c.Host, c.Port)
}

func (c Config) wsURL() string {
	scheme := "ws"
	if c.Secure {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s:%d/v4/websocket", scheme, c.Host, c.Port)
}

// guildState is the node-side view of one guild's player: the pending
// queue, the active track and the repeat policy. Loop continuation and
// the empty-queue idle timer live here, not in the bot core.
type guildState struct {
	voiceChannelID string
	queue          []player.Track
	current        *player.Track
	repeat         player.RepeatMode
	paused         bool

	voiceToken    string
	voiceEndpoint string
	voiceSession  string

	idleTimer *time.Timer
}

// Manager is the Lavalink client. It satisfies player.Manager.
type Manager struct {
	cfg  Config
	dg   *discordgo.Session
	http *http.Client
	log  zerolog.Logger

	events chan player.Event

	mu        sync.Mutex
	conn      *websocket.Conn
	sessionID string
	connected bool
	guilds    map[string]*guildState
}

// emptyQueueTimeout is how long an idle player survives before the node
// side tears it down.
const emptyQueueTimeout = 5 * time.Minute

func NewManager(cfg Config, dg *discordgo.Session, log zerolog.Logger) *Manager {
	return &Manager{
		cfg:    cfg,
		dg:     dg,
		http:   &http.Client{Timeout: 10 * time.Second},
		log:    log.With().Str("component", "lavalink").Logger(),
		events: make(chan player.Event, 256),
		guilds: make(map[string]*guildState),
	}
}

// Events implements player.Manager.
func (m *Manager) Events() <-chan player.Event { return m.events }

// Run maintains the websocket connection until the context ends,
// reconnecting with a fixed backoff.
func (m *Manager) Run(ctx context.Context) {
	for {
		if err := m.connect(ctx); err != nil {
			m.log.Error().Err(err).Msg("node connection failed")
			m.emit(player.Event{Kind: player.EventNodeError, Node: m.cfg.Host, Err: err})
		}

		select {
		case <-ctx.Done():
			m.close()
			return
		case <-time.After(5 * time.Second):
		}
	}
}

func (m *Manager) connect(ctx context.Context) error {
	headers := http.Header{}
	headers.Set("Authorization", m.cfg.Password)
	headers.Set("User-Id", m.dg.State.User.ID)
	headers.Set("Client-Name", fmt.Sprintf("%s/%s", version.AppName, version.AppVersion))

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, m.cfg.wsURL(), headers)
	if err != nil {
		return fmt.Errorf("dial %s: %w", m.cfg.wsURL(), err)
	}

	m.mu.Lock()
	m.conn = conn
	m.connected = true
	m.mu.Unlock()

	m.emit(player.Event{Kind: player.EventNodeConnect, Node: m.cfg.Host})
	m.log.Info().Str("node", m.cfg.Host).Msg("connected to node")

	err = m.readLoop(conn)

	m.mu.Lock()
	m.connected = false
	m.conn = nil
	m.mu.Unlock()

	m.emit(player.Event{Kind: player.EventNodeDisconnect, Node: m.cfg.Host})
	return err
}

func (m *Manager) close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	m.connected = false
}

func (m *Manager) readLoop(conn *websocket.Conn) error {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		var payload wsPayload
		if err := json.Unmarshal(message, &payload); err != nil {
			m.log.Warn().Err(err).Msg("undecodable node payload")
			continue
		}
		m.handlePayload(payload)
	}
}

type wsPayload struct {
	Op        string          `json:"op"`
	SessionID string          `json:"sessionId"`
	Type      string          `json:"type"`
	GuildID   string          `json:"guildId"`
	Track     *restTrack      `json:"track"`
	Reason    string          `json:"reason"`
	Exception *restException  `json:"exception"`
	Threshold int64           `json:"thresholdMs"`
	State     json.RawMessage `json:"state"`
}

func (m *Manager) handlePayload(p wsPayload) {
	switch p.Op {
	case "ready":
		m.mu.Lock()
		m.sessionID = p.SessionID
		m.mu.Unlock()
		m.log.Info().Str("session", p.SessionID).Msg("node session ready")
	case "playerUpdate", "stats":
		// Position/statistics updates carry nothing the bot acts on.
	case "event":
		m.handleEvent(p)
	}
}

func (m *Manager) handleEvent(p wsPayload) {
	switch p.Type {
	case "TrackStartEvent":
		m.emit(player.Event{Kind: player.EventTrackStart, GuildID: p.GuildID, Track: m.eventTrack(p)})
	case "TrackEndEvent":
		m.onTrackEnd(p)
	case "TrackExceptionEvent":
		var err error
		if p.Exception != nil {
			err = fmt.Errorf("%s", p.Exception.Message)
		}
		m.emit(player.Event{Kind: player.EventTrackError, GuildID: p.GuildID, Track: m.eventTrack(p), Err: err})
	case "TrackStuckEvent":
		m.emit(player.Event{Kind: player.EventTrackStuck, GuildID: p.GuildID, Track: m.eventTrack(p)})
	case "WebSocketClosedEvent":
		m.log.Warn().Str("guild", p.GuildID).Msg("voice websocket closed by discord")
	}
}

// eventTrack prefers the locally tracked current track (which knows its
// requester) over the payload's metadata-only copy.
func (m *Manager) eventTrack(p wsPayload) *player.Track {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gs, ok := m.guilds[p.GuildID]; ok && gs.current != nil {
		if p.Track == nil || gs.current.Encoded == p.Track.Encoded {
			cur := *gs.current
			return &cur
		}
	}
	if p.Track == nil {
		return nil
	}
	t := p.Track.toTrack("")
	return &t
}

// onTrackEnd applies the repeat policy and advances the node-side queue.
// The bot core never re-enqueues; this is the single place loop
// continuation happens.
func (m *Manager) onTrackEnd(p wsPayload) {
	ended := m.eventTrack(p)
	m.emit(player.Event{Kind: player.EventTrackEnd, GuildID: p.GuildID, Track: ended})

	// "replaced" means a skip or a new play already decided what is next;
	// "stopped" means an explicit stop. Neither auto-advances.
	if p.Reason == "replaced" || p.Reason == "stopped" || p.Reason == "cleanup" {
		return
	}

	m.mu.Lock()
	gs, ok := m.guilds[p.GuildID]
	if !ok {
		m.mu.Unlock()
		return
	}

	var next *player.Track
	switch gs.repeat {
	case player.RepeatTrack:
		next = gs.current
	case player.RepeatQueue:
		if gs.current != nil {
			gs.queue = append(gs.queue, *gs.current)
		}
		next = m.popLocked(gs)
	default:
		next = m.popLocked(gs)
	}
	gs.current = next
	m.mu.Unlock()

	if next != nil {
		if err := m.startTrack(context.Background(), p.GuildID, *next); err != nil {
			m.log.Error().Str("guild", p.GuildID).Err(err).Msg("failed to start next track")
		}
		return
	}

	m.emit(player.Event{Kind: player.EventQueueEnd, GuildID: p.GuildID})
	m.startIdleTimer(p.GuildID)
}

func (m *Manager) popLocked(gs *guildState) *player.Track {
	if len(gs.queue) == 0 {
		return nil
	}
	head := gs.queue[0]
	gs.queue = gs.queue[1:]
	return &head
}

// startIdleTimer arms the empty-queue teardown.
func (m *Manager) startIdleTimer(guildID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	gs, ok := m.guilds[guildID]
	if !ok {
		return
	}
	if gs.idleTimer != nil {
		gs.idleTimer.Stop()
	}
	gs.idleTimer = time.AfterFunc(emptyQueueTimeout, func() {
		m.log.Info().Str("guild", guildID).Msg("empty queue timeout, destroying player")
		if err := m.Destroy(context.Background(), guildID); err != nil {
			m.log.Error().Str("guild", guildID).Err(err).Msg("idle teardown failed")
		}
	})
}

func (m *Manager) stopIdleTimer(gs *guildState) {
	if gs.idleTimer != nil {
		gs.idleTimer.Stop()
		gs.idleTimer = nil
	}
}

func (m *Manager) emit(ev player.Event) {
	select {
	case m.events <- ev:
		return
	default:
	}

	// A lost destroy or move leaves a stale session behind; deliver those
	// off the hot path rather than drop them.
	if ev.Kind == player.EventPlayerDestroy || ev.Kind == player.EventPlayerMove {
		go func() { m.events <- ev }()
		return
	}
	m.log.Warn().Str("event", ev.Kind.String()).Msg("event stream full, dropping")
}
