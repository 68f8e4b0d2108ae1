package player

// EventKind enumerates every notification the node can emit. The set is
// closed; consumers switch over it exhaustively.
type EventKind int

const (
	EventTrackStart EventKind = iota
	EventTrackEnd
	EventTrackError
	EventTrackStuck
	EventQueueEnd
	EventPlayerMove
	EventPlayerDestroy
	EventNodeConnect
	EventNodeDisconnect
	EventNodeError
)

func (k EventKind) String() string {
	switch k {
	case EventTrackStart:
		return "trackStart"
	case EventTrackEnd:
		return "trackEnd"
	case EventTrackError:
		return "trackError"
	case EventTrackStuck:
		return "trackStuck"
	case EventQueueEnd:
		return "queueEnd"
	case EventPlayerMove:
		return "playerMove"
	case EventPlayerDestroy:
		return "playerDestroy"
	case EventNodeConnect:
		return "nodeConnect"
	case EventNodeDisconnect:
		return "nodeDisconnect"
	case EventNodeError:
		return "nodeError"
	}
	return "unknown"
}

// Event is one lifecycle notification. Which fields are set depends on
// Kind; consumers must nil-check Track and Err.
type Event struct {
	Kind    EventKind
	GuildID string

	// Track accompanies trackStart/trackEnd/trackError/trackStuck.
	Track *Track

	// NewChannelID accompanies playerMove; empty means the player was
	// force-disconnected from voice.
	NewChannelID string

	// Err accompanies trackError and nodeError.
	Err error

	// Node names the node for node-level events.
	Node string
}
