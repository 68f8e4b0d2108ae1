package music

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kingsrock/kingsbot/internal/player"
)

// fakeManager records control calls and lets tests drive the event stream.
type fakeManager struct {
	mu     sync.Mutex
	calls  []string
	events chan player.Event

	searchResult *player.SearchResult
	searchErr    error
	connectErr   error
	enqueueErr   error
	playErr      error
	pauseErr     error
	resumeErr    error
	skipErr      error
	stopErr      error
	destroyErr   error
	repeatErr    error

	repeatMode player.RepeatMode
}

func newFakeManager() *fakeManager {
	return &fakeManager{events: make(chan player.Event, 16)}
}

func (f *fakeManager) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeManager) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (f *fakeManager) Connect(ctx context.Context, guildID, voiceChannelID string) error {
	f.record("connect")
	return f.connectErr
}

func (f *fakeManager) Destroy(ctx context.Context, guildID string) error {
	f.record("destroy")
	return f.destroyErr
}

func (f *fakeManager) Search(ctx context.Context, query, requesterID string) (*player.SearchResult, error) {
	f.record("search")
	return f.searchResult, f.searchErr
}

func (f *fakeManager) Enqueue(ctx context.Context, guildID string, tracks []player.Track) error {
	f.record("enqueue")
	return f.enqueueErr
}

func (f *fakeManager) Play(ctx context.Context, guildID string) error {
	f.record("play")
	return f.playErr
}

func (f *fakeManager) Pause(ctx context.Context, guildID string) error {
	f.record("pause")
	return f.pauseErr
}

func (f *fakeManager) Resume(ctx context.Context, guildID string) error {
	f.record("resume")
	return f.resumeErr
}

func (f *fakeManager) Skip(ctx context.Context, guildID string) error {
	f.record("skip")
	return f.skipErr
}

func (f *fakeManager) Stop(ctx context.Context, guildID string) error {
	f.record("stop")
	return f.stopErr
}

func (f *fakeManager) SetRepeatMode(ctx context.Context, guildID string, mode player.RepeatMode) error {
	f.record("setRepeatMode")
	if f.repeatErr != nil {
		return f.repeatErr
	}
	f.mu.Lock()
	f.repeatMode = mode
	f.mu.Unlock()
	return nil
}

func (f *fakeManager) Events() <-chan player.Event { return f.events }

// recordingNotifier captures every notification.
type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(channelID, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

func testTrack(n int) player.Track {
	return player.Track{
		Title:       fmt.Sprintf("Song %d", n),
		Artist:      "Artist",
		Duration:    3 * time.Minute,
		URI:         fmt.Sprintf("https://example.com/%d", n),
		RequesterID: "user-1",
		Encoded:     fmt.Sprintf("enc-%d", n),
	}
}

func singleResult(n int) *player.SearchResult {
	return &player.SearchResult{Tracks: []player.Track{testTrack(n)}}
}
