package music

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/kingsrock/kingsbot/internal/player"
)

func newTestOps() (*Operations, *fakeManager) {
	mgr := newFakeManager()
	reg := NewSessionRegistry(mgr)
	return NewOperations(reg, NewLoopStore(), mgr, zerolog.Nop()), mgr
}

func TestJoin_RequiresVoiceChannel(t *testing.T) {
	ops, _ := newTestOps()
	if _, err := ops.Join(context.Background(), "g1", "", "text"); !errors.Is(err, ErrNoVoiceChannel) {
		t.Errorf("Join without voice = %v, want ErrNoVoiceChannel", err)
	}
}

func TestJoin_CreatesIdleSession(t *testing.T) {
	ops, _ := newTestOps()
	sess, err := ops.Join(context.Background(), "g1", "voice", "text")
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if sess.State != StateIdle {
		t.Errorf("state = %v, want idle", sess.State)
	}
	if _, err := ops.Join(context.Background(), "g1", "voice", "text"); !errors.Is(err, ErrAlreadyConnected) {
		t.Errorf("second Join = %v, want ErrAlreadyConnected", err)
	}
}

func TestLeave_RequiresSession(t *testing.T) {
	ops, _ := newTestOps()
	if err := ops.Leave(context.Background(), "g1"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Leave = %v, want ErrNotConnected", err)
	}
}

func TestLeave_ClearsLoopPolicy(t *testing.T) {
	ops, _ := newTestOps()
	ctx := context.Background()
	if _, err := ops.Join(ctx, "g1", "voice", "text"); err != nil {
		t.Fatal(err)
	}
	if _, err := ops.SetLoop(ctx, "g1", "queue"); err != nil {
		t.Fatal(err)
	}

	if err := ops.Leave(ctx, "g1"); err != nil {
		t.Fatalf("Leave failed: %v", err)
	}
	if got := ops.Loops().Mode("g1"); got != LoopOff {
		t.Errorf("loop mode after Leave = %q, want off", got)
	}
}

func TestPlay_Validation(t *testing.T) {
	ops, mgr := newTestOps()
	ctx := context.Background()

	if _, err := ops.Play(ctx, "g1", "", "text", "u1", "song"); !errors.Is(err, ErrNoVoiceChannel) {
		t.Errorf("Play without voice = %v, want ErrNoVoiceChannel", err)
	}
	if _, err := ops.Play(ctx, "g1", "voice", "text", "u1", "   "); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("Play with blank query = %v, want ErrEmptyQuery", err)
	}

	mgr.searchResult = &player.SearchResult{}
	if _, err := ops.Play(ctx, "g1", "voice", "text", "u1", "obscure"); !errors.Is(err, ErrNoResults) {
		t.Errorf("Play with no results = %v, want ErrNoResults", err)
	}
}

func TestPlay_CreatesSessionAndStarts(t *testing.T) {
	ops, mgr := newTestOps()
	ctx := context.Background()
	mgr.searchResult = singleResult(1)

	res, err := ops.Play(ctx, "g1", "voice", "text", "u1", "song A")
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if !res.Started {
		t.Error("first Play did not start playback")
	}

	sess, ok := ops.Registry().Get("g1")
	if !ok {
		t.Fatal("no session after Play")
	}
	if sess.State != StatePlaying {
		t.Errorf("state = %v, want playing", sess.State)
	}
	if sess.Current == nil || sess.Current.URI != testTrack(1).URI {
		t.Errorf("current = %+v, want track 1", sess.Current)
	}
	if len(sess.Queue) != 0 {
		t.Errorf("queue length = %d, want 0", len(sess.Queue))
	}
}

func TestPlay_EnqueueDoesNotInterrupt(t *testing.T) {
	ops, mgr := newTestOps()
	ctx := context.Background()

	mgr.searchResult = singleResult(1)
	if _, err := ops.Play(ctx, "g1", "voice", "text", "u1", "song A"); err != nil {
		t.Fatal(err)
	}

	mgr.searchResult = singleResult(2)
	res, err := ops.Play(ctx, "g1", "voice", "text", "u1", "song B")
	if err != nil {
		t.Fatal(err)
	}
	if res.Started {
		t.Error("second Play restarted playback")
	}
	if got := mgr.callCount("play"); got != 1 {
		t.Errorf("play control calls = %d, want 1", got)
	}

	sess, _ := ops.Registry().Get("g1")
	if sess.Current.URI != testTrack(1).URI {
		t.Errorf("current changed to %q", sess.Current.URI)
	}
	if len(sess.Queue) != 1 || sess.Queue[0].URI != testTrack(2).URI {
		t.Errorf("queue = %+v, want [track 2]", sess.Queue)
	}
}

func TestPlay_PlaylistEnqueuesAll(t *testing.T) {
	ops, mgr := newTestOps()
	mgr.searchResult = &player.SearchResult{
		PlaylistName: "Warmup Mix",
		Tracks:       []player.Track{testTrack(1), testTrack(2), testTrack(3)},
	}

	res, err := ops.Play(context.Background(), "g1", "voice", "text", "u1", "playlist url")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Tracks) != 3 {
		t.Errorf("enqueued %d tracks, want 3", len(res.Tracks))
	}
	if res.PlaylistName != "Warmup Mix" {
		t.Errorf("playlist name = %q", res.PlaylistName)
	}

	sess, _ := ops.Registry().Get("g1")
	// Head started playing, two remain queued.
	if len(sess.Queue) != 2 {
		t.Errorf("queue length = %d, want 2", len(sess.Queue))
	}
}

func TestPlay_SearchFailureLeavesStateUntouched(t *testing.T) {
	ops, mgr := newTestOps()
	ctx := context.Background()

	mgr.searchResult = singleResult(1)
	if _, err := ops.Play(ctx, "g1", "voice", "text", "u1", "song A"); err != nil {
		t.Fatal(err)
	}

	mgr.searchErr = errors.New("node unreachable")
	if _, err := ops.Play(ctx, "g1", "voice", "text", "u1", "song B"); err == nil {
		t.Fatal("Play succeeded despite search failure")
	}

	sess, _ := ops.Registry().Get("g1")
	if len(sess.Queue) != 0 || sess.Current == nil {
		t.Errorf("state mutated by failed play: queue=%d current=%v", len(sess.Queue), sess.Current)
	}
}

func TestSkip_AdvancesToNext(t *testing.T) {
	ops, mgr := newTestOps()
	ctx := context.Background()

	mgr.searchResult = singleResult(1)
	if _, err := ops.Play(ctx, "g1", "voice", "text", "u1", "song A"); err != nil {
		t.Fatal(err)
	}
	mgr.searchResult = singleResult(2)
	if _, err := ops.Play(ctx, "g1", "voice", "text", "u1", "song B"); err != nil {
		t.Fatal(err)
	}

	res, err := ops.Skip(ctx, "g1")
	if err != nil {
		t.Fatalf("Skip failed: %v", err)
	}
	if res.Stopped {
		t.Error("Skip stopped despite queued track")
	}
	if res.Skipped.URI != testTrack(1).URI {
		t.Errorf("skipped = %q, want track 1", res.Skipped.URI)
	}

	sess, _ := ops.Registry().Get("g1")
	if sess.Current == nil || sess.Current.URI != testTrack(2).URI {
		t.Errorf("current = %+v, want track 2", sess.Current)
	}
}

func TestSkip_EmptyQueueDegradesToStop(t *testing.T) {
	ops, mgr := newTestOps()
	ctx := context.Background()

	mgr.searchResult = singleResult(1)
	if _, err := ops.Play(ctx, "g1", "voice", "text", "u1", "song A"); err != nil {
		t.Fatal(err)
	}

	res, err := ops.Skip(ctx, "g1")
	if err != nil {
		t.Fatalf("Skip failed: %v", err)
	}
	if !res.Stopped {
		t.Error("Skip with empty queue did not degrade to stop")
	}
	if got := mgr.callCount("stop"); got != 1 {
		t.Errorf("stop control calls = %d, want 1", got)
	}

	sess, _ := ops.Registry().Get("g1")
	if sess.State != StateIdle || sess.Current != nil || len(sess.Queue) != 0 {
		t.Errorf("end state = %v/%v/%d, want idle/nil/0", sess.State, sess.Current, len(sess.Queue))
	}
}

func TestSkip_NothingPlaying(t *testing.T) {
	ops, _ := newTestOps()
	ctx := context.Background()

	if _, err := ops.Skip(ctx, "g1"); !errors.Is(err, ErrNothingPlaying) {
		t.Errorf("Skip without session = %v, want ErrNothingPlaying", err)
	}

	if _, err := ops.Join(ctx, "g1", "voice", "text"); err != nil {
		t.Fatal(err)
	}
	if _, err := ops.Skip(ctx, "g1"); !errors.Is(err, ErrNothingPlaying) {
		t.Errorf("Skip while idle = %v, want ErrNothingPlaying", err)
	}
}

func TestStop_AlwaysLeavesIdleEmptyQueue(t *testing.T) {
	ops, mgr := newTestOps()
	ctx := context.Background()

	if err := ops.Stop(ctx, "g1"); !errors.Is(err, ErrNothingPlaying) {
		t.Errorf("Stop without session = %v, want ErrNothingPlaying", err)
	}

	mgr.searchResult = &player.SearchResult{
		PlaylistName: "Mix",
		Tracks:       []player.Track{testTrack(1), testTrack(2)},
	}
	if _, err := ops.Play(ctx, "g1", "voice", "text", "u1", "mix"); err != nil {
		t.Fatal(err)
	}

	if err := ops.Stop(ctx, "g1"); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	sess, _ := ops.Registry().Get("g1")
	if sess.State != StateIdle || len(sess.Queue) != 0 || sess.Current != nil {
		t.Errorf("after Stop: state=%v queue=%d current=%v", sess.State, len(sess.Queue), sess.Current)
	}
}

func TestPauseResume_StateConflicts(t *testing.T) {
	ops, mgr := newTestOps()
	ctx := context.Background()

	if err := ops.Pause(ctx, "g1"); !errors.Is(err, ErrNothingPlaying) {
		t.Errorf("Pause without session = %v, want ErrNothingPlaying", err)
	}

	mgr.searchResult = singleResult(1)
	if _, err := ops.Play(ctx, "g1", "voice", "text", "u1", "song"); err != nil {
		t.Fatal(err)
	}

	if err := ops.Resume(ctx, "g1"); !errors.Is(err, ErrNotPaused) {
		t.Errorf("Resume while playing = %v, want ErrNotPaused", err)
	}

	if err := ops.Pause(ctx, "g1"); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	sess, _ := ops.Registry().Get("g1")
	if sess.State != StatePaused {
		t.Errorf("state = %v, want paused", sess.State)
	}

	// A second pause is a reported conflict, not a state change.
	if err := ops.Pause(ctx, "g1"); !errors.Is(err, ErrAlreadyPaused) {
		t.Errorf("second Pause = %v, want ErrAlreadyPaused", err)
	}
	if sess.State != StatePaused {
		t.Errorf("state changed by failed pause: %v", sess.State)
	}

	if err := ops.Resume(ctx, "g1"); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if sess.State != StatePlaying {
		t.Errorf("state = %v, want playing", sess.State)
	}
}

func TestSetLoop_SendsRepeatModeToNode(t *testing.T) {
	ops, mgr := newTestOps()
	ctx := context.Background()

	mode, err := ops.SetLoop(ctx, "g1", "queue")
	if err != nil {
		t.Fatalf("SetLoop failed: %v", err)
	}
	if mode != LoopQueue {
		t.Errorf("mode = %q, want queue", mode)
	}
	if mgr.repeatMode != player.RepeatQueue {
		t.Errorf("node repeat mode = %q, want queue", mgr.repeatMode)
	}

	if _, err := ops.SetLoop(ctx, "g1", "sideways"); !errors.Is(err, ErrInvalidLoopMode) {
		t.Errorf("SetLoop(sideways) = %v, want ErrInvalidLoopMode", err)
	}
	if got := ops.Loops().Mode("g1"); got != LoopQueue {
		t.Errorf("mode changed by invalid token: %q", got)
	}
}

func TestSetLoop_NodeFailureLeavesModeUntouched(t *testing.T) {
	ops, mgr := newTestOps()
	mgr.repeatErr = errors.New("node gone")

	if _, err := ops.SetLoop(context.Background(), "g1", "track"); err == nil {
		t.Fatal("SetLoop succeeded despite node failure")
	}
	if got := ops.Loops().Mode("g1"); got != LoopOff {
		t.Errorf("mode = %q, want off", got)
	}
}

func TestQueueView_States(t *testing.T) {
	ops, mgr := newTestOps()
	ctx := context.Background()

	if _, _, err := ops.QueueView("g1"); !errors.Is(err, ErrNothingPlaying) {
		t.Errorf("QueueView without session = %v, want ErrNothingPlaying", err)
	}

	if _, err := ops.Join(ctx, "g1", "voice", "text"); err != nil {
		t.Fatal(err)
	}
	if _, filled, err := ops.QueueView("g1"); err != nil || filled {
		t.Errorf("QueueView of idle session = (%v, %v), want empty", filled, err)
	}

	mgr.searchResult = singleResult(1)
	if _, err := ops.Play(ctx, "g1", "voice", "text", "u1", "song"); err != nil {
		t.Fatal(err)
	}
	view, filled, err := ops.QueueView("g1")
	if err != nil || !filled {
		t.Fatalf("QueueView = (%v, %v)", filled, err)
	}
	if view == "" {
		t.Error("QueueView returned empty text for playing session")
	}
}
