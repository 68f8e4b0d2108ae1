package music

import (
	"context"
	"errors"
	"testing"
)

func TestSessionRegistry_AtMostOnePerGuild(t *testing.T) {
	reg := NewSessionRegistry(newFakeManager())
	ctx := context.Background()

	if _, err := reg.Create(ctx, "g1", "voice", "text"); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	if _, err := reg.Create(ctx, "g1", "voice", "text"); !errors.Is(err, ErrAlreadyConnected) {
		t.Errorf("second Create = %v, want ErrAlreadyConnected", err)
	}
	if reg.Count() != 1 {
		t.Errorf("session count = %d, want 1", reg.Count())
	}
}

func TestSessionRegistry_CreateFailsWhenConnectFails(t *testing.T) {
	mgr := newFakeManager()
	mgr.connectErr = errors.New("node down")
	reg := NewSessionRegistry(mgr)

	if _, err := reg.Create(context.Background(), "g1", "voice", "text"); err == nil {
		t.Fatal("Create succeeded despite connect failure")
	}
	if _, ok := reg.Get("g1"); ok {
		t.Error("session exists after failed connect")
	}
}

func TestSessionRegistry_DestroyIdempotent(t *testing.T) {
	reg := NewSessionRegistry(newFakeManager())
	ctx := context.Background()

	if err := reg.Destroy(ctx, "missing"); err != nil {
		t.Errorf("Destroy of absent session = %v, want nil", err)
	}

	if _, err := reg.Create(ctx, "g1", "voice", "text"); err != nil {
		t.Fatal(err)
	}
	if err := reg.Destroy(ctx, "g1"); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}
	if _, ok := reg.Get("g1"); ok {
		t.Error("session still present after Destroy")
	}
	if err := reg.Destroy(ctx, "g1"); err != nil {
		t.Errorf("repeated Destroy = %v, want nil", err)
	}
}

func TestSessionRegistry_DestroyKeepsSessionOnNodeFailure(t *testing.T) {
	mgr := newFakeManager()
	reg := NewSessionRegistry(mgr)
	ctx := context.Background()

	if _, err := reg.Create(ctx, "g1", "voice", "text"); err != nil {
		t.Fatal(err)
	}
	mgr.destroyErr = errors.New("node timeout")
	if err := reg.Destroy(ctx, "g1"); err == nil {
		t.Fatal("Destroy succeeded despite node failure")
	}
	if _, ok := reg.Get("g1"); !ok {
		t.Error("session removed despite failed node destroy")
	}
}

func TestSession_AdvanceAndReset(t *testing.T) {
	a, b := testTrack(1), testTrack(2)
	sess := &Session{GuildID: "g1"}
	sess.Queue = append(sess.Queue, a, b)

	sess.Advance()
	if sess.Current == nil || sess.Current.URI != a.URI {
		t.Fatalf("Current = %+v, want track %q", sess.Current, a.URI)
	}
	if sess.State != StatePlaying {
		t.Errorf("state = %v, want playing", sess.State)
	}
	if len(sess.Queue) != 1 || sess.Queue[0].URI != b.URI {
		t.Errorf("queue = %+v, want [%q]", sess.Queue, b.URI)
	}

	sess.Reset()
	if sess.Current != nil || sess.State != StateIdle || len(sess.Queue) != 0 {
		t.Errorf("after Reset: current=%v state=%v queue=%d, want nil/idle/0", sess.Current, sess.State, len(sess.Queue))
	}
}
