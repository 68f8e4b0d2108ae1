package music

import (
	"errors"
	"testing"
)

func TestLoopMode_CycleIsDeterministic(t *testing.T) {
	store := NewLoopStore()

	want := []LoopMode{LoopTrack, LoopQueue, LoopOff, LoopTrack, LoopQueue, LoopOff}
	for i, w := range want {
		next := store.Mode("g1").Next()
		store.SetMode("g1", next)
		if next != w {
			t.Fatalf("cycle step %d = %q, want %q", i, next, w)
		}
	}
}

func TestParseLoopMode_Synonyms(t *testing.T) {
	cases := []struct {
		token string
		want  LoopMode
	}{
		{"track", LoopTrack},
		{"T", LoopTrack},
		{"song", LoopTrack},
		{"queue", LoopQueue},
		{"q", LoopQueue},
		{"ALL", LoopQueue},
		{"off", LoopOff},
		{"disable", LoopOff},
		{"none", LoopOff},
	}
	for _, c := range cases {
		got, err := ParseLoopMode(c.token)
		if err != nil {
			t.Errorf("ParseLoopMode(%q) error: %v", c.token, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseLoopMode(%q) = %q, want %q", c.token, got, c.want)
		}
	}

	if _, err := ParseLoopMode("banana"); !errors.Is(err, ErrInvalidLoopMode) {
		t.Errorf("ParseLoopMode(banana) = %v, want ErrInvalidLoopMode", err)
	}
}

func TestLoopStore_HistoryClearedOutsideQueueMode(t *testing.T) {
	store := NewLoopStore()
	store.SetMode("g1", LoopQueue)
	store.RecordPlayed("g1", testTrack(1))
	store.RecordPlayed("g1", testTrack(2))

	if got := len(store.Played("g1")); got != 2 {
		t.Fatalf("history length = %d, want 2", got)
	}

	store.SetMode("g1", LoopTrack)
	if got := len(store.Played("g1")); got != 0 {
		t.Errorf("history length after leaving queue mode = %d, want 0", got)
	}
}

func TestLoopStore_HistoryBounded(t *testing.T) {
	store := NewLoopStore()
	store.SetMode("g1", LoopQueue)
	for i := 0; i < playedHistoryLimit+5; i++ {
		store.RecordPlayed("g1", testTrack(i))
	}

	played := store.Played("g1")
	if len(played) != playedHistoryLimit {
		t.Fatalf("history length = %d, want %d", len(played), playedHistoryLimit)
	}
	// Oldest entries drop first.
	if played[0].URI != testTrack(5).URI {
		t.Errorf("oldest retained = %q, want %q", played[0].URI, testTrack(5).URI)
	}
}

func TestLoopStore_DefaultsAndClear(t *testing.T) {
	store := NewLoopStore()
	if got := store.Mode("unknown"); got != LoopOff {
		t.Errorf("Mode(unknown) = %q, want off", got)
	}

	store.SetMode("g1", LoopQueue)
	store.RecordPlayed("g1", testTrack(1))
	store.Clear("g1")

	if got := store.Mode("g1"); got != LoopOff {
		t.Errorf("Mode after Clear = %q, want off", got)
	}
	if got := len(store.Played("g1")); got != 0 {
		t.Errorf("history after Clear = %d, want 0", got)
	}
}
