package music

import (
	"fmt"
	"strings"
	"time"

	"github.com/kingsrock/kingsbot/internal/player"
)

// queueDisplayLimit caps how many upcoming tracks the queue view lists.
const queueDisplayLimit = 10

// FormatDuration renders a track length as m:ss.
func FormatDuration(d time.Duration) string {
	total := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// RenderQueue builds the queue view: loop mode, now playing, then up to
// ten upcoming tracks with a truncation note. Returns false when there is
// nothing playing and nothing queued.
func RenderQueue(sess *Session, mode LoopMode) (string, bool) {
	if sess.Current == nil && len(sess.Queue) == 0 {
		return "", false
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Loop mode: %s\n\n", mode.Display())

	if sess.Current != nil {
		cur := sess.Current
		fmt.Fprintf(&b, "**🎵 Now Playing:**\n%s by %s\n", cur.Title, cur.Artist)
		fmt.Fprintf(&b, "Duration: %s | Requested by: <@%s>\n\n", FormatDuration(cur.Duration), cur.RequesterID)
	}

	if len(sess.Queue) > 0 {
		b.WriteString("**📋 Queue:**\n")
		for i, t := range sess.Queue {
			if i == queueDisplayLimit {
				break
			}
			fmt.Fprintf(&b, "%d. %s by %s [%s]\n", i+1, t.Title, t.Artist, FormatDuration(t.Duration))
		}
		if extra := len(sess.Queue) - queueDisplayLimit; extra > 0 {
			fmt.Fprintf(&b, "\n...and **%d** more", extra)
		}
	}

	return b.String(), true
}

// TrackLine is the short "title by artist" form used in replies.
func TrackLine(t player.Track) string {
	return fmt.Sprintf("**%s** by **%s**", t.Title, t.Artist)
}
