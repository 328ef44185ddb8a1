package daemon

import (
	"time"

	"github.com/jfmyers9/trackpresence/internal/music"
)

// lastState is the state most recently accepted by Discord and when it
// was observed. The zero value holds Stopped.
type lastState struct {
	state      music.State
	observedAt time.Time
	tolerance  time.Duration
}

// Changed reports whether next, observed at now, differs from the stored
// state. With a zero tolerance this is plain equality. Otherwise a
// Playing track that differs only in position is unchanged while the
// position stays within tolerance of where the stored track should be
// by now.
func (l *lastState) Changed(next music.State, now time.Time) bool {
	if l.state.Equal(next) {
		return false
	}
	if l.tolerance <= 0 {
		return true
	}

	prev, ok := l.state.Track()
	if !ok {
		return true
	}
	cur, ok := next.Track()
	if !ok || prev.Position == nil || cur.Position == nil {
		return true
	}

	// Compare everything but the position.
	moved := cur
	moved.Position = prev.Position
	if !prev.Equal(moved) {
		return true
	}

	predicted := *prev.Position
	if !prev.Paused {
		predicted += now.Sub(l.observedAt)
	}
	drift := *cur.Position - predicted
	if drift < 0 {
		drift = -drift
	}
	return drift > l.tolerance
}

// Set stores next as observed at now.
func (l *lastState) Set(next music.State, now time.Time) {
	l.state = next
	l.observedAt = now
}
