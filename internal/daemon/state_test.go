package daemon

import (
	"testing"
	"time"

	"github.com/jfmyers9/trackpresence/internal/music"
)

func dur(d time.Duration) *time.Duration { return &d }

func track(title string, pos time.Duration) music.Track {
	return music.Track{
		Player:   "mpv",
		Title:    title,
		Artists:  []string{"Artist"},
		Position: dur(pos),
		Length:   dur(3 * time.Minute),
	}
}

func TestLastState_ZeroValueIsStopped(t *testing.T) {
	var l lastState
	if l.Changed(music.Stopped(), time.Now()) {
		t.Error("Stopped should equal the zero state")
	}
	if !l.Changed(music.Playing(track("Song", 0)), time.Now()) {
		t.Error("Playing should differ from the zero state")
	}
}

func TestLastState_StrictEquality(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	var l lastState
	l.Set(music.Playing(track("Song", 10*time.Second)), now)

	if l.Changed(music.Playing(track("Song", 10*time.Second)), now.Add(time.Second)) {
		t.Error("identical track reported as changed")
	}
	if !l.Changed(music.Playing(track("Song", 11*time.Second)), now.Add(time.Second)) {
		t.Error("position change must count without tolerance")
	}
}

func TestLastState_PositionTolerance(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	paused := track("Song", 10*time.Second)
	paused.Paused = true

	tests := []struct {
		name    string
		stored  music.Track
		next    music.Track
		elapsed time.Duration
		want    bool
	}{
		{"progressing normally", track("Song", 10*time.Second), track("Song", 15*time.Second), 5 * time.Second, false},
		{"small jitter", track("Song", 10*time.Second), track("Song", 16*time.Second), 5 * time.Second, false},
		{"seek forward", track("Song", 10*time.Second), track("Song", 90*time.Second), 5 * time.Second, true},
		{"seek back", track("Song", 60*time.Second), track("Song", 0), 5 * time.Second, true},
		{"paused stays put", paused, paused, 30 * time.Second, false},
		{"other field changes", track("Song", 10*time.Second), track("Other", 15*time.Second), 5 * time.Second, true},
		{"position becomes unknown", track("Song", 10*time.Second), music.Track{Player: "mpv", Title: "Song", Artists: []string{"Artist"}, Length: dur(3 * time.Minute)}, time.Second, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := lastState{tolerance: 2 * time.Second}
			l.Set(music.Playing(tt.stored), now)
			if got := l.Changed(music.Playing(tt.next), now.Add(tt.elapsed)); got != tt.want {
				t.Errorf("Changed() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLastState_PausedPredictsNoMovement(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	stored := track("Song", 10*time.Second)
	stored.Paused = true
	next := track("Song", 40*time.Second)
	next.Paused = true

	l := lastState{tolerance: 2 * time.Second}
	l.Set(music.Playing(stored), now)
	if !l.Changed(music.Playing(next), now.Add(30*time.Second)) {
		t.Error("a paused track that moved 30s should count as changed")
	}
}

func TestLastState_ToleranceIgnoresVariantChange(t *testing.T) {
	l := lastState{tolerance: time.Hour}
	l.Set(music.Playing(track("Song", 0)), time.Now())
	if !l.Changed(music.Stopped(), time.Now()) {
		t.Error("Playing to Stopped must always count as changed")
	}
}
