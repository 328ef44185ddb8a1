package music

import (
	"context"
	"fmt"
	"slices"
	"time"
)

// Track is a snapshot of one observed playback moment.
type Track struct {
	Player   string         // Identity of the media application
	Title    string         // Track title
	URL      string         // Locator, empty if unknown
	Artists  []string       // Artist names in display order; sources report none as nil, and Equal treats nil and empty alike
	Position *time.Duration // Elapsed time into the track, nil if unknown
	Length   *time.Duration // Total track length, nil if unknown
	Paused   bool
}

// Equal reports whether two snapshots match field by field.
func (t Track) Equal(o Track) bool {
	return t.Player == o.Player &&
		t.Title == o.Title &&
		t.URL == o.URL &&
		slices.Equal(t.Artists, o.Artists) &&
		durationEqual(t.Position, o.Position) &&
		durationEqual(t.Length, o.Length) &&
		t.Paused == o.Paused
}

func durationEqual(a, b *time.Duration) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Source reports the currently active track of some media subsystem.
type Source interface {
	// Name identifies the source in logs and configuration
	Name() string

	// CurrentTrack returns the active track, or nil if nothing is playing
	CurrentTrack(ctx context.Context) (*Track, error)
}

// NewSource builds the source registered under name.
func NewSource(name string) (Source, error) {
	switch name {
	case "mpris":
		return NewMprisSource(), nil
	case "applemusic":
		return NewAppleScriptSource(), nil
	default:
		return nil, fmt.Errorf("unknown source %q", name)
	}
}

// SourceNames lists the names accepted by NewSource.
func SourceNames() []string {
	return []string{"mpris", "applemusic"}
}

func durationPtr(d time.Duration) *time.Duration {
	return &d
}
