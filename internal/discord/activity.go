package discord

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jfmyers9/trackpresence/internal/config"
	"github.com/jfmyers9/trackpresence/internal/music"
)

// Activity types sent via Discord Rich Presence.
const (
	ActivityListening = 2

	// StatusDisplayDetails shows the details line in the member list
	// instead of the application name.
	StatusDisplayDetails = 2
)

// Discord rejects text fields outside these bounds.
const (
	minFieldLen = 2
	maxFieldLen = 128
)

// Activity is the Rich Presence payload.
type Activity struct {
	Type              int         `json:"type"`
	StatusDisplayType int         `json:"status_display_type"`
	Details           string      `json:"details,omitempty"`
	DetailsURL        string      `json:"details_url,omitempty"`
	State             string      `json:"state,omitempty"`
	Timestamps        *Timestamps `json:"timestamps,omitempty"`
	Assets            *Assets     `json:"assets,omitempty"`
	Instance          bool        `json:"instance"`
}

// Timestamps are Unix seconds.
type Timestamps struct {
	Start *int64 `json:"start,omitempty"`
	End   *int64 `json:"end,omitempty"`
}

type Assets struct {
	LargeImage string `json:"large_image,omitempty"`
	LargeText  string `json:"large_text,omitempty"`
	SmallImage string `json:"small_image,omitempty"`
	SmallText  string `json:"small_text,omitempty"`
}

// BuildActivity maps a track to the activity shown for it at time now.
func BuildActivity(track music.Track, cfg *config.Config, now time.Time) Activity {
	a := Activity{
		Type:              ActivityListening,
		StatusDisplayType: StatusDisplayDetails,
		Details:           fitField(track.Title),
		DetailsURL:        track.URL,
		Assets: &Assets{
			LargeImage: config.FallbackImage,
			SmallImage: cfg.PlayerImage(track.Player),
			SmallText:  fitField(track.Player),
		},
		Timestamps: buildTimestamps(track, now),
	}
	if len(track.Artists) > 0 {
		a.State = fitField(strings.Join(track.Artists, ", "))
	}
	return a
}

// buildTimestamps reconstructs when the track started and will end from
// its elapsed position. Returns nil for paused tracks, unknown position
// or length, and values that cannot be represented.
func buildTimestamps(track music.Track, now time.Time) *Timestamps {
	if track.Paused || track.Position == nil || track.Length == nil {
		return nil
	}
	position, length := *track.Position, *track.Length
	if position < 0 || length < 0 {
		return nil
	}

	start := now.Add(-position)
	if start.Before(time.Unix(0, 0)) {
		return nil
	}
	// Add saturates at the largest representable time.
	end := start.Add(length)
	if end.Sub(start) != length {
		return nil
	}

	startUnix, endUnix := start.Unix(), end.Unix()
	return &Timestamps{Start: &startUnix, End: &endUnix}
}

// fitField pads s with NUL characters or truncates it so Discord accepts it.
func fitField(s string) string {
	if n := utf8.RuneCountInString(s); n < minFieldLen {
		return s + strings.Repeat("\x00", minFieldLen-n)
	}
	if utf8.RuneCountInString(s) > maxFieldLen {
		runes := []rune(s)
		return string(runes[:maxFieldLen-1]) + "…"
	}
	return s
}
