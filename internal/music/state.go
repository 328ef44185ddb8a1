package music

import (
	"context"

	"github.com/rs/zerolog"
)

// State is either Stopped or Playing a track.
type State struct {
	track *Track
}

// Stopped returns the state with nothing playing.
func Stopped() State {
	return State{}
}

// Playing returns the state for an active track.
func Playing(t Track) State {
	return State{track: &t}
}

// Track returns the playing track and true, or false when stopped.
func (s State) Track() (Track, bool) {
	if s.track == nil {
		return Track{}, false
	}
	return *s.track, true
}

// IsPlaying reports whether the state carries a track.
func (s State) IsPlaying() bool {
	return s.track != nil
}

// Equal reports whether both states are the same variant with equal tracks.
func (s State) Equal(o State) bool {
	if s.track == nil || o.track == nil {
		return s.track == nil && o.track == nil
	}
	return s.track.Equal(*o.track)
}

// String returns a short description for logging.
func (s State) String() string {
	if s.track == nil {
		return "stopped"
	}
	return "playing"
}

// DeriveState asks each source in order and returns Playing for the first
// one that reports a track. Source errors count as no track.
func DeriveState(ctx context.Context, sources []Source, logger zerolog.Logger) State {
	for _, src := range sources {
		track, err := src.CurrentTrack(ctx)
		if err != nil {
			logger.Debug().Err(err).Str("source", src.Name()).Msg("Error getting current track")
			continue
		}
		if track != nil {
			return Playing(*track)
		}
	}
	return Stopped()
}
