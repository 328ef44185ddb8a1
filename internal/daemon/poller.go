package daemon

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/trackpresence/internal/music"
)

// pollTimeout bounds one pass over all sources.
const pollTimeout = 5 * time.Second

// Poller derives the playback state from the configured sources
type Poller struct {
	sources []music.Source
	timeout time.Duration
	logger  zerolog.Logger
}

// NewPoller creates a Poller that asks sources in priority order
func NewPoller(sources []music.Source, logger zerolog.Logger) *Poller {
	return &Poller{
		sources: sources,
		timeout: pollTimeout,
		logger:  logger.With().Str("component", "poller").Logger(),
	}
}

// Poll returns the current state. A source that errors or times out
// counts as having no track.
func (p *Poller) Poll(ctx context.Context) music.State {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	state := music.DeriveState(ctx, p.sources, p.logger)
	if track, ok := state.Track(); ok {
		p.logger.Debug().
			Str("player", track.Player).
			Str("title", track.Title).
			Bool("paused", track.Paused).
			Msg("Poll update")
	}
	return state
}
