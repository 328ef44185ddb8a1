package discord

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/trackpresence/internal/config"
	"github.com/jfmyers9/trackpresence/internal/music"
)

// Transport is the wire client a Session drives. Any error leaves the
// connection unusable until Reconnect succeeds.
type Transport interface {
	Connect(appID string) error
	SetActivity(Activity) error
	ClearActivity() error
	Reconnect() error
	Close() error
}

// Session owns the single connection to Discord and its retry policy.
// Failed connects and reconnects are retried every PollIdle, forever.
type Session struct {
	transport  Transport
	cfg        *config.Config
	logger     zerolog.Logger
	retryDelay time.Duration
	sleep      func(context.Context, time.Duration) error
	now        func() time.Time
	artwork    *artworkLookup
}

func newSession(transport Transport, cfg *config.Config, logger zerolog.Logger) *Session {
	s := &Session{
		transport:  transport,
		cfg:        cfg,
		logger:     logger.With().Str("component", "discord").Logger(),
		retryDelay: cfg.PollIdle,
		sleep:      wait,
		now:        time.Now,
	}
	if cfg.Artwork {
		s.artwork = newArtworkLookup()
	}
	return s
}

// Open connects transport to Discord, blocking until the handshake
// succeeds or ctx is cancelled.
func Open(ctx context.Context, transport Transport, cfg *config.Config, logger zerolog.Logger) (*Session, error) {
	s := newSession(transport, cfg, logger)
	if err := s.connect(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) connect(ctx context.Context) error {
	for {
		s.logger.Info().Msg("Connecting to Discord")
		err := s.transport.Connect(s.cfg.ClientID)
		if err == nil {
			s.logger.Info().Msg("Connected to Discord")
			return nil
		}
		s.logger.Warn().Err(err).Dur("retry_in", s.retryDelay).Msg("Failed to connect to Discord")
		if err := s.sleep(ctx, s.retryDelay); err != nil {
			return err
		}
	}
}

// Update sends the activity for state, or clears it when nothing is
// playing or the track is excluded. Sending the same state twice is
// harmless.
func (s *Session) Update(state music.State) error {
	track, ok := state.Track()
	if !ok || s.cfg.Excluded(track) {
		return s.transport.ClearActivity()
	}

	activity := BuildActivity(track, s.cfg, s.now())
	if s.artwork != nil && len(track.Artists) > 0 {
		if art := s.artwork.Lookup(track.Artists[0], track.Title); art != "" {
			activity.Assets.LargeImage = art
		}
	}
	return s.transport.SetActivity(activity)
}

// EnsureUpdate calls Update until Discord accepts it. After each failure
// it reconnects, retrying every PollIdle, and then starts the update
// over. It only gives up when ctx is cancelled.
func (s *Session) EnsureUpdate(ctx context.Context, state music.State) error {
	for {
		err := s.Update(state)
		if err == nil {
			return nil
		}
		s.logger.Warn().Err(err).Stringer("state", state).Msg("Failed to update activity")

		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := s.Reconnect()
			if err == nil {
				break
			}
			s.logger.Warn().Err(err).Dur("retry_in", s.retryDelay).Msg("Failed to reconnect to Discord")
			if err := s.sleep(ctx, s.retryDelay); err != nil {
				return err
			}
		}
	}
}

// Reconnect re-establishes the connection in place. The last activity
// is not resent.
func (s *Session) Reconnect() error {
	s.logger.Info().Msg("Reconnecting to Discord")
	if err := s.transport.Reconnect(); err != nil {
		return err
	}
	s.logger.Info().Msg("Reconnected to Discord")
	return nil
}

// Close clears the activity, best effort, and closes the connection.
func (s *Session) Close() error {
	if err := s.transport.ClearActivity(); err != nil {
		s.logger.Debug().Err(err).Msg("Failed to clear activity")
	}
	return s.transport.Close()
}

// wait sleeps for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
