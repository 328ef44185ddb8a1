package daemon

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/trackpresence/internal/config"
	"github.com/jfmyers9/trackpresence/internal/music"
)

// Presence is the Discord session the daemon drives
type Presence interface {
	EnsureUpdate(ctx context.Context, state music.State) error
	Close() error
}

// Daemon polls the sources and mirrors state changes to Discord
type Daemon struct {
	cfg      *config.Config
	poller   *Poller
	presence Presence
	last     lastState
	logger   zerolog.Logger
	sleep    func(context.Context, time.Duration) error
	now      func() time.Time
}

// New creates a new Daemon instance
func New(cfg *config.Config, sources []music.Source, presence Presence, logger zerolog.Logger) *Daemon {
	return &Daemon{
		cfg:      cfg,
		poller:   NewPoller(sources, logger),
		presence: presence,
		last:     lastState{tolerance: cfg.PositionTolerance},
		logger:   logger.With().Str("component", "daemon").Logger(),
		sleep:    wait,
		now:      time.Now,
	}
}

// SignalContext returns a context cancelled by the first SIGINT or
// SIGTERM. A second signal forces exit.
func SignalContext(logger zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sigChan:
		case <-ctx.Done():
			signal.Stop(sigChan)
			return
		}
		logger.Info().Msg("Shutdown signal received, initiating graceful shutdown")
		cancel()

		<-sigChan
		logger.Warn().Msg("Second shutdown signal received, forcing exit")
		os.Exit(1)
	}()

	return ctx, cancel
}

// Run drives the poll loop until ctx is cancelled, then closes the
// presence session.
func (d *Daemon) Run(ctx context.Context) error {
	d.logger.Info().
		Dur("poll_playing", d.cfg.PollPlaying).
		Dur("poll_idle", d.cfg.PollIdle).
		Msg("Starting daemon")

	err := d.run(ctx)

	if cerr := d.presence.Close(); cerr != nil {
		d.logger.Debug().Err(cerr).Msg("Failed to close Discord session")
	}
	d.logger.Info().Msg("Daemon stopped")

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (d *Daemon) run(ctx context.Context) error {
	for {
		state, err := d.tick(ctx)
		if err != nil {
			return err
		}
		if err := d.sleep(ctx, d.interval(state)); err != nil {
			return err
		}
	}
}

// tick runs one poll cycle and returns the state it observed.
func (d *Daemon) tick(ctx context.Context) (music.State, error) {
	state := d.poller.Poll(ctx)
	now := d.now()
	if !d.last.Changed(state, now) {
		return state, nil
	}

	d.logChange(state)
	if err := d.presence.EnsureUpdate(ctx, state); err != nil {
		return state, err
	}
	d.last.Set(state, now)
	return state, nil
}

// interval picks the wait before the next poll.
func (d *Daemon) interval(state music.State) time.Duration {
	if state.IsPlaying() {
		return d.cfg.PollPlaying
	}
	return d.cfg.PollIdle
}

func (d *Daemon) logChange(state music.State) {
	track, ok := state.Track()
	if !ok {
		d.logger.Info().Msg("Playback stopped")
		return
	}
	d.logger.Info().
		Str("player", track.Player).
		Str("title", track.Title).
		Str("artists", strings.Join(track.Artists, ", ")).
		Bool("paused", track.Paused).
		Bool("excluded", d.cfg.Excluded(track)).
		Msg("Track changed")
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
