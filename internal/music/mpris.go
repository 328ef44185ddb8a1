package music

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	mprisPrefix      = "org.mpris.MediaPlayer2."
	mprisPath        = "/org/mpris/MediaPlayer2"
	mprisIdentity    = "org.mpris.MediaPlayer2.Identity"
	mprisMetadata    = "org.mpris.MediaPlayer2.Player.Metadata"
	mprisStatus      = "org.mpris.MediaPlayer2.Player.PlaybackStatus"
	mprisPosition    = "org.mpris.MediaPlayer2.Player.Position"
	statusPlaying    = "Playing"
	statusPaused     = "Paused"
	propertiesGetter = "org.freedesktop.DBus.Properties.Get"

	maxMicroseconds = math.MaxInt64 / 1000 // largest µs value representable as time.Duration
)

// DBusClient is the subset of the session bus used by MprisSource.
type DBusClient interface {
	// ListNames returns all names on the bus
	ListNames(ctx context.Context) ([]string, error)

	// GetProperty reads a fully qualified property (interface.Name) from
	// the MPRIS object of dest
	GetProperty(ctx context.Context, dest, prop string) (dbus.Variant, error)

	Close() error
}

type sessionBus struct {
	conn *dbus.Conn
}

func dialSessionBus() (DBusClient, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, err
	}
	return &sessionBus{conn: conn}, nil
}

func (b *sessionBus) ListNames(ctx context.Context) ([]string, error) {
	var names []string
	err := b.conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.ListNames", 0).Store(&names)
	return names, err
}

func (b *sessionBus) GetProperty(ctx context.Context, dest, prop string) (dbus.Variant, error) {
	i := strings.LastIndex(prop, ".")
	if i < 0 {
		return dbus.Variant{}, fmt.Errorf("invalid property name %q", prop)
	}
	var v dbus.Variant
	err := b.conn.Object(dest, mprisPath).
		CallWithContext(ctx, propertiesGetter, 0, prop[:i], prop[i+1:]).
		Store(&v)
	return v, err
}

func (b *sessionBus) Close() error {
	return b.conn.Close()
}

// MprisSource reads the active player from the MPRIS D-Bus interface.
// The session bus connection is opened lazily and dropped when the bus
// stops answering, so a restarted bus is picked up on the next poll.
type MprisSource struct {
	dial func() (DBusClient, error)
	conn DBusClient
}

// NewMprisSource creates a source backed by the user's session bus
func NewMprisSource() *MprisSource {
	return &MprisSource{dial: dialSessionBus}
}

// Name returns the configuration name of the source
func (s *MprisSource) Name() string {
	return "mpris"
}

// CurrentTrack returns the track of the active player. Players are
// tried in order Playing, Paused, then any other; the first one exposing
// a title wins.
func (s *MprisSource) CurrentTrack(ctx context.Context) (*Track, error) {
	if s.conn == nil {
		conn, err := s.dial()
		if err != nil {
			return nil, fmt.Errorf("session bus connection failed: %w", err)
		}
		s.conn = conn
	}

	names, err := s.conn.ListNames(ctx)
	if err != nil {
		_ = s.conn.Close()
		s.conn = nil
		return nil, fmt.Errorf("failed to list bus names: %w", err)
	}

	type candidate struct {
		name, status string
	}
	var players []candidate
	for _, name := range names {
		if !strings.HasPrefix(name, mprisPrefix) {
			continue
		}
		status, err := s.conn.GetProperty(ctx, name, mprisStatus)
		if err != nil {
			continue
		}
		str, _ := status.Value().(string)
		players = append(players, candidate{name: name, status: str})
	}

	rank := func(status string) int {
		switch status {
		case statusPlaying:
			return 0
		case statusPaused:
			return 1
		default:
			return 2
		}
	}
	slices.SortStableFunc(players, func(a, b candidate) int {
		return rank(a.status) - rank(b.status)
	})

	for _, p := range players {
		if track := s.readTrack(ctx, p.name, p.status); track != nil {
			return track, nil
		}
	}
	return nil, nil
}

func (s *MprisSource) readTrack(ctx context.Context, name, status string) *Track {
	variant, err := s.conn.GetProperty(ctx, name, mprisMetadata)
	if err != nil {
		return nil
	}
	metadata, ok := variant.Value().(map[string]dbus.Variant)
	if !ok {
		return nil
	}

	identity := strings.TrimPrefix(name, mprisPrefix)
	if v, err := s.conn.GetProperty(ctx, name, mprisIdentity); err == nil {
		if str, ok := v.Value().(string); ok && str != "" {
			identity = str
		}
	}

	var position *time.Duration
	if v, err := s.conn.GetProperty(ctx, name, mprisPosition); err == nil {
		position = microseconds(v.Value())
	}

	return parseMetadata(identity, status, metadata, position)
}

// parseMetadata converts MPRIS metadata to a Track. Returns nil when the
// player exposes no title.
func parseMetadata(identity, status string, metadata map[string]dbus.Variant, position *time.Duration) *Track {
	titleVar, ok := metadata["xesam:title"]
	if !ok {
		return nil
	}
	title, ok := titleVar.Value().(string)
	if !ok {
		return nil
	}

	track := &Track{
		Player:   identity,
		Title:    title,
		Position: position,
		Paused:   status != statusPlaying,
	}

	if v, ok := metadata["xesam:url"]; ok {
		if url, ok := v.Value().(string); ok {
			track.URL = url
		}
	}

	// Some non-compliant players send a single string
	if v, ok := metadata["xesam:artist"]; ok {
		switch artists := v.Value().(type) {
		case []string:
			if len(artists) > 0 {
				track.Artists = artists
			}
		case string:
			if artists != "" {
				track.Artists = []string{artists}
			}
		}
	}

	if v, ok := metadata["mpris:length"]; ok {
		track.Length = microseconds(v.Value())
	}

	return track
}

// microseconds converts an MPRIS time value to a duration. Players
// disagree on the integer type; negative values are treated as unknown.
func microseconds(v any) *time.Duration {
	var us int64
	switch n := v.(type) {
	case int64:
		us = n
	case uint64:
		if n > maxMicroseconds {
			return nil
		}
		us = int64(n)
	case int32:
		us = int64(n)
	case uint32:
		us = int64(n)
	case float64:
		if n < 0 || n > maxMicroseconds {
			return nil
		}
		us = int64(n)
	default:
		return nil
	}
	if us < 0 || us > maxMicroseconds {
		return nil
	}
	return durationPtr(time.Duration(us) * time.Microsecond)
}
