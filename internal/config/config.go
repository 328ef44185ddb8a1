package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jfmyers9/trackpresence/internal/music"
)

// DefaultClientID is the Discord application that ships the player icons.
const DefaultClientID = "1457412556753994033"

// FallbackImage is the asset key used for players without a dedicated icon.
const FallbackImage = "icon"

// DefaultKnownPlayers are the players with an icon in the default application.
var DefaultKnownPlayers = []string{"Mozilla firefox", "chromium", "mpv", "VLC media player", "Spotify"}

// Config holds application configuration. It is read once at startup and
// not modified afterwards.
type Config struct {
	// Poll intervals while a track is playing and while idle
	PollPlaying time.Duration
	PollIdle    time.Duration

	// Tracks matching any of these never appear in the activity
	ExcludedPlayers []string // compared ignoring case and spaces
	ExcludedTitles  []string // exact
	ExcludedArtists []string // exact
	ExcludedURLs    []string // case-insensitive substrings

	// Discord application client ID
	ClientID string

	// Players whose normalized name is an asset key of the application
	KnownPlayers []string

	// Track sources, highest priority first
	Sources []string

	// Position drift below this is not treated as a change (0 disables)
	PositionTolerance time.Duration

	// Look up album artwork for the large image
	Artwork bool

	// Output template and fixed width for the now command
	OutputFormat string
	OutputWidth  int

	LogLevel string
	LogFile  string
}

// Load reads configuration from the config file, environment and flags.
// Flags take precedence over environment, which takes precedence over the file.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getConfigDir())
	v.AddConfigPath(".")

	v.SetDefault("poll_playing", 1)
	v.SetDefault("poll_idle", 10)
	v.SetDefault("excluded_players", []string{})
	v.SetDefault("excluded_titles", []string{})
	v.SetDefault("excluded_artists", []string{})
	v.SetDefault("excluded_urls", []string{})
	v.SetDefault("client_id", DefaultClientID)
	v.SetDefault("known_players", DefaultKnownPlayers)
	v.SetDefault("sources", []string{"mpris"})
	v.SetDefault("position_tolerance", "0s")
	v.SetDefault("artwork", false)
	v.SetDefault("output_format", `{{.Artists}} - {{.Title}}`)
	v.SetDefault("output_width", 0)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("TRACKPRESENCE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	tolerance, err := cast.ToDurationE(v.Get("position_tolerance"))
	if err != nil {
		return nil, fmt.Errorf("invalid position_tolerance: %w", err)
	}

	cfg := &Config{
		PollPlaying:       time.Duration(v.GetInt("poll_playing")) * time.Second,
		PollIdle:          time.Duration(v.GetInt("poll_idle")) * time.Second,
		ExcludedPlayers:   stringList(v, "excluded_players"),
		ExcludedTitles:    stringList(v, "excluded_titles"),
		ExcludedArtists:   stringList(v, "excluded_artists"),
		ExcludedURLs:      stringList(v, "excluded_urls"),
		ClientID:          strings.TrimSpace(v.GetString("client_id")),
		KnownPlayers:      stringList(v, "known_players"),
		Sources:           stringList(v, "sources"),
		PositionTolerance: tolerance,
		Artwork:           v.GetBool("artwork"),
		OutputFormat:      v.GetString("output_format"),
		OutputWidth:       v.GetInt("output_width"),
		LogLevel:          v.GetString("log_level"),
		LogFile:           v.GetString("log_file"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// bindFlags binds each flag to the config key of the same name with
// dashes replaced by underscores (--poll-idle -> poll_idle).
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		key := strings.ReplaceAll(f.Name, "-", "_")
		err = v.BindPFlag(key, f)
	})
	if err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}
	return nil
}

// Validate reports configuration that cannot run.
func (c *Config) Validate() error {
	if c.PollPlaying <= 0 {
		return fmt.Errorf("poll_playing must be positive, got %v", c.PollPlaying)
	}
	if c.PollIdle <= 0 {
		return fmt.Errorf("poll_idle must be positive, got %v", c.PollIdle)
	}
	if c.ClientID == "" {
		return fmt.Errorf("client_id must not be empty")
	}
	if c.PositionTolerance < 0 {
		return fmt.Errorf("position_tolerance must not be negative, got %v", c.PositionTolerance)
	}
	if len(c.Sources) == 0 {
		return fmt.Errorf("at least one source is required (available: %s)", strings.Join(music.SourceNames(), ", "))
	}
	for _, s := range c.Sources {
		if !slices.Contains(music.SourceNames(), s) {
			return fmt.Errorf("unknown source %q (available: %s)", s, strings.Join(music.SourceNames(), ", "))
		}
	}
	return nil
}

// stringList reads a list that may be given as a YAML sequence or as a
// comma-separated string (environment). Sequence entries are kept whole,
// so "Tyler, The Creator" stays one artist. Blank entries are dropped.
func stringList(v *viper.Viper, key string) []string {
	var raw []string
	switch val := v.Get(key).(type) {
	case string:
		raw = strings.Split(val, ",")
	default:
		raw = cast.ToStringSlice(val)
	}

	var out []string
	for _, entry := range raw {
		if entry = strings.TrimSpace(entry); entry != "" {
			out = append(out, entry)
		}
	}
	return out
}

// getConfigDir returns the configuration directory path
func getConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "trackpresence")
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(homeDir, ".config", "trackpresence")
}

// GetConfigDir returns the configuration directory path (public helper)
func GetConfigDir() string {
	return getConfigDir()
}
