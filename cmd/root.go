/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>

*/
package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jfmyers9/trackpresence/internal/config"
	"github.com/jfmyers9/trackpresence/internal/daemon"
	"github.com/jfmyers9/trackpresence/internal/discord"
	"github.com/jfmyers9/trackpresence/internal/music"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// rootCmd runs the daemon when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "trackpresence",
	Short: "Show the playing track as Discord Rich Presence",
	Long: `trackpresence mirrors the locally playing media track to Discord.

It polls the configured sources (MPRIS players on Linux, Apple Music on
macOS), and whenever the playback state changes it sets a "Listening"
activity on the local Discord client, clearing it when playback stops.

If Discord is not running the daemon keeps retrying every poll_idle
seconds. Configuration is read from ~/.config/trackpresence/config.yaml,
TRACKPRESENCE_* environment variables and the flags below.

The daemon runs in the foreground and logs to stderr by default.
Use the --log-file flag to log to a file (useful for launchd).`,
	Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	SilenceUsage: true,
	RunE:         runDaemon,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.Int("poll-playing", 1, "Seconds between polls while a track is playing")
	flags.Int("poll-idle", 10, "Seconds between polls while idle, and between Discord reconnects")
	flags.StringSlice("excluded-players", nil, "Players never shown (case and spaces ignored)")
	flags.StringSlice("excluded-titles", nil, "Track titles never shown")
	flags.StringSlice("excluded-artists", nil, "Artists never shown")
	flags.StringSlice("excluded-urls", nil, "URL substrings never shown")
	flags.String("client-id", config.DefaultClientID, "Discord application client ID")
	flags.StringSlice("known-players", config.DefaultKnownPlayers, "Players with an icon in the Discord application")
	flags.StringSlice("sources", []string{"mpris"}, "Track sources in priority order ("+strings.Join(music.SourceNames(), ", ")+")")
	flags.String("position-tolerance", "0s", "Ignore position drift below this duration (0 compares exactly)")
	flags.Bool("artwork", false, "Use album artwork from the iTunes Search API as the large image")
	flags.String("log-file", "", "Log file path (default: stderr)")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := setupLogger(cfg.LogFile, cfg.LogLevel)

	logger.Info().
		Str("version", version).
		Strs("sources", cfg.Sources).
		Msg("Starting trackpresence")

	sources, err := buildSources(cfg.Sources)
	if err != nil {
		return err
	}

	ctx, cancel := daemon.SignalContext(logger)
	defer cancel()

	session, err := discord.Open(ctx, discord.NewIPCClient(), cfg, logger)
	if err != nil {
		// Interrupted before Discord ever answered
		logger.Info().Msg("Daemon stopped")
		return nil
	}

	d := daemon.New(cfg, sources, session, logger)
	if err := d.Run(ctx); err != nil {
		return fmt.Errorf("daemon error: %w", err)
	}
	return nil
}

func buildSources(names []string) ([]music.Source, error) {
	sources := make([]music.Source, 0, len(names))
	for _, name := range names {
		src, err := music.NewSource(name)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// setupLogger creates a logger with the specified configuration
func setupLogger(logFile, logLevel string) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(logLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	// Set up output
	var output *os.File
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			output = os.Stderr
		} else {
			output = f
		}
	} else {
		output = os.Stderr
	}

	logger := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	// Use pretty console output if logging to stderr
	if output == os.Stderr {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	return logger
}
