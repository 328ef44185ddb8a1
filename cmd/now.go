/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jfmyers9/trackpresence/internal/config"
	"github.com/jfmyers9/trackpresence/internal/music"
)

// nowCmd represents the now command
var nowCmd = &cobra.Command{
	Use:   "now",
	Short: "Display the currently playing track",
	Long: `Query the configured sources and display the currently playing track.

The output format can be customized in ~/.config/trackpresence/config.yaml
using a Go template. Available fields: .Player, .Title, .Artists, .URL,
.Position, .Length, .Paused

Exit codes:
  0 - Track is playing or paused
  1 - No track, or no source available`,
	RunE: runNow,
}

func init() {
	rootCmd.AddCommand(nowCmd)

	nowCmd.Flags().StringP("output-format", "f", "", "Output format template (overrides config)")
	nowCmd.Flags().IntP("output-width", "w", 0, "Fixed output width (0=disabled, overrides config)")
}

// nowView is the data passed to the output template
type nowView struct {
	Player   string
	Title    string
	Artists  string
	URL      string
	Position string
	Length   string
	Paused   bool
}

func runNow(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	sources, err := buildSources(cfg.Sources)
	if err != nil {
		return err
	}

	state := music.DeriveState(ctx, sources, zerolog.Nop())
	track, ok := state.Track()
	if !ok || cfg.Excluded(track) {
		os.Exit(1)
		return nil
	}

	output, err := formatTrack(track, cfg.OutputFormat)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}

	fmt.Println(padToWidth(output, cfg.OutputWidth))
	return nil
}

// formatTrack applies the template to the track data
func formatTrack(track music.Track, templateStr string) (string, error) {
	tmpl, err := template.New("output").Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("invalid template: %w", err)
	}

	view := nowView{
		Player:  track.Player,
		Title:   track.Title,
		Artists: strings.Join(track.Artists, ", "),
		URL:     track.URL,
		Paused:  track.Paused,
	}
	if track.Position != nil {
		view.Position = formatDuration(*track.Position)
	}
	if track.Length != nil {
		view.Length = formatDuration(*track.Length)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("template execution failed: %w", err)
	}

	return buf.String(), nil
}

// formatDuration renders d as m:ss, or h:mm:ss past an hour.
func formatDuration(d time.Duration) string {
	d = d.Truncate(time.Second)
	h := int(d / time.Hour)
	m := int(d%time.Hour) / int(time.Minute)
	s := int(d%time.Minute) / int(time.Second)
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// padToWidth pads or truncates text to a fixed display width.
// Width is measured in display columns, accounting for Unicode characters.
// If width <= 0, returns text unchanged.
// If text is longer than width, truncates with "..." suffix.
func padToWidth(text string, width int) string {
	if width <= 0 {
		return text
	}

	const ellipsis = "..."
	if runewidth.StringWidth(text) > width {
		if width <= len(ellipsis) {
			return ellipsis[:width]
		}
		text = runewidth.Truncate(text, width-len(ellipsis), "") + ellipsis
	}

	// Wide runes may leave the truncated text a column short
	return runewidth.FillRight(text, width)
}
