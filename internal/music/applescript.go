package music

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const appleMusicPlayer = "Apple Music"

// AppleScriptSource reads the current track from Apple Music via osascript
type AppleScriptSource struct {
	// run executes a script and returns its stdout; replaced in tests
	run func(ctx context.Context, script string) ([]byte, error)
}

// NewAppleScriptSource creates a new AppleScript-based source
func NewAppleScriptSource() *AppleScriptSource {
	return &AppleScriptSource{run: runOsascript}
}

// Name returns the configuration name of the source
func (c *AppleScriptSource) Name() string {
	return "applemusic"
}

// CurrentTrack returns the current track from Apple Music.
// A single osascript call checks whether Music is running and queries
// track data, avoiding two subprocess spawns per poll.
func (c *AppleScriptSource) CurrentTrack(ctx context.Context) (*Track, error) {
	script := `
tell application "System Events"
	if not ((name of processes) contains "Music") then
		return "not_running"
	end if
end tell
tell application "Music"
	if player state is stopped then
		return "stopped"
	else
		set trackName to name of current track
		set trackArtist to artist of current track
		set trackDuration to duration of current track
		set playerPos to player position
		set playerState to player state as string

		return trackName & "|||" & trackArtist & "|||" & trackDuration & "|||" & playerPos & "|||" & playerState
	end if
end tell`

	output, err := c.run(ctx, script)
	if err != nil {
		return nil, err
	}

	result := strings.TrimSpace(string(output))
	if result == "not_running" || result == "stopped" {
		return nil, nil
	}

	track, err := parseTrackOutput(result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse track output: %w", err)
	}
	return track, nil
}

func runOsascript(ctx context.Context, script string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "osascript", "-e", script)
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("osascript error: %s", string(exitErr.Stderr))
		}
		return nil, fmt.Errorf("failed to execute osascript: %w", err)
	}
	return output, nil
}

// parseTrackOutput parses the delimited output from the AppleScript
func parseTrackOutput(output string) (*Track, error) {
	parts := strings.Split(output, "|||")
	if len(parts) != 5 {
		return nil, fmt.Errorf("expected 5 parts, got %d: %q", len(parts), output)
	}

	name := strings.TrimSpace(parts[0])
	artist := strings.TrimSpace(parts[1])
	durationStr := strings.TrimSpace(parts[2])
	positionStr := strings.TrimSpace(parts[3])
	stateStr := strings.TrimSpace(parts[4])

	durationSec, err := strconv.ParseFloat(durationStr, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse duration %q: %w", durationStr, err)
	}

	positionSec, err := strconv.ParseFloat(positionStr, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse position %q: %w", positionStr, err)
	}

	var paused bool
	switch stateStr {
	case "playing", "fast forwarding", "rewinding":
	case "paused":
		paused = true
	default:
		return nil, fmt.Errorf("unknown player state: %q", stateStr)
	}

	track := &Track{
		Player:   appleMusicPlayer,
		Title:    name,
		Position: durationPtr(secondsToDuration(positionSec)),
		Length:   durationPtr(secondsToDuration(durationSec)),
		Paused:   paused,
	}
	if artist != "" {
		track.Artists = []string{artist}
	}
	return track, nil
}

// secondsToDuration converts seconds (as float) to time.Duration
func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
