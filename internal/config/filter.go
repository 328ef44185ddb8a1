package config

import (
	"slices"
	"strings"

	"github.com/jfmyers9/trackpresence/internal/music"
)

// normalize lowercases s and removes spaces, so "VLC media player"
// and "vlcmediaplayer" compare equal.
func normalize(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), " ", "")
}

// PlayerImage returns the asset key for a player's icon: the normalized
// player name if it is a known player, FallbackImage otherwise.
func (c *Config) PlayerImage(player string) string {
	name := normalize(player)
	for _, known := range c.KnownPlayers {
		if normalize(known) == name {
			return name
		}
	}
	return FallbackImage
}

// Excluded reports whether a track must be kept out of the activity.
// It does not change what counts as playing: an excluded track still
// replaces a previous activity with a cleared one.
func (c *Config) Excluded(track music.Track) bool {
	player := normalize(track.Player)
	for _, p := range c.ExcludedPlayers {
		if normalize(p) == player {
			return true
		}
	}

	if slices.Contains(c.ExcludedTitles, track.Title) {
		return true
	}

	for _, artist := range track.Artists {
		if slices.Contains(c.ExcludedArtists, artist) {
			return true
		}
	}

	if track.URL != "" {
		url := strings.ToLower(track.URL)
		for _, u := range c.ExcludedURLs {
			if strings.Contains(url, strings.ToLower(u)) {
				return true
			}
		}
	}

	return false
}
