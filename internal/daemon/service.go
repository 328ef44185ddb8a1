package daemon

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
)

const (
	// ServiceLabel names the launchd agent.
	ServiceLabel = "com.trackpresence.daemon"

	// UnitName names the systemd user unit.
	UnitName = "trackpresence.service"
)

const plistTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>{{.Label}}</string>
	<key>ProgramArguments</key>
	<array>
		<string>{{.BinaryPath}}</string>
	</array>
	<key>RunAtLoad</key>
	<true/>
	<key>KeepAlive</key>
	<true/>
	<key>StandardOutPath</key>
	<string>{{.LogPath}}/trackpresence.log</string>
	<key>StandardErrorPath</key>
	<string>{{.LogPath}}/trackpresence.err</string>
	<key>WorkingDirectory</key>
	<string>{{.WorkingDirectory}}</string>
	<key>EnvironmentVariables</key>
	<dict>
		<key>PATH</key>
		<string>/usr/local/bin:/usr/bin:/bin:/usr/sbin:/sbin</string>
	</dict>
</dict>
</plist>
`

const unitTemplate = `[Unit]
Description=Discord Rich Presence for the playing media track
After=graphical-session.target
PartOf=graphical-session.target

[Service]
Type=simple
ExecStart={{.BinaryPath}}
WorkingDirectory={{.WorkingDirectory}}
Restart=on-failure
RestartSec=10

[Install]
WantedBy=default.target
`

// ServiceConfig holds the values substituted into service files
type ServiceConfig struct {
	Label            string
	BinaryPath       string
	LogPath          string
	WorkingDirectory string
}

// GeneratePlist renders the launchd agent for macOS
func GeneratePlist(config ServiceConfig) (string, error) {
	if config.Label == "" {
		config.Label = ServiceLabel
	}
	return render("plist", plistTemplate, config)
}

// GenerateUnit renders the systemd user unit for Linux
func GenerateUnit(config ServiceConfig) (string, error) {
	return render("unit", unitTemplate, config)
}

func render(name, text string, config ServiceConfig) (string, error) {
	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return "", fmt.Errorf("failed to parse %s template: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, config); err != nil {
		return "", fmt.Errorf("failed to execute %s template: %w", name, err)
	}

	return buf.String(), nil
}

// GetPlistPath returns the path where the plist should be installed
func GetPlistPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, "Library", "LaunchAgents", ServiceLabel+".plist"), nil
}

// GetUnitPath returns the path where the systemd user unit should be installed
func GetUnitPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}

	return filepath.Join(dir, "systemd", "user", UnitName), nil
}

// GetDefaultLogPath returns the default path for daemon logs
func GetDefaultLogPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, ".local", "share", "trackpresence", "logs"), nil
}
