package daemon

import (
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestGeneratePlist(t *testing.T) {
	plist, err := GeneratePlist(ServiceConfig{
		BinaryPath:       "/usr/local/bin/trackpresence",
		LogPath:          "/Users/me/.local/share/trackpresence/logs",
		WorkingDirectory: "/Users/me",
	})
	if err != nil {
		t.Fatalf("GeneratePlist: %v", err)
	}

	for _, want := range []string{
		"<string>com.trackpresence.daemon</string>",
		"<string>/usr/local/bin/trackpresence</string>",
		"<string>/Users/me/.local/share/trackpresence/logs/trackpresence.log</string>",
		"<string>/Users/me</string>",
	} {
		if !strings.Contains(plist, want) {
			t.Errorf("plist missing %q", want)
		}
	}
}

func TestGenerateUnit(t *testing.T) {
	unit, err := GenerateUnit(ServiceConfig{
		BinaryPath:       "/home/me/go/bin/trackpresence",
		WorkingDirectory: "/home/me",
	})
	if err != nil {
		t.Fatalf("GenerateUnit: %v", err)
	}

	for _, want := range []string{
		"ExecStart=/home/me/go/bin/trackpresence\n",
		"WorkingDirectory=/home/me\n",
		"Restart=on-failure",
		"WantedBy=default.target",
	} {
		if !strings.Contains(unit, want) {
			t.Errorf("unit missing %q", want)
		}
	}
}

func TestGetUnitPath(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("systemd units are only installed on Linux")
	}
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	path, err := GetUnitPath()
	if err != nil {
		t.Fatalf("GetUnitPath: %v", err)
	}
	want := filepath.Join(dir, "systemd", "user", "trackpresence.service")
	if path != want {
		t.Errorf("GetUnitPath() = %q, want %q", path, want)
	}
}
