package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jfmyers9/trackpresence/internal/daemon"
)

// installCmd represents the install command
var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the daemon as a login service",
	Long: `Install the trackpresence daemon so it runs automatically on login.

On Linux this writes a systemd user unit to ~/.config/systemd/user/
and enables it with systemctl --user.

On macOS this writes a launchd plist to ~/Library/LaunchAgents/
and loads it with launchctl.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		binaryPath, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to get executable path: %w", err)
		}

		// Resolve symlinks to get the actual binary path
		binaryPath, err = filepath.EvalSymlinks(binaryPath)
		if err != nil {
			return fmt.Errorf("failed to resolve executable path: %w", err)
		}

		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}

		config := daemon.ServiceConfig{
			BinaryPath:       binaryPath,
			WorkingDirectory: home,
		}

		switch runtime.GOOS {
		case "linux":
			return installUnit(config)
		case "darwin":
			return installPlist(config)
		default:
			return fmt.Errorf("install is not supported on %s", runtime.GOOS)
		}
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
}

func installUnit(config daemon.ServiceConfig) error {
	unit, err := daemon.GenerateUnit(config)
	if err != nil {
		return fmt.Errorf("failed to generate unit: %w", err)
	}

	unitPath, err := daemon.GetUnitPath()
	if err != nil {
		return fmt.Errorf("failed to get unit path: %w", err)
	}
	if err := writeServiceFile(unitPath, unit); err != nil {
		return err
	}
	fmt.Printf("✓ Installed unit to %s\n", unitPath)

	if err := systemctl("daemon-reload"); err != nil {
		return err
	}
	if err := systemctl("enable", "--now", daemon.UnitName); err != nil {
		return err
	}

	fmt.Println("✓ Service enabled and started")
	fmt.Println("\nYou can check the service status with:")
	fmt.Printf("  systemctl --user status %s\n", daemon.UnitName)
	fmt.Println("\nTo uninstall, run:")
	fmt.Println("  trackpresence uninstall")
	return nil
}

func installPlist(config daemon.ServiceConfig) error {
	logPath, err := daemon.GetDefaultLogPath()
	if err != nil {
		return fmt.Errorf("failed to get log path: %w", err)
	}
	if err := os.MkdirAll(logPath, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	config.LogPath = logPath

	plistContent, err := daemon.GeneratePlist(config)
	if err != nil {
		return fmt.Errorf("failed to generate plist: %w", err)
	}

	plistPath, err := daemon.GetPlistPath()
	if err != nil {
		return fmt.Errorf("failed to get plist path: %w", err)
	}

	if _, err := os.Stat(plistPath); err == nil {
		fmt.Println("Daemon is already installed. Uninstalling first...")
		if err := unloadDaemon(); err != nil {
			fmt.Printf("Warning: failed to unload existing daemon: %v\n", err)
		}
	}

	if err := writeServiceFile(plistPath, plistContent); err != nil {
		return err
	}
	fmt.Printf("✓ Installed plist to %s\n", plistPath)

	if err := loadDaemon(plistPath); err != nil {
		return fmt.Errorf("failed to load daemon: %w", err)
	}

	fmt.Println("✓ Daemon loaded and started successfully")
	fmt.Printf("✓ Logs will be written to %s\n", logPath)
	fmt.Println("\nYou can check the daemon status with:")
	fmt.Println("  launchctl list | grep trackpresence")
	fmt.Println("\nTo uninstall, run:")
	fmt.Println("  trackpresence uninstall")
	return nil
}

func writeServiceFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// systemctl runs systemctl against the user manager
func systemctl(args ...string) error {
	cmd := exec.Command("systemctl", append([]string{"--user"}, args...)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("systemctl --user %s: %s: %w",
			strings.Join(args, " "), strings.TrimSpace(string(output)), err)
	}
	return nil
}

// launchDomain returns the launchctl domain of the current user
func launchDomain() string {
	return fmt.Sprintf("gui/%d", os.Getuid())
}

// loadDaemon loads the daemon using launchctl
func loadDaemon(plistPath string) error {
	cmd := exec.Command("launchctl", "bootstrap", launchDomain(), plistPath)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if len(output) > 0 {
			return fmt.Errorf("launchctl bootstrap failed: %s", output)
		}
		return fmt.Errorf("failed to run launchctl bootstrap: %w", err)
	}
	return nil
}

// unloadDaemon unloads the daemon using launchctl
func unloadDaemon() error {
	service := fmt.Sprintf("%s/%s", launchDomain(), daemon.ServiceLabel)
	cmd := exec.Command("launchctl", "bootout", service)
	output, err := cmd.CombinedOutput()
	if err != nil && len(output) > 0 {
		// Bootout fails when the service is not loaded, which is OK
		fmt.Printf("Warning: %s\n", output)
	}
	return nil
}
