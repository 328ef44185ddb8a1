package cmd

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/jfmyers9/trackpresence/internal/daemon"
)

// uninstallCmd represents the uninstall command
var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the daemon login service",
	Long: `Stop the trackpresence daemon and remove the login service written by
install (a systemd user unit on Linux, a launchd agent on macOS).

After uninstalling, the daemon will no longer run automatically on login.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			path string
			stop func() error
			err  error
		)
		switch runtime.GOOS {
		case "linux":
			path, err = daemon.GetUnitPath()
			stop = func() error { return systemctl("disable", "--now", daemon.UnitName) }
		case "darwin":
			path, err = daemon.GetPlistPath()
			stop = unloadDaemon
		default:
			return fmt.Errorf("uninstall is not supported on %s", runtime.GOOS)
		}
		if err != nil {
			return fmt.Errorf("failed to get service path: %w", err)
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			fmt.Printf("Daemon is not installed (%s not found)\n", path)
			return nil
		}

		fmt.Println("Stopping daemon...")
		if err := stop(); err != nil {
			fmt.Printf("Warning: failed to stop daemon: %v\n", err)
			fmt.Println("Continuing with removal...")
		} else {
			fmt.Println("✓ Daemon stopped")
		}

		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
		fmt.Printf("✓ Removed %s\n", path)

		if runtime.GOOS == "linux" {
			if err := systemctl("daemon-reload"); err != nil {
				fmt.Printf("Warning: %v\n", err)
			}
		}

		fmt.Println("\nThe trackpresence daemon has been uninstalled successfully.")
		fmt.Println("\nTo reinstall, run:")
		fmt.Println("  trackpresence install")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uninstallCmd)
}
