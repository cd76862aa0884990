package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"foldersync/internal/autostart"
	"foldersync/internal/config"

	"github.com/spf13/cobra"
)

var newAutoStarter = autostart.New

var installCmd = &cobra.Command{
	Use:   "install <source_directory> <replica_directory> <log_directory> <sync_interval_seconds>",
	Short: "Start mirroring these directories at login",
	Args: func(cmd *cobra.Command, args []string) error {
		_, err := config.Default.WithArgs(args)
		return err
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		execPath, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to get executable path: %w", err)
		}

		serviceArgs, err := installArgs(args)
		if err != nil {
			return err
		}

		if err := newAutoStarter().Install(execPath, serviceArgs); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "foldersync registered for autostart")
		return nil
	},
}

// installArgs turns the positional arguments into the command line of the
// installed service. Paths are made absolute since the service does not
// start in the current directory.
func installArgs(args []string) ([]string, error) {
	cfg, err := settings.WithArgs(args)
	if err != nil {
		return nil, err
	}

	var out []string
	if cfgFile != "" {
		abs, err := filepath.Abs(cfgFile)
		if err != nil {
			return nil, err
		}
		out = append(out, "--config", abs)
	}

	for _, dir := range []string{cfg.Source, cfg.Replica, cfg.LogDir} {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
		}
		out = append(out, abs)
	}

	return append(out, strconv.Itoa(int(cfg.Interval/time.Second))), nil
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the autostart registration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		as := newAutoStarter()

		installed, err := as.IsInstalled()
		if err != nil {
			return err
		}
		if !installed {
			fmt.Fprintln(cmd.OutOrStdout(), "foldersync is not registered for autostart")
			return nil
		}

		if err := as.Uninstall(); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "foldersync autostart removed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
}
