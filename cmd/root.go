package cmd

import (
	"errors"
	"fmt"
	"os"

	"foldersync/internal/config"
	"foldersync/internal/logger"

	"github.com/spf13/cobra"
)

var (
	settings *config.Config
	cfgFile  string
	debug    bool
	once     bool
)

var rootCmd = &cobra.Command{
	Use:   "foldersync <source_directory> <replica_directory> <log_directory> <sync_interval_seconds>",
	Short: "Periodically mirror a folder into a replica folder",
	Long: `foldersync keeps a replica directory identical to a source directory.
Every interval it copies the top-level files of the source into the replica
and removes replica files that no longer exist in the source. Every action
is printed and appended to log.txt in the log directory.

Flags go before the positional arguments.`,
	Args: func(cmd *cobra.Command, args []string) error {
		_, err := config.Default.WithArgs(args)
		return err
	},
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" {
			return nil
		}

		logger.Init(debug)

		var err error
		settings, err = config.Load(cfgFile)
		return err
	},
	RunE: runSync,
}

// Execute runs the command line. Argument errors print the usage line and
// exit with 2; any other failure exits with 1.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var argErr *config.ArgumentError
		if errors.As(err, &argErr) {
			fmt.Fprintln(rootCmd.OutOrStdout(), argErr.Error())
			os.Exit(2)
		}

		fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
		os.Exit(1)
	}
}

func daemonURL(path string) (string, error) {
	if settings.DaemonPort == 0 {
		return "", errors.New("control server is disabled (daemon_port is 0)")
	}

	return fmt.Sprintf("http://127.0.0.1:%d%s", settings.DaemonPort, path), nil
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &config.ArgumentError{Msg: err.Error() + "\n" + config.UsageMessage}
	})

	// "-5" after the directories is an interval, not a shorthand flag
	rootCmd.Flags().SetInterspersed(false)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.foldersync/config.yaml or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug mode")
	rootCmd.Flags().BoolVar(&once, "once", false, "run a single synchronization and exit")
}
