package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rossmacarthur/sheldon/internal/version"
	appcontext "github.com/rossmacarthur/sheldon/pkg/context"
	"github.com/rossmacarthur/sheldon/pkg/logging"
)

var (
	verbosity int
	noColor   bool
	configDir string
	dataDir   string
	profile   string

	rootCmd = &cobra.Command{
		Use:   "sheldon",
		Short: "Fast, configurable, shell plugin manager",
		Long: `sheldon manages shell plugins declared in a TOML config file: it clones or
downloads their sources, figures out which files to load, and renders a shell
script that your .zshrc or .bashrc sources.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "error:", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Override the config directory (default $XDG_CONFIG_HOME/sheldon)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Override the data directory (default $XDG_DATA_HOME/sheldon)")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", "", "The profile used for conditional plugins")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(lockCmd)
	rootCmd.AddCommand(sourceCmd)
	rootCmd.AddCommand(versionCmd)
}

// newContext builds the run context from the persistent flags.
func newContext(mode appcontext.LockMode) (*appcontext.Context, error) {
	return appcontext.New(appcontext.Options{
		ConfigDir: configDir,
		DataDir:   dataDir,
		Profile:   profile,
		LockMode:  mode,
		Verbosity: verbosity,
		NoColor:   noColor,
	})
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sheldon version %s\n", version.Version)
		fmt.Printf("  commit: %s\n", version.Commit)
		fmt.Printf("  built:  %s\n", version.Date)
	},
}
