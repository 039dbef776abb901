package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/novywave/engine/internal/nwconfig"
	"github.com/novywave/engine/internal/output"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

var (
	jsonFlag      bool
	verboseFlag   bool
	quietFlag     bool
	noColorFlag   bool
	configDirFlag string
)

// NewRootCmd assembles the novywave command tree.
func NewRootCmd() *cobra.Command {
	cmd := newRootCmd()
	addServeCommand(cmd)
	addDoctorCommand(cmd)
	addConfigCommands(cmd)
	addPluginCommands(cmd)
	return cmd
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "novywave",
		Short:         "novywave waveform viewer engine",
		Long:          "novywave — headless waveform-viewing engine: serves a JSON wire protocol over a Unix socket or TCP port for a separate graphical front end.",
		Version:       fmt.Sprintf("novywave v%s", Version),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verboseFlag && quietFlag {
				return fmt.Errorf("--verbose and --quiet are mutually exclusive")
			}
			if jsonFlag {
				quietFlag = true
			}
			output.SetFlags(jsonFlag, quietFlag, verboseFlag)
			if configDirFlag != "" {
				nwconfig.SetConfigDir(configDirFlag)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.SetVersionTemplate("{{.Version}}\n")

	pflags := rootCmd.PersistentFlags()
	pflags.BoolVarP(&jsonFlag, "json", "j", false, "Output as JSON")
	pflags.BoolVarP(&verboseFlag, "verbose", "v", false, "Extra detail to stderr")
	pflags.BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-essential output")
	pflags.BoolVar(&noColorFlag, "no-color", false, "Disable ANSI colors")
	pflags.StringVar(&configDirFlag, "config-dir", "", "Override the platform-global config directory (default: ~/.config/novywave)")

	if v := os.Getenv("NOVYWAVE_CONFIG_DIR"); v != "" && configDirFlag == "" {
		configDirFlag = v
	}
	if os.Getenv("NO_COLOR") != "" {
		noColorFlag = true
	}

	return rootCmd
}

// Execute runs the novywave command tree against os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}
