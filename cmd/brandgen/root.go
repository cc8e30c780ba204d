package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	// Subcommands
	db "github.com/cozy-creator/brandgen/cmd/brandgen/db"
	run "github.com/cozy-creator/brandgen/cmd/brandgen/run"
	"github.com/cozy-creator/brandgen/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is stamped at build time with -ldflags.
var Version = "0.6.0"

// errCommandFailed makes the process exit 1 after a failed envelope has
// already been printed.
var errCommandFailed = errors.New("command failed")

var Cmd = &cobra.Command{
	Use:   "brandgen",
	Short: "Brand image generation backend",
	Long:  "Generate on-brand illustrations and icons, train brand LoRAs and manage generation history from the CLI, a REST API or an MCP client",

	SilenceUsage:  true,
	SilenceErrors: true,

	// Runs before this command and any subcommands
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Set global viper options
		viper.SetEnvPrefix(config.EnvPrefix)
		viper.SetEnvKeyReplacer(strings.NewReplacer(
			`-`, `_`, // convert hyphens to underscores
			`.`, `_`, // convert dots to underscores
		))
		viper.AutomaticEnv()

		config.SetDefaults()
		config.BindEnvs()

		// Load config and env files
		return config.LoadEnvAndConfigFiles()
	},
}

func Execute() {
	if err := Cmd.ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, errCommandFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	// Subcommands with their own pre-run hooks still load config first.
	cobra.EnableTraverseRunHooks = true

	pflags := Cmd.PersistentFlags()

	pflags.String("home-dir", config.DefaultHomeDir, "Path to the brandgen home directory")
	pflags.String("config-file", "", "Path to the config file")
	pflags.String("env-file", "", "Path to the env file")
	pflags.String("environment", config.DefaultEnvironment, "Environment configuration; affects logging and defaults")

	// Bind flags to viper
	viper.BindPFlag("home_dir", pflags.Lookup("home-dir"))
	viper.BindPFlag("config_file", pflags.Lookup("config-file"))
	viper.BindPFlag("env_file", pflags.Lookup("env-file"))
	viper.BindPFlag("environment", pflags.Lookup("environment"))

	// Add subcommands
	Cmd.AddCommand(run.Cmd, db.Cmd, execCmd, commandsCmd, schemaCmd, doctorCmd, mcpCmd, versionCmd)
	Cmd.CompletionOptions.HiddenDefaultCmd = true
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the brandgen version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), Version)
	},
}
