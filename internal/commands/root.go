package commands

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"spendlog/internal/buildinfo"
	"spendlog/internal/cli"
	"spendlog/internal/config"
	"spendlog/internal/log"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "spendlog",
		Short:   "Personal expense tracker: RPC server and spreadsheet mirror worker",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	var envFile string
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		cli.LoadEnvFile(envFile)
	}

	rootCmd.AddCommand(newServeCommand(), newWorkerCommand())

	return rootCmd
}

// setup validates cfg and builds the root logger from it.
func setup(cfg *config.Config, out io.Writer) (*log.Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if out == nil {
		out = os.Stdout
	}
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat, out)
	logger.Info("Starting spendlog",
		log.FieldOperation, log.OpStartup,
		"version", buildinfo.Version,
		"commit", buildinfo.Commit)
	return logger, nil
}
