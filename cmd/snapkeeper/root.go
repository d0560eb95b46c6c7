package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	envFile string
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapkeeper",
		Short: "snapkeeper - EBS snapshot rotation",
		Long: `snapkeeper takes a snapshot of every EBS volume matching a filter,
copies the volume tags onto it and deletes the oldest snapshots beyond
the configured keep count. Results are published to an SNS topic.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnvFile(envFile)
		},
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "path to the configuration file")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", "", "optional .env file with AWS credentials")

	cmd.AddCommand(newRunCmd(), newDaemonCmd(), newVersionCmd())
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadEnvFile loads path into the environment without overriding
// variables that are already set.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("env file: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}
