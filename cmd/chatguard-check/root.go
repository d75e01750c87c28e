package main

import (
	"github.com/mikey/chatguard/internal/di"
	"github.com/spf13/cobra"
	"go.uber.org/dig"
)

type rootFlags struct {
	configFile string
	verbose    bool
	jsonLog    bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	rootCmd := &cobra.Command{
		Use:           "chatguard-check",
		Short:         "Test chatguard rules and inspect the moderation log",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&flags.configFile, "config", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVar(&flags.verbose, "verbose", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&flags.jsonLog, "json-log", false, "Output logs in JSON format")

	rootCmd.AddCommand(
		newCheckCmd(flags),
		newLogCmd(flags),
	)
	return rootCmd
}

// container builds the offline container for the parsed flags
func (f *rootFlags) container() (*dig.Container, error) {
	return di.BuildCheckContainer(di.ConfigFile(f.configFile), f.verbose, f.jsonLog)
}
