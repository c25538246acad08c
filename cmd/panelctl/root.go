package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var serverFlag string

	client := &apiClient{server: &serverFlag}

	rootCmd := &cobra.Command{
		Use:           "panelctl",
		Short:         "Operator CLI for the hurricane panel service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", "http://localhost:8080", "Base URL of the paneld HTTP API")

	rootCmd.AddCommand(newColumnsCommand(client))
	rootCmd.AddCommand(newMasterCommand(client))
	rootCmd.AddCommand(newStatusCommand(client))
	rootCmd.AddCommand(newRebuildCommand(client))

	return rootCmd
}
