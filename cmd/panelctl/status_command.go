package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand(client *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show rebuild controller state and the last build",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var resp struct {
				State     string `json:"state"`
				LastError string `json:"last_error"`
				LastBuild *struct {
					BuildID        string   `json:"build_id"`
					Rows           int      `json:"rows"`
					Columns        int      `json:"columns"`
					DatasetsUsed   []string `json:"datasets_used"`
					SkippedColumns int      `json:"skipped_columns"`
					Empty          bool     `json:"empty"`
				} `json:"last_build"`
			}
			if err := client.get("/api/status", &resp); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "state: %s\n", resp.State)
			if resp.LastError != "" {
				fmt.Fprintf(out, "last error: %s\n", resp.LastError)
			}
			if resp.LastBuild == nil {
				fmt.Fprintln(out, "no build completed yet")
				return nil
			}
			b := resp.LastBuild
			fmt.Fprintf(out, "last build: %s\n", b.BuildID)
			fmt.Fprintf(out, "  rows=%d columns=%d datasets=%d skipped_columns=%d empty=%v\n",
				b.Rows, b.Columns, len(b.DatasetsUsed), b.SkippedColumns, b.Empty)
			return nil
		},
	}
}

func newRebuildCommand(client *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Request an immediate rebuild, bypassing the debounce window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := client.post("/api/rebuild", nil, nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "rebuild requested")
			return nil
		},
	}
}
