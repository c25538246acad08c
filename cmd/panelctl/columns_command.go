package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/hurricane-panel/internal/colconfig"
)

func newColumnsCommand(client *apiClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "columns",
		Short: "Inspect and edit the column configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(
		newColumnsListCommand(client),
		newColumnsIncludeCommand(client, "include", true),
		newColumnsIncludeCommand(client, "exclude", false),
		newColumnsRenameCommand(client),
		newColumnsDeleteCommand(client),
		newColumnsResetCommand(client),
		newColumnsScanCommand(client),
	)
	return cmd
}

func newColumnsListCommand(client *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show every known column and its configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var resp struct {
				Columns []colconfig.Entry `json:"columns"`
			}
			if err := client.get("/api/columns", &resp); err != nil {
				return err
			}

			rows := make([][]string, 0, len(resp.Columns))
			for _, e := range resp.Columns {
				rows = append(rows, []string{
					e.Dataset,
					e.Column,
					strconv.FormatBool(e.Include),
					e.Rename,
					e.DType,
					fmt.Sprintf("%d/%d", e.RowCount, e.TotalRows),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"DATASET", "COLUMN", "INCLUDE", "RENAME", "DTYPE", "NON-MISSING"},
				rows,
			))
			return nil
		},
	}
}

func newColumnsIncludeCommand(client *apiClient, verb string, include bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <dataset> <column>",
		Short: verb + " a column in the master dataset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]any{"dataset": args[0], "column": args[1], "include": include}
			if err := client.post("/api/columns/include", payload, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%sd %s/%s\n", verb, args[0], args[1])
			return nil
		},
	}
}

func newColumnsRenameCommand(client *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <dataset> <column> <new-name>",
		Short: "Rename a column in the master dataset",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]any{"dataset": args[0], "column": args[1], "rename": args[2]}
			if err := client.post("/api/columns/rename", payload, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "renamed %s/%s to %s\n", args[0], args[1], args[2])
			return nil
		},
	}
}

func newColumnsDeleteCommand(client *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <dataset> <column>",
		Short: "Remove a column entry; the next scan reintroduces it excluded",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]any{"dataset": args[0], "column": args[1]}
			if err := client.post("/api/columns/delete", payload, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s/%s\n", args[0], args[1])
			return nil
		},
	}
}

func newColumnsScanCommand(client *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Rerun the pipeline and discover new columns without rebuilding",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var resp struct {
				ColumnsAdded int `json:"columns_added"`
			}
			if err := client.post("/api/scan", nil, &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "scan complete, %d new columns\n", resp.ColumnsAdded)
			return nil
		},
	}
}

func newColumnsResetCommand(client *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear the entire column configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := client.post("/api/columns/reset", nil, nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "column configuration reset")
			return nil
		},
	}
}
