package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMasterCommand(client *apiClient) *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "master",
		Short: "Page through the current master dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var resp struct {
				Columns   []string   `json:"columns"`
				Rows      [][]string `json:"rows"`
				TotalRows int        `json:"total_rows"`
				Offset    int        `json:"offset"`
			}
			path := fmt.Sprintf("/api/master?limit=%d&offset=%d", limit, offset)
			if err := client.get(path, &resp); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(resp.Columns) == 0 {
				fmt.Fprintln(out, "master dataset is empty: no columns are included")
				return nil
			}
			fmt.Fprintln(out, renderTable(resp.Columns, resp.Rows))
			fmt.Fprintf(out, "rows %d-%d of %d\n",
				resp.Offset, resp.Offset+len(resp.Rows), resp.TotalRows)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Rows per page")
	cmd.Flags().IntVar(&offset, "offset", 0, "Row offset")
	return cmd
}
