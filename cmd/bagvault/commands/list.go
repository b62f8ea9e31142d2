package commands

import (
	"context"
	"fmt"

	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived projects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		projects, err := BV.Store.Projects(context.Background())
		if err != nil {
			return err
		}

		if len(projects) == 0 {
			fmt.Println("no archived projects")
			return nil
		}

		for _, project := range projects {
			state := "archived"
			if project.Quarantined {
				state = "quarantined"
			} else if project.PackageID != "" {
				state = "bagged"
			}

			fmt.Printf("%s  %-12s %8s %6d files  %s\n",
				project.ID, state,
				humanize.Bytes(uint64(project.TotalSize)),
				project.FileCount,
				project.Name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
