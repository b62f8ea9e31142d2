package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history <project-id>",
	Short: "Show the audit trail for a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		// fail early with a clear message for unknown ids
		if _, err := BV.Store.ProjectByID(ctx, args[0]); err != nil {
			return err
		}

		events, err := BV.Store.EventsFor(ctx, args[0])
		if err != nil {
			return err
		}

		for _, event := range events {
			fmt.Printf("%s  %-20s %s\n",
				event.CreatedAt.Format("2006-01-02 15:04:05"),
				event.Type,
				string(event.Payload))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}
