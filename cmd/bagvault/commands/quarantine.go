package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var quarantineReason string

var quarantineCmd = &cobra.Command{
	Use:   "quarantine <project-id>",
	Short: "Move a project's bag into quarantine",
	Long: `Soft-delete a project: the bag moves into the quarantine layer and
a deletion date thirty days out is scheduled. Use 'bagvault restore'
to bring it back before then.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		if err := BV.Vault.Quarantine(ctx, args[0], quarantineReason); err != nil {
			return err
		}

		entry, err := BV.Store.QuarantineEntryForProject(ctx, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("quarantined %s\n", args[0])
		if entry.ScheduledDeletionAt != nil {
			fmt.Printf("  deletion scheduled: %s\n", entry.ScheduledDeletionAt.Format("2006-01-02"))
		}
		return nil
	},
}

func init() {
	quarantineCmd.Flags().StringVar(&quarantineReason, "reason", "", "why the project is being quarantined")
	rootCmd.AddCommand(quarantineCmd)
}
