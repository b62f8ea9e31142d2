package commands

import (
	"context"
	"fmt"

	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/studio1767/bagvault/internal/job"
)

var archiveBuild bool

var archiveCmd = &cobra.Command{
	Use:   "archive <job-file>",
	Short: "Archive the sources described by a job file",
	Long: `Validate and measure the source paths in the job file and record
the project in the vault. With --bag the bag is built immediately;
otherwise build it later with 'bagvault bag'.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		j, err := job.Load(args[0])
		if err != nil {
			return err
		}

		project, err := BV.Vault.Archive(ctx, j)
		if err != nil {
			return err
		}

		fmt.Printf("archived %s\n", project.Name)
		fmt.Printf("  project: %s\n", project.ID)
		fmt.Printf("  files:   %d\n", project.FileCount)
		fmt.Printf("  size:    %s\n", humanize.Bytes(uint64(project.TotalSize)))

		if !archiveBuild {
			return nil
		}

		result, err := BV.Vault.CreateBag(ctx, project.ID)
		if err != nil {
			return err
		}
		return printBagResult(result)
	},
}

func init() {
	archiveCmd.Flags().BoolVar(&archiveBuild, "bag", false, "build the bag immediately after archiving")
	rootCmd.AddCommand(archiveCmd)
}
