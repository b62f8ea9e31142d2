package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/studio1767/bagvault/internal/bagit"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the whole vault for integrity problems",
	Long: `Validate every bag in the vault, fingerprint the vault layers, and
compare against the previous scan to detect anything that changed
underneath the records.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := BV.Vault.ScanIntegrity(context.Background())
		if err != nil {
			return err
		}

		for _, bag := range report.Bags {
			status := "ok"
			if bagit.HasErrors(bag.Issues) {
				status = "FAILED"
			}
			fmt.Printf("%-8s %s\n", status, bag.Bag)
			for _, issue := range bag.Issues {
				if issue.Severity != bagit.SeverityError {
					continue
				}
				if issue.File != "" {
					fmt.Printf("         %s: %s\n", issue.File, issue.Message)
				} else {
					fmt.Printf("         %s\n", issue.Message)
				}
			}
		}

		fmt.Printf("--------------------------------------------------------------\n")
		fmt.Printf("scanned %d bags\n", len(report.Bags))
		if report.ChangedSinceLastScan {
			fmt.Printf("vault layers changed since the previous scan\n")
		}

		if !report.Healthy {
			return fmt.Errorf("vault scan found problems")
		}
		fmt.Println("vault is healthy")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}
