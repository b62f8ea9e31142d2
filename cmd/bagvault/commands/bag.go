package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/studio1767/bagvault/internal/vault"
)

var bagCmd = &cobra.Command{
	Use:   "bag <project-id>",
	Short: "Build the bag for an archived project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := BV.Vault.CreateBag(context.Background(), args[0])
		if err != nil {
			return err
		}
		return printBagResult(result)
	},
}

func printBagResult(result *vault.BagResult) error {
	fmt.Printf("bag: %s\n", result.BagPath)
	for _, issue := range result.Issues {
		if issue.File != "" {
			fmt.Printf("  %s: %s: %s\n", issue.Severity, issue.File, issue.Message)
		} else {
			fmt.Printf("  %s: %s\n", issue.Severity, issue.Message)
		}
	}
	if !result.Success {
		return fmt.Errorf("bag failed validation")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(bagCmd)
}
