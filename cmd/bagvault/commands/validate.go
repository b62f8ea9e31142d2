package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/studio1767/bagvault/internal/bagit"
)

var validateCmd = &cobra.Command{
	Use:   "validate <bag-path>",
	Short: "Validate a bag on disk",
	Long: `Check the bag's declaration and recompute every payload checksum
against the manifest. If the bag is tracked in the vault the outcome
is recorded against its package.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		issues, err := BV.Vault.Validate(context.Background(), args[0])
		if err != nil {
			return err
		}

		for _, issue := range issues {
			if issue.File != "" {
				fmt.Printf("%s: %s: %s\n", issue.Severity, issue.File, issue.Message)
			} else {
				fmt.Printf("%s: %s\n", issue.Severity, issue.Message)
			}
		}

		if bagit.HasErrors(issues) {
			return fmt.Errorf("bag failed validation")
		}
		fmt.Println("bag is valid")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
