package commands

import (
	"context"
	"fmt"
	"os"

	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/studio1767/bagvault/internal/vault"
)

var exportPassphrase string

var exportCmd = &cobra.Command{
	Use:   "export <project-id> <dest-file>",
	Short: "Export a project's bag as an encrypted archive",
	Long: `Write the bag as a tar archive, gzip compressed and encrypted with
a passphrase using age. The passphrase comes from --passphrase or the
BAGVAULT_PASSPHRASE environment variable.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		passphrase := exportPassphrase
		if passphrase == "" {
			passphrase = os.Getenv("BAGVAULT_PASSPHRASE")
		}

		pkg, err := BV.Store.PackageForProject(context.Background(), args[0])
		if err != nil {
			return err
		}

		size, err := vault.Export(pkg.BagPath, args[1], passphrase)
		if err != nil {
			return err
		}

		fmt.Printf("exported %s\n", pkg.BagPath)
		fmt.Printf("  dest: %s\n", args[1])
		fmt.Printf("  size: %s\n", humanize.Bytes(uint64(size)))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportPassphrase, "passphrase", "", "passphrase to encrypt the export with")
	rootCmd.AddCommand(exportCmd)
}
