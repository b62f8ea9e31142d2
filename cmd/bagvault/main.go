package main

import (
	"os"

	"github.com/studio1767/bagvault/cmd/bagvault/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
