package main

import (
	"fmt"
	"os"

	"github.com/harrison/lfnorm/internal/cmd"
)

// Version is the current version of the lfnorm application
const Version = "1.0.0"

func main() {
	if cmd.Version == "dev" {
		cmd.Version = Version
	}
	rootCmd := cmd.NewRootCommand()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
