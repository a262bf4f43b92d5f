package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/lfnorm/internal/config"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for lfnorm
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lfnorm",
		Short: "Normalize line endings to LF across a directory tree",
		Long: `lfnorm walks a directory tree and rewrites every file that contains a
carriage return so that CR+LF and LF+CR pairs become a single LF.

Files without a carriage return are never opened for writing. Processing
stops at the first I/O error and reports the files already normalized.

Configuration is loaded from .lfnorm.yaml in the current directory if present.
CLI flags override configuration file settings.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.AddCommand(NewNormalizeCommand())
	cmd.AddCommand(NewSymbolsCommand())

	return cmd
}

// loadConfig loads configPath, or .lfnorm.yaml from the working directory
// when configPath is empty.
func loadConfig(configPath string) (*config.Config, error) {
	if configPath != "" {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
		return cfg, nil
	}

	cfg, err := config.LoadConfigFromDir(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// commonOverrides collects the flags shared by every subcommand.
func commonOverrides(cmd *cobra.Command, args []string) config.Overrides {
	var o config.Overrides
	if len(args) > 0 {
		root := args[0]
		o.Root = &root
	}
	if cmd.Flags().Changed("log-level") {
		level, _ := cmd.Flags().GetString("log-level")
		o.LogLevel = &level
	}
	o.ExcludeDirs, _ = cmd.Flags().GetStringArray("exclude-dir")
	return o
}

func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "Path to config file (default: ./"+config.FileName+")")
	cmd.Flags().String("log-level", "", "Log level: trace, debug, info, warn, error (default from config: info)")
	cmd.Flags().StringArray("exclude-dir", nil, "Directory name to skip (repeatable)")
}
