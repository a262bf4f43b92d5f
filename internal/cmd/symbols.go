package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/lfnorm/internal/display"
	"github.com/harrison/lfnorm/internal/logger"
	"github.com/harrison/lfnorm/internal/symbols"
)

// NewSymbolsCommand creates and returns the symbols subcommand
func NewSymbolsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "symbols [root]",
		Short: "List C/C++ declarations of capitalised names",
		Long: `Scan C/C++ sources under src/ and include/ directories and print every
line that declares a capitalised name (a word, a space, then a name starting
with an upper-case letter, terminated by ';' or '{').

Only candidates are reported; no file is modified.

Examples:
  lfnorm symbols
  lfnorm symbols ./engine --include 'src/**.cpp'
  lfnorm symbols --skip-hidden --max-depth 4 --names`,
		Args: cobra.MaximumNArgs(1),
		RunE: runSymbols,
	}

	addCommonFlags(cmd)
	cmd.Flags().StringArray("include", nil, "Glob relative to root selecting files to scan (repeatable, replaces config)")
	cmd.Flags().Bool("skip-hidden", false, "Do not descend into directories whose name starts with '.'")
	cmd.Flags().Int("max-depth", 0, "Limit directory depth (0 = unlimited, 1 = root only)")
	cmd.Flags().Bool("names", false, "Print only the distinct candidate names, one per line")

	return cmd
}

func runSymbols(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	overrides := commonOverrides(cmd, args)
	overrides.Include, _ = cmd.Flags().GetStringArray("include")
	if cmd.Flags().Changed("skip-hidden") {
		v, _ := cmd.Flags().GetBool("skip-hidden")
		overrides.SkipHidden = &v
	}
	if cmd.Flags().Changed("max-depth") {
		v, _ := cmd.Flags().GetInt("max-depth")
		overrides.MaxDepth = &v
	}
	cfg.MergeWithFlags(overrides)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	root, err := cfg.ResolveRoot()
	if err != nil {
		return err
	}

	log := logger.NewConsoleLogger(cmd.ErrOrStderr(), cfg.LogLevel)

	result, err := symbols.Find(root, symbols.Options{
		Include:     cfg.Symbols.Include,
		ExcludeDirs: cfg.Symbols.ExcludeDirs,
		SkipHidden:  cfg.Symbols.SkipHidden,
		MaxDepth:    cfg.Symbols.MaxDepth,
	})
	if err != nil {
		return err
	}
	for _, scanErr := range result.Errors {
		log.LogWarn(scanErr.Error())
	}

	if names, _ := cmd.Flags().GetBool("names"); names {
		for _, name := range result.Names() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	}

	display.PrintCandidates(cmd.OutOrStdout(), result)
	return nil
}
