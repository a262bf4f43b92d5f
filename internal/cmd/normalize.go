package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/harrison/lfnorm/internal/config"
	"github.com/harrison/lfnorm/internal/display"
	"github.com/harrison/lfnorm/internal/logger"
	"github.com/harrison/lfnorm/internal/normalizer"
)

// NewNormalizeCommand creates and returns the normalize subcommand
func NewNormalizeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "normalize [root]",
		Short: "Convert CR+LF and LF+CR line endings to LF",
		Long: `Walk root (default: the current directory) and rewrite every regular file
containing a carriage return: CR+LF becomes LF, then LF+CR becomes LF.

Bytes are never decoded, so any encoding passes through untouched. Symlinks
are not followed. A carriage return outside a CR+LF or LF+CR pair is left in
place; such files are still rewritten unless --skip-unchanged is given.

Examples:
  lfnorm normalize                      # current directory
  lfnorm normalize ./project --dry-run  # list files that would change
  lfnorm normalize --exclude-dir .git --exclude-dir node_modules
  lfnorm normalize --jobs 8 --report lfnorm-report.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: runNormalize,
	}

	addCommonFlags(cmd)
	cmd.Flags().Bool("dry-run", false, "Report files that would change without writing them")
	cmd.Flags().Bool("atomic", false, "Replace files via temp file and rename instead of in place (read-only files are still refused; hard links are broken)")
	cmd.Flags().Bool("skip-unchanged", false, "Do not rewrite files the transform leaves byte-identical")
	cmd.Flags().Int("jobs", 0, "Number of files processed concurrently (default from config: 1)")
	cmd.Flags().String("report", "", "Write the run report as YAML to this file")
	cmd.Flags().Bool("paths", false, "Print only the absolute paths of changed files, one per line")

	return cmd
}

func runNormalize(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	overrides := commonOverrides(cmd, args)
	if cmd.Flags().Changed("dry-run") {
		v, _ := cmd.Flags().GetBool("dry-run")
		overrides.DryRun = &v
	}
	if cmd.Flags().Changed("atomic") {
		v, _ := cmd.Flags().GetBool("atomic")
		overrides.AtomicWrite = &v
	}
	if cmd.Flags().Changed("skip-unchanged") {
		v, _ := cmd.Flags().GetBool("skip-unchanged")
		overrides.SkipUnchanged = &v
	}
	if cmd.Flags().Changed("jobs") {
		v, _ := cmd.Flags().GetInt("jobs")
		overrides.Jobs = &v
	}
	if cmd.Flags().Changed("report") {
		v, _ := cmd.Flags().GetString("report")
		overrides.ReportPath = &v
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

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	opts := normalizer.Options{
		ExcludeDirs:   cfg.Normalize.ExcludeDirs,
		DryRun:        cfg.Normalize.DryRun,
		AtomicWrite:   cfg.Normalize.AtomicWrite,
		SkipUnchanged: cfg.Normalize.SkipUnchanged,
		Jobs:          cfg.Normalize.Jobs,
	}

	log.LogDebug(fmt.Sprintf("normalizing %s", root))
	report, runErr := normalizer.Normalize(ctx, root, opts, log)

	// Files already normalized are listed even when the run halted.
	if paths, _ := cmd.Flags().GetBool("paths"); paths {
		for _, p := range report.ModifiedPaths() {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
	} else {
		display.PrintChanges(cmd.OutOrStdout(), report)
	}

	if cfg.Normalize.ReportPath != "" {
		if err := writeReport(cfg.Normalize.ReportPath, report); err != nil {
			if runErr != nil {
				log.LogError(err.Error())
				return runErr
			}
			return err
		}
		log.LogDebug(fmt.Sprintf("report written to %s", cfg.Normalize.ReportPath))
	}

	if runErr != nil {
		return runErr
	}

	log.LogSummary(report)
	warnLoneCR(cmd, cfg, report)

	return nil
}

func warnLoneCR(cmd *cobra.Command, cfg *config.Config, report *normalizer.Report) {
	files := report.LoneCRFiles()
	if len(files) == 0 {
		return
	}
	for i, f := range files {
		files[i] = display.RelativePath(report.Root, f)
	}
	display.WarnLoneCR(files, cfg.Normalize.SkipUnchanged).Display(cmd.ErrOrStderr())
}

// writeReport saves report as YAML at path.
func writeReport(path string, report *normalizer.Report) error {
	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return nil
}
