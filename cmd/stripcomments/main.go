// Command stripcomments runs batch comment-stripping jobs over a tree of
// Swift-like source projects, driven by a YAML config file.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aledsdavies/stripcomments/internal/cache"
	"github.com/aledsdavies/stripcomments/internal/config"
	"github.com/aledsdavies/stripcomments/internal/driver"
	"github.com/aledsdavies/stripcomments/internal/report"
)

func main() {
	var (
		configPath string
		project    string
		debug      bool
	)

	rootCmd := &cobra.Command{
		Use:           "stripcomments",
		Short:         "Strip comments from a tree of source projects",
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "stripcomments.yaml", "path to the driver config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(
		newStripCmd(&configPath, &debug),
		newWatchCmd(&configPath, &debug),
		newStatsCmd(&configPath, &debug, &project),
		newValidateConfigCmd(&configPath),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func cachePath(cfg config.Config) string {
	return cfg.OutputRoot + "/.stripcache"
}

func loadDriver(cfg config.Config, logger *slog.Logger) (*driver.Driver, *cache.Index) {
	idx := cache.LoadFile(cachePath(cfg))
	return driver.New(idx, logger), idx
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newStripCmd(configPath *string, debug *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "strip",
		Short: "Run the batch driver once and write stripped output",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger := newLogger(*debug)
			d, idx := loadDriver(cfg, logger)

			ctx, cancel := signalContext()
			defer cancel()

			summary, err := d.Run(ctx, cfg)
			if err != nil {
				return err
			}
			if err := cache.SaveFile(idx, cachePath(cfg)); err != nil {
				logger.Warn("failed to persist cache", "error", err)
			}

			total := report.Aggregate(summary.Projects, summary.Files, 0)
			printTotal(cmd, total)

			if cfg.ValidationBundle.Enabled {
				if err := writeValidationBundle(cfg, summary); err != nil {
					logger.Warn("failed to write validation bundle", "error", err)
				}
			}
			return nil
		},
	}
}

func newWatchCmd(configPath *string, debug *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the input tree and re-strip files as they change",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger := newLogger(*debug)
			d, idx := loadDriver(cfg, logger)

			ctx, cancel := signalContext()
			defer cancel()

			err = d.Watch(ctx, cfg)
			if saveErr := cache.SaveFile(idx, cachePath(cfg)); saveErr != nil {
				logger.Warn("failed to persist cache", "error", saveErr)
			}
			if err != nil && err != context.Canceled {
				return err
			}
			return nil
		},
	}
}

func newStatsCmd(configPath *string, debug *bool, project *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Run the driver (writing output as strip does) and print statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger := newLogger(*debug)
			d, _ := loadDriver(cfg, logger)

			ctx, cancel := signalContext()
			defer cancel()

			summary, err := d.Run(ctx, cfg)
			if err != nil {
				return err
			}

			if *project != "" {
				var names []string
				for _, p := range summary.Projects {
					names = append(names, p.Project)
				}
				resolved, err := report.FindProject(*project, names)
				if err != nil {
					return err
				}
				for _, p := range summary.Projects {
					if p.Project == resolved {
						printProjectStats(cmd, p)
						return nil
					}
				}
				return nil
			}

			total := report.Aggregate(summary.Projects, summary.Files, 0)
			printTotal(cmd, total)
			return nil
		},
	}
	cmd.Flags().StringVar(project, "project", "", "print stats for a single project (fuzzy-matched by name)")
	return cmd
}

func newValidateConfigCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate-config",
		Short: "Validate the config file against its schema without running anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(*configPath)
			if err != nil {
				return err
			}
			defer f.Close()

			if err := config.ValidateReader(f); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "config OK")
			return nil
		},
	}
}

func writeValidationBundle(cfg config.Config, summary driver.Summary) error {
	var pairs []report.FilePair
	for _, f := range summary.Files {
		inputPath := filepath.Join(cfg.InputRoot, f.Project, f.Path)
		outputPath := filepath.Join(cfg.OutputRoot, f.Project, driver.Flatten(f.Path))

		before, err := os.ReadFile(inputPath)
		if err != nil {
			continue
		}
		after, err := os.ReadFile(outputPath)
		if err != nil {
			continue
		}

		pairs = append(pairs, report.FilePair{
			Project: f.Project,
			Path:    f.Path,
			Before:  string(before),
			After:   string(after),
			SizeKB:  float64(len(before)) / 1024,
		})
	}

	outPath := filepath.Join(cfg.OutputRoot, "validation_bundle.txt")
	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	return report.WriteValidationBundles(out, pairs, cfg.ValidationBundle.MaxGroupKB)
}

func printProjectStats(cmd *cobra.Command, p report.ProjectStats) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d files, %d -> %d bytes (%.1f%% removed), %.2f MB/s\n",
		p.Project, p.FileCount, p.BytesBefore, p.BytesAfter, p.CompressionRatio()*100, p.ThroughputMBPerSec())
}

func printTotal(cmd *cobra.Command, total report.Total) {
	out := cmd.OutOrStdout()
	for _, p := range total.Projects {
		printProjectStats(cmd, p)
	}
	fmt.Fprintf(out, "total: %d files, %d -> %d bytes (%.1f%% removed), %.2f MB/s\n",
		total.FileCount, total.BytesBefore, total.BytesAfter, total.CompressionRatio()*100, total.ThroughputMBPerSec())
	for i, f := range total.TopFiles {
		fmt.Fprintf(out, "  #%d %s: saved %d bytes\n", i+1, f.Path, f.BytesSaved())
	}
}
