package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/MeKo-Tech/longimg/internal/config"
	"github.com/MeKo-Tech/longimg/internal/gallery"
	"github.com/MeKo-Tech/longimg/internal/stitch"
	"github.com/spf13/cobra"
)

// runCmd represents the run command that stitches images into long images.
var runCmd = &cobra.Command{
	Use:   "run [dir|files...]",
	Short: "Stitch a directory or list of images into long images",
	Long: `Stitch images into vertically stacked long images.

With a directory argument the supported images directly inside it are
collected and ordered by the configured sort key. With file arguments the
given order is kept. The ordered set is partitioned into groups of
--group-size members and every group with at least two members becomes one
JPEG artifact in the output directory.

Supported formats: JPEG, PNG, BMP, TIFF, WebP

Examples:
  longimg run ./photos
  longimg run ./photos --group-size 6 --sort time
  longimg run a.jpg b.jpg c.jpg --output ./long
  longimg run ./photos --workers 4 --progress`,
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	RunE:         runRunCommand,
}

// runSettings are the effective settings for one invocation, merged from
// the centralized configuration and CLI flag overrides.
type runSettings struct {
	inputs    []string
	outputDir string
	sort      gallery.SortKey
	groupSize int
	engine    stitch.Config
	quiet     bool
	progress  bool
}

// settingsFromConfig maps centralized configuration to run settings.
// CLI flags override config file values through Viper's precedence system.
func settingsFromConfig(cfg *config.Config, cmd *cobra.Command, args []string) runSettings {
	s := runSettings{
		inputs:    args,
		outputDir: cfg.Output.Dir,
		sort:      gallery.SortKey(cfg.Input.Sort),
		groupSize: cfg.Stitch.GroupSize,
		engine: stitch.Config{
			BaseName: cfg.Output.BaseName,
			Quality:  cfg.Output.Quality,
			Workers:  cfg.Stitch.Workers,
		},
	}

	if len(s.inputs) == 0 {
		s.inputs = []string{cfg.Input.Dir}
	}
	if cmd.Flags().Changed("output") {
		s.outputDir, _ = cmd.Flags().GetString("output")
	}
	if cmd.Flags().Changed("sort") {
		key, _ := cmd.Flags().GetString("sort")
		s.sort = gallery.SortKey(key)
	}
	if cmd.Flags().Changed("group-size") {
		s.groupSize, _ = cmd.Flags().GetInt("group-size")
	}
	if cmd.Flags().Changed("base-name") {
		s.engine.BaseName, _ = cmd.Flags().GetString("base-name")
	}
	if cmd.Flags().Changed("quality") {
		s.engine.Quality, _ = cmd.Flags().GetInt("quality")
	}
	if cmd.Flags().Changed("workers") {
		s.engine.Workers, _ = cmd.Flags().GetInt("workers")
	}

	s.quiet, _ = cmd.Flags().GetBool("quiet")
	s.progress, _ = cmd.Flags().GetBool("progress")

	return s
}

// collectRefs resolves the input arguments into one ordered reference list.
// Directory listings are ordered by the sort key; explicit file arguments
// keep the caller's order.
func collectRefs(inputs []string, key gallery.SortKey) ([]gallery.Ref, error) {
	var refs []gallery.Ref

	for _, input := range inputs {
		info, err := os.Stat(input)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", input, err)
		}

		if info.IsDir() {
			found, err := gallery.Discover(input)
			if err != nil {
				return nil, err
			}
			gallery.Sort(found, key)
			refs = append(refs, found...)
			continue
		}

		ref, err := gallery.Resolve(input)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}

	return refs, nil
}

// eventSink selects how job events are surfaced for this invocation.
func eventSink(cmd *cobra.Command, s runSettings) stitch.EventSink {
	if s.quiet {
		return stitch.NoOpSink{}
	}
	if s.progress {
		return stitch.NewConsoleSink(cmd.OutOrStdout(), "stitching: ")
	}
	return stitch.NewLogSink(slog.Default(), slog.LevelDebug)
}

func runRunCommand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	s := settingsFromConfig(cfg, cmd, args)

	if !gallery.ValidSortKey(string(s.sort)) {
		return fmt.Errorf("invalid sort key %q (expected name, size or time)", s.sort)
	}

	refs, err := collectRefs(s.inputs, s.sort)
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		return fmt.Errorf("no supported images found in %v", s.inputs)
	}

	chunks := gallery.Chunk(refs, s.groupSize)
	groups := make([]stitch.Group, len(chunks))
	for i, c := range chunks {
		groups[i] = stitch.Group(c)
	}

	if !s.quiet {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Stitching %d image(s) in %d group(s)...\n",
			len(refs), len(groups))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	engine := stitch.NewEngine(s.engine, eventSink(cmd, s))
	res, err := engine.Process(ctx, stitch.Job{OutputDir: s.outputDir, Groups: groups})
	if err != nil {
		return fmt.Errorf("stitching failed: %w", err)
	}

	printSummary(cmd, res, s.quiet)
	return nil
}

// printSummary reports the terminal result and per-run statistics.
func printSummary(cmd *cobra.Command, res *stitch.Result, quiet bool) {
	if quiet {
		return
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "%s: %s\n", res.Status, res.Message)
	for _, art := range res.Artifacts {
		_, _ = fmt.Fprintf(out, "  %s (%d image(s), %dx%d)\n", art.Name, art.Members, art.Width, art.Height)
	}
	_, _ = fmt.Fprintf(out, "  Skipped groups: %d\n", res.SkippedGroups)
	_, _ = fmt.Fprintf(out, "  Failed images: %d\n", res.FailedImages)
	_, _ = fmt.Fprintf(out, "  Duration: %v\n", res.Duration.Round(time.Millisecond))
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("output", "o", config.DefaultOutputDir, "output directory for long images")
	runCmd.Flags().IntP("group-size", "n", config.DefaultGroupSize, "images per long image")
	runCmd.Flags().String("sort", config.DefaultSort, "directory listing order: name, size, time")
	runCmd.Flags().String("base-name", config.DefaultBaseName, "artifact file name without extension")
	runCmd.Flags().Int("quality", config.DefaultQuality, "JPEG quality for written artifacts (1-100)")
	runCmd.Flags().IntP("workers", "w", 1, "number of groups processed concurrently")
	runCmd.Flags().Bool("progress", false, "show progress percentage")
	runCmd.Flags().Bool("quiet", false, "suppress all non-error output")
}
