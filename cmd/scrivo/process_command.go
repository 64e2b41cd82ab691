package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"scrivo/internal/pipeline"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var (
		outputDir       string
		outputFormats   []string
		force           bool
		keepAudio       bool
		language        string
		parallel        bool
		workers         int
		continueOnError bool
		verbose         bool
	)

	cmd := &cobra.Command{
		Use:   "process <file>...",
		Short: "Transcribe media files in the foreground",
		Long: `Run one or more media files through the transcription pipeline without the
daemon. Results land in the configured output directory (or --output-dir),
and the shared result cache is reused when enabled.

Examples:
  scrivo process lecture.mp4
  scrivo process --format txt --format json *.mp3
  scrivo process --parallel --continue-on-error recordings/*.wav`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			// Outcomes are keyed by input path, so duplicates collapse up front.
			inputs := make([]string, 0, len(args))
			seen := make(map[string]struct{}, len(args))
			for _, arg := range args {
				abs, err := filepath.Abs(strings.TrimSpace(arg))
				if err != nil {
					return fmt.Errorf("resolve %s: %w", arg, err)
				}
				if _, ok := seen[abs]; ok {
					continue
				}
				seen[abs] = struct{}{}
				inputs = append(inputs, abs)
			}

			logger, err := newRunLogger(verbose)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			processor, err := buildRunProcessor(cfg, logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			opts := processor.BatchDefaults()
			opts.OutputDir = strings.TrimSpace(outputDir)
			opts.Formats = outputFormats
			opts.Force = force
			opts.KeepAudio = keepAudio
			opts.Language = strings.TrimSpace(language)
			if cmd.Flags().Changed("parallel") {
				opts.Parallel = parallel
			}
			if workers > 0 {
				opts.MaxWorkers = workers
			}
			if cmd.Flags().Changed("continue-on-error") {
				opts.ContinueOnError = continueOnError
			}
			opts.Progress = newProgressPrinter(out)

			started := time.Now()
			outcomes, failures, err := processor.ProcessAll(cmd.Context(), inputs, opts)
			defer func() {
				for _, outcome := range outcomes {
					_ = outcome.Close()
				}
			}()
			if err != nil {
				return err
			}

			for _, input := range inputs {
				if failure, ok := failures[input]; ok {
					fmt.Fprintf(out, "Failed %s: %v\n", filepath.Base(input), failure)
					continue
				}
				printProcessOutcome(out, outcomes[input])
			}

			if len(failures) > 0 {
				return fmt.Errorf("%d of %d files failed", len(failures), len(inputs))
			}
			if len(inputs) > 1 {
				fmt.Fprintf(out, "Processed %d files in %s\n", len(inputs), time.Since(started).Round(time.Millisecond))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Directory for transcript output (default: configured output_dir)")
	cmd.Flags().StringSliceVar(&outputFormats, "format", nil, "Output formats to write (repeatable; default: configured formats)")
	cmd.Flags().BoolVar(&force, "force", false, "Reprocess even when a cached result exists")
	cmd.Flags().BoolVar(&keepAudio, "keep-audio", false, "Keep the intermediate converted audio file")
	cmd.Flags().StringVar(&language, "language", "", "Transcription language hint (e.g. en)")
	cmd.Flags().BoolVar(&parallel, "parallel", false, "Process files concurrently")
	cmd.Flags().IntVar(&workers, "workers", 0, "Maximum concurrent workers (default: configured max_workers)")
	cmd.Flags().BoolVar(&continueOnError, "continue-on-error", false, "Keep processing remaining files when one fails")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log pipeline detail alongside progress lines")

	return cmd
}

// newProgressPrinter returns a callback that writes percent-and-stage lines,
// collapsing consecutive repeats. Safe for concurrent batch workers.
func newProgressPrinter(out io.Writer) pipeline.ProgressFunc {
	var mu sync.Mutex
	last := ""
	return func(stage string, current, total int) {
		percent := 0
		if total > 0 {
			percent = current * 100 / total
			if percent > 100 {
				percent = 100
			}
		}
		line := fmt.Sprintf("[%3d%%] %s", percent, stage)
		mu.Lock()
		defer mu.Unlock()
		if line == last {
			return
		}
		last = line
		fmt.Fprintln(out, line)
	}
}

func printProcessOutcome(out io.Writer, outcome *pipeline.Outcome) {
	if outcome == nil {
		return
	}
	name := filepath.Base(outcome.Source)
	if name == "" || name == "." {
		name = outcome.Input
	}
	marker := ""
	if outcome.FromCache {
		marker = " (cached)"
	}
	fmt.Fprintf(out, "Transcribed %s: %d utterances in %s%s\n",
		name, outcome.UtteranceCount(), outcome.Elapsed.Round(time.Millisecond), marker)
	for _, path := range outcome.OutputPaths {
		fmt.Fprintf(out, "  wrote %s\n", path)
	}
	if outcome.AudioPath != "" {
		fmt.Fprintf(out, "  kept audio %s\n", outcome.AudioPath)
	}
}
