package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"scrivo/internal/analysis"
	"scrivo/internal/pipeline"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var (
		outputDir    string
		force        bool
		language     string
		systemPrompt string
		promptFile   string
		printReport  bool
		verbose      bool
	)

	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Transcribe a media file and generate an LLM analysis report",
		Long: `Run a media file through the transcription pipeline, then send the
transcript to the configured LLM for analysis. Cached transcriptions are
reused unless --force is given, so re-analyzing a file does not repeat the
transcription work.

The report lands next to the other transcript documents as
<name>` + analysis.ReportSuffix + `.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(cfg.AnalysisLLM().APIKey) == "" {
				return fmt.Errorf("analysis requires an API key; set analysis.api_key in config.toml or export SCRIVO_LLM_API_KEY")
			}

			input, err := filepath.Abs(strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("resolve %s: %w", args[0], err)
			}

			var userTemplate string
			if promptFile != "" {
				template, err := readPromptFile(promptFile)
				if err != nil {
					return err
				}
				userTemplate = template
			}

			logger, err := newRunLogger(verbose)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			processor, err := buildRunProcessor(cfg, logger)
			if err != nil {
				return err
			}
			analyzer, err := buildRunAnalyzer(cfg, processor, logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			outcome, err := processor.Process(cmd.Context(), input, pipeline.ProcessOptions{
				OutputDir: strings.TrimSpace(outputDir),
				Force:     force,
				Language:  strings.TrimSpace(language),
				Progress:  newProgressPrinter(out),
			})
			if err != nil {
				return err
			}
			defer outcome.Close()
			printProcessOutcome(out, outcome)

			report, err := analyzer.AnalyzeOutcome(cmd.Context(), outcome, analysis.Request{
				SystemPrompt:       systemPrompt,
				UserPromptTemplate: userTemplate,
				OutputDir:          strings.TrimSpace(outputDir),
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Analysis written to %s (%d chunks)\n", report.Path, report.Chunks)
			if printReport {
				fmt.Fprintln(out)
				fmt.Fprintln(out, report.Text)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Directory for transcript and report output (default: configured output_dir)")
	cmd.Flags().BoolVar(&force, "force", false, "Re-transcribe even when a cached result exists")
	cmd.Flags().StringVar(&language, "language", "", "Transcription language hint (e.g. en)")
	cmd.Flags().StringVar(&systemPrompt, "system-prompt", "", "Override the built-in analysis system prompt")
	cmd.Flags().StringVar(&promptFile, "prompt-file", "", "File holding the per-chunk user prompt template ("+analysis.PlaceholderTranscription+" marks the transcript position)")
	cmd.Flags().BoolVar(&printReport, "print", false, "Echo the report text to stdout")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log pipeline detail alongside progress lines")

	return cmd
}

func readPromptFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read prompt file: %w", err)
	}
	template := strings.TrimSpace(string(data))
	if template == "" {
		return "", fmt.Errorf("prompt file %s is empty", path)
	}
	return template, nil
}
