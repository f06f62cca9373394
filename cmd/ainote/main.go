// Package main provides the ainote command line tool: batch summarization
// of PDF literature through a configured AI provider, with the results
// written out as note HTML files.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"

	"github.com/BlueBlueKitty/zotero-ainote/pkg/batch"
	"github.com/BlueBlueKitty/zotero-ainote/pkg/config"
	"github.com/BlueBlueKitty/zotero-ainote/pkg/llm"
	"github.com/BlueBlueKitty/zotero-ainote/pkg/logging"
	"github.com/BlueBlueKitty/zotero-ainote/pkg/notes"
	"github.com/BlueBlueKitty/zotero-ainote/pkg/pdf"
)

const version = "0.1.0"

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// CLIConfig holds command-line configuration.
type CLIConfig struct {
	ConfigFile  string
	Endpoint    string
	APIKey      string
	Model       string
	Temperature float64
	Prompt      string
	PromptFile  string
	NoStream    bool
	NotesDir    string
	Exclude     string
	TokenBudget int
	ShowVersion bool
}

func main() {
	cli := parseFlags()

	if cli.ShowVersion {
		fmt.Printf("ainote v%s\n", version)
		return
	}

	if err := run(cli, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", failureStyle.Render(err.Error()))
		os.Exit(1)
	}
}

func parseFlags() *CLIConfig {
	cli := &CLIConfig{}

	flag.StringVar(&cli.ConfigFile, "config", "", "Path to configuration file (default ~/.ainote/config.json)")
	flag.StringVar(&cli.Endpoint, "endpoint", "", "AI provider endpoint URL (overrides config)")
	flag.StringVar(&cli.APIKey, "api-key", os.Getenv("AINOTE_API_KEY"), "API key (overrides config)")
	flag.StringVar(&cli.Model, "model", "", "Model name (overrides config)")
	flag.Float64Var(&cli.Temperature, "temperature", -1, "Sampling temperature 0.0-1.0 (overrides config)")
	flag.StringVar(&cli.Prompt, "prompt", "", "Summary prompt; {document} marks where the text is inserted")
	flag.StringVar(&cli.PromptFile, "prompt-file", "", "YAML file containing the summary prompt")
	flag.BoolVar(&cli.NoStream, "no-stream", false, "Disable streaming responses")
	flag.StringVar(&cli.NotesDir, "notes-dir", "notes", "Directory to write summary notes into")
	flag.StringVar(&cli.Exclude, "exclude", "", "Glob pattern of file names to skip")
	flag.IntVar(&cli.TokenBudget, "max-tokens", pdf.DefaultTokenBudget, "Token budget for extracted document text")
	flag.BoolVar(&cli.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "ainote - AI summary notes for PDF literature\n\n")
		fmt.Fprintf(os.Stderr, "Usage: ainote [options] <pdf|glob> [...]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  ainote paper.pdf\n")
		fmt.Fprintf(os.Stderr, "  ainote -exclude 'draft-*' 'library/*.pdf'\n")
		fmt.Fprintf(os.Stderr, "  ainote -endpoint https://api.anthropic.com -model claude-3-5-sonnet-latest paper.pdf\n\n")
	}

	flag.Parse()
	return cli
}

func run(cli *CLIConfig, args []string) error {
	if len(args) == 0 {
		flag.Usage()
		return fmt.Errorf("no input documents given")
	}

	paths, err := resolvePaths(args, cli.Exclude)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no documents matched")
	}

	logger, _ := logging.NewLogger("ainote")
	defer logger.Close()

	aiCfg, err := resolveConfig(cli)
	if err != nil {
		return err
	}

	store, err := notes.NewStore(cli.NotesDir)
	if err != nil {
		return err
	}

	summarizer := llm.NewSummarizer(llm.Config{
		EndpointURL: aiCfg.EndpointURL,
		APIKey:      aiCfg.APIKey,
		Model:       aiCfg.Model,
		Temperature: aiCfg.Temperature,
		Prompt:      aiCfg.Prompt,
		Streaming:   aiCfg.Streaming,
	}, llm.WithLogger(logger))

	processor := batch.NewProcessor(batch.Pipeline{
		Extract: func(path string) (string, error) {
			text, err := pdf.ExtractText(path)
			if err != nil {
				return "", err
			}
			return pdf.TruncateToTokens(text, cli.TokenBudget), nil
		},
		Summarize: func(ctx context.Context, document string, sink func(string)) (string, error) {
			return summarizer.Summarize(ctx, document, sink)
		},
		Persist: func(parent, summary string) error {
			html, err := notes.RenderHTMLWithTitle(documentTitle(parent), summary)
			if err != nil {
				return err
			}
			note, err := store.Create(parent, documentTitle(parent), html)
			if err != nil {
				return err
			}
			logger.Infof("note %s written for %s", note.ID, parent)
			return nil
		},
	},
		batch.WithLogger(logger),
		batch.WithProgress(progressPrinter()),
	)

	// SIGINT finishes the current item and starts no further ones; a
	// second signal aborts outright.
	ctx := context.Background()
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nstopping after current item...")
		processor.Stop()
		<-sigChan
		os.Exit(1)
	}()

	summary := processor.Run(ctx, paths)

	fmt.Println()
	fmt.Println(headerStyle.Render(fmt.Sprintf("Done: %d succeeded, %d failed, %d skipped",
		summary.Succeeded, summary.Failed, summary.Skipped)))
	for _, failure := range summary.Failures {
		fmt.Println(failureStyle.Render(fmt.Sprintf("  %s: %v", failure.Path, failure.Err)))
	}
	if summary.Succeeded > 0 {
		fmt.Println(successStyle.Render(fmt.Sprintf("Notes written to %s", store.Dir())))
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d item(s) failed", summary.Failed)
	}
	return nil
}

// resolvePaths expands glob arguments into concrete file paths, dropping
// anything matched by the exclude pattern.
func resolvePaths(args []string, exclude string) ([]string, error) {
	var excludeGlob glob.Glob
	if exclude != "" {
		g, err := glob.Compile(exclude)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", exclude, err)
		}
		excludeGlob = g
	}

	var paths []string
	seen := make(map[string]bool)
	for _, arg := range args {
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", arg, err)
		}
		if matches == nil {
			matches = []string{arg}
		}
		for _, match := range matches {
			if seen[match] {
				continue
			}
			if excludeGlob != nil && excludeGlob.Match(filepath.Base(match)) {
				continue
			}
			seen[match] = true
			paths = append(paths, match)
		}
	}
	return paths, nil
}

// resolveConfig layers CLI flags over the persisted configuration.
func resolveConfig(cli *CLIConfig) (*config.AISection, error) {
	store, err := config.NewFileStore(cli.ConfigFile)
	if err != nil {
		return nil, err
	}
	section, err := config.LoadAISection(store)
	if err != nil {
		return nil, err
	}

	if cli.Endpoint != "" {
		section.EndpointURL = cli.Endpoint
	}
	if cli.APIKey != "" {
		section.APIKey = cli.APIKey
	}
	if cli.Model != "" {
		section.Model = cli.Model
	}
	if cli.Temperature >= 0 {
		section.Temperature = cli.Temperature
	}
	if cli.NoStream {
		section.Streaming = false
	}

	prompt, err := resolvePrompt(cli)
	if err != nil {
		return nil, err
	}
	if prompt != "" {
		section.Prompt = prompt
	}

	if err := section.Validate(); err != nil {
		return nil, err
	}
	return section, nil
}

// promptFile is the YAML shape of a prompt override file.
type promptFile struct {
	Prompt string `yaml:"prompt"`
}

func resolvePrompt(cli *CLIConfig) (string, error) {
	if cli.Prompt != "" {
		return cli.Prompt, nil
	}
	if cli.PromptFile == "" {
		return "", nil
	}
	raw, err := os.ReadFile(cli.PromptFile)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt file: %w", err)
	}
	var pf promptFile
	if err := yaml.Unmarshal(raw, &pf); err != nil {
		return "", fmt.Errorf("failed to parse prompt file: %w", err)
	}
	if pf.Prompt == "" {
		return "", fmt.Errorf("prompt file %s has no prompt field", cli.PromptFile)
	}
	return pf.Prompt, nil
}

// progressPrinter streams increments to stdout, printing a styled header
// when the item under way changes.
func progressPrinter() func(path, increment string) {
	current := ""
	return func(path, increment string) {
		if path != current {
			if current != "" {
				fmt.Println()
			}
			fmt.Println(headerStyle.Render("== " + path))
			current = path
		}
		fmt.Print(increment)
	}
}

func documentTitle(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}
