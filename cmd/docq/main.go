package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/docq-ai/docq/internal/models"
	"github.com/docq-ai/docq/pkg/config"
	"github.com/docq-ai/docq/pkg/rag"
)

type flags struct {
	configPath string
	ingest     string
	topK       int
	model      string
	streaming  bool
}

func main() {
	f := parseFlags()

	cfg, err := config.LoadConfig(f.configPath)
	if err != nil {
		log.Fatal(err)
	}
	applyFlags(cfg, f)

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %s", e.Error())
		}
		os.Exit(1)
	}

	if err := cfg.EnsureDirs(); err != nil {
		log.Fatal(err)
	}

	if err := run(cfg, f); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() flags {
	var f flags
	flag.StringVar(&f.configPath, "config", "", "Path to config file")
	flag.StringVar(&f.ingest, "ingest", "", "Comma-separated files or directories to ingest before chat")
	flag.IntVar(&f.topK, "k", 0, "Number of chunks to retrieve per question")
	flag.StringVar(&f.model, "model", "", "Chat model to use")
	flag.BoolVar(&f.streaming, "stream", true, "Enable streaming responses")
	flag.Parse()
	return f
}

func applyFlags(cfg *config.Config, f flags) {
	if f.topK > 0 {
		cfg.Retrieval.TopK = f.topK
	}
	if f.model != "" {
		cfg.LLM.Model = f.model
	}
	if !f.streaming {
		off := false
		cfg.UI.Streaming = &off
	}
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func run(cfg *config.Config, f flags) error {
	engine, err := rag.FromConfig(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx := context.Background()

	if f.ingest != "" {
		paths := strings.Split(f.ingest, ",")
		for i := range paths {
			paths[i] = strings.TrimSpace(paths[i])
		}
		if err := ingest(ctx, engine, paths); err != nil {
			return err
		}
	}

	return chatLoop(ctx, engine, cfg)
}

func ingest(ctx context.Context, engine *rag.Engine, paths []string) error {
	color.Blue("\nIndexing %d path(s)...\n", len(paths))

	var bar *progressbar.ProgressBar
	stage := ""

	result, err := engine.Ingest(ctx, paths, func(p rag.Progress) {
		if p.Stage != stage {
			if bar != nil {
				bar.Finish()
				fmt.Println()
			}
			stage = p.Stage
			bar = getProgressBar(p.Total, stageDescription(p.Stage))
		}
		bar.Set(p.Done)
	})
	if bar != nil {
		bar.Finish()
		fmt.Println()
	}
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	for _, skipped := range result.FilesSkipped {
		color.Yellow("skipped %s: %s", skipped.Path, skipped.Reason)
	}
	color.Green("✓ Indexed %d file(s): %d chunks stored in %.2fs\n",
		result.FilesLoaded, result.ChunksStored, result.Duration.Seconds())

	return nil
}

func stageDescription(stage string) string {
	switch stage {
	case "load":
		return " Loading documents"
	case "split":
		return " Chunking documents"
	case "embed":
		return " Embedding chunks"
	case "store":
		return " Storing in vector database"
	default:
		return " Working"
	}
}

func chatLoop(ctx context.Context, engine *rag.Engine, cfg *config.Config) error {
	color.Cyan("\nAsk questions about your documents (type 'exit' to quit, ':stats', ':sources', ':clear')")

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		query := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(query) {
		case "":
			continue
		case "exit", "quit":
			return nil
		case ":stats":
			printStats(ctx, engine)
			continue
		case ":sources":
			printSources(ctx, engine)
			continue
		case ":clear":
			if err := engine.Clear(ctx); err != nil {
				color.Red("Failed to clear index: %v\n", err)
			} else {
				color.Green("Index cleared\n")
			}
			continue
		}

		if cfg.StreamingEnabled() {
			streamAnswer(ctx, engine, query, cfg.Retrieval.TopK, assistantPrompt)
		} else {
			spinner := getSpinner(" Thinking...")
			answer, err := engine.Query(ctx, query, cfg.Retrieval.TopK)
			spinner.Finish()
			fmt.Print("\r")

			if err != nil {
				color.Red("Error: %v\n", err)
				continue
			}
			assistantPrompt("\nAssistant: %s\n", answer.Text)
			printCitations(answer.Sources)
			color.HiBlack("(%.2fs)\n", answer.Seconds)
		}
	}

	return nil
}

func streamAnswer(ctx context.Context, engine *rag.Engine, query string, k int, assistantPrompt func(string, ...interface{})) {
	spinner := getSpinner(" Searching documents...")
	stream, sources, err := engine.StreamQuery(ctx, query, k)
	spinner.Finish()
	fmt.Print("\r")

	if err != nil {
		color.Red("Error: %v\n", err)
		return
	}

	assistantPrompt("\nAssistant: ")
	for chunk := range stream {
		if strings.HasPrefix(chunk, "Error:") {
			color.Red("\n%s\n", chunk)
			return
		}
		fmt.Print(chunk)
	}
	fmt.Println()
	printCitations(sources)
}

func printCitations(sources []models.Source) {
	if len(sources) == 0 {
		return
	}
	color.HiBlack("\nSources:")
	for _, src := range sources {
		if src.Page > 0 {
			color.HiBlack("  [%d] %s (page %d): %s", src.Index, src.File, src.Page, src.Preview)
		} else {
			color.HiBlack("  [%d] %s: %s", src.Index, src.File, src.Preview)
		}
	}
}

func printStats(ctx context.Context, engine *rag.Engine) {
	stats, err := engine.Stats(ctx)
	if err != nil {
		color.Red("Failed to get stats: %v\n", err)
		return
	}
	color.Blue("Chunks indexed:  %d", stats.ChunkCount)
	color.Blue("Source files:    %d", len(stats.SourceFiles))
	color.Blue("Embedding model: %s", stats.EmbeddingModel)
	color.Blue("Chat model:      %s", stats.ChatModel)
}

func printSources(ctx context.Context, engine *rag.Engine) {
	stats, err := engine.Stats(ctx)
	if err != nil {
		color.Red("Failed to get sources: %v\n", err)
		return
	}
	if len(stats.SourceFiles) == 0 {
		color.Yellow("No documents indexed")
		return
	}
	for i, file := range stats.SourceFiles {
		color.Blue("%d. %s", i+1, file)
	}
}
