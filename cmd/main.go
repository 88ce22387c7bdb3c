package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"
	"github.com/xhad/anyparse/pkg/anyparser"
	cfgPkg "github.com/xhad/anyparse/pkg/config"
	"github.com/xhad/anyparse/pkg/llm"
	"github.com/xhad/anyparse/pkg/loader"
	"github.com/xhad/anyparse/pkg/store"
)

type Config struct {
	File      string
	Folder    string
	URL       string
	Format    string
	Model     string
	OCRPreset string
	OCRLang   string
	MaxDepth  int
	MaxExecs  int
	Strategy  string
	Scope     string
	Ingest    bool
	DBUrl     string
	TableName string
	VectorDim int
	ChunkSize int
	BatchSize int
	APIKey    string
	APIURL    string
	LLMURL    string
	LLMModel  string
}

func main() {
	config := parseFlags()

	if err := run(config); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() Config {
	var config Config
	var configPath string

	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.StringVar(&config.File, "file", "", "File to parse (comma-separated for multiple)")
	flag.StringVar(&config.Folder, "folder", "", "Folder to parse")
	flag.StringVar(&config.URL, "url", "", "URL to crawl")
	flag.StringVar(&config.Format, "format", "markdown", "Output format (markdown, json, html)")
	flag.StringVar(&config.Model, "model", "text", "Processing model (text, ocr, vlm, lam)")
	flag.StringVar(&config.OCRPreset, "ocr-preset", "", "OCR preset")
	flag.StringVar(&config.OCRLang, "ocr-lang", "", "OCR languages (comma-separated)")
	flag.IntVar(&config.MaxDepth, "max-depth", 2, "Maximum crawl depth")
	flag.IntVar(&config.MaxExecs, "max-executions", 10, "Maximum pages to crawl")
	flag.StringVar(&config.Strategy, "strategy", "LIFO", "Crawl strategy (LIFO, FIFO)")
	flag.StringVar(&config.Scope, "scope", "subtree", "Crawl traversal scope (subtree, domain)")
	flag.BoolVar(&config.Ingest, "ingest", false, "Ingest loaded documents into pgvector")
	flag.StringVar(&config.DBUrl, "db-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	flag.StringVar(&config.TableName, "table", "documents", "PostgreSQL table name")
	flag.IntVar(&config.VectorDim, "vector-dim", 768, "Vector dimension")
	flag.IntVar(&config.ChunkSize, "chunk-size", 1000, "Size of text chunks for ingestion")
	flag.IntVar(&config.BatchSize, "batch-size", 0, "Number of chunks stored per database batch")
	flag.StringVar(&config.APIKey, "api-key", os.Getenv("ANYPARSER_API_KEY"), "Anyparser API key")
	flag.StringVar(&config.APIURL, "api-url", os.Getenv("ANYPARSER_API_URL"), "Anyparser API URL")
	flag.StringVar(&config.LLMURL, "ollama-url", os.Getenv("OLLAMA_BASE_URL"), "Ollama server URL")
	flag.StringVar(&config.LLMModel, "embed-model", "", "Ollama embedding model")
	flag.Parse()

	// Load config file if specified
	if cfg, err := cfgPkg.LoadConfig(configPath); err == nil {
		if config.APIKey == "" {
			config.APIKey = cfg.Anyparser.APIKey
		}
		if config.APIURL == "" {
			config.APIURL = cfg.Anyparser.APIURL
		}
		if config.DBUrl == "" {
			config.DBUrl = cfg.Database.URL
		}
		if config.LLMURL == "" {
			config.LLMURL = cfg.LLM.BaseURL
		}
		if config.LLMModel == "" {
			config.LLMModel = cfg.LLM.Model
		}
		if config.BatchSize == 0 {
			config.BatchSize = cfg.Database.BatchSize
		}
	}

	return config
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

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("docs"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func run(config Config) error {
	ctx := context.Background()

	option := anyparser.Option{
		APIKey:         config.APIKey,
		APIURL:         config.APIURL,
		Format:         config.Format,
		Model:          config.Model,
		OCRPreset:      config.OCRPreset,
		MaxDepth:       config.MaxDepth,
		MaxExecutions:  config.MaxExecs,
		Strategy:       config.Strategy,
		TraversalScope: config.Scope,
	}
	if config.OCRLang != "" {
		option.OCRLanguage = strings.Split(config.OCRLang, ",")
	}

	docs, err := load(ctx, config, option)
	if err != nil {
		return err
	}

	color.Green("✓ Loaded %d documents\n", len(docs))
	printDocuments(docs)

	if !config.Ingest {
		return nil
	}

	return ingest(ctx, config, docs)
}

func load(ctx context.Context, config Config, option anyparser.Option) ([]schema.Document, error) {
	spinner := getSpinner(" Parsing with Anyparser...")
	defer spinner.Finish()

	switch {
	case config.Folder != "":
		folderLoader, err := loader.NewFolderWithConfig(loader.FolderConfig{
			Path:      config.Folder,
			Anyparser: option,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize folder loader: %v", err)
		}

		docs, err := folderLoader.Load(ctx)
		if err != nil {
			return nil, err
		}

		if skipped := folderLoader.Skipped(); len(skipped) > 0 {
			color.Yellow("Skipped %d files over the folder limit: %s\n",
				len(skipped), strings.Join(skipped, ", "))
		}
		return docs, nil

	case config.URL != "":
		urlLoader, err := loader.NewWithConfig(loader.LoaderConfig{
			URL:       config.URL,
			Anyparser: option,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize loader: %v", err)
		}
		return urlLoader.Load(ctx)

	case config.File != "":
		fileLoader, err := loader.NewWithConfig(loader.LoaderConfig{
			FilePaths: strings.Split(config.File, ","),
			Anyparser: option,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize loader: %v", err)
		}
		return fileLoader.Load(ctx)

	default:
		return nil, fmt.Errorf("one of -file, -folder or -url is required")
	}
}

func printDocuments(docs []schema.Document) {
	heading := color.New(color.FgCyan, color.Bold).PrintfFunc()

	for i, doc := range docs {
		heading("\nDocument %d\n", i+1)
		fmt.Println(strings.Repeat("=", 50))

		if url, ok := doc.Metadata["url"]; ok {
			fmt.Printf("URL: %v\n", url)
		}
		if title, ok := doc.Metadata["title"]; ok {
			fmt.Printf("Title: %v\n", title)
		}

		preview := doc.PageContent
		if len(preview) > 500 {
			preview = preview[:500]
		}
		fmt.Printf("\nContent (first 500 characters):\n%s\n", preview)

		fmt.Println("\nMetadata:")
		for key, value := range doc.Metadata {
			if key == "url" || key == "title" {
				continue
			}
			fmt.Printf("%s: %v\n", key, value)
		}
	}
}

func ingest(ctx context.Context, config Config, docs []schema.Document) error {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(config.ChunkSize),
		textsplitter.WithChunkOverlap(200),
	)

	chunks, err := textsplitter.SplitDocuments(splitter, docs)
	if err != nil {
		return fmt.Errorf("failed to split documents: %v", err)
	}
	color.Green("✓ Split into %d chunks\n", len(chunks))

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:   config.LLMModel,
		BaseURL: config.LLMURL,
	})
	if err != nil {
		return err
	}

	vectorStore, err := store.NewWithConfig(store.VectorStoreConfig{
		ConnString: config.DBUrl,
		TableName:  config.TableName,
		VectorDim:  config.VectorDim,
	}, embedder)
	if err != nil {
		return fmt.Errorf("failed to initialize vector store: %v", err)
	}
	defer vectorStore.Close()

	storageBar := getProgressBar(len(chunks), " Storing in vector database...")
	batchSize := config.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	for i := 0; i < len(chunks); i += batchSize {
		end := i + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		if err := vectorStore.Store(ctx, chunks[i:end], i); err != nil {
			return fmt.Errorf("failed to store batch: %v", err)
		}
		storageBar.Add(end - i)
	}
	storageBar.Finish()
	color.Green("\n✓ Storage complete\n")

	return nil
}
