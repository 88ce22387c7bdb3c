package loader

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"
	"github.com/xhad/anyparse/internal/models"
	"github.com/xhad/anyparse/internal/types"
	"github.com/xhad/anyparse/pkg/anyparser"
)

var (
	ErrNoSource   = errors.New("loader: either file paths or a URL must be provided")
	ErrBothSource = errors.New("loader: only one of file paths or URL should be provided")
)

// LoaderConfig describes what to load and how. Exactly one of
// FilePaths or URL must be set.
type LoaderConfig struct {
	FilePaths []string
	URL       string

	// Anyparser carries the request options (credentials, format,
	// model, OCR and crawl settings) for the underlying client.
	Anyparser anyparser.Option

	// Parser overrides the API client, used in tests.
	Parser types.Parser
}

// AnyparserLoader loads documents through the Anyparser API and maps
// each returned unit onto a langchaingo schema.Document.
type AnyparserLoader struct {
	config LoaderConfig
	parser types.Parser
	format string
}

var _ documentloaders.Loader = (*AnyparserLoader)(nil)

func NewWithConfig(config LoaderConfig) (*AnyparserLoader, error) {
	if len(config.FilePaths) == 0 && config.URL == "" {
		return nil, ErrNoSource
	}
	if len(config.FilePaths) > 0 && config.URL != "" {
		return nil, ErrBothSource
	}

	if config.URL != "" {
		config.Anyparser.URL = config.URL
		config.Anyparser.Model = anyparser.ModelCrawler
	}

	parser := config.Parser
	if parser == nil {
		client, err := anyparser.NewWithOptions(config.Anyparser)
		if err != nil {
			return nil, err
		}
		config.Anyparser = client.Options()
		parser = client
	}

	format := config.Anyparser.Format
	if format == "" {
		format = anyparser.FormatMarkdown
	}

	return &AnyparserLoader{
		config: config,
		parser: parser,
		format: format,
	}, nil
}

// Load performs one parse or crawl round trip and returns the mapped
// documents. Client failures are returned unchanged, with no partial
// documents.
func (l *AnyparserLoader) Load(ctx context.Context) ([]schema.Document, error) {
	if l.config.URL != "" {
		output, err := l.parser.Crawl(ctx, l.config.URL)
		if err != nil {
			return nil, err
		}
		return l.mapOutput(output)
	}

	// markdown/html responses carry a single rendered body, so each
	// file goes out as its own request to keep one document per input
	if l.format != anyparser.FormatJSON && len(l.config.FilePaths) > 1 {
		var docs []schema.Document
		for _, path := range l.config.FilePaths {
			output, err := l.parser.Parse(ctx, path)
			if err != nil {
				return nil, err
			}
			docs = append(docs, l.rawDocument(output.Raw, path))
		}
		return docs, nil
	}

	output, err := l.parser.Parse(ctx, l.config.FilePaths...)
	if err != nil {
		return nil, err
	}
	return l.mapOutput(output)
}

// LoadAndSplit loads documents and splits them with the given splitter.
func (l *AnyparserLoader) LoadAndSplit(ctx context.Context, splitter textsplitter.TextSplitter) ([]schema.Document, error) {
	docs, err := l.Load(ctx)
	if err != nil {
		return nil, err
	}
	return textsplitter.SplitDocuments(splitter, docs)
}

func (l *AnyparserLoader) mapOutput(output *models.ParseOutput) ([]schema.Document, error) {
	if l.format != anyparser.FormatJSON {
		source := l.config.URL
		if source == "" {
			source = l.config.FilePaths[0]
		}
		return []schema.Document{l.rawDocument(output.Raw, source)}, nil
	}

	var docs []schema.Document
	for i := range output.Results {
		docs = append(docs, l.mapResult(&output.Results[i])...)
	}
	return docs, nil
}

func (l *AnyparserLoader) rawDocument(content, source string) schema.Document {
	metadata := map[string]any{
		"source": source,
		"format": l.format,
	}

	if l.format == anyparser.FormatHTML {
		if title := htmlTitle(content); title != "" {
			metadata["title"] = title
		}
	}

	return schema.Document{
		PageContent: content,
		Metadata:    metadata,
	}
}

func (l *AnyparserLoader) mapResult(result *models.Result) []schema.Document {
	switch {
	case result.IsCrawl():
		return l.crawlDocuments(result)
	case result.IsPdf():
		return l.pdfDocuments(result)
	default:
		return []schema.Document{{
			PageContent: result.Markdown,
			Metadata: map[string]any{
				"source":            l.sourceFor(result),
				"format":            l.format,
				"rid":               result.RID,
				"checksum":          result.Checksum,
				"total_characters":  result.TotalCharacters,
				"original_filename": result.OriginalFilename,
			},
		}}
	}
}

func (l *AnyparserLoader) pdfDocuments(result *models.Result) []schema.Document {
	docs := make([]schema.Document, 0, len(result.Items))
	totalPages := len(result.Items)

	for _, page := range result.Items {
		content := page.Markdown
		if content == "" {
			content = page.Text
		}

		docs = append(docs, schema.Document{
			PageContent: content,
			Metadata: map[string]any{
				"source":            l.sourceFor(result),
				"format":            l.format,
				"page_number":       page.PageNumber,
				"total_pages":       totalPages,
				"rid":               result.RID,
				"checksum":          result.Checksum,
				"total_characters":  result.TotalCharacters,
				"original_filename": result.OriginalFilename,
				"images":            imageMetadata(page.Images),
			},
		})
	}

	return docs
}

func (l *AnyparserLoader) crawlDocuments(result *models.Result) []schema.Document {
	docs := make([]schema.Document, 0, len(result.URLs))
	totalPages := len(result.URLs)

	for i, item := range result.URLs {
		content := item.Markdown
		if content == "" {
			content = item.Text
		}

		docs = append(docs, schema.Document{
			PageContent: content,
			Metadata: map[string]any{
				"source":           item.URL,
				"format":           l.format,
				"page_number":      i + 1,
				"total_pages":      totalPages,
				"url":              item.URL,
				"title":            item.Title,
				"status_message":   item.StatusMessage,
				"status_code":      item.StatusCode,
				"politeness_delay": item.PolitenessDelay,
				"total_characters": item.TotalCharacters,
				"crawled_at":       item.CrawledAt,
				"images":           imageMetadata(item.Images),
			},
		})
	}

	return docs
}

// sourceFor resolves which configured input path a result belongs to.
// The API echoes the uploaded file name, which is all there is to go
// on when several files were sent in one request.
func (l *AnyparserLoader) sourceFor(result *models.Result) string {
	if len(l.config.FilePaths) == 1 {
		return l.config.FilePaths[0]
	}

	for _, path := range l.config.FilePaths {
		if filepath.Base(path) == result.OriginalFilename {
			return path
		}
	}

	return result.OriginalFilename
}

func imageMetadata(images []models.Image) []map[string]any {
	out := make([]map[string]any, 0, len(images))
	for _, img := range images {
		out = append(out, map[string]any{
			"name":  img.DisplayName,
			"index": img.ImageIndex,
			"page":  img.Page,
		})
	}
	return out
}

func htmlTitle(content string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
