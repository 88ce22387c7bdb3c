package loader_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/anyparse/internal/models"
	"github.com/xhad/anyparse/pkg/anyparser"
	"github.com/xhad/anyparse/pkg/loader"
)

// fakeParser stands in for the API client so the loader can be tested
// without a network.
type fakeParser struct {
	output *models.ParseOutput
	err    error

	parseCalls [][]string
	crawlCalls []string

	// perPath lets multi-request (markdown) loads return a distinct
	// body per file.
	perPath map[string]*models.ParseOutput
}

func (f *fakeParser) Parse(_ context.Context, paths ...string) (*models.ParseOutput, error) {
	f.parseCalls = append(f.parseCalls, paths)
	if f.err != nil {
		return nil, f.err
	}
	if f.perPath != nil && len(paths) == 1 {
		if out, ok := f.perPath[paths[0]]; ok {
			return out, nil
		}
	}
	return f.output, nil
}

func (f *fakeParser) Crawl(_ context.Context, startURL string) (*models.ParseOutput, error) {
	f.crawlCalls = append(f.crawlCalls, startURL)
	if f.err != nil {
		return nil, f.err
	}
	return f.output, nil
}

func TestNewWithConfigValidation(t *testing.T) {
	_, err := loader.NewWithConfig(loader.LoaderConfig{})
	assert.ErrorIs(t, err, loader.ErrNoSource)

	_, err = loader.NewWithConfig(loader.LoaderConfig{
		FilePaths: []string{"test.pdf"},
		URL:       "http://example.com",
	})
	assert.ErrorIs(t, err, loader.ErrBothSource)
}

func TestNewWithConfigMissingCredentials(t *testing.T) {
	t.Setenv("ANYPARSER_API_KEY", "")
	t.Setenv("ANYPARSER_API_URL", "")

	// No Parser override, so the real client is constructed and must
	// fail before any network call
	_, err := loader.NewWithConfig(loader.LoaderConfig{
		FilePaths: []string{"test.pdf"},
	})
	assert.ErrorIs(t, err, anyparser.ErrMissingAPIKey)
}

func TestLoadSingleFileMarkdown(t *testing.T) {
	parser := &fakeParser{
		output: &models.ParseOutput{Raw: "# parsed markdown"},
	}

	l, err := loader.NewWithConfig(loader.LoaderConfig{
		FilePaths: []string{"docs/test.pdf"},
		Anyparser: anyparser.Option{Format: anyparser.FormatMarkdown},
		Parser:    parser,
	})
	require.NoError(t, err)

	docs, err := l.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, docs, 1)
	assert.Equal(t, "# parsed markdown", docs[0].PageContent)
	assert.Equal(t, "docs/test.pdf", docs[0].Metadata["source"])
	assert.Equal(t, "markdown", docs[0].Metadata["format"])
	assert.Equal(t, [][]string{{"docs/test.pdf"}}, parser.parseCalls)
}

func TestLoadMultiFileMarkdownOneDocumentPerFile(t *testing.T) {
	parser := &fakeParser{
		perPath: map[string]*models.ParseOutput{
			"a.txt": {Raw: "content a"},
			"b.txt": {Raw: "content b"},
			"c.txt": {Raw: "content c"},
		},
	}

	l, err := loader.NewWithConfig(loader.LoaderConfig{
		FilePaths: []string{"a.txt", "b.txt", "c.txt"},
		Anyparser: anyparser.Option{Format: anyparser.FormatMarkdown},
		Parser:    parser,
	})
	require.NoError(t, err)

	docs, err := l.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, docs, 3)
	assert.Equal(t, "content a", docs[0].PageContent)
	assert.Equal(t, "a.txt", docs[0].Metadata["source"])
	assert.Equal(t, "content c", docs[2].PageContent)
	assert.Equal(t, "c.txt", docs[2].Metadata["source"])
	assert.Len(t, parser.parseCalls, 3)
}

func TestLoadMultiFileJSON(t *testing.T) {
	parser := &fakeParser{
		output: &models.ParseOutput{
			Results: []models.Result{
				{RID: "r1", OriginalFilename: "a.txt", Checksum: "c1", Markdown: "doc a"},
				{RID: "r2", OriginalFilename: "b.txt", Checksum: "c2", Markdown: "doc b"},
			},
		},
	}

	l, err := loader.NewWithConfig(loader.LoaderConfig{
		FilePaths: []string{"docs/a.txt", "docs/b.txt"},
		Anyparser: anyparser.Option{Format: anyparser.FormatJSON},
		Parser:    parser,
	})
	require.NoError(t, err)

	docs, err := l.Load(context.Background())
	require.NoError(t, err)

	// One request, one document per file
	require.Len(t, parser.parseCalls, 1)
	require.Len(t, docs, 2)

	assert.Equal(t, "doc a", docs[0].PageContent)
	assert.Equal(t, "docs/a.txt", docs[0].Metadata["source"])
	assert.Equal(t, "r1", docs[0].Metadata["rid"])
	assert.Equal(t, "c1", docs[0].Metadata["checksum"])
	assert.Equal(t, "a.txt", docs[0].Metadata["original_filename"])

	assert.Equal(t, "doc b", docs[1].PageContent)
	assert.Equal(t, "docs/b.txt", docs[1].Metadata["source"])
}

func TestSourceMatchesFileNameExactly(t *testing.T) {
	// "a.txt" must not be attributed to "ba.txt" just because the
	// names share a suffix
	parser := &fakeParser{
		output: &models.ParseOutput{
			Results: []models.Result{
				{RID: "r1", OriginalFilename: "a.txt", Markdown: "doc a"},
				{RID: "r2", OriginalFilename: "ba.txt", Markdown: "doc ba"},
			},
		},
	}

	l, err := loader.NewWithConfig(loader.LoaderConfig{
		FilePaths: []string{"docs/ba.txt", "docs/a.txt"},
		Anyparser: anyparser.Option{Format: anyparser.FormatJSON},
		Parser:    parser,
	})
	require.NoError(t, err)

	docs, err := l.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, docs, 2)
	assert.Equal(t, "docs/a.txt", docs[0].Metadata["source"])
	assert.Equal(t, "docs/ba.txt", docs[1].Metadata["source"])
}

func TestFormatChangesEncodingNotCount(t *testing.T) {
	jsonParser := &fakeParser{
		output: &models.ParseOutput{
			Results: []models.Result{
				{RID: "r1", OriginalFilename: "a.txt", Markdown: "doc a"},
			},
		},
	}
	mdParser := &fakeParser{
		output: &models.ParseOutput{Raw: "doc a"},
	}

	jsonLoader, err := loader.NewWithConfig(loader.LoaderConfig{
		FilePaths: []string{"a.txt"},
		Anyparser: anyparser.Option{Format: anyparser.FormatJSON},
		Parser:    jsonParser,
	})
	require.NoError(t, err)

	mdLoader, err := loader.NewWithConfig(loader.LoaderConfig{
		FilePaths: []string{"a.txt"},
		Anyparser: anyparser.Option{Format: anyparser.FormatMarkdown},
		Parser:    mdParser,
	})
	require.NoError(t, err)

	jsonDocs, err := jsonLoader.Load(context.Background())
	require.NoError(t, err)
	mdDocs, err := mdLoader.Load(context.Background())
	require.NoError(t, err)

	assert.Len(t, jsonDocs, len(mdDocs))
	assert.Equal(t, "json", jsonDocs[0].Metadata["format"])
	assert.Equal(t, "markdown", mdDocs[0].Metadata["format"])
}

func TestLoadPdfPages(t *testing.T) {
	parser := &fakeParser{
		output: &models.ParseOutput{
			Results: []models.Result{
				{
					RID:              "pdf-rid",
					OriginalFilename: "test.pdf",
					Checksum:         "pdf-checksum",
					TotalCharacters:  200,
					Items: []models.PdfPage{
						{PageNumber: 1, Markdown: "page 1 content"},
						{PageNumber: 2, Markdown: "page 2 content"},
					},
				},
			},
		},
	}

	l, err := loader.NewWithConfig(loader.LoaderConfig{
		FilePaths: []string{"test.pdf"},
		Anyparser: anyparser.Option{Format: anyparser.FormatJSON},
		Parser:    parser,
	})
	require.NoError(t, err)

	docs, err := l.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, docs, 2)
	assert.Equal(t, "page 1 content", docs[0].PageContent)
	assert.Equal(t, "test.pdf", docs[0].Metadata["source"])
	assert.Equal(t, 1, docs[0].Metadata["page_number"])
	assert.Equal(t, 2, docs[0].Metadata["total_pages"])
	assert.Equal(t, "pdf-rid", docs[0].Metadata["rid"])
	assert.Equal(t, "pdf-checksum", docs[0].Metadata["checksum"])
	assert.Equal(t, 200, docs[0].Metadata["total_characters"])

	assert.Equal(t, "page 2 content", docs[1].PageContent)
	assert.Equal(t, 2, docs[1].Metadata["page_number"])
}

func TestLoadCrawlResults(t *testing.T) {
	parser := &fakeParser{
		output: &models.ParseOutput{
			Results: []models.Result{
				{
					RID:      "crawl-rid",
					StartURL: "http://example.com",
					URLs: []models.URLResult{
						{
							URL:             "http://example.com/page1",
							Title:           "Page 1",
							StatusCode:      200,
							StatusMessage:   "OK",
							PolitenessDelay: 100,
							TotalCharacters: 100,
							CrawledAt:       "now",
							Markdown:        "page 1 content",
						},
						{
							URL:      "http://example.com/page2",
							Title:    "Page 2",
							Text:     "page 2 text only",
							Markdown: "",
						},
					},
				},
			},
		},
	}

	l, err := loader.NewWithConfig(loader.LoaderConfig{
		URL:       "http://example.com",
		Anyparser: anyparser.Option{Format: anyparser.FormatJSON},
		Parser:    parser,
	})
	require.NoError(t, err)

	docs, err := l.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"http://example.com"}, parser.crawlCalls)
	require.Len(t, docs, 2)

	assert.Equal(t, "page 1 content", docs[0].PageContent)
	assert.Equal(t, "http://example.com/page1", docs[0].Metadata["source"])
	assert.Equal(t, "http://example.com/page1", docs[0].Metadata["url"])
	assert.Equal(t, "Page 1", docs[0].Metadata["title"])
	assert.Equal(t, "OK", docs[0].Metadata["status_message"])
	assert.Equal(t, 200, docs[0].Metadata["status_code"])
	assert.Equal(t, 100, docs[0].Metadata["politeness_delay"])
	assert.Equal(t, "now", docs[0].Metadata["crawled_at"])
	assert.Equal(t, 1, docs[0].Metadata["page_number"])
	assert.Equal(t, 2, docs[0].Metadata["total_pages"])

	// Falls back to text when no markdown was rendered
	assert.Equal(t, "page 2 text only", docs[1].PageContent)
	assert.Equal(t, 2, docs[1].Metadata["page_number"])
}

func TestLoadHTMLTitleMetadata(t *testing.T) {
	parser := &fakeParser{
		output: &models.ParseOutput{
			Raw: "<html><head><title>Test Page</title></head><body>content</body></html>",
		},
	}

	l, err := loader.NewWithConfig(loader.LoaderConfig{
		FilePaths: []string{"page.html"},
		Anyparser: anyparser.Option{Format: anyparser.FormatHTML},
		Parser:    parser,
	})
	require.NoError(t, err)

	docs, err := l.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, docs, 1)
	assert.Equal(t, "Test Page", docs[0].Metadata["title"])
	assert.Equal(t, "html", docs[0].Metadata["format"])
}

func TestLoadPropagatesErrors(t *testing.T) {
	parseErr := errors.New("upstream parser failure")
	parser := &fakeParser{err: parseErr}

	l, err := loader.NewWithConfig(loader.LoaderConfig{
		FilePaths: []string{"test.pdf"},
		Anyparser: anyparser.Option{Format: anyparser.FormatJSON},
		Parser:    parser,
	})
	require.NoError(t, err)

	docs, err := l.Load(context.Background())
	assert.ErrorIs(t, err, parseErr)
	assert.Nil(t, docs)
}

func TestLoadAndSplit(t *testing.T) {
	parser := &fakeParser{
		output: &models.ParseOutput{Raw: "first sentence. second sentence. third sentence."},
	}

	l, err := loader.NewWithConfig(loader.LoaderConfig{
		FilePaths: []string{"test.txt"},
		Anyparser: anyparser.Option{Format: anyparser.FormatMarkdown},
		Parser:    parser,
	})
	require.NoError(t, err)

	splitter := newFixedSplitter(2)
	docs, err := l.LoadAndSplit(context.Background(), splitter)
	require.NoError(t, err)

	assert.Len(t, docs, 2)
	for _, doc := range docs {
		assert.Equal(t, "test.txt", doc.Metadata["source"])
	}
}

// fixedSplitter splits text into a fixed number of pieces.
type fixedSplitter struct {
	parts int
}

func newFixedSplitter(parts int) fixedSplitter {
	return fixedSplitter{parts: parts}
}

func (s fixedSplitter) SplitText(text string) ([]string, error) {
	size := len(text) / s.parts
	var out []string
	for i := 0; i < s.parts; i++ {
		start := i * size
		end := start + size
		if i == s.parts-1 {
			end = len(text)
		}
		out = append(out, text[start:end])
	}
	return out, nil
}
