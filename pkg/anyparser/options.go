package anyparser

import (
	"fmt"
	"time"
)

// Output formats supported by the API.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatHTML     = "html"
)

// Processing models supported by the API.
const (
	ModelText    = "text"
	ModelOCR     = "ocr"
	ModelVLM     = "vlm"
	ModelLAM     = "lam"
	ModelCrawler = "crawler"
)

// OCR presets understood by the API.
const (
	OCRPresetDocument     = "document"
	OCRPresetScan         = "scan"
	OCRPresetHandwriting  = "handwriting"
	OCRPresetReceipt      = "receipt"
	OCRPresetMagazine     = "magazine"
	OCRPresetMetricsTable = "metrics-table"
)

// OCR language codes (tesseract-style) understood by the API.
const (
	OCRLangEnglish    = "eng"
	OCRLangFrench     = "fra"
	OCRLangGerman     = "deu"
	OCRLangSpanish    = "spa"
	OCRLangJapanese   = "jpn"
	OCRLangSimplified = "chi_sim"
)

// Crawl strategies and traversal scopes.
const (
	StrategyLIFO = "LIFO"
	StrategyFIFO = "FIFO"

	ScopeSubtree = "subtree"
	ScopeDomain  = "domain"
)

// Option is the full request configuration forwarded to the API. The
// zero value of every optional field means "let the server decide".
type Option struct {
	APIKey string
	APIURL string

	Format   string
	Model    string
	Encoding string

	Image bool
	Table bool

	OCRLanguage []string
	OCRPreset   string

	// Crawler options
	URL            string
	MaxDepth       int
	MaxExecutions  int
	Strategy       string
	TraversalScope string

	// Client behaviour
	Timeout   time.Duration
	RateLimit float64 // API requests per second
}

func (o *Option) validate() error {
	switch o.Format {
	case FormatMarkdown, FormatJSON, FormatHTML:
	default:
		return fmt.Errorf("anyparser: unsupported format %q", o.Format)
	}

	switch o.Model {
	case ModelText, ModelOCR, ModelVLM, ModelLAM, ModelCrawler:
	default:
		return fmt.Errorf("anyparser: unsupported model %q", o.Model)
	}

	switch o.Encoding {
	case "utf-8", "latin1":
	default:
		return fmt.Errorf("anyparser: unsupported encoding %q", o.Encoding)
	}

	if o.Strategy != "" && o.Strategy != StrategyLIFO && o.Strategy != StrategyFIFO {
		return fmt.Errorf("anyparser: unsupported crawl strategy %q", o.Strategy)
	}

	if o.TraversalScope != "" && o.TraversalScope != ScopeSubtree && o.TraversalScope != ScopeDomain {
		return fmt.Errorf("anyparser: unsupported traversal scope %q", o.TraversalScope)
	}

	return nil
}
