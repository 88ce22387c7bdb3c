package models

// Image describes an image extracted by the API from a page.
type Image struct {
	DisplayName string `json:"display_name"`
	ImageIndex  int    `json:"image_index"`
	Page        int    `json:"page"`
}

// PdfPage is a single page of a parsed PDF.
type PdfPage struct {
	PageNumber int     `json:"page_number"`
	Text       string  `json:"text"`
	Markdown   string  `json:"markdown"`
	Images     []Image `json:"images,omitempty"`
}

// URLResult is one crawled page inside a crawl result.
type URLResult struct {
	URL             string  `json:"url"`
	Title           string  `json:"title"`
	StatusCode      int     `json:"status_code"`
	StatusMessage   string  `json:"status_message"`
	PolitenessDelay int     `json:"politeness_delay"`
	TotalCharacters int     `json:"total_characters"`
	CrawledAt       string  `json:"crawled_at"`
	Text            string  `json:"text"`
	Markdown        string  `json:"markdown"`
	Images          []Image `json:"images,omitempty"`
}

// Result is a single item in the JSON response of the Anyparser API.
// File and PDF results populate the rid/checksum fields, PDF results
// additionally carry Items, crawl results carry StartURL and URLs.
type Result struct {
	RID              string `json:"rid"`
	OriginalFilename string `json:"original_filename"`
	Checksum         string `json:"checksum"`
	TotalCharacters  int    `json:"total_characters"`
	TotalItems       int    `json:"total_items"`
	Markdown         string `json:"markdown"`
	Text             string `json:"text"`

	// PDF results only
	Items []PdfPage `json:"items,omitempty"`

	// Crawl results only
	StartURL string      `json:"start_url,omitempty"`
	URLs     []URLResult `json:"urls,omitempty"`
}

// IsPdf reports whether the result carries per-page items.
func (r *Result) IsPdf() bool {
	return len(r.Items) > 0
}

// IsCrawl reports whether the result came from the crawler.
func (r *Result) IsCrawl() bool {
	return r.StartURL != "" || len(r.URLs) > 0
}

// ParseOutput is what a parse or crawl call produces. For markdown and
// html formats the API returns the rendered text as a single body and
// Raw holds it; for json format Results holds the decoded items.
type ParseOutput struct {
	Raw     string
	Results []Result
}
