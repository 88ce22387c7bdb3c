package anyparser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xhad/anyparse/internal/models"
	"golang.org/x/time/rate"
)

const parsePath = "/parse/v1"

var (
	ErrMissingAPIKey = errors.New("anyparser: missing API key (set ANYPARSER_API_KEY)")
	ErrMissingAPIURL = errors.New("anyparser: missing API URL (set ANYPARSER_API_URL)")
	ErrNoInput       = errors.New("anyparser: no input files provided")
)

// APIError is a non-2xx response from the Anyparser API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("anyparser: API error %d: %s", e.StatusCode, e.Message)
}

// Client talks to the Anyparser API. Credentials are resolved once at
// construction, option values are sent with every request.
type Client struct {
	options Option
	client  *http.Client
	limiter *rate.Limiter
}

func NewWithOptions(options Option) (*Client, error) {
	if options.APIKey == "" {
		options.APIKey = os.Getenv("ANYPARSER_API_KEY")
	}
	if options.APIURL == "" {
		options.APIURL = os.Getenv("ANYPARSER_API_URL")
	}

	if options.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if options.APIURL == "" {
		return nil, ErrMissingAPIURL
	}
	if _, err := url.Parse(options.APIURL); err != nil {
		return nil, fmt.Errorf("anyparser: invalid API URL: %w", err)
	}

	if options.Format == "" {
		options.Format = FormatMarkdown
	}
	if options.Model == "" {
		options.Model = ModelText
	}
	if options.Encoding == "" {
		options.Encoding = "utf-8"
	}
	if options.Timeout == 0 {
		options.Timeout = 60 * time.Second
	}
	if options.RateLimit == 0 {
		options.RateLimit = 2 // 2 requests per second by default
	}

	if err := options.validate(); err != nil {
		return nil, err
	}

	return &Client{
		options: options,
		client: &http.Client{
			Timeout: options.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(options.RateLimit), 1),
	}, nil
}

// Options returns the resolved request configuration.
func (c *Client) Options() Option {
	return c.options
}

// Parse uploads the given files and returns the parsed output. All
// files travel in one multipart request; the server answers with a
// raw text body for markdown/html or a JSON array for json format.
func (c *Client) Parse(ctx context.Context, paths ...string) (*models.ParseOutput, error) {
	if len(paths) == 0 {
		return nil, ErrNoInput
	}

	// Politeness pacing between consecutive API requests
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("anyparser: reading %s: %w", path, err)
		}

		part, err := writer.CreateFormFile("files", filepath.Base(path))
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(data); err != nil {
			return nil, err
		}
	}

	if err := c.writeOptionFields(writer); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return c.do(req)
}

// Crawl submits a crawl job for the given start URL. The crawler runs
// server-side; this call blocks until the crawl result is ready.
func (c *Client) Crawl(ctx context.Context, startURL string) (*models.ParseOutput, error) {
	if startURL == "" {
		return nil, ErrNoInput
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("url", startURL)
	form.Set("format", c.options.Format)
	form.Set("model", ModelCrawler)
	form.Set("encoding", c.options.Encoding)
	if c.options.MaxDepth > 0 {
		form.Set("max_depth", strconv.Itoa(c.options.MaxDepth))
	}
	if c.options.MaxExecutions > 0 {
		form.Set("max_executions", strconv.Itoa(c.options.MaxExecutions))
	}
	if c.options.Strategy != "" {
		form.Set("strategy", c.options.Strategy)
	}
	if c.options.TraversalScope != "" {
		form.Set("traversal_scope", c.options.TraversalScope)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.do(req)
}

func (c *Client) endpoint() string {
	return strings.TrimSuffix(c.options.APIURL, "/") + parsePath
}

func (c *Client) writeOptionFields(writer *multipart.Writer) error {
	fields := map[string]string{
		"format":   c.options.Format,
		"model":    c.options.Model,
		"encoding": c.options.Encoding,
	}
	if c.options.Image {
		fields["image"] = "true"
	}
	if c.options.Table {
		fields["table"] = "true"
	}
	if c.options.OCRPreset != "" {
		fields["ocr_preset"] = c.options.OCRPreset
	}

	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return err
		}
	}

	for _, lang := range c.options.OCRLanguage {
		if err := writer.WriteField("ocr_language", lang); err != nil {
			return err
		}
	}

	return nil
}

func (c *Client) do(req *http.Request) (*models.ParseOutput, error) {
	req.Header.Set("Authorization", "Bearer "+c.options.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("anyparser: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("anyparser: reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(body),
		}
	}

	if c.options.Format != FormatJSON {
		return &models.ParseOutput{Raw: string(body)}, nil
	}

	var results []models.Result
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("anyparser: malformed response: %w", err)
	}

	return &models.ParseOutput{Results: results}, nil
}

func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return strings.TrimSpace(string(body))
}
