package config

import (
	"fmt"
	"net/url"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var (
	validFormats   = []string{"markdown", "json", "html"}
	validModels    = []string{"text", "ocr", "vlm", "lam", "crawler"}
	validEncodings = []string{"utf-8", "latin1"}
	validStrategy  = []string{"LIFO", "FIFO"}
	validScopes    = []string{"subtree", "domain"}
)

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate Anyparser credentials
	if c.Anyparser.APIKey == "" {
		errors = append(errors, ValidationError{
			Field:   "anyparser.api_key",
			Message: "Anyparser API key is required (set ANYPARSER_API_KEY)",
		})
	}

	if c.Anyparser.APIURL == "" {
		errors = append(errors, ValidationError{
			Field:   "anyparser.api_url",
			Message: "Anyparser API URL is required (set ANYPARSER_API_URL)",
		})
	} else if u, err := url.Parse(c.Anyparser.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "anyparser.api_url",
			Message: "invalid Anyparser API URL",
		})
	}

	if c.Anyparser.Timeout < 0 {
		errors = append(errors, ValidationError{
			Field:   "anyparser.timeout_seconds",
			Message: "timeout must be non-negative",
		})
	}

	// Validate Loader config
	if !contains(validFormats, c.Loader.Format) {
		errors = append(errors, ValidationError{
			Field:   "loader.format",
			Message: fmt.Sprintf("format must be one of: %s", strings.Join(validFormats, ", ")),
		})
	}

	if !contains(validModels, c.Loader.Model) {
		errors = append(errors, ValidationError{
			Field:   "loader.model",
			Message: fmt.Sprintf("model must be one of: %s", strings.Join(validModels, ", ")),
		})
	}

	if !contains(validEncodings, c.Loader.Encoding) {
		errors = append(errors, ValidationError{
			Field:   "loader.encoding",
			Message: fmt.Sprintf("encoding must be one of: %s", strings.Join(validEncodings, ", ")),
		})
	}

	if c.Loader.MaxFolderFiles < 1 {
		errors = append(errors, ValidationError{
			Field:   "loader.max_folder_files",
			Message: "max_folder_files must be positive",
		})
	}

	// Validate extensions format
	for _, ext := range c.Loader.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") && ext != "" {
			errors = append(errors, ValidationError{
				Field:   "loader.allowed_extensions",
				Message: fmt.Sprintf("invalid extension format: %s", ext),
			})
		}
	}

	// Validate Crawler config
	if c.Crawler.MaxDepth < 1 {
		errors = append(errors, ValidationError{
			Field:   "crawler.max_depth",
			Message: "max_depth must be positive",
		})
	}

	if c.Crawler.MaxExecutions < 1 {
		errors = append(errors, ValidationError{
			Field:   "crawler.max_executions",
			Message: "max_executions must be positive",
		})
	}

	if !contains(validStrategy, c.Crawler.Strategy) {
		errors = append(errors, ValidationError{
			Field:   "crawler.strategy",
			Message: "strategy must be LIFO or FIFO",
		})
	}

	if !contains(validScopes, c.Crawler.TraversalScope) {
		errors = append(errors, ValidationError{
			Field:   "crawler.traversal_scope",
			Message: "traversal_scope must be subtree or domain",
		})
	}

	if c.Crawler.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "crawler.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	// Validate Database config
	if c.Database.URL != "" {
		if _, err := url.Parse(c.Database.URL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "invalid database URL",
			})
		}
	}

	if c.Database.VectorDim < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.vector_dim",
			Message: "vector_dim must be positive",
		})
	}

	if c.Database.BatchSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.batch_size",
			Message: "batch_size must be positive",
		})
	}

	return errors
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
