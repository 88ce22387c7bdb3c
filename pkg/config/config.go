package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Anyparser struct {
		APIKey  string `yaml:"api_key"`
		APIURL  string `yaml:"api_url"`
		Timeout int    `yaml:"timeout_seconds"`
	} `yaml:"anyparser"`

	Loader struct {
		Format            string   `yaml:"format"`
		Model             string   `yaml:"model"`
		Encoding          string   `yaml:"encoding"`
		Image             bool     `yaml:"image"`
		Table             bool     `yaml:"table"`
		OCRLanguage       []string `yaml:"ocr_language"`
		OCRPreset         string   `yaml:"ocr_preset"`
		MaxFolderFiles    int      `yaml:"max_folder_files"`
		AllowedExtensions []string `yaml:"allowed_extensions"`
		IgnorePatterns    []string `yaml:"ignore_patterns"`
	} `yaml:"loader"`

	Crawler struct {
		MaxDepth       int     `yaml:"max_depth"`
		MaxExecutions  int     `yaml:"max_executions"`
		Strategy       string  `yaml:"strategy"`
		TraversalScope string  `yaml:"traversal_scope"`
		RateLimit      float64 `yaml:"rate_limit"`
	} `yaml:"crawler"`

	Database struct {
		URL       string `yaml:"url"`
		TableName string `yaml:"table_name"`
		VectorDim int    `yaml:"vector_dim"`
		BatchSize int    `yaml:"batch_size"`
	} `yaml:"database"`

	LLM struct {
		BaseURL string `yaml:"base_url"`
		Model   string `yaml:"model"`
	} `yaml:"llm"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"anyparse.yaml",
			"anyparse.yml",
			filepath.Join(os.Getenv("HOME"), ".config/anyparse/config.yaml"),
			"/etc/anyparse/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	// Merge with environment variables
	mergeWithEnv(&config)

	// Apply defaults for unset values
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	applyDefaults(config)
	mergeWithEnv(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.Anyparser.APIURL == "" {
		config.Anyparser.APIURL = "https://anyparserapi.com"
	}
	if config.Anyparser.Timeout == 0 {
		config.Anyparser.Timeout = 60
	}

	if config.Loader.Format == "" {
		config.Loader.Format = "markdown"
	}
	if config.Loader.Model == "" {
		config.Loader.Model = "text"
	}
	if config.Loader.Encoding == "" {
		config.Loader.Encoding = "utf-8"
	}
	if config.Loader.MaxFolderFiles == 0 {
		config.Loader.MaxFolderFiles = 5
	}

	if config.Crawler.MaxDepth == 0 {
		config.Crawler.MaxDepth = 2
	}
	if config.Crawler.MaxExecutions == 0 {
		config.Crawler.MaxExecutions = 10
	}
	if config.Crawler.Strategy == "" {
		config.Crawler.Strategy = "LIFO"
	}
	if config.Crawler.TraversalScope == "" {
		config.Crawler.TraversalScope = "subtree"
	}
	if config.Crawler.RateLimit == 0 {
		config.Crawler.RateLimit = 2.0
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "documents"
	}
	if config.Database.VectorDim == 0 {
		config.Database.VectorDim = 768
	}
	if config.Database.BatchSize == 0 {
		config.Database.BatchSize = 100
	}

	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "http://localhost:11434"
	}
	if config.LLM.Model == "" {
		config.LLM.Model = "nomic-embed-text:latest"
	}
}

func mergeWithEnv(config *Config) {
	if apiKey := os.Getenv("ANYPARSER_API_KEY"); apiKey != "" {
		config.Anyparser.APIKey = apiKey
	}
	if apiURL := os.Getenv("ANYPARSER_API_URL"); apiURL != "" {
		config.Anyparser.APIURL = apiURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
}
