package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"
	"github.com/xhad/anyparse/internal/types"
	"github.com/xhad/anyparse/pkg/anyparser"
)

// DefaultMaxFolderFiles caps how many files a single folder load sends
// to the API.
const DefaultMaxFolderFiles = 5

// FolderConfig describes a directory load.
type FolderConfig struct {
	Path string

	// MaxFiles caps how many files are loaded per call. Files beyond
	// the cap are never sent silently; they show up in Skipped().
	MaxFiles int

	IgnorePatterns    []string
	AllowedExtensions []string

	Anyparser anyparser.Option

	// Parser overrides the API client, used in tests.
	Parser types.Parser
}

// FolderLoader loads every eligible file in a directory through the
// Anyparser API, up to a configured cap.
type FolderLoader struct {
	config  FolderConfig
	skipped []string
}

func NewFolderWithConfig(config FolderConfig) (*FolderLoader, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("loader: folder path is required")
	}
	if config.MaxFiles == 0 {
		config.MaxFiles = DefaultMaxFolderFiles
	}
	if config.MaxFiles < 0 {
		return nil, fmt.Errorf("loader: max files must be positive")
	}

	return &FolderLoader{config: config}, nil
}

// Load lists the folder, filters file names, and loads at most
// MaxFiles of them. Call Skipped afterwards to learn which files were
// left out by the cap.
func (f *FolderLoader) Load(ctx context.Context) ([]schema.Document, error) {
	entries, err := os.ReadDir(f.config.Path)
	if err != nil {
		return nil, fmt.Errorf("loader: reading folder: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if f.shouldProcessFile(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	f.skipped = nil
	if len(names) > f.config.MaxFiles {
		f.skipped = names[f.config.MaxFiles:]
		names = names[:f.config.MaxFiles]
	}

	if len(names) == 0 {
		return nil, nil
	}

	paths := make([]string, 0, len(names))
	for _, name := range names {
		paths = append(paths, filepath.Join(f.config.Path, name))
	}

	inner, err := NewWithConfig(LoaderConfig{
		FilePaths: paths,
		Anyparser: f.config.Anyparser,
		Parser:    f.config.Parser,
	})
	if err != nil {
		return nil, err
	}

	return inner.Load(ctx)
}

// LoadAndSplit loads the folder and splits the documents with the
// given splitter.
func (f *FolderLoader) LoadAndSplit(ctx context.Context, splitter textsplitter.TextSplitter) ([]schema.Document, error) {
	docs, err := f.Load(ctx)
	if err != nil {
		return nil, err
	}
	return textsplitter.SplitDocuments(splitter, docs)
}

// Skipped reports the file names that the last Load left out because
// of the MaxFiles cap.
func (f *FolderLoader) Skipped() []string {
	return f.skipped
}

func (f *FolderLoader) shouldProcessFile(name string) bool {
	// Check extensions
	if len(f.config.AllowedExtensions) > 0 {
		ext := strings.ToLower(filepath.Ext(name))
		validExt := false
		for _, allowedExt := range f.config.AllowedExtensions {
			if ext == strings.ToLower(allowedExt) {
				validExt = true
				break
			}
		}
		if !validExt {
			return false
		}
	}

	// Check ignore patterns
	for _, pattern := range f.config.IgnorePatterns {
		if strings.Contains(name, pattern) {
			return false
		}
	}

	return true
}
