package topic

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Extractor produces topic metadata for one content-file format.
type Extractor interface {
	CanExtract(filename string) bool
	// Extract returns the topics defined by content. Files that are not of the
	// extractor's kind yield no topics and no error.
	Extract(filename string, content []byte) ([]Metadata, error)
}

var registry []Extractor

// Register adds an extractor to the registry.
func Register(e Extractor) {
	registry = append(registry, e)
}

// Extensions lists the content-file extensions that can define topics.
var Extensions = []string{".md", ".yml"}

// HasTopicExtension reports whether filename has one of Extensions.
func HasTopicExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ParseError reports a content file whose header or document could not be
// parsed.
type ParseError struct {
	File string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.File, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// GetFileTopics returns the topics defined in the content file at path, each
// classified with its DetailedType. Files no extractor recognizes yield none.
func GetFileTopics(path string) ([]Metadata, error) {
	for _, e := range registry {
		if !e.CanExtract(path) {
			continue
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read content file: %w", err)
		}
		topics, err := e.Extract(path, content)
		if err != nil {
			return nil, err
		}
		for i := range topics {
			topics[i].DetailedType = Classify(topics[i])
		}
		return topics, nil
	}
	return nil, nil
}

func init() {
	Register(conceptualExtractor{})
	Register(managedReferenceExtractor{})
}
