package topic

import (
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// frontMatterRE matches a YAML front-matter block at the start of a file. The
// closing "---" must be unindented, so "---" inside block scalars does not end
// the header early.
var frontMatterRE = regexp.MustCompile(`(?s)\A(?:\x{FEFF})?---\r?\n(.*?)\r?\n---[ \t]*(?:\r?\n|\z)`)

type frontMatter struct {
	UID   string `yaml:"uid"`
	Type  string `yaml:"type"`
	Name  string `yaml:"name"`
	Title string `yaml:"title"`
}

type conceptualExtractor struct{}

func (conceptualExtractor) CanExtract(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".md")
}

func (conceptualExtractor) Extract(filename string, content []byte) ([]Metadata, error) {
	m := frontMatterRE.FindSubmatch(content)
	if m == nil {
		return nil, nil
	}
	var fm frontMatter
	if err := yaml.Unmarshal(m[1], &fm); err != nil {
		return nil, &ParseError{File: filename, Err: err}
	}
	if fm.UID == "" {
		return nil, nil
	}

	t := Metadata{
		UID:        fm.UID,
		Type:       fm.Type,
		Name:       fm.Name,
		Title:      fm.Title,
		SourceFile: filename,
	}
	if t.Type == "" {
		t.Type = KindConceptual
	}
	if t.Name == "" {
		t.Name = t.UID
	}
	if t.Title == "" {
		t.Title = t.Name
	}
	return []Metadata{t}, nil
}
