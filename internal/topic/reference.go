package topic

import (
	"bufio"
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"
)

// yamlMimePrefix introduces the document-kind marker on the first line of a
// DocFX reference file.
const yamlMimePrefix = "### YamlMime:"

const managedReferenceMime = "ManagedReference"

type managedReferenceRoot struct {
	Items []managedReferenceItem `yaml:"items"`
}

type managedReferenceItem struct {
	UID          string `yaml:"uid"`
	CommentID    string `yaml:"commentId"`
	Type         string `yaml:"type"`
	Name         string `yaml:"name"`
	NameWithType string `yaml:"nameWithType"`
	FullName     string `yaml:"fullName"`
}

type managedReferenceExtractor struct{}

func (managedReferenceExtractor) CanExtract(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".yml")
}

func (managedReferenceExtractor) Extract(filename string, content []byte) ([]Metadata, error) {
	if YamlMime(content) != managedReferenceMime {
		return nil, nil
	}
	var root managedReferenceRoot
	if err := yaml.Unmarshal(content, &root); err != nil {
		return nil, &ParseError{File: filename, Err: err}
	}

	var topics []Metadata
	for _, item := range root.Items {
		if item.UID == "" {
			continue
		}
		name := item.FullName
		if name == "" {
			name = item.Name
		}
		title := item.NameWithType
		if title == "" {
			title = name
		}
		topics = append(topics, Metadata{
			UID:        item.UID,
			Type:       KindManagedReference,
			MemberType: item.Type,
			Name:       name,
			Title:      title,
			SourceFile: filename,
		})
	}
	return topics, nil
}

// YamlMime returns the document kind declared on the first line of content
// ("### YamlMime:<kind>"), or "" when there is none.
func YamlMime(content []byte) string {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	sc := bufio.NewScanner(bytes.NewReader(content))
	if !sc.Scan() {
		return ""
	}
	line := strings.TrimSpace(sc.Text())
	if !strings.HasPrefix(line, yamlMimePrefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(line, yamlMimePrefix))
}
