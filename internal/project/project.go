// Package project loads DocFX projects and resolves which files belong to them.
package project

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/KaramelBytes/docfx-topics/internal/topic"
)

// Project is a DocFX project loaded from its docfx.json.
type Project struct {
	projectFile string
	projectDir  string
	groups      []*FileGroup
	// topicExtensions limits GetTopics; empty means topic.Extensions.
	topicExtensions []string
}

// Option configures a Project.
type Option func(*Project)

// WithTopicExtensions restricts topic scans to files with these extensions.
func WithTopicExtensions(exts ...string) Option {
	return func(p *Project) { p.topicExtensions = append([]string(nil), exts...) }
}

// Data is the root of a docfx.json document.
type Data struct {
	Build *BuildConfig `json:"build"`
}

// BuildConfig is the build section of a docfx.json document.
type BuildConfig struct {
	Content []FileGroupData `json:"content"`
}

// FileGroupData is one entry of build.content.
type FileGroupData struct {
	// Files holds glob patterns for files to include.
	Files StringList `json:"files"`
	// Exclude holds glob patterns for files to leave out.
	Exclude StringList `json:"exclude,omitempty"`
	// Src is the group's base directory, relative to the project directory.
	Src  string `json:"src,omitempty"`
	Dest string `json:"dest,omitempty"`
}

// StringList decodes either a JSON string or an array of strings.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*l = StringList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*l = many
	return nil
}

// LoadError reports a project file that could not be loaded.
type LoadError struct {
	ProjectFile string
	Err         error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load project %s: %v", e.ProjectFile, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Load reads and parses the docfx.json at projectFile.
func Load(projectFile string, opts ...Option) (*Project, error) {
	abs, err := filepath.Abs(projectFile)
	if err != nil {
		return nil, &LoadError{ProjectFile: projectFile, Err: err}
	}
	b, err := os.ReadFile(abs)
	if err != nil {
		return nil, &LoadError{ProjectFile: abs, Err: fmt.Errorf("read project: %w", err)}
	}
	var data Data
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, &LoadError{ProjectFile: abs, Err: fmt.Errorf("parse project: %w", err)}
	}
	return New(abs, data, opts...)
}

// New builds a project from already-parsed configuration data.
func New(projectFile string, data Data, opts ...Option) (*Project, error) {
	if data.Build == nil {
		return nil, &LoadError{ProjectFile: projectFile, Err: errors.New("missing build section")}
	}
	if data.Build.Content == nil {
		return nil, &LoadError{ProjectFile: projectFile, Err: errors.New("missing build.content section")}
	}

	p := &Project{
		projectFile: projectFile,
		projectDir:  filepath.Dir(projectFile),
	}
	for _, opt := range opts {
		opt(p)
	}
	for i, entry := range data.Build.Content {
		include := contentPatterns(entry.Files)
		if len(include) == 0 {
			continue
		}
		rel := filepath.Clean(filepath.FromSlash(entry.Src))
		if rel == "." {
			rel = ""
		}
		g, err := NewFileGroup(filepath.Join(p.projectDir, rel), rel, entry.Dest, include, contentPatterns(entry.Exclude))
		if err != nil {
			return nil, &LoadError{ProjectFile: projectFile, Err: fmt.Errorf("content group %d: %w", i, err)}
		}
		p.groups = append(p.groups, g)
	}
	return p, nil
}

// contentPatterns drops patterns for Swagger (*.json) files, which never
// define topics handled here.
func contentPatterns(patterns []string) []string {
	var out []string
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" || strings.HasSuffix(strings.ToLower(p), ".json") {
			continue
		}
		out = append(out, p)
	}
	return out
}

// ProjectFile returns the absolute path of the docfx.json.
func (p *Project) ProjectFile() string { return p.projectFile }

// ProjectDir returns the directory containing the project file.
func (p *Project) ProjectDir() string { return p.projectDir }

// FileGroups returns the project's content groups in declaration order.
func (p *Project) FileGroups() []*FileGroup { return append([]*FileGroup(nil), p.groups...) }

// IncludesContentFile reports whether any content group includes path.
// Relative paths are resolved against the project directory.
func (p *Project) IncludesContentFile(path string) bool {
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.projectDir, path)
	}
	for _, g := range p.groups {
		if g.IncludesFile(path) {
			return true
		}
	}
	return false
}

// TopicExtensions returns the extensions of the files GetTopics scans.
func (p *Project) TopicExtensions() []string {
	if len(p.topicExtensions) == 0 {
		return append([]string(nil), topic.Extensions...)
	}
	return append([]string(nil), p.topicExtensions...)
}

// GetContentFiles lists the project's content files, optionally restricted to
// the given extensions. Files reachable from several groups are listed once.
func (p *Project) GetContentFiles(ctx context.Context, extensions ...string) ([]string, error) {
	seen := make(map[string]struct{})
	for _, g := range p.groups {
		files, err := g.ListFiles(ctx, extensions...)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			seen[f] = struct{}{}
		}
	}
	files := make([]string, 0, len(seen))
	for f := range seen {
		files = append(files, f)
	}
	sort.Strings(files)
	return files, nil
}

// GetTopics extracts topic metadata from every topic-bearing content file, in
// content-file order. Files whose header cannot be parsed are reported and
// skipped; any other error aborts the scan.
func (p *Project) GetTopics(ctx context.Context, progress Progress) ([]topic.Metadata, error) {
	files, err := p.GetContentFiles(ctx, p.TopicExtensions()...)
	if err != nil {
		return nil, err
	}
	report(progress, "Scanning %d content files in %s...", len(files), p.projectDir)

	var topics []topic.Metadata
	lastPercent := -1
	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fileTopics, err := topic.GetFileTopics(file)
		if err != nil {
			var perr *topic.ParseError
			if !errors.As(err, &perr) {
				return nil, err
			}
			report(progress, "Skipping %s: %v", file, perr.Err)
		}
		topics = append(topics, fileTopics...)

		if percent := (i + 1) * 100 / len(files); percent != lastPercent {
			lastPercent = percent
			report(progress, "Scanned %d%% of content files (%d/%d).", percent, i+1, len(files))
		}
	}
	report(progress, "Found %d topics in %d content files.", len(topics), len(files))
	return topics, nil
}
