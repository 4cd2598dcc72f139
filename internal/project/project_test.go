package project_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/docfx-topics/internal/project"
	"github.com/KaramelBytes/docfx-topics/internal/topic"
	"github.com/google/go-cmp/cmp"
)

func simpleProjectFile(t *testing.T) string {
	t.Helper()
	p, err := filepath.Abs(filepath.Join("testdata", "simple", "docfx.json"))
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func simpleContentFile(t *testing.T, rel string) string {
	t.Helper()
	return filepath.Join(filepath.Dir(simpleProjectFile(t)), filepath.FromSlash(rel))
}

type recordingProgress struct {
	messages []string
	failures []error
}

func (r *recordingProgress) Report(message string) { r.messages = append(r.messages, message) }
func (r *recordingProgress) Fail(err error)        { r.failures = append(r.failures, err) }

func TestLoadSimpleProject(t *testing.T) {
	projectFile := simpleProjectFile(t)
	p, err := project.Load(projectFile)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if p.ProjectFile() != projectFile {
		t.Errorf("ProjectFile() = %q, want %q", p.ProjectFile(), projectFile)
	}
	if p.ProjectDir() != filepath.Dir(projectFile) {
		t.Errorf("ProjectDir() = %q, want %q", p.ProjectDir(), filepath.Dir(projectFile))
	}
	// The Swagger-only group contributes nothing.
	if n := len(p.FileGroups()); n != 1 {
		t.Errorf("expected 1 file group, got %d", n)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "unparsable", content: `{"build": `},
		{name: "no build section", content: `{"metadata": []}`},
		{name: "no content section", content: `{"build": {"dest": "_site"}}`},
		{name: "bad pattern", content: `{"build": {"content": [{"files": ["articles/[.md"]}]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pf := filepath.Join(t.TempDir(), "docfx.json")
			if err := os.WriteFile(pf, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := project.Load(pf)
			var lerr *project.LoadError
			if !errors.As(err, &lerr) {
				t.Fatalf("expected *LoadError, got %v", err)
			}
		})
	}

	_, err := project.Load(filepath.Join(t.TempDir(), "missing", "docfx.json"))
	var lerr *project.LoadError
	if !errors.As(err, &lerr) || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected *LoadError wrapping ErrNotExist, got %v", err)
	}
}

func TestEmptyProjectMatchesNothing(t *testing.T) {
	dir := t.TempDir()
	pf := filepath.Join(dir, "docfx.json")
	if err := os.WriteFile(pf, []byte(`{"build": {"content": []}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "index.md"), []byte("---\nuid: A\n---\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := project.Load(pf)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	files, err := p.GetContentFiles(context.Background())
	if err != nil {
		t.Fatalf("GetContentFiles() error = %v", err)
	}
	if len(files) != 0 {
		t.Errorf("expected no content files, got %v", files)
	}
	if p.IncludesContentFile("index.md") {
		t.Error("empty project should include nothing")
	}
}

func TestIncludesContentFile(t *testing.T) {
	p, err := project.Load(simpleProjectFile(t))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	tests := []struct {
		path string
		want bool
	}{
		{simpleContentFile(t, "articles/index.md"), true},
		{filepath.FromSlash("articles/index.md"), true},
		{"toc.yml", true},
		{filepath.FromSlash("articles/drafts/wip.md"), false},
		{"README.md", false},
		{filepath.FromSlash("restapi/petstore.json"), false},
	}
	for _, tt := range tests {
		if got := p.IncludesContentFile(tt.path); got != tt.want {
			t.Errorf("IncludesContentFile(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestGetContentFiles(t *testing.T) {
	p, err := project.Load(simpleProjectFile(t))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	ctx := context.Background()

	all, err := p.GetContentFiles(ctx)
	if err != nil {
		t.Fatalf("GetContentFiles() error = %v", err)
	}
	want := []string{
		simpleContentFile(t, "articles/index.md"),
		simpleContentFile(t, "articles/toc.yml"),
		simpleContentFile(t, "toc.yml"),
	}
	if diff := cmp.Diff(want, all); diff != "" {
		t.Errorf("GetContentFiles() mismatch (-want +got):\n%s", diff)
	}

	md, err := p.GetContentFiles(ctx, ".MD")
	if err != nil {
		t.Fatalf("GetContentFiles(.MD) error = %v", err)
	}
	if diff := cmp.Diff(want[:1], md); diff != "" {
		t.Errorf("GetContentFiles(.MD) mismatch (-want +got):\n%s", diff)
	}
}

func TestGetContentFilesAcrossOverlappingGroups(t *testing.T) {
	dir := t.TempDir()
	for _, rel := range []string{"docs/a.md", "docs/guide/b.md", "docs/obj/c.md", "other/d.md"} {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("# x\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	pf := filepath.Join(dir, "docfx.json")
	config := `{"build": {"content": [
		{"files": ["**.md"], "exclude": ["obj/**"], "src": "docs"},
		{"files": ["docs/**/*.md", "docs/*.md"]}
	]}}`
	if err := os.WriteFile(pf, []byte(config), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := project.Load(pf)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if n := len(p.FileGroups()); n != 2 {
		t.Fatalf("expected 2 file groups, got %d", n)
	}
	if got := p.FileGroups()[0].RelativeBaseDir; got != "docs" {
		t.Errorf("RelativeBaseDir = %q, want %q", got, "docs")
	}

	files, err := p.GetContentFiles(context.Background())
	if err != nil {
		t.Fatalf("GetContentFiles() error = %v", err)
	}
	// docs/obj/c.md is excluded by the first group but included by the second.
	want := []string{
		filepath.Join(dir, "docs", "a.md"),
		filepath.Join(dir, "docs", "guide", "b.md"),
		filepath.Join(dir, "docs", "obj", "c.md"),
	}
	if diff := cmp.Diff(want, files); diff != "" {
		t.Errorf("GetContentFiles() mismatch (-want +got):\n%s", diff)
	}
	if !p.IncludesContentFile(filepath.FromSlash("docs/obj/c.md")) {
		t.Error("expected docs/obj/c.md to be included by the second group")
	}
}

func TestGetTopics(t *testing.T) {
	p, err := project.Load(simpleProjectFile(t))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	progress := &recordingProgress{}
	topics, err := p.GetTopics(context.Background(), progress)
	if err != nil {
		t.Fatalf("GetTopics() error = %v", err)
	}
	want := []topic.Metadata{{
		UID:          "Index",
		Name:         "Index",
		Title:        "Example article",
		Type:         "Conceptual",
		DetailedType: topic.TypeConceptual,
		SourceFile:   simpleContentFile(t, "articles/index.md"),
	}}
	if diff := cmp.Diff(want, topics); diff != "" {
		t.Errorf("GetTopics() mismatch (-want +got):\n%s", diff)
	}

	if len(progress.messages) < 3 {
		t.Fatalf("expected start, progress and completion messages, got %v", progress.messages)
	}
	if !strings.HasPrefix(progress.messages[0], "Scanning 3 content files") {
		t.Errorf("unexpected first message %q", progress.messages[0])
	}
	if last := progress.messages[len(progress.messages)-1]; last != "Found 1 topics in 3 content files." {
		t.Errorf("unexpected last message %q", last)
	}
	if len(progress.failures) != 0 {
		t.Errorf("unexpected failures: %v", progress.failures)
	}
}

func TestGetTopicsWithTopicExtensions(t *testing.T) {
	p, err := project.Load(simpleProjectFile(t), project.WithTopicExtensions(".yml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff([]string{".yml"}, p.TopicExtensions()); diff != "" {
		t.Errorf("TopicExtensions() mismatch (-want +got):\n%s", diff)
	}
	progress := &recordingProgress{}
	topics, err := p.GetTopics(context.Background(), progress)
	if err != nil {
		t.Fatalf("GetTopics() error = %v", err)
	}
	if len(topics) != 0 {
		t.Errorf("expected Markdown topics to be skipped, got %+v", topics)
	}
	if last := progress.messages[len(progress.messages)-1]; last != "Found 0 topics in 2 content files." {
		t.Errorf("unexpected last message %q", last)
	}
}

func TestGetTopicsSkipsMalformedFiles(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"docfx.json": `{"build": {"content": [{"files": ["**.md"]}]}}`,
		"bad.md":     "---\nuid: [oops\n---\n",
		"good.md":    "---\nuid: Good\n---\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	p, err := project.Load(filepath.Join(dir, "docfx.json"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	topics, err := p.GetTopics(context.Background(), nil)
	if err != nil {
		t.Fatalf("GetTopics() error = %v", err)
	}
	if len(topics) != 1 || topics[0].UID != "Good" {
		t.Errorf("expected only topic Good, got %+v", topics)
	}
}

func TestGetTopicsHonoursCancellation(t *testing.T) {
	p, err := project.Load(simpleProjectFile(t))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.GetTopics(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
