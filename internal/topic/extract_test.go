package topic_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/docfx-topics/internal/topic"
	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestGetFileTopics_Conceptual(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "index.md", "---\nuid: Index\ntitle: Example article\n---\n\n# Example\n")

	got, err := topic.GetFileTopics(p)
	if err != nil {
		t.Fatalf("GetFileTopics() error = %v", err)
	}
	want := []topic.Metadata{{
		UID:          "Index",
		Name:         "Index",
		Title:        "Example article",
		Type:         "Conceptual",
		DetailedType: topic.TypeConceptual,
		SourceFile:   p,
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GetFileTopics() mismatch (-want +got):\n%s", diff)
	}
}

func TestGetFileTopics_ConceptualDefaults(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "a.md", "---\r\nuid: a.b\r\nname: Alpha\r\n---\r\nbody")

	got, err := topic.GetFileTopics(p)
	if err != nil {
		t.Fatalf("GetFileTopics() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 topic, got %d", len(got))
	}
	if got[0].Name != "Alpha" || got[0].Title != "Alpha" {
		t.Errorf("expected name and title Alpha, got %q / %q", got[0].Name, got[0].Title)
	}
}

func TestGetFileTopics_NoTopics(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{name: "no front matter", file: "plain.md", content: "# Just a heading\n"},
		{name: "front matter without uid", file: "nouid.md", content: "---\ntitle: Untitled\n---\nbody\n"},
		{name: "front matter not at start", file: "late.md", content: "intro\n---\nuid: Late\n---\n"},
		{name: "reference without marker", file: "plain.yml", content: "items:\n- uid: A\n"},
		{name: "reference with other mime", file: "toc.yml", content: "### YamlMime:TableOfContent\nitems:\n- uid: A\n"},
		{name: "unknown extension", file: "notes.txt", content: "---\nuid: Notes\n---\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := writeFile(t, t.TempDir(), tt.file, tt.content)
			got, err := topic.GetFileTopics(p)
			if err != nil {
				t.Fatalf("GetFileTopics() error = %v", err)
			}
			if len(got) != 0 {
				t.Errorf("expected no topics, got %+v", got)
			}
		})
	}
}

func TestGetFileTopics_ManagedReference(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "api/Foo.Bar.yml", `### YamlMime:ManagedReference
items:
- uid: Foo.Bar
  commentId: T:Foo.Bar
  type: Class
  name: Bar
  nameWithType: Bar
  fullName: Foo.Bar
- uid: Foo.Bar.Baz
  type: Method
  name: Baz()
  nameWithType: Bar.Baz()
  fullName: Foo.Bar.Baz()
- type: Field
  name: orphan
references:
- uid: System.Object
`)

	got, err := topic.GetFileTopics(p)
	if err != nil {
		t.Fatalf("GetFileTopics() error = %v", err)
	}
	want := []topic.Metadata{
		{UID: "Foo.Bar", Type: topic.KindManagedReference, MemberType: "Class", Name: "Foo.Bar", Title: "Bar", SourceFile: p, DetailedType: topic.TypeType},
		{UID: "Foo.Bar.Baz", Type: topic.KindManagedReference, MemberType: "Method", Name: "Foo.Bar.Baz()", Title: "Bar.Baz()", SourceFile: p, DetailedType: topic.TypeMethod},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GetFileTopics() mismatch (-want +got):\n%s", diff)
	}
}

func TestGetFileTopics_MalformedYAML(t *testing.T) {
	p := writeFile(t, t.TempDir(), "bad.md", "---\nuid: [unterminated\n---\n")
	_, err := topic.GetFileTopics(p)
	var perr *topic.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
}

func TestGetFileTopics_MissingFile(t *testing.T) {
	if _, err := topic.GetFileTopics(filepath.Join(t.TempDir(), "gone.md")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		kind, member string
		want         topic.Type
	}{
		{topic.KindConceptual, "", topic.TypeConceptual},
		{topic.KindConceptual, "Class", topic.TypeConceptual},
		{topic.KindManagedReference, "Namespace", topic.TypeNamespace},
		{topic.KindManagedReference, "Class", topic.TypeType},
		{topic.KindManagedReference, "Struct", topic.TypeType},
		{topic.KindManagedReference, "Interface", topic.TypeType},
		{topic.KindManagedReference, "Delegate", topic.TypeType},
		{topic.KindManagedReference, "Property", topic.TypeProperty},
		{topic.KindManagedReference, "Method", topic.TypeMethod},
		{topic.KindManagedReference, "Constructor", topic.TypeMethod},
		{topic.KindManagedReference, "Enum", topic.TypeOther},
		{topic.KindPowerShellReference, "Cmdlet", topic.TypePowerShellCmdlet},
		{topic.KindPowerShellReference, "Module", topic.TypeOther},
		{"RestApi", "Operation", topic.TypeOther},
		{"", "", topic.TypeOther},
	}
	for _, tt := range tests {
		got := topic.Classify(topic.Metadata{Type: tt.kind, MemberType: tt.member})
		if got != tt.want {
			t.Errorf("Classify(%q, %q) = %v, want %v", tt.kind, tt.member, got, tt.want)
		}
	}
}

func TestChangeJSON(t *testing.T) {
	b, err := json.Marshal(topic.Change{ChangeType: topic.ChangeRemoved, ContentFile: "articles/a.md"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"changeType":"Removed","contentFile":"articles/a.md"}` {
		t.Errorf("unexpected JSON: %s", b)
	}

	var c topic.Change
	if err := json.Unmarshal([]byte(`{"changeType":"Added","contentFile":"a.md","topics":[{"uid":"A","type":"Conceptual","sourceFile":"a.md"}]}`), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if c.ChangeType != topic.ChangeAdded || len(c.Topics) != 1 {
		t.Errorf("unexpected change: %+v", c)
	}
	if err := json.Unmarshal([]byte(`{"changeType":"Renamed"}`), &c); err == nil {
		t.Error("expected error for unknown change kind")
	}
}
