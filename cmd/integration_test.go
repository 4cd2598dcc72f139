package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/docfx-topics/internal/cache"
	"github.com/KaramelBytes/docfx-topics/internal/topic"
)

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	// Reset bound variables and the config loaded by a previous invocation.
	cfg = nil
	debug = false
	topicsPrefix, topicsJSON = "", false
	topicProject, topicJSON = "", false
	filesAbs = false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// runCmd is a helper to execute the root command with args.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execute(t, args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

// isolate points HOME at a temp dir so config and state stay per test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
}

func TestCLI_InitFilesTopics(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	runCmd(t, "init", dir)

	files := runCmd(t, "files", dir)
	for _, want := range []string{filepath.Join("articles", "index.md"), "toc.yml"} {
		if !strings.Contains(files, want) {
			t.Errorf("files output missing %s:\n%s", want, files)
		}
	}
	if strings.Contains(files, "docfx.json") {
		t.Errorf("files output lists the project file:\n%s", files)
	}

	out := runCmd(t, "topics", dir, "--json")
	var topics []topic.Metadata
	if err := json.Unmarshal([]byte(out), &topics); err != nil {
		t.Fatalf("topics --json: %v\n%s", err, out)
	}
	if len(topics) != 1 || topics[0].UID != "Index" || topics[0].Title != "Welcome" {
		t.Fatalf("unexpected topics: %+v", topics)
	}

	show := runCmd(t, "topic", "Index", "--project", dir)
	if !strings.Contains(show, "title:        Welcome") {
		t.Errorf("topic output:\n%s", show)
	}

	stateDir := cfg.StateDirFor(filepath.Join(dir, "docfx.json"))
	if _, err := os.Stat(filepath.Join(stateDir, cache.CacheFileName)); err != nil {
		t.Errorf("cache file not persisted: %v", err)
	}
}

func TestCLI_InitRefusesExistingProject(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	runCmd(t, "init", dir)
	if _, err := execute(t, "init", dir); err == nil {
		t.Fatal("expected second init to fail")
	}
}

func TestCLI_TopicsPrefix(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	runCmd(t, "init", dir)
	guide := "---\nuid: Guide.Setup\ntitle: Setup\n---\n"
	if err := os.WriteFile(filepath.Join(dir, "articles", "setup.md"), []byte(guide), 0o644); err != nil {
		t.Fatal(err)
	}

	out := runCmd(t, "topics", dir, "--prefix", "Guide.")
	if !strings.Contains(out, "Guide.Setup") || strings.Contains(out, "Index") {
		t.Errorf("topics --prefix output:\n%s", out)
	}
}

func TestCLI_TopicNotFound(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	runCmd(t, "init", dir)
	_, err := execute(t, "topic", "Missing", "--project", dir)
	if !errors.Is(err, cache.ErrTopicNotFound) {
		t.Fatalf("err = %v, want ErrTopicNotFound", err)
	}
}

func TestCLI_CacheClear(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	runCmd(t, "init", dir)
	runCmd(t, "topics", dir)

	cacheFile := filepath.Join(cfg.StateDirFor(filepath.Join(dir, "docfx.json")), cache.CacheFileName)
	if _, err := os.Stat(cacheFile); err != nil {
		t.Fatalf("cache file missing after topics: %v", err)
	}
	runCmd(t, "cache", "clear", dir)
	if _, err := os.Stat(cacheFile); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("cache file survived clear: %v", err)
	}
}

func TestCLI_ConfigSetShow(t *testing.T) {
	isolate(t)
	runCmd(t, "config", "set", "watch", "false")
	runCmd(t, "config", "set", "topic_extensions", "md, yml")

	out := runCmd(t, "config", "show")
	for _, want := range []string{"watch: false", "topic_extensions: .md,.yml"} {
		if !strings.Contains(out, want) {
			t.Errorf("config show missing %q:\n%s", want, out)
		}
	}
	if _, err := execute(t, "config", "set", "nope", "1"); err == nil {
		t.Error("expected unknown key to fail")
	}
}
