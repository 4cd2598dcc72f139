package project

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/KaramelBytes/docfx-topics/internal/filter"
	"github.com/bmatcuk/doublestar/v4"
)

// FileGroup is one content group declared in a project's build section: a
// pattern filter evaluated against its own base directory.
type FileGroup struct {
	// BaseDir is the absolute directory the group's patterns are relative to.
	BaseDir string
	// RelativeBaseDir is BaseDir relative to the project directory ("" for the
	// project directory itself).
	RelativeBaseDir string
	// Dest is the group's output directory. Recorded but unused.
	Dest string

	filter *filter.Filter
}

// NewFileGroup builds a file group rooted at baseDir.
func NewFileGroup(baseDir, relativeBaseDir, dest string, include, exclude []string) (*FileGroup, error) {
	f, err := filter.New(baseDir, include, exclude)
	if err != nil {
		return nil, err
	}
	return &FileGroup{
		BaseDir:         f.BaseDir(),
		RelativeBaseDir: relativeBaseDir,
		Dest:            dest,
		filter:          f,
	}, nil
}

// Filter returns the group's pattern filter.
func (g *FileGroup) Filter() *filter.Filter { return g.filter }

// IncludesFile reports whether the group's patterns select path.
func (g *FileGroup) IncludesFile(path string) bool {
	return g.filter.ShouldInclude(path)
}

// ListFiles expands the group's include patterns against the file system and
// returns the sorted, de-duplicated absolute paths of matching files. When
// extensions are given only files with one of them (case-insensitive) are
// returned.
func (g *FileGroup) ListFiles(ctx context.Context, extensions ...string) ([]string, error) {
	fsys := prunedFS{FS: os.DirFS(g.BaseDir), exclude: g.filter.ExcludePatterns()}
	exts := extensionSet(extensions)

	seen := make(map[string]struct{})
	for _, pattern := range g.filter.IncludePatterns() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expand %q in %s: %w", pattern, g.BaseDir, err)
		}
		for _, m := range matches {
			seen[filepath.Join(g.BaseDir, filepath.FromSlash(m))] = struct{}{}
		}
	}

	files := make([]string, 0, len(seen))
	for p := range seen {
		// The walk only prunes what it can; the filter has the final say.
		if !g.filter.ShouldInclude(p) {
			continue
		}
		if len(exts) > 0 && !hasExtension(p, exts) {
			continue
		}
		files = append(files, p)
	}
	sort.Strings(files)
	return files, nil
}

// prunedFS hides excluded entries from directory listings so the glob walk
// never descends into excluded trees.
type prunedFS struct {
	fs.FS
	exclude []string
}

func (p prunedFS) ReadDir(name string) ([]fs.DirEntry, error) {
	entries, err := fs.ReadDir(p.FS, name)
	if err != nil {
		return nil, err
	}
	if len(p.exclude) == 0 {
		return entries, nil
	}
	kept := entries[:0]
	for _, e := range entries {
		rel := e.Name()
		if name != "." {
			rel = path.Join(name, e.Name())
		}
		if p.excluded(rel, e.IsDir()) {
			continue
		}
		kept = append(kept, e)
	}
	return kept, nil
}

func (p prunedFS) excluded(rel string, isDir bool) bool {
	if !isDir {
		return filter.MatchAny(p.exclude, rel)
	}
	// Only prune directories whose whole subtree is excluded ("dir/**").
	for _, pattern := range p.exclude {
		prefix, ok := strings.CutSuffix(pattern, "/**")
		if !ok {
			continue
		}
		if matched, _ := doublestar.Match(prefix, rel); matched {
			return true
		}
	}
	return false
}

func extensionSet(extensions []string) map[string]struct{} {
	set := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = struct{}{}
	}
	return set
}

func hasExtension(p string, exts map[string]struct{}) bool {
	_, ok := exts[strings.ToLower(filepath.Ext(p))]
	return ok
}
