// Package filter decides file membership from include/exclude glob patterns.
package filter

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Filter matches paths against include and exclude glob patterns relative to a
// base directory. A Filter is immutable once constructed.
type Filter struct {
	baseDir string
	include []string
	exclude []string
}

// New builds a filter rooted at baseDir. Patterns use doublestar syntax; the
// DocFX shorthand "**.ext" is expanded by NormalizePatterns.
func New(baseDir string, include, exclude []string) (*Filter, error) {
	f := &Filter{
		baseDir: filepath.Clean(baseDir),
		include: NormalizePatterns(include...),
		exclude: NormalizePatterns(exclude...),
	}
	for _, p := range append(append([]string{}, f.include...), f.exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid glob pattern %q", p)
		}
	}
	return f, nil
}

// BaseDir returns the directory patterns are evaluated against.
func (f *Filter) BaseDir() string { return f.baseDir }

// IncludePatterns returns a copy of the normalized include patterns.
func (f *Filter) IncludePatterns() []string { return append([]string(nil), f.include...) }

// ExcludePatterns returns a copy of the normalized exclude patterns.
func (f *Filter) ExcludePatterns() []string { return append([]string(nil), f.exclude...) }

// ShouldInclude reports whether path is matched by at least one include
// pattern and by no exclude pattern. Absolute paths are made relative to the
// base directory first; relative paths are taken as already relative to it.
func (f *Filter) ShouldInclude(path string) bool {
	rel, ok := f.relative(path)
	if !ok {
		return false
	}
	if !MatchAny(f.include, rel) {
		return false
	}
	return !MatchAny(f.exclude, rel)
}

// Excluded reports whether path matches any exclude pattern, regardless of
// the include patterns.
func (f *Filter) Excluded(path string) bool {
	rel, ok := f.relative(path)
	if !ok {
		return false
	}
	return MatchAny(f.exclude, rel)
}

func (f *Filter) relative(path string) (string, bool) {
	if filepath.IsAbs(path) {
		rel, err := filepath.Rel(f.baseDir, path)
		if err != nil {
			return "", false
		}
		path = rel
	}
	rel := filepath.ToSlash(filepath.Clean(path))
	// Paths escaping the base directory never belong to it.
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}

// MatchAny reports whether the slash-separated relative path matches any of
// the patterns. Malformed patterns never match.
func MatchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// NormalizePatterns converts patterns to slash form and expands the "**.ext"
// shorthand, which doublestar does not understand, into "*.ext" (files in the
// base directory) and "**/*.ext" (files at any depth).
func NormalizePatterns(patterns ...string) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(filepath.ToSlash(p))
		if p == "" {
			continue
		}
		if hasBareGlobStar(p) {
			out = append(out,
				strings.Replace(p, "**.", "*.", 1),
				strings.Replace(p, "**.", "**/*.", 1),
			)
			continue
		}
		out = append(out, p)
	}
	return out
}

func hasBareGlobStar(pattern string) bool {
	for _, segment := range strings.Split(pattern, "/") {
		if strings.HasPrefix(segment, "**.") {
			return true
		}
	}
	return false
}
