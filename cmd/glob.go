// Copyright © 2025 The MON authors

package cmd

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/monlang/mon/analysis"
)

// expandArgs expands the file arguments of a command:
//   - "dir/..." and plain directories become every .mon file below them,
//     honouring the .gitignore at their root;
//   - arguments with glob metacharacters ("**" included) are matched
//     against the file system;
//   - anything else passes through unchanged.
//
// Paths matching an exclude pattern are then dropped.
func expandArgs(args []string, excludes []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		dir, recursive := strings.CutSuffix(arg, "/...")
		if recursive && dir == "" {
			dir = "."
		}
		if !recursive {
			if info, err := os.Stat(arg); err == nil && info.IsDir() {
				dir, recursive = arg, true
			}
		}
		switch {
		case recursive:
			files, err := findMonFiles(dir)
			if err != nil {
				return nil, fmt.Errorf("expanding %s: %w", arg, err)
			}
			out = append(out, files...)
		case hasMeta(arg):
			matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
			if err != nil {
				return nil, fmt.Errorf("expanding %s: %w", arg, err)
			}
			sort.Strings(matches)
			out = append(out, matches...)
		default:
			out = append(out, arg)
		}
	}
	return filterExcludes(out, excludes), nil
}

func hasMeta(s string) bool {
	return strings.ContainsAny(s, "*?[{")
}

// findMonFiles returns the .mon files below root, skipping hidden
// directories, node_modules and paths ignored by root/.gitignore.
func findMonFiles(root string) ([]string, error) {
	var gitignore *ignore.GitIgnore
	if p := filepath.Join(root, ".gitignore"); fileExists(p) {
		gi, err := ignore.CompileIgnoreFile(p)
		if err != nil {
			return nil, err
		}
		gitignore = gi
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || name == "node_modules") {
				return filepath.SkipDir
			}
			if path != root && gitignore != nil && gitignore.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != analysis.FileExt {
			return nil
		}
		if gitignore != nil && gitignore.MatchesPath(rel) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// filterExcludes removes paths that match any of the exclude patterns.
func filterExcludes(paths []string, excludes []string) []string {
	if len(excludes) == 0 {
		return paths
	}
	var out []string
	for _, p := range paths {
		if !matchesAny(p, excludes) {
			out = append(out, p)
		}
	}
	return out
}

// matchesAny reports whether path matches a pattern as a whole, by its
// base name, or by any one of its directory components.
func matchesAny(path string, patterns []string) bool {
	slashed := filepath.ToSlash(path)
	components := splitPath(slashed)
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, slashed); ok {
			return true
		}
		for _, c := range components {
			if ok, _ := doublestar.Match(pattern, c); ok {
				return true
			}
		}
	}
	return false
}

// splitPath returns the non-empty components of a slash-separated path.
func splitPath(path string) []string {
	var out []string
	for _, c := range strings.Split(path, "/") {
		if c != "" && c != "." {
			out = append(out, c)
		}
	}
	return out
}
