package actions

import (
	"context"
	"io/fs"
	"log"
	"path/filepath"
	"strings"
)

// Files locates files by name under a fixed root. The walk is bounded so a
// vague query against a huge tree cannot stall the pipeline.
type Files struct {
	Root     string
	maxVisit int
}

func NewFiles(root string) *Files {
	absRoot, _ := filepath.Abs(root)
	return &Files{Root: absRoot, maxVisit: 50000}
}

// SearchFile returns the first path whose base name contains the query
// (case-insensitive), or "" when nothing matches.
func (f *Files) SearchFile(ctx context.Context, query string) (string, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return "", nil
	}

	log.Printf("Files: searching for %q under %s", query, f.Root)

	var found string
	visited := 0
	err := filepath.WalkDir(f.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		visited++
		if visited > f.maxVisit {
			return fs.SkipAll
		}
		name := d.Name()
		if d.IsDir() {
			if strings.HasPrefix(name, ".") && path != f.Root {
				return fs.SkipDir
			}
			return nil
		}
		if strings.Contains(strings.ToLower(name), query) {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil && err != fs.SkipAll {
		return "", err
	}
	return found, nil
}
