// Package input provides the file-discovery side of a cleaning run.
// It turns an input root into the list of corpus files to process and reads
// those files one line at a time.
package input

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultExtensions are the file extensions recognized as corpus files.
var DefaultExtensions = []string{".jsonl", ".json"}

// Discover returns the corpus files under root.
//
// A regular file root is returned as-is, whatever its extension. A directory
// root yields its direct regular-file children whose extension (compared
// case-insensitively) is in exts; subdirectories are not descended into.
// The result is sorted. A nil exts uses DefaultExtensions.
func Discover(root string, exts []string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat input root: %w", err)
	}
	if !info.IsDir() {
		if !info.Mode().IsRegular() {
			return nil, fmt.Errorf("input root %q is not a regular file or directory", root)
		}
		return []string{root}, nil
	}

	if exts == nil {
		exts = DefaultExtensions
	}
	accepted := make(map[string]bool, len(exts))
	for _, e := range exts {
		accepted[strings.ToLower(e)] = true
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read input root: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !accepted[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		path := filepath.Join(root, entry.Name())
		// Resolve symlinks so that only regular files are returned.
		fi, err := os.Stat(path)
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		files = append(files, path)
	}
	sort.Strings(files)
	return files, nil
}
