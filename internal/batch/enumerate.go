package batch

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/text/cases"
)

var extFolder = cases.Fold()

// enumerate lists the candidate video files directly inside dir, in directory
// enumeration order (ReadDir sorts by name). The extension match is
// case-insensitive; subdirectories are never descended into.
func enumerate(dir string, allowedExts []string) ([]string, error) {
	allowed := make(map[string]struct{}, len(allowedExts))
	for _, ext := range allowedExts {
		allowed[extFolder.String(ext)] = struct{}{}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := extFolder.String(filepath.Ext(entry.Name()))
		if _, ok := allowed[ext]; !ok {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	return files, nil
}

// outputName maps a source basename onto its output name. The output always
// carries a .mp4 extension, even for plain copies of non-mp4 sources; the
// rename happens without remuxing.
func outputName(base string) string {
	ext := filepath.Ext(base)
	return base[:len(base)-len(ext)] + ".mp4"
}
