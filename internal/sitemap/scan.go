package sitemap

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"psp.com/quizla/backend/internal/quiz"
	"psp.com/quizla/backend/internal/source"
)

// ScanPrimary returns the primary categories whose file exists in dir, in
// their fixed order.
func ScanPrimary(dir string) ([]quiz.Category, error) {
	files, err := csvFiles(dir)
	if err != nil {
		return nil, err
	}
	present := map[string]bool{}
	for _, f := range files {
		present[f] = true
	}
	var out []quiz.Category
	for _, d := range source.PrimarySources() {
		if present[d.File] {
			out = append(out, quiz.Category{Key: d.Key, Name: d.Name, File: d.File})
		}
	}
	return out, nil
}

// ScanExtended returns one category per CSV file in dir, sorted by file name.
func ScanExtended(dir string) ([]quiz.Category, error) {
	files, err := csvFiles(dir)
	if err != nil {
		return nil, err
	}
	out := make([]quiz.Category, 0, len(files))
	for _, f := range files {
		d := source.Describe(f)
		out = append(out, quiz.Category{Key: d.Key, Name: d.Name, File: d.File})
	}
	return out, nil
}

// WriteIndex rewrites dir/index.json with the sorted CSV files of dir.
func WriteIndex(dir string, now time.Time) (source.Manifest, error) {
	files, err := csvFiles(dir)
	if err != nil {
		return source.Manifest{}, err
	}
	m := source.Manifest{LastUpdated: now.UTC(), CSVFiles: files}
	body, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return m, fmt.Errorf("encoding index: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "index.json"), append(body, '\n'), 0o644); err != nil {
		return m, fmt.Errorf("writing index: %w", err)
	}
	return m, nil
}

func csvFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("category directory %s: %w", dir, err)
		}
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	files := []string{}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}
