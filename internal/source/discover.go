package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ErrManifestUnavailable is returned when the extended manifest is missing
// or cannot be decoded.
var ErrManifestUnavailable = errors.New("extended manifest unavailable")

// Manifest lists the extended category files.
type Manifest struct {
	LastUpdated time.Time `json:"lastUpdated"`
	CSVFiles    []string  `json:"csvFiles"`
}

// Discover returns the extended sources. The manifest is tried first; when
// it is unavailable, candidates from the directory listing and the fixed
// fallback list are probed and only reachable files are returned.
func (l *Loader) Discover(ctx context.Context) []Descriptor {
	files, err := l.readManifest(ctx)
	if err != nil {
		l.log.Info("falling back to probing extended sources", "error", err)
		files = l.probe(ctx, l.candidates(ctx))
	}
	descs := make([]Descriptor, 0, len(files))
	for _, f := range files {
		descs = append(descs, Describe(f))
	}
	l.log.Info("extended sources discovered", "count", len(descs))
	return descs
}

func (l *Loader) readManifest(ctx context.Context) ([]string, error) {
	body, err := l.fetch(ctx, l.baseURL+"/"+l.extendedDir+"/"+l.manifest)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifestUnavailable, err)
	}
	var m Manifest
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifestUnavailable, err)
	}
	if m.CSVFiles == nil {
		return nil, fmt.Errorf("%w: no csvFiles", ErrManifestUnavailable)
	}
	return m.CSVFiles, nil
}

// candidates merges the CSV links of the directory listing, when the host
// serves one, with the fixed fallback list.
func (l *Loader) candidates(ctx context.Context) []string {
	seen := map[string]struct{}{}
	var out []string
	add := func(f string) {
		if _, ok := seen[f]; !ok {
			seen[f] = struct{}{}
			out = append(out, f)
		}
	}
	listed, err := l.listDirectory(ctx)
	if err != nil {
		l.log.Debug("no directory listing", "error", err)
	}
	for _, f := range listed {
		add(f)
	}
	for _, f := range candidateFiles {
		add(f)
	}
	return out
}

func (l *Loader) listDirectory(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/"+l.extendedDir+"/", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory listing returned %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}
	var files []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		name, err := url.PathUnescape(path.Base(href))
		if err != nil || !strings.HasSuffix(strings.ToLower(name), ".csv") {
			return
		}
		files = append(files, name)
	})
	return files, nil
}

// probe keeps the files that answer 200, preserving input order.
func (l *Loader) probe(ctx context.Context, files []string) []string {
	ok := make([]bool, len(files))
	var wg sync.WaitGroup
	for i, f := range files {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.fetch(ctx, l.fileURL(l.extendedDir, f)); err == nil {
				ok[i] = true
			}
		}()
	}
	wg.Wait()

	var found []string
	for i, f := range files {
		if ok[i] {
			found = append(found, f)
		}
	}
	return found
}
