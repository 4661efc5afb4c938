// Package sitemap generates the static sitemap and the extended-category
// manifest used by the site.
package sitemap

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"psp.com/quizla/backend/internal/questionbank"
	"psp.com/quizla/backend/internal/quiz"
	"psp.com/quizla/backend/internal/routing"
)

const xmlns = "http://www.sitemaps.org/schemas/sitemap/0.9"

type URL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

type urlSet struct {
	XMLName xml.Name `xml:"urlset"`
	Xmlns   string   `xml:"xmlns,attr"`
	URLs    []URL    `xml:"url"`
}

// Entries lists the sitemap URLs in document order: home, primary
// categories, extended categories, the fixed pages and finally combined
// links whose keys are all known extended categories.
func Entries(baseURL string, primary, extended []quiz.Category, combos [][]string, lastMod time.Time) []URL {
	base := strings.TrimRight(baseURL, "/")
	day := lastMod.UTC().Format("2006-01-02")
	seen := map[string]bool{}
	var out []URL
	add := func(path, priority, freq string) {
		if seen[path] {
			return
		}
		seen[path] = true
		out = append(out, URL{Loc: base + path, LastMod: day, ChangeFreq: freq, Priority: priority})
	}

	add("/", "1.0", "daily")
	for _, c := range primary {
		add(routing.Link(c, questionbank.Primary), "0.9", "weekly")
	}
	known := map[string]bool{}
	for _, c := range extended {
		known[c.Key] = true
		add(routing.Link(c, questionbank.Extended), "0.8", "weekly")
	}
	add("/blanda", "0.8", "weekly")
	add("/fler-quiz", "0.8", "weekly")
	add("/installningar", "0.3", "monthly")

	for _, keys := range combos {
		if len(keys) < 2 || !allKnown(known, keys) {
			continue
		}
		add(routing.MultiLink(keys), "0.7", "weekly")
	}
	return out
}

func allKnown(known map[string]bool, keys []string) bool {
	for _, k := range keys {
		if !known[k] {
			return false
		}
	}
	return true
}

// Generate renders the sitemap document.
func Generate(baseURL string, primary, extended []quiz.Category, combos [][]string, lastMod time.Time) ([]byte, error) {
	set := urlSet{Xmlns: xmlns, URLs: Entries(baseURL, primary, extended, combos, lastMod)}
	body, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding sitemap: %w", err)
	}
	return append([]byte(xml.Header), append(body, '\n')...), nil
}
