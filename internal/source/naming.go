package source

import (
	"regexp"
	"strings"
	"unicode/utf16"
)

var (
	spaceRun   = regexp.MustCompile(`\s+`)
	nonKeyChar = regexp.MustCompile(`[^a-z0-9_]`)
)

// NameFromFile turns "Star Wars.csv" into "Star Wars".
func NameFromFile(file string) string {
	return strings.TrimSpace(strings.Replace(file, ".csv", "", 1))
}

// KeyFromFile turns "Star Wars.csv" into "star_wars". Characters outside
// [a-z0-9_] are dropped, so "Andra världskriget.csv" becomes
// "andra_vrldskriget".
func KeyFromFile(file string) string {
	k := strings.ToLower(strings.Replace(file, ".csv", "", 1))
	k = spaceRun.ReplaceAllString(k, "_")
	return nonKeyChar.ReplaceAllString(k, "")
}

// Describe builds the descriptor of a discovered extended file.
func Describe(file string) Descriptor {
	name := NameFromFile(file)
	key := KeyFromFile(file)
	return Descriptor{Key: key, Name: name, File: file, Icon: AutoIcon(name), Color: AutoColor(key)}
}

var iconRules = []struct {
	words []string
	icon  string
}{
	{[]string{"star wars", "rymd"}, "star"},
	{[]string{"fotboll", "sport"}, "trophy"},
	{[]string{"jul", "vinter"}, "gift"},
	{[]string{"harry potter", "magi"}, "book"},
	{[]string{"matematik", "matte"}, "calculator"},
	{[]string{"historia"}, "clock"},
	{[]string{"kemi"}, "flask"},
	{[]string{"biologi"}, "leaf"},
	{[]string{"fysik"}, "zap"},
	{[]string{"musik"}, "music"},
	{[]string{"film"}, "film"},
}

// AutoIcon picks an icon id from keywords in the category name.
func AutoIcon(name string) string {
	n := strings.ToLower(name)
	for _, r := range iconRules {
		for _, w := range r.words {
			if strings.Contains(n, w) {
				return r.icon
			}
		}
	}
	return "help-circle"
}

var palette = func() []string {
	bases := []string{
		"#3b82f6 0%, #8b5cf6 100%",
		"#ec4899 0%, #ef4444 100%",
		"#3b82f6 0%, #10b981 100%",
		"rgb(249, 115, 22) 0%, rgb(250, 204, 21) 100%",
		"#6366f1 0%, #8b5cf6 100%",
		"#8b5cf6 0%, #ec4899 100%",
		"#a855f7 0%, #ec4899 100%",
		"#ec4899 0%, #f472b6 100%",
	}
	var out []string
	for _, b := range bases {
		for _, deg := range []string{"135deg", "45deg", "225deg", "315deg"} {
			out = append(out, "linear-gradient("+deg+", "+b+")")
		}
	}
	return append(out,
		"linear-gradient(135deg, #fbbf24 0%, #f59e0b 100%)",
		"linear-gradient(135deg, #06b6d4 0%, #0891b2 100%)",
	)
}()

// AutoColor picks a gradient for a category key. The hash is the classic
// 31-multiplier string hash over UTF-16 code units in 32-bit arithmetic, plus
// the key length, so colors stay stable across runs.
func AutoColor(key string) string {
	var h int32
	for _, u := range utf16.Encode([]rune(key)) {
		h = (h << 5) - h + int32(u)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	v += int64(len(utf16.Encode([]rune(key))))
	return palette[v%int64(len(palette))]
}
