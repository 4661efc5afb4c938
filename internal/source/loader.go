// Package source fetches category files over HTTP, parses them and
// discovers the optional extended categories. Failures are contained per
// file: a source that cannot be fetched yields a category without questions.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"psp.com/quizla/backend/internal/quiz"
)

const userAgent = "Quizla-Loader/1.0"

// ErrSourceUnavailable wraps fetch and HTTP status failures for one file.
var ErrSourceUnavailable = errors.New("source unavailable")

type Options struct {
	Client      *http.Client
	BaseURL     string
	PrimaryDir  string
	ExtendedDir string
	Manifest    string
	Logger      *slog.Logger
	// Progress receives loading-screen updates: primary loads report 0-100,
	// extended loads 50-75.
	Progress func(percent int, message string)
}

type Loader struct {
	client      *http.Client
	baseURL     string
	primaryDir  string
	extendedDir string
	manifest    string
	log         *slog.Logger
	progress    func(int, string)
}

func New(opts Options) *Loader {
	l := &Loader{
		client:      opts.Client,
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		primaryDir:  strings.Trim(opts.PrimaryDir, "/"),
		extendedDir: strings.Trim(opts.ExtendedDir, "/"),
		manifest:    opts.Manifest,
		log:         opts.Logger,
		progress:    opts.Progress,
	}
	if l.client == nil {
		l.client = &http.Client{Timeout: 8 * time.Second}
	}
	if l.primaryDir == "" {
		l.primaryDir = "data"
	}
	if l.extendedDir == "" {
		l.extendedDir = "data/kategori"
	}
	if l.manifest == "" {
		l.manifest = "index.json"
	}
	if l.log == nil {
		l.log = slog.New(slog.DiscardHandler)
	}
	if l.progress == nil {
		l.progress = func(int, string) {}
	}
	return l
}

// LoadPrimary fetches every primary source concurrently and returns one
// category per descriptor, in descriptor order, once all fetches are done.
func (l *Loader) LoadPrimary(ctx context.Context, descs []Descriptor) []quiz.Category {
	l.progress(0, "Startar laddning av frågor...")
	return l.loadAll(ctx, l.primaryDir, descs, 0, 100)
}

// LoadExtended is LoadPrimary for discovered extended sources.
func (l *Loader) LoadExtended(ctx context.Context, descs []Descriptor) []quiz.Category {
	if len(descs) == 0 {
		return nil
	}
	l.progress(50, fmt.Sprintf("Laddar %d extra kategorier...", len(descs)))
	cats := l.loadAll(ctx, l.extendedDir, descs, 50, 75)
	l.progress(75, "Extra kategorier laddade!")
	return cats
}

func (l *Loader) loadAll(ctx context.Context, dir string, descs []Descriptor, from, to int) []quiz.Category {
	out := make([]quiz.Category, len(descs))
	var (
		wg   sync.WaitGroup
		done atomic.Int32
	)
	for i, d := range descs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out[i] = l.loadOne(ctx, dir, d)
			n := int(done.Add(1))
			pct := from + n*(to-from)/len(descs)
			l.progress(pct, fmt.Sprintf("Laddade %s (%d frågor)", d.Name, len(out[i].Questions)))
		}()
	}
	wg.Wait()
	return out
}

func (l *Loader) loadOne(ctx context.Context, dir string, d Descriptor) quiz.Category {
	cat := quiz.Category{
		Key:       d.Key,
		Name:      d.Name,
		Icon:      d.Icon,
		Color:     d.Color,
		File:      dir + "/" + d.File,
		Questions: []quiz.Question{},
	}
	body, err := l.fetch(ctx, l.fileURL(dir, d.File))
	if err != nil {
		l.log.Warn("source load failed", "source", d.Key, "file", d.File, "error", err)
		return cat
	}
	if qs := quiz.ParseCSV(body); qs != nil {
		cat.Questions = qs
	}
	l.log.Debug("source loaded", "source", d.Key, "questions", len(cat.Questions))
	return cat
}

func (l *Loader) fileURL(dir, file string) string {
	return l.baseURL + "/" + dir + "/" + url.PathEscape(file)
}

func (l *Loader) fetch(ctx context.Context, u string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s returned %d", ErrSourceUnavailable, u, resp.StatusCode)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	return string(b), nil
}
