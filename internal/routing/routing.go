// Package routing maps external locators such as "/quiz/musik" or
// "/fotboll-star_wars" to session starts and builds the canonical links
// back.
package routing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"psp.com/quizla/backend/internal/questionbank"
	"psp.com/quizla/backend/internal/quiz"
	"psp.com/quizla/backend/internal/session"
)

var ErrCatalogNotReady = errors.New("routing: categories not loaded in time")

// Default wait for the category store: 50 attempts of 100 ms.
const (
	WaitAttempts = 50
	WaitInterval = 100 * time.Millisecond
)

type Kind int

const (
	Miss Kind = iota
	Home
	Category
	Aggregate
	Multi
	Page
)

func (k Kind) String() string {
	switch k {
	case Home:
		return "home"
	case Category:
		return "category"
	case Aggregate:
		return "aggregate"
	case Multi:
		return "multi"
	case Page:
		return "page"
	}
	return "miss"
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

type Route struct {
	Kind  Kind         `json:"kind"`
	Keys  []string     `json:"keys,omitempty"`
	Title string       `json:"title,omitempty"`
	View  session.View `json:"view"`
}

// Catalog is the category store as seen by the router.
type Catalog interface {
	Get(key string) (quiz.Category, bool)
	AllPrimary() []quiz.Category
	AllExtended() []quiz.Category
	Ready() <-chan struct{}
}

// Resolve classifies a locator. Combined links are tried first when the
// locator contains "-", then primary keys, then extended keys and names.
func Resolve(cat Catalog, locator string) Route {
	loc := strings.Trim(strings.TrimSpace(locator), "/")
	loc = strings.TrimPrefix(loc, "quiz/")

	switch strings.ToLower(loc) {
	case "":
		return Route{Kind: Home, View: session.ViewHome}
	case questionbank.AggregateKey, "blanda":
		return Route{Kind: Aggregate, Keys: []string{questionbank.AggregateKey}, Title: questionbank.AggregateName, View: session.ViewQuiz}
	case string(session.ViewMore):
		return Route{Kind: Page, View: session.ViewMore}
	case string(session.ViewSettings), "settings":
		return Route{Kind: Page, View: session.ViewSettings}
	}

	ext := cat.AllExtended()
	if strings.Contains(loc, "-") {
		if r, ok := multi(ext, loc); ok {
			return r
		}
	}

	key := Key(loc)
	for _, c := range cat.AllPrimary() {
		if c.Key == key {
			return Route{Kind: Category, Keys: []string{c.Key}, Title: c.Name, View: session.ViewQuiz}
		}
	}

	slug := Slug(loc)
	for _, c := range ext {
		if c.Key == loc || c.Key == key || Slug(c.Name) == slug {
			return Route{Kind: Category, Keys: []string{c.Key}, Title: c.Name, View: session.ViewQuiz}
		}
	}
	return Route{Kind: Miss, View: session.ViewHome}
}

// multi accepts a locator only if every "-" separated part is an exact
// extended key and there are at least two parts.
func multi(ext []quiz.Category, loc string) (Route, bool) {
	byKey := make(map[string]quiz.Category, len(ext))
	for _, c := range ext {
		byKey[c.Key] = c
	}
	parts := strings.Split(loc, "-")
	if len(parts) < 2 {
		return Route{}, false
	}
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		c, ok := byKey[p]
		if !ok {
			return Route{}, false
		}
		names = append(names, c.Name)
	}
	return Route{Kind: Multi, Keys: parts, Title: strings.Join(names, " + "), View: session.ViewQuiz}, true
}

// Link returns the canonical path for a category.
func Link(c quiz.Category, scope questionbank.Scope) string {
	switch {
	case c.Key == questionbank.AggregateKey:
		return "/blanda"
	case scope == questionbank.Primary:
		return "/quiz/" + c.Key
	}
	return "/quiz/" + Slug(c.Name)
}

// MultiLink returns the combined link for two or more extended keys.
func MultiLink(keys []string) string {
	return "/" + strings.Join(keys, "-")
}

// Starter is the part of the session controller the bridge drives.
type Starter interface {
	StartSession(keys ...string) error
	StartTitled(title string, keys ...string) error
	Navigate(v session.View)
}

type Bridge struct {
	cat      Catalog
	ctrl     Starter
	attempts int
	interval time.Duration
	log      *slog.Logger
}

func NewBridge(cat Catalog, ctrl Starter, log *slog.Logger) *Bridge {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Bridge{cat: cat, ctrl: ctrl, attempts: WaitAttempts, interval: WaitInterval, log: log}
}

// WithWait overrides how long Open waits for the category store.
func (b *Bridge) WithWait(attempts int, interval time.Duration) *Bridge {
	b.attempts, b.interval = attempts, interval
	return b
}

// Open resolves locator and starts the matching session or shows the
// matching view. A miss falls back to the home view and is not an error.
func (b *Bridge) Open(ctx context.Context, locator string) (Route, error) {
	if err := b.await(ctx); err != nil {
		b.ctrl.Navigate(session.ViewHome)
		return Route{Kind: Miss, View: session.ViewHome}, err
	}

	r := Resolve(b.cat, locator)
	b.log.Debug("route resolved", "locator", locator, "kind", r.Kind, "keys", r.Keys)

	var err error
	switch r.Kind {
	case Category, Aggregate:
		err = b.ctrl.StartSession(r.Keys...)
	case Multi:
		err = b.ctrl.StartTitled(r.Title, r.Keys...)
	case Page, Home:
		b.ctrl.Navigate(r.View)
	default:
		b.log.Info("no category for locator", "locator", locator)
		b.ctrl.Navigate(session.ViewHome)
	}
	if err != nil {
		return r, fmt.Errorf("opening %q: %w", locator, err)
	}
	return r, nil
}

func (b *Bridge) await(ctx context.Context) error {
	select {
	case <-b.cat.Ready():
		return nil
	default:
	}
	t := time.NewTicker(b.interval)
	defer t.Stop()
	for range b.attempts {
		select {
		case <-b.cat.Ready():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	select {
	case <-b.cat.Ready():
		return nil
	default:
		return ErrCatalogNotReady
	}
}
