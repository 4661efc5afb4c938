package questionbank

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"psp.com/quizla/backend/internal/quiz"
)

// AggregateKey is reserved for the synthetic "shuffle everything" category.
const (
	AggregateKey  = "blandad"
	AggregateName = "Blanda"
	AggregateIcon = "shuffle"
)

var ErrReservedKey = errors.New("questionbank: key is reserved for the aggregate category")

type Scope int

const (
	Primary Scope = iota
	Extended
)

func (s Scope) String() string {
	if s == Extended {
		return "extended"
	}
	return "primary"
}

// Bank holds primary and extended categories in discovery order plus the
// derived aggregate. Batches are applied under one lock so readers never see a
// half-applied load.
type Bank struct {
	mu         sync.RWMutex
	primary    map[string]quiz.Category
	primOrder  []string
	extended   map[string]quiz.Category
	extOrder   []string
	aggregate  *quiz.Category
	includeExt bool

	ready     chan struct{}
	readyOnce sync.Once
}

func New() *Bank {
	return &Bank{
		primary:  make(map[string]quiz.Category),
		extended: make(map[string]quiz.Category),
		ready:    make(chan struct{}),
	}
}

// Upsert adds or replaces a single category.
func (b *Bank) Upsert(scope Scope, c quiz.Category) error {
	return b.UpsertBatch(scope, []quiz.Category{c})
}

// UpsertBatch applies a whole load batch in slice order. Applying a primary
// batch marks the bank ready.
func (b *Bank) UpsertBatch(scope Scope, cats []quiz.Category) error {
	for _, c := range cats {
		if c.Key == AggregateKey {
			return ErrReservedKey
		}
	}

	b.mu.Lock()
	for _, c := range cats {
		if c.Questions == nil {
			c.Questions = []quiz.Question{}
		}
		switch scope {
		case Extended:
			if _, ok := b.extended[c.Key]; !ok {
				b.extOrder = append(b.extOrder, c.Key)
			}
			b.extended[c.Key] = c
		default:
			if _, ok := b.primary[c.Key]; !ok {
				b.primOrder = append(b.primOrder, c.Key)
			}
			b.primary[c.Key] = c
		}
	}
	b.mu.Unlock()

	if scope == Primary {
		b.readyOnce.Do(func() { close(b.ready) })
	}
	return nil
}

// Ready is closed once the first primary batch has been applied.
func (b *Bank) Ready() <-chan struct{} { return b.ready }

// Get looks a key up in primary, extended and finally the aggregate.
func (b *Bank) Get(key string) (quiz.Category, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if c, ok := b.primary[key]; ok {
		return c, true
	}
	if c, ok := b.extended[key]; ok {
		return c, true
	}
	if key == AggregateKey && b.aggregate != nil {
		return *b.aggregate, true
	}
	return quiz.Category{}, false
}

// ScopeOf reports which scope holds key.
func (b *Bank) ScopeOf(key string) (Scope, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if _, ok := b.primary[key]; ok {
		return Primary, true
	}
	if _, ok := b.extended[key]; ok {
		return Extended, true
	}
	return 0, false
}

func (b *Bank) AllPrimary() []quiz.Category {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return collect(b.primary, b.primOrder)
}

func (b *Bank) AllExtended() []quiz.Category {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return collect(b.extended, b.extOrder)
}

func (b *Bank) Aggregate() (quiz.Category, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.aggregate == nil {
		return quiz.Category{}, false
	}
	return *b.aggregate, true
}

// Search filters extended categories by a case-insensitive name substring.
// An empty term returns every extended category.
func (b *Bank) Search(term string) []quiz.Category {
	all := b.AllExtended()
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return all
	}
	var out []quiz.Category
	for _, c := range all {
		if strings.Contains(strings.ToLower(c.Name), term) {
			out = append(out, c)
		}
	}
	return out
}

// Stats returns the question count per category key, aggregate included.
func (b *Bank) Stats() map[string]int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	stats := make(map[string]int, len(b.primary)+len(b.extended)+1)
	for k, c := range b.primary {
		stats[k] = len(c.Questions)
	}
	for k, c := range b.extended {
		stats[k] = len(c.Questions)
	}
	if b.aggregate != nil {
		stats[AggregateKey] = len(b.aggregate.Questions)
	}
	return stats
}

// Keys returns all known category keys sorted, aggregate excluded.
func (b *Bank) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]string, 0, len(b.primary)+len(b.extended))
	keys = append(keys, b.primOrder...)
	keys = append(keys, b.extOrder...)
	sort.Strings(keys)
	return keys
}

func collect(m map[string]quiz.Category, order []string) []quiz.Category {
	out := make([]quiz.Category, 0, len(order))
	for _, k := range order {
		out = append(out, m[k])
	}
	return out
}
