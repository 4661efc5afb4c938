// Package catalog orchestrates loading: primary categories block startup
// (served from the local cache when fresh), extended categories load in the
// background and are refreshed periodically.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron"

	"psp.com/quizla/backend/internal/cache"
	"psp.com/quizla/backend/internal/clock"
	"psp.com/quizla/backend/internal/questionbank"
	"psp.com/quizla/backend/internal/quiz"
	"psp.com/quizla/backend/internal/source"
)

var ErrRefreshRunning = errors.New("catalog: refresh already scheduled")

type Loader interface {
	LoadPrimary(ctx context.Context, descs []source.Descriptor) []quiz.Category
	Discover(ctx context.Context) []source.Descriptor
	LoadExtended(ctx context.Context, descs []source.Descriptor) []quiz.Category
}

type Options struct {
	Loader     Loader
	Bank       *questionbank.Bank
	Cache      *cache.QuestionCache
	Primary    []source.Descriptor
	OnExtended func(cats []quiz.Category)
	Clock      clock.Clock
	Logger     *slog.Logger
}

type Status struct {
	PrimaryLoaded  bool      `json:"primaryLoaded"`
	FromCache      bool      `json:"fromCache"`
	ExtendedLoaded bool      `json:"extendedLoaded"`
	ExtendedCount  int       `json:"extendedCount"`
	ExtendedAt     time.Time `json:"extendedAt,omitzero"`
}

type Catalog struct {
	loader     Loader
	bank       *questionbank.Bank
	cache      *cache.QuestionCache
	primary    []source.Descriptor
	onExtended func([]quiz.Category)
	clock      clock.Clock
	log        *slog.Logger

	extRunning atomic.Bool
	wg         sync.WaitGroup

	mu     sync.Mutex
	status Status
	sched  *gocron.Scheduler
}

func New(opts Options) *Catalog {
	c := &Catalog{
		loader:     opts.Loader,
		bank:       opts.Bank,
		cache:      opts.Cache,
		primary:    opts.Primary,
		onExtended: opts.OnExtended,
		clock:      opts.Clock,
		log:        opts.Logger,
	}
	if c.primary == nil {
		c.primary = source.PrimarySources()
	}
	if c.onExtended == nil {
		c.onExtended = func([]quiz.Category) {}
	}
	if c.clock == nil {
		c.clock = clock.Real{}
	}
	if c.log == nil {
		c.log = slog.New(slog.DiscardHandler)
	}
	return c
}

// LoadPrimary fills the bank with the primary categories, from the cache
// when a record younger than its TTL exists and from the sources otherwise.
func (c *Catalog) LoadPrimary(ctx context.Context) error {
	if c.fromCache(ctx) {
		return nil
	}

	cats := c.loader.LoadPrimary(ctx, c.primary)
	if err := c.bank.UpsertBatch(questionbank.Primary, cats); err != nil {
		return fmt.Errorf("storing primary categories: %w", err)
	}
	c.bank.RefreshAggregate()
	c.setStatus(func(s *Status) { s.PrimaryLoaded = true })

	total := 0
	for _, cat := range cats {
		total += len(cat.Questions)
	}
	c.log.Info("primary categories loaded", "categories", len(cats), "questions", total)
	if total == 0 || c.cache == nil {
		return nil
	}

	save := cats
	if agg, ok := c.bank.PrimaryAggregate(); ok {
		save = append(append([]quiz.Category(nil), cats...), agg)
	}
	if err := c.cache.Save(ctx, save, c.clock.Now()); err != nil {
		c.log.Warn("writing question cache failed", "error", err)
	}
	return nil
}

func (c *Catalog) fromCache(ctx context.Context) bool {
	if c.cache == nil {
		return false
	}
	rec, ok, err := c.cache.Load(ctx, c.clock.Now())
	switch {
	case errors.Is(err, cache.ErrNotFound):
		return false
	case err != nil:
		c.log.Warn("reading question cache failed", "error", err)
		return false
	case !ok:
		c.log.Debug("question cache expired")
		return false
	}

	cats := rec.Ordered(questionbank.AggregateKey)
	if err := c.bank.UpsertBatch(questionbank.Primary, cats); err != nil {
		c.log.Warn("cached categories rejected", "error", err)
		return false
	}
	if agg, ok := rec.Categories[questionbank.AggregateKey]; ok {
		c.bank.RestoreAggregate(agg)
	} else {
		c.bank.RefreshAggregate()
	}
	c.setStatus(func(s *Status) { s.PrimaryLoaded, s.FromCache = true, true })
	c.log.Info("primary categories restored from cache", "categories", len(cats))
	return true
}

// RefreshExtended discovers and loads the extended categories, stores them
// as one batch and recomputes the aggregate.
func (c *Catalog) RefreshExtended(ctx context.Context) ([]quiz.Category, error) {
	descs := c.loader.Discover(ctx)
	cats := c.loader.LoadExtended(ctx, descs)
	if len(cats) > 0 {
		if err := c.bank.UpsertBatch(questionbank.Extended, cats); err != nil {
			return nil, fmt.Errorf("storing extended categories: %w", err)
		}
	}
	c.bank.RefreshAggregate()
	c.setStatus(func(s *Status) {
		s.ExtendedLoaded = true
		s.ExtendedCount = len(cats)
		s.ExtendedAt = c.clock.Now()
	})
	c.log.Info("extended categories loaded", "categories", len(cats))
	c.onExtended(cats)
	return cats, nil
}

// LoadExtendedInBackground starts RefreshExtended on its own goroutine. It
// returns false when a load is already in flight.
func (c *Catalog) LoadExtendedInBackground(ctx context.Context) bool {
	if !c.extRunning.CompareAndSwap(false, true) {
		return false
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.extRunning.Store(false)
		if _, err := c.RefreshExtended(ctx); err != nil {
			c.log.Error("background extended load failed", "error", err)
		}
	}()
	return true
}

// StartRefresh re-runs extended discovery every interval until Stop.
func (c *Catalog) StartRefresh(ctx context.Context, every time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sched != nil {
		return ErrRefreshRunning
	}

	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	if _, err := s.Every(every).WaitForSchedule().Do(func() { c.LoadExtendedInBackground(ctx) }); err != nil {
		return fmt.Errorf("scheduling extended refresh: %w", err)
	}
	s.StartAsync()
	c.sched = s
	c.log.Info("extended refresh scheduled", "every", every)
	return nil
}

// Stop halts the refresh schedule and waits for a running load.
func (c *Catalog) Stop() {
	c.mu.Lock()
	if c.sched != nil {
		c.sched.Stop()
		c.sched = nil
	}
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *Catalog) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Catalog) setStatus(f func(*Status)) {
	c.mu.Lock()
	f(&c.status)
	c.mu.Unlock()
}
