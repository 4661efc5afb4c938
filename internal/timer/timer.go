// Package timer implements the per-question countdown. A run advances its
// progress from 0 to 100 in fixed steps and, after a short settle delay,
// reports expiry. Only one run is ever active; every scheduled callback
// carries the token of the run that created it and is discarded once that
// run has been stopped or superseded.
package timer

import (
	"sync"
	"time"

	"psp.com/quizla/backend/internal/clock"
)

const (
	Steps       = 100
	SettleDelay = 200 * time.Millisecond
)

// Token identifies one run. The zero Token means "no run".
type Token uint64

type Timer struct {
	clock    clock.Clock
	onTick   func(tok Token, progress int)
	onExpire func(Token)

	mu       sync.Mutex
	last     Token
	active   Token
	ticking  bool
	progress int
	pending  clock.Stopper
}

// New builds a timer. onTick receives each step's progress (1 to Steps) with
// the token of its run; the reset to 0 on Start is not reported. onExpire
// receives the token of the run that expired. Both are called from clock
// callbacks without the timer's lock held and may be nil.
func New(c clock.Clock, onTick func(tok Token, progress int), onExpire func(Token)) *Timer {
	if c == nil {
		c = clock.Real{}
	}
	return &Timer{clock: c, onTick: onTick, onExpire: onExpire}
}

// Interval is the time between two progress steps for a run of the given
// length.
func Interval(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second / Steps
}

// Start cancels any current run and begins a new one. Callers must not pass
// a non-positive duration; doing so only cancels and returns the zero Token.
func (t *Timer) Start(seconds int) Token {
	t.mu.Lock()
	t.stopLocked()
	if seconds <= 0 {
		t.mu.Unlock()
		return 0
	}
	t.last++
	tok := t.last
	t.active = tok
	t.ticking = true
	t.progress = 0
	iv := Interval(seconds)
	t.pending = t.clock.AfterFunc(iv, func() { t.tick(tok, iv) })
	t.mu.Unlock()
	return tok
}

// Stop cancels ticking and any pending expiry. The last progress value is
// kept so an expired bar stays full until the next Start.
func (t *Timer) Stop() {
	t.mu.Lock()
	t.stopLocked()
	t.mu.Unlock()
}

func (t *Timer) stopLocked() {
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
	t.active = 0
	t.ticking = false
}

func (t *Timer) tick(tok Token, iv time.Duration) {
	t.mu.Lock()
	if tok != t.active || !t.ticking {
		t.mu.Unlock()
		return
	}
	t.progress++
	p := t.progress
	if p >= Steps {
		t.ticking = false
		t.pending = t.clock.AfterFunc(SettleDelay, func() { t.expire(tok) })
	} else {
		t.pending = t.clock.AfterFunc(iv, func() { t.tick(tok, iv) })
	}
	t.mu.Unlock()

	if t.onTick != nil {
		t.onTick(tok, p)
	}
}

func (t *Timer) expire(tok Token) {
	t.mu.Lock()
	if tok != t.active {
		t.mu.Unlock()
		return
	}
	t.active = 0
	t.pending = nil
	t.mu.Unlock()

	if t.onExpire != nil {
		t.onExpire(tok)
	}
}

// Running reports whether a run is ticking or waiting to expire.
func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active != 0
}

// Active returns the token of the current run, or zero.
func (t *Timer) Active() Token {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

func (t *Timer) Progress() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress
}
