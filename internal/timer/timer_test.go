package timer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"psp.com/quizla/backend/internal/clock"
)

type recorder struct {
	mu      sync.Mutex
	ticks   []int
	tokens  []Token
	expired []Token
}

func (r *recorder) tick(tok Token, p int) {
	r.mu.Lock()
	r.ticks = append(r.ticks, p)
	r.tokens = append(r.tokens, tok)
	r.mu.Unlock()
}

func (r *recorder) expire(tok Token) {
	r.mu.Lock()
	r.expired = append(r.expired, tok)
	r.mu.Unlock()
}

func newTimer() (*Timer, *clock.Fake, *recorder) {
	c := clock.NewFake(time.Unix(0, 0))
	r := &recorder{}
	return New(c, r.tick, r.expire), c, r
}

func TestInterval(t *testing.T) {
	assert.Equal(t, 150*time.Millisecond, Interval(15))
	assert.Equal(t, 100*time.Millisecond, Interval(10))
}

func TestTimer_FullRunExpiresAfterSettle(t *testing.T) {
	tm, c, r := newTimer()
	tok := tm.Start(15)
	require.NotZero(t, tok)
	assert.True(t, tm.Running())

	c.Advance(15 * time.Second)
	assert.Equal(t, Steps, tm.Progress())
	assert.Empty(t, r.expired, "expiry waits for the settle delay")
	assert.True(t, tm.Running())

	c.Advance(SettleDelay)
	assert.Equal(t, []Token{tok}, r.expired)
	assert.False(t, tm.Running())
	require.Len(t, r.ticks, Steps)
	assert.Equal(t, 1, r.ticks[0])
	assert.Equal(t, Steps, r.ticks[Steps-1])
	for _, got := range r.tokens {
		assert.Equal(t, tok, got)
	}
}

func TestTimer_RestartSupersedesPreviousRun(t *testing.T) {
	tm, c, r := newTimer()
	first := tm.Start(10)
	c.Advance(5 * time.Second)
	second := tm.Start(10)
	assert.NotEqual(t, first, second)
	assert.Equal(t, 0, tm.Progress())

	r.mu.Lock()
	before := len(r.tokens)
	r.mu.Unlock()

	c.Advance(time.Minute)
	assert.Equal(t, []Token{second}, r.expired, "exactly one expiry, from the latest run")
	assert.Zero(t, c.Pending())
	for _, got := range r.tokens[before:] {
		assert.Equal(t, second, got, "ticks after a restart belong to the new run")
	}
}

func TestTimer_StartTwiceImmediately(t *testing.T) {
	tm, c, r := newTimer()
	tm.Start(10)
	tok := tm.Start(10)
	c.Advance(20 * time.Second)
	assert.Equal(t, []Token{tok}, r.expired)
}

func TestTimer_StopKeepsProgressAndCancelsExpiry(t *testing.T) {
	tm, c, r := newTimer()
	tm.Start(10)
	c.Advance(10 * time.Second)
	require.Equal(t, Steps, tm.Progress())

	tm.Stop()
	tm.Stop()
	c.Advance(time.Second)
	assert.Empty(t, r.expired)
	assert.Equal(t, Steps, tm.Progress())
	assert.False(t, tm.Running())
}

func TestTimer_NonPositiveDurationDoesNotRun(t *testing.T) {
	tm, c, r := newTimer()
	assert.Zero(t, tm.Start(0))
	assert.Zero(t, tm.Start(-5))
	assert.False(t, tm.Running())
	c.Advance(time.Minute)
	assert.Empty(t, r.expired)
	assert.Empty(t, r.ticks)
}

func TestTimer_RealClockSingleExpiry(t *testing.T) {
	done := make(chan Token, 4)
	tm := New(clock.Real{}, nil, func(tok Token) { done <- tok })
	tm.Start(1)
	tok := tm.Start(1)

	select {
	case got := <-done:
		assert.Equal(t, tok, got)
	case <-time.After(3 * time.Second):
		t.Fatal("timer never expired")
	}
	select {
	case extra := <-done:
		t.Fatalf("unexpected second expiry %d", extra)
	case <-time.After(300 * time.Millisecond):
	}
}
