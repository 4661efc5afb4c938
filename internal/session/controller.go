package session

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"psp.com/quizla/backend/internal/attribution"
	"psp.com/quizla/backend/internal/clock"
	"psp.com/quizla/backend/internal/questionbank"
	"psp.com/quizla/backend/internal/quiz"
	"psp.com/quizla/backend/internal/settings"
	"psp.com/quizla/backend/internal/timer"
)

const noticeEmpty = "Inga frågor tillgängliga för denna kategori"

// Categories is the read side of the category store plus the inclusion
// flag the aggregate is computed from.
type Categories interface {
	attribution.Source
	SetIncludeExtended(include bool) bool
}

// SettingsSaver persists settings after every change.
type SettingsSaver interface {
	Save(ctx context.Context, s settings.Settings) error
}

type Options struct {
	Categories Categories
	Presenter  Presenter
	Saver      SettingsSaver
	Settings   settings.Settings
	Clock      clock.Clock
	Rand       *rand.Rand
	Logger     *slog.Logger
}

// Controller owns the session state. All methods are safe for concurrent
// use; timer and auto-advance callbacks are serialized with them.
type Controller struct {
	cats     Categories
	resolver *attribution.Resolver
	out      Presenter
	saver    SettingsSaver
	clock    clock.Clock
	rng      *rand.Rand
	log      *slog.Logger
	timer    *timer.Timer

	mu       sync.Mutex
	cfg      settings.Settings
	state    State
	sess     *session
	timerTok timer.Token
	advance  clock.Stopper
	advGen   uint64
}

func New(opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Rand == nil {
		opts.Rand = quiz.NewRand()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	c := &Controller{
		cats:     opts.Categories,
		resolver: attribution.New(opts.Categories),
		out:      opts.Presenter,
		saver:    opts.Saver,
		clock:    opts.Clock,
		rng:      opts.Rand,
		log:      opts.Logger,
		cfg:      opts.Settings,
	}
	c.timer = timer.New(opts.Clock, c.onTick, c.onExpire)
	if c.cats != nil {
		c.cats.SetIncludeExtended(c.cfg.IncludeAllCategories)
	}
	return c
}

// StartSession starts a new session over one category, or over several
// categories combined. A combined session is titled by how many extended
// categories it covers.
func (c *Controller) StartSession(keys ...string) error {
	return c.start("", keys)
}

// StartTitled is StartSession with an explicit nominal title, used for
// combined sessions opened from a link.
func (c *Controller) StartTitled(title string, keys ...string) error {
	return c.start(title, keys)
}

func (c *Controller) start(title string, keys []string) error {
	if len(keys) == 0 {
		return fmt.Errorf("%w: no category given", ErrUnknownCategory)
	}

	var (
		pool  []quiz.Question
		names []string
		used  []string
	)
	if len(keys) == 1 {
		cat, ok := c.cats.Get(keys[0])
		if !ok && keys[0] != questionbank.AggregateKey {
			return fmt.Errorf("%w: %q", ErrUnknownCategory, keys[0])
		}
		if !ok {
			// no aggregate until a primary question exists
			cat = quiz.Category{Key: questionbank.AggregateKey, Name: questionbank.AggregateName}
		}
		pool = cat.Questions
		names = []string{cat.Name}
		used = keys
		if title == "" {
			title = cat.Name
		}
	} else {
		lists := make([][]quiz.Question, 0, len(keys))
		for _, k := range keys {
			cat, ok := c.cats.Get(k)
			if !ok || k == questionbank.AggregateKey {
				continue
			}
			lists = append(lists, cat.Annotated())
			names = append(names, cat.Name)
			used = append(used, k)
		}
		if len(used) == 0 {
			return fmt.Errorf("%w: %v", ErrUnknownCategory, keys)
		}
		pool = quiz.Concat(lists...)
		if title == "" {
			title = c.combinedTitle(used)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(pool) == 0 {
		c.out.Notice(noticeEmpty)
		return fmt.Errorf("%w: %v", ErrNoQuestionsAvailable, keys)
	}

	c.cancelAdvanceLocked()
	c.stopTimerLocked()
	c.sess = &session{
		id:        uuid.NewString(),
		keys:      used,
		names:     names,
		title:     title,
		attribute: len(used) > 1 || used[0] == questionbank.AggregateKey,
		questions: quiz.Shuffle(c.rng, pool),
		chosen:    -1,
		breakdown: map[string]Score{},
		startedAt: c.clock.Now(),
	}
	c.log.Info("session started", "session", c.sess.id, "keys", used, "questions", len(pool))

	c.out.ShowView(ViewQuiz)
	c.presentLocked(true)
	return nil
}

func (c *Controller) combinedTitle(keys []string) string {
	ext := c.cats.AllExtended()
	all := len(keys) == len(ext)
	for i := 0; all && i < len(ext); i++ {
		all = slices.Contains(keys, ext[i].Key)
	}
	if all {
		return fmt.Sprintf("Alla Kategorier (%d)", len(keys))
	}
	return fmt.Sprintf("Blandade Kategorier (%d)", len(keys))
}

// presentLocked pushes the current question. The timer is restarted only
// when startTimer is set; mode switches re-present without touching it.
func (c *Controller) presentLocked(startTimer bool) {
	s := c.sess
	q := s.current()

	s.revealed = false
	s.chosen = -1
	s.options = nil
	c.state = QuestionActive

	c.out.SetTitle(c.titleLocked(q))
	c.out.SetQuestion(q, s.index, len(s.questions))
	if c.cfg.ShowMultipleChoice {
		s.options = quiz.AnswerOptions(c.rng, q)
		c.out.SetOptions(s.options)
		c.out.SetAnswer("", false)
	} else {
		c.out.SetOptions(nil)
		c.pushAnswerLocked()
	}
	c.out.SetScore(s.score, c.cfg.ScoreTracking)

	if startTimer {
		c.restartTimerLocked()
	}
}

func (c *Controller) titleLocked(q quiz.Question) string {
	if !c.sess.attribute {
		return c.sess.title
	}
	if cat, ok := c.resolver.Resolve(q); ok && cat.Name != "" {
		return cat.Name
	}
	return c.sess.title
}

func (c *Controller) pushAnswerLocked() {
	if c.sess.revealed || c.cfg.AlwaysShowAnswer {
		c.out.SetAnswer(c.sess.current().CorrectAnswer, true)
		return
	}
	c.out.SetAnswer("", false)
}

// SelectAnswer evaluates a multiple-choice pick. It is ignored with
// ErrNotAccepted outside an open multiple-choice question.
func (c *Controller) SelectAnswer(i int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess == nil {
		return ErrNoSession
	}
	if c.state != QuestionActive || !c.cfg.ShowMultipleChoice || c.sess.options == nil {
		return ErrNotAccepted
	}
	if i < 0 || i >= len(c.sess.options) {
		return fmt.Errorf("%w: %d", ErrInvalidOption, i)
	}

	c.stopTimerLocked()
	c.lockAnswerLocked(i)
	return nil
}

// lockAnswerLocked records choice i, scores it and schedules auto-advance.
func (c *Controller) lockAnswerLocked(i int) {
	s := c.sess
	s.chosen = i
	c.state = AnswerLocked
	c.out.MarkOptions(i, quiz.CorrectIndex(s.options))

	if c.cfg.ScoreTracking {
		c.tallyLocked(s.options[i].Correct)
	}
	if c.cfg.AutoAdvance {
		c.scheduleAdvanceLocked()
	}
}

// tallyLocked counts the current question as answered, overall and for the
// category it is attributed to.
func (c *Controller) tallyLocked(correct bool) {
	s := c.sess
	name := c.titleLocked(s.current())
	b := s.breakdown[name]
	b.Answered++
	s.score.Answered++
	if correct {
		b.Correct++
		s.score.Correct++
	}
	s.breakdown[name] = b
	c.out.SetScore(s.score, true)
}

// ToggleReveal shows or hides the answer in direct-answer mode.
func (c *Controller) ToggleReveal() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess == nil {
		return ErrNoSession
	}
	if c.cfg.ShowMultipleChoice || c.state != QuestionActive {
		return ErrNotAccepted
	}
	c.sess.revealed = !c.sess.revealed
	c.pushAnswerLocked()
	return nil
}

// Advance moves to the next question, wrapping to the first after the last.
func (c *Controller) Advance() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return ErrNoSession
	}
	c.advanceLocked()
	return nil
}

func (c *Controller) advanceLocked() {
	c.cancelAdvanceLocked()
	c.sess.index = (c.sess.index + 1) % len(c.sess.questions)
	c.presentLocked(true)
}

// EndSession discards the session and returns to the home view.
func (c *Controller) EndSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endLocked()
	c.out.ShowView(ViewHome)
}

// Navigate shows a non-quiz view. Leaving the quiz ends the session.
func (c *Controller) Navigate(v View) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v != ViewQuiz {
		c.endLocked()
	}
	c.out.ShowView(v)
}

func (c *Controller) endLocked() {
	c.cancelAdvanceLocked()
	c.stopTimerLocked()
	if c.sess != nil {
		c.log.Info("session ended", "session", c.sess.id,
			"correct", c.sess.score.Correct, "answered", c.sess.score.Answered)
		c.out.SetScore(Score{}, c.cfg.ScoreTracking)
	}
	c.sess = nil
	c.state = Idle
}

// ToggleSetting flips a boolean option, persists the result and applies it
// to the running session.
func (c *Controller) ToggleSetting(ctx context.Context, name string) (settings.Change, error) {
	c.mu.Lock()
	ch, err := c.cfg.Toggle(name)
	if err != nil {
		c.mu.Unlock()
		return ch, err
	}
	snap := c.cfg
	c.out.SettingsChanged(snap, ch.Affected())
	if c.sess != nil {
		c.applyLocked(ch)
	}
	if ch.Has(settings.IncludeAllCategories) && c.cats != nil {
		if !c.cats.SetIncludeExtended(snap.IncludeAllCategories) {
			c.log.Debug("aggregate refresh deferred until primary data is loaded")
		}
	}
	c.mu.Unlock()

	c.persist(ctx, snap)
	return ch, nil
}

func (c *Controller) applyLocked(ch settings.Change) {
	switch {
	case ch.Has(settings.ShowMultipleChoice) || ch.Has(settings.AlwaysShowAnswer):
		c.presentLocked(false)
	case ch.Has(settings.ScoreTracking):
		c.out.SetScore(c.sess.score, c.cfg.ScoreTracking)
	}
	if ch.Has(settings.Timer) {
		if !c.cfg.TimerEnabled() {
			c.stopTimerLocked()
			c.out.SetTimerProgress(0, false)
		} else if c.state == QuestionActive {
			c.restartTimerLocked()
		}
	}
	if ch.Has(settings.AutoAdvance) && !c.cfg.AutoAdvance {
		c.cancelAdvanceLocked()
	}
}

// SetTimerDuration changes the countdown length. A running countdown keeps
// its length; the new one applies from the next question.
func (c *Controller) SetTimerDuration(ctx context.Context, seconds int) error {
	c.mu.Lock()
	if err := c.cfg.SetTimerDuration(seconds); err != nil {
		c.mu.Unlock()
		return err
	}
	snap := c.cfg
	c.out.SettingsChanged(snap, []string{settings.TimerDuration})
	c.mu.Unlock()

	c.persist(ctx, snap)
	return nil
}

func (c *Controller) persist(ctx context.Context, s settings.Settings) {
	if c.saver == nil {
		return
	}
	if err := c.saver.Save(ctx, s); err != nil {
		c.log.Warn("saving settings failed", "error", err)
	}
}

func (c *Controller) Settings() settings.Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{State: c.state, Chosen: -1, Settings: c.cfg}
	if s := c.sess; s != nil {
		snap.SessionID = s.id
		snap.Keys = append([]string(nil), s.keys...)
		snap.Categories = append([]string(nil), s.names...)
		snap.Title = s.title
		snap.Index = s.index
		snap.Total = len(s.questions)
		snap.Revealed = s.revealed
		snap.Chosen = s.chosen
		snap.Score = s.score
		snap.StartedAt = s.startedAt
		for name, sc := range s.breakdown {
			snap.Breakdown = append(snap.Breakdown, CategoryScore{Name: name, Score: sc})
		}
		slices.SortFunc(snap.Breakdown, func(a, b CategoryScore) int { return strings.Compare(a.Name, b.Name) })
	}
	return snap
}

func (c *Controller) restartTimerLocked() {
	if !c.cfg.TimerEnabled() {
		c.stopTimerLocked()
		c.out.SetTimerProgress(0, false)
		return
	}
	c.timerTok = c.timer.Start(c.cfg.TimerDuration)
	c.out.SetTimerProgress(0, true)
}

func (c *Controller) stopTimerLocked() {
	c.timer.Stop()
	c.timerTok = 0
}

// onTick shows the progress of run tok. Ticks of a stopped or replaced run
// are dropped.
func (c *Controller) onTick(tok timer.Token, progress int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil || tok != c.timerTok {
		return
	}
	c.out.SetTimerProgress(progress, true)
}

// onExpire reveals the answer for the run identified by tok. Runs that were
// stopped or replaced before their callback got the lock are ignored.
func (c *Controller) onExpire(tok timer.Token) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess == nil || c.state != QuestionActive || tok != c.timerTok {
		return
	}
	c.timerTok = 0

	if c.cfg.ShowMultipleChoice && c.sess.options != nil {
		c.lockAnswerLocked(quiz.CorrectIndex(c.sess.options))
		return
	}
	c.sess.revealed = true
	c.pushAnswerLocked()
	if c.cfg.ScoreTracking {
		c.tallyLocked(false)
	}
	if c.cfg.AutoAdvance {
		c.scheduleAdvanceLocked()
	}
}

func (c *Controller) scheduleAdvanceLocked() {
	c.cancelAdvanceLocked()
	gen := c.advGen
	c.advance = c.clock.AfterFunc(AutoAdvanceDelay, func() { c.autoAdvance(gen) })
}

func (c *Controller) cancelAdvanceLocked() {
	if c.advance != nil {
		c.advance.Stop()
		c.advance = nil
	}
	c.advGen++
}

func (c *Controller) autoAdvance(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.advGen || c.sess == nil {
		return
	}
	c.advanceLocked()
}
