package session_test

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"psp.com/quizla/backend/internal/clock"
	"psp.com/quizla/backend/internal/questionbank"
	"psp.com/quizla/backend/internal/quiz"
	"psp.com/quizla/backend/internal/session"
	"psp.com/quizla/backend/internal/settings"
	"psp.com/quizla/backend/internal/view"
)

type memSaver struct {
	mu    sync.Mutex
	saved []settings.Settings
}

func (m *memSaver) Save(_ context.Context, s settings.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, s)
	return nil
}

func (m *memSaver) last() settings.Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved[len(m.saved)-1]
}

func questions(prefix string, n int) []quiz.Question {
	out := make([]quiz.Question, n)
	for i := range out {
		out[i] = quiz.Question{
			ID:            i + 1,
			Text:          fmt.Sprintf("%s fråga %d", prefix, i+1),
			CorrectAnswer: fmt.Sprintf("%s rätt %d", prefix, i+1),
			WrongAnswers:  [3]string{"fel a", "fel b", "fel c"},
		}
	}
	return out
}

type fixture struct {
	bank  *questionbank.Bank
	clk   *clock.Fake
	rec   *view.Recorder
	saver *memSaver
	ctrl  *session.Controller
	byQ   map[string]quiz.Question
	names map[string]string
}

func newFixture(t *testing.T, cfg settings.Settings) *fixture {
	t.Helper()
	f := &fixture{
		bank:  questionbank.New(),
		clk:   clock.NewFake(time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)),
		rec:   view.NewRecorder(cfg),
		saver: &memSaver{},
		byQ:   map[string]quiz.Question{},
		names: map[string]string{},
	}
	primary := []quiz.Category{
		{Key: "sport", Name: "Sport", Questions: questions("sport", 3)},
		{Key: "musik", Name: "Musik", Questions: questions("musik", 2)},
		{Key: "tom", Name: "Tom", Questions: nil},
	}
	extended := []quiz.Category{
		{Key: "fotboll", Name: "Fotboll", Questions: questions("fotboll", 2)},
		{Key: "star_wars", Name: "Star Wars", Questions: questions("sw", 2)},
	}
	require.NoError(t, f.bank.UpsertBatch(questionbank.Primary, primary))
	require.NoError(t, f.bank.UpsertBatch(questionbank.Extended, extended))
	require.True(t, f.bank.SetIncludeExtended(cfg.IncludeAllCategories))
	for _, c := range append(primary, extended...) {
		for _, q := range c.Questions {
			f.byQ[q.Text] = q
			f.names[q.Text] = c.Name
		}
	}

	f.ctrl = session.New(session.Options{
		Categories: f.bank,
		Presenter:  f.rec,
		Saver:      f.saver,
		Settings:   cfg,
		Clock:      f.clk,
		Rand:       rand.New(rand.NewPCG(1, 2)),
	})
	return f
}

// pick returns the option index holding the correct (or a wrong) answer for
// the question on screen.
func (f *fixture) pick(t *testing.T, correct bool) int {
	t.Helper()
	st := f.rec.State()
	q, ok := f.byQ[st.Question]
	require.True(t, ok)
	for i, o := range st.Options {
		if (o.Text == q.CorrectAnswer) == correct {
			return i
		}
	}
	t.Fatal("no matching option")
	return -1
}

func tracking() settings.Settings {
	s := settings.Default()
	s.ScoreTracking = true
	return s
}

func noTimer(s settings.Settings) settings.Settings {
	s.Timer = false
	return s
}

func TestStartSession_EmptyCategoryStaysIdle(t *testing.T) {
	f := newFixture(t, settings.Default())

	err := f.ctrl.StartSession("tom")
	require.ErrorIs(t, err, session.ErrNoQuestionsAvailable)
	assert.Equal(t, session.Idle, f.ctrl.Snapshot().State)
	assert.Equal(t, session.ViewHome, f.rec.State().View)
	assert.NotEmpty(t, f.rec.Notices())
	assert.Zero(t, f.clk.Pending())
}

func TestStartSession_UnknownCategory(t *testing.T) {
	f := newFixture(t, settings.Default())
	require.ErrorIs(t, f.ctrl.StartSession("finns_inte"), session.ErrUnknownCategory)
	require.ErrorIs(t, f.ctrl.StartSession(), session.ErrUnknownCategory)
}

func TestStartSession_SingleCategory(t *testing.T) {
	f := newFixture(t, noTimer(settings.Default()))
	require.NoError(t, f.ctrl.StartSession("sport"))

	snap := f.ctrl.Snapshot()
	assert.Equal(t, session.QuestionActive, snap.State)
	assert.NotEmpty(t, snap.SessionID)
	assert.Equal(t, 3, snap.Total)
	assert.Equal(t, 0, snap.Index)
	assert.Equal(t, "Sport", snap.Title)

	st := f.rec.State()
	assert.Equal(t, session.ViewQuiz, st.View)
	assert.Equal(t, "Sport", st.Title)
	assert.Len(t, st.Options, 4)
	assert.False(t, st.Answer.Visible)
	assert.False(t, st.Timer.Visible)
}

func TestMultipleChoice_TimerExpiryScoresCorrect(t *testing.T) {
	f := newFixture(t, tracking())
	require.NoError(t, f.ctrl.StartSession("sport"))
	correct := f.pick(t, true)

	f.clk.Advance(15 * time.Second)
	assert.Equal(t, 100, f.rec.State().Timer.Percent)
	assert.Equal(t, session.QuestionActive, f.ctrl.Snapshot().State)

	f.clk.Advance(timerSettle)
	snap := f.ctrl.Snapshot()
	assert.Equal(t, session.AnswerLocked, snap.State)
	assert.Equal(t, session.Score{Correct: 1, Answered: 1}, snap.Score)
	assert.Equal(t, correct, snap.Chosen)

	st := f.rec.State()
	assert.True(t, st.Locked)
	assert.Equal(t, view.OptionCorrect, st.Options[correct].State)
	assert.Equal(t, 100, st.Timer.Percent, "expired bar stays full")
}

const timerSettle = 200 * time.Millisecond

func TestDirectMode_TimerExpiryRevealsWithoutScoring(t *testing.T) {
	cfg := settings.Default()
	cfg.ShowMultipleChoice = false
	f := newFixture(t, cfg)
	require.NoError(t, f.ctrl.StartSession("musik"))
	assert.Nil(t, f.rec.State().Options)

	f.clk.Advance(15*time.Second + timerSettle)
	snap := f.ctrl.Snapshot()
	assert.True(t, snap.Revealed)
	assert.Zero(t, snap.Score.Answered)

	st := f.rec.State()
	assert.True(t, st.Answer.Visible)
	assert.Equal(t, f.byQ[st.Question].CorrectAnswer, st.Answer.Text)
}

func TestDirectMode_TimerExpiryCountsAnsweredWhenTracking(t *testing.T) {
	cfg := settings.Default()
	cfg.ShowMultipleChoice = false
	cfg.ScoreTracking = true
	f := newFixture(t, cfg)
	require.NoError(t, f.ctrl.StartSession("musik"))

	f.clk.Advance(15*time.Second + timerSettle)
	assert.Equal(t, session.Score{Correct: 0, Answered: 1}, f.ctrl.Snapshot().Score)
}

func TestTimer_RestartOnAdvanceSupersedesOldRun(t *testing.T) {
	f := newFixture(t, tracking())
	require.NoError(t, f.ctrl.StartSession("sport"))

	f.clk.Advance(10 * time.Second)
	require.NoError(t, f.ctrl.Advance())
	f.clk.Advance(6 * time.Second)
	snap := f.ctrl.Snapshot()
	assert.Equal(t, session.QuestionActive, snap.State)
	assert.Zero(t, snap.Score.Answered)

	f.clk.Advance(9*time.Second + timerSettle)
	snap = f.ctrl.Snapshot()
	assert.Equal(t, session.AnswerLocked, snap.State)
	assert.Equal(t, 1, snap.Score.Answered)
}

func TestAdvance_WrapsAround(t *testing.T) {
	f := newFixture(t, noTimer(settings.Default()))
	require.NoError(t, f.ctrl.StartSession("sport"))

	seen := map[string]bool{f.rec.State().Question: true}
	for want := 1; want <= 2; want++ {
		require.NoError(t, f.ctrl.Advance())
		assert.Equal(t, want, f.ctrl.Snapshot().Index)
		seen[f.rec.State().Question] = true
	}
	assert.Len(t, seen, 3)

	require.NoError(t, f.ctrl.Advance())
	assert.Equal(t, 0, f.ctrl.Snapshot().Index)
}

func TestAdvance_WithoutSession(t *testing.T) {
	f := newFixture(t, settings.Default())
	assert.ErrorIs(t, f.ctrl.Advance(), session.ErrNoSession)
	assert.ErrorIs(t, f.ctrl.SelectAnswer(0), session.ErrNoSession)
	assert.ErrorIs(t, f.ctrl.ToggleReveal(), session.ErrNoSession)
}

func TestSelectAnswer_ScoreGating(t *testing.T) {
	f := newFixture(t, noTimer(settings.Default()))
	require.NoError(t, f.ctrl.StartSession("sport"))
	require.NoError(t, f.ctrl.SelectAnswer(f.pick(t, true)))
	assert.Equal(t, session.Score{}, f.ctrl.Snapshot().Score)
	assert.False(t, f.rec.State().Score.Visible)

	f = newFixture(t, noTimer(tracking()))
	require.NoError(t, f.ctrl.StartSession("sport"))
	require.NoError(t, f.ctrl.SelectAnswer(f.pick(t, false)))
	assert.Equal(t, session.Score{Correct: 0, Answered: 1}, f.ctrl.Snapshot().Score)

	require.NoError(t, f.ctrl.Advance())
	require.NoError(t, f.ctrl.SelectAnswer(f.pick(t, true)))
	assert.Equal(t, session.Score{Correct: 1, Answered: 2}, f.ctrl.Snapshot().Score)
	assert.True(t, f.rec.State().Score.Visible)
	assert.Equal(t, []session.CategoryScore{{Name: "Sport", Score: session.Score{Correct: 1, Answered: 2}}},
		f.ctrl.Snapshot().Breakdown)
}

func TestSelectAnswer_IgnoredWhenLocked(t *testing.T) {
	f := newFixture(t, noTimer(tracking()))
	require.NoError(t, f.ctrl.StartSession("sport"))
	require.NoError(t, f.ctrl.SelectAnswer(f.pick(t, true)))

	assert.ErrorIs(t, f.ctrl.SelectAnswer(0), session.ErrNotAccepted)
	assert.Equal(t, 1, f.ctrl.Snapshot().Score.Answered)
}

func TestSelectAnswer_OutOfRange(t *testing.T) {
	f := newFixture(t, noTimer(settings.Default()))
	require.NoError(t, f.ctrl.StartSession("sport"))
	assert.ErrorIs(t, f.ctrl.SelectAnswer(4), session.ErrInvalidOption)
	assert.Equal(t, session.QuestionActive, f.ctrl.Snapshot().State)
}

func TestSelectAnswer_StopsTimer(t *testing.T) {
	f := newFixture(t, tracking())
	require.NoError(t, f.ctrl.StartSession("sport"))
	f.clk.Advance(3 * time.Second)
	require.NoError(t, f.ctrl.SelectAnswer(f.pick(t, false)))

	f.clk.Advance(time.Minute)
	assert.Equal(t, session.Score{Answered: 1}, f.ctrl.Snapshot().Score)
	assert.Equal(t, 20, f.rec.State().Timer.Percent)
}

func TestAutoAdvance(t *testing.T) {
	cfg := noTimer(settings.Default())
	cfg.AutoAdvance = true
	f := newFixture(t, cfg)
	require.NoError(t, f.ctrl.StartSession("sport"))
	require.NoError(t, f.ctrl.SelectAnswer(0))

	f.clk.Advance(session.AutoAdvanceDelay - time.Millisecond)
	assert.Equal(t, 0, f.ctrl.Snapshot().Index)
	f.clk.Advance(time.Millisecond)
	assert.Equal(t, 1, f.ctrl.Snapshot().Index)
	assert.Equal(t, session.QuestionActive, f.ctrl.Snapshot().State)
}

func TestAutoAdvance_CancelledByManualAdvance(t *testing.T) {
	cfg := noTimer(settings.Default())
	cfg.AutoAdvance = true
	f := newFixture(t, cfg)
	require.NoError(t, f.ctrl.StartSession("sport"))
	require.NoError(t, f.ctrl.SelectAnswer(0))
	require.NoError(t, f.ctrl.Advance())

	f.clk.Advance(5 * time.Second)
	assert.Equal(t, 1, f.ctrl.Snapshot().Index)
}

func TestAutoAdvance_AfterTimerExpiryFiresOnce(t *testing.T) {
	cfg := tracking()
	cfg.AutoAdvance = true
	f := newFixture(t, cfg)
	require.NoError(t, f.ctrl.StartSession("sport"))

	f.clk.Advance(15*time.Second + timerSettle + session.AutoAdvanceDelay)
	snap := f.ctrl.Snapshot()
	assert.Equal(t, 1, snap.Index)
	assert.Equal(t, session.QuestionActive, snap.State)
	assert.Equal(t, 1, snap.Score.Answered)
}

func TestEndSession_CancelsEverything(t *testing.T) {
	cfg := tracking()
	cfg.AutoAdvance = true
	f := newFixture(t, cfg)
	require.NoError(t, f.ctrl.StartSession("sport"))
	require.NoError(t, f.ctrl.SelectAnswer(f.pick(t, true)))

	f.ctrl.EndSession()
	snap := f.ctrl.Snapshot()
	assert.Equal(t, session.Idle, snap.State)
	assert.Empty(t, snap.SessionID)
	assert.Equal(t, session.Score{}, snap.Score)
	assert.Equal(t, session.ViewHome, f.rec.State().View)
	assert.Zero(t, f.clk.Pending())
}

func TestNavigate_LeavingQuizEndsSession(t *testing.T) {
	f := newFixture(t, settings.Default())
	require.NoError(t, f.ctrl.StartSession("sport"))

	f.ctrl.Navigate(session.ViewSettings)
	assert.Equal(t, session.Idle, f.ctrl.Snapshot().State)
	assert.Equal(t, session.ViewSettings, f.rec.State().View)
	assert.Zero(t, f.clk.Pending())
}

func TestNewSessionResetsScore(t *testing.T) {
	f := newFixture(t, noTimer(tracking()))
	require.NoError(t, f.ctrl.StartSession("sport"))
	require.NoError(t, f.ctrl.SelectAnswer(f.pick(t, true)))
	id := f.ctrl.Snapshot().SessionID

	require.NoError(t, f.ctrl.StartSession("musik"))
	snap := f.ctrl.Snapshot()
	assert.Equal(t, session.Score{}, snap.Score)
	assert.NotEqual(t, id, snap.SessionID)
	assert.Equal(t, "Musik", f.rec.State().Title)
}

func TestToggleReveal_DirectModeOnly(t *testing.T) {
	f := newFixture(t, noTimer(settings.Default()))
	require.NoError(t, f.ctrl.StartSession("sport"))
	assert.ErrorIs(t, f.ctrl.ToggleReveal(), session.ErrNotAccepted)

	_, err := f.ctrl.ToggleSetting(context.Background(), settings.ShowMultipleChoice)
	require.NoError(t, err)
	require.NoError(t, f.ctrl.ToggleReveal())
	st := f.rec.State()
	assert.True(t, st.Answer.Visible)
	assert.Equal(t, f.byQ[st.Question].CorrectAnswer, st.Answer.Text)

	require.NoError(t, f.ctrl.ToggleReveal())
	assert.Equal(t, view.Answer{}, f.rec.State().Answer)
	assert.Zero(t, f.ctrl.Snapshot().Score.Answered)
}

func TestAlwaysShowAnswer(t *testing.T) {
	cfg := noTimer(settings.Default())
	cfg.ShowMultipleChoice = false
	cfg.AlwaysShowAnswer = true
	f := newFixture(t, cfg)
	require.NoError(t, f.ctrl.StartSession("sport"))
	assert.True(t, f.rec.State().Answer.Visible)
}

func TestToggleMultipleChoice_KeepsTimerRunning(t *testing.T) {
	f := newFixture(t, tracking())
	require.NoError(t, f.ctrl.StartSession("sport"))
	question := f.rec.State().Question

	f.clk.Advance(5 * time.Second)
	ch, err := f.ctrl.ToggleSetting(context.Background(), settings.ShowMultipleChoice)
	require.NoError(t, err)
	assert.True(t, ch.Has(settings.ScoreTracking))

	st := f.rec.State()
	assert.Equal(t, question, st.Question)
	assert.Nil(t, st.Options)
	assert.Equal(t, 33, st.Timer.Percent)
	assert.ElementsMatch(t, []string{settings.ShowMultipleChoice, settings.ScoreTracking}, st.Affected)

	f.clk.Advance(10*time.Second + timerSettle)
	assert.True(t, f.rec.State().Answer.Visible)
	assert.False(t, f.saver.last().ScoreTracking)
}

func TestToggleTimerOff_StopsCountdown(t *testing.T) {
	f := newFixture(t, tracking())
	require.NoError(t, f.ctrl.StartSession("sport"))
	f.clk.Advance(time.Second)

	_, err := f.ctrl.ToggleSetting(context.Background(), settings.Timer)
	require.NoError(t, err)
	assert.False(t, f.rec.State().Timer.Visible)

	f.clk.Advance(time.Minute)
	assert.Equal(t, session.QuestionActive, f.ctrl.Snapshot().State)
	assert.Zero(t, f.clk.Pending())
}

func TestToggleIncludeAllCategories_RefreshesAggregate(t *testing.T) {
	f := newFixture(t, settings.Default())
	agg, _ := f.bank.Aggregate()
	assert.Len(t, agg.Questions, 5)

	_, err := f.ctrl.ToggleSetting(context.Background(), settings.IncludeAllCategories)
	require.NoError(t, err)
	agg, _ = f.bank.Aggregate()
	assert.Len(t, agg.Questions, 9)
	assert.True(t, f.saver.last().IncludeAllCategories)

	_, err = f.ctrl.ToggleSetting(context.Background(), settings.IncludeAllCategories)
	require.NoError(t, err)
	agg, _ = f.bank.Aggregate()
	assert.Len(t, agg.Questions, 5)
}

func TestToggleSetting_Unknown(t *testing.T) {
	f := newFixture(t, settings.Default())
	_, err := f.ctrl.ToggleSetting(context.Background(), "nope")
	assert.ErrorIs(t, err, settings.ErrUnknownSetting)
	assert.Empty(t, f.saver.saved)
}

func TestSetTimerDuration(t *testing.T) {
	f := newFixture(t, settings.Default())
	assert.ErrorIs(t, f.ctrl.SetTimerDuration(context.Background(), 12), settings.ErrInvalidDuration)

	require.NoError(t, f.ctrl.SetTimerDuration(context.Background(), 30))
	assert.Equal(t, 30, f.ctrl.Settings().TimerDuration)
	assert.Equal(t, 30, f.saver.last().TimerDuration)

	require.NoError(t, f.ctrl.StartSession("sport"))
	f.clk.Advance(15*time.Second + timerSettle)
	assert.Equal(t, session.QuestionActive, f.ctrl.Snapshot().State)
	f.clk.Advance(15 * time.Second)
	assert.Equal(t, session.AnswerLocked, f.ctrl.Snapshot().State)
}

func TestAggregateSession_TitleFollowsOrigin(t *testing.T) {
	cfg := noTimer(settings.Default())
	cfg.IncludeAllCategories = true
	f := newFixture(t, cfg)
	require.NoError(t, f.ctrl.StartSession(questionbank.AggregateKey))

	snap := f.ctrl.Snapshot()
	assert.Equal(t, questionbank.AggregateName, snap.Title)
	for i := 0; i < snap.Total; i++ {
		st := f.rec.State()
		assert.Equal(t, f.names[st.Question], st.Title, st.Question)
		require.NoError(t, f.ctrl.Advance())
	}
}

func TestMultiSession_Titles(t *testing.T) {
	f := newFixture(t, noTimer(settings.Default()))

	require.NoError(t, f.ctrl.StartSession("fotboll", "star_wars"))
	snap := f.ctrl.Snapshot()
	assert.Equal(t, "Alla Kategorier (2)", snap.Title)
	assert.Equal(t, 4, snap.Total)
	assert.Equal(t, []string{"Fotboll", "Star Wars"}, snap.Categories)
	st := f.rec.State()
	assert.Equal(t, f.names[st.Question], st.Title)

	require.NoError(t, f.ctrl.StartSession("fotboll", "sport"))
	assert.Equal(t, "Blandade Kategorier (2)", f.ctrl.Snapshot().Title)

	require.NoError(t, f.ctrl.StartTitled("Fotboll + Star Wars", "fotboll", "star_wars", "okand"))
	snap = f.ctrl.Snapshot()
	assert.Equal(t, "Fotboll + Star Wars", snap.Title)
	assert.Equal(t, []string{"fotboll", "star_wars"}, snap.Keys)
}

func TestToggleIncludeAllCategories_ConcurrentTogglesMatchFinalFlag(t *testing.T) {
	for _, toggles := range []int{6, 7} {
		f := newFixture(t, noTimer(settings.Default()))

		var wg sync.WaitGroup
		for range toggles {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.ctrl.ToggleSetting(context.Background(), settings.IncludeAllCategories)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		include := f.ctrl.Settings().IncludeAllCategories
		assert.Equal(t, toggles%2 == 1, include)
		assert.Equal(t, include, f.bank.IncludeExtended())
		agg, ok := f.bank.Aggregate()
		require.True(t, ok)
		want := 5
		if include {
			want = 9
		}
		assert.Len(t, agg.Questions, want, "%d toggles", toggles)
	}
}

func TestStartSession_AggregateBeforePrimaryQuestions(t *testing.T) {
	bank := questionbank.New()
	require.NoError(t, bank.UpsertBatch(questionbank.Primary, []quiz.Category{{Key: "tom", Name: "Tom"}}))
	rec := view.NewRecorder(settings.Default())
	ctrl := session.New(session.Options{
		Categories: bank,
		Presenter:  rec,
		Settings:   settings.Default(),
		Clock:      clock.NewFake(time.Now()),
	})

	err := ctrl.StartSession(questionbank.AggregateKey)
	require.ErrorIs(t, err, session.ErrNoQuestionsAvailable)
	assert.Equal(t, session.Idle, ctrl.Snapshot().State)
	assert.Equal(t, []string{"Inga frågor tillgängliga för denna kategori"}, rec.Notices())
}
