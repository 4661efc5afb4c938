// Package session drives one quiz playthrough: it shuffles the chosen
// categories, presents questions through a Presenter, evaluates answers,
// keeps score, and coordinates the per-question timer and auto-advance.
package session

import (
	"errors"
	"time"

	"psp.com/quizla/backend/internal/quiz"
	"psp.com/quizla/backend/internal/settings"
)

var (
	ErrNoQuestionsAvailable = errors.New("session: no questions available")
	ErrUnknownCategory      = errors.New("session: unknown category")
	ErrNoSession            = errors.New("session: no active session")
	ErrNotAccepted          = errors.New("session: operation not valid in current state")
	ErrInvalidOption        = errors.New("session: answer option out of range")
)

// AutoAdvanceDelay is how long an answered question stays on screen before
// the next one is shown when auto-advance is on.
const AutoAdvanceDelay = 2000 * time.Millisecond

type State int

const (
	Idle State = iota
	QuestionActive
	AnswerLocked
)

func (s State) String() string {
	switch s {
	case QuestionActive:
		return "question_active"
	case AnswerLocked:
		return "answer_locked"
	}
	return "idle"
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// View names the screen the player is on.
type View string

const (
	ViewHome     View = "home"
	ViewQuiz     View = "quiz"
	ViewMore     View = "fler-quiz"
	ViewSettings View = "installningar"
)

type Score struct {
	Correct  int `json:"correct"`
	Answered int `json:"answered"`
}

// Percent is the share of answered questions that were correct, rounded down.
func (s Score) Percent() int {
	if s.Answered == 0 {
		return 0
	}
	return s.Correct * 100 / s.Answered
}

// Presenter receives every visible change. Implementations must not call
// back into the Controller.
type Presenter interface {
	ShowView(v View)
	SetTitle(title string)
	SetQuestion(q quiz.Question, index, total int)
	// SetOptions replaces the answer buttons; nil hides them.
	SetOptions(opts []quiz.AnswerOption)
	// MarkOptions locks the buttons and shows correctness. chosen is the
	// picked option index.
	MarkOptions(chosen, correct int)
	// SetAnswer shows or hides the correct answer in direct-answer mode.
	// The text is empty whenever visible is false.
	SetAnswer(text string, visible bool)
	SetTimerProgress(percent int, visible bool)
	SetScore(s Score, visible bool)
	SettingsChanged(s settings.Settings, affected []string)
	Notice(msg string)
}

// Snapshot is a read-only copy of the controller state.
type Snapshot struct {
	State      State             `json:"state"`
	SessionID  string            `json:"sessionId,omitempty"`
	Keys       []string          `json:"keys,omitempty"`
	Categories []string          `json:"categories,omitempty"`
	Title      string            `json:"title,omitempty"`
	Index      int               `json:"index"`
	Total      int               `json:"total"`
	Revealed   bool              `json:"revealed"`
	Chosen     int               `json:"chosen"`
	Score      Score             `json:"score"`
	StartedAt  time.Time         `json:"startedAt,omitzero"`
	Breakdown  []CategoryScore   `json:"breakdown,omitempty"`
	Settings   settings.Settings `json:"settings"`
}

// CategoryScore is the score for the questions attributed to one category.
type CategoryScore struct {
	Name string `json:"name"`
	Score
}

type session struct {
	id        string
	keys      []string
	names     []string
	title     string
	attribute bool
	questions []quiz.Question
	index     int
	revealed  bool
	options   []quiz.AnswerOption
	chosen    int
	score     Score
	breakdown map[string]Score
	startedAt time.Time
}

func (s *session) current() quiz.Question { return s.questions[s.index] }
