// Package view keeps the last state pushed by the session controller so the
// HTTP layer can hand it to the browser as one JSON document.
package view

import (
	"sync"

	"psp.com/quizla/backend/internal/quiz"
	"psp.com/quizla/backend/internal/session"
	"psp.com/quizla/backend/internal/settings"
)

// Option states after the answer buttons are locked.
const (
	OptionCorrect   = "correct"
	OptionIncorrect = "incorrect"
	OptionDisabled  = "disabled"
)

const maxNotices = 10

type Option struct {
	ID    int    `json:"id"`
	Text  string `json:"text"`
	State string `json:"state,omitempty"`
}

type Answer struct {
	Text    string `json:"text,omitempty"`
	Visible bool   `json:"visible"`
}

type Progress struct {
	Percent int  `json:"percent"`
	Visible bool `json:"visible"`
}

type ScoreBoard struct {
	session.Score
	Visible bool `json:"visible"`
}

// State is the rendered screen. The correct answer only appears in Answer
// once revealed, and option correctness only once locked.
type State struct {
	Version  uint64            `json:"version"`
	View     session.View      `json:"view"`
	Title    string            `json:"title,omitempty"`
	Question string            `json:"question,omitempty"`
	Index    int               `json:"index"`
	Total    int               `json:"total"`
	Options  []Option          `json:"options,omitempty"`
	Locked   bool              `json:"locked"`
	Answer   Answer            `json:"answer"`
	Timer    Progress          `json:"timer"`
	Score    ScoreBoard        `json:"score"`
	Settings settings.Settings `json:"settings"`
	Affected []string          `json:"affected,omitempty"`
	Notices  []string          `json:"notices,omitempty"`
}

// Recorder is a session.Presenter that records into a State.
type Recorder struct {
	mu sync.Mutex
	st State
}

var _ session.Presenter = (*Recorder)(nil)

func NewRecorder(s settings.Settings) *Recorder {
	return &Recorder{st: State{View: session.ViewHome, Settings: s}}
}

func (r *Recorder) update(f func(*State)) {
	r.mu.Lock()
	f(&r.st)
	r.st.Version++
	r.mu.Unlock()
}

func (r *Recorder) ShowView(v session.View) {
	r.update(func(s *State) {
		s.View = v
		if v != session.ViewQuiz {
			s.Title, s.Question, s.Options, s.Locked = "", "", nil, false
			s.Answer = Answer{}
			s.Timer = Progress{}
			s.Index, s.Total = 0, 0
		}
	})
}

func (r *Recorder) SetTitle(title string) {
	r.update(func(s *State) { s.Title = title })
}

func (r *Recorder) SetQuestion(q quiz.Question, index, total int) {
	r.update(func(s *State) {
		s.Question = q.Text
		s.Index, s.Total = index, total
	})
}

func (r *Recorder) SetOptions(opts []quiz.AnswerOption) {
	r.update(func(s *State) {
		s.Locked = false
		s.Options = nil
		for _, o := range opts {
			s.Options = append(s.Options, Option{ID: o.ID, Text: o.Text})
		}
	})
}

func (r *Recorder) MarkOptions(chosen, correct int) {
	r.update(func(s *State) {
		s.Locked = true
		for i := range s.Options {
			switch i {
			case correct:
				s.Options[i].State = OptionCorrect
			case chosen:
				s.Options[i].State = OptionIncorrect
			default:
				s.Options[i].State = OptionDisabled
			}
		}
	})
}

func (r *Recorder) SetAnswer(text string, visible bool) {
	if !visible {
		text = ""
	}
	r.update(func(s *State) { s.Answer = Answer{Text: text, Visible: visible} })
}

func (r *Recorder) SetTimerProgress(percent int, visible bool) {
	r.update(func(s *State) { s.Timer = Progress{Percent: percent, Visible: visible} })
}

func (r *Recorder) SetScore(sc session.Score, visible bool) {
	r.update(func(s *State) { s.Score = ScoreBoard{Score: sc, Visible: visible} })
}

func (r *Recorder) SettingsChanged(cfg settings.Settings, affected []string) {
	r.update(func(s *State) {
		s.Settings = cfg
		s.Affected = append([]string(nil), affected...)
	})
}

func (r *Recorder) Notice(msg string) {
	r.update(func(s *State) {
		s.Notices = append(s.Notices, msg)
		if len(s.Notices) > maxNotices {
			s.Notices = s.Notices[len(s.Notices)-maxNotices:]
		}
	})
}

// State returns a copy of the current screen.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.st
	st.Options = append([]Option(nil), r.st.Options...)
	st.Notices = append([]string(nil), r.st.Notices...)
	st.Affected = append([]string(nil), r.st.Affected...)
	return st
}

// Notices drains the pending notices.
func (r *Recorder) Notices() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.st.Notices
	r.st.Notices = nil
	return out
}
