// Package settings holds the player's persisted options and enforces the
// rules between them: multiple-choice and always-show-answer exclude each
// other, score tracking needs multiple-choice, and the two presentation modes
// (monochrome, high contrast) exclude each other.
package settings

import (
	"errors"
	"fmt"
	"slices"
)

const (
	AutoAdvance          = "autoAdvance"
	ShowHints            = "showHints"
	AlwaysShowAnswer     = "alwaysShowAnswer"
	ShowMultipleChoice   = "showMultipleChoice"
	ScoreTracking        = "scoreTracking"
	Timer                = "timer"
	TimerDuration        = "timerDuration"
	IncludeAllCategories = "includeAllCategories"
	MonochromeMode       = "monochromeMode"
	HighContrastMode     = "highContrastMode"
)

var (
	ErrUnknownSetting  = errors.New("settings: unknown option")
	ErrInvalidDuration = errors.New("settings: timer duration not offered")
)

// Durations are the timer lengths offered to the player, in seconds.
var Durations = []int{10, 15, 20, 30, 45, 60}

type Settings struct {
	AutoAdvance          bool `json:"autoAdvance"`
	ShowHints            bool `json:"showHints"`
	AlwaysShowAnswer     bool `json:"alwaysShowAnswer"`
	ShowMultipleChoice   bool `json:"showMultipleChoice"`
	ScoreTracking        bool `json:"scoreTracking"`
	Timer                bool `json:"timer"`
	TimerDuration        int  `json:"timerDuration"`
	IncludeAllCategories bool `json:"includeAllCategories"`
	MonochromeMode       bool `json:"monochromeMode"`
	HighContrastMode     bool `json:"highContrastMode"`
}

func Default() Settings {
	return Settings{
		ShowHints:          true,
		ShowMultipleChoice: true,
		Timer:              true,
		TimerDuration:      15,
	}
}

// Change lists the options whose value changed in one operation, the
// requested option first followed by any that were forced off.
type Change struct {
	Name   string   `json:"name"`
	Value  bool     `json:"value"`
	Forced []string `json:"forced,omitempty"`
}

// Affected returns every option the caller has to re-render.
func (c Change) Affected() []string {
	return append([]string{c.Name}, c.Forced...)
}

func (c Change) Has(name string) bool {
	return c.Name == name || slices.Contains(c.Forced, name)
}

// Toggle flips a boolean option and applies the exclusion rules.
func (s *Settings) Toggle(name string) (Change, error) {
	p := s.flag(name)
	if p == nil {
		return Change{}, fmt.Errorf("%w: %q", ErrUnknownSetting, name)
	}
	*p = !*p
	ch := Change{Name: name, Value: *p}

	force := func(field *bool, n string) {
		if *field {
			*field = false
			ch.Forced = append(ch.Forced, n)
		}
	}

	switch name {
	case ShowMultipleChoice:
		if s.ShowMultipleChoice {
			force(&s.AlwaysShowAnswer, AlwaysShowAnswer)
		} else {
			force(&s.ScoreTracking, ScoreTracking)
		}
	case AlwaysShowAnswer:
		if s.AlwaysShowAnswer {
			if s.ShowMultipleChoice {
				s.ShowMultipleChoice = false
				ch.Forced = append(ch.Forced, ShowMultipleChoice)
				force(&s.ScoreTracking, ScoreTracking)
			}
		}
	case ScoreTracking:
		if s.ScoreTracking && !s.ShowMultipleChoice {
			s.ScoreTracking = false
			ch.Value = false
		}
	case MonochromeMode:
		if s.MonochromeMode {
			force(&s.HighContrastMode, HighContrastMode)
		}
	case HighContrastMode:
		if s.HighContrastMode {
			force(&s.MonochromeMode, MonochromeMode)
		}
	}
	return ch, nil
}

// Get returns the current value of a boolean option.
func (s *Settings) Get(name string) (bool, error) {
	p := s.flag(name)
	if p == nil {
		return false, fmt.Errorf("%w: %q", ErrUnknownSetting, name)
	}
	return *p, nil
}

func (s *Settings) SetTimerDuration(seconds int) error {
	if !slices.Contains(Durations, seconds) {
		return fmt.Errorf("%w: %d", ErrInvalidDuration, seconds)
	}
	s.TimerDuration = seconds
	return nil
}

// TimerEnabled reports whether a countdown should run for each question.
func (s Settings) TimerEnabled() bool { return s.Timer && s.TimerDuration > 0 }

// Normalize repairs a record loaded from storage so the exclusion rules hold.
// Multiple-choice wins over always-show-answer, score tracking is dropped
// without multiple-choice, and monochrome wins over high contrast, matching
// the defaults.
func (s *Settings) Normalize() {
	if s.ShowMultipleChoice && s.AlwaysShowAnswer {
		s.AlwaysShowAnswer = false
	}
	if !s.ShowMultipleChoice && s.ScoreTracking {
		s.ScoreTracking = false
	}
	if s.MonochromeMode && s.HighContrastMode {
		s.HighContrastMode = false
	}
	if !slices.Contains(Durations, s.TimerDuration) {
		s.TimerDuration = Default().TimerDuration
	}
}

func (s *Settings) flag(name string) *bool {
	switch name {
	case AutoAdvance:
		return &s.AutoAdvance
	case ShowHints:
		return &s.ShowHints
	case AlwaysShowAnswer:
		return &s.AlwaysShowAnswer
	case ShowMultipleChoice:
		return &s.ShowMultipleChoice
	case ScoreTracking:
		return &s.ScoreTracking
	case Timer:
		return &s.Timer
	case IncludeAllCategories:
		return &s.IncludeAllCategories
	case MonochromeMode:
		return &s.MonochromeMode
	case HighContrastMode:
		return &s.HighContrastMode
	}
	return nil
}
