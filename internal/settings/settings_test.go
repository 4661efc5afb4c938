package settings

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggle_MultipleChoiceClearsAlwaysShow(t *testing.T) {
	s := Default()
	s.ShowMultipleChoice = false
	s.AlwaysShowAnswer = true

	ch, err := s.Toggle(ShowMultipleChoice)
	require.NoError(t, err)
	assert.True(t, s.ShowMultipleChoice)
	assert.False(t, s.AlwaysShowAnswer)
	assert.Equal(t, []string{ShowMultipleChoice, AlwaysShowAnswer}, ch.Affected())
}

func TestToggle_AlwaysShowClearsMultipleChoiceAndTracking(t *testing.T) {
	s := Default()
	_, err := s.Toggle(ScoreTracking)
	require.NoError(t, err)
	require.True(t, s.ScoreTracking)

	ch, err := s.Toggle(AlwaysShowAnswer)
	require.NoError(t, err)
	assert.True(t, s.AlwaysShowAnswer)
	assert.False(t, s.ShowMultipleChoice)
	assert.False(t, s.ScoreTracking)
	assert.True(t, ch.Has(ShowMultipleChoice))
	assert.True(t, ch.Has(ScoreTracking))
}

func TestToggle_DisablingMultipleChoiceClearsTracking(t *testing.T) {
	s := Default()
	s.ScoreTracking = true
	ch, err := s.Toggle(ShowMultipleChoice)
	require.NoError(t, err)
	assert.False(t, s.ShowMultipleChoice)
	assert.False(t, s.ScoreTracking)
	assert.Equal(t, []string{ScoreTracking}, ch.Forced)
}

func TestToggle_TrackingRequiresMultipleChoice(t *testing.T) {
	s := Default()
	s.ShowMultipleChoice = false
	ch, err := s.Toggle(ScoreTracking)
	require.NoError(t, err)
	assert.False(t, s.ScoreTracking)
	assert.False(t, ch.Value)
}

func TestToggle_PresentationModesExclusive(t *testing.T) {
	s := Default()
	_, _ = s.Toggle(MonochromeMode)
	ch, err := s.Toggle(HighContrastMode)
	require.NoError(t, err)
	assert.True(t, s.HighContrastMode)
	assert.False(t, s.MonochromeMode)
	assert.Equal(t, []string{MonochromeMode}, ch.Forced)
}

func TestToggle_Unknown(t *testing.T) {
	s := Default()
	_, err := s.Toggle("darkMode")
	assert.ErrorIs(t, err, ErrUnknownSetting)
	_, err = s.Get("nope")
	assert.ErrorIs(t, err, ErrUnknownSetting)
}

func TestToggle_PairsNeverBothTrue(t *testing.T) {
	names := []string{ShowMultipleChoice, AlwaysShowAnswer, MonochromeMode, HighContrastMode, ScoreTracking}
	r := rand.New(rand.NewPCG(1, 2))
	s := Default()
	for i := 0; i < 2000; i++ {
		_, err := s.Toggle(names[r.IntN(len(names))])
		require.NoError(t, err)
		require.False(t, s.ShowMultipleChoice && s.AlwaysShowAnswer, "step %d", i)
		require.False(t, s.MonochromeMode && s.HighContrastMode, "step %d", i)
		require.False(t, s.ScoreTracking && !s.ShowMultipleChoice, "step %d", i)
	}
}

func TestSetTimerDuration(t *testing.T) {
	s := Default()
	require.NoError(t, s.SetTimerDuration(30))
	assert.Equal(t, 30, s.TimerDuration)
	assert.ErrorIs(t, s.SetTimerDuration(7), ErrInvalidDuration)
	assert.Equal(t, 30, s.TimerDuration)
}

func TestNormalize(t *testing.T) {
	s := Settings{ShowMultipleChoice: true, AlwaysShowAnswer: true, MonochromeMode: true, HighContrastMode: true, TimerDuration: 3}
	s.Normalize()
	assert.False(t, s.AlwaysShowAnswer)
	assert.False(t, s.HighContrastMode)
	assert.Equal(t, 15, s.TimerDuration)
}

func TestNormalize_ScoreTrackingNeedsMultipleChoice(t *testing.T) {
	s := Settings{ScoreTracking: true, AlwaysShowAnswer: true, TimerDuration: 15}
	s.Normalize()
	assert.False(t, s.ScoreTracking)
	assert.True(t, s.AlwaysShowAnswer)

	s = Settings{ShowMultipleChoice: true, ScoreTracking: true, TimerDuration: 15}
	s.Normalize()
	assert.True(t, s.ScoreTracking)
}
