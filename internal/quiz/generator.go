package quiz

import (
	"math/rand/v2"
	"time"
)

// NewRand returns a time-seeded generator. Tests pass their own seeded one.
func NewRand() *rand.Rand {
	seed := uint64(time.Now().UnixNano())
	return rand.New(rand.NewPCG(seed, seed>>17|1))
}

// Shuffle returns a Fisher-Yates permutation of qs. The input is not modified.
func Shuffle(r *rand.Rand, qs []Question) []Question {
	out := make([]Question, len(qs))
	copy(out, qs)
	for i := len(out) - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// AnswerOptions builds the four shuffled choices for q.
func AnswerOptions(r *rand.Rand, q Question) []AnswerOption {
	arr := []string{q.CorrectAnswer, q.WrongAnswers[0], q.WrongAnswers[1], q.WrongAnswers[2]}
	r.Shuffle(len(arr), func(i, j int) { arr[i], arr[j] = arr[j], arr[i] })
	opts := make([]AnswerOption, len(arr))
	for i, a := range arr {
		opts[i] = AnswerOption{ID: i, Text: a, Correct: a == q.CorrectAnswer}
	}
	return opts
}

// CorrectIndex returns the position of the correct option or -1.
func CorrectIndex(opts []AnswerOption) int {
	for i, o := range opts {
		if o.Correct {
			return i
		}
	}
	return -1
}

// Concat joins question lists in order without de-duplication.
func Concat(lists ...[]Question) []Question {
	n := 0
	for _, l := range lists {
		n += len(l)
	}
	out := make([]Question, 0, n)
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}
