// Package attribution finds the category a question came from when it is
// shown inside a combined session.
package attribution

import (
	"psp.com/quizla/backend/internal/questionbank"
	"psp.com/quizla/backend/internal/quiz"
)

// Source is the read access the resolver needs from the category store.
type Source interface {
	Get(key string) (quiz.Category, bool)
	AllPrimary() []quiz.Category
	AllExtended() []quiz.Category
}

type Resolver struct {
	src Source
}

func New(src Source) *Resolver { return &Resolver{src: src} }

// Resolve returns the origin category of q. Annotated questions resolve
// directly. Otherwise extended then primary categories are scanned for the
// first one holding a question with the same text and correct answer; two
// categories sharing such a pair resolve to whichever is scanned first.
func (r *Resolver) Resolve(q quiz.Question) (quiz.Category, bool) {
	if q.HasOrigin() {
		if c, ok := r.src.Get(q.OriginKey); ok {
			return c, true
		}
		return quiz.Category{Key: q.OriginKey, Name: q.OriginName}, true
	}
	for _, c := range r.src.AllExtended() {
		if contains(c, q) {
			return c, true
		}
	}
	for _, c := range r.src.AllPrimary() {
		if c.Key != questionbank.AggregateKey && contains(c, q) {
			return c, true
		}
	}
	return quiz.Category{}, false
}

func contains(c quiz.Category, q quiz.Question) bool {
	for _, cq := range c.Questions {
		if cq.SameAs(q) {
			return true
		}
	}
	return false
}
