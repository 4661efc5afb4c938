package questionbank

import "psp.com/quizla/backend/internal/quiz"

// RecomputeAggregate builds the aggregate category from scratch: every primary
// question in discovery order, followed by every extended question when
// includeExtended is set. Extended questions are annotated with their origin.
func RecomputeAggregate(primary, extended []quiz.Category, includeExtended bool) quiz.Category {
	lists := make([][]quiz.Question, 0, len(primary)+len(extended))
	for _, c := range primary {
		lists = append(lists, c.Questions)
	}
	if includeExtended {
		for _, c := range extended {
			lists = append(lists, c.Annotated())
		}
	}
	return quiz.Category{
		Key:       AggregateKey,
		Name:      AggregateName,
		Icon:      AggregateIcon,
		Color:     "transparent",
		Questions: quiz.Concat(lists...),
	}
}

// RefreshAggregate recomputes the aggregate from the current store contents
// and the stored inclusion flag. It is deferred (returns false) until at
// least one primary question exists.
func (b *Bank) RefreshAggregate() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refreshLocked()
}

// SetIncludeExtended stores whether extended questions join the aggregate and
// recomputes it under the same lock, so the aggregate always reflects the
// last flag set.
func (b *Bank) SetIncludeExtended(include bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.includeExt = include
	return b.refreshLocked()
}

func (b *Bank) IncludeExtended() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.includeExt
}

// RestoreAggregate installs a cached primary-only aggregate. When extended
// questions are currently included, or the cached copy is empty, it
// recomputes instead.
func (b *Bank) RestoreAggregate(c quiz.Category) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.includeExt || len(c.Questions) == 0 {
		return b.refreshLocked()
	}
	c.Key = AggregateKey
	b.aggregate = &c
	return true
}

// PrimaryAggregate returns the aggregate only while it holds primary
// questions alone, the form the question cache stores.
func (b *Bank) PrimaryAggregate() (quiz.Category, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.aggregate == nil || b.includeExt {
		return quiz.Category{}, false
	}
	return *b.aggregate, true
}

func (b *Bank) refreshLocked() bool {
	primary := collect(b.primary, b.primOrder)
	if !hasQuestions(primary) {
		return false
	}
	agg := RecomputeAggregate(primary, collect(b.extended, b.extOrder), b.includeExt)
	b.aggregate = &agg
	return true
}

func hasQuestions(cats []quiz.Category) bool {
	for _, c := range cats {
		if len(c.Questions) > 0 {
			return true
		}
	}
	return false
}
