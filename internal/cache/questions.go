package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"psp.com/quizla/backend/internal/quiz"
)

const (
	QuestionsKey = "quizQuestionsCache"
	QuestionsTTL = 24 * time.Hour
)

// QuestionRecord is the cached result of a primary load.
type QuestionRecord struct {
	Categories   map[string]quiz.Category `json:"categories"`
	Order        []string                 `json:"order"`
	AllQuestions []quiz.Question          `json:"allQuestions"`
	Timestamp    int64                    `json:"timestamp"`
}

// Valid reports whether the record is younger than the TTL at now.
func (r QuestionRecord) Valid(now time.Time, ttl time.Duration) bool {
	return now.Sub(time.UnixMilli(r.Timestamp)) < ttl
}

// Ordered returns the cached categories in their original load order.
// Keys missing from Order (older records) follow in map order.
func (r QuestionRecord) Ordered(skip string) []quiz.Category {
	seen := make(map[string]bool, len(r.Order))
	out := make([]quiz.Category, 0, len(r.Categories))
	for _, k := range r.Order {
		if c, ok := r.Categories[k]; ok && k != skip {
			out = append(out, c)
			seen[k] = true
		}
	}
	for k, c := range r.Categories {
		if !seen[k] && k != skip {
			out = append(out, c)
		}
	}
	return out
}

type QuestionCache struct {
	store *Store
	ttl   time.Duration
}

func NewQuestionCache(s *Store, ttl time.Duration) *QuestionCache {
	if ttl <= 0 {
		ttl = QuestionsTTL
	}
	return &QuestionCache{store: s, ttl: ttl}
}

// Load returns the cached record when present and not expired at now.
func (c *QuestionCache) Load(ctx context.Context, now time.Time) (QuestionRecord, bool, error) {
	raw, _, err := c.store.Get(ctx, QuestionsKey)
	if err != nil {
		return QuestionRecord{}, false, err
	}
	var rec QuestionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return QuestionRecord{}, false, fmt.Errorf("decoding question cache: %w", err)
	}
	if !rec.Valid(now, c.ttl) {
		return rec, false, nil
	}
	return rec, true, nil
}

// Save overwrites the cache with the given categories, stamped at now.
func (c *QuestionCache) Save(ctx context.Context, cats []quiz.Category, now time.Time) error {
	rec := QuestionRecord{
		Categories: make(map[string]quiz.Category, len(cats)),
		Timestamp:  now.UnixMilli(),
	}
	for _, cat := range cats {
		rec.Categories[cat.Key] = cat
		rec.Order = append(rec.Order, cat.Key)
		rec.AllQuestions = append(rec.AllQuestions, cat.Questions...)
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding question cache: %w", err)
	}
	return c.store.Put(ctx, QuestionsKey, raw, now)
}
