package quiz

// Question is one parsed trivia row. Values are never mutated after parsing;
// aggregation and multi-category sessions work on annotated copies.
type Question struct {
	ID            int       `json:"id"`
	Text          string    `json:"question"`
	CorrectAnswer string    `json:"correctAnswer"`
	WrongAnswers  [3]string `json:"wrongAnswers"`

	// Origin is set when the question is folded into a combined question set.
	OriginKey  string `json:"category,omitempty"`
	OriginName string `json:"categoryName,omitempty"`
}

// WithOrigin returns a copy of q annotated with its origin category.
func (q Question) WithOrigin(key, name string) Question {
	q.OriginKey = key
	q.OriginName = name
	return q
}

// HasOrigin reports whether the question carries an origin annotation.
func (q Question) HasOrigin() bool { return q.OriginKey != "" }

// SameAs compares two questions the way attribution does: question text and
// correct answer.
func (q Question) SameAs(o Question) bool {
	return q.Text == o.Text && q.CorrectAnswer == o.CorrectAnswer
}

type Category struct {
	Key       string     `json:"key"`
	Name      string     `json:"name"`
	Icon      string     `json:"icon"`
	Color     string     `json:"color"`
	File      string     `json:"file,omitempty"`
	Questions []Question `json:"questions"`
}

// Annotated returns the category's questions as copies carrying the category
// as their origin.
func (c Category) Annotated() []Question {
	out := make([]Question, len(c.Questions))
	for i, q := range c.Questions {
		out[i] = q.WithOrigin(c.Key, c.Name)
	}
	return out
}

// AnswerOption is one of the four choices shown in multiple-choice mode.
type AnswerOption struct {
	ID      int    `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}
