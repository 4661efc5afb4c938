package quiz

import "strings"

// minFields is category label, question, correct answer and three wrong answers.
const minFields = 6

// ParseCSV turns a category file into questions. The header row is skipped and
// rows that are short or have an empty question/answer field are dropped.
// Question IDs are assigned from 1 in file order.
func ParseCSV(text string) []Question {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	var qs []Question
	for i := 1; i < len(lines); i++ {
		line := strings.TrimSuffix(lines[i], "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		cols := ParseLine(line)
		if len(cols) < minFields {
			continue
		}
		for j := 1; j < minFields; j++ {
			cols[j] = strings.TrimSpace(cols[j])
		}
		if !nonEmpty(cols[1:minFields]...) {
			continue
		}
		qs = append(qs, Question{
			ID:            len(qs) + 1,
			Text:          cols[1],
			CorrectAnswer: cols[2],
			WrongAnswers:  [3]string{cols[3], cols[4], cols[5]},
		})
	}
	return qs
}

// ParseLine splits a single line on commas. Every quote character toggles the
// quoted state and is itself dropped, so `"a, b"` yields the field `a, b`.
func ParseLine(line string) []string {
	var (
		out      []string
		cur      strings.Builder
		inQuotes bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	return append(out, cur.String())
}

func nonEmpty(vals ...string) bool {
	for _, v := range vals {
		if v == "" {
			return false
		}
	}
	return true
}
