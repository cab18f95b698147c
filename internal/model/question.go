package model

// Answer is one candidate answer of a question
type Answer struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

// Question is a questionnaire entry with its ordered candidate answers
type Question struct {
	ID      int64    `json:"id"`
	Text    string   `json:"text"`
	Order   int      `json:"order"`
	Answers []Answer `json:"answers"`
}

// HasAnswer reports whether text matches one of the declared answers
func (q *Question) HasAnswer(text string) bool {
	for _, a := range q.Answers {
		if a.Text == text {
			return true
		}
	}
	return false
}

// Questionnaire is the ordered question set for one plant type.
// Questions are sorted by Order once at load time and never mutated afterwards.
type Questionnaire struct {
	PlantTypeID int64      `json:"plantTypeId"`
	Questions   []Question `json:"questions"`
}

// Len returns the number of questions
func (q *Questionnaire) Len() int {
	if q == nil {
		return 0
	}
	return len(q.Questions)
}
