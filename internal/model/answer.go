package model

// Response is one recorded answer, keyed by the question's position in the
// sorted questionnaire (not the question id)
type Response struct {
	QuestionIndex int    `json:"questionIndex"`
	QuestionText  string `json:"questionText"`
	AnswerText    string `json:"answerText"`
}
