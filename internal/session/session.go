// Package session holds the state of one user's progress through one
// questionnaire. The question list is fixed once loaded; only the responses,
// the pointer and the completion/edit flags change.
package session

import (
	"errors"
	"fmt"
	"sort"

	"plantdoc/internal/model"

	"github.com/google/uuid"
)

var (
	ErrNotInitialized = errors.New("session not initialized")
	ErrQuestionIndex  = errors.New("question index out of range")
	ErrUnknownAnswer  = errors.New("answer is not declared for this question")
	ErrNotCompleted   = errors.New("questionnaire not completed")
)

// Session is the mutable record of a single assessment. It is not safe for
// concurrent use; the wizard serialises access.
type Session struct {
	id            string
	plant         *model.PlantType
	questionnaire *model.Questionnaire
	responses     []model.Response
	pointer       int
	completed     bool
	editing       bool
	diagnosis     *string
}

// New returns an uninitialized session
func New() *Session {
	return &Session{}
}

// SortQuestions returns a copy of questions ordered by Order ascending.
// Ties keep their original relative order.
func SortQuestions(questions []model.Question) []model.Question {
	sorted := make([]model.Question, len(questions))
	copy(sorted, questions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Order < sorted[j].Order
	})
	return sorted
}

// Initialize starts a fresh session for plant over questionnaire q,
// replacing anything held before.
func (s *Session) Initialize(plant model.PlantType, q model.Questionnaire) {
	q.Questions = SortQuestions(q.Questions)
	if q.PlantTypeID == 0 {
		q.PlantTypeID = plant.ID
	}
	*s = Session{
		id:            uuid.New().String(),
		plant:         &plant,
		questionnaire: &q,
		responses:     []model.Response{},
	}
}

// Reset returns the session to the uninitialized state
func (s *Session) Reset() {
	*s = Session{}
}

// Initialized reports whether a questionnaire is loaded
func (s *Session) Initialized() bool {
	return s.questionnaire != nil
}

// ID returns the session identifier, empty when uninitialized
func (s *Session) ID() string { return s.id }

// Plant returns the selected plant type
func (s *Session) Plant() (model.PlantType, bool) {
	if s.plant == nil {
		return model.PlantType{}, false
	}
	return *s.plant, true
}

// Questions returns the sorted question list. Callers must not modify it.
func (s *Session) Questions() []model.Question {
	if s.questionnaire == nil {
		return nil
	}
	return s.questionnaire.Questions
}

func (s *Session) Pointer() int    { return s.pointer }
func (s *Session) Completed() bool { return s.completed }
func (s *Session) Editing() bool   { return s.editing }

// Current returns the question under the pointer
func (s *Session) Current() (model.Question, bool) {
	qs := s.Questions()
	if s.pointer < 0 || s.pointer >= len(qs) {
		return model.Question{}, false
	}
	return qs[s.pointer], true
}

// Responses returns a copy of the recorded responses in recording order
func (s *Session) Responses() []model.Response {
	out := make([]model.Response, len(s.responses))
	copy(out, s.responses)
	return out
}

// OrderedResponses returns a copy of the responses sorted by question index
func (s *Session) OrderedResponses() []model.Response {
	out := s.Responses()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].QuestionIndex < out[j].QuestionIndex
	})
	return out
}

// Response returns the response recorded for questionIndex
func (s *Session) Response(questionIndex int) (model.Response, bool) {
	for _, r := range s.responses {
		if r.QuestionIndex == questionIndex {
			return r, true
		}
	}
	return model.Response{}, false
}

// RecordAnswer upserts the response for questionIndex. answerText must be
// one of the question's declared answers.
func (s *Session) RecordAnswer(questionIndex int, questionText, answerText string) ([]model.Response, error) {
	if !s.Initialized() {
		return nil, ErrNotInitialized
	}
	qs := s.questionnaire.Questions
	if questionIndex < 0 || questionIndex >= len(qs) {
		return nil, fmt.Errorf("%w: %d", ErrQuestionIndex, questionIndex)
	}
	if !qs[questionIndex].HasAnswer(answerText) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAnswer, answerText)
	}
	if questionText == "" {
		questionText = qs[questionIndex].Text
	}

	resp := model.Response{
		QuestionIndex: questionIndex,
		QuestionText:  questionText,
		AnswerText:    answerText,
	}
	replaced := false
	for i := range s.responses {
		if s.responses[i].QuestionIndex == questionIndex {
			s.responses[i] = resp
			replaced = true
			break
		}
	}
	if !replaced {
		s.responses = append(s.responses, resp)
	}
	return s.Responses(), nil
}

// Advance moves to the next question, or completes the questionnaire when
// on the last question or while editing.
func (s *Session) Advance() {
	if !s.Initialized() {
		return
	}
	last := len(s.questionnaire.Questions) - 1
	if s.pointer < last && !s.editing {
		s.pointer++
		return
	}
	s.completed = true
	s.editing = false
}

// JumpTo reopens questionIndex for editing. Edit mode suppresses
// auto-advance so the next answer returns straight to review.
func (s *Session) JumpTo(questionIndex int) error {
	if !s.Initialized() {
		return ErrNotInitialized
	}
	if questionIndex < 0 || questionIndex >= len(s.questionnaire.Questions) {
		return fmt.Errorf("%w: %d", ErrQuestionIndex, questionIndex)
	}
	s.pointer = questionIndex
	s.completed = false
	s.editing = true
	s.diagnosis = nil
	return nil
}

// Diagnosis returns the attached diagnosis text
func (s *Session) Diagnosis() (string, bool) {
	if s.diagnosis == nil {
		return "", false
	}
	return *s.diagnosis, true
}

// SetDiagnosis attaches a diagnosis to a completed session
func (s *Session) SetDiagnosis(text string) error {
	if !s.Initialized() {
		return ErrNotInitialized
	}
	if !s.completed {
		return ErrNotCompleted
	}
	s.diagnosis = &text
	return nil
}
