package session

import (
	"errors"
	"fmt"

	"plantdoc/internal/model"
)

var ErrInvalidSnapshot = errors.New("invalid session snapshot")

// Snapshot is the serialisable form of a Session
type Snapshot struct {
	ID            string               `json:"id"`
	Plant         *model.PlantType     `json:"plant,omitempty"`
	Questionnaire *model.Questionnaire `json:"questionnaire,omitempty"`
	Responses     []model.Response     `json:"responses"`
	Pointer       int                  `json:"pointer"`
	Completed     bool                 `json:"completed"`
	Editing       bool                 `json:"editing"`
	Diagnosis     *string              `json:"diagnosis,omitempty"`
}

// Snapshot captures the session state. The returned value shares no
// mutable memory with the session except the immutable question list.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		ID:        s.id,
		Responses: s.Responses(),
		Pointer:   s.pointer,
		Completed: s.completed,
		Editing:   s.editing,
	}
	if s.plant != nil {
		p := *s.plant
		snap.Plant = &p
	}
	if s.questionnaire != nil {
		q := *s.questionnaire
		snap.Questionnaire = &q
	}
	if s.diagnosis != nil {
		d := *s.diagnosis
		snap.Diagnosis = &d
	}
	return snap
}

// Restore rebuilds a session from snap after checking its invariants
func Restore(snap Snapshot) (*Session, error) {
	if snap.Questionnaire == nil {
		return New(), nil
	}
	if snap.Plant == nil {
		return nil, fmt.Errorf("%w: missing plant", ErrInvalidSnapshot)
	}
	n := len(snap.Questionnaire.Questions)
	if snap.Pointer < 0 || (n > 0 && snap.Pointer >= n) || (n == 0 && snap.Pointer != 0) {
		return nil, fmt.Errorf("%w: pointer %d", ErrInvalidSnapshot, snap.Pointer)
	}
	seen := make(map[int]bool, len(snap.Responses))
	for _, r := range snap.Responses {
		if r.QuestionIndex < 0 || r.QuestionIndex >= n || seen[r.QuestionIndex] {
			return nil, fmt.Errorf("%w: response index %d", ErrInvalidSnapshot, r.QuestionIndex)
		}
		seen[r.QuestionIndex] = true
	}
	if snap.Diagnosis != nil && !snap.Completed {
		return nil, fmt.Errorf("%w: diagnosis on incomplete session", ErrInvalidSnapshot)
	}

	plant := *snap.Plant
	q := *snap.Questionnaire
	q.Questions = SortQuestions(q.Questions)
	s := &Session{
		id:            snap.ID,
		plant:         &plant,
		questionnaire: &q,
		responses:     append([]model.Response{}, snap.Responses...),
		pointer:       snap.Pointer,
		completed:     snap.Completed,
		editing:       snap.Editing,
	}
	if snap.Diagnosis != nil {
		d := *snap.Diagnosis
		s.diagnosis = &d
	}
	return s, nil
}
