package wizard

import (
	"plantdoc/internal/model"
	"plantdoc/internal/session"
)

// State is the combined session and wizard state
type State string

const (
	StateBrowsing             State = "browsing"
	StateLoadingQuestionnaire State = "loading_questionnaire"
	StateAnswering            State = "answering"
	StateReviewing            State = "reviewing"
	StateAnalyzing            State = "analyzing"
	StateResult               State = "result"
)

// View is a read-only picture of the wizard for presentation
type View struct {
	State          State             `json:"state"`
	SessionID      string            `json:"sessionId,omitempty"`
	Plants         []model.PlantType `json:"plants"`
	PlantsLoading  bool              `json:"plantsLoading"`
	SelectedPlant  *model.PlantType  `json:"selectedPlant,omitempty"`
	Questions      []model.Question  `json:"questions,omitempty"`
	Pointer        int               `json:"pointer"`
	Current        *model.Question   `json:"current,omitempty"`
	Responses      []model.Response  `json:"responses"`
	Answered       int               `json:"answered"`
	Total          int               `json:"total"`
	Completed      bool              `json:"completed"`
	Editing        bool              `json:"editing"`
	Diagnosis      *string           `json:"diagnosis,omitempty"`
	DiscardPending bool              `json:"discardPending"`
	Exporting      bool              `json:"exporting"`
	Error          string            `json:"error,omitempty"`
	ErrorKind      ErrorKind         `json:"errorKind,omitempty"`
}

// state derives the state from the session plus transient flags. Caller
// holds w.mu.
func (w *Wizard) state() State {
	switch {
	case w.loadingQuestionnaire:
		return StateLoadingQuestionnaire
	case !w.session.Initialized():
		return StateBrowsing
	case w.analyzing:
		return StateAnalyzing
	}
	if _, ok := w.session.Diagnosis(); ok {
		return StateResult
	}
	if w.session.Completed() {
		return StateReviewing
	}
	return StateAnswering
}

// view builds a View. Caller holds w.mu.
func (w *Wizard) view() View {
	v := View{
		State:          w.state(),
		SessionID:      w.session.ID(),
		Plants:         append([]model.PlantType{}, w.plants...),
		PlantsLoading:  w.loadingPlants,
		Pointer:        w.session.Pointer(),
		Responses:      w.session.OrderedResponses(),
		Completed:      w.session.Completed(),
		Editing:        w.session.Editing(),
		DiscardPending: w.discardPending,
		Exporting:      w.exporting,
	}
	if w.lastErr != nil {
		v.Error = w.lastErr.Message
		v.ErrorKind = w.lastErr.Kind
	}
	if w.selected != nil {
		p := *w.selected
		v.SelectedPlant = &p
	}
	if w.session.Initialized() {
		v.Questions = w.session.Questions()
		v.Total = len(v.Questions)
		v.Answered = len(v.Responses)
		if q, ok := w.session.Current(); ok && !v.Completed {
			v.Current = &q
		}
		if d, ok := w.session.Diagnosis(); ok {
			v.Diagnosis = &d
		}
	}
	return v
}

// Snapshot returns the durable part of the wizard
func (w *Wizard) Snapshot() session.Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.session.Snapshot()
}
