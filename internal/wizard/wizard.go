// Package wizard drives a questionnaire session through its states and
// talks to the remote backend. All intents are serialised on one mutex;
// network calls and rendering run with the lock released and their results
// are dropped when the session they were started for is gone.
package wizard

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"plantdoc/internal/export"
	"plantdoc/internal/gateway"
	"plantdoc/internal/model"
	"plantdoc/internal/session"

	"go.uber.org/zap"
)

const (
	msgLoadPlants    = "Failed to load plant types. Please try again later."
	msgNoPlants      = "No plant types are available yet."
	msgLoadQuestions = "Failed to load questionnaire. Please try again later."
	msgAnalysis      = "Failed to generate plant health analysis. Please try again later."
	msgExport        = "Failed to generate PDF report. Please try again."
)

// Gateway is the part of the backend the wizard needs
type Gateway interface {
	ListPlantTypes(ctx context.Context) ([]model.PlantType, error)
	GetQuestionnaire(ctx context.Context, plantTypeID int64) (model.Questionnaire, error)
	GenerateDiagnosis(ctx context.Context, transcript string, plantTypeID int64) (string, error)
}

// Renderer turns a completed report into a document
type Renderer interface {
	Render(ctx context.Context, r export.Report) (*export.Artifact, error)
}

// Option configures a Wizard
type Option func(*Wizard)

// WithTransitionDelay sets how long ChooseAnswer waits before moving on,
// matching the presentation's fade between questions
func WithTransitionDelay(d time.Duration) Option { return func(w *Wizard) { w.delay = d } }

func WithLogger(l *zap.Logger) Option       { return func(w *Wizard) { w.logger = l } }
func WithClock(now func() time.Time) Option { return func(w *Wizard) { w.now = now } }
func WithObserver(fn func(View)) Option     { return func(w *Wizard) { w.observer = fn } }

// Wizard is the assessment orchestrator for one user
type Wizard struct {
	gateway  Gateway
	renderer Renderer
	logger   *zap.Logger
	delay    time.Duration
	now      func() time.Time
	observer func(View)

	mu                   sync.Mutex
	session              *session.Session
	selected             *model.PlantType
	plants               []model.PlantType
	epoch                uint64 // bumped whenever the active session is replaced or cleared
	loadingPlants        bool
	loadingQuestionnaire bool
	analyzing            bool
	advancing            bool
	exporting            bool
	discardPending       bool
	lastErr              *Error
}

// New creates a wizard in the Browsing state
func New(gw Gateway, r Renderer, opts ...Option) *Wizard {
	w := &Wizard{
		gateway:  gw,
		renderer: r,
		logger:   zap.NewNop(),
		now:      time.Now,
		session:  session.New(),
		plants:   []model.PlantType{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// View returns the current presentation state
func (w *Wizard) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.view()
}

// State returns the current state
func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state()
}

func (w *Wizard) notify() {
	if w.observer == nil {
		return
	}
	w.observer(w.View())
}

func (w *Wizard) fail(kind ErrorKind, op, msg string, err error) *Error {
	e := &Error{Kind: kind, Op: op, Message: msg, Err: err}
	w.lastErr = e
	w.logger.Warn("wizard operation failed",
		zap.String("op", op), zap.String("kind", string(kind)), zap.Error(err))
	return e
}

// reset clears the session and every transient flag. Caller holds w.mu.
func (w *Wizard) reset() {
	w.epoch++
	w.session.Reset()
	w.selected = nil
	w.loadingQuestionnaire = false
	w.analyzing = false
	w.advancing = false
	w.discardPending = false
	w.lastErr = nil
}

// SetGateway swaps the backend used by later gateway calls. Calls already
// in flight keep the gateway they started with.
func (w *Wizard) SetGateway(gw Gateway) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.gateway = gw
}

// Restore replaces the wizard's session with a saved one. Only allowed
// while browsing.
func (w *Wizard) Restore(snap session.Snapshot) error {
	defer w.notify()
	w.mu.Lock()
	defer w.mu.Unlock()

	if st := w.state(); st != StateBrowsing {
		return invalidTransition("restore", st)
	}
	s, err := session.Restore(snap)
	if err != nil {
		return err
	}
	w.epoch++
	w.session = s
	if p, ok := s.Plant(); ok {
		w.selected = &p
	}
	return nil
}

// LoadPlantTypes fetches the plant list. A call while one is in flight is
// a no-op.
func (w *Wizard) LoadPlantTypes(ctx context.Context) error {
	defer w.notify()
	w.mu.Lock()
	if w.loadingPlants {
		w.mu.Unlock()
		return nil
	}
	w.loadingPlants = true
	gw := w.gateway
	w.mu.Unlock()

	plants, err := gw.ListPlantTypes(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.loadingPlants = false
	if err != nil {
		return w.fail(KindNetworkFailure, "load plant types", msgLoadPlants, err)
	}
	if plants == nil {
		plants = []model.PlantType{}
	}
	w.plants = plants
	if len(plants) == 0 {
		return w.fail(KindEmptyResult, "load plant types", msgNoPlants, nil)
	}
	if w.lastErr != nil && w.lastErr.Op == "load plant types" {
		w.lastErr = nil
	}
	return nil
}

// SearchPlants filters the loaded plant list by case-insensitive name
// substring. A blank term returns every plant.
func (w *Wizard) SearchPlants(term string) []model.PlantType {
	w.mu.Lock()
	defer w.mu.Unlock()

	term = strings.ToLower(strings.TrimSpace(term))
	out := []model.PlantType{}
	for _, p := range w.plants {
		if term == "" || strings.Contains(strings.ToLower(p.Name), term) {
			out = append(out, p)
		}
	}
	return out
}

// SelectPlant starts a new session for plant and fetches its questionnaire.
// On failure the wizard returns to Browsing with the plant list intact.
func (w *Wizard) SelectPlant(ctx context.Context, plant model.PlantType) error {
	defer w.notify()
	w.mu.Lock()
	if st := w.state(); st != StateBrowsing {
		w.mu.Unlock()
		return invalidTransition("select plant", st)
	}
	w.reset()
	epoch := w.epoch
	p := plant
	w.selected = &p
	w.loadingQuestionnaire = true
	gw := w.gateway
	w.mu.Unlock()

	q, err := gw.GetQuestionnaire(ctx, plant.ID)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.epoch != epoch {
		w.logger.Debug("discarding stale questionnaire", zap.Int64("plantTypeId", plant.ID))
		return nil
	}
	w.loadingQuestionnaire = false
	if err != nil {
		w.selected = nil
		return w.fail(KindNetworkFailure, "load questionnaire", msgLoadQuestions, err)
	}
	w.session.Initialize(plant, q)
	w.logger.Info("assessment started",
		zap.String("sessionId", w.session.ID()),
		zap.Int64("plantTypeId", plant.ID),
		zap.Int("questions", len(w.session.Questions())))
	return nil
}

// ChooseAnswer records answerText for the current question and, after the
// transition delay, advances to the next question or to review.
func (w *Wizard) ChooseAnswer(ctx context.Context, answerText string) error {
	defer w.notify()
	w.mu.Lock()
	if st := w.state(); st != StateAnswering {
		w.mu.Unlock()
		return invalidTransition("choose answer", st)
	}
	if w.advancing {
		w.mu.Unlock()
		return ErrTransitionPending
	}
	q, ok := w.session.Current()
	if !ok {
		w.mu.Unlock()
		return ErrNoCurrentQuestion
	}
	if _, err := w.session.RecordAnswer(w.session.Pointer(), q.Text, answerText); err != nil {
		w.mu.Unlock()
		return err
	}
	w.discardPending = false
	if w.delay <= 0 {
		w.session.Advance()
		w.mu.Unlock()
		return nil
	}
	w.advancing = true
	epoch := w.epoch
	w.mu.Unlock()

	// the answer is already recorded; the pointer moves even if ctx ends early
	t := time.NewTimer(w.delay)
	select {
	case <-t.C:
	case <-ctx.Done():
		t.Stop()
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.epoch != epoch {
		return nil
	}
	w.advancing = false
	w.session.Advance()
	return nil
}

// Continue advances without a new answer: allowed when the current
// question already has a response, or when the questionnaire is empty.
func (w *Wizard) Continue() error {
	defer w.notify()
	w.mu.Lock()
	defer w.mu.Unlock()

	if st := w.state(); st != StateAnswering {
		return invalidTransition("continue", st)
	}
	if w.advancing {
		return ErrTransitionPending
	}
	if len(w.session.Questions()) > 0 {
		if _, ok := w.session.Response(w.session.Pointer()); !ok {
			return ErrUnanswered
		}
	}
	w.discardPending = false
	w.session.Advance()
	return nil
}

// EditQuestion reopens question i from the review screen
func (w *Wizard) EditQuestion(i int) error {
	defer w.notify()
	w.mu.Lock()
	defer w.mu.Unlock()

	if st := w.state(); st != StateReviewing {
		return invalidTransition("edit question", st)
	}
	return w.session.JumpTo(i)
}

// Submit sends the transcript for analysis. A call while an analysis is in
// flight is a no-op. On failure the wizard returns to Reviewing with the
// responses untouched.
func (w *Wizard) Submit(ctx context.Context) error {
	defer w.notify()
	w.mu.Lock()
	if w.analyzing {
		w.mu.Unlock()
		return nil
	}
	if st := w.state(); st != StateReviewing {
		w.mu.Unlock()
		return invalidTransition("submit", st)
	}
	plant, _ := w.session.Plant()
	transcript := BuildTranscript(plant.Name, w.session.OrderedResponses())
	w.analyzing = true
	w.lastErr = nil
	epoch := w.epoch
	gw := w.gateway
	w.mu.Unlock()

	diagnosis, err := gw.GenerateDiagnosis(ctx, transcript, plant.ID)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.epoch != epoch {
		w.logger.Debug("discarding stale diagnosis", zap.Int64("plantTypeId", plant.ID))
		return nil
	}
	w.analyzing = false
	if err != nil {
		kind := KindNetworkFailure
		if errors.Is(err, gateway.ErrEmptyDiagnosis) {
			kind = KindEmptyResult
		}
		return w.fail(kind, "analyze", msgAnalysis, err)
	}
	if err := w.session.SetDiagnosis(diagnosis); err != nil {
		return err
	}
	w.logger.Info("diagnosis received",
		zap.String("sessionId", w.session.ID()),
		zap.Int("length", len(diagnosis)))
	return nil
}

// Back handles the back button. With unreviewed answers it only raises a
// discard prompt; otherwise it returns to Browsing.
func (w *Wizard) Back() error {
	defer w.notify()
	w.mu.Lock()
	defer w.mu.Unlock()

	switch st := w.state(); st {
	case StateBrowsing:
		return nil
	case StateAnswering:
		if len(w.session.Responses()) > 0 {
			w.discardPending = true
			return nil
		}
	}
	w.reset()
	return nil
}

// ConfirmDiscard accepts a pending discard prompt
func (w *Wizard) ConfirmDiscard() error {
	defer w.notify()
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.discardPending {
		return ErrNoDiscardPending
	}
	w.reset()
	return nil
}

// CancelDiscard dismisses a pending discard prompt
func (w *Wizard) CancelDiscard() {
	defer w.notify()
	w.mu.Lock()
	defer w.mu.Unlock()
	w.discardPending = false
}

// Restart drops the session unconditionally and returns to Browsing
func (w *Wizard) Restart() {
	defer w.notify()
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reset()
}

// Export renders the completed session. Only one export runs at a time;
// a failure leaves the session unchanged and may be retried.
func (w *Wizard) Export(ctx context.Context) (*export.Artifact, error) {
	defer w.notify()
	w.mu.Lock()
	if st := w.state(); st != StateResult {
		w.mu.Unlock()
		return nil, invalidTransition("export", st)
	}
	if w.exporting {
		w.mu.Unlock()
		return nil, ErrExportInProgress
	}
	plant, _ := w.session.Plant()
	diagnosis, _ := w.session.Diagnosis()
	report := export.Report{
		PlantName:   plant.Name,
		GeneratedAt: w.now(),
		Responses:   w.session.OrderedResponses(),
		Diagnosis:   diagnosis,
	}
	w.exporting = true
	w.mu.Unlock()

	art, err := w.renderer.Render(ctx, report)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.exporting = false
	if err != nil {
		return nil, w.fail(KindRenderFailure, "export", msgExport, err)
	}
	if w.lastErr != nil && w.lastErr.Kind == KindRenderFailure {
		w.lastErr = nil
	}
	return art, nil
}
