package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"plantdoc/internal/cache"
	"plantdoc/internal/export"
	"plantdoc/internal/gateway"
	"plantdoc/internal/model"
	"plantdoc/internal/wizard"

	"go.uber.org/zap"
)

// ErrPlantNotFound is returned when a selected plant id is not offered
var ErrPlantNotFound = errors.New("plant type not found")

// Backend is everything the service asks of the remote backend
type Backend interface {
	wizard.Gateway
	ListReports(ctx context.Context) ([]model.SavedReport, error)
	DeleteReport(ctx context.Context, id int64) error
}

// BackendFactory returns a backend that sends header with every request
type BackendFactory func(header http.Header) Backend

// ClientFactory adapts a gateway client into a BackendFactory
func ClientFactory(c *gateway.Client) BackendFactory {
	return func(h http.Header) Backend { return c.WithHeader(h) }
}

// Caller identifies who an intent is for and the headers to forward
type Caller struct {
	UserID string
	Header http.Header
}

// AssessmentService owns one wizard per user
type AssessmentService struct {
	backends    BackendFactory
	renderer    wizard.Renderer
	cache       cache.SessionCache
	exports     ExportLog
	broadcaster Broadcaster
	logger      *zap.Logger
	delay       time.Duration

	mu      sync.Mutex
	wizards map[string]*wizard.Wizard
}

// AssessmentOption configures an AssessmentService
type AssessmentOption func(*AssessmentService)

func WithSessionCache(c cache.SessionCache) AssessmentOption {
	return func(s *AssessmentService) { s.cache = c }
}

func WithExportLog(l ExportLog) AssessmentOption {
	return func(s *AssessmentService) { s.exports = l }
}

func WithTransitionDelay(d time.Duration) AssessmentOption {
	return func(s *AssessmentService) { s.delay = d }
}

func WithLogger(l *zap.Logger) AssessmentOption {
	return func(s *AssessmentService) { s.logger = l }
}

// NewAssessmentService creates a new assessment service
func NewAssessmentService(backends BackendFactory, renderer wizard.Renderer, opts ...AssessmentOption) *AssessmentService {
	s := &AssessmentService{
		backends: backends,
		renderer: renderer,
		logger:   zap.NewNop(),
		wizards:  make(map[string]*wizard.Wizard),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetBroadcaster sets the broadcaster for WebSocket notifications
func (s *AssessmentService) SetBroadcaster(b Broadcaster) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcaster = b
}

func (s *AssessmentService) publish(userID string, v wizard.View) {
	s.mu.Lock()
	b := s.broadcaster
	s.mu.Unlock()
	if b != nil {
		b.BroadcastToUser(userID, MsgStateChanged, v)
	}
}

// wizardFor returns the caller's wizard, resuming a cached session when the
// user has none in memory. The wizard's backend is rebuilt from the caller's
// headers on every call so a refreshed token is forwarded.
func (s *AssessmentService) wizardFor(ctx context.Context, c Caller) *wizard.Wizard {
	backend := s.backends(c.Header)

	s.mu.Lock()
	w, ok := s.wizards[c.UserID]
	s.mu.Unlock()
	if ok {
		w.SetGateway(backend)
		return w
	}

	userID := c.UserID
	w = wizard.New(backend, s.renderer,
		wizard.WithTransitionDelay(s.delay),
		wizard.WithLogger(s.logger.With(zap.String("userId", userID))),
		wizard.WithObserver(func(v wizard.View) { s.publish(userID, v) }),
	)
	s.resume(ctx, userID, w)

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.wizards[userID]; ok {
		existing.SetGateway(backend)
		return existing
	}
	s.wizards[userID] = w
	return w
}

func (s *AssessmentService) resume(ctx context.Context, userID string, w *wizard.Wizard) {
	if s.cache == nil {
		return
	}
	snap, err := s.cache.Get(ctx, userID)
	if errors.Is(err, cache.ErrNotFound) {
		return
	}
	if err != nil {
		s.logger.Warn("session cache read failed", zap.String("userId", userID), zap.Error(err))
		return
	}
	if err := w.Restore(*snap); err != nil {
		s.logger.Warn("dropping unusable cached session", zap.String("userId", userID), zap.Error(err))
		return
	}
	s.logger.Info("resumed cached session", zap.String("userId", userID), zap.String("sessionId", snap.ID))
}

// persist stores the durable session after an intent. Cache failures are
// logged and never fail the intent.
func (s *AssessmentService) persist(ctx context.Context, userID string, w *wizard.Wizard) {
	if s.cache == nil {
		return
	}
	snap := w.Snapshot()
	var err error
	if snap.ID == "" {
		err = s.cache.Delete(ctx, userID)
	} else {
		err = s.cache.Set(ctx, userID, snap)
	}
	if err != nil {
		s.logger.Warn("session cache write failed", zap.String("userId", userID), zap.Error(err))
	}
}

// do runs one intent against the caller's wizard and persists the result
func (s *AssessmentService) do(ctx context.Context, c Caller, intent func(*wizard.Wizard) error) (wizard.View, error) {
	w := s.wizardFor(ctx, c)
	err := intent(w)
	s.persist(ctx, c.UserID, w)
	return w.View(), err
}

// View returns the caller's current wizard view
func (s *AssessmentService) View(ctx context.Context, c Caller) wizard.View {
	return s.wizardFor(ctx, c).View()
}

// Plants returns the plant list filtered by query, loading it from the
// backend when nothing is loaded yet or refresh is set
func (s *AssessmentService) Plants(ctx context.Context, c Caller, query string, refresh bool) ([]model.PlantType, error) {
	w := s.wizardFor(ctx, c)
	if refresh || len(w.View().Plants) == 0 {
		if err := w.LoadPlantTypes(ctx); err != nil {
			return nil, err
		}
	}
	return w.SearchPlants(query), nil
}

// SelectPlant starts an assessment for the plant with plantID
func (s *AssessmentService) SelectPlant(ctx context.Context, c Caller, plantID int64) (wizard.View, error) {
	w := s.wizardFor(ctx, c)
	plant, ok := findPlant(w.View().Plants, plantID)
	if !ok {
		if err := w.LoadPlantTypes(ctx); err != nil {
			return w.View(), err
		}
		if plant, ok = findPlant(w.View().Plants, plantID); !ok {
			return w.View(), fmt.Errorf("%w: %d", ErrPlantNotFound, plantID)
		}
	}
	return s.do(ctx, c, func(w *wizard.Wizard) error { return w.SelectPlant(ctx, plant) })
}

func findPlant(plants []model.PlantType, id int64) (model.PlantType, bool) {
	for _, p := range plants {
		if p.ID == id {
			return p, true
		}
	}
	return model.PlantType{}, false
}

func (s *AssessmentService) Answer(ctx context.Context, c Caller, answerText string) (wizard.View, error) {
	return s.do(ctx, c, func(w *wizard.Wizard) error { return w.ChooseAnswer(ctx, answerText) })
}

func (s *AssessmentService) Continue(ctx context.Context, c Caller) (wizard.View, error) {
	return s.do(ctx, c, (*wizard.Wizard).Continue)
}

func (s *AssessmentService) Edit(ctx context.Context, c Caller, questionIndex int) (wizard.View, error) {
	return s.do(ctx, c, func(w *wizard.Wizard) error { return w.EditQuestion(questionIndex) })
}

func (s *AssessmentService) Submit(ctx context.Context, c Caller) (wizard.View, error) {
	return s.do(ctx, c, func(w *wizard.Wizard) error { return w.Submit(ctx) })
}

func (s *AssessmentService) Back(ctx context.Context, c Caller) (wizard.View, error) {
	return s.do(ctx, c, (*wizard.Wizard).Back)
}

func (s *AssessmentService) ConfirmDiscard(ctx context.Context, c Caller) (wizard.View, error) {
	return s.do(ctx, c, (*wizard.Wizard).ConfirmDiscard)
}

func (s *AssessmentService) CancelDiscard(ctx context.Context, c Caller) (wizard.View, error) {
	return s.do(ctx, c, func(w *wizard.Wizard) error {
		w.CancelDiscard()
		return nil
	})
}

func (s *AssessmentService) Restart(ctx context.Context, c Caller) (wizard.View, error) {
	return s.do(ctx, c, func(w *wizard.Wizard) error {
		w.Restart()
		return nil
	})
}

// Export renders the caller's finished assessment and logs it
func (s *AssessmentService) Export(ctx context.Context, c Caller) (*export.Artifact, error) {
	w := s.wizardFor(ctx, c)
	art, err := w.Export(ctx)
	if err != nil {
		return nil, err
	}

	if s.exports != nil {
		snap := w.Snapshot()
		rec := &model.ExportRecord{
			UserID:    c.UserID,
			SessionID: snap.ID,
			Filename:  art.Filename,
			Pages:     art.Pages,
			SizeBytes: len(art.Data),
		}
		if snap.Plant != nil {
			rec.PlantTypeID = snap.Plant.ID
			rec.PlantName = snap.Plant.Name
		}
		if snap.Diagnosis != nil {
			rec.Diagnosis = *snap.Diagnosis
		}
		if _, err := s.exports.Record(ctx, rec); err != nil {
			s.logger.Warn("failed to record export", zap.String("userId", c.UserID), zap.Error(err))
		}
	}

	s.logger.Info("report exported",
		zap.String("userId", c.UserID),
		zap.String("filename", art.Filename),
		zap.Int("pages", art.Pages),
		zap.Int("bytes", len(art.Data)))
	return art, nil
}

// Forget drops the caller's in-memory wizard and cached session
func (s *AssessmentService) Forget(ctx context.Context, userID string) error {
	s.mu.Lock()
	delete(s.wizards, userID)
	b := s.broadcaster
	s.mu.Unlock()

	if b != nil {
		b.DisconnectUser(userID)
	}
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, userID)
}
