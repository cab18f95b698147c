package wizard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"plantdoc/internal/export"
	"plantdoc/internal/gateway"
	"plantdoc/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) ListPlantTypes(ctx context.Context) ([]model.PlantType, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PlantType), args.Error(1)
}

func (m *MockGateway) GetQuestionnaire(ctx context.Context, plantTypeID int64) (model.Questionnaire, error) {
	args := m.Called(ctx, plantTypeID)
	return args.Get(0).(model.Questionnaire), args.Error(1)
}

func (m *MockGateway) GenerateDiagnosis(ctx context.Context, transcript string, plantTypeID int64) (string, error) {
	args := m.Called(ctx, transcript, plantTypeID)
	return args.String(0), args.Error(1)
}

type MockRenderer struct {
	mock.Mock
}

func (m *MockRenderer) Render(ctx context.Context, r export.Report) (*export.Artifact, error) {
	args := m.Called(ctx, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*export.Artifact), args.Error(1)
}

var (
	fern     = model.PlantType{ID: 7, Name: "Fern"}
	aloe     = model.PlantType{ID: 8, Name: "Aloe Vera #1"}
	fixedNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
)

func twoQuestions() model.Questionnaire {
	return model.Questionnaire{Questions: []model.Question{
		{ID: 1, Text: "Q1", Order: 1, Answers: []model.Answer{{Text: "Yes"}, {Text: "No"}}},
		{ID: 2, Text: "Q2", Order: 2, Answers: []model.Answer{{Text: "Sunny"}, {Text: "Shady"}}},
	}}
}

func newWizard(t *testing.T) (*Wizard, *MockGateway, *MockRenderer) {
	t.Helper()
	gw := new(MockGateway)
	r := new(MockRenderer)
	w := New(gw, r, WithClock(func() time.Time { return fixedNow }))
	return w, gw, r
}

// answered returns a wizard in Reviewing with Yes/Sunny recorded for fern
func answered(t *testing.T) (*Wizard, *MockGateway, *MockRenderer) {
	t.Helper()
	w, gw, r := newWizard(t)
	gw.On("GetQuestionnaire", mock.Anything, int64(7)).Return(twoQuestions(), nil).Once()
	ctx := context.Background()
	require.NoError(t, w.SelectPlant(ctx, fern))
	require.NoError(t, w.ChooseAnswer(ctx, "Yes"))
	require.NoError(t, w.ChooseAnswer(ctx, "Sunny"))
	require.Equal(t, StateReviewing, w.State())
	return w, gw, r
}

const fernTranscript = "Plant: Fern\n\nQ: Q1\nA: Yes\n\nQ: Q2\nA: Sunny"

func TestLoadPlantTypes(t *testing.T) {
	w, gw, _ := newWizard(t)
	gw.On("ListPlantTypes", mock.Anything).Return([]model.PlantType{fern, aloe}, nil).Once()

	require.NoError(t, w.LoadPlantTypes(context.Background()))
	v := w.View()
	assert.Equal(t, StateBrowsing, v.State)
	assert.Len(t, v.Plants, 2)
	assert.Empty(t, v.Error)
}

func TestLoadPlantTypesFailureKeepsBrowsing(t *testing.T) {
	w, gw, _ := newWizard(t)
	gw.On("ListPlantTypes", mock.Anything).Return(nil, errors.New("boom")).Once()

	err := w.LoadPlantTypes(context.Background())
	var werr *Error
	require.True(t, errors.As(err, &werr))
	assert.Equal(t, KindNetworkFailure, werr.Kind)

	v := w.View()
	assert.Equal(t, StateBrowsing, v.State)
	assert.Equal(t, msgLoadPlants, v.Error)
	assert.False(t, v.PlantsLoading)
}

func TestLoadPlantTypesEmpty(t *testing.T) {
	w, gw, _ := newWizard(t)
	gw.On("ListPlantTypes", mock.Anything).Return([]model.PlantType{}, nil).Once()

	err := w.LoadPlantTypes(context.Background())
	var werr *Error
	require.True(t, errors.As(err, &werr))
	assert.Equal(t, KindEmptyResult, werr.Kind)
	assert.Equal(t, msgNoPlants, w.View().Error)
}

func TestSearchPlants(t *testing.T) {
	w, gw, _ := newWizard(t)
	gw.On("ListPlantTypes", mock.Anything).Return([]model.PlantType{fern, aloe}, nil).Once()
	require.NoError(t, w.LoadPlantTypes(context.Background()))

	assert.Equal(t, []model.PlantType{aloe}, w.SearchPlants("ALOE"))
	assert.Len(t, w.SearchPlants("  "), 2)
	assert.Empty(t, w.SearchPlants("cactus"))
}

func TestFullScenario(t *testing.T) {
	w, gw, _ := answered(t)

	v := w.View()
	assert.True(t, v.Completed)
	assert.Equal(t, []model.Response{
		{QuestionIndex: 0, QuestionText: "Q1", AnswerText: "Yes"},
		{QuestionIndex: 1, QuestionText: "Q2", AnswerText: "Sunny"},
	}, v.Responses)
	assert.Nil(t, v.Current)

	gw.On("GenerateDiagnosis", mock.Anything, fernTranscript, int64(7)).Return("**Healthy**", nil).Once()
	require.NoError(t, w.Submit(context.Background()))

	v = w.View()
	assert.Equal(t, StateResult, v.State)
	require.NotNil(t, v.Diagnosis)
	assert.Equal(t, "**Healthy**", *v.Diagnosis)
	gw.AssertExpectations(t)
}

func TestSelectPlantSortsQuestions(t *testing.T) {
	w, gw, _ := newWizard(t)
	q := twoQuestions()
	q.Questions[0], q.Questions[1] = q.Questions[1], q.Questions[0]
	gw.On("GetQuestionnaire", mock.Anything, int64(7)).Return(q, nil).Once()

	require.NoError(t, w.SelectPlant(context.Background(), fern))
	v := w.View()
	assert.Equal(t, StateAnswering, v.State)
	require.NotNil(t, v.Current)
	assert.Equal(t, "Q1", v.Current.Text)
	assert.Equal(t, 2, v.Total)
}

func TestSelectPlantFailure(t *testing.T) {
	w, gw, _ := newWizard(t)
	gw.On("ListPlantTypes", mock.Anything).Return([]model.PlantType{fern}, nil).Once()
	gw.On("GetQuestionnaire", mock.Anything, int64(7)).Return(model.Questionnaire{}, errors.New("timeout")).Once()
	require.NoError(t, w.LoadPlantTypes(context.Background()))

	err := w.SelectPlant(context.Background(), fern)
	var werr *Error
	require.True(t, errors.As(err, &werr))
	assert.Equal(t, KindNetworkFailure, werr.Kind)

	v := w.View()
	assert.Equal(t, StateBrowsing, v.State)
	assert.Equal(t, msgLoadQuestions, v.Error)
	assert.Nil(t, v.SelectedPlant)
	assert.Len(t, v.Plants, 1)
}

func TestEmptyQuestionnaire(t *testing.T) {
	w, gw, _ := newWizard(t)
	gw.On("GetQuestionnaire", mock.Anything, int64(7)).Return(model.Questionnaire{}, nil).Once()

	require.NoError(t, w.SelectPlant(context.Background(), fern))
	v := w.View()
	assert.Equal(t, StateAnswering, v.State)
	assert.Empty(t, v.Questions)
	assert.ErrorIs(t, w.ChooseAnswer(context.Background(), "Yes"), ErrNoCurrentQuestion)

	require.NoError(t, w.Continue())
	assert.Equal(t, StateReviewing, w.State())
	assert.True(t, w.View().Completed)
}

func TestChooseAnswerRejectsUndeclaredAnswer(t *testing.T) {
	w, gw, _ := newWizard(t)
	gw.On("GetQuestionnaire", mock.Anything, int64(7)).Return(twoQuestions(), nil).Once()
	require.NoError(t, w.SelectPlant(context.Background(), fern))

	assert.Error(t, w.ChooseAnswer(context.Background(), "Maybe"))
	v := w.View()
	assert.Empty(t, v.Responses)
	assert.Equal(t, 0, v.Pointer)
}

func TestEditReturnsToReviewWithoutReplay(t *testing.T) {
	w, _, _ := answered(t)

	require.NoError(t, w.EditQuestion(0))
	v := w.View()
	assert.Equal(t, StateAnswering, v.State)
	assert.True(t, v.Editing)
	assert.Equal(t, 0, v.Pointer)

	require.NoError(t, w.ChooseAnswer(context.Background(), "No"))
	v = w.View()
	assert.Equal(t, StateReviewing, v.State)
	assert.Len(t, v.Responses, 2)
	assert.Equal(t, "No", v.Responses[0].AnswerText)
	assert.Equal(t, "Sunny", v.Responses[1].AnswerText)
}

func TestContinueRequiresAnswer(t *testing.T) {
	w, gw, _ := newWizard(t)
	gw.On("GetQuestionnaire", mock.Anything, int64(7)).Return(twoQuestions(), nil).Once()
	require.NoError(t, w.SelectPlant(context.Background(), fern))
	assert.ErrorIs(t, w.Continue(), ErrUnanswered)
}

func TestContinueKeepsAnswerWhileEditing(t *testing.T) {
	w, _, _ := answered(t)
	require.NoError(t, w.EditQuestion(1))
	require.NoError(t, w.Continue())
	assert.Equal(t, StateReviewing, w.State())
}

func TestContinueDismissesDiscardPrompt(t *testing.T) {
	w, _, _ := answered(t)
	require.NoError(t, w.EditQuestion(0))
	require.NoError(t, w.Back())
	require.True(t, w.View().DiscardPending)

	require.NoError(t, w.Continue())
	v := w.View()
	assert.Equal(t, StateReviewing, v.State)
	assert.False(t, v.DiscardPending)
	assert.Len(t, v.Responses, 2)
}

func TestSetGatewayAppliesToLaterCalls(t *testing.T) {
	w, first, _ := newWizard(t)
	first.On("GetQuestionnaire", mock.Anything, int64(7)).Return(twoQuestions(), nil).Once()
	ctx := context.Background()
	require.NoError(t, w.SelectPlant(ctx, fern))
	require.NoError(t, w.ChooseAnswer(ctx, "Yes"))
	require.NoError(t, w.ChooseAnswer(ctx, "Sunny"))

	second := new(MockGateway)
	second.On("GenerateDiagnosis", mock.Anything, fernTranscript, int64(7)).Return("ok", nil).Once()
	w.SetGateway(second)
	require.NoError(t, w.Submit(ctx))

	assert.Equal(t, StateResult, w.State())
	first.AssertExpectations(t)
	second.AssertExpectations(t)
	first.AssertNotCalled(t, "GenerateDiagnosis", mock.Anything, mock.Anything, mock.Anything)
}

func TestInvalidTransitions(t *testing.T) {
	w, _, _ := newWizard(t)
	ctx := context.Background()
	assert.ErrorIs(t, w.ChooseAnswer(ctx, "Yes"), ErrInvalidTransition)
	assert.ErrorIs(t, w.Submit(ctx), ErrInvalidTransition)
	assert.ErrorIs(t, w.EditQuestion(0), ErrInvalidTransition)
	_, err := w.Export(ctx)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorIs(t, w.ConfirmDiscard(), ErrNoDiscardPending)

	rw, _, _ := answered(t)
	assert.ErrorIs(t, rw.SelectPlant(ctx, aloe), ErrInvalidTransition)
	assert.ErrorIs(t, rw.ChooseAnswer(ctx, "Yes"), ErrInvalidTransition)
}

func TestAnalysisFailureReturnsToReview(t *testing.T) {
	w, gw, _ := answered(t)
	before := w.View().Responses
	gw.On("GenerateDiagnosis", mock.Anything, fernTranscript, int64(7)).Return("", errors.New("502")).Once()

	err := w.Submit(context.Background())
	var werr *Error
	require.True(t, errors.As(err, &werr))
	assert.Equal(t, KindNetworkFailure, werr.Kind)

	v := w.View()
	assert.Equal(t, StateReviewing, v.State)
	assert.Nil(t, v.Diagnosis)
	assert.Equal(t, before, v.Responses)
	assert.Equal(t, msgAnalysis, v.Error)
}

func TestAnalysisEmptyResult(t *testing.T) {
	w, gw, _ := answered(t)
	gw.On("GenerateDiagnosis", mock.Anything, fernTranscript, int64(7)).Return("", gateway.ErrEmptyDiagnosis).Once()

	err := w.Submit(context.Background())
	var werr *Error
	require.True(t, errors.As(err, &werr))
	assert.Equal(t, KindEmptyResult, werr.Kind)
	assert.Equal(t, StateReviewing, w.State())
}

func TestSubmitIsNoOpWhileAnalyzing(t *testing.T) {
	w, gw, _ := answered(t)
	started := make(chan struct{})
	release := make(chan struct{})
	gw.On("GenerateDiagnosis", mock.Anything, fernTranscript, int64(7)).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return("ok", nil).Once()

	done := make(chan error, 1)
	go func() { done <- w.Submit(context.Background()) }()
	<-started

	assert.Equal(t, StateAnalyzing, w.State())
	for i := 0; i < 3; i++ {
		assert.NoError(t, w.Submit(context.Background()))
	}
	assert.ErrorIs(t, w.EditQuestion(0), ErrInvalidTransition)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StateResult, w.State())
	gw.AssertNumberOfCalls(t, "GenerateDiagnosis", 1)
}

func TestStaleDiagnosisIsDiscarded(t *testing.T) {
	w, gw, _ := answered(t)
	started := make(chan struct{})
	release := make(chan struct{})
	gw.On("GenerateDiagnosis", mock.Anything, fernTranscript, int64(7)).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return("late", nil).Once()

	done := make(chan error, 1)
	go func() { done <- w.Submit(context.Background()) }()
	<-started

	w.Restart()
	close(release)
	require.NoError(t, <-done)

	v := w.View()
	assert.Equal(t, StateBrowsing, v.State)
	assert.Nil(t, v.Diagnosis)
	assert.Empty(t, v.Responses)
}

func TestStaleQuestionnaireIsDiscarded(t *testing.T) {
	w, gw, _ := newWizard(t)
	started := make(chan struct{})
	release := make(chan struct{})
	gw.On("GetQuestionnaire", mock.Anything, int64(7)).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(twoQuestions(), nil).Once()
	gw.On("GetQuestionnaire", mock.Anything, int64(8)).Return(model.Questionnaire{
		Questions: []model.Question{{Text: "Aloe?", Answers: []model.Answer{{Text: "ok"}}}},
	}, nil).Once()

	done := make(chan error, 1)
	go func() { done <- w.SelectPlant(context.Background(), fern) }()
	<-started
	assert.Equal(t, StateLoadingQuestionnaire, w.State())

	require.NoError(t, w.Back())
	require.NoError(t, w.SelectPlant(context.Background(), aloe))
	close(release)
	require.NoError(t, <-done)

	v := w.View()
	assert.Equal(t, StateAnswering, v.State)
	require.NotNil(t, v.SelectedPlant)
	assert.Equal(t, "Aloe Vera #1", v.SelectedPlant.Name)
	require.NotNil(t, v.Current)
	assert.Equal(t, "Aloe?", v.Current.Text)
}

func TestBackAndDiscard(t *testing.T) {
	w, gw, _ := newWizard(t)
	gw.On("GetQuestionnaire", mock.Anything, int64(7)).Return(twoQuestions(), nil)
	ctx := context.Background()

	require.NoError(t, w.SelectPlant(ctx, fern))
	require.NoError(t, w.Back())
	assert.Equal(t, StateBrowsing, w.State(), "no answers: back leaves immediately")

	require.NoError(t, w.SelectPlant(ctx, fern))
	require.NoError(t, w.ChooseAnswer(ctx, "Yes"))
	require.NoError(t, w.Back())
	v := w.View()
	assert.True(t, v.DiscardPending)
	assert.Equal(t, StateAnswering, v.State)

	w.CancelDiscard()
	v = w.View()
	assert.False(t, v.DiscardPending)
	assert.Len(t, v.Responses, 1)

	require.NoError(t, w.Back())
	require.NoError(t, w.ConfirmDiscard())
	assert.Equal(t, StateBrowsing, w.State())
	assert.Empty(t, w.View().Responses)
}

func TestBackFromReviewLeavesWithoutPrompt(t *testing.T) {
	w, _, _ := answered(t)
	require.NoError(t, w.Back())
	v := w.View()
	assert.Equal(t, StateBrowsing, v.State)
	assert.False(t, v.DiscardPending)
}

func TestRestartYieldsFreshSession(t *testing.T) {
	w, gw, _ := answered(t)
	gw.On("GenerateDiagnosis", mock.Anything, fernTranscript, int64(7)).Return("ok", nil).Once()
	require.NoError(t, w.Submit(context.Background()))

	fresh, _, _ := newWizard(t)
	w.Restart()
	assert.Equal(t, fresh.Snapshot(), w.Snapshot())
	assert.Equal(t, StateBrowsing, w.State())
}

func TestExport(t *testing.T) {
	w, gw, r := answered(t)
	gw.On("GenerateDiagnosis", mock.Anything, fernTranscript, int64(7)).Return("**ok**", nil).Once()
	require.NoError(t, w.Submit(context.Background()))

	want := &export.Artifact{Filename: "Fern_Health_Report_2026-10-19.pdf", MIMEType: export.MIMEType, Pages: 1, Data: []byte("%PDF-")}
	r.On("Render", mock.Anything, export.Report{
		PlantName:   "Fern",
		GeneratedAt: fixedNow,
		Responses:   w.View().Responses,
		Diagnosis:   "**ok**",
	}).Return(want, nil).Once()

	art, err := w.Export(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, art)
	assert.Equal(t, StateResult, w.State())
}

func TestExportFailureLeavesResult(t *testing.T) {
	w, gw, r := answered(t)
	gw.On("GenerateDiagnosis", mock.Anything, fernTranscript, int64(7)).Return("ok", nil).Once()
	require.NoError(t, w.Submit(context.Background()))
	before := w.Snapshot()

	r.On("Render", mock.Anything, mock.Anything).Return(nil, errors.New("raster")).Once()
	_, err := w.Export(context.Background())
	var werr *Error
	require.True(t, errors.As(err, &werr))
	assert.Equal(t, KindRenderFailure, werr.Kind)

	v := w.View()
	assert.Equal(t, StateResult, v.State)
	assert.Equal(t, msgExport, v.Error)
	assert.False(t, v.Exporting)
	assert.Equal(t, before, w.Snapshot())

	r.On("Render", mock.Anything, mock.Anything).Return(&export.Artifact{}, nil).Once()
	_, err = w.Export(context.Background())
	require.NoError(t, err)
	assert.Empty(t, w.View().Error)
}

func TestExportRejectsConcurrentExport(t *testing.T) {
	w, gw, r := answered(t)
	gw.On("GenerateDiagnosis", mock.Anything, fernTranscript, int64(7)).Return("ok", nil).Once()
	require.NoError(t, w.Submit(context.Background()))

	started := make(chan struct{})
	release := make(chan struct{})
	r.On("Render", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(&export.Artifact{}, nil).Once()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := w.Export(context.Background())
		assert.NoError(t, err)
	}()
	<-started
	assert.True(t, w.View().Exporting)
	_, err := w.Export(context.Background())
	assert.ErrorIs(t, err, ErrExportInProgress)

	close(release)
	wg.Wait()
	assert.False(t, w.View().Exporting)
}

func TestTransitionDelay(t *testing.T) {
	gw := new(MockGateway)
	gw.On("GetQuestionnaire", mock.Anything, int64(7)).Return(twoQuestions(), nil).Once()
	w := New(gw, nil, WithTransitionDelay(20*time.Millisecond))
	require.NoError(t, w.SelectPlant(context.Background(), fern))

	done := make(chan error, 1)
	go func() { done <- w.ChooseAnswer(context.Background(), "Yes") }()

	assert.Eventually(t, func() bool {
		return len(w.View().Responses) == 1
	}, time.Second, time.Millisecond)
	require.NoError(t, <-done)
	assert.Equal(t, 1, w.View().Pointer)
}

func TestTransitionPendingRejectsSecondAnswer(t *testing.T) {
	gw := new(MockGateway)
	gw.On("GetQuestionnaire", mock.Anything, int64(7)).Return(twoQuestions(), nil).Once()
	w := New(gw, nil, WithTransitionDelay(200*time.Millisecond))
	require.NoError(t, w.SelectPlant(context.Background(), fern))

	done := make(chan error, 1)
	go func() { done <- w.ChooseAnswer(context.Background(), "Yes") }()
	require.Eventually(t, func() bool {
		return len(w.View().Responses) == 1
	}, time.Second, time.Millisecond)

	assert.ErrorIs(t, w.ChooseAnswer(context.Background(), "No"), ErrTransitionPending)
	require.NoError(t, <-done)
}

func TestObserverSeesEveryIntent(t *testing.T) {
	gw := new(MockGateway)
	gw.On("GetQuestionnaire", mock.Anything, int64(7)).Return(twoQuestions(), nil).Once()
	var mu sync.Mutex
	var states []State
	w := New(gw, nil, WithObserver(func(v View) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, v.State)
	}))

	require.NoError(t, w.SelectPlant(context.Background(), fern))
	require.NoError(t, w.ChooseAnswer(context.Background(), "Yes"))
	w.Restart()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{StateAnswering, StateAnswering, StateBrowsing}, states)
}

func TestRestore(t *testing.T) {
	w, _, _ := answered(t)
	snap := w.Snapshot()

	other, _, _ := newWizard(t)
	require.NoError(t, other.Restore(snap))
	assert.Equal(t, StateReviewing, other.State())
	assert.Equal(t, w.View().Responses, other.View().Responses)
	require.NotNil(t, other.View().SelectedPlant)

	assert.ErrorIs(t, w.Restore(snap), ErrInvalidTransition)
}

func TestBuildTranscript(t *testing.T) {
	got := BuildTranscript("Fern", []model.Response{
		{QuestionIndex: 0, QuestionText: "Q1", AnswerText: "Yes"},
		{QuestionIndex: 1, QuestionText: "Q2", AnswerText: "Sunny"},
	})
	assert.Equal(t, fernTranscript, got)

	assert.Equal(t, "Plant: Fern", BuildTranscript("Fern", nil))
}
