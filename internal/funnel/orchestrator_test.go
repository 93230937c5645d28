package funnel

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/habitmastery/blueprint-api/internal/model"
	"github.com/habitmastery/blueprint-api/internal/storage"
	"github.com/habitmastery/blueprint-api/pkg/ai"
	"github.com/habitmastery/blueprint-api/pkg/crm"
)

type orchestratorFixture struct {
	crm     *mockCRMClient
	ai      *mockAIClient
	store   *storage.MemoryStore
	gateway *storage.Gateway
	orch    *Orchestrator
}

func newFixture(t *testing.T) *orchestratorFixture {
	t.Helper()

	crmClient := &mockCRMClient{}
	aiClient := &mockAIClient{}
	store := storage.NewMemoryStore()
	gateway := storage.NewGateway(store, storage.GatewayConfig{
		PublicBaseURL:   "https://reports.example.com",
		FallbackBaseURL: "https://api.example.com",
		Timeout:         time.Second,
	})

	orch := NewOrchestrator(
		NewValidator(crmClient, false),
		NewGenerator(aiClient, testAICfg),
		gateway,
		nil,
		DefaultFreshnessWindow,
	)

	return &orchestratorFixture{crm: crmClient, ai: aiClient, store: store, gateway: gateway, orch: orch}
}

func (f *orchestratorFixture) knownContact() {
	f.crm.On("GetContact", mock.Anything, "c-123").Return(&crm.Contact{
		ID:        "c-123",
		Email:     "user@example.com",
		FirstName: "Jordan",
		Tags:      []string{"bought_main_tracker"},
	}, nil)
}

func validRequest() Request {
	return Request{
		ContactID: "c-123",
		Email:     "user@example.com",
		FormAnswers: model.FormAnswers{
			PrimaryGoal:        "Fitness",
			BiggestFrustration: "no consistency",
			ThirtyDayFocus:     "Morning workouts",
			FutureVision:       "Stronger and healthier every week",
		},
	}
}

func TestRunHealthyPipeline(t *testing.T) {
	f := newFixture(t)
	f.knownContact()
	f.ai.On("CreateMessage", mock.Anything, mock.Anything).Return(&ai.MessageResponse{
		Content: []ai.ContentBlock{{Type: "text", Text: "# Blueprint\n\nAnalysis."}},
	}, nil)

	env, err := f.orch.Run(context.Background(), validRequest())
	require.NoError(t, err)

	assert.True(t, env.Success)
	assert.Equal(t, model.ActionAnalysisComplete, env.Action)
	assert.True(t, env.Steps.TagGeneration)
	assert.True(t, env.Steps.AIAnalysis)
	assert.True(t, env.Steps.Storage)
	assert.Equal(t, ReportID("c-123"), env.ReportID)
	assert.Contains(t, env.ReportURL, env.ReportID)

	// The artifact is retrievable and intact.
	rec, err := f.gateway.GetReport(context.Background(), env.ReportID)
	require.NoError(t, err)
	assert.Equal(t, "c-123", rec.ContactID)
	assert.True(t, rec.Content.GenerationSucceeded)
	assert.True(t, VerifyIntegrity(rec))
}

func TestRunProviderFailureDegrades(t *testing.T) {
	f := newFixture(t)
	f.knownContact()
	f.ai.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, eris.New("provider timeout"))

	env, err := f.orch.Run(context.Background(), validRequest())
	require.NoError(t, err)

	assert.True(t, env.Success)
	assert.Equal(t, model.ActionAnalysisComplete, env.Action)
	assert.False(t, env.Steps.AIAnalysis)
	assert.True(t, env.Steps.Storage)

	rec, err := f.gateway.GetReport(context.Background(), env.ReportID)
	require.NoError(t, err)
	assert.False(t, rec.Content.GenerationSucceeded)
	assert.NotEmpty(t, rec.Content.Text)
	assert.Contains(t, rec.Content.Text, "Fitness")
}

func TestRunReusesFreshReport(t *testing.T) {
	f := newFixture(t)
	f.knownContact()
	f.ai.On("CreateMessage", mock.Anything, mock.Anything).Return(&ai.MessageResponse{
		Content: []ai.ContentBlock{{Type: "text", Text: "first run"}},
	}, nil).Once()

	_, err := f.orch.Run(context.Background(), validRequest())
	require.NoError(t, err)

	// Two days later the stored report is still fresh.
	f.orch.now = func() time.Time { return time.Now().Add(2 * 24 * time.Hour) }

	env, err := f.orch.Run(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, model.ActionRedirectToExisting, env.Action)
	// Exactly one provider call across both runs.
	f.ai.AssertNumberOfCalls(t, "CreateMessage", 1)
}

func TestRunRegeneratesStaleReport(t *testing.T) {
	f := newFixture(t)
	f.knownContact()
	f.ai.On("CreateMessage", mock.Anything, mock.Anything).Return(&ai.MessageResponse{
		Content: []ai.ContentBlock{{Type: "text", Text: "regenerated"}},
	}, nil)

	_, err := f.orch.Run(context.Background(), validRequest())
	require.NoError(t, err)

	f.orch.now = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }

	env, err := f.orch.Run(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, model.ActionAnalysisComplete, env.Action)
	f.ai.AssertNumberOfCalls(t, "CreateMessage", 2)

	// Idempotent overwrite: still one stored object.
	assert.Equal(t, 1, f.store.Len())
}

func TestRunForceRegenerates(t *testing.T) {
	f := newFixture(t)
	f.knownContact()
	f.ai.On("CreateMessage", mock.Anything, mock.Anything).Return(&ai.MessageResponse{
		Content: []ai.ContentBlock{{Type: "text", Text: "fresh"}},
	}, nil)

	_, err := f.orch.Run(context.Background(), validRequest())
	require.NoError(t, err)

	req := validRequest()
	req.Force = true
	env, err := f.orch.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, model.ActionAnalysisComplete, env.Action)
	f.ai.AssertNumberOfCalls(t, "CreateMessage", 2)
}

func TestRunUnknownContactAborts(t *testing.T) {
	f := newFixture(t)
	f.crm.On("GetContact", mock.Anything, "c-123").Return(nil, crm.ErrContactNotFound)

	_, err := f.orch.Run(context.Background(), validRequest())
	assert.ErrorIs(t, err, ErrContactNotFound)

	// No provider call, no storage write.
	f.ai.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
	assert.Equal(t, 0, f.store.Len())
}

func TestRunEmailMismatchAborts(t *testing.T) {
	f := newFixture(t)
	f.crm.On("GetContact", mock.Anything, "c-123").Return(&crm.Contact{
		ID:    "c-123",
		Email: "other@example.com",
	}, nil)

	_, err := f.orch.Run(context.Background(), validRequest())
	assert.ErrorIs(t, err, ErrEmailMismatch)
	assert.Equal(t, 0, f.store.Len())
}

func TestRunMissingFields(t *testing.T) {
	f := newFixture(t)

	_, err := f.orch.Run(context.Background(), Request{Email: "user@example.com"})
	assert.ErrorIs(t, err, ErrMissingFields)

	_, err = f.orch.Run(context.Background(), Request{ContactID: "c-123"})
	assert.ErrorIs(t, err, ErrMissingFields)
}
