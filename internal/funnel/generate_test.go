package funnel

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/habitmastery/blueprint-api/internal/config"
	"github.com/habitmastery/blueprint-api/internal/model"
	"github.com/habitmastery/blueprint-api/pkg/ai"
)

var testAICfg = config.AIConfig{
	Model:       "claude-haiku-4-5-20251001",
	MaxTokens:   1024,
	TimeoutSecs: 5,
}

func TestGenerateSuccess(t *testing.T) {
	aiClient := &mockAIClient{}
	aiClient.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req ai.MessageRequest) bool {
		return req.Model == testAICfg.Model && req.MaxTokens == 1024
	})).Return(&ai.MessageResponse{
		Content: []ai.ContentBlock{{Type: "text", Text: "# Your Blueprint\n\nReal analysis."}},
	}, nil)

	g := NewGenerator(aiClient, testAICfg)
	content := g.Generate(context.Background(), model.FormAnswers{PrimaryGoal: "Fitness"}, nil, nil)

	assert.True(t, content.GenerationSucceeded)
	assert.Equal(t, "# Your Blueprint\n\nReal analysis.", content.Text)
	aiClient.AssertExpectations(t)
}

func TestGenerateFallbackOnProviderError(t *testing.T) {
	aiClient := &mockAIClient{}
	aiClient.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, eris.New("429 rate limited"))

	g := NewGenerator(aiClient, testAICfg)
	answers := model.FormAnswers{PrimaryGoal: "Finances", BiggestFrustration: "no consistency"}
	content := g.Generate(context.Background(), answers, nil, nil)

	assert.False(t, content.GenerationSucceeded)
	assert.NotEmpty(t, content.Text)
	assert.Contains(t, content.Text, "Finances")
	assert.Contains(t, content.Text, "no consistency")
}

func TestGenerateFallbackOnEmptyOutput(t *testing.T) {
	aiClient := &mockAIClient{}
	aiClient.On("CreateMessage", mock.Anything, mock.Anything).
		Return(&ai.MessageResponse{StopReason: "max_tokens"}, nil)

	g := NewGenerator(aiClient, testAICfg)
	content := g.Generate(context.Background(), model.FormAnswers{PrimaryGoal: "Health"}, nil, nil)

	assert.False(t, content.GenerationSucceeded)
	assert.NotEmpty(t, content.Text)
}

func TestFallbackContentDeterministic(t *testing.T) {
	answers := model.FormAnswers{PrimaryGoal: "Learning", BiggestFrustration: "overwhelm"}
	assert.Equal(t, FallbackContent(answers), FallbackContent(answers))

	// Total over empty input.
	empty := FallbackContent(model.FormAnswers{})
	assert.NotEmpty(t, empty)
	assert.Contains(t, empty, "None provided")
}

func TestBuildPromptSuppressesOwnedProducts(t *testing.T) {
	answers := model.FormAnswers{
		PrimaryGoal:    "Fitness",
		ThirtyDayFocus: "Daily workouts",
	}

	withNone := buildPrompt(answers, nil, nil)
	assert.Contains(t, withNone, "Include Template Vault recommendations")
	assert.Contains(t, withNone, "Include Accountability System fit")

	withOwned := buildPrompt(answers, []string{"Bought_Template_Vault", "Bought_Accountability_System"}, nil)
	assert.Contains(t, withOwned, "already owns the Template Vault")
	assert.Contains(t, withOwned, "already has the Accountability System")
	assert.NotContains(t, withOwned, "Include Template Vault recommendations")
}

func TestBuildPromptEmbedsAnswers(t *testing.T) {
	prompt := buildPrompt(model.FormAnswers{
		PrimaryGoal:        "Finances",
		BiggestFrustration: "accountability",
		ThirtyDayFocus:     "Weekly budget reviews",
		FutureVision:       "Debt free in a year",
		TrackingAreas:      []string{"spending", "savings"},
	}, nil, []string{"Goal_Financial_Clarity"})

	assert.Contains(t, prompt, "Primary Goal: Finances")
	assert.Contains(t, prompt, "Biggest Struggle: accountability")
	assert.Contains(t, prompt, `"Weekly budget reviews"`)
	assert.Contains(t, prompt, "Future Vision: Debt free in a year")
	assert.Contains(t, prompt, "spending, savings")
	assert.Contains(t, prompt, "Goal_Financial_Clarity")
}
