package funnel

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/habitmastery/blueprint-api/internal/config"
	"github.com/habitmastery/blueprint-api/internal/model"
	"github.com/habitmastery/blueprint-api/pkg/ai"
)

// Generator produces report narrative via the AI provider, falling back to
// a deterministic template on any failure. Generation degrades quality,
// never availability: the returned content is always non-empty.
type Generator struct {
	client ai.Client
	cfg    config.AIConfig
}

// NewGenerator creates a content generator.
func NewGenerator(client ai.Client, cfg config.AIConfig) *Generator {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2048
	}
	if cfg.TimeoutSecs <= 0 {
		cfg.TimeoutSecs = 30
	}
	return &Generator{client: client, cfg: cfg}
}

// Generate builds the analysis prompt and requests content from the
// provider under a bounded timeout. Provider error, timeout or empty output
// all yield the fallback template with GenerationSucceeded=false.
func (g *Generator) Generate(ctx context.Context, answers model.FormAnswers, purchaseLabels, tags []string) model.ReportContent {
	prompt := buildPrompt(answers, purchaseLabels, tags)

	callCtx, cancel := context.WithTimeout(ctx, time.Duration(g.cfg.TimeoutSecs)*time.Second)
	defer cancel()

	temp := g.cfg.Temperature
	resp, err := g.client.CreateMessage(callCtx, ai.MessageRequest{
		Model:       g.cfg.Model,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: &temp,
		Messages: []ai.Message{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		zap.L().Warn("generate: provider failed, using fallback", zap.Error(err))
		return model.ReportContent{Text: FallbackContent(answers), GenerationSucceeded: false}
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		zap.L().Warn("generate: provider returned empty output, using fallback",
			zap.String("stop_reason", resp.StopReason),
		)
		return model.ReportContent{Text: FallbackContent(answers), GenerationSucceeded: false}
	}

	resp.Usage.LogUsage(g.cfg.Model, "report_generation")
	return model.ReportContent{Text: text, GenerationSucceeded: true}
}

// buildPrompt embeds the goal, obstacle, 30-day focus and future-vision
// answers plus already-owned products, so the model does not recommend
// products the contact has bought.
func buildPrompt(answers model.FormAnswers, purchaseLabels, tags []string) string {
	owns := func(label string) bool {
		for _, l := range purchaseLabels {
			if l == label {
				return true
			}
		}
		return false
	}

	var b strings.Builder
	b.WriteString("You are a habit formation expert analyzing a client's profile to create their Personalized AI Habit Blueprint.\n\n")
	b.WriteString("CLIENT PROFILE:\n")
	fmt.Fprintf(&b, "Primary Goal: %s\n", orNone(answers.PrimaryGoal))
	fmt.Fprintf(&b, "Biggest Struggle: %s\n", orNone(answers.BiggestFrustration))
	fmt.Fprintf(&b, "Areas to Track: %s\n", orNone(strings.Join(answers.TrackingAreas, ", ")))
	fmt.Fprintf(&b, "Accountability Style: %s\n", orNone(answers.AccountabilityStyle))
	fmt.Fprintf(&b, "30-Day Focus: %s\n", orNone(answers.ThirtyDayFocus))
	fmt.Fprintf(&b, "Future Vision: %s\n", orNone(answers.FutureVision))
	fmt.Fprintf(&b, "Sheets Skill Level: %s\n", orNone(answers.SheetsSkillLevel))
	if len(tags) > 0 {
		fmt.Fprintf(&b, "Segmentation: %s\n", strings.Join(tags, ", "))
	}

	b.WriteString("\nCREATE A COMPREHENSIVE HABIT BLUEPRINT FOLLOWING THIS STRUCTURE:\n\n")
	b.WriteString("# PERSONALIZED AI HABIT BLUEPRINT\n\n")
	b.WriteString("## EXECUTIVE SUMMARY & HABIT ARCHETYPE\nIdentify their habit personality type and create an executive summary.\n\n")
	b.WriteString("## DEEP HABIT ANALYSIS\nSuccess triggers, failure patterns, motivation style and consistency personality.\n\n")
	fmt.Fprintf(&b, "## 30-DAY IMPLEMENTATION ROADMAP\nCreate a specific 4-week plan focused on their %q.\n\n", answers.ThirtyDayFocus)
	b.WriteString("## STRATEGIC RECOMMENDATIONS\n")
	if owns("Bought_Template_Vault") {
		b.WriteString("Client already owns the Template Vault; do not recommend it.\n")
	} else {
		b.WriteString("Include Template Vault recommendations.\n")
	}
	if owns("Bought_Accountability_System") {
		b.WriteString("Client already has the Accountability System; do not recommend it.\n")
	} else {
		b.WriteString("Include Accountability System fit.\n")
	}

	b.WriteString("\nTONE: Professional, encouraging, expert-level but accessible.\n")
	b.WriteString("STRUCTURE: Use markdown formatting with clear sections.\n")
	b.WriteString("LENGTH: Comprehensive but scannable, approximately 1500 words.\n")
	return b.String()
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "None provided"
	}
	return s
}

// FallbackContent is the deterministic report used when the provider is
// unavailable. Parameterized only by the primary goal and obstacle so
// identical inputs always produce identical output.
func FallbackContent(answers model.FormAnswers) string {
	goal := orNone(answers.PrimaryGoal)
	obstacle := orNone(answers.BiggestFrustration)

	var b strings.Builder
	b.WriteString("# Personalized Habit Blueprint\n\n")
	b.WriteString("## Quick Start Guide\n")
	fmt.Fprintf(&b, "Based on your goal to improve **%s**, here's your action plan:\n\n", goal)
	b.WriteString("### Immediate Actions (Week 1)\n")
	b.WriteString("- Start with 5-minute daily sessions\n")
	b.WriteString("- Track your progress in a simple notebook\n")
	b.WriteString("- Set clear daily targets\n\n")
	b.WriteString("### 30-Day Roadmap\n")
	b.WriteString("- Week 1: Build consistency with small wins\n")
	b.WriteString("- Week 2: Increase duration gradually\n")
	b.WriteString("- Week 3: Refine your approach\n")
	b.WriteString("- Week 4: Solidify the habit\n\n")
	b.WriteString("### Working Through Your Challenge\n")
	fmt.Fprintf(&b, "You told us your biggest struggle is **%s**. ", obstacle)
	b.WriteString("Progress beats perfection: shrink the habit until it is too small to fail, then grow it.\n\n")
	b.WriteString("### Success Tips\n")
	b.WriteString("- Focus on consistency over perfection\n")
	b.WriteString("- Celebrate small wins daily\n")
	b.WriteString("- Adjust your approach as needed\n\n")
	b.WriteString("You've got this! Start small, stay consistent.\n")
	return b.String()
}
