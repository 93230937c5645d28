package funnel

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/habitmastery/blueprint-api/internal/model"
	"github.com/habitmastery/blueprint-api/internal/storage"
)

// Request is one report-generation request.
type Request struct {
	ContactID   string
	Email       string
	FormAnswers model.FormAnswers
	// Force skips the freshness gate and regenerates unconditionally.
	Force bool
}

// Orchestrator sequences the report pipeline: validate, freshness gate,
// tag derivation, content generation, assembly, persistence, notification.
// Only identity validation is fatal; every later stage folds its failure
// into the response envelope's step flags.
type Orchestrator struct {
	validator *Validator
	generator *Generator
	gateway   *storage.Gateway
	notifier  *Notifier
	window    time.Duration

	// now is replaceable in tests.
	now func() time.Time
}

// NewOrchestrator wires the pipeline. notifier may be nil to disable
// delivery side effects (e.g. in the one-shot CLI).
func NewOrchestrator(validator *Validator, generator *Generator, gateway *storage.Gateway, notifier *Notifier, window time.Duration) *Orchestrator {
	if window <= 0 {
		window = DefaultFreshnessWindow
	}
	return &Orchestrator{
		validator: validator,
		generator: generator,
		gateway:   gateway,
		notifier:  notifier,
		window:    window,
		now:       time.Now,
	}
}

// Run executes the pipeline for one request. The returned error is always
// one of the validation sentinels (ErrMissingFields, ErrContactNotFound,
// ErrEmailMismatch); degraded generation or storage still returns a usable
// envelope.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*model.Envelope, error) {
	runID := uuid.NewString()
	log := zap.L().With(
		zap.String("run_id", runID),
		zap.String("contact_id", req.ContactID),
	)

	if strings.TrimSpace(req.ContactID) == "" || strings.TrimSpace(req.Email) == "" {
		return nil, ErrMissingFields
	}

	// Validating: the only fatal stage.
	identity, err := o.validator.Validate(ctx, req.ContactID, req.Email)
	if err != nil {
		log.Info("orchestrator: validation failed", zap.Error(err))
		return nil, err
	}

	reportID := ReportID(identity.ContactID)
	log = log.With(zap.String("report_id", reportID))

	// CacheCheck: reuse a fresh prior report and skip the provider call.
	meta, headErr := o.gateway.HeadReport(ctx, reportID)
	if headErr != nil && !errors.Is(headErr, storage.ErrObjectNotFound) {
		// A metadata probe failure is not fatal; regenerate.
		log.Warn("orchestrator: freshness probe failed", zap.Error(headErr))
		meta = nil
	}

	now := o.now()
	if decision := DecideFreshness(meta, now, o.window, req.Force); decision.ReuseExisting {
		log.Info("orchestrator: reusing existing report",
			zap.Time("generated_at", decision.GeneratedAt),
		)
		return &model.Envelope{
			Success:   true,
			Action:    model.ActionRedirectToExisting,
			ReportID:  reportID,
			ReportURL: o.gateway.ReportURL(reportID),
			Steps:     model.Steps{TagGeneration: true, AIAnalysis: true, Storage: true},
			Timestamp: now,
		}, nil
	}

	// Generating through Persisting: degrade, never abort.
	tags := DeriveTags(req.FormAnswers)

	content := o.generator.Generate(ctx, req.FormAnswers, identity.PurchaseLabels, tags)
	if !content.GenerationSucceeded {
		log.Warn("orchestrator: content generation degraded to fallback")
	}

	rec := Assemble(identity, req.FormAnswers, tags, content, now)

	outcome := o.gateway.PutReport(ctx, rec)

	envelope := &model.Envelope{
		Success:   true,
		Action:    model.ActionAnalysisComplete,
		ReportID:  rec.ReportID,
		ReportURL: outcome.URL,
		Steps: model.Steps{
			TagGeneration: true,
			AIAnalysis:    content.GenerationSucceeded,
			Storage:       outcome.OK,
		},
		Timestamp: now,
	}

	// Notification is fire-and-forget: the response is already determined,
	// so delivery runs detached from the request context.
	if o.notifier != nil {
		go o.notifier.Dispatch(context.WithoutCancel(ctx), identity, rec, outcome.URL)
	}

	log.Info("orchestrator: analysis complete",
		zap.Bool("ai_analysis", envelope.Steps.AIAnalysis),
		zap.Bool("storage", envelope.Steps.Storage),
		zap.Int("tags", len(tags)),
	)
	return envelope, nil
}
