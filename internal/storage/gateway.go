package storage

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/habitmastery/blueprint-api/internal/model"
	"github.com/habitmastery/blueprint-api/internal/resilience"
)

// metaGeneratedAt is the object metadata key carrying the generation time,
// so freshness checks never download report bodies.
const metaGeneratedAt = "generated_at"

// Outcome is the result of a report write. A failed write is not an error:
// the pipeline degrades and keeps the response URL usable.
type Outcome struct {
	OK  bool
	URL string
}

// Meta is the freshness-relevant metadata of a stored report.
type Meta struct {
	GeneratedAt time.Time
}

// Gateway is the sole writer of durable report artifacts. Writes are
// idempotent: the same report id always maps to the same key, and a write
// fully replaces the prior object.
type Gateway struct {
	store           ObjectStore
	publicBaseURL   string
	fallbackBaseURL string
	timeout         time.Duration
	retry           resilience.RetryConfig
}

// GatewayConfig configures a Gateway.
type GatewayConfig struct {
	// PublicBaseURL is the CDN/public domain reports are served from.
	PublicBaseURL string
	// FallbackBaseURL is the API's own base URL, used to synthesize a
	// report URL when the durable write failed.
	FallbackBaseURL string
	// Timeout bounds each write attempt. Default 10s.
	Timeout time.Duration
}

// NewGateway creates a Gateway over the given ObjectStore. The returned
// gateway is immutable and safe for concurrent use.
func NewGateway(store ObjectStore, cfg GatewayConfig) *Gateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("storage", "put_report")
	return &Gateway{
		store:           store,
		publicBaseURL:   strings.TrimRight(cfg.PublicBaseURL, "/"),
		fallbackBaseURL: strings.TrimRight(cfg.FallbackBaseURL, "/"),
		timeout:         cfg.Timeout,
		retry:           retry,
	}
}

// ReportKey returns the stable object key for a report id.
func ReportKey(reportID string) string {
	return "reports/" + reportID + "/report.json"
}

// ReportURL returns the public URL a stored report is served from.
func (g *Gateway) ReportURL(reportID string) string {
	return g.publicBaseURL + "/" + ReportKey(reportID)
}

// FallbackURL returns the API-served report URL used when the durable
// write failed.
func (g *Gateway) FallbackURL(reportID string) string {
	return g.fallbackBaseURL + "/api/reports/" + reportID
}

// PutReport persists the record at its deterministic key. Failures are
// absorbed: the returned Outcome carries OK=false and a fallback URL, and
// the caller's request still succeeds.
func (g *Gateway) PutReport(ctx context.Context, rec *model.ReportRecord) Outcome {
	log := zap.L().With(zap.String("report_id", rec.ReportID))

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		log.Error("storage: marshal report", zap.Error(err))
		return Outcome{OK: false, URL: g.FallbackURL(rec.ReportID)}
	}

	key := ReportKey(rec.ReportID)
	metadata := map[string]string{
		metaGeneratedAt: rec.GeneratedAt.UTC().Format(time.RFC3339),
	}

	err = resilience.Do(ctx, g.retry, func(ctx context.Context) error {
		putCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()
		return g.store.Put(putCtx, key, data, "application/json", metadata)
	})
	if err != nil {
		log.Error("storage: put report failed, degrading", zap.Error(err))
		return Outcome{OK: false, URL: g.FallbackURL(rec.ReportID)}
	}

	log.Info("storage: report persisted", zap.String("key", key), zap.Int("bytes", len(data)))
	return Outcome{OK: true, URL: g.ReportURL(rec.ReportID)}
}

// HeadReport returns the generation time of the stored report, or
// ErrObjectNotFound. It never fetches the report body.
func (g *Gateway) HeadReport(ctx context.Context, reportID string) (*Meta, error) {
	info, err := g.store.Head(ctx, ReportKey(reportID))
	if err != nil {
		return nil, err
	}

	if raw, ok := info.Metadata[metaGeneratedAt]; ok {
		if ts, parseErr := time.Parse(time.RFC3339, raw); parseErr == nil {
			return &Meta{GeneratedAt: ts}, nil
		}
	}
	// Objects written before metadata stamping fall back to the store's
	// own update time.
	return &Meta{GeneratedAt: info.Updated}, nil
}

// GetReport fetches and decodes a stored report record.
func (g *Gateway) GetReport(ctx context.Context, reportID string) (*model.ReportRecord, error) {
	data, err := g.store.Get(ctx, ReportKey(reportID))
	if err != nil {
		return nil, err
	}

	var rec model.ReportRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, eris.Wrap(err, "storage: decode report "+reportID)
	}
	return &rec, nil
}
