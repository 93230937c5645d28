package funnel

import (
	"time"

	"github.com/habitmastery/blueprint-api/internal/model"
	"github.com/habitmastery/blueprint-api/internal/storage"
)

// DefaultFreshnessWindow is the interval within which an existing report is
// reused instead of regenerated.
const DefaultFreshnessWindow = 7 * 24 * time.Hour

// DecideFreshness determines whether a previously generated report can be
// reused. meta is nil when no prior report exists. force always triggers
// regeneration. Pure function of its inputs.
func DecideFreshness(meta *storage.Meta, now time.Time, window time.Duration, force bool) model.CacheDecision {
	if meta == nil || force {
		return model.CacheDecision{ReuseExisting: false}
	}
	if window <= 0 {
		window = DefaultFreshnessWindow
	}
	if now.Sub(meta.GeneratedAt) < window {
		return model.CacheDecision{ReuseExisting: true, GeneratedAt: meta.GeneratedAt}
	}
	return model.CacheDecision{ReuseExisting: false, GeneratedAt: meta.GeneratedAt}
}
