// Package model defines the data types shared across the report pipeline.
package model

import "time"

// FormAnswers is the typed view of a submitted intake form. Fields the
// client omitted are zero values; Extra preserves unrecognized keys so the
// persisted artifact round-trips the full submission.
type FormAnswers struct {
	PrimaryGoal         string         `json:"primaryGoal,omitempty"`
	BiggestFrustration  string         `json:"biggestFrustration,omitempty"`
	TrackingAreas       []string       `json:"trackingAreas,omitempty"`
	AccountabilityStyle string         `json:"accountabilityStyle,omitempty"`
	ThirtyDayFocus      string         `json:"thirtyDayFocus,omitempty"`
	FutureVision        string         `json:"futureVision,omitempty"`
	SheetsSkillLevel    string         `json:"sheetsSkillLevel,omitempty"`
	Extra               map[string]any `json:"extra,omitempty"`
}

// ReportContent is the generated narrative. Text is never empty: when
// generation fails it holds the deterministic fallback template and
// GenerationSucceeded is false.
type ReportContent struct {
	Text                string `json:"text"`
	GenerationSucceeded bool   `json:"generationSucceeded"`
}

// Recommendations flags products worth suggesting, suppressing anything
// the contact already owns.
type Recommendations struct {
	TemplateVault  bool `json:"templateVault"`
	Accountability bool `json:"accountability"`
	SheetsCourse   bool `json:"sheetsCourse"`
}

// ReportRecord is the persisted report artifact. It is written once per
// generation cycle and read-only afterward except for full regeneration.
type ReportRecord struct {
	ReportID        string          `json:"reportId"`
	ContactID       string          `json:"contactId"`
	Email           string          `json:"email"`
	FormAnswers     FormAnswers     `json:"formData"`
	Content         ReportContent   `json:"content"`
	Tags            []string        `json:"generatedTags"`
	PurchaseLabels  []string        `json:"purchaseTags"`
	Recommendations Recommendations `json:"recommendations"`
	GeneratedAt     time.Time       `json:"generatedAt"`
	IntegrityHash   string          `json:"integrityHash,omitempty"`
	RenderableHTML  string          `json:"htmlContent"`
}

// CacheDecision is the freshness gate outcome for one request.
type CacheDecision struct {
	ReuseExisting bool
	GeneratedAt   time.Time
}

// Envelope response actions.
const (
	ActionAnalysisComplete   = "analysis_complete"
	ActionRedirectToExisting = "redirect_to_existing"
)

// Steps reports per-stage success so callers can observe partial
// degradation without the request failing outright.
type Steps struct {
	TagGeneration bool `json:"tagGeneration"`
	AIAnalysis    bool `json:"aiAnalysis"`
	Storage       bool `json:"storage"`
}

// Envelope is the response returned for a successful pipeline run.
type Envelope struct {
	Success   bool      `json:"success"`
	Action    string    `json:"action"`
	ReportID  string    `json:"reportId"`
	ReportURL string    `json:"reportUrl"`
	Steps     Steps     `json:"steps"`
	Timestamp time.Time `json:"timestamp"`
}
