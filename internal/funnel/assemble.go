package funnel

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"html"
	"strings"
	"time"

	"github.com/habitmastery/blueprint-api/internal/model"
)

// ReportID derives the stable report identifier for a contact. Same
// contact, same id: persistence overwrites instead of accumulating
// artifacts, and the CRM id itself never appears in public object paths.
func ReportID(contactID string) string {
	sum := sha256.Sum256([]byte(contactID))
	return hex.EncodeToString(sum[:])[:32]
}

// Assemble combines validated identity, answers, tags and generated content
// into one immutable report record with a renderable HTML fragment and an
// integrity hash over the canonical serialized form.
func Assemble(identity *model.IdentityRecord, answers model.FormAnswers, tags []string, content model.ReportContent, now time.Time) *model.ReportRecord {
	rec := &model.ReportRecord{
		ReportID:        ReportID(identity.ContactID),
		ContactID:       identity.ContactID,
		Email:           identity.CanonicalEmail,
		FormAnswers:     answers,
		Content:         content,
		Tags:            tags,
		PurchaseLabels:  identity.PurchaseLabels,
		Recommendations: deriveRecommendations(answers, tags, identity.PurchaseLabels),
		GeneratedAt:     now.UTC(),
		RenderableHTML:  RenderHTML(content.Text),
	}
	rec.IntegrityHash = integrityHash(rec)
	return rec
}

// integrityHash is the hex sha256 of the record's canonical JSON with the
// hash and timestamp fields zeroed, for later verification that stored
// bytes were not altered. Excluding the timestamp keeps regeneration from
// identical inputs hash-stable.
func integrityHash(rec *model.ReportRecord) string {
	clone := *rec
	clone.IntegrityHash = ""
	clone.GeneratedAt = time.Time{}
	data, err := json.Marshal(&clone)
	if err != nil {
		// Marshal of this struct cannot fail; guard anyway.
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// VerifyIntegrity recomputes the record's hash and reports whether it
// matches the stored one.
func VerifyIntegrity(rec *model.ReportRecord) bool {
	return rec.IntegrityHash != "" && rec.IntegrityHash == integrityHash(rec)
}

// RenderHTML converts the report's lightweight markup into an HTML
// fragment: heading level by marker count, list items wrapped individually,
// bold spans wrapped, everything else a paragraph. Input is escaped first;
// the transform is total over arbitrary text and never fails.
func RenderHTML(text string) string {
	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			continue
		case strings.HasPrefix(trimmed, "### "):
			b.WriteString("<h3>" + renderInline(trimmed[4:]) + "</h3>\n")
		case strings.HasPrefix(trimmed, "## "):
			b.WriteString("<h2>" + renderInline(trimmed[3:]) + "</h2>\n")
		case strings.HasPrefix(trimmed, "# "):
			b.WriteString("<h1>" + renderInline(trimmed[2:]) + "</h1>\n")
		case strings.HasPrefix(trimmed, "- "):
			b.WriteString("<li>" + renderInline(trimmed[2:]) + "</li>\n")
		default:
			b.WriteString("<p>" + renderInline(trimmed) + "</p>\n")
		}
	}
	return b.String()
}

// renderInline escapes a line and wraps **bold** spans. An unpaired marker
// is left as literal text.
func renderInline(line string) string {
	parts := strings.Split(line, "**")
	if len(parts) < 3 {
		return html.EscapeString(line)
	}

	// An even part count means the final marker is unpaired.
	unpaired := len(parts)%2 == 0

	var b strings.Builder
	for i, part := range parts {
		switch {
		case unpaired && i == len(parts)-1:
			b.WriteString("**" + html.EscapeString(part))
		case i%2 == 1:
			b.WriteString("<strong>" + html.EscapeString(part) + "</strong>")
		default:
			b.WriteString(html.EscapeString(part))
		}
	}
	return b.String()
}

// deriveRecommendations flags products worth suggesting, suppressing
// anything already owned.
func deriveRecommendations(answers model.FormAnswers, tags, purchaseLabels []string) model.Recommendations {
	owns := func(label string) bool {
		for _, l := range purchaseLabels {
			if l == label {
				return true
			}
		}
		return false
	}
	hasGoalTag := false
	hasAccountabilityTag := false
	for _, t := range tags {
		if strings.HasPrefix(t, "Goal_") {
			hasGoalTag = true
		}
		if t == "Obstacle_Accountability_Lacking" {
			hasAccountabilityTag = true
		}
	}

	skill := strings.ToLower(answers.SheetsSkillLevel)
	return model.Recommendations{
		TemplateVault:  !owns("Bought_Template_Vault") && hasGoalTag,
		Accountability: !owns("Bought_Accountability_System") && hasAccountabilityTag,
		SheetsCourse: !owns("Bought_Sheets_Mastery_Course") &&
			(strings.Contains(skill, "beginner") || strings.Contains(skill, "intermediate")),
	}
}
