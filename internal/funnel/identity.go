package funnel

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/habitmastery/blueprint-api/internal/model"
	"github.com/habitmastery/blueprint-api/pkg/crm"
)

// purchaseAllowList is the fixed set of purchase labels the pipeline
// recognizes on a contact. Anything else on the contact is ignored.
var purchaseAllowList = []string{
	"Bought_Main_Tracker",
	"Bought_Template_Vault",
	"Bought_Accountability_System",
	"Bought_Sheets_Mastery_Course",
	"Bought_Community_Basic",
	"Bought_Community_Vip",
}

// Validator resolves and verifies requester identity against the CRM.
// Read-only: it never writes to the CRM.
type Validator struct {
	crm      crm.Client
	foldDots bool
}

// NewValidator creates an identity validator. foldDots additionally strips
// dots from the email local part before comparison.
func NewValidator(crmClient crm.Client, foldDots bool) *Validator {
	return &Validator{crm: crmClient, foldDots: foldDots}
}

// Validate resolves the contact and checks the submitted email against the
// stored one under alias-folding normalization. Returns ErrContactNotFound
// or ErrEmailMismatch; CRM unavailability surfaces as ErrContactNotFound
// rather than a panic or transport error.
func (v *Validator) Validate(ctx context.Context, contactID, email string) (*model.IdentityRecord, error) {
	if strings.TrimSpace(contactID) == "" || strings.TrimSpace(email) == "" {
		return nil, ErrMissingFields
	}

	contact, err := v.crm.GetContact(ctx, contactID)
	if err != nil {
		zap.L().Warn("identity: contact lookup failed",
			zap.String("contact_id", contactID),
			zap.Error(err),
		)
		return nil, ErrContactNotFound
	}
	if contact.Email == "" {
		return nil, ErrContactNotFound
	}

	canonical := NormalizeEmail(contact.Email, v.foldDots)
	if canonical != NormalizeEmail(email, v.foldDots) {
		return nil, ErrEmailMismatch
	}

	return &model.IdentityRecord{
		ContactID:      contact.ID,
		CanonicalEmail: canonical,
		FirstName:      contact.FirstName,
		PurchaseLabels: filterPurchaseLabels(contact.Tags),
	}, nil
}

// NormalizeEmail trims, case-folds and alias-folds an email address:
// a "+suffix" on the local part is always stripped, and dots in the local
// part are stripped when foldDots is set.
func NormalizeEmail(email string, foldDots bool) string {
	folded := cases.Fold().String(strings.TrimSpace(email))

	at := strings.LastIndex(folded, "@")
	if at < 0 {
		return folded
	}
	local, domain := folded[:at], folded[at+1:]

	if plus := strings.Index(local, "+"); plus >= 0 {
		local = local[:plus]
	}
	if foldDots {
		local = strings.ReplaceAll(local, ".", "")
	}
	return local + "@" + domain
}

// filterPurchaseLabels intersects the contact's raw labels (case-folded)
// with the purchase allow-list, returning canonical names sorted and
// deduplicated.
func filterPurchaseLabels(raw []string) []string {
	canonical := make(map[string]string, len(purchaseAllowList))
	for _, label := range purchaseAllowList {
		canonical[strings.ToLower(label)] = label
	}

	seen := make(map[string]bool)
	var labels []string
	for _, tag := range raw {
		label, ok := canonical[strings.ToLower(strings.TrimSpace(tag))]
		if !ok || seen[label] {
			continue
		}
		seen[label] = true
		labels = append(labels, label)
	}

	sort.Strings(labels)
	return labels
}
