package model

// IdentityRecord is the validated identity of a requester, produced from
// the CRM contact. PurchaseLabels is sorted and duplicate-free.
type IdentityRecord struct {
	ContactID      string   `json:"contactId"`
	CanonicalEmail string   `json:"email"`
	FirstName      string   `json:"firstName,omitempty"`
	PurchaseLabels []string `json:"purchaseLabels"`
}
