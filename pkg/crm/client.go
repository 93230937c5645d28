// Package crm provides JWT-authenticated REST API access to the Salesforce
// contact store.
package crm

import (
	"context"
	"fmt"
	"strings"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client defines the CRM operations used by the pipeline.
type Client interface {
	// GetContact resolves a contact by CRM id. Returns ErrContactNotFound
	// when no contact exists for the id.
	GetContact(ctx context.Context, contactID string) (*Contact, error)

	// AddTags merges the given segmentation tags into the contact's tag
	// field. One-way, best-effort: callers are expected to log and drop
	// the error.
	AddTags(ctx context.Context, contactID string, tags []string) error
}

// ErrContactNotFound is returned when a contact id resolves to no record.
var ErrContactNotFound = eris.New("crm: contact not found")

// Contact is the CRM identity record for a requester.
type Contact struct {
	ID        string
	Email     string
	FirstName string
	Tags      []string
}

// contactRow matches the SOQL projection for a contact lookup. Tags live in
// a semicolon-delimited multi-select custom field.
type contactRow struct {
	ID          string `json:"Id"`
	Email       string `json:"Email"`
	FirstName   string `json:"FirstName"`
	SegmentTags string `json:"Segment_Tags__c"`
}

// ClientOption configures the CRM client.
type ClientOption func(*sfClient)

// WithRateLimit sets a per-second rate limit for CRM API calls.
// A burst equal to the integer portion of rps is allowed.
func WithRateLimit(rps float64) ClientOption {
	return func(c *sfClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

// sfClient wraps the go-salesforce/v3 Salesforce struct.
//
// NOTE: The underlying go-salesforce/v3 library does not accept context.Context,
// so all methods discard the ctx parameter for the SF call itself. However, the
// ctx is used for rate limiter waiting, so callers can still cancel that wait.
type sfClient struct {
	sf      *salesforce.Salesforce
	limiter *rate.Limiter
}

// NewClient creates a new CRM Client wrapping the given go-salesforce instance.
func NewClient(sf *salesforce.Salesforce, opts ...ClientOption) Client {
	c := &sfClient{sf: sf}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// wait blocks until the rate limiter allows one event, or ctx is cancelled.
func (c *sfClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *sfClient) GetContact(ctx context.Context, contactID string) (*Contact, error) {
	if err := c.wait(ctx); err != nil {
		return nil, eris.Wrap(err, "crm: rate limit")
	}

	soql := fmt.Sprintf(
		"SELECT Id, Email, FirstName, Segment_Tags__c FROM Contact WHERE Id = '%s' LIMIT 1",
		escapeSOQL(contactID),
	)

	var result struct {
		Records []contactRow
	}
	if err := c.sf.Query(soql, &result); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("crm: query contact %s", contactID))
	}
	if len(result.Records) == 0 {
		return nil, ErrContactNotFound
	}

	row := result.Records[0]
	return &Contact{
		ID:        row.ID,
		Email:     row.Email,
		FirstName: row.FirstName,
		Tags:      splitTags(row.SegmentTags),
	}, nil
}

func (c *sfClient) AddTags(ctx context.Context, contactID string, tags []string) error {
	if len(tags) == 0 {
		return nil
	}

	// Read-merge-write over the tag field. Racing writers may clobber each
	// other's additions; tags are advisory segmentation data so last write
	// wins is acceptable.
	contact, err := c.GetContact(ctx, contactID)
	if err != nil {
		return err
	}

	merged := mergeTags(contact.Tags, tags)

	if err := c.wait(ctx); err != nil {
		return eris.Wrap(err, "crm: rate limit")
	}
	fields := map[string]any{
		"Id":              contactID,
		"Segment_Tags__c": strings.Join(merged, ";"),
	}
	if err := c.sf.UpdateOne("Contact", fields); err != nil {
		return eris.Wrap(err, fmt.Sprintf("crm: update contact %s tags", contactID))
	}
	return nil
}

// escapeSOQL escapes quotes and backslashes for interpolation into a SOQL
// string literal.
func escapeSOQL(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

func splitTags(field string) []string {
	if strings.TrimSpace(field) == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(field, ";") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func mergeTags(existing, added []string) []string {
	seen := make(map[string]bool, len(existing)+len(added))
	var merged []string
	for _, t := range append(append([]string{}, existing...), added...) {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		merged = append(merged, t)
	}
	return merged
}
