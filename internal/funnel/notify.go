package funnel

import (
	"context"
	"fmt"
	"html"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/habitmastery/blueprint-api/internal/model"
	"github.com/habitmastery/blueprint-api/pkg/crm"
	"github.com/habitmastery/blueprint-api/pkg/mailer"
)

// submittedTag marks a contact as having received a generated report.
const submittedTag = "Submitted_AI_Report"

// Notifier handles post-response side effects: the report-ready email and
// the best-effort CRM tag write-back. Failures are logged and swallowed;
// they never affect the HTTP result.
type Notifier struct {
	mail    mailer.Client
	crm     crm.Client
	timeout time.Duration
}

// NewNotifier creates a notifier. timeout bounds the whole dispatch.
func NewNotifier(mail mailer.Client, crmClient crm.Client, timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Notifier{mail: mail, crm: crmClient, timeout: timeout}
}

// Dispatch sends the notification email and writes segmentation tags back
// to the CRM, in parallel. Safe to call from a detached goroutine.
func (n *Notifier) Dispatch(ctx context.Context, identity *model.IdentityRecord, rec *model.ReportRecord, reportURL string) {
	log := zap.L().With(
		zap.String("contact_id", identity.ContactID),
		zap.String("report_id", rec.ReportID),
	)

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if n.mail == nil {
			return nil
		}
		err := n.mail.Send(gCtx, mailer.Message{
			To:      identity.CanonicalEmail,
			ToName:  identity.FirstName,
			Subject: "Your Personalized AI Habit Blueprint is Ready!",
			HTML:    notificationHTML(identity.FirstName, reportURL),
		})
		if err != nil {
			log.Warn("notify: email delivery failed", zap.Error(err))
		} else {
			log.Info("notify: email sent")
		}
		return nil
	})

	g.Go(func() error {
		if n.crm == nil {
			return nil
		}
		tags := append(append([]string{}, rec.Tags...), submittedTag)
		if err := n.crm.AddTags(gCtx, identity.ContactID, tags); err != nil {
			log.Warn("notify: tag write-back failed", zap.Error(err))
		}
		return nil
	})

	// Both tasks always return nil; failures are already logged.
	_ = g.Wait()
}

// notificationHTML renders the report-ready email body.
func notificationHTML(firstName, reportURL string) string {
	greeting := "Congratulations!"
	if firstName != "" {
		greeting = fmt.Sprintf("Congratulations, %s!", html.EscapeString(firstName))
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: 'Inter', sans-serif; line-height: 1.6; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h1>Your AI Habit Blueprint is Ready!</h1>
    <h2>%s</h2>
    <p>Your <strong>Personalized AI Habit Blueprint</strong> has been completed and is ready for review.</p>
    <p><strong>What's inside your blueprint:</strong></p>
    <ul>
      <li>Your unique Habit Archetype identification</li>
      <li>Custom 30-Day Implementation Roadmap</li>
      <li>Strategic template recommendations</li>
      <li>Tracking systems and success metrics</li>
    </ul>
    <p style="text-align: center;">
      <a href="%s" style="background: #10B981; color: white; padding: 15px 30px; text-decoration: none; border-radius: 5px;">View Your Blueprint</a>
    </p>
    <p><strong>Pro Tip:</strong> Start with the 30-day implementation roadmap.</p>
    <p>To your success,<br><strong>The Habit Mastery System Team</strong></p>
  </div>
</body>
</html>`, greeting, html.EscapeString(reportURL))
}
