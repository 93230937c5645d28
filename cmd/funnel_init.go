package main

import (
	"context"
	"os"
	"time"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/habitmastery/blueprint-api/internal/funnel"
	"github.com/habitmastery/blueprint-api/internal/storage"
	"github.com/habitmastery/blueprint-api/pkg/ai"
	"github.com/habitmastery/blueprint-api/pkg/crm"
	"github.com/habitmastery/blueprint-api/pkg/mailer"
)

// funnelEnv holds the initialized clients and the orchestrator used by the
// serve and generate commands.
type funnelEnv struct {
	Orchestrator *funnel.Orchestrator
	Gateway      *storage.Gateway
}

// initFunnel sets up the CRM, AI, storage and mail clients and builds the
// orchestrator. withNotifier disables the email/tag side effects for the
// one-shot generate command.
func initFunnel(ctx context.Context, withNotifier bool) (*funnelEnv, error) {
	for _, concern := range []string{"crm", "ai", "storage"} {
		if err := cfg.Validate(concern); err != nil {
			return nil, err
		}
	}

	crmClient, err := initSalesforce()
	if err != nil {
		return nil, err
	}

	aiClient := ai.NewClient(cfg.AI.Key)

	store, err := storage.NewGCSStore(ctx, cfg.Storage.Bucket)
	if err != nil {
		return nil, eris.Wrap(err, "init object store")
	}
	gateway := storage.NewGateway(store, storage.GatewayConfig{
		PublicBaseURL:   cfg.Storage.PublicBaseURL,
		FallbackBaseURL: cfg.Storage.FallbackBaseURL,
		Timeout:         time.Duration(cfg.Storage.TimeoutSecs) * time.Second,
	})

	var notifier *funnel.Notifier
	if withNotifier {
		if cfg.Mail.Key == "" {
			zap.L().Warn("BLUEPRINT_MAIL_KEY not set, report-ready email disabled")
		} else {
			mailClient := mailer.NewClient(mailer.Config{
				Key:       cfg.Mail.Key,
				BaseURL:   cfg.Mail.BaseURL,
				FromEmail: cfg.Mail.FromEmail,
				FromName:  cfg.Mail.FromName,
				Timeout:   time.Duration(cfg.Mail.TimeoutSecs) * time.Second,
			})
			notifier = funnel.NewNotifier(mailClient, crmClient, 0)
		}
	}

	orch := funnel.NewOrchestrator(
		funnel.NewValidator(crmClient, cfg.Identity.FoldDots),
		funnel.NewGenerator(aiClient, cfg.AI),
		gateway,
		notifier,
		time.Duration(cfg.Report.FreshnessDays)*24*time.Hour,
	)

	return &funnelEnv{Orchestrator: orch, Gateway: gateway}, nil
}

func initSalesforce() (crm.Client, error) {
	pemData, err := os.ReadFile(cfg.CRM.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}

	sf, err := salesforce.Init(salesforce.Creds{
		Domain:         cfg.CRM.LoginURL,
		Username:       cfg.CRM.Username,
		ConsumerKey:    cfg.CRM.ClientID,
		ConsumerRSAPem: string(pemData),
	})
	if err != nil {
		return nil, eris.Wrap(err, "init salesforce")
	}

	return crm.NewClient(sf, crm.WithRateLimit(cfg.CRM.RateLimitRPS)), nil
}
