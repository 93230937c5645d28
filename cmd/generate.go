package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/habitmastery/blueprint-api/internal/funnel"
	"github.com/habitmastery/blueprint-api/internal/model"
)

var (
	genContactID string
	genEmail     string
	genFormPath  string
	genForce     bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a report for a single contact",
	Long:  "Runs the full report pipeline once for a contact and prints the response envelope. Email and tag side effects are disabled.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var answers model.FormAnswers
		if genFormPath != "" {
			data, err := os.ReadFile(genFormPath)
			if err != nil {
				return eris.Wrap(err, "read form answers file")
			}
			if err := json.Unmarshal(data, &answers); err != nil {
				return eris.Wrap(err, "parse form answers file")
			}
		}

		env, err := initFunnel(ctx, false)
		if err != nil {
			return err
		}

		envelope, err := env.Orchestrator.Run(ctx, funnel.Request{
			ContactID:   genContactID,
			Email:       genEmail,
			FormAnswers: answers,
			Force:       genForce,
		})
		if err != nil {
			return eris.Wrap(err, "generate report")
		}

		zap.L().Info("report generated",
			zap.String("report_id", envelope.ReportID),
			zap.String("action", envelope.Action),
			zap.Bool("ai_analysis", envelope.Steps.AIAnalysis),
			zap.Bool("storage", envelope.Steps.Storage),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(envelope)
	},
}

func init() {
	generateCmd.Flags().StringVar(&genContactID, "contact-id", "", "CRM contact ID (required)")
	generateCmd.Flags().StringVar(&genEmail, "email", "", "contact email for identity validation (required)")
	generateCmd.Flags().StringVar(&genFormPath, "form", "", "path to a JSON file of intake form answers")
	generateCmd.Flags().BoolVar(&genForce, "force", false, "regenerate even when a fresh report exists")
	_ = generateCmd.MarkFlagRequired("contact-id")
	_ = generateCmd.MarkFlagRequired("email")
	rootCmd.AddCommand(generateCmd)
}
