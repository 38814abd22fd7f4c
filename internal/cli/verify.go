package cli

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"

	"github.com/ab0utbla-k/cloudwatch-alerts/internal/alerts"
	"github.com/ab0utbla-k/cloudwatch-alerts/internal/config"
	"github.com/ab0utbla-k/cloudwatch-alerts/internal/events"
	"github.com/ab0utbla-k/cloudwatch-alerts/internal/preflight"
	"github.com/ab0utbla-k/cloudwatch-alerts/internal/publish"
)

// ErrFindings is returned by a strict verify run with preflight findings.
var ErrFindings = errors.New("preflight found orphan alarms or missing topics")

func newVerifyCommand(opts *options) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Compile and check the result against the deployed account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			logger, err := opts.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			out, err := opts.compile(ctx, logger)
			if err != nil {
				return err
			}
			summary := out.summary
			cfg := config.LoadWithRegion(summary.Region)

			awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(summary.Region))
			if err != nil {
				return err
			}
			otelaws.AppendMiddlewares(&awsCfg.APIOptions)

			report := &events.CompileReport{
				Timestamp: time.Now(),
				Summary:   summary,
			}

			if cfg.Audit && !summary.Skipped {
				auditor := preflight.NewAuditor(cloudwatch.NewFromConfig(awsCfg), logger)
				if report.OrphanAlarms, err = auditor.Orphans(ctx, auditPrefixes(summary, cfg.AuditPrefixes), summary.Compiled); err != nil {
					return err
				}
			}

			verifier := preflight.NewTopicVerifier(sns.NewFromConfig(awsCfg), logger)
			if report.MissingTopics, err = verifier.Missing(ctx, summary.ExistingTopics); err != nil {
				return err
			}

			if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}

			if senders := publish.NewSenders(awsCfg, cfg); len(senders) > 0 {
				publishCtx, cancel := context.WithTimeout(ctx, cfg.PublishTimeout)
				defer cancel()

				if err := senders.Send(publishCtx, report); err != nil {
					logger.ErrorContext(ctx, "cannot publish compile report", slog.String("error", err.Error()))
				}
			}

			if strict && !report.Clean() {
				return ErrFindings
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "fail when preflight has findings")

	return cmd
}

func auditPrefixes(summary *alerts.Summary, extra []string) []string {
	prefixes := []string{summary.StackName}
	for _, prefix := range append([]string{summary.AlarmStackName()}, extra...) {
		if !slices.Contains(prefixes, prefix) {
			prefixes = append(prefixes, prefix)
		}
	}
	return prefixes
}
