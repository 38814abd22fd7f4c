// Package preflight checks compiled alert resources against the deployed account.
package preflight

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("github.com/ab0utbla-k/cloudwatch-alerts/internal/preflight")

// CloudWatchAPI defines the CloudWatch operations required for the alarm audit.
type CloudWatchAPI interface {
	DescribeAlarms(
		ctx context.Context,
		input *cloudwatch.DescribeAlarmsInput,
		optFns ...func(*cloudwatch.Options)) (*cloudwatch.DescribeAlarmsOutput, error)
}

// Auditor finds deployed alarms that a compile pass no longer produces.
type Auditor struct {
	cw     CloudWatchAPI
	logger *slog.Logger
}

// NewAuditor creates a new Auditor instance.
func NewAuditor(cw CloudWatchAPI, logger *slog.Logger) *Auditor {
	return &Auditor{
		cw:     cw,
		logger: logger,
	}
}

// Orphans lists, sorted, the metric and composite alarms whose names start
// with one of prefixes and for which compiled reports false.
func (a *Auditor) Orphans(ctx context.Context, prefixes []string, compiled func(alarmName string) bool) ([]string, error) {
	ctx, span := tracer.Start(ctx, "preflight.orphans")
	defer span.End()
	span.SetAttributes(attribute.StringSlice("alarm.prefixes", prefixes))

	seen := make(map[string]struct{})
	var orphans []string

	for _, prefix := range prefixes {
		names, err := a.deployed(ctx, prefix)
		if err != nil {
			return nil, fmt.Errorf("cannot list alarms with prefix %q: %w", prefix, err)
		}

		for _, name := range names {
			if _, ok := seen[name]; ok || compiled(name) {
				continue
			}
			seen[name] = struct{}{}
			orphans = append(orphans, name)
		}
	}

	slices.Sort(orphans)
	span.SetAttributes(attribute.Int("alarm.orphans", len(orphans)))

	if len(orphans) > 0 {
		a.logger.WarnContext(
			ctx,
			"deployed alarms no longer compiled",
			slog.Any("alarmNames", orphans),
		)
	}

	return orphans, nil
}

func (a *Auditor) deployed(ctx context.Context, prefix string) ([]string, error) {
	paginator := cloudwatch.NewDescribeAlarmsPaginator(a.cw, &cloudwatch.DescribeAlarmsInput{
		AlarmNamePrefix: aws.String(prefix),
		AlarmTypes:      []types.AlarmType{types.AlarmTypeMetricAlarm, types.AlarmTypeCompositeAlarm},
	})

	var names []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("cannot describe alarms on next page: %w", err)
		}

		for _, alarm := range page.MetricAlarms {
			names = append(names, aws.ToString(alarm.AlarmName))
		}
		for _, alarm := range page.CompositeAlarms {
			names = append(names, aws.ToString(alarm.AlarmName))
		}
	}

	return names, nil
}
