package publish

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/ab0utbla-k/cloudwatch-alerts/internal/config"
	"github.com/ab0utbla-k/cloudwatch-alerts/internal/events"
)

// Senders fans a report out to every configured target.
type Senders []Sender

// NewSenders returns the senders enabled by cfg, empty when none is.
func NewSenders(awsCfg aws.Config, cfg *config.Config) Senders {
	var senders Senders

	if cfg.EventBusName != "" {
		senders = append(senders, NewPublisher(eventbridge.NewFromConfig(awsCfg), cfg.EventBusName))
	}
	if cfg.NotifyTopicARN != "" {
		senders = append(senders, NewSNS(sns.NewFromConfig(awsCfg), cfg.NotifyTopicARN))
	}

	return senders
}

// Send delivers report to all senders and joins their errors.
func (s Senders) Send(ctx context.Context, report *events.CompileReport) error {
	var errs []error
	for _, sender := range s {
		if err := sender.Send(ctx, report); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
