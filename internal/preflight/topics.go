package preflight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"go.opentelemetry.io/otel/attribute"
)

// SNSAPI defines the SNS operations required to verify topics.
type SNSAPI interface {
	GetTopicAttributes(
		ctx context.Context,
		input *sns.GetTopicAttributesInput,
		optFns ...func(*sns.Options)) (*sns.GetTopicAttributesOutput, error)
}

// TopicVerifier checks that topic ARNs referenced by alarm actions exist.
type TopicVerifier struct {
	client SNSAPI
	logger *slog.Logger
}

// NewTopicVerifier creates a new TopicVerifier instance.
func NewTopicVerifier(client SNSAPI, logger *slog.Logger) *TopicVerifier {
	return &TopicVerifier{
		client: client,
		logger: logger,
	}
}

// Missing returns, sorted and de-duplicated, the ARNs that do not resolve to
// a topic.
func (v *TopicVerifier) Missing(ctx context.Context, arns []string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "preflight.topics")
	defer span.End()
	span.SetAttributes(attribute.Int("sns.topics", len(arns)))

	unique := slices.Clone(arns)
	slices.Sort(unique)
	unique = slices.Compact(unique)

	var missing []string
	for _, arn := range unique {
		_, err := v.client.GetTopicAttributes(ctx, &sns.GetTopicAttributesInput{
			TopicArn: aws.String(arn),
		})

		var notFound *snstypes.NotFoundException
		switch {
		case errors.As(err, &notFound):
			v.logger.WarnContext(ctx, "topic not found", slog.String("topicArn", arn))
			missing = append(missing, arn)
		case err != nil:
			return nil, fmt.Errorf("cannot get attributes of topic %q: %w", arn, err)
		}
	}

	return missing, nil
}
