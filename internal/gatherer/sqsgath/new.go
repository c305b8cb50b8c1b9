package sqsgath

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type sender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// New creates a gatherer that sends run events to an SQS queue.
func New(ctx context.Context, region string, runUuid string, queueUrl string) (*SqsGatherer, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return newGatherer(sqs.NewFromConfig(cfg), runUuid, queueUrl), nil
}

func newGatherer(c sender, runUuid string, queueUrl string) *SqsGatherer {
	return &SqsGatherer{
		client:   c,
		queueUrl: queueUrl,
		runUuid:  runUuid,
		logger:   slog.Default(),
	}
}
