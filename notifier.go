package main

import (
	"context"
	"fmt"

	"vtcbackup/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

//Notifier delivers the one alert sent when an upload fails
type Notifier interface {
	Publish(ctx context.Context, alert domain.Alert) error
}

//snsAPI is the part of the SNS client the notifier uses. *sns.Client satisfies it
type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

var _ snsAPI = (*sns.Client)(nil)

//SNSNotifier publishes alerts to a fixed SNS topic
type SNSNotifier struct {
	client   snsAPI
	topicArn string
}

func NewSNSNotifier(cfg aws.Config, topicArn string) *SNSNotifier {
	return &SNSNotifier{
		client:   sns.NewFromConfig(cfg),
		topicArn: topicArn,
	}
}

//Publish makes exactly one attempt. A failure comes back as a *domain.NotificationError
func (n *SNSNotifier) Publish(ctx context.Context, alert domain.Alert) error {
	_, err := n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicArn),
		Subject:  aws.String(alert.Subject),
		Message:  aws.String(alert.Message),
	})
	if err != nil {
		return &domain.NotificationError{Channel: n.topicArn, Err: err}
	}
	return nil
}

//builds the operator alert for a failed upload
func buildAlert(appConfig domain.Config, bf *domain.BackupFile, uploadErr error) domain.Alert {
	body := appConfig.AlertMessage()
	if bf != nil {
		body += fmt.Sprintf("\n\nFile: %s (%d bytes)", bf.Name, bf.Size)
	}
	body += fmt.Sprintf("\nBucket: %s", appConfig.Bucket())
	if phase := domain.FailedPhase(uploadErr); phase != "" {
		body += fmt.Sprintf("\nFailed phase: %s", phase)
	}
	body += fmt.Sprintf("\nError: %v\nRun: %s", uploadErr, appConfig.RunID())

	return domain.Alert{
		Subject: appConfig.AlertSubject(),
		Message: body,
	}
}
