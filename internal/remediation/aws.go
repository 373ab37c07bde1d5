package remediation

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// Dispatcher sends a scripted action to an instance and returns the command id.
type Dispatcher interface {
	Dispatch(ctx context.Context, instanceID string, action Action) (string, error)
}

// Notifier publishes an operator notification.
type Notifier interface {
	Notify(ctx context.Context, subject, message string) error
}

// SSMAPI is the subset of the SSM client the dispatcher calls.
type SSMAPI interface {
	SendCommand(ctx context.Context, params *ssm.SendCommandInput, optFns ...func(*ssm.Options)) (*ssm.SendCommandOutput, error)
}

// SSMDispatcher runs actions through Systems Manager documents.
type SSMDispatcher struct {
	client SSMAPI
}

// NewSSMDispatcher constructs a dispatcher over client.
func NewSSMDispatcher(client SSMAPI) (*SSMDispatcher, error) {
	if client == nil {
		return nil, errors.New("ssm client is required")
	}
	return &SSMDispatcher{client: client}, nil
}

// Dispatch sends action.Commands to instanceID.
func (d *SSMDispatcher) Dispatch(ctx context.Context, instanceID string, action Action) (string, error) {
	out, err := d.client.SendCommand(ctx, &ssm.SendCommandInput{
		InstanceIds:  []string{instanceID},
		DocumentName: aws.String(action.Document),
		Parameters:   map[string][]string{"commands": action.Commands},
		Comment:      aws.String("selfheal " + action.ID),
	})
	if err != nil {
		return "", err
	}
	if out.Command == nil {
		return "", nil
	}
	return aws.ToString(out.Command.CommandId), nil
}

// SNSAPI is the subset of the SNS client the notifier calls.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSNotifier publishes to a single topic.
type SNSNotifier struct {
	client   SNSAPI
	topicARN string
}

// NewSNSNotifier constructs a notifier for topicARN.
func NewSNSNotifier(client SNSAPI, topicARN string) (*SNSNotifier, error) {
	if client == nil {
		return nil, errors.New("sns client is required")
	}
	if topicARN == "" {
		return nil, errors.New("sns topic arn is required")
	}
	return &SNSNotifier{client: client, topicARN: topicARN}, nil
}

// Notify publishes message with subject.
func (n *SNSNotifier) Notify(ctx context.Context, subject, message string) error {
	_, err := n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", n.topicARN, err)
	}
	return nil
}
