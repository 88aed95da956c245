package sns

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/print-order-api/internal/config"
	"github.com/print-order-api/internal/domain"
)

// PublishAPI is the part of the SNS client the sender needs.
type PublishAPI interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Sender sends SMS messages via AWS SNS.
type Sender struct {
	client PublishAPI
}

func NewSender(ctx context.Context, cfg *config.Config) (*Sender, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.SNSRegion),
	}
	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config for SNS: %w", err)
	}

	clientOpts := []func(*sns.Options){}
	if cfg.AWSEndpointURL != "" {
		clientOpts = append(clientOpts, func(o *sns.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		})
	}
	return NewSenderWithClient(sns.NewFromConfig(awsCfg, clientOpts...)), nil
}

func NewSenderWithClient(client PublishAPI) *Sender {
	return &Sender{client: client}
}

// SendSMS publishes message to the phone number to. Failures are wrapped in
// domain.ErrNotification.
func (s *Sender) SendSMS(ctx context.Context, to, message string) error {
	_, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
	})
	if err != nil {
		return fmt.Errorf("sns publish: %v: %w", err, domain.ErrNotification)
	}
	return nil
}
