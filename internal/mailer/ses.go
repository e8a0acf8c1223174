package mailer

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESAPI is the subset of the SES client used here
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SES sends e-mail through AWS Simple Email Service
type SES struct {
	client   SESAPI
	from     string
	fromName string
}

// NewSES creates an SES provider. Explicit credentials are used when both
// key parts are set, otherwise the default AWS credential chain applies.
func NewSES(ctx context.Context, cfg Config) (*SES, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.AWSRegion != "" {
		opts = append(opts, config.WithRegion(cfg.AWSRegion))
	}
	if cfg.AWSAccessKeyID != "" && cfg.AWSSecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewSESWithClient(ses.NewFromConfig(awsCfg), cfg.From, cfg.FromName), nil
}

// NewSESWithClient creates an SES provider around an existing client
func NewSESWithClient(client SESAPI, from, fromName string) *SES {
	return &SES{client: client, from: from, fromName: fromName}
}

// Name returns the provider name
func (p *SES) Name() string {
	return "ses"
}

// Send sends message
func (p *SES) Send(ctx context.Context, message *Message) (*SendResult, error) {
	from, fromName := p.from, p.fromName
	if message.From != "" {
		from, fromName = message.From, message.FromName
	}
	source := from
	if fromName != "" {
		source = fmt.Sprintf("%s <%s>", fromName, from)
	}

	body := &sestypes.Body{}
	if message.BodyHTML != "" {
		body.Html = &sestypes.Content{Charset: aws.String("UTF-8"), Data: aws.String(message.BodyHTML)}
	}
	if message.Body != "" {
		body.Text = &sestypes.Content{Charset: aws.String("UTF-8"), Data: aws.String(message.Body)}
	}

	output, err := p.client.SendEmail(ctx, &ses.SendEmailInput{
		Source:      aws.String(source),
		Destination: &sestypes.Destination{ToAddresses: []string{message.To}},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Charset: aws.String("UTF-8"), Data: aws.String(message.Subject)},
			Body:    body,
		},
	})
	if err != nil {
		return &SendResult{Provider: p.Name()}, fmt.Errorf("SES send failed: %w", err)
	}
	return &SendResult{Delivered: true, MessageID: aws.ToString(output.MessageId), Provider: p.Name()}, nil
}
