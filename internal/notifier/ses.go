package notifier

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESAPI 所需的 SES 调用，便于测试替换。
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESClient 通过 Amazon SES 发送邮件。
type SESClient struct {
	api SESAPI
}

// NewSESClient 使用默认凭证链创建 SES 客户端。
func NewSESClient(ctx context.Context, region string) (*SESClient, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SESClient{api: ses.NewFromConfig(awsCfg)}, nil
}

func (c *SESClient) Send(ctx context.Context, msg EmailMessage) error {
	body := &types.Body{Text: &types.Content{Data: aws.String(msg.Text)}}
	if msg.HTML != "" {
		body.Html = &types.Content{Data: aws.String(msg.HTML)}
	}
	_, err := c.api.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{ToAddresses: msg.To},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject)},
			Body:    body,
		},
		Source: aws.String(msg.From),
	})
	if err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	return nil
}
