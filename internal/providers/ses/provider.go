// Package ses sends mail through the AWS SES SendEmail API.
package ses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/smithy-go"

	"github.com/lattiq/mailrelay/internal/core"
)

// SendEmailAPI is the subset of the SES client used by Provider.
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// Provider implements the core.Provider interface for AWS SES.
type Provider struct {
	client SendEmailAPI
	config core.ProviderSettings
}

// NewProvider creates a new AWS SES provider. When transport exposes an
// HTTPClient it is used for the SDK's requests.
func NewProvider(settings core.ProviderSettings, transport core.Transport) (*Provider, error) {
	region := settings.Get("region")
	if region == "" {
		return nil, core.NewValidationError("region", "AWS region is required")
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}

	if accessKey := settings.Get("access_key"); accessKey != "" {
		secretKey := settings.Get("secret_key")
		if secretKey == "" {
			return nil, core.NewValidationError("secret_key", "secret key is required when access key is provided")
		}
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, settings.Get("session_token")),
		))
	}

	if hc, ok := transport.(interface{ HTTPClient() *http.Client }); ok {
		opts = append(opts, config.WithHTTPClient(hc.HTTPClient()))
	}

	cfg, err := config.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, core.NewValidationErrorWithValue("region", "failed to load AWS config: "+err.Error(), region)
	}

	return NewWithClient(settings, ses.NewFromConfig(cfg)), nil
}

// NewWithClient creates a provider around an existing SES client.
func NewWithClient(settings core.ProviderSettings, client SendEmailAPI) *Provider {
	return &Provider{
		client: client,
		config: settings,
	}
}

// Send sends email through SES. API errors that carry an HTTP status are
// reported as an UpstreamResponse; anything else is returned as is.
func (p *Provider) Send(ctx context.Context, email *core.Email) (*core.UpstreamResponse, error) {
	if email == nil {
		return nil, core.ErrMissingEmail
	}

	output, err := p.client.SendEmail(ctx, p.buildInput(email))
	if err != nil {
		var status interface{ HTTPStatusCode() int }
		if errors.As(err, &status) && status.HTTPStatusCode() > 0 {
			return &core.UpstreamResponse{
				StatusCode: status.HTTPStatusCode(),
				Body:       errorBody(err),
			}, nil
		}
		return nil, err
	}

	body, err := json.Marshal(struct {
		MessageID string `json:"MessageId"`
	}{aws.ToString(output.MessageId)})
	if err != nil {
		return nil, err
	}

	return &core.UpstreamResponse{
		StatusCode: http.StatusOK,
		Body:       string(body),
	}, nil
}

func (p *Provider) buildInput(email *core.Email) *ses.SendEmailInput {
	input := &ses.SendEmailInput{
		Source: aws.String(email.From()),
		Destination: &types.Destination{
			ToAddresses: email.To(),
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(email.Subject()),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data:    aws.String(email.Body()),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	if cc := email.Cc(); len(cc) > 0 {
		input.Destination.CcAddresses = cc
	}
	if bcc := email.Bcc(); len(bcc) > 0 {
		input.Destination.BccAddresses = bcc
	}

	if configSet := p.config.Get("configuration_set"); configSet != "" {
		input.ConfigurationSetName = aws.String(configSet)
	}

	return input
}

// errorBody renders an SES API error the way the service reports it.
func errorBody(err error) string {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return err.Error()
	}

	body, mErr := json.Marshal(struct {
		Code    string `json:"Code"`
		Message string `json:"Message"`
	}{apiErr.ErrorCode(), apiErr.ErrorMessage()})
	if mErr != nil {
		return err.Error()
	}
	return string(body)
}

// ValidateConfig validates the provider configuration.
func (p *Provider) ValidateConfig() error {
	if p.config.Get("region") == "" {
		return core.NewValidationError("region", "AWS region is required")
	}
	return nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "AWS SES"
}
