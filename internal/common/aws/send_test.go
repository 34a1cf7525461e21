package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSES struct {
	sendFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

func (m *mockSES) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	return m.sendFunc(ctx, params, optFns...)
}

type mockSNS struct {
	publishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func (m *mockSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	return m.publishFunc(ctx, params, optFns...)
}

func TestSendEmail(t *testing.T) {
	var captured *ses.SendEmailInput
	api := &mockSES{sendFunc: func(_ context.Context, p *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
		captured = p
		return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
	}}

	id, err := SendEmail(context.Background(), api, Email{
		From: "grants@spark.example", To: "founder@example.com", Subject: "Your grants", Text: "hello",
	})

	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
	assert.Equal(t, []string{"founder@example.com"}, captured.Destination.ToAddresses)
	assert.Equal(t, "Your grants", *captured.Message.Subject.Data)
	assert.Nil(t, captured.Message.Body.Html)
}

func TestSendEmail_Error(t *testing.T) {
	api := &mockSES{sendFunc: func(context.Context, *ses.SendEmailInput, ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
		return nil, errors.New("throttled")
	}}
	_, err := SendEmail(context.Background(), api, Email{To: "a@b.c"})
	assert.ErrorContains(t, err, "throttled")
}

func TestSendSMS(t *testing.T) {
	var captured *sns.PublishInput
	api := &mockSNS{publishFunc: func(_ context.Context, p *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
		captured = p
		return &sns.PublishOutput{MessageId: aws.String("sms-1")}, nil
	}}

	id, err := SendSMS(context.Background(), api, "+15555550100", "deadline soon", "SPARK")

	require.NoError(t, err)
	assert.Equal(t, "sms-1", id)
	assert.Equal(t, "+15555550100", *captured.PhoneNumber)
	assert.Equal(t, "Transactional", *captured.MessageAttributes["AWS.SNS.SMS.SMSType"].StringValue)
	assert.Equal(t, "SPARK", *captured.MessageAttributes["AWS.SNS.SMS.SenderID"].StringValue)
}
