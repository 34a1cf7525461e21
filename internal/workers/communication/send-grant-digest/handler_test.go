package sendgrantdigest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"spark-workers/internal/catalog"
	apperrors "spark-workers/internal/common/errors"
	"spark-workers/internal/common/logger"
	"spark-workers/internal/grants"
	"spark-workers/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

type mockSES struct {
	calls         []*ses.SendEmailInput
	sendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

func (m *mockSES) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	m.calls = append(m.calls, params)
	if m.sendEmailFunc != nil {
		return m.sendEmailFunc(ctx, params, optFns...)
	}
	return &ses.SendEmailOutput{MessageId: aws.String("ses-1")}, nil
}

type mockSNS struct {
	calls       []*sns.PublishInput
	publishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func (m *mockSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	m.calls = append(m.calls, params)
	if m.publishFunc != nil {
		return m.publishFunc(ctx, params, optFns...)
	}
	return &sns.PublishOutput{MessageId: aws.String("sns-1")}, nil
}

type mockRecipients struct {
	recipient *models.Recipient
	err       error
}

func (m *mockRecipients) GetRecipient(ctx context.Context, userID string) (*models.Recipient, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.recipient, nil
}

func ptr[T any](v T) *T { return &v }

func matched() []grants.MatchedGrant {
	in := func(d time.Duration) *time.Time { t := fixedNow.Add(d); return &t }
	return []grants.MatchedGrant{
		{Grant: grants.Grant{ID: "g1", Name: "Starter Company Plus", FundingMax: ptr(int64(5000)), Deadline: in(5 * 24 * time.Hour), URL: "https://example.ca/scp"}, MatchScore: 70, MatchReasons: []string{"available in ON", "supports retail industry"}},
		{Grant: grants.Grant{ID: "g2", Name: "CSBF Loan", FundingMax: ptr(int64(1150000)), Deadline: in(30 * 24 * time.Hour)}, MatchScore: 55, MatchReasons: []string{"federal program available nationwide"}},
		{Grant: grants.Grant{ID: "g3", Name: "SR&ED", FundingMin: ptr(int64(1000)), FundingMax: ptr(int64(3000000))}, MatchScore: 45, MatchReasons: []string{"available for all industries"}},
		{Grant: grants.Grant{ID: "g4", Name: "Futurpreneur", Deadline: in(2 * 24 * time.Hour)}, MatchScore: 40, MatchReasons: []string{"newcomer eligible"}},
		{Grant: grants.Grant{ID: "g5", Name: "Closed Fund", Deadline: in(-24 * time.Hour)}, MatchScore: 35, MatchReasons: []string{"available in ON"}},
	}
}

func createTestConfig() *Config {
	return &Config{
		EmailEnabled:   true,
		SMSEnabled:     true,
		FromEmail:      "grants@spark.example",
		SenderID:       "Spark",
		DeadlineWindow: 14 * 24 * time.Hour,
		DigestSize:     2,
		Timeout:        time.Second,
	}
}

func createTestHandler(t *testing.T, cfg *Config, r RecipientSource, sesAPI *mockSES, snsAPI *mockSNS) *Handler {
	h := NewHandler(cfg, r, sesAPI, snsAPI, nil, logger.NewTestLogger(t))
	h.now = func() time.Time { return fixedNow }
	return h
}

func TestHandler_Execute_EmailAndSMS(t *testing.T) {
	sesAPI, snsAPI := &mockSES{}, &mockSNS{}
	recipients := &mockRecipients{recipient: &models.Recipient{UserID: "user-1", Email: "amira@example.ca", Phone: "+14165550100", Name: "Amira"}}
	h := createTestHandler(t, createTestConfig(), recipients, sesAPI, snsAPI)

	out, err := h.Execute(context.Background(), &Input{UserID: "user-1", IdeaName: "Corner bakery", MatchedGrants: matched()})
	require.NoError(t, err)

	assert.Equal(t, models.NotificationSent, out.EmailStatus)
	assert.Equal(t, models.NotificationSent, out.SMSStatus)
	assert.Equal(t, 2, out.GrantCount)
	assert.Equal(t, 2, out.DeadlineCount)
	assert.Equal(t, "2026-10-19T12:00:00Z", out.SentAt)
	assert.NotEmpty(t, out.NotificationID)

	require.Len(t, sesAPI.calls, 1)
	email := sesAPI.calls[0]
	assert.Equal(t, "grants@spark.example", aws.ToString(email.Source))
	assert.Equal(t, []string{"amira@example.ca"}, email.Destination.ToAddresses)
	assert.Equal(t, "Your top grant matches for Corner bakery", aws.ToString(email.Message.Subject.Data))
	text := aws.ToString(email.Message.Body.Text.Data)
	assert.Contains(t, text, "Hi Amira,")
	assert.Contains(t, text, "1. Starter Company Plus (match 70%)")
	assert.Contains(t, text, "2. CSBF Loan (match 55%)")
	assert.Contains(t, text, "up to $1,150,000")
	assert.Contains(t, text, "- supports retail industry")
	assert.NotContains(t, text, "SR&ED")
	html := aws.ToString(email.Message.Body.Html.Data)
	assert.Contains(t, html, `<a href="https://example.ca/scp">Starter Company Plus</a>`)

	require.Len(t, snsAPI.calls, 1)
	sms := snsAPI.calls[0]
	assert.Equal(t, "+14165550100", aws.ToString(sms.PhoneNumber))
	assert.Equal(t, "Spark: grant deadlines coming up: Futurpreneur (Oct 21), Starter Company Plus (Oct 24)", aws.ToString(sms.Message))
	assert.Equal(t, "Spark", aws.ToString(sms.MessageAttributes["AWS.SNS.SMS.SenderID"].StringValue))
}

func TestHandler_Execute_Disabled(t *testing.T) {
	tests := []struct {
		name       string
		cfg        func(*Config)
		recipients *mockRecipients
		input      *Input
		wantEmail  string
		wantSMS    string
	}{
		{
			name:       "recipient missing",
			recipients: &mockRecipients{err: fmt.Errorf("%w: user-1", catalog.ErrProfileNotFound)},
			input:      &Input{UserID: "user-1", MatchedGrants: matched()},
			wantEmail:  models.NotificationDisabled,
			wantSMS:    models.NotificationDisabled,
		},
		{
			name:       "no phone",
			recipients: &mockRecipients{recipient: &models.Recipient{Email: "a@b.ca"}},
			input:      &Input{UserID: "user-1", MatchedGrants: matched()},
			wantEmail:  models.NotificationSent,
			wantSMS:    models.NotificationDisabled,
		},
		{
			name:       "channels switched off",
			cfg:        func(c *Config) { c.EmailEnabled, c.SMSEnabled = false, false },
			recipients: &mockRecipients{recipient: &models.Recipient{Email: "a@b.ca", Phone: "+15550100"}},
			input:      &Input{UserID: "user-1", MatchedGrants: matched()},
			wantEmail:  models.NotificationDisabled,
			wantSMS:    models.NotificationDisabled,
		},
		{
			name:       "nothing matched",
			recipients: &mockRecipients{recipient: &models.Recipient{Email: "a@b.ca", Phone: "+15550100"}},
			input:      &Input{UserID: "user-1"},
			wantEmail:  models.NotificationDisabled,
			wantSMS:    models.NotificationDisabled,
		},
		{
			name:       "no deadline in window",
			recipients: &mockRecipients{recipient: &models.Recipient{Phone: "+15550100"}},
			input:      &Input{UserID: "user-1", MatchedGrants: matched()[2:3]},
			wantEmail:  models.NotificationDisabled,
			wantSMS:    models.NotificationDisabled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := createTestConfig()
			if tt.cfg != nil {
				tt.cfg(cfg)
			}
			sesAPI, snsAPI := &mockSES{}, &mockSNS{}
			out, err := createTestHandler(t, cfg, tt.recipients, sesAPI, snsAPI).Execute(context.Background(), tt.input)
			require.NoError(t, err)

			assert.Equal(t, tt.wantEmail, out.EmailStatus)
			assert.Equal(t, tt.wantSMS, out.SMSStatus)
			if tt.wantEmail == models.NotificationDisabled {
				assert.Empty(t, sesAPI.calls)
			}
			if tt.wantSMS == models.NotificationDisabled {
				assert.Empty(t, snsAPI.calls)
			}
		})
	}
}

func TestHandler_Execute_EmailFailureIsRetryable(t *testing.T) {
	sesAPI := &mockSES{sendEmailFunc: func(context.Context, *ses.SendEmailInput, ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
		return nil, errors.New("Throttling: Maximum sending rate exceeded")
	}}
	recipients := &mockRecipients{recipient: &models.Recipient{Email: "a@b.ca"}}

	_, err := createTestHandler(t, createTestConfig(), recipients, sesAPI, &mockSNS{}).
		Execute(context.Background(), &Input{UserID: "user-1", MatchedGrants: matched()})
	require.Error(t, err)

	stdErr := apperrors.AsStandardError(err)
	assert.Equal(t, apperrors.ErrCodeNotificationSendFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
	assert.Contains(t, stdErr.Details, "channel: email")
}

func TestHandler_Execute_SMSFailureReported(t *testing.T) {
	snsAPI := &mockSNS{publishFunc: func(context.Context, *sns.PublishInput, ...func(*sns.Options)) (*sns.PublishOutput, error) {
		return nil, errors.New("InvalidParameter: PhoneNumber")
	}}
	recipients := &mockRecipients{recipient: &models.Recipient{Email: "a@b.ca", Phone: "not-a-phone"}}

	out, err := createTestHandler(t, createTestConfig(), recipients, &mockSES{}, snsAPI).
		Execute(context.Background(), &Input{UserID: "user-1", MatchedGrants: matched()})
	require.NoError(t, err)
	assert.Equal(t, models.NotificationSent, out.EmailStatus)
	assert.Equal(t, models.NotificationFailed, out.SMSStatus)
}

func TestHandler_Execute_RecipientLookupFailure(t *testing.T) {
	recipients := &mockRecipients{err: errors.New("pq: connection refused")}
	_, err := createTestHandler(t, createTestConfig(), recipients, &mockSES{}, &mockSNS{}).
		Execute(context.Background(), &Input{UserID: "user-1", MatchedGrants: matched()})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeExternalService, apperrors.AsStandardError(err).Code)
}

func TestUpcomingDeadlines(t *testing.T) {
	got := upcomingDeadlines(matched(), fixedNow, 7*24*time.Hour)
	require.Len(t, got, 2)
	assert.Equal(t, "g4", got[0].ID)
	assert.Equal(t, "g1", got[1].ID)

	assert.Empty(t, upcomingDeadlines(matched(), fixedNow, 0))
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "1,150,000", thousands(1150000))
	assert.Equal(t, "999", thousands(999))
	assert.Equal(t, "-12,000", thousands(-12000))
	assert.Equal(t, "amount varies", formatFunding(grants.Grant{}))
	assert.Equal(t, "$1,000 to $3,000,000", formatFunding(grants.Grant{FundingMin: ptr(int64(1000)), FundingMax: ptr(int64(3000000))}))
	assert.Equal(t, "from $500", formatFunding(grants.Grant{FundingMin: ptr(int64(500))}))
	assert.Equal(t, "Spark: grant deadline coming up: X (Oct 21)", deadlineSMS([]grants.MatchedGrant{{Grant: grants.Grant{Name: "X", Deadline: ptr(fixedNow.Add(48 * time.Hour))}}}))
}
