// internal/workers/communication/send-grant-digest/handler.go
package sendgrantdigest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"spark-workers/internal/catalog"
	awsclient "spark-workers/internal/common/aws"
	apperrors "spark-workers/internal/common/errors"
	"spark-workers/internal/common/logger"
	"spark-workers/internal/common/metrics"
	"spark-workers/internal/common/validation"
	"spark-workers/internal/grants"
	"spark-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const TaskType = "send-grant-digest"

type RecipientSource interface {
	GetRecipient(ctx context.Context, userID string) (*models.Recipient, error)
}

type Handler struct {
	config       *Config
	recipients   RecipientSource
	sesClient    awsclient.SESAPI
	snsClient    awsclient.SNSAPI
	validator    *validation.Validator
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
	now          func() time.Time
}

func NewHandler(
	config *Config,
	recipients RecipientSource,
	sesClient awsclient.SESAPI,
	snsClient awsclient.SNSAPI,
	validator *validation.Validator,
	log logger.Logger,
) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		recipients:   recipients,
		sesClient:    sesClient,
		snsClient:    snsClient,
		validator:    validator,
		errorHandler: apperrors.NewErrorHandler(l),
		logger:       l,
		now:          time.Now,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":             job.Key,
		"processInstanceKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	vars, err := job.GetVariablesAsMap()
	if err != nil {
		h.failJob(client, job, apperrors.NewInvalidInputError(fmt.Sprintf("parse variables: %v", err)))
		return
	}
	if err := h.validator.Validate(TaskType, vars); err != nil {
		h.failJob(client, job, err)
		return
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, apperrors.NewInvalidInputError(fmt.Sprintf("decode input: %v", err)))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.failJob(client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

// execute emails the digest and texts upcoming deadlines. A user without
// contact details gets status disabled on both channels, not an error.
// Only an email failure fails the job; an SMS failure is reported as failed.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.UserID == "" {
		return nil, apperrors.NewInvalidInputError("userId is required")
	}

	now := h.now().UTC()
	output := &Output{
		NotificationID: uuid.NewString(),
		EmailStatus:    models.NotificationDisabled,
		SMSStatus:      models.NotificationDisabled,
		SentAt:         now.Format(time.RFC3339),
	}

	if len(input.MatchedGrants) == 0 {
		h.logger.Info("no matched grants, digest skipped", map[string]interface{}{"userId": input.UserID})
		return output, nil
	}

	recipient, err := h.recipients.GetRecipient(ctx, input.UserID)
	if errors.Is(err, catalog.ErrProfileNotFound) {
		h.logger.Warn("recipient not found", map[string]interface{}{"userId": input.UserID})
		return output, nil
	}
	if err != nil {
		return nil, apperrors.NewExternalServiceError("postgres", err)
	}

	top := input.MatchedGrants
	if h.config.DigestSize > 0 && len(top) > h.config.DigestSize {
		top = top[:h.config.DigestSize]
	}
	output.GrantCount = len(top)

	if h.config.EmailEnabled && recipient.Email != "" {
		if err := h.sendDigest(ctx, recipient, input.IdeaName, top); err != nil {
			return nil, apperrors.NewNotificationSendFailedError(models.ChannelEmail, err)
		}
		output.EmailStatus = models.NotificationSent
	}

	upcoming := upcomingDeadlines(input.MatchedGrants, now, h.config.DeadlineWindow)
	output.DeadlineCount = len(upcoming)
	if h.config.SMSEnabled && recipient.Phone != "" && len(upcoming) > 0 {
		if _, err := awsclient.SendSMS(ctx, h.snsClient, recipient.Phone, deadlineSMS(upcoming), h.config.SenderID); err != nil {
			h.logger.Error("SMS send failed", map[string]interface{}{
				"userId": input.UserID,
				"error":  err.Error(),
			})
			output.SMSStatus = models.NotificationFailed
		} else {
			output.SMSStatus = models.NotificationSent
		}
	}

	h.logger.Info("grant digest processed", map[string]interface{}{
		"userId":        input.UserID,
		"emailStatus":   output.EmailStatus,
		"smsStatus":     output.SMSStatus,
		"grantCount":    output.GrantCount,
		"deadlineCount": output.DeadlineCount,
	})
	return output, nil
}

func (h *Handler) sendDigest(ctx context.Context, r *models.Recipient, ideaName string, top []grants.MatchedGrant) error {
	subject, text, html, err := renderDigest(digestData{Name: r.Name, IdeaName: ideaName, Grants: top})
	if err != nil {
		return fmt.Errorf("render digest: %w", err)
	}
	_, err = awsclient.SendEmail(ctx, h.sesClient, awsclient.Email{
		From:    h.config.FromEmail,
		To:      r.Email,
		Subject: subject,
		Text:    text,
		HTML:    html,
	})
	return err
}

// upcomingDeadlines returns grants whose deadline falls in [now, now+window],
// soonest first.
func upcomingDeadlines(list []grants.MatchedGrant, now time.Time, window time.Duration) []grants.MatchedGrant {
	end := now.Add(window)
	out := make([]grants.MatchedGrant, 0)
	for _, g := range list {
		if g.Deadline == nil || g.Deadline.Before(now) || g.Deadline.After(end) {
			continue
		}
		out = append(out, g)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Deadline.Before(*out[j].Deadline)
	})
	return out
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	metrics.RecordCompleted(TaskType)
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error) {
	stdErr := apperrors.AsStandardError(err)
	metrics.RecordFailed(TaskType, string(stdErr.Code))
	h.errorHandler.HandleJobError(context.Background(), client, job, stdErr)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
