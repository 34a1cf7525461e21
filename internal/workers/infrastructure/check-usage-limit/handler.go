// internal/workers/infrastructure/check-usage-limit/handler.go
package checkusagelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "spark-workers/internal/common/errors"
	"spark-workers/internal/common/logger"
	"spark-workers/internal/common/metrics"
	"spark-workers/internal/common/validation"
	"spark-workers/internal/models"
	"spark-workers/internal/usage"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "check-usage-limit"

type Limiter interface {
	Consume(ctx context.Context, userID string, feature models.Feature) (usage.Decision, error)
	Peek(ctx context.Context, userID string, feature models.Feature) (usage.Decision, error)
}

type Handler struct {
	config       *Config
	limiter      Limiter
	validator    *validation.Validator
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, limiter Limiter, validator *validation.Validator, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		limiter:      limiter,
		validator:    validator,
		errorHandler: apperrors.NewErrorHandler(l),
		logger:       l,
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

// execute returns USAGE_LIMIT_EXCEEDED when a consume is refused. A refused
// peek is reported in the output instead.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.UserID == "" {
		return nil, apperrors.NewInvalidInputError("userId is required")
	}
	feature := models.Feature(input.Feature)

	check := h.limiter.Consume
	if input.Peek {
		check = h.limiter.Peek
	}
	d, err := check(ctx, input.UserID, feature)
	if err != nil {
		return nil, mapError(err)
	}

	if !d.Allowed && !input.Peek {
		h.logger.Info("usage limit reached", map[string]interface{}{
			"userId":  input.UserID,
			"feature": input.Feature,
			"tier":    string(d.Tier),
			"limit":   d.Limit,
		})
		return nil, apperrors.NewUsageLimitExceededError(input.Feature, d.Used, d.Limit).
			WithMetadata("tier", string(d.Tier)).
			WithMetadata("resetsAt", d.ResetsAt.Format(time.RFC3339))
	}

	return &Output{
		Allowed:   d.Allowed,
		Tier:      string(d.Tier),
		Feature:   string(d.Feature),
		Used:      d.Used,
		Limit:     d.Limit,
		Remaining: d.Remaining,
		ResetsAt:  d.ResetsAt.Format(time.RFC3339),
	}, nil
}

func mapError(err error) error {
	switch {
	case errors.Is(err, usage.ErrUnknownFeature):
		return apperrors.NewInvalidInputError(err.Error())
	case errors.Is(err, usage.ErrSubscriptionInvalid):
		return apperrors.NewSubscriptionInvalidError(err.Error())
	default:
		return apperrors.NewSubscriptionCheckFailedError(err)
	}
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
