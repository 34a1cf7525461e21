// internal/workers/ideas/export-ideas/handler.go
package exportideas

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "spark-workers/internal/common/errors"
	"spark-workers/internal/common/logger"
	"spark-workers/internal/common/metrics"
	"spark-workers/internal/common/validation"
	"spark-workers/internal/export"
	"spark-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "export-ideas"

type IdeaSource interface {
	ListSavedIdeas(ctx context.Context, userID string, ids []string) ([]models.SavedIdea, error)
}

type Handler struct {
	config       *Config
	ideas        IdeaSource
	validator    *validation.Validator
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
	now          func() time.Time
}

func NewHandler(config *Config, ideas IdeaSource, validator *validation.Validator, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		ideas:        ideas,
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

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.UserID == "" {
		return nil, apperrors.NewInvalidInputError("userId is required")
	}
	format := strings.ToLower(input.Format)
	if format == "" {
		format = h.config.DefaultFormat
	}

	ideas, err := h.ideas.ListSavedIdeas(ctx, input.UserID, input.IdeaIDs)
	if err != nil {
		return nil, apperrors.NewExternalServiceError("postgres", err)
	}

	doc, err := export.Render(format, ideas)
	if errors.Is(err, export.ErrUnsupportedFormat) {
		return nil, apperrors.NewInvalidInputError(err.Error())
	}
	if err != nil {
		return nil, apperrors.NewExportFailedError(format, err)
	}

	filename := fmt.Sprintf("spark-ideas-%s.%s", h.now().UTC().Format(time.DateOnly), doc.Extension)
	h.logger.Info("ideas exported", map[string]interface{}{
		"userId":    input.UserID,
		"format":    format,
		"ideaCount": len(ideas),
		"bytes":     len(doc.Body),
	})

	return &Output{
		Filename:    filename,
		ContentType: doc.ContentType,
		Content:     string(doc.Body),
		IdeaCount:   len(ideas),
	}, nil
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
