// internal/workers/grants/filter-grants/handler.go
package filtergrants

import (
	"context"
	"encoding/json"
	"fmt"

	apperrors "spark-workers/internal/common/errors"
	"spark-workers/internal/common/logger"
	"spark-workers/internal/common/metrics"
	"spark-workers/internal/common/validation"
	"spark-workers/internal/grants"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "filter-grants"

// GrantSource loads the active catalog.
type GrantSource interface {
	ListActiveGrants(ctx context.Context) ([]grants.Grant, error)
}

type Handler struct {
	config       *Config
	source       GrantSource
	matcher      *grants.Matcher
	validator    *validation.Validator
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, source GrantSource, matcher *grants.Matcher, validator *validation.Validator, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		source:       source,
		matcher:      matcher,
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

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.View == ViewType && !input.GrantType.Valid() {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("unknown grant type %q", input.GrantType))
	}

	var view func([]grants.Grant) []grants.Grant
	switch input.View {
	case ViewType:
		view = func(list []grants.Grant) []grants.Grant { return h.matcher.ByType(list, input.GrantType) }
	case ViewNewcomer:
		view = h.matcher.NewcomerGrants
	case ViewSideHustle:
		view = h.matcher.SideHustleGrants
	case ViewYouth:
		view = h.matcher.YouthGrants
	default:
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("unknown view %q", input.View))
	}

	list, err := h.source.ListActiveGrants(ctx)
	if err != nil {
		return nil, apperrors.NewCatalogLoadFailedError(err)
	}

	result := view(list)
	h.logger.Debug("catalog filtered", map[string]interface{}{
		"view":  input.View,
		"count": len(result),
	})
	return &Output{
		View:   input.View,
		Grants: result,
		Count:  len(result),
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
