// internal/workers/grants/search-grants/handler.go
package searchgrants

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"spark-workers/internal/catalog"
	apperrors "spark-workers/internal/common/errors"
	"spark-workers/internal/common/logger"
	"spark-workers/internal/common/metrics"
	"spark-workers/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "search-grants"

type Searcher interface {
	Search(ctx context.Context, q catalog.SearchQuery) (*catalog.SearchResult, error)
}

type Handler struct {
	config       *Config
	searcher     Searcher
	validator    *validation.Validator
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, searcher Searcher, validator *validation.Validator, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		searcher:     searcher,
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
	if input.GrantType != "" && !input.GrantType.Valid() {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("unknown grant type %q", input.GrantType))
	}

	res, err := h.searcher.Search(ctx, catalog.SearchQuery{
		Keywords:  input.Keywords,
		Province:  input.Province,
		GrantType: input.GrantType,
		From:      input.From,
		Size:      input.Size,
	})
	if err != nil {
		return nil, h.mapError(err)
	}

	h.logger.Info("grant search completed", map[string]interface{}{
		"keywords":  input.Keywords,
		"province":  input.Province,
		"totalHits": res.TotalHits,
		"tookMs":    res.Took,
	})

	return &Output{
		Grants:    res.Grants,
		TotalHits: res.TotalHits,
		Count:     len(res.Grants),
		TookMs:    res.Took,
	}, nil
}

func (h *Handler) mapError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewSearchTimeoutError(h.config.Index)
	case errors.Is(err, catalog.ErrIndexNotFound):
		return apperrors.NewIndexNotFoundError(h.config.Index)
	default:
		return apperrors.NewSearchQueryFailedError(err)
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
