// internal/workers/grants/match-grants/handler.go
package matchgrants

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"spark-workers/internal/catalog"
	apperrors "spark-workers/internal/common/errors"
	"spark-workers/internal/common/logger"
	"spark-workers/internal/common/metrics"
	"spark-workers/internal/common/observability"
	"spark-workers/internal/common/validation"
	"spark-workers/internal/grants"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const TaskType = "match-grants"

// Catalog is the slice of catalog.Repository the matcher reads.
type Catalog interface {
	ListActiveGrants(ctx context.Context) ([]grants.Grant, error)
	GetIdea(ctx context.Context, ideaID string) (*grants.BusinessIdea, error)
	GetProfile(ctx context.Context, userID string) (*grants.UserProfile, error)
}

type Handler struct {
	config       *Config
	catalog      Catalog
	matcher      *grants.Matcher
	validator    *validation.Validator
	obs          *observability.Observability
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(
	config *Config,
	catalog Catalog,
	matcher *grants.Matcher,
	validator *validation.Validator,
	obs *observability.Observability,
	log logger.Logger,
) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		catalog:      catalog,
		matcher:      matcher,
		validator:    validator,
		obs:          obs,
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

	input, err := h.parseInput(job)
	if err != nil {
		h.failJob(client, job, err)
		return
	}

	output, err := h.execute(ctx, input)
	if err != nil {
		h.failJob(client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	vars, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("parse variables: %v", err))
	}
	if err := h.validator.Validate(TaskType, vars); err != nil {
		return nil, err
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("decode input: %v", err))
	}
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	idea, err := h.resolveIdea(ctx, input)
	if err != nil {
		return nil, err
	}
	profile := h.resolveProfile(ctx, input)

	list, err := h.catalog.ListActiveGrants(ctx)
	if err != nil {
		return nil, apperrors.NewCatalogLoadFailedError(err)
	}

	topN := input.TopN
	if topN <= 0 {
		topN = h.config.TopN
	}
	matched := h.matcher.TopForIdea(list, *idea, profile, topN)

	h.recordExclusions(list, *idea, profile)
	metrics.GrantsMatched.Add(float64(len(matched)))
	h.obs.RecordMatchedGrants(ctx, len(matched))

	output := &Output{
		MatchRunID:    uuid.NewString(),
		IdeaID:        idea.ID,
		MatchedGrants: matched,
		MatchCount:    len(matched),
	}

	h.logger.Info("grants matched", map[string]interface{}{
		"matchRunId":  output.MatchRunID,
		"ideaId":      idea.ID,
		"province":    idea.Province,
		"industry":    idea.Industry,
		"catalogSize": len(list),
		"matchCount":  output.MatchCount,
		"hasProfile":  profile != nil,
	})
	return output, nil
}

func (h *Handler) resolveIdea(ctx context.Context, input *Input) (*grants.BusinessIdea, error) {
	if input.Idea != nil {
		idea := *input.Idea
		if idea.ID == "" {
			idea.ID = input.IdeaID
		}
		return &idea, nil
	}
	if input.IdeaID == "" {
		return nil, apperrors.NewInvalidInputError("either idea or ideaId is required")
	}

	idea, err := h.catalog.GetIdea(ctx, input.IdeaID)
	if errors.Is(err, catalog.ErrIdeaNotFound) {
		return nil, apperrors.NewIdeaNotFoundError(input.IdeaID)
	}
	if err != nil {
		return nil, apperrors.NewCatalogLoadFailedError(err)
	}
	return idea, nil
}

// resolveProfile never fails the job: without a profile the profile-based
// rules are skipped.
func (h *Handler) resolveProfile(ctx context.Context, input *Input) *grants.UserProfile {
	if input.Profile != nil {
		return input.Profile
	}
	if input.UserID == "" {
		return nil
	}

	profile, err := h.catalog.GetProfile(ctx, input.UserID)
	if errors.Is(err, catalog.ErrProfileNotFound) {
		h.logger.Debug("no profile for user", map[string]interface{}{"userId": input.UserID})
		return nil
	}
	if err != nil {
		h.logger.Warn("profile lookup failed, matching without profile", map[string]interface{}{
			"userId": input.UserID,
			"error":  err.Error(),
		})
		return nil
	}
	return profile
}

func (h *Handler) recordExclusions(list []grants.Grant, idea grants.BusinessIdea, profile *grants.UserProfile) {
	var province, threshold int
	scorer := h.matcher.Scorer()
	for _, g := range list {
		if !g.Active {
			continue
		}
		mg, ok := scorer.Score(g, idea, profile)
		switch {
		case !ok:
			province++
		case !h.matcher.Included(mg):
			threshold++
		}
	}
	metrics.GrantsExcluded.WithLabelValues("province").Add(float64(province))
	metrics.GrantsExcluded.WithLabelValues("threshold").Add(float64(threshold))
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
