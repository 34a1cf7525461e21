// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"time"

	"spark-workers/internal/common/config"
	"spark-workers/internal/common/logger"
	"spark-workers/internal/common/metrics"
	"spark-workers/internal/common/observability"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// HandlerFunc is the signature every worker's Handle method satisfies.
type HandlerFunc func(client worker.JobClient, job entities.Job)

// Job outcomes recorded per handled job.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeThrown    = "error_thrown"
	OutcomeNone      = "no_command"
)

// outcomeClient notes which terminal command a handler issued for its job.
type outcomeClient struct {
	worker.JobClient
	outcome string
}

func (c *outcomeClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 {
	c.outcome = OutcomeCompleted
	return c.JobClient.NewCompleteJobCommand()
}

func (c *outcomeClient) NewFailJobCommand() commands.FailJobCommandStep1 {
	c.outcome = OutcomeFailed
	return c.JobClient.NewFailJobCommand()
}

func (c *outcomeClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	c.outcome = OutcomeThrown
	return c.JobClient.NewThrowErrorCommand()
}

// Instrument wraps a handler with the active-job gauge, a duration histogram
// and a trace span per job. The OTel job counter and the span are tagged with
// the command the handler sent back: complete, fail or throw.
func Instrument(taskType string, h HandlerFunc, obs *observability.Observability, log logger.Logger) HandlerFunc {
	return func(client worker.JobClient, job entities.Job) {
		start := time.Now()
		metrics.WorkerJobsActive.WithLabelValues(taskType).Inc()
		defer metrics.WorkerJobsActive.WithLabelValues(taskType).Dec()

		ctx, span := obs.StartSpan(context.Background(), taskType,
			attribute.Int64("job.key", job.Key),
			attribute.Int64("job.process_instance_key", job.ProcessInstanceKey),
		)
		defer span.End()

		oc := &outcomeClient{JobClient: client, outcome: OutcomeNone}
		h(oc, job)

		elapsed := time.Since(start)
		metrics.WorkerJobDuration.WithLabelValues(taskType).Observe(elapsed.Seconds())
		obs.RecordJobDuration(ctx, taskType, elapsed)
		obs.RecordJobProcessed(ctx, taskType, oc.outcome)
		metrics.WorkerJobOutcomes.WithLabelValues(taskType, oc.outcome).Inc()

		span.SetAttributes(attribute.String("job.outcome", oc.outcome))
		if oc.outcome != OutcomeCompleted {
			span.SetStatus(codes.Error, oc.outcome)
		}

		if fields := observability.TraceFields(ctx); fields != nil {
			fields["taskType"] = taskType
			fields["jobKey"] = job.Key
			fields["outcome"] = oc.outcome
			fields["elapsedMs"] = elapsed.Milliseconds()
			log.Debug("job handled", fields)
		}
	}
}

// StartWorker opens a job worker for taskType. Disabled workers return nil.
func StartWorker(
	client zbc.Client,
	taskType string,
	wcfg config.WorkerConfig,
	h HandlerFunc,
	log logger.Logger,
) worker.JobWorker {
	if !wcfg.Enabled {
		log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return nil
	}

	w := client.NewJobWorker().
		JobType(taskType).
		Handler(worker.JobHandler(h)).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Open()

	log.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeoutMs":     wcfg.Timeout,
	})
	return w
}
