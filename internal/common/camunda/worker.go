package camunda

import (
	"context"
	"encoding/json"
	"time"

	"kredmitra/internal/common/config"
	"kredmitra/internal/common/errors"
	"kredmitra/internal/common/logger"
	"kredmitra/internal/common/metrics"
	"kredmitra/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// HandlerFunc processes a single activated job and completes or fails it.
type HandlerFunc func(client worker.JobClient, job entities.Job)

// InputValidator checks job variables against the activity's input schema.
type InputValidator interface {
	ValidateInput(taskType string, variables map[string]interface{}) (*validation.ValidationResult, error)
}

// CamundaWorker is an open job worker for one task type.
type CamundaWorker struct {
	worker   worker.JobWorker
	logger   logger.Logger
	taskType string
}

// NewWorker opens a job worker for taskType. Every job is counted in the
// active-jobs gauge and, when validator is non-nil, rejected with a
// VALIDATION_FAILED BPMN error before handler runs if its variables do not
// match the registered input schema.
func NewWorker(
	client zbc.Client,
	taskType string,
	cfg config.WorkerConfig,
	handler HandlerFunc,
	validator InputValidator,
	log logger.Logger,
) *CamundaWorker {
	log = log.WithFields(map[string]interface{}{"taskType": taskType})
	errHandler := errors.NewErrorHandler(log)

	wrapped := func(jc worker.JobClient, job entities.Job) {
		start := time.Now()
		metrics.WorkerJobsActive.WithLabelValues(taskType).Inc()
		defer func() {
			metrics.WorkerJobsActive.WithLabelValues(taskType).Dec()
			metrics.WorkerJobDuration.WithLabelValues(taskType).Observe(time.Since(start).Seconds())
		}()

		if validator != nil {
			if err := validateJob(validator, taskType, job); err != nil {
				metrics.WorkerJobsFailed.WithLabelValues(taskType, string(errors.CodeOf(err))).Inc()
				errHandler.HandleJobError(context.Background(), jc, job, err)
				return
			}
		}
		handler(jc, job)
	}

	jobWorker := client.NewJobWorker().
		JobType(taskType).
		Handler(wrapped).
		MaxJobsActive(cfg.MaxJobsActive).
		Timeout(config.GetDuration(cfg.Timeout)).
		Open()

	log.Info("worker started", map[string]interface{}{
		"maxJobsActive": cfg.MaxJobsActive,
		"timeout":       cfg.Timeout,
	})

	return &CamundaWorker{worker: jobWorker, logger: log, taskType: taskType}
}

func validateJob(validator InputValidator, taskType string, job entities.Job) error {
	var vars map[string]interface{}
	if err := json.Unmarshal([]byte(job.Variables), &vars); err != nil {
		return errors.NewValidationError("job variables are not a JSON object")
	}

	result, err := validator.ValidateInput(taskType, vars)
	if err != nil {
		return errors.NewValidationError(err.Error())
	}
	if !result.Valid {
		details, _ := json.Marshal(result.Errors)
		return errors.NewValidationError(string(details))
	}
	return nil
}

func (w *CamundaWorker) TaskType() string {
	return w.taskType
}

// Stop closes the job worker and waits for in-flight jobs.
func (w *CamundaWorker) Stop() {
	w.logger.Info("stopping worker", nil)
	w.worker.Close()
	w.worker.AwaitClose()
}

// CompleteJob completes job with output as its result variables.
func CompleteJob(ctx context.Context, client worker.JobClient, job entities.Job, output interface{}) error {
	cmd, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(output)
	if err != nil {
		return errors.NewValidationError("encode job output: " + err.Error())
	}
	if _, err := cmd.Send(ctx); err != nil {
		return errors.NewExternalServiceError("zeebe", err)
	}
	return nil
}
