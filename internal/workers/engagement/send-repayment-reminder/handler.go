// internal/workers/engagement/send-repayment-reminder/handler.go
package sendrepaymentreminder

import (
	"context"
	"encoding/json"

	"kredmitra/internal/common/camunda"
	"kredmitra/internal/common/errors"
	"kredmitra/internal/common/logger"
	"kredmitra/internal/common/metrics"
	"kredmitra/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "send-repayment-reminder"

type Reminder interface {
	SendReminder(ctx context.Context, mobile string) (string, error)
}

type Handler struct {
	config     *Config
	reminder   Reminder
	logger     logger.Logger
	errHandler *errors.ErrorHandler
}

func NewHandler(config *Config, reminder Reminder, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		reminder:   reminder,
		logger:     log,
		errHandler: errors.NewErrorHandler(log),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(ctx, client, job, errors.NewValidationError("parse input: "+err.Error()))
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}
	if err := camunda.CompleteJob(ctx, client, job, output); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{"jobKey": job.Key, "error": err.Error()})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if !validation.ValidateMobile(input.Mobile) {
		return nil, errors.NewValidationError("mobile must be exactly 10 digits")
	}

	msg, err := h.reminder.SendReminder(ctx, input.Mobile)
	if err != nil {
		return nil, err
	}

	h.logger.Info("repayment reminder sent", map[string]interface{}{
		"mobile":   input.Mobile,
		"loanName": input.LoanName,
	})
	return &Output{ReminderSent: true, Message: msg}, nil
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.CodeOf(err))).Inc()
	h.errHandler.HandleJobError(ctx, client, job, err)
}
