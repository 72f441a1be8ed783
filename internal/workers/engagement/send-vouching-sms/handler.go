// internal/workers/engagement/send-vouching-sms/handler.go
package sendvouchingsms

import (
	"context"
	"encoding/json"
	"strings"

	"kredmitra/internal/common/camunda"
	"kredmitra/internal/common/errors"
	"kredmitra/internal/common/logger"
	"kredmitra/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "send-vouching-sms"

type VouchRequester interface {
	RequestVouch(ctx context.Context, applicantMobile, applicantName, voucherPhone string) (string, error)
}

type Handler struct {
	config     *Config
	community  VouchRequester
	logger     logger.Logger
	errHandler *errors.ErrorHandler
}

func NewHandler(config *Config, community VouchRequester, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		community:  community,
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

// Execute texts the voucher and records the pending reference edge. Mobile
// numbers are checked by the community service.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	name := strings.TrimSpace(input.ApplicantName)
	if name == "" {
		return nil, errors.NewValidationError("applicantName is required")
	}

	msg, err := h.community.RequestVouch(ctx, input.ApplicantMobile, name, input.VoucherPhone)
	if err != nil {
		return nil, err
	}

	h.logger.Info("vouch requested", map[string]interface{}{
		"applicant": input.ApplicantMobile,
		"voucher":   input.VoucherPhone,
	})
	return &Output{VouchRequested: true, Message: msg}, nil
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.CodeOf(err))).Inc()
	h.errHandler.HandleJobError(ctx, client, job, err)
}
