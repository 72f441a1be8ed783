// internal/workers/scoring/build-alternative-profile/handler.go
package buildalternativeprofile

import (
	"context"
	"encoding/json"

	"kredmitra/internal/altdata"
	"kredmitra/internal/common/camunda"
	"kredmitra/internal/common/errors"
	"kredmitra/internal/common/logger"
	"kredmitra/internal/common/metrics"
	"kredmitra/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "build-alternative-profile"

type Handler struct {
	config     *Config
	source     altdata.Source
	logger     logger.Logger
	errHandler *errors.ErrorHandler
}

func NewHandler(config *Config, source altdata.Source, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		source:     source,
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

// Execute decrypts the applicant's alternative-data records and extracts the
// integrated feature profile.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if !validation.ValidateAadhaar(input.Aadhaar) {
		return nil, errors.NewValidationError("aadhaar must be exactly 12 digits")
	}

	profile, err := altdata.BuildIntegratedProfile(ctx, h.source, input.Aadhaar, input.Pincode)
	if err != nil {
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.NewExternalServiceError("altdata", err)
	}

	h.logger.Info("alternative profile built", map[string]interface{}{
		"simStability":  profile.Telecom.SimStabilityScore,
		"paymentScore":  profile.Utility.PaymentDisciplineScore,
		"transactional": profile.Banking.TransactionProfile,
	})
	return &Output{
		IntegratedProfile: profile,
		ResolvedPincode:   altdata.ResolvePincode(h.source, input.Pincode),
	}, nil
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.CodeOf(err))).Inc()
	h.errHandler.HandleJobError(ctx, client, job, err)
}
