// internal/workers/scoring/score-applicant/handler.go
package scoreapplicant

import (
	"context"
	"encoding/json"
	"time"

	"kredmitra/internal/common/camunda"
	"kredmitra/internal/common/errors"
	"kredmitra/internal/common/logger"
	"kredmitra/internal/common/metrics"
	"kredmitra/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "score-applicant"

type Scorer interface {
	RunWeb(ctx context.Context, user *models.UserData) (*models.Application, error)
	RunUSSD(ctx context.Context, user *models.UserData) (*models.Application, error)
}

type UserUpdater interface {
	Update(ctx context.Context, mobile string, fn func(*models.UserRecord) error) (*models.UserRecord, error)
}

type Handler struct {
	config     *Config
	scorer     Scorer
	users      UserUpdater
	logger     logger.Logger
	errHandler *errors.ErrorHandler
	now        func() time.Time
}

// NewHandler builds the handler. users may be nil, in which case results
// are only returned as job variables.
func NewHandler(config *Config, scorer Scorer, users UserUpdater, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		scorer:     scorer,
		users:      users,
		logger:     log,
		errHandler: errors.NewErrorHandler(log),
		now:        time.Now,
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

// Execute runs the scoring pipeline for the channel and stores the result
// when a mobile is given.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	user := input.UserData

	var (
		app *models.Application
		err error
	)
	switch input.Channel {
	case "", models.ChannelWebApp:
		app, err = h.scorer.RunWeb(ctx, &user)
	case models.ChannelUSSD:
		app, err = h.scorer.RunUSSD(ctx, &user)
	default:
		return nil, errors.NewValidationError("unknown channel: " + input.Channel)
	}
	if err != nil {
		return nil, err
	}

	if input.Mobile != "" && h.users != nil {
		if err := h.store(ctx, input.Mobile, app); err != nil {
			return nil, err
		}
	}

	h.logger.Info("applicant scored", map[string]interface{}{
		"channel":    app.Channel,
		"finalScore": app.ScoreData.FinalScore,
		"fraudRisk":  app.ScoreData.FraudRisk,
	})
	return &Output{
		Application: app,
		FinalScore:  app.ScoreData.FinalScore,
		FraudRisk:   app.ScoreData.FraudRisk,
		LoanCount:   len(app.LoanOptions),
	}, nil
}

func (h *Handler) store(ctx context.Context, mobile string, app *models.Application) error {
	_, err := h.users.Update(ctx, mobile, func(rec *models.UserRecord) error {
		rec.RecordApplication(app, h.now())
		return nil
	})
	return err
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.CodeOf(err))).Inc()
	h.errHandler.HandleJobError(ctx, client, job, err)
}
