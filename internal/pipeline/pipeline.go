// Package pipeline orchestrates a scoring run for the web and USSD channels.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"kredmitra/internal/altdata"
	commonerrors "kredmitra/internal/common/errors"
	"kredmitra/internal/common/logger"
	"kredmitra/internal/common/metrics"
	"kredmitra/internal/common/observability"
	"kredmitra/internal/models"
	"kredmitra/internal/verification"
)

// ErrAnalysisFailed marks a run where the score or the loan options could not
// be produced.
var ErrAnalysisFailed = errors.New("ANALYSIS_FAILED")

// Scorer is the subset of the advisor used by a scoring run.
type Scorer interface {
	ExtractStructuredData(ctx context.Context, user *models.UserData) *models.StructuredData
	GetGeospatialAnalysis(ctx context.Context, user *models.UserData) *models.GeospatialAnalysis
	AnalyzePsychometricResponses(ctx context.Context, responses map[string]string) string
	AnalyzeFinancialProfile(ctx context.Context, user *models.UserData, profile *models.IntegratedProfile, psych string) (*models.ScoreData, error)
	GenerateLoanOptions(ctx context.Context, user *models.UserData, score *models.ScoreData) ([]models.LoanOption, error)
}

type Pipeline struct {
	scorer Scorer
	source altdata.Source
	obs    *observability.Observability
	logger logger.Logger
}

// New builds a pipeline. obs may be nil, in which case spans go to the global
// tracer provider.
func New(scorer Scorer, source altdata.Source, obs *observability.Observability, log logger.Logger) *Pipeline {
	if obs == nil {
		obs = &observability.Observability{}
	}
	return &Pipeline{scorer: scorer, source: source, obs: obs, logger: log}
}

// RunWeb scores an application submitted through the web onboarding flow.
// Structured data, geospatial and psychometric analysis run concurrently
// before the profile is scored.
func (p *Pipeline) RunWeb(ctx context.Context, user *models.UserData) (app *models.Application, err error) {
	ctx, span := p.obs.StartSpan(ctx, "pipeline.web",
		attribute.String("profession", user.Profession))
	defer func() { observability.EndSpan(span, err) }()
	defer p.record(models.ChannelWebApp, time.Now(), &app, &err)

	var (
		structured *models.StructuredData
		geo        *models.GeospatialAnalysis
		psych      string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		structured = p.scorer.ExtractStructuredData(gctx, user)
		return nil
	})
	g.Go(func() error {
		geo = p.scorer.GetGeospatialAnalysis(gctx, user)
		return nil
	})
	if user.HasPsychometric() {
		g.Go(func() error {
			psych = p.scorer.AnalyzePsychometricResponses(gctx, user.PsychometricResponses)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, analysisFailed(err)
	}

	enriched := *user
	enriched.StructuredData = structured

	score, err := p.scorer.AnalyzeFinancialProfile(ctx, &enriched, nil, psych)
	if err != nil {
		return nil, analysisFailed(err)
	}
	score.GeospatialAnalysis = geo
	score.StructuredData = structured

	loans, err := p.scorer.GenerateLoanOptions(ctx, &enriched, score)
	if err != nil {
		return nil, analysisFailed(err)
	}

	return &models.Application{
		Channel:            models.ChannelWebApp,
		UserData:           &enriched,
		ScoreData:          score,
		LoanOptions:        loans,
		GeospatialAnalysis: geo,
	}, nil
}

// RunUSSD scores an application collected by the USSD simulator. The
// applicant must match the verification records and have a complete set of
// alternative-data records.
func (p *Pipeline) RunUSSD(ctx context.Context, user *models.UserData) (app *models.Application, err error) {
	ctx, span := p.obs.StartSpan(ctx, "pipeline.ussd",
		attribute.String("profession", user.Profession))
	defer func() { observability.EndSpan(span, err) }()
	defer p.record(models.ChannelUSSD, time.Now(), &app, &err)

	if !verification.VerifyUser(user.Name, user.Aadhaar, user.Phone, user.AccountNumber) {
		return nil, commonerrors.NewVerificationFailedError("identity does not match verification records")
	}

	profile, err := altdata.BuildIntegratedProfile(ctx, p.source, user.Aadhaar, user.Pincode)
	if err != nil {
		return nil, err
	}

	var psych string
	if user.HasPsychometric() {
		psych = p.scorer.AnalyzePsychometricResponses(ctx, user.PsychometricResponses)
	}

	score, err := p.scorer.AnalyzeFinancialProfile(ctx, user, profile, psych)
	if err != nil {
		return nil, analysisFailed(err)
	}

	loans, err := p.scorer.GenerateLoanOptions(ctx, user, score)
	if err != nil {
		return nil, analysisFailed(err)
	}

	return &models.Application{
		Channel:           models.ChannelUSSD,
		UserData:          user,
		ScoreData:         score,
		LoanOptions:       loans,
		IntegratedProfile: profile,
	}, nil
}

func (p *Pipeline) record(channel string, start time.Time, app **models.Application, err *error) {
	metrics.ScoringRuns.WithLabelValues(channel, metrics.Outcome(*err)).Inc()
	metrics.ScoringDuration.WithLabelValues(channel).Observe(time.Since(start).Seconds())

	if *err != nil {
		p.logger.Error("Scoring run failed", map[string]interface{}{
			"channel": channel,
			"code":    string(commonerrors.CodeOf(*err)),
			"error":   (*err).Error(),
		})
		return
	}

	metrics.TrustScores.Observe(float64((*app).ScoreData.FinalScore))
	p.logger.Info("Scoring run completed", map[string]interface{}{
		"channel":    channel,
		"finalScore": (*app).ScoreData.FinalScore,
		"loans":      len((*app).LoanOptions),
		"durationMs": time.Since(start).Milliseconds(),
	})
}

func analysisFailed(err error) error {
	return commonerrors.NewAnalysisFailedError(fmt.Errorf("%w: %w", ErrAnalysisFailed, err))
}
