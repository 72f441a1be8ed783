// Package repayment tracks an accepted loan from community validation to
// full repayment, including crisis rescheduling and SMS reminders.
package repayment

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	commonerrors "kredmitra/internal/common/errors"
	"kredmitra/internal/common/logger"
	"kredmitra/internal/models"
	"kredmitra/internal/notify"
)

// LoanTerm is the time from activation to the first due date.
const LoanTerm = 30 * 24 * time.Hour

type Users interface {
	Get(ctx context.Context, mobile string) (*models.UserRecord, error)
	Update(ctx context.Context, mobile string, fn func(*models.UserRecord) error) (*models.UserRecord, error)
}

// Planner drafts the AI copy used by repayment flows.
type Planner interface {
	GetReschedulingOptions(ctx context.Context, crisis string, amount float64) *models.ReschedulingOptions
	GenerateReminderMessage(ctx context.Context, name, loanName string) string
}

type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) (*notify.Receipt, error)
}

// ProcessStarter starts the repayment workflow for an accepted loan.
type ProcessStarter interface {
	StartProcess(ctx context.Context, processID string, variables interface{}) (int64, error)
}

type Service struct {
	users     Users
	planner   Planner
	sms       SMSSender
	processes ProcessStarter
	processID string
	logger    logger.Logger
	now       func() time.Time
}

func NewService(users Users, planner Planner, sms SMSSender, log logger.Logger) *Service {
	return &Service{users: users, planner: planner, sms: sms, logger: log, now: time.Now}
}

// WithProcess starts processID on every accepted loan.
func (s *Service) WithProcess(starter ProcessStarter, processID string) *Service {
	s.processes = starter
	s.processID = processID
	return s
}

func noLoanError(mobile string) error {
	return commonerrors.NewBusinessRuleError("No loan has been accepted for this account.", "mobile: "+mobile)
}

// AcceptLoan selects one of the options offered by the latest application.
func (s *Service) AcceptLoan(ctx context.Context, mobile, loanName string) (*models.UserRecord, error) {
	rec, err := s.users.Update(ctx, mobile, func(rec *models.UserRecord) error {
		if rec.Application == nil {
			return commonerrors.NewBusinessRuleError("No scored application to accept a loan from.", "mobile: "+mobile)
		}
		var chosen *models.LoanOption
		for i := range rec.Application.LoanOptions {
			if strings.EqualFold(rec.Application.LoanOptions[i].Name, strings.TrimSpace(loanName)) {
				chosen = &rec.Application.LoanOptions[i]
				break
			}
		}
		if chosen == nil {
			return commonerrors.NewValidationError(fmt.Sprintf("loan option %q was not offered", loanName))
		}
		// a zero principal could never be marked repaid
		if chosen.Amount <= 0 {
			return commonerrors.NewValidationError(fmt.Sprintf("loan option %q has no principal", chosen.Name))
		}

		rec.SelectedLoan = &models.SelectedLoan{
			LoanOption: *chosen,
			Badges:     models.Badges(models.BadgeOnboarding, models.BadgeApproval),
		}
		models.Achieve(rec.WellnessBadges, models.BadgeApproval)
		rec.LoanStatus = models.LoanPending
		rec.LoanAmount = chosen.Amount
		rec.LoanRepaid = 0
		rec.AppStep = models.StepCommunityValidation
		rec.Touch(s.now())
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Loan accepted", map[string]interface{}{
		"mobile": mobile,
		"loan":   rec.SelectedLoan.Name,
		"amount": rec.SelectedLoan.Amount,
	})
	s.startProcess(ctx, rec)
	return rec, nil
}

func (s *Service) startProcess(ctx context.Context, rec *models.UserRecord) {
	if s.processes == nil || s.processID == "" {
		return
	}
	key, err := s.processes.StartProcess(ctx, s.processID, map[string]interface{}{
		"mobile":    rec.Mobile,
		"firstName": rec.FirstName,
		"loanName":  rec.SelectedLoan.Name,
		"amount":    rec.SelectedLoan.Amount,
	})
	if err != nil {
		s.logger.Warn("Failed to start repayment process", map[string]interface{}{
			"mobile": rec.Mobile,
			"error":  err.Error(),
		})
		return
	}
	s.logger.Info("Repayment process started", map[string]interface{}{"mobile": rec.Mobile, "processInstanceKey": key})
}

// CompleteValidation activates the pending loan once the community step is
// done.
func (s *Service) CompleteValidation(ctx context.Context, mobile string) (*models.UserRecord, error) {
	return s.users.Update(ctx, mobile, func(rec *models.UserRecord) error {
		if rec.SelectedLoan == nil {
			return noLoanError(mobile)
		}
		now := s.now()
		due := now.Add(LoanTerm).Format("2006-01-02")
		rec.SelectedLoan.DueDate = due
		rec.DueDate = due
		rec.LoanStatus = models.LoanActive
		rec.AppStep = models.StepRepaymentDashboard
		rec.Touch(now)
		return nil
	})
}

// RecordPayment adds amount to the repaid total, capped at the loan amount,
// and awards the progress badges.
func (s *Service) RecordPayment(ctx context.Context, mobile string, amount float64) (*models.UserRecord, error) {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, commonerrors.NewValidationError("payment amount must be positive")
	}

	return s.users.Update(ctx, mobile, func(rec *models.UserRecord) error {
		loan := rec.SelectedLoan
		if loan == nil {
			return noLoanError(mobile)
		}
		if rec.LoanStatus != models.LoanActive {
			return commonerrors.NewBusinessRuleError("Payments are accepted only for active loans.",
				"loanStatus: "+rec.LoanStatus)
		}

		loan.Repaid = math.Min(loan.Repaid+amount, loan.Amount)
		rec.LoanRepaid = loan.Repaid

		for _, id := range earnedBadges(loan.Progress(), loan.Repaid) {
			models.Achieve(loan.Badges, id)
			models.Achieve(rec.WellnessBadges, id)
		}
		if loan.Progress() >= 1 {
			rec.LoanStatus = models.LoanCompleted
			rec.DaysOverdue = 0
			rec.DueDate = ""
		}
		rec.Touch(s.now())

		s.logger.Info("Payment recorded", map[string]interface{}{
			"mobile":   mobile,
			"amount":   amount,
			"repaid":   loan.Repaid,
			"progress": loan.Progress(),
		})
		return nil
	})
}

func earnedBadges(progress, repaid float64) []string {
	var ids []string
	if repaid > 0 {
		ids = append(ids, models.BadgeFirstPayment)
	}
	if progress >= 0.5 {
		ids = append(ids, models.BadgeHalfway)
	}
	if progress >= 1 {
		ids = append(ids, models.BadgeFullRepayment)
	}
	return ids
}

// ReportCrisis records a hardship and the rescheduling options drafted for
// it. The crisis then shows in the admin queue.
func (s *Service) ReportCrisis(ctx context.Context, mobile, description string) (*models.ReschedulingOptions, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, commonerrors.NewValidationError("crisis description is required")
	}

	rec, err := s.users.Get(ctx, mobile)
	if err != nil {
		return nil, err
	}
	amount := rec.LoanAmount
	if rec.SelectedLoan != nil {
		amount = rec.SelectedLoan.Amount
	}

	opts := s.planner.GetReschedulingOptions(ctx, description, amount)

	_, err = s.users.Update(ctx, mobile, func(rec *models.UserRecord) error {
		rec.InCrisis = true
		rec.CrisisInfo = models.CrisisInfo{
			Description:  description,
			AISuggestion: opts.Intro,
			Options:      opts.Options,
		}
		rec.Touch(s.now())
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Warn("Crisis reported", map[string]interface{}{"mobile": mobile, "options": len(opts.Options)})
	return opts, nil
}

// SendReminder texts the borrower a friendly repayment nudge and returns it.
func (s *Service) SendReminder(ctx context.Context, mobile string) (string, error) {
	rec, err := s.users.Get(ctx, mobile)
	if err != nil {
		return "", err
	}
	if rec.SelectedLoan == nil {
		return "", noLoanError(mobile)
	}

	msg := s.planner.GenerateReminderMessage(ctx, rec.FirstName, rec.SelectedLoan.Name)
	if _, err := s.sms.SendSMS(ctx, rec.Mobile, msg); err != nil {
		return "", err
	}
	return msg, nil
}
