// Package admin serves the operations dashboard: portfolio statistics, user
// search, the crisis intervention queue and reports.
package admin

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	commonerrors "kredmitra/internal/common/errors"
	"kredmitra/internal/common/logger"
	"kredmitra/internal/models"
	"kredmitra/internal/notify"
)

type Users interface {
	List(ctx context.Context) ([]*models.UserRecord, error)
	Update(ctx context.Context, mobile string, fn func(*models.UserRecord) error) (*models.UserRecord, error)
}

// Searcher finds users by name or mobile substring.
type Searcher interface {
	Search(ctx context.Context, term string) ([]string, error)
}

type Notifier interface {
	SendSMS(ctx context.Context, phone, message string) (*notify.Receipt, error)
	EmailOps(ctx context.Context, subject, body string) (*notify.Receipt, error)
}

// Crisis queue actions.
const (
	ActionApprove = "approve"
	ActionModify  = "modify"
	ActionContact = "contact"
)

const recentUsersLimit = 5

// PortfolioStatuses is the fixed order of the portfolio overview.
var PortfolioStatuses = []string{models.LoanActive, models.LoanPending, models.LoanCompleted, models.LoanRejected}

// ScoreBuckets is the fixed order of the score distribution report.
var ScoreBuckets = []string{"< 600", "600-700", "700-800", "> 800"}

type Stats struct {
	TotalUsers      int     `json:"totalUsers"`
	ActiveLoans     int     `json:"activeLoans"`
	TotalDisbursed  float64 `json:"totalDisbursed"`
	PortfolioAtRisk float64 `json:"portfolioAtRisk"`
}

type PortfolioSlice struct {
	Status     string  `json:"status"`
	Count      int     `json:"count"`
	TotalValue float64 `json:"totalValue"`
}

type Bucket struct {
	Name  string `json:"name"`
	Users int    `json:"users"`
}

type Reports struct {
	ScoreDistribution []Bucket       `json:"scoreDistribution"`
	LoanStatus        map[string]int `json:"loanStatus"`
	FeedbackSentiment map[string]int `json:"feedbackSentiment"`
	FeedbackCategory  map[string]int `json:"feedbackCategory"`
}

type CoachLog struct {
	Mobile   string               `json:"mobile"`
	Name     string               `json:"name"`
	Messages []models.ChatMessage `json:"messages"`
}

type Service struct {
	users    Users
	search   Searcher
	notifier Notifier
	logger   logger.Logger
	now      func() time.Time
}

func NewService(users Users, notifier Notifier, log logger.Logger) *Service {
	return &Service{users: users, notifier: notifier, logger: log, now: time.Now}
}

// WithSearch routes Search through s. Without it, or when it fails, search
// scans the user list.
func (s *Service) WithSearch(search Searcher) *Service {
	s.search = search
	return s
}

func (s *Service) Users(ctx context.Context) ([]models.UserRecord, error) {
	recs, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	return public(recs), nil
}

func public(recs []*models.UserRecord) []models.UserRecord {
	out := make([]models.UserRecord, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Public())
	}
	return out
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	recs, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}

	st := &Stats{TotalUsers: len(recs)}
	atRisk := 0
	for _, r := range recs {
		st.TotalDisbursed += r.LoanAmount
		if r.LoanStatus != models.LoanActive {
			continue
		}
		st.ActiveLoans++
		if r.RiskLevel == models.RiskHigh {
			atRisk++
		}
	}
	st.PortfolioAtRisk = float64(atRisk) / float64(max(st.ActiveLoans, 1))
	return st, nil
}

func (s *Service) PortfolioOverview(ctx context.Context) ([]PortfolioSlice, error) {
	recs, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]PortfolioSlice, len(PortfolioStatuses))
	for i, status := range PortfolioStatuses {
		out[i].Status = status
		for _, r := range recs {
			if r.LoanStatus == status {
				out[i].Count++
				out[i].TotalValue += r.LoanAmount
			}
		}
	}
	return out, nil
}

// RecentUsers returns the most recently active users, newest first.
func (s *Service) RecentUsers(ctx context.Context) ([]models.UserRecord, error) {
	recs, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return activity(recs[i]).After(activity(recs[j]))
	})
	if len(recs) > recentUsersLimit {
		recs = recs[:recentUsersLimit]
	}
	return public(recs), nil
}

// activity parses LastActivity. Unparseable dates sort last.
func activity(r *models.UserRecord) time.Time {
	t, err := time.Parse("2006-01-02", r.LastActivity)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Search matches term case-insensitively against full names and mobile
// numbers and returns at most maxSearchHits users whichever path answers.
// An empty term returns every user.
func (s *Service) Search(ctx context.Context, term string) ([]models.UserRecord, error) {
	recs, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return public(recs), nil
	}

	if s.search != nil {
		mobiles, err := s.search.Search(ctx, term)
		if err == nil {
			return pick(recs, mobiles), nil
		}
		s.logger.Warn("User index search failed, scanning user list", map[string]interface{}{
			"term":  term,
			"error": err.Error(),
		})
	}

	var out []*models.UserRecord
	for _, r := range recs {
		if len(out) == maxSearchHits {
			break
		}
		if strings.Contains(strings.ToLower(r.FullName()), term) || strings.Contains(r.Mobile, term) {
			out = append(out, r)
		}
	}
	return public(out), nil
}

// pick keeps recs whose mobile is in mobiles, in list order.
func pick(recs []*models.UserRecord, mobiles []string) []models.UserRecord {
	want := make(map[string]bool, len(mobiles))
	for _, m := range mobiles {
		want[m] = true
	}
	var out []*models.UserRecord
	for _, r := range recs {
		if want[r.Mobile] {
			out = append(out, r)
		}
	}
	return public(out)
}

func (s *Service) CrisisQueue(ctx context.Context) ([]models.UserRecord, error) {
	recs, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []*models.UserRecord
	for _, r := range recs {
		if r.InCrisis {
			out = append(out, r)
		}
	}
	return public(out), nil
}

// CrisisAction resolves a queued crisis and returns the confirmation shown
// to the operator.
func (s *Service) CrisisAction(ctx context.Context, mobile, action string) (string, error) {
	switch strings.ToLower(action) {
	case ActionApprove:
		rec, err := s.users.Update(ctx, mobile, func(r *models.UserRecord) error {
			if !r.InCrisis {
				return commonerrors.NewBusinessRuleError("User is not in the crisis queue.", "mobile: "+mobile)
			}
			r.InCrisis = false
			r.Touch(s.now())
			return nil
		})
		if err != nil {
			return "", err
		}
		s.notifyApproval(ctx, rec)
		return fmt.Sprintf("Suggestion approved for %s. User status updated.", rec.FirstName), nil

	case ActionModify, ActionContact:
		rec, err := s.find(ctx, mobile)
		if err != nil {
			return "", err
		}
		if strings.ToLower(action) == ActionModify {
			return fmt.Sprintf("Modification plan initiated for %s.", rec.FirstName), nil
		}
		return fmt.Sprintf("Contact request sent for %s.", rec.FirstName), nil
	}
	return "", commonerrors.NewValidationError("unknown crisis action: " + action)
}

// notifyApproval tells the borrower and ops about an approved plan. Delivery
// failures are logged; the approval already stands.
func (s *Service) notifyApproval(ctx context.Context, rec *models.UserRecord) {
	if s.notifier == nil {
		return
	}
	suggestion := rec.CrisisInfo.AISuggestion
	sms := fmt.Sprintf("Hello %s, KredMitra has approved a support plan for your loan. Our team will guide you through the next steps.", rec.FirstName)
	if _, err := s.notifier.SendSMS(ctx, rec.Mobile, sms); err != nil {
		s.logger.Warn("Crisis approval SMS failed", map[string]interface{}{"mobile": rec.Mobile, "error": err.Error()})
	}

	body := fmt.Sprintf("Crisis plan approved for %s (%s).\n\nSituation: %s\nApproved suggestion: %s\n",
		rec.FullName(), rec.Mobile, rec.CrisisInfo.Description, suggestion)
	if _, err := s.notifier.EmailOps(ctx, "Crisis plan approved: "+rec.FullName(), body); err != nil {
		s.logger.Warn("Crisis approval email failed", map[string]interface{}{"mobile": rec.Mobile, "error": err.Error()})
	}
}

func (s *Service) find(ctx context.Context, mobile string) (*models.UserRecord, error) {
	recs, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range recs {
		if r.Mobile == mobile {
			return r, nil
		}
	}
	return nil, commonerrors.NewUserNotFoundError(mobile)
}

func scoreBucket(score int) string {
	switch {
	case score < 600:
		return ScoreBuckets[0]
	case score <= 700:
		return ScoreBuckets[1]
	case score <= 800:
		return ScoreBuckets[2]
	}
	return ScoreBuckets[3]
}

func (s *Service) Reports(ctx context.Context) (*Reports, error) {
	recs, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(ScoreBuckets))
	rep := &Reports{
		LoanStatus:        map[string]int{},
		FeedbackSentiment: map[string]int{},
		FeedbackCategory:  map[string]int{},
	}
	for _, r := range recs {
		counts[scoreBucket(r.CreditScore)]++

		status := r.LoanStatus
		if status == "" {
			status = models.LoanNone
		}
		rep.LoanStatus[status]++

		for _, f := range r.Feedback {
			if f.Sentiment != "" {
				rep.FeedbackSentiment[f.Sentiment]++
			}
			if f.Category != "" {
				rep.FeedbackCategory[f.Category]++
			}
		}
	}
	for _, name := range ScoreBuckets {
		rep.ScoreDistribution = append(rep.ScoreDistribution, Bucket{Name: name, Users: counts[name]})
	}
	return rep, nil
}

func (s *Service) CoachLogs(ctx context.Context) ([]CoachLog, error) {
	recs, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []CoachLog
	for _, r := range recs {
		if len(r.ChatHistory) == 0 {
			continue
		}
		out = append(out, CoachLog{Mobile: r.Mobile, Name: r.FullName(), Messages: r.ChatHistory})
	}
	return out, nil
}
