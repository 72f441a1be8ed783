package store

import (
	"context"
	"fmt"

	"kredmitra/internal/common/auth"
	"kredmitra/internal/common/database"
	"kredmitra/internal/common/logger"
	"kredmitra/internal/models"
)

const (
	// SeedMarkerKey is bumped whenever the demo data set changes.
	SeedMarkerKey = "kredmitra_users_seeded_v6"

	DemoPassword = "password123"
)

type Seeder struct {
	users  *Users
	chats  *Chats
	redis  *database.RedisClient
	hasher *auth.Hasher
	logger logger.Logger
}

func NewSeeder(users *Users, chats *Chats, redis *database.RedisClient, hasher *auth.Hasher, log logger.Logger) *Seeder {
	return &Seeder{users: users, chats: chats, redis: redis, hasher: hasher, logger: log}
}

// Seed replaces every user with the demo population. It is a no-op once the
// marker is set unless force is true. It reports whether seeding ran.
func (s *Seeder) Seed(ctx context.Context, force bool) (bool, error) {
	if !force {
		n, err := s.redis.Client.Exists(ctx, SeedMarkerKey).Result()
		if err != nil {
			return false, fmt.Errorf("check seed marker: %w", err)
		}
		if n > 0 {
			return false, nil
		}
	}

	hash, err := s.hasher.Hash(DemoPassword)
	if err != nil {
		return false, err
	}

	if err := s.users.Reset(ctx); err != nil {
		return false, err
	}
	for _, rec := range DemoUsers(hash) {
		if err := s.users.Create(ctx, rec); err != nil {
			return false, fmt.Errorf("seed %s: %w", rec.Mobile, err)
		}
		if len(rec.ChatHistory) > 0 {
			err = s.chats.Save(ctx, rec.Mobile, rec.ChatHistory)
		} else {
			err = s.chats.Clear(ctx, rec.Mobile)
		}
		if err != nil {
			return false, err
		}
	}

	if err := s.redis.Client.Set(ctx, SeedMarkerKey, "true", 0).Err(); err != nil {
		return false, fmt.Errorf("set seed marker: %w", err)
	}
	s.logger.Info("Seeded demo users", map[string]interface{}{"count": len(DemoUsers(hash))})
	return true, nil
}

// DemoUsers is the fixed demo population. Every account uses DemoPassword.
func DemoUsers(passwordHash string) []*models.UserRecord {
	return []*models.UserRecord{
		{
			FirstName: "SAHIL", LastName: "VARSHNEY", DOB: "1990-05-15", Mobile: "9876543210", PasswordHash: passwordHash,
			CreditScore: 750, RiskLevel: models.RiskLow, Status: "Active", LastActivity: "2023-11-15", RiskFlags: []string{},
			SimAgeDays: 1245, RechargesLast6M: 32, AvgTopUp: 15.5, RechargeVariance: 2.3, MobilityIndex: 7.8, SimSwaps: 0,
			AppStep: models.StepRepaymentDashboard, Channel: models.ChannelWebApp,
			LoanStatus: models.LoanActive, LoanAmount: 5000, LoanRepaid: 2500, Pincode: "400001", DueDate: "2023-12-15",
			WellnessBadges: models.Badges(models.BadgeOnboarding, models.BadgeApproval, models.BadgeFirstPayment, models.BadgeHalfway),
			Feedback: []models.Feedback{
				{Text: "The app is very easy to use!", Sentiment: models.SentimentPositive, Category: "UI/UX"},
			},
			ChatHistory: []models.ChatMessage{
				{Role: models.RoleModel, Text: "Hello SAHIL! How can I help?"},
				{Role: models.RoleUser, Text: "What is my current balance?"},
			},
		},
		{
			FirstName: "GIRIJESH", LastName: "KUMAR", DOB: "1985-08-20", Mobile: "9876543211", PasswordHash: passwordHash,
			CreditScore: 620, RiskLevel: models.RiskMedium, Status: "Active", LastActivity: "2023-11-10", RiskFlags: []string{"SIM Swap"},
			SimAgeDays: 350, RechargesLast6M: 12, AvgTopUp: 8.75, RechargeVariance: 5.1, MobilityIndex: 4.2, SimSwaps: 1,
			AppStep: models.StepRepaymentDashboard, Channel: models.ChannelUSSD,
			LoanStatus: models.LoanActive, LoanAmount: 8000, LoanRepaid: 1000, Pincode: "110001", DueDate: "2023-11-05", DaysOverdue: 15,
			InCrisis: true,
			CrisisInfo: models.CrisisInfo{
				Description:  "Lost my job due to company downsizing. Struggling to find new work.",
				AISuggestion: "Offer a 2-month payment pause and connect with local job support services.",
			},
			WellnessBadges: models.Badges(models.BadgeOnboarding, models.BadgeApproval),
			Feedback: []models.Feedback{
				{Text: "The interest rate seems a bit high.", Sentiment: models.SentimentNegative, Category: "Loan Terms"},
			},
			ChatHistory: []models.ChatMessage{},
		},
		{
			FirstName: "LIVIA", LastName: "ROSE", DOB: "1992-01-30", Mobile: "9876543212", PasswordHash: passwordHash,
			CreditScore: 810, RiskLevel: models.RiskLow, Status: "Active", LastActivity: "2023-11-14", RiskFlags: []string{},
			SimAgeDays: 2100, RechargesLast6M: 36, AvgTopUp: 25, RechargeVariance: 1.5, MobilityIndex: 8.9, SimSwaps: 0,
			AppStep: models.StepRepaymentDashboard, Channel: models.ChannelWebApp,
			LoanStatus: models.LoanCompleted, LoanAmount: 10000, LoanRepaid: 10000, Pincode: "560001",
			WellnessBadges: models.Badges(models.BadgeOnboarding, models.BadgeApproval, models.BadgeFirstPayment, models.BadgeHalfway, models.BadgeFullRepayment),
			Feedback: []models.Feedback{
				{Text: "The financial coach is very helpful.", Sentiment: models.SentimentPositive, Category: "AI Coach"},
			},
			ChatHistory: []models.ChatMessage{
				{Role: models.RoleModel, Text: "Welcome LIVIA!"},
				{Role: models.RoleUser, Text: "How can I improve my savings?"},
				{Role: models.RoleModel, Text: "A great way is to set a small, achievable goal first!"},
			},
		},
		{
			FirstName: "NISANTH", LastName: "KUMAR", DOB: "1988-11-05", Mobile: "9876543213", PasswordHash: passwordHash,
			CreditScore: 700, RiskLevel: models.RiskMedium, Status: "Active", LastActivity: "2023-11-13", RiskFlags: []string{"Multiple Aadhaar Linked"},
			SimAgeDays: 800, RechargesLast6M: 25, AvgTopUp: 12, RechargeVariance: 3.0, MobilityIndex: 6.5, SimSwaps: 0,
			AppStep: models.StepCommunityValidation, Channel: models.ChannelWebApp,
			LoanStatus: models.LoanPending, LoanAmount: 7500, LoanRepaid: 0, Pincode: "600001",
			WellnessBadges: models.Badges(models.BadgeOnboarding),
			Feedback:       []models.Feedback{},
			ChatHistory:    []models.ChatMessage{},
		},
		{
			FirstName: "ISHRIT", LastName: "RAJ", DOB: "1995-03-25", Mobile: "9876543214", PasswordHash: passwordHash,
			CreditScore: 580, RiskLevel: models.RiskHigh, Status: "Inactive", LastActivity: "2023-11-09", RiskFlags: []string{"High Churn Risk"},
			SimAgeDays: 150, RechargesLast6M: 5, AvgTopUp: 5.5, RechargeVariance: 8.2, MobilityIndex: 2.1, SimSwaps: 0,
			AppStep: models.StepOnboarding, Channel: models.ChannelUSSD,
			LoanStatus: models.LoanRejected, LoanAmount: 0, LoanRepaid: 0, Pincode: "700001",
			WellnessBadges: models.Badges(),
			Feedback: []models.Feedback{
				{Text: "The application process was confusing.", Sentiment: models.SentimentNegative, Category: "Onboarding"},
			},
			ChatHistory: []models.ChatMessage{},
		},
	}
}
