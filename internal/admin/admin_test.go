package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commonerrors "kredmitra/internal/common/errors"
	"kredmitra/internal/common/logger"
	"kredmitra/internal/models"
	"kredmitra/internal/notify"
	"kredmitra/internal/store"
)

// ==========================
// Test Helper Functions
// ==========================

type memoryUsers struct {
	recs []*models.UserRecord
}

func (m *memoryUsers) List(context.Context) ([]*models.UserRecord, error) {
	out := make([]*models.UserRecord, len(m.recs))
	copy(out, m.recs)
	return out, nil
}

func (m *memoryUsers) Update(_ context.Context, mobile string, fn func(*models.UserRecord) error) (*models.UserRecord, error) {
	for _, r := range m.recs {
		if r.Mobile == mobile {
			return r, fn(r)
		}
	}
	return nil, commonerrors.NewUserNotFoundError(mobile)
}

type stubNotifier struct {
	sms    []string
	emails []string
	err    error
}

func (n *stubNotifier) SendSMS(_ context.Context, phone, _ string) (*notify.Receipt, error) {
	n.sms = append(n.sms, phone)
	return &notify.Receipt{Channel: notify.ChannelSMS}, n.err
}

func (n *stubNotifier) EmailOps(_ context.Context, subject, _ string) (*notify.Receipt, error) {
	n.emails = append(n.emails, subject)
	return &notify.Receipt{Channel: notify.ChannelEmail}, n.err
}

type stubSearcher struct {
	mobiles []string
	err     error
	terms   []string
}

func (s *stubSearcher) Search(_ context.Context, term string) ([]string, error) {
	s.terms = append(s.terms, term)
	return s.mobiles, s.err
}

func newService(t *testing.T) (*Service, *memoryUsers, *stubNotifier) {
	t.Helper()
	users := &memoryUsers{recs: store.DemoUsers("$2a$hash")}
	n := &stubNotifier{}
	return NewService(users, n, logger.NewTestLogger(t)), users, n
}

func mobiles(recs []models.UserRecord) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Mobile)
	}
	return out
}

// ==========================
// Dashboard
// ==========================

func TestService_Stats(t *testing.T) {
	svc, users, _ := newService(t)

	st, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, st.TotalUsers)
	assert.Equal(t, 2, st.ActiveLoans)
	assert.Equal(t, 30500.0, st.TotalDisbursed)
	assert.Zero(t, st.PortfolioAtRisk)

	users.recs[1].RiskLevel = models.RiskHigh
	st, err = svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.5, st.PortfolioAtRisk)
}

func TestService_StatsEmpty(t *testing.T) {
	svc := NewService(&memoryUsers{}, nil, logger.NewNoOpLogger())
	st, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{}, *st)
}

func TestService_PortfolioOverview(t *testing.T) {
	svc, _, _ := newService(t)

	got, err := svc.PortfolioOverview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []PortfolioSlice{
		{Status: models.LoanActive, Count: 2, TotalValue: 13000},
		{Status: models.LoanPending, Count: 1, TotalValue: 7500},
		{Status: models.LoanCompleted, Count: 1, TotalValue: 10000},
		{Status: models.LoanRejected, Count: 1, TotalValue: 0},
	}, got)
}

func TestService_RecentUsers(t *testing.T) {
	svc, users, _ := newService(t)
	users.recs = append(users.recs, &models.UserRecord{FirstName: "NEW", Mobile: "9000000001", LastActivity: "2024-01-02"})

	got, err := svc.RecentUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"9000000001", "9876543210", "9876543212", "9876543213", "9876543211"}, mobiles(got))
	for _, r := range got {
		assert.Empty(t, r.PasswordHash)
	}
}

// ==========================
// Search
// ==========================

func TestService_Search(t *testing.T) {
	tests := []struct {
		name     string
		search   *stubSearcher
		term     string
		validate func(t *testing.T, got []models.UserRecord, s *stubSearcher)
	}{
		{
			name: "scan by surname",
			term: "Kumar",
			validate: func(t *testing.T, got []models.UserRecord, _ *stubSearcher) {
				assert.Equal(t, []string{"9876543211", "9876543213"}, mobiles(got))
			},
		},
		{
			name: "scan by partial mobile",
			term: "3213",
			validate: func(t *testing.T, got []models.UserRecord, _ *stubSearcher) {
				assert.Equal(t, []string{"9876543213"}, mobiles(got))
			},
		},
		{
			name: "empty term lists everyone",
			term: "  ",
			validate: func(t *testing.T, got []models.UserRecord, _ *stubSearcher) {
				assert.Len(t, got, 5)
			},
		},
		{
			name:   "index hits",
			search: &stubSearcher{mobiles: []string{"9876543214", "9876543212"}},
			term:   "R",
			validate: func(t *testing.T, got []models.UserRecord, s *stubSearcher) {
				assert.Equal(t, []string{"9876543212", "9876543214"}, mobiles(got))
				assert.Equal(t, []string{"r"}, s.terms)
			},
		},
		{
			name:   "index down falls back to scan",
			search: &stubSearcher{err: errors.New("connection refused")},
			term:   "livia",
			validate: func(t *testing.T, got []models.UserRecord, s *stubSearcher) {
				assert.Equal(t, []string{"9876543212"}, mobiles(got))
				assert.Len(t, s.terms, 1)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newService(t)
			if tt.search != nil {
				svc.WithSearch(tt.search)
			}
			got, err := svc.Search(context.Background(), tt.term)
			require.NoError(t, err)
			tt.validate(t, got, tt.search)
		})
	}
}

func TestService_SearchScanIsCapped(t *testing.T) {
	users := &memoryUsers{}
	for i := 0; i < maxSearchHits+50; i++ {
		users.recs = append(users.recs, &models.UserRecord{
			FirstName: "Ravi",
			LastName:  "Kumar",
			Mobile:    fmt.Sprintf("98%08d", i),
		})
	}
	svc := NewService(users, &stubNotifier{}, logger.NewTestLogger(t))

	got, err := svc.Search(context.Background(), "kumar")
	require.NoError(t, err)
	require.Len(t, got, maxSearchHits)
	assert.Equal(t, "9800000000", got[0].Mobile)

	// an empty term is a listing, not a search
	got, err = svc.Search(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, got, maxSearchHits+50)
}

// ==========================
// Crisis queue
// ==========================

func TestService_CrisisQueue(t *testing.T) {
	svc, _, _ := newService(t)
	got, err := svc.CrisisQueue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"9876543211"}, mobiles(got))
}

func TestService_CrisisAction(t *testing.T) {
	tests := []struct {
		name     string
		mobile   string
		action   string
		validate func(t *testing.T, msg string, err error, users *memoryUsers, n *stubNotifier)
	}{
		{
			name:   "approve",
			mobile: "9876543211",
			action: "Approve",
			validate: func(t *testing.T, msg string, err error, users *memoryUsers, n *stubNotifier) {
				require.NoError(t, err)
				assert.Equal(t, "Suggestion approved for GIRIJESH. User status updated.", msg)
				assert.False(t, users.recs[1].InCrisis)
				assert.Equal(t, []string{"9876543211"}, n.sms)
				assert.Equal(t, []string{"Crisis plan approved: GIRIJESH KUMAR"}, n.emails)
			},
		},
		{
			name:   "modify",
			mobile: "9876543211",
			action: ActionModify,
			validate: func(t *testing.T, msg string, err error, users *memoryUsers, n *stubNotifier) {
				require.NoError(t, err)
				assert.Equal(t, "Modification plan initiated for GIRIJESH.", msg)
				assert.True(t, users.recs[1].InCrisis)
				assert.Empty(t, n.sms)
			},
		},
		{
			name:   "contact",
			mobile: "9876543211",
			action: ActionContact,
			validate: func(t *testing.T, msg string, err error, _ *memoryUsers, _ *stubNotifier) {
				require.NoError(t, err)
				assert.Equal(t, "Contact request sent for GIRIJESH.", msg)
			},
		},
		{
			name:   "approve user not in crisis",
			mobile: "9876543210",
			action: ActionApprove,
			validate: func(t *testing.T, _ string, err error, _ *memoryUsers, n *stubNotifier) {
				assert.Equal(t, commonerrors.ErrCodeBusinessRuleViolated, commonerrors.CodeOf(err))
				assert.Empty(t, n.sms)
			},
		},
		{
			name:   "unknown action",
			mobile: "9876543211",
			action: "escalate",
			validate: func(t *testing.T, _ string, err error, _ *memoryUsers, _ *stubNotifier) {
				assert.Equal(t, commonerrors.ErrCodeValidationFailed, commonerrors.CodeOf(err))
			},
		},
		{
			name:   "unknown user",
			mobile: "9000000000",
			action: ActionContact,
			validate: func(t *testing.T, _ string, err error, _ *memoryUsers, _ *stubNotifier) {
				assert.Equal(t, commonerrors.ErrCodeUserNotFound, commonerrors.CodeOf(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, users, n := newService(t)
			msg, err := svc.CrisisAction(context.Background(), tt.mobile, tt.action)
			tt.validate(t, msg, err, users, n)
		})
	}
}

func TestService_CrisisApproveSurvivesNotificationFailure(t *testing.T) {
	svc, users, n := newService(t)
	n.err = errors.New("sns throttled")

	msg, err := svc.CrisisAction(context.Background(), "9876543211", ActionApprove)
	require.NoError(t, err)
	assert.Contains(t, msg, "GIRIJESH")
	assert.False(t, users.recs[1].InCrisis)
}

// ==========================
// Reports
// ==========================

func TestService_Reports(t *testing.T) {
	svc, users, _ := newService(t)
	users.recs = append(users.recs, &models.UserRecord{Mobile: "9000000001", CreditScore: 801})

	rep, err := svc.Reports(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Bucket{
		{Name: "< 600", Users: 1},
		{Name: "600-700", Users: 2},
		{Name: "700-800", Users: 1},
		{Name: "> 800", Users: 2},
	}, rep.ScoreDistribution)
	assert.Equal(t, map[string]int{"Active": 2, "Pending": 1, "Completed": 1, "Rejected": 1, "None": 1}, rep.LoanStatus)
	assert.Equal(t, 2, rep.FeedbackSentiment[models.SentimentPositive])
	assert.Equal(t, 2, rep.FeedbackSentiment[models.SentimentNegative])
	assert.Equal(t, 1, rep.FeedbackCategory["AI Coach"])
}

func TestScoreBucket(t *testing.T) {
	assert.Equal(t, "< 600", scoreBucket(599))
	assert.Equal(t, "600-700", scoreBucket(600))
	assert.Equal(t, "600-700", scoreBucket(700))
	assert.Equal(t, "700-800", scoreBucket(800))
	assert.Equal(t, "> 800", scoreBucket(801))
}

func TestService_CoachLogs(t *testing.T) {
	svc, _, _ := newService(t)
	logs, err := svc.CoachLogs(context.Background())
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "SAHIL VARSHNEY", logs[0].Name)
	assert.Len(t, logs[1].Messages, 3)
}

// ==========================
// Elasticsearch index
// ==========================

type fakeES struct {
	mu       sync.Mutex
	indexed  map[string]userDocument
	lastBody string
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case strings.Contains(r.URL.Path, "/_doc/"):
		var doc userDocument
		_ = json.Unmarshal(body, &doc)
		f.indexed[doc.Mobile] = doc
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	case strings.HasSuffix(r.URL.Path, "/_search"):
		f.lastBody = string(body)
		_, _ = w.Write([]byte(`{"hits":{"total":{"value":1},"hits":[{"_source":{"mobile":"9876543213"}}]}}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}`))
	}
}

func newUserIndex(t *testing.T) (*UserIndex, *fakeES) {
	t.Helper()
	fake := &fakeES{indexed: map[string]userDocument{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return NewUserIndex(client, "kredmitra-users"), fake
}

func TestUserIndex_IndexAndSearch(t *testing.T) {
	ix, fake := newUserIndex(t)
	ctx := context.Background()

	rec := store.DemoUsers("")[3]
	require.NoError(t, ix.IndexUser(ctx, rec))
	doc := fake.indexed["9876543213"]
	assert.Equal(t, "NISANTH KUMAR", doc.FullName)
	assert.Equal(t, "nisanth kumar", doc.FullNameLower)
	assert.Equal(t, models.LoanPending, doc.LoanStatus)

	got, err := ix.Search(ctx, "nis*")
	require.NoError(t, err)
	assert.Equal(t, []string{"9876543213"}, got)
	assert.Contains(t, fake.lastBody, `"*nis\\**"`)
	assert.Contains(t, fake.lastBody, "fullNameLower")
}

func TestUserIndex_ServiceSearch(t *testing.T) {
	ix, _ := newUserIndex(t)
	svc, _, _ := newService(t)
	svc.WithSearch(ix)

	got, err := svc.Search(context.Background(), "kumar")
	require.NoError(t, err)
	assert.Equal(t, []string{"9876543213"}, mobiles(got))
}
