// Package api exposes the web app, USSD gateway and admin console over HTTP.
package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"kredmitra/internal/accounts"
	"kredmitra/internal/admin"
	"kredmitra/internal/advisor"
	"kredmitra/internal/coach"
	"kredmitra/internal/common/auth"
	commonerrors "kredmitra/internal/common/errors"
	"kredmitra/internal/common/logger"
	"kredmitra/internal/common/metrics"
	"kredmitra/internal/community"
	"kredmitra/internal/models"
	"kredmitra/internal/onboarding"
	"kredmitra/internal/repayment"
	"kredmitra/internal/ussd"
)

const defaultAITimeout = 60 * time.Second

type UserStore interface {
	Get(ctx context.Context, mobile string) (*models.UserRecord, error)
	Update(ctx context.Context, mobile string, fn func(*models.UserRecord) error) (*models.UserRecord, error)
}

// Dependencies collects the services behind the routes. Every field is
// required except AllowedOrigins and AITimeout.
type Dependencies struct {
	Accounts   *accounts.Service
	Onboarding *onboarding.Service
	Repayment  *repayment.Service
	Coach      *coach.Service
	Community  *community.Service
	Admin      *admin.Service
	USSD       *ussd.Gateway
	Advisor    *advisor.Advisor
	Users      UserStore

	AllowedOrigins []string
	AITimeout      time.Duration
}

type Handlers struct {
	deps   Dependencies
	logger logger.Logger
	now    func() time.Time
}

// NewRouter wires the API routes with logging, CORS and bearer auth.
func NewRouter(deps Dependencies, log logger.Logger) http.Handler {
	if deps.AITimeout <= 0 {
		deps.AITimeout = defaultAITimeout
	}
	h := &Handlers{deps: deps, logger: log, now: time.Now}
	mux := http.NewServeMux()

	user := h.requireAuth
	adm := func(next http.HandlerFunc) http.Handler { return h.requireAuth(h.requireAdmin(next)) }

	mux.HandleFunc("POST /api/auth/signup", h.handleSignup)
	mux.HandleFunc("POST /api/auth/login", h.handleLogin)
	mux.HandleFunc("POST /api/auth/admin/login", h.handleAdminLogin)
	mux.Handle("POST /api/auth/logout", user(http.HandlerFunc(h.handleLogout)))
	mux.Handle("GET /api/me", user(http.HandlerFunc(h.handleMe)))

	mux.Handle("POST /api/onboarding/otp", user(http.HandlerFunc(h.handleSendOTP)))
	mux.Handle("POST /api/onboarding/otp/verify", user(http.HandlerFunc(h.handleVerifyOTP)))
	mux.Handle("POST /api/onboarding/validate", user(http.HandlerFunc(h.handleValidate)))
	mux.Handle("POST /api/onboarding/hints", user(http.HandlerFunc(h.handleHints)))
	mux.Handle("GET /api/onboarding/examples/{kind}", user(http.HandlerFunc(h.handleExample)))
	mux.Handle("POST /api/onboarding/help", user(http.HandlerFunc(h.handleHelp)))
	mux.Handle("POST /api/onboarding/consent", user(http.HandlerFunc(h.handleConsent)))
	mux.Handle("POST /api/onboarding/clarify", user(http.HandlerFunc(h.handleClarify)))
	mux.Handle("POST /api/onboarding/document/verify", user(http.HandlerFunc(h.handleDocumentVerify)))
	mux.Handle("POST /api/onboarding/document/ocr", user(http.HandlerFunc(h.handleDocumentOCR)))
	mux.Handle("POST /api/applications", user(http.HandlerFunc(h.handleSubmitApplication)))

	mux.HandleFunc("POST /api/ussd", h.handleUSSD)

	mux.Handle("POST /api/loans/accept", user(http.HandlerFunc(h.handleAcceptLoan)))
	mux.Handle("POST /api/loans/validate", user(http.HandlerFunc(h.handleCompleteValidation)))
	mux.Handle("POST /api/loans/payments", user(http.HandlerFunc(h.handlePayment)))
	mux.Handle("POST /api/loans/crisis", user(http.HandlerFunc(h.handleCrisis)))
	mux.Handle("POST /api/loans/reminder", user(http.HandlerFunc(h.handleReminder)))

	mux.Handle("GET /api/score/explain", user(http.HandlerFunc(h.handleExplainScore)))
	mux.Handle("POST /api/score/simulate", user(http.HandlerFunc(h.handleSimulateScore)))
	mux.Handle("GET /api/score/deep-dive", user(http.HandlerFunc(h.handleDeepDive)))
	mux.Handle("GET /api/score/insight", user(http.HandlerFunc(h.handleInsight)))

	mux.Handle("GET /api/wellness/tip", user(http.HandlerFunc(h.handleTip)))
	mux.Handle("POST /api/wellness/savings-plan", user(http.HandlerFunc(h.handleSavingsPlan)))
	mux.Handle("POST /api/wellness/budget", user(http.HandlerFunc(h.handleBudget)))
	mux.Handle("POST /api/wellness/diary", user(http.HandlerFunc(h.handleDiary)))
	mux.Handle("POST /api/wellness/intervention", user(http.HandlerFunc(h.handleIntervention)))
	mux.Handle("POST /api/wellness/feedback", user(http.HandlerFunc(h.handleFeedback)))

	mux.Handle("GET /api/community/references", user(http.HandlerFunc(h.handleReferences)))
	mux.Handle("POST /api/community/vouch", user(http.HandlerFunc(h.handleVouch)))
	mux.Handle("POST /api/community/request", user(http.HandlerFunc(h.handleRequestVouch)))

	mux.Handle("GET /api/coach/history", user(http.HandlerFunc(h.handleCoachHistory)))
	mux.Handle("POST /api/coach/messages", user(http.HandlerFunc(h.handleCoachMessage)))
	mux.Handle("GET /api/coach/starters", user(http.HandlerFunc(h.handleCoachStarters)))

	mux.Handle("GET /api/admin/stats", adm(h.handleAdminStats))
	mux.Handle("GET /api/admin/portfolio", adm(h.handleAdminPortfolio))
	mux.Handle("GET /api/admin/users", adm(h.handleAdminUsers))
	mux.Handle("GET /api/admin/users/recent", adm(h.handleAdminRecentUsers))
	mux.Handle("GET /api/admin/users/search", adm(h.handleAdminSearch))
	mux.Handle("GET /api/admin/crisis", adm(h.handleAdminCrisisQueue))
	mux.Handle("POST /api/admin/crisis/{mobile}/{action}", adm(h.handleAdminCrisisAction))
	mux.Handle("GET /api/admin/reports", adm(h.handleAdminReports))
	mux.Handle("GET /api/admin/coach-logs", adm(h.handleAdminCoachLogs))

	handler := loggingMiddleware(log, mux)
	if len(deps.AllowedOrigins) > 0 {
		handler = corsMiddleware(deps.AllowedOrigins)(handler)
	}
	return handler
}

func loggingMiddleware(log logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		// the mux fills in r.Pattern while routing
		route := routeLabel(r)
		metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())

		log.Info("request completed", map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"route":       route,
			"status":      rec.status,
			"duration_ms": elapsed.Milliseconds(),
		})
	})
}

func routeLabel(r *http.Request) string {
	if r.Pattern == "" {
		return "unmatched"
	}
	return r.Pattern
}

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			allowed[origin] = struct{}{}
		}
	}
	_, wildcard := allowed["*"]

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			_, ok := allowed[origin]
			if origin == "" || (!ok && !wildcard) {
				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type sessionKey struct{}

func sessionFrom(ctx context.Context) *models.Session {
	sess, _ := ctx.Value(sessionKey{}).(*models.Session)
	return sess
}

func (h *Handlers) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, _ := auth.BearerToken(r)
		sess, err := h.deps.Accounts.Authenticate(r.Context(), token)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	})
}

func (h *Handlers) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sess := sessionFrom(r.Context()); sess == nil || !sess.IsAdmin {
			h.writeError(w, r, commonerrors.NewForbiddenError(r.URL.Path))
			return
		}
		next(w, r)
	}
}

// aiContext bounds generative calls made while serving r.
func (h *Handlers) aiContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.deps.AITimeout)
}
