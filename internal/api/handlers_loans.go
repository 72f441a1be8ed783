package api

import (
	"net/http"
	"strings"
	"time"

	commonerrors "kredmitra/internal/common/errors"
	"kredmitra/internal/models"
)

func (h *Handlers) respondUser(w http.ResponseWriter, r *http.Request, rec *models.UserRecord, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rec.Public())
}

func (h *Handlers) handleAcceptLoan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LoanName string `json:"loanName"`
	}
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	rec, err := h.deps.Repayment.AcceptLoan(r.Context(), sessionFrom(r.Context()).Mobile, req.LoanName)
	h.respondUser(w, r, rec, err)
}

func (h *Handlers) handleCompleteValidation(w http.ResponseWriter, r *http.Request) {
	rec, err := h.deps.Repayment.CompleteValidation(r.Context(), sessionFrom(r.Context()).Mobile)
	h.respondUser(w, r, rec, err)
}

func (h *Handlers) handlePayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount float64 `json:"amount"`
	}
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	rec, err := h.deps.Repayment.RecordPayment(r.Context(), sessionFrom(r.Context()).Mobile, req.Amount)
	h.respondUser(w, r, rec, err)
}

func (h *Handlers) handleCrisis(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description string `json:"description"`
	}
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	ctx, cancel := h.aiContext(r)
	defer cancel()
	opts, err := h.deps.Repayment.ReportCrisis(ctx, sessionFrom(r.Context()).Mobile, req.Description)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, opts)
}

func (h *Handlers) handleReminder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.aiContext(r)
	defer cancel()
	msg, err := h.deps.Repayment.SendReminder(ctx, sessionFrom(r.Context()).Mobile)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// scoredApplication loads the caller's latest scored application.
func (h *Handlers) scoredApplication(r *http.Request) (*models.UserRecord, *models.Application, error) {
	mobile := sessionFrom(r.Context()).Mobile
	rec, err := h.deps.Users.Get(r.Context(), mobile)
	if err != nil {
		return nil, nil, err
	}
	if rec.Application == nil || rec.Application.ScoreData == nil {
		return nil, nil, commonerrors.NewBusinessRuleError("No scored application yet.", "mobile: "+mobile)
	}
	return rec, rec.Application, nil
}

func (h *Handlers) scoreText(w http.ResponseWriter, r *http.Request, fn func(app *models.Application) string) {
	_, app, err := h.scoredApplication(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"text": fn(app)})
}

func (h *Handlers) handleExplainScore(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.aiContext(r)
	defer cancel()
	h.scoreText(w, r, func(app *models.Application) string {
		return h.deps.Advisor.GetRAGExplanation(ctx, app.ScoreData, app.UserData)
	})
}

func (h *Handlers) handleDeepDive(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.aiContext(r)
	defer cancel()
	h.scoreText(w, r, func(app *models.Application) string {
		return h.deps.Advisor.GetScoreDeepDive(ctx, app.ScoreData, app.UserData)
	})
}

func (h *Handlers) handleInsight(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.aiContext(r)
	defer cancel()
	h.scoreText(w, r, func(app *models.Application) string {
		return h.deps.Advisor.GetPersonalizedActionableInsight(ctx, app.ScoreData, app.UserData)
	})
}

func (h *Handlers) handleSimulateScore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action string `json:"action"`
	}
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Action) == "" {
		h.writeError(w, r, commonerrors.NewValidationError("action is required"))
		return
	}
	_, app, err := h.scoredApplication(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ctx, cancel := h.aiContext(r)
	defer cancel()
	respondJSON(w, http.StatusOK, h.deps.Advisor.SimulateScoreChange(ctx, app.ScoreData, req.Action))
}

func (h *Handlers) handleCoachHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.deps.Coach.History(r.Context(), sessionFrom(r.Context()).Mobile)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"messages": history})
}

func (h *Handlers) handleCoachMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	ctx, cancel := h.aiContext(r)
	defer cancel()
	reply, err := h.deps.Coach.Send(ctx, sessionFrom(r.Context()).Mobile, req.Message)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, reply)
}

func (h *Handlers) handleCoachStarters(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.aiContext(r)
	defer cancel()
	starters, err := h.deps.Coach.Starters(ctx, sessionFrom(r.Context()).Mobile)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string][]string{"starters": starters})
}

func today(now time.Time) string {
	return now.Format("2006-01-02")
}
