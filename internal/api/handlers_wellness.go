package api

import (
	"math"
	"net/http"
	"strings"

	commonerrors "kredmitra/internal/common/errors"
	"kredmitra/internal/models"
)

// profession picks the profession from the caller's application, then the
// query string, then a generic default.
func (h *Handlers) profession(r *http.Request) string {
	if p := strings.TrimSpace(r.URL.Query().Get("profession")); p != "" {
		return p
	}
	if rec, err := h.deps.Users.Get(r.Context(), sessionFrom(r.Context()).Mobile); err == nil &&
		rec.Application != nil && rec.Application.UserData != nil && rec.Application.UserData.Profession != "" {
		return rec.Application.UserData.Profession
	}
	return "small business owner"
}

func (h *Handlers) handleTip(w http.ResponseWriter, r *http.Request) {
	profession := h.profession(r)
	ctx, cancel := h.aiContext(r)
	defer cancel()
	respondJSON(w, http.StatusOK, map[string]string{"tip": h.deps.Advisor.GetFinancialLiteracyTip(ctx, profession)})
}

func (h *Handlers) handleSavingsPlan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Goal   string  `json:"goal"`
		Amount float64 `json:"amount"`
	}
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Goal) == "" || req.Amount <= 0 || math.IsInf(req.Amount, 0) {
		h.writeError(w, r, commonerrors.NewValidationError("goal and a positive amount are required"))
		return
	}
	profession := h.profession(r)
	ctx, cancel := h.aiContext(r)
	defer cancel()
	respondJSON(w, http.StatusOK, h.deps.Advisor.CreateSavingsPlan(ctx, req.Goal, req.Amount, profession))
}

type textRequest struct {
	Text string `json:"text"`
}

func (h *Handlers) decodeText(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req textRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return "", false
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		h.writeError(w, r, commonerrors.NewValidationError("text is required"))
		return "", false
	}
	return text, true
}

func (h *Handlers) handleBudget(w http.ResponseWriter, r *http.Request) {
	text, ok := h.decodeText(w, r)
	if !ok {
		return
	}
	ctx, cancel := h.aiContext(r)
	defer cancel()
	respondJSON(w, http.StatusOK, map[string][]models.BudgetCategory{"budget": h.deps.Advisor.AnalyzeBudget(ctx, text)})
}

// handleDiary analyses a diary note and returns it as a dated entry. Entries
// are kept by the client and replayed to the intervention check.
func (h *Handlers) handleDiary(w http.ResponseWriter, r *http.Request) {
	text, ok := h.decodeText(w, r)
	if !ok {
		return
	}
	ctx, cancel := h.aiContext(r)
	defer cancel()
	analysis := h.deps.Advisor.AnalyzeFinancialDiaryEntry(ctx, text)

	now := h.now()
	respondJSON(w, http.StatusOK, models.DiaryEntry{
		ID:         now.UnixMilli(),
		Date:       today(now),
		Transcript: text,
		Summary:    analysis.Summary,
		Sentiment:  analysis.Sentiment,
	})
}

func (h *Handlers) handleIntervention(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Entries []models.DiaryEntry `json:"entries"`
	}
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	ctx, cancel := h.aiContext(r)
	defer cancel()
	respondJSON(w, http.StatusOK, h.deps.Advisor.PredictiveInterventionCheck(ctx, req.Entries))
}

// handleFeedback classifies the feedback and appends it to the caller's
// record, where the admin reports pick it up.
func (h *Handlers) handleFeedback(w http.ResponseWriter, r *http.Request) {
	text, ok := h.decodeText(w, r)
	if !ok {
		return
	}
	ctx, cancel := h.aiContext(r)
	defer cancel()
	analysis := h.deps.Advisor.AnalyzeUserFeedback(ctx, text)

	fb := models.Feedback{
		Text:      text,
		Category:  analysis.Category,
		Sentiment: analysis.Sentiment,
		Summary:   analysis.Summary,
		Date:      today(h.now()),
	}
	_, err := h.deps.Users.Update(r.Context(), sessionFrom(r.Context()).Mobile, func(rec *models.UserRecord) error {
		rec.Feedback = append(rec.Feedback, fb)
		return nil
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, fb)
}
