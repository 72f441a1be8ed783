package api

import (
	"net/http"
)

func (h *Handlers) handleReferences(w http.ResponseWriter, r *http.Request) {
	refs, err := h.deps.Community.References(r.Context(), sessionFrom(r.Context()).Mobile)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"references": refs})
}

// handleVouch lets the caller confirm that they vouch for an applicant.
func (h *Handlers) handleVouch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ApplicantMobile string `json:"applicantMobile"`
		Relationship    string `json:"relationship"`
	}
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.deps.Community.RecordVouch(r.Context(), sessionFrom(r.Context()).Mobile, req.ApplicantMobile, req.Relationship); err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]bool{"recorded": true})
}

func (h *Handlers) handleRequestVouch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone string `json:"phone"`
	}
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	sess := sessionFrom(r.Context())
	ctx, cancel := h.aiContext(r)
	defer cancel()
	msg, err := h.deps.Community.RequestVouch(ctx, sess.Mobile, sess.FirstName, req.Phone)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": msg})
}

func (h *Handlers) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.deps.Admin.Stats(r.Context())
	h.respond(w, r, stats, err)
}

func (h *Handlers) handleAdminPortfolio(w http.ResponseWriter, r *http.Request) {
	slices, err := h.deps.Admin.PortfolioOverview(r.Context())
	h.respond(w, r, slices, err)
}

func (h *Handlers) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.deps.Admin.Users(r.Context())
	h.respond(w, r, users, err)
}

func (h *Handlers) handleAdminRecentUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.deps.Admin.RecentUsers(r.Context())
	h.respond(w, r, users, err)
}

func (h *Handlers) handleAdminSearch(w http.ResponseWriter, r *http.Request) {
	users, err := h.deps.Admin.Search(r.Context(), r.URL.Query().Get("q"))
	h.respond(w, r, users, err)
}

func (h *Handlers) handleAdminCrisisQueue(w http.ResponseWriter, r *http.Request) {
	users, err := h.deps.Admin.CrisisQueue(r.Context())
	h.respond(w, r, users, err)
}

func (h *Handlers) handleAdminCrisisAction(w http.ResponseWriter, r *http.Request) {
	msg, err := h.deps.Admin.CrisisAction(r.Context(), r.PathValue("mobile"), r.PathValue("action"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": msg})
}

func (h *Handlers) handleAdminReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.deps.Admin.Reports(r.Context())
	h.respond(w, r, reports, err)
}

func (h *Handlers) handleAdminCoachLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.deps.Admin.CoachLogs(r.Context())
	h.respond(w, r, logs, err)
}

func (h *Handlers) respond(w http.ResponseWriter, r *http.Request, data any, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, data)
}
