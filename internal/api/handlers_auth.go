package api

import (
	"net/http"

	"kredmitra/internal/accounts"
	"kredmitra/internal/common/auth"
	"kredmitra/internal/models"
)

type sessionResponse struct {
	Session *models.Session    `json:"session"`
	User    *models.UserRecord `json:"user,omitempty"`
}

func (h *Handlers) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req accounts.SignupRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	sess, rec, err := h.deps.Accounts.Signup(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, sessionResponse{Session: sess, User: rec})
}

func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mobile   string `json:"mobile"`
		Password string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	sess, rec, err := h.deps.Accounts.Login(r.Context(), req.Mobile, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sessionResponse{Session: sess, User: rec})
}

func (h *Handlers) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	sess, err := h.deps.Accounts.AdminLogin(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sessionResponse{Session: sess})
}

func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, _ := auth.BearerToken(r)
	if err := h.deps.Accounts.Logout(r.Context(), token); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMe returns the caller's record, or just the session for the admin.
func (h *Handlers) handleMe(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if sess.IsAdmin {
		respondJSON(w, http.StatusOK, sessionResponse{Session: sess})
		return
	}
	rec, err := h.deps.Users.Get(r.Context(), sess.Mobile)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	pub := rec.Public()
	respondJSON(w, http.StatusOK, sessionResponse{Session: sess, User: &pub})
}
