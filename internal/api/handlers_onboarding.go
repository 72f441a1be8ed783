package api

import (
	"encoding/base64"
	"net/http"
	"strings"

	commonerrors "kredmitra/internal/common/errors"
	"kredmitra/internal/models"
	"kredmitra/internal/onboarding"
)

type phoneRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code,omitempty"`
}

func (h *Handlers) handleSendOTP(w http.ResponseWriter, r *http.Request) {
	var req phoneRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.deps.Onboarding.OTP().Send(r.Context(), req.Phone); err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]bool{"sent": true})
}

func (h *Handlers) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req phoneRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.deps.Onboarding.OTP().Verify(r.Context(), req.Phone, req.Code); err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"verified": true})
}

// handleValidate reports field errors and, once the form is clean, whether
// the identity tuple matches the verification records.
func (h *Handlers) handleValidate(w http.ResponseWriter, r *http.Request) {
	var user models.UserData
	if err := decode(r, &user); err != nil {
		h.writeError(w, r, err)
		return
	}
	result, err := h.deps.Onboarding.Check(r.Context(), &user)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := map[string]interface{}{
		"valid":  result.Valid,
		"errors": result.Errors,
	}
	if result.Valid {
		resp["identityVerified"] = onboarding.VerifyIdentity(&user) == nil
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handlers) handleHints(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, onboarding.StatementHints(req.Text))
}

func (h *Handlers) handleExample(w http.ResponseWriter, r *http.Request) {
	user, err := h.deps.Onboarding.Prefill(r.Context(), r.PathValue("kind"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

type questionRequest struct {
	Question  string `json:"question,omitempty"`
	Topic     string `json:"topic,omitempty"`
	Statement string `json:"statement,omitempty"`
}

func (h *Handlers) handleHelp(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		h.writeError(w, r, commonerrors.NewValidationError("question is required"))
		return
	}
	ctx, cancel := h.aiContext(r)
	defer cancel()
	respondJSON(w, http.StatusOK, map[string]string{"answer": h.deps.Advisor.GetOnboardingHelp(ctx, req.Question)})
}

func (h *Handlers) handleConsent(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		h.writeError(w, r, commonerrors.NewValidationError("topic is required"))
		return
	}
	ctx, cancel := h.aiContext(r)
	defer cancel()
	respondJSON(w, http.StatusOK, map[string]string{"explanation": h.deps.Advisor.GetConsentExplanation(ctx, req.Topic)})
}

func (h *Handlers) handleClarify(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	ctx, cancel := h.aiContext(r)
	defer cancel()
	respondJSON(w, http.StatusOK, map[string][]string{"questions": h.deps.Advisor.GenerateClarifyingQuestions(ctx, req.Statement)})
}

func decodeDocument(r *http.Request) ([]byte, string, error) {
	var doc models.Document
	if err := decode(r, &doc); err != nil {
		return nil, "", err
	}
	if doc.MimeType == "" || doc.Data == "" {
		return nil, "", commonerrors.NewValidationError("mimeType and data are required")
	}
	// data URLs carry a "data:<mime>;base64," prefix
	if i := strings.Index(doc.Data, ","); i >= 0 && strings.HasPrefix(doc.Data, "data:") {
		doc.Data = doc.Data[i+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(doc.Data)
	if err != nil {
		return nil, "", commonerrors.NewValidationError("data must be base64 encoded")
	}
	return raw, doc.MimeType, nil
}

func (h *Handlers) handleDocumentVerify(w http.ResponseWriter, r *http.Request) {
	raw, mime, err := decodeDocument(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ctx, cancel := h.aiContext(r)
	defer cancel()
	respondJSON(w, http.StatusOK, map[string]string{"result": h.deps.Advisor.VerifyDocumentAuthenticity(ctx, raw, mime)})
}

func (h *Handlers) handleDocumentOCR(w http.ResponseWriter, r *http.Request) {
	raw, mime, err := decodeDocument(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ctx, cancel := h.aiContext(r)
	defer cancel()
	respondJSON(w, http.StatusOK, map[string]string{"text": h.deps.Advisor.SimulateVernacularOCR(ctx, raw, mime)})
}

// handleSubmitApplication scores the caller's application and records the
// named reference in the community graph.
func (h *Handlers) handleSubmitApplication(w http.ResponseWriter, r *http.Request) {
	var user models.UserData
	if err := decode(r, &user); err != nil {
		h.writeError(w, r, err)
		return
	}
	sess := sessionFrom(r.Context())

	ctx, cancel := h.aiContext(r)
	defer cancel()
	app, err := h.deps.Onboarding.Submit(ctx, sess.Mobile, &user)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if ref := user.ReferenceContact; ref != nil && strings.TrimSpace(ref.Name) != "" {
		if err := h.deps.Community.RecordReference(r.Context(), sess.Mobile, user.Name, *ref); err != nil {
			h.logger.Warn("Reference not recorded", map[string]interface{}{
				"mobile": sess.Mobile,
				"error":  err.Error(),
			})
		}
	}
	respondJSON(w, http.StatusCreated, app)
}

func (h *Handlers) handleUSSD(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID   string `json:"sessionId"`
		PhoneNumber string `json:"phoneNumber"`
		Text        string `json:"text"`
	}
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		h.writeError(w, r, commonerrors.NewValidationError("sessionId is required"))
		return
	}

	ctx, cancel := h.aiContext(r)
	defer cancel()
	screen, err := h.deps.USSD.Respond(ctx, req.SessionID, req.PhoneNumber, req.Text)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(screen))
}
