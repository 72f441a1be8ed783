package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	commonerrors "kredmitra/internal/common/errors"
)

const maxBodyBytes = 8 << 20

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

// statusFor maps a StandardError code to the HTTP status the client sees.
func statusFor(code commonerrors.ErrorCode) int {
	switch code {
	case commonerrors.ErrCodeValidationFailed, commonerrors.ErrCodeUSSDInvalidInput, commonerrors.ErrCodeOTPInvalid:
		return http.StatusBadRequest
	case commonerrors.ErrCodeInvalidCredentials, commonerrors.ErrCodeSessionNotFound:
		return http.StatusUnauthorized
	case commonerrors.ErrCodeForbidden:
		return http.StatusForbidden
	case commonerrors.ErrCodeUserNotFound, commonerrors.ErrCodeResourceNotFound, commonerrors.ErrCodeMockRecordNotFound:
		return http.StatusNotFound
	case commonerrors.ErrCodeUserExists:
		return http.StatusConflict
	case commonerrors.ErrCodeVerificationFailed, commonerrors.ErrCodeBusinessRuleViolated:
		return http.StatusUnprocessableEntity
	case commonerrors.ErrCodeOTPRateLimited:
		return http.StatusTooManyRequests
	case commonerrors.ErrCodeAIGenerationFailed, commonerrors.ErrCodeAnalysisFailed,
		commonerrors.ErrCodeExternalService, commonerrors.ErrCodeNotificationFailed:
		return http.StatusBadGateway
	case commonerrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	stdErr := commonerrors.Normalize(err)
	status := statusFor(stdErr.Code)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", map[string]interface{}{
			"path":  r.URL.Path,
			"code":  stdErr.Code,
			"error": err.Error(),
		})
	}
	respondJSON(w, status, map[string]errorBody{
		"error": {Code: string(stdErr.Code), Message: stdErr.Message, Details: stdErr.Details},
	})
}

// decode reads a JSON body into v. Unknown fields are tolerated.
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return commonerrors.NewValidationError("request body is required")
		}
		return commonerrors.NewValidationError("malformed JSON: " + err.Error())
	}
	return nil
}
