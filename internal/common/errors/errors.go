// Package errors provides standardized error handling for the HTTP API and
// BPMN workflow integration.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Input / identity errors
const (
	ErrCodeValidationFailed   ErrorCode = "VALIDATION_FAILED"
	ErrCodeVerificationFailed ErrorCode = "VERIFICATION_FAILED"
	ErrCodeMockRecordNotFound ErrorCode = "MOCK_RECORD_NOT_FOUND"
	ErrCodeUSSDInvalidInput   ErrorCode = "USSD_INVALID_INPUT"
)

// Account / session errors
const (
	ErrCodeUserExists         ErrorCode = "USER_EXISTS"
	ErrCodeUserNotFound       ErrorCode = "USER_NOT_FOUND"
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeSessionNotFound    ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeOTPInvalid         ErrorCode = "OTP_INVALID"
	ErrCodeOTPRateLimited     ErrorCode = "OTP_RATE_LIMITED"
	ErrCodeForbidden          ErrorCode = "FORBIDDEN"
)

// Technical errors
const (
	ErrCodeAIGenerationFailed   ErrorCode = "AI_GENERATION_FAILED"
	ErrCodeAnalysisFailed       ErrorCode = "ANALYSIS_FAILED"
	ErrCodeDatabaseError        ErrorCode = "DATABASE_ERROR"
	ErrCodeExternalService      ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout              ErrorCode = "TIMEOUT"
	ErrCodeNotificationFailed   ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeResourceNotFound     ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeBusinessRuleViolated ErrorCode = "BUSINESS_RULE_VIOLATION"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// As extracts a StandardError from an error chain.
func As(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// Wrap attaches cause to e so errors.Is can match package sentinels through
// the StandardError.
func Wrap(e *StandardError, cause error) *StandardError {
	e.cause = cause
	return e
}

// CodeOf returns the error code carried by err, or EXTERNAL_SERVICE_ERROR
// when err is not a StandardError.
func CodeOf(err error) ErrorCode {
	if stdErr, ok := As(err); ok {
		return stdErr.Code
	}
	return ErrCodeExternalService
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewValidationError creates a non-retryable input validation error.
func NewValidationError(details string) *StandardError {
	return newError(ErrCodeValidationFailed, "Input validation failed", details, false, nil)
}

// NewVerificationFailedError is returned when an applicant's identity tuple
// does not match the verification records.
func NewVerificationFailedError(details string) *StandardError {
	return newError(ErrCodeVerificationFailed,
		"Verification failed. Please check your details and try again.", details, false, nil)
}

// NewMockRecordNotFoundError reports a missing alternative-data record.
func NewMockRecordNotFoundError(userID string) *StandardError {
	return newError(ErrCodeMockRecordNotFound,
		fmt.Sprintf("Could not find complete mock records for the test user (%s)", userID),
		fmt.Sprintf("userId: %s", userID), false, nil)
}

func NewUSSDInvalidInputError(message string) *StandardError {
	return newError(ErrCodeUSSDInvalidInput, message, "", false, nil)
}

func NewUserExistsError(mobile string) *StandardError {
	return newError(ErrCodeUserExists, "A user with this mobile number already exists.",
		fmt.Sprintf("mobile: %s", mobile), false, nil)
}

func NewUserNotFoundError(mobile string) *StandardError {
	return newError(ErrCodeUserNotFound, "User not found", fmt.Sprintf("mobile: %s", mobile), false, nil)
}

func NewInvalidCredentialsError() *StandardError {
	return newError(ErrCodeInvalidCredentials, "Invalid mobile number or password.", "", false, nil)
}

func NewSessionNotFoundError() *StandardError {
	return newError(ErrCodeSessionNotFound, "Session not found or expired", "", false, nil)
}

func NewOTPInvalidError() *StandardError {
	return newError(ErrCodeOTPInvalid, "The OTP entered is invalid or has expired.", "", false, nil)
}

func NewOTPRateLimitedError(wait time.Duration) *StandardError {
	return newError(ErrCodeOTPRateLimited, "Please wait before requesting a new OTP.",
		fmt.Sprintf("retryAfter: %s", wait.Round(time.Second)), false, nil)
}

// NewOTPAttemptsExceededError reports a pending code burned by too many
// wrong guesses.
func NewOTPAttemptsExceededError(attempts int) *StandardError {
	return newError(ErrCodeOTPRateLimited, "Too many incorrect OTP attempts. Please request a new OTP.",
		fmt.Sprintf("attempts: %d", attempts), false, nil)
}

func NewForbiddenError(details string) *StandardError {
	return newError(ErrCodeForbidden, "Admin access required", details, false, nil)
}

// NewAIGenerationError wraps a failed or undecodable model call.
func NewAIGenerationError(operation string, err error) *StandardError {
	return newError(ErrCodeAIGenerationFailed, fmt.Sprintf("AI generation failed for %s", operation),
		errDetails(err), true, err)
}

// NewAnalysisFailedError carries the user-facing copy for a failed scoring run.
func NewAnalysisFailedError(err error) *StandardError {
	return newError(ErrCodeAnalysisFailed,
		"An error occurred while analyzing your profile. Our agents are looking into it. Please try again later.",
		errDetails(err), true, err)
}

func NewDatabaseError(operation string, err error) *StandardError {
	return newError(ErrCodeDatabaseError, fmt.Sprintf("Database error during %s", operation),
		errDetails(err), true, err)
}

func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationFailed, fmt.Sprintf("Failed to send %s notification", channel),
		errDetails(err), true, err)
}

func NewBusinessRuleError(message, details string) *StandardError {
	return newError(ErrCodeBusinessRuleViolated, message, details, false, nil)
}

func NewExternalServiceError(service string, err error) *StandardError {
	return newError(ErrCodeExternalService, fmt.Sprintf("External service '%s' error", service),
		errDetails(err), true, err)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError(ErrCodeTimeout, fmt.Sprintf("Service '%s' timeout", service),
		errDetails(err), true, err)
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return newError(ErrCodeResourceNotFound, fmt.Sprintf("Resource not found in %s", service),
		details, false, nil)
}

func errDetails(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseError,
		ErrCodeExternalService,
		ErrCodeNotificationFailed,
		ErrCodeAIGenerationFailed:
		return 3

	case ErrCodeTimeout, ErrCodeAnalysisFailed:
		return 2

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "USER"), strings.Contains(codeStr, "SESSION"),
		strings.Contains(codeStr, "CREDENTIALS"), strings.Contains(codeStr, "OTP"),
		code == ErrCodeForbidden:
		return "AUTH"
	case strings.Contains(codeStr, "DATABASE"):
		return "DATABASE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "AI_"), strings.Contains(codeStr, "ANALYSIS"):
		return "AI"
	case strings.Contains(codeStr, "VALIDATION"), strings.Contains(codeStr, "VERIFICATION"),
		strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
