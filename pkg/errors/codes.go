package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_003"
	ErrCodeConflict           ErrorCode = "COMMON_004"
	ErrCodeValidation         ErrorCode = "COMMON_005"
	ErrCodeSerialization      ErrorCode = "COMMON_006"
	ErrCodeDatabaseError      ErrorCode = "COMMON_007"
	ErrCodeCacheError         ErrorCode = "COMMON_008"
	ErrCodeStorageError       ErrorCode = "COMMON_009"
	ErrCodeMessagingError     ErrorCode = "COMMON_010"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_011"
	ErrCodeTimeout            ErrorCode = "COMMON_012"
)

// Aliases used by the domain and application layers.
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict

	CodeDatabaseError     = ErrCodeDatabaseError
	CodeCacheError        = ErrCodeCacheError
	CodeStorageError      = ErrCodeStorageError
	CodeMessageQueueError = ErrCodeMessagingError
)

// Registration Module Error Codes
const (
	ErrCodeLobbyistNotFound       ErrorCode = "REG_001"
	ErrCodeEmployerNotFound       ErrorCode = "REG_002"
	ErrCodeEmailAlreadyRegistered ErrorCode = "REG_003"
	ErrCodeRegistrationNotPending ErrorCode = "REG_004"
	ErrCodeReviewActionInvalid    ErrorCode = "REG_005"
)

// Hours Module Error Codes
const (
	ErrCodeHoursInvalid      ErrorCode = "HOURS_001"
	ErrCodeQuarterInvalid    ErrorCode = "HOURS_002"
	ErrCodeHourLogNotFound   ErrorCode = "HOURS_003"
	ErrCodeThresholdRecorded ErrorCode = "HOURS_004"
)

// Expense Report Module Error Codes
const (
	ErrCodeReportNotFound      ErrorCode = "REPORT_001"
	ErrCodeReportPeriodInvalid ErrorCode = "REPORT_002"
	ErrCodeLineItemInvalid     ErrorCode = "REPORT_003"
	ErrCodeReceiptNotFound     ErrorCode = "REPORT_004"
	ErrCodeReceiptTypeInvalid  ErrorCode = "REPORT_005"
)

// Violation Module Error Codes
const (
	ErrCodeViolationNotFound      ErrorCode = "VIOLATION_001"
	ErrCodeFineExceedsCap         ErrorCode = "VIOLATION_002"
	ErrCodeViolationStatusInvalid ErrorCode = "VIOLATION_003"
)

// Appeal Module Error Codes
const (
	ErrCodeAppealNotFound         ErrorCode = "APPEAL_001"
	ErrCodeViolationNotAppealable ErrorCode = "APPEAL_002"
	ErrCodeAppealAlreadyFiled     ErrorCode = "APPEAL_003"
	ErrCodeAppealWindowClosed     ErrorCode = "APPEAL_004"
	ErrCodeAppealAlreadyDecided   ErrorCode = "APPEAL_005"
	ErrCodeAppealOutcomeInvalid   ErrorCode = "APPEAL_006"
	ErrCodeIssuedDateMissing      ErrorCode = "APPEAL_007"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeStorageError:       http.StatusInternalServerError,
	ErrCodeMessagingError:     http.StatusInternalServerError,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,

	ErrCodeLobbyistNotFound:       http.StatusNotFound,
	ErrCodeEmployerNotFound:       http.StatusNotFound,
	ErrCodeEmailAlreadyRegistered: http.StatusConflict,
	ErrCodeRegistrationNotPending: http.StatusConflict,
	ErrCodeReviewActionInvalid:    http.StatusBadRequest,

	ErrCodeHoursInvalid:      http.StatusBadRequest,
	ErrCodeQuarterInvalid:    http.StatusBadRequest,
	ErrCodeHourLogNotFound:   http.StatusNotFound,
	ErrCodeThresholdRecorded: http.StatusConflict,

	ErrCodeReportNotFound:      http.StatusNotFound,
	ErrCodeReportPeriodInvalid: http.StatusBadRequest,
	ErrCodeLineItemInvalid:     http.StatusBadRequest,
	ErrCodeReceiptNotFound:     http.StatusNotFound,
	ErrCodeReceiptTypeInvalid:  http.StatusBadRequest,

	ErrCodeViolationNotFound:      http.StatusNotFound,
	ErrCodeFineExceedsCap:         http.StatusBadRequest,
	ErrCodeViolationStatusInvalid: http.StatusBadRequest,

	ErrCodeAppealNotFound:         http.StatusNotFound,
	ErrCodeViolationNotAppealable: http.StatusConflict,
	ErrCodeAppealAlreadyFiled:     http.StatusConflict,
	ErrCodeAppealWindowClosed:     http.StatusConflict,
	ErrCodeAppealAlreadyDecided:   http.StatusConflict,
	ErrCodeAppealOutcomeInvalid:   http.StatusBadRequest,
	ErrCodeIssuedDateMissing:      http.StatusConflict,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeStorageError:       "object storage error",
	ErrCodeMessagingError:     "message broker error",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",

	ErrCodeLobbyistNotFound:       "lobbyist not found",
	ErrCodeEmployerNotFound:       "employer not found",
	ErrCodeEmailAlreadyRegistered: "email already registered",
	ErrCodeRegistrationNotPending: "registration is not pending review",
	ErrCodeReviewActionInvalid:    "review action must be approve or reject",

	ErrCodeHoursInvalid:      "hours must be a positive amount",
	ErrCodeQuarterInvalid:    "quarter must be one of Q1, Q2, Q3, Q4",
	ErrCodeHourLogNotFound:   "hour log not found",
	ErrCodeThresholdRecorded: "threshold crossing already recorded for this quarter",

	ErrCodeReportNotFound:      "expense report not found",
	ErrCodeReportPeriodInvalid: "invalid reporting period",
	ErrCodeLineItemInvalid:     "invalid expense line item",
	ErrCodeReceiptNotFound:     "receipt not found",
	ErrCodeReceiptTypeInvalid:  "unsupported receipt content type",

	ErrCodeViolationNotFound:      "violation not found",
	ErrCodeFineExceedsCap:         "fine amount exceeds the $500 cap",
	ErrCodeViolationStatusInvalid: "invalid violation status",

	ErrCodeAppealNotFound:         "appeal not found",
	ErrCodeViolationNotAppealable: "violation cannot be appealed in its current status",
	ErrCodeAppealAlreadyFiled:     "an appeal has already been filed for this violation",
	ErrCodeAppealWindowClosed:     "the 30-day appeal window has closed",
	ErrCodeAppealAlreadyDecided:   "appeal has already been decided",
	ErrCodeAppealOutcomeInvalid:   "appeal outcome must be UPHELD or OVERTURNED",
	ErrCodeIssuedDateMissing:      "violation has no issued date",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
