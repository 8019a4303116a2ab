package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
// The prefix before the underscore names the owning module.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
)

// Aliases
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
	CodeOK           = ErrorCode("OK")
	CodeUnknown      = ErrorCode("UNKNOWN")
)

// Document Extraction Error Codes
const (
	ErrCodeDocumentUnreadable ErrorCode = "DOC_001"
	ErrCodePageScanFailure    ErrorCode = "DOC_002"
	ErrCodeExtractionFailed   ErrorCode = "DOC_003"
	ErrCodeDocumentEmpty      ErrorCode = "DOC_004"
)

// Revision Chain Error Codes
const (
	ErrCodeDuplicateRevision     ErrorCode = "REV_001"
	ErrCodeInvalidParent         ErrorCode = "REV_002"
	ErrCodeInvalidStatus         ErrorCode = "REV_003"
	ErrCodeChainNotFound         ErrorCode = "REV_004"
	ErrCodeRevisionNotFound      ErrorCode = "REV_005"
	ErrCodeInvalidRevisionNumber ErrorCode = "REV_006"
	ErrCodeChainLocked           ErrorCode = "REV_007"
	ErrCodeChainArchived         ErrorCode = "REV_008"
)

// Comment Error Codes
const (
	ErrCodeCommentNotFound ErrorCode = "CMT_001"
	ErrCodeInvalidPriority ErrorCode = "CMT_002"
	ErrCodeLinkingFailed   ErrorCode = "CMT_003"
)

// Infrastructure Error Codes
const (
	ErrCodeObjectNotFound     ErrorCode = "STO_001"
	ErrCodeStorageUnavailable ErrorCode = "STO_002"
	ErrCodeMessagePublish     ErrorCode = "MQ_001"
	ErrCodeMessageConsume     ErrorCode = "MQ_002"
	ErrCodeMessageInvalid     ErrorCode = "MQ_003"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.  The engine owns
// no HTTP API; embedding services use this to report caller errors as 4xx.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,

	ErrCodeDocumentUnreadable: http.StatusUnprocessableEntity,
	ErrCodePageScanFailure:    http.StatusInternalServerError,
	ErrCodeExtractionFailed:   http.StatusInternalServerError,
	ErrCodeDocumentEmpty:      http.StatusBadRequest,

	ErrCodeDuplicateRevision:     http.StatusConflict,
	ErrCodeInvalidParent:         http.StatusBadRequest,
	ErrCodeInvalidStatus:         http.StatusBadRequest,
	ErrCodeChainNotFound:         http.StatusNotFound,
	ErrCodeRevisionNotFound:      http.StatusNotFound,
	ErrCodeInvalidRevisionNumber: http.StatusBadRequest,
	ErrCodeChainLocked:           http.StatusConflict,
	ErrCodeChainArchived:         http.StatusConflict,

	ErrCodeCommentNotFound: http.StatusNotFound,
	ErrCodeInvalidPriority: http.StatusBadRequest,
	ErrCodeLinkingFailed:   http.StatusInternalServerError,

	ErrCodeObjectNotFound:     http.StatusNotFound,
	ErrCodeStorageUnavailable: http.StatusServiceUnavailable,
	ErrCodeMessagePublish:     http.StatusInternalServerError,
	ErrCodeMessageConsume:     http.StatusInternalServerError,
	ErrCodeMessageInvalid:     http.StatusBadRequest,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",

	ErrCodeDocumentUnreadable: "document cannot be opened",
	ErrCodePageScanFailure:    "page scan failed",
	ErrCodeExtractionFailed:   "comment extraction failed",
	ErrCodeDocumentEmpty:      "document is empty",

	ErrCodeDuplicateRevision:     "revision number already exists in chain",
	ErrCodeInvalidParent:         "invalid parent revision",
	ErrCodeInvalidStatus:         "invalid revision status",
	ErrCodeChainNotFound:         "revision chain not found",
	ErrCodeRevisionNotFound:      "revision not found",
	ErrCodeInvalidRevisionNumber: "invalid revision number",
	ErrCodeChainLocked:           "revision chain is locked by another writer",
	ErrCodeChainArchived:         "revision chain is archived",

	ErrCodeCommentNotFound: "comment not found",
	ErrCodeInvalidPriority: "invalid comment priority",
	ErrCodeLinkingFailed:   "cross-revision linking failed",

	ErrCodeObjectNotFound:     "object not found",
	ErrCodeStorageUnavailable: "object storage unavailable",
	ErrCodeMessagePublish:     "failed to publish message",
	ErrCodeMessageConsume:     "failed to consume message",
	ErrCodeMessageInvalid:     "invalid message payload",
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
	if len(parts) > 1 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}

//Personal.AI order the ending
