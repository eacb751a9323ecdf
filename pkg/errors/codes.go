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
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeNotImplemented     ErrorCode = "COMMON_016"
)

// Aliases used at call sites.
const (
	CodeUnknown        = ErrorCode("")
	CodeOK             = ErrorCode("OK")
	CodeInternal       = ErrCodeInternal
	CodeInvalidParam   = ErrCodeBadRequest
	CodeNotFound       = ErrCodeNotFound
	CodeConflict       = ErrCodeConflict
	CodeRateLimit      = ErrCodeTooManyRequests
	CodeUnavailable    = ErrCodeServiceUnavailable
	CodeNotImplemented = ErrCodeNotImplemented

	CodeDatabaseError     = ErrCodeDatabaseError
	CodeCacheError        = ErrCodeCacheError
	CodeMessageQueueError = ErrCodeExternalService
	CodeStorageError      = ErrCodeExternalService
)

// Molecule Module Error Codes
const (
	ErrCodeMoleculeInvalidSMILES      ErrorCode = "MOL_001"
	ErrCodeMoleculeValence            ErrorCode = "MOL_002"
	ErrCodeMoleculeUnsupportedElement ErrorCode = "MOL_003"
	ErrCodeMoleculeDescriptorsMissing ErrorCode = "MOL_004"
)

// Descriptor Module Error Codes
const (
	ErrCodeConformerEmbedFailed        ErrorCode = "DESC_001"
	ErrCodeColumnProfileInvalid        ErrorCode = "DESC_002"
	ErrCodeDescriptorCalculationFailed ErrorCode = "DESC_003"
)

// Model Module Error Codes
const (
	ErrCodeModelArtifactLoadFailed ErrorCode = "MODEL_001"
	ErrCodeModelSchemaMismatch     ErrorCode = "MODEL_002"
	ErrCodeModelUnsupported        ErrorCode = "MODEL_003"
	ErrCodeModelInferenceFailed    ErrorCode = "MODEL_004"
	ErrCodeModelArtifactNotFound   ErrorCode = "MODEL_005"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeNotImplemented:     http.StatusNotImplemented,

	ErrCodeMoleculeInvalidSMILES:      http.StatusBadRequest,
	ErrCodeMoleculeValence:            http.StatusBadRequest,
	ErrCodeMoleculeUnsupportedElement: http.StatusUnprocessableEntity,
	ErrCodeMoleculeDescriptorsMissing: http.StatusUnprocessableEntity,

	ErrCodeConformerEmbedFailed:        http.StatusUnprocessableEntity,
	ErrCodeColumnProfileInvalid:        http.StatusInternalServerError,
	ErrCodeDescriptorCalculationFailed: http.StatusInternalServerError,

	ErrCodeModelArtifactLoadFailed: http.StatusServiceUnavailable,
	ErrCodeModelSchemaMismatch:     http.StatusInternalServerError,
	ErrCodeModelUnsupported:        http.StatusInternalServerError,
	ErrCodeModelInferenceFailed:    http.StatusInternalServerError,
	ErrCodeModelArtifactNotFound:   http.StatusServiceUnavailable,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization error",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeNotImplemented:     "not implemented",

	ErrCodeMoleculeInvalidSMILES:      "invalid SMILES string",
	ErrCodeMoleculeValence:            "atom valence exceeded",
	ErrCodeMoleculeUnsupportedElement: "element not supported by the force field",
	ErrCodeMoleculeDescriptorsMissing: "Please complete the descriptors calculation before predicting.",

	ErrCodeConformerEmbedFailed:        "3D conformer embedding failed",
	ErrCodeColumnProfileInvalid:        "fingerprint column profile invalid",
	ErrCodeDescriptorCalculationFailed: "descriptor calculation failed",

	ErrCodeModelArtifactLoadFailed: "Error loading model or scalers",
	ErrCodeModelSchemaMismatch:     "input vector does not match the model schema",
	ErrCodeModelUnsupported:        "unsupported model component",
	ErrCodeModelInferenceFailed:    "model inference failed",
	ErrCodeModelArtifactNotFound:   "model artifact not found",
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

//Personal.AI order the ending
