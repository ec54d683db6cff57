// Package errors provides the fault taxonomy shared by the query pipeline and
// its mapping onto Camunda BPMN errors.
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

const (
	ErrCodeClassificationFault ErrorCode = "CLASSIFICATION_FAULT"
	ErrCodeGenerationFault     ErrorCode = "GENERATION_FAULT"
	ErrCodeExecutionFault      ErrorCode = "EXECUTION_FAULT"
	ErrCodeBackendUnavailable  ErrorCode = "BACKEND_UNAVAILABLE"
	ErrCodeCacheFault          ErrorCode = "CACHE_FAULT"
	ErrCodeCompositionFault    ErrorCode = "COMPOSITION_FAULT"

	ErrCodeInvalidQuery     ErrorCode = "INVALID_QUERY"
	ErrCodeRequestCancelled ErrorCode = "REQUEST_CANCELLED"
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
)

// userMessages are the only texts a caller ever sees for a fault. Backend
// output, SQL and driver errors stay in Details.
var userMessages = map[ErrorCode]string{
	ErrCodeClassificationFault: "Não consegui entender a pergunta. Pode reformulá-la?",
	ErrCodeGenerationFault:     "Não consegui montar uma consulta segura para essa pergunta. Tente reformulá-la.",
	ErrCodeExecutionFault:      "Não foi possível consultar a base de dados agora. Tente novamente em instantes.",
	ErrCodeBackendUnavailable:  "O serviço de análise está indisponível no momento. Tente novamente em instantes.",
	ErrCodeCacheFault:          "O cache de respostas está indisponível.",
	ErrCodeCompositionFault:    "Não consegui redigir a resposta. Tente novamente.",
	ErrCodeInvalidQuery:        "A pergunta está vazia. Digite uma pergunta sobre os clientes.",
	ErrCodeRequestCancelled:    "A solicitação foi cancelada.",
	ErrCodeInternal:            "Ocorreu um erro inesperado. Tente novamente.",
}

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

// Unwrap exposes the component error so callers can match sentinels.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
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

// ToErrorVariables returns process variables for a failed job. Details are
// left out: process variables are visible to whoever started the process.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
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

func newFault(code ErrorCode, retryable bool, cause error) *StandardError {
	details := ""
	if cause != nil {
		details = cause.Error()
	}
	return &StandardError{
		Code:      code,
		Message:   userMessages[code],
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewClassificationFault reports a label outside the intent enumeration or
// unparseable classifier output. The pipeline recovers from it.
func NewClassificationFault(cause error) *StandardError {
	return newFault(ErrCodeClassificationFault, false, cause)
}

// NewGenerationFault reports SQL that failed validation after the retry.
func NewGenerationFault(cause error) *StandardError {
	return newFault(ErrCodeGenerationFault, false, cause)
}

// NewExecutionFault reports a database error, timeout or row ceiling breach.
func NewExecutionFault(cause error) *StandardError {
	return newFault(ErrCodeExecutionFault, false, cause)
}

// NewBackendUnavailableError reports an unreachable model server, a model that
// is not loaded or an inference timeout.
func NewBackendUnavailableError(cause error) *StandardError {
	return newFault(ErrCodeBackendUnavailable, true, cause)
}

// NewCacheFault reports an unreadable or unwritable cache store. Never fatal.
func NewCacheFault(operation string, cause error) *StandardError {
	return newFault(ErrCodeCacheFault, false, cause).WithMetadata("operation", operation)
}

func NewCompositionFault(cause error) *StandardError {
	return newFault(ErrCodeCompositionFault, false, cause)
}

func NewInvalidQueryError(details string) *StandardError {
	return newFault(ErrCodeInvalidQuery, false, stderrors.New(details))
}

func NewRequestCancelledError(cause error) *StandardError {
	return newFault(ErrCodeRequestCancelled, false, cause)
}

func NewInternalError(cause error) *StandardError {
	return newFault(ErrCodeInternal, false, cause)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to the error codes modelled on
// boundary events of the query process.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeClassificationFault: "CLASSIFICATION_FAULT",
	ErrCodeGenerationFault:     "GENERATION_FAULT",
	ErrCodeExecutionFault:      "EXECUTION_FAULT",
	ErrCodeBackendUnavailable:  "BACKEND_UNAVAILABLE",
	ErrCodeCacheFault:          "CACHE_FAULT",
	ErrCodeCompositionFault:    "COMPOSITION_FAULT",
	ErrCodeInvalidQuery:        "INVALID_QUERY",
	ErrCodeRequestCancelled:    "REQUEST_CANCELLED",
}

// GetRetryCount returns how many job retries a fault earns.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeBackendUnavailable:
		return 1
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
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

// AsStandardError finds a StandardError in err's chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// Normalize always returns a StandardError; unknown errors become INTERNAL_ERROR.
func Normalize(err error) *StandardError {
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr
	}
	return NewInternalError(err)
}

// UserMessage returns the caller-safe text for any error.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if msg, ok := userMessages[Normalize(err).Code]; ok {
		return msg
	}
	return userMessages[ErrCodeInternal]
}

// CodeOf returns the fault code of err, or "" for nil.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	return Normalize(err).Code
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the pipeline stage a code belongs to.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "CLASSIFICATION"):
		return "ROUTING"
	case strings.HasPrefix(codeStr, "GENERATION"):
		return "GENERATION"
	case strings.HasPrefix(codeStr, "EXECUTION"):
		return "EXECUTION"
	case strings.HasPrefix(codeStr, "COMPOSITION"):
		return "COMPOSITION"
	case strings.Contains(codeStr, "BACKEND"):
		return "INFERENCE"
	case strings.Contains(codeStr, "CACHE"):
		return "CACHE"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
