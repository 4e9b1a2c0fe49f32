package errors

import (
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type Code string

const (
	CodeValidation     Code = "VALIDATION_ERROR"
	CodeUnauthorized   Code = "UNAUTHORIZED"
	CodeMasterPassword Code = "MASTER_PASSWORD_REQUIRED"
	CodeForbidden      Code = "FORBIDDEN"
	CodeNotFound       Code = "NOT_FOUND"
	CodeConflict       Code = "CONFLICT"
	CodeTransport      Code = "TRANSPORT_ERROR"
	CodeSessionExpired Code = "SESSION_EXPIRED"
	CodeServer         Code = "SERVER_ERROR"
	CodeInternal       Code = "INTERNAL_ERROR"
)

type Metadata struct {
	HTTPStatus    int
	Retryable     bool
	PublicMessage string
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		HTTPStatus:    http.StatusBadRequest,
		Retryable:     false,
		PublicMessage: "validation failed",
	},
	CodeUnauthorized: {
		HTTPStatus:    http.StatusUnauthorized,
		Retryable:     false,
		PublicMessage: "authentication required",
	},
	CodeMasterPassword: {
		HTTPStatus:    http.StatusUnauthorized,
		Retryable:     false,
		PublicMessage: "supervisor authorization required",
	},
	CodeForbidden: {
		HTTPStatus:    http.StatusForbidden,
		Retryable:     false,
		PublicMessage: "access denied",
	},
	CodeNotFound: {
		HTTPStatus:    http.StatusNotFound,
		Retryable:     false,
		PublicMessage: "resource not found",
	},
	CodeConflict: {
		HTTPStatus:    http.StatusConflict,
		Retryable:     false,
		PublicMessage: "conflict detected",
	},
	CodeTransport: {
		HTTPStatus:    0,
		Retryable:     true,
		PublicMessage: "network failure",
	},
	CodeSessionExpired: {
		HTTPStatus:    http.StatusUnauthorized,
		Retryable:     false,
		PublicMessage: "session expired, sign in again",
	},
	CodeServer: {
		HTTPStatus:    http.StatusInternalServerError,
		Retryable:     true,
		PublicMessage: "server error",
	},
	CodeInternal: {
		HTTPStatus:    0,
		Retryable:     false,
		PublicMessage: "internal client error",
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	status  int
	detail  string
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

// Status reports the HTTP status the backend answered with, zero when the
// error never reached the server.
func (e *Error) Status() int {
	if e == nil {
		return 0
	}
	return e.status
}

// Detail carries the backend's human-readable detail payload verbatim.
func (e *Error) Detail() string {
	if e == nil {
		return ""
	}
	return e.detail
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// errorBody mirrors the backend's error envelope.
type errorBody struct {
	Detail string `json:"detail"`
}

// Markers the backend puts on authorization-denied responses that are
// business rules, not token problems. These must never trigger a token
// refresh.
var businessDenialMarkers = []string{
	"master password",
	"discrepancy",
}

// FromResponse decodes a non-2xx backend response into a typed error. The
// body is consumed; callers hand over ownership.
func FromResponse(resp *http.Response) *Error {
	detail := readDetail(resp.Body)

	code := codeForStatus(resp.StatusCode)
	if resp.StatusCode == http.StatusUnauthorized && isBusinessDenial(detail) {
		code = CodeMasterPassword
	}

	message := detail
	if message == "" {
		message = fmt.Sprintf("request failed with status %d", resp.StatusCode)
	}

	return &Error{
		code:    code,
		message: message,
		status:  resp.StatusCode,
		detail:  detail,
	}
}

func codeForStatus(status int) Code {
	switch {
	case status == http.StatusUnauthorized:
		return CodeUnauthorized
	case status == http.StatusForbidden:
		return CodeForbidden
	case status == http.StatusNotFound:
		return CodeNotFound
	case status == http.StatusConflict:
		return CodeConflict
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return CodeValidation
	default:
		return CodeServer
	}
}

func readDetail(body io.Reader) string {
	if body == nil {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var envelope errorBody
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return strings.TrimSpace(string(raw))
	}
	return strings.TrimSpace(envelope.Detail)
}

func isBusinessDenial(detail string) bool {
	lowered := strings.ToLower(detail)
	for _, marker := range businessDenialMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

// IsTokenExpiry reports whether err is an authorization denial the refresh
// protocol should recover from. Business denials and anything non-401 are
// excluded.
func IsTokenExpiry(err error) bool {
	typed := As(err)
	if typed == nil {
		return false
	}
	return typed.Code() == CodeUnauthorized
}
