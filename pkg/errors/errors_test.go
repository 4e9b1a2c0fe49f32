package errors

import (
	stdErrors "errors"
	"io"
	"net/http"
	"strings"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed"},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeMasterPassword, status: http.StatusUnauthorized, publicMsg: "supervisor authorization required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeTransport, publicMsg: "network failure", retryable: true},
		{code: CodeServer, status: http.StatusInternalServerError, publicMsg: "server error", retryable: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	if meta := MetadataFor(Code("NOPE")); meta.PublicMessage != "internal client error" {
		t.Fatalf("unexpected fallback metadata: %+v", meta)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("boom")
	err := Wrap(CodeTransport, cause, "request failed")

	if !stdErrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to survive errors.Is")
	}
	if typed := As(err); typed == nil || typed.Code() != CodeTransport {
		t.Fatalf("unexpected typed error: %v", typed)
	}
}

func TestFromResponseClassifiesTokenExpiry(t *testing.T) {
	resp := &http.Response{
		StatusCode: http.StatusUnauthorized,
		Body:       io.NopCloser(strings.NewReader(`{"detail":"Could not validate credentials"}`)),
	}

	err := FromResponse(resp)
	if err.Code() != CodeUnauthorized {
		t.Fatalf("expected UNAUTHORIZED, got %s", err.Code())
	}
	if !IsTokenExpiry(err) {
		t.Fatal("expected token-expiry classification")
	}
	if err.Detail() != "Could not validate credentials" {
		t.Fatalf("unexpected detail %q", err.Detail())
	}
}

func TestFromResponseMasterPasswordIsNotTokenExpiry(t *testing.T) {
	for _, detail := range []string{
		`{"detail":"Invalid master password"}`,
		`{"detail":"Session discrepancy requires master password authorization"}`,
	} {
		resp := &http.Response{
			StatusCode: http.StatusUnauthorized,
			Body:       io.NopCloser(strings.NewReader(detail)),
		}
		err := FromResponse(resp)
		if err.Code() != CodeMasterPassword {
			t.Fatalf("detail %q: expected MASTER_PASSWORD_REQUIRED, got %s", detail, err.Code())
		}
		if IsTokenExpiry(err) {
			t.Fatalf("detail %q must not trigger the refresh path", detail)
		}
	}
}

func TestFromResponseNonJSONBody(t *testing.T) {
	resp := &http.Response{
		StatusCode: http.StatusInternalServerError,
		Body:       io.NopCloser(strings.NewReader("upstream exploded")),
	}

	err := FromResponse(resp)
	if err.Code() != CodeServer {
		t.Fatalf("expected SERVER_ERROR, got %s", err.Code())
	}
	if err.Message() != "upstream exploded" {
		t.Fatalf("unexpected message %q", err.Message())
	}
	if err.Status() != http.StatusInternalServerError {
		t.Fatalf("unexpected status %d", err.Status())
	}
}
