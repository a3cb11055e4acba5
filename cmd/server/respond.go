package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Simplici0/boxquote/internal/auth"
	"github.com/Simplici0/boxquote/internal/estimator"
	"github.com/Simplici0/boxquote/internal/payment"
	"github.com/Simplici0/boxquote/internal/store"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

// httpError carries a status chosen by a handler.
type httpError struct {
	status int
	msg    string
}

func (e *httpError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &httpError{status: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

var (
	errUnauthorized = &httpError{status: http.StatusUnauthorized, msg: "authentication required"}
	errForbidden    = &httpError{status: http.StatusForbidden, msg: "forbidden"}
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps domain errors to HTTP statuses. Unexpected errors are logged and hidden.
func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := s.classify(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
	}
	writeJSON(w, status, body)
}

func (s *server) classify(err error) (int, errorResponse) {
	var (
		httpErr    *httpError
		validation validator.ValidationErrors
	)

	switch {
	case errors.As(err, &httpErr):
		return httpErr.status, errorResponse{Error: httpErr.msg}
	case errors.As(err, &validation):
		return http.StatusBadRequest, errorResponse{Error: "validation failed", Details: validationDetails(validation)}
	case errors.Is(err, estimator.ErrInvalidConfiguration):
		return http.StatusBadRequest, errorResponse{Error: err.Error()}
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, errorResponse{Error: err.Error()}
	case errors.Is(err, store.ErrConflict), errors.Is(err, store.ErrInvalidTransition), errors.Is(err, store.ErrPaymentTransition):
		return http.StatusConflict, errorResponse{Error: err.Error()}
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorResponse{Error: "incorrect email or password"}
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, errorResponse{Error: "invalid or expired token"}
	case errors.Is(err, payment.ErrNotConfigured):
		return http.StatusServiceUnavailable, errorResponse{Error: payment.ErrNotConfigured.Error()}
	case errors.Is(err, payment.ErrInvalidSignature),
		errors.Is(err, payment.ErrInvalidAmount),
		errors.Is(err, payment.ErrNotRefundable):
		return http.StatusBadRequest, errorResponse{Error: err.Error()}
	case errors.Is(err, payment.ErrGateway):
		return http.StatusBadGateway, errorResponse{Error: "payment gateway error"}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "internal server error"}
	}
}

func validationDetails(errs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(errs))
	for _, fe := range errs {
		details[fieldPath(fe.Namespace())] = fe.Tag()
	}
	return details
}

// fieldPath turns a validator namespace into a JSON path by dropping the root type and
// embedded struct names.
func fieldPath(namespace string) string {
	parts := strings.Split(namespace, ".")[1:]
	for len(parts) > 1 && parts[0] != "" && unicode.IsUpper(rune(parts[0][0])) {
		parts = parts[1:]
	}
	return strings.Join(parts, ".")
}

// decodeJSON reads a single JSON document into dst and validates it.
func (s *server) decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("request body is empty")
		}
		return badRequest("invalid JSON body: %v", err)
	}
	if dec.More() {
		return badRequest("request body must contain a single JSON document")
	}
	return s.validate.Struct(dst)
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
