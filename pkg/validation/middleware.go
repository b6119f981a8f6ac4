package validation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strconv"

	"github.com/flowgraph/flowlogic/internal/core/flow"
)

// DefaultMaxBodyBytes bounds decoded request bodies.
const DefaultMaxBodyBytes = 8 << 20

type bodyKey struct{}

// Middleware provides validation middleware for HTTP handlers
type Middleware struct {
	config       *ValidationConfig
	maxBodyBytes int64
}

// NewMiddleware creates a new validation middleware
func NewMiddleware(config *ValidationConfig) *Middleware {
	if config == nil {
		config = DefaultValidationConfig()
	}
	return &Middleware{config: config, maxBodyBytes: DefaultMaxBodyBytes}
}

// WithMaxBodyBytes overrides the request body limit.
func (m *Middleware) WithMaxBodyBytes(n int64) *Middleware {
	if n > 0 {
		m.maxBodyBytes = n
	}
	return m
}

// ValidateJSON decodes the request body into a new value of structType's
// type, validates it and hands it to next through the request context.
// Read it back with Body.
func (m *Middleware) ValidateJSON(structType any) func(http.Handler) http.Handler {
	typ := reflect.TypeOf(structType)
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			val := reflect.New(typ).Interface()

			decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, m.maxBodyBytes))
			decoder.DisallowUnknownFields()
			if err := decoder.Decode(val); err != nil {
				m.writeErrorResponse(w, http.StatusBadRequest,
					ValidationErrors{{
						Field:   "request_body",
						Message: fmt.Sprintf("invalid JSON: %v", err),
					}})
				return
			}

			if err := ValidateWithConfig(val, m.config); err != nil {
				if validationErrors, ok := err.(ValidationErrors); ok {
					m.writeErrorResponse(w, http.StatusBadRequest, validationErrors)
					return
				}
				m.writeErrorResponse(w, http.StatusUnprocessableEntity,
					ValidationErrors{{
						Field:   "request_body",
						Message: err.Error(),
					}})
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), bodyKey{}, val)))
		})
	}
}

// Body returns the value decoded by ValidateJSON.
func Body[T any](r *http.Request) (*T, bool) {
	v, ok := r.Context().Value(bodyKey{}).(*T)
	return v, ok
}

// ValidateQueryParams validates URL query parameters. Supported rules are
// required, numeric, bool and flow_context.
func (m *Middleware) ValidateQueryParams(paramRules map[string]string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			query := r.URL.Query()
			var errs ValidationErrors

			for param, rule := range paramRules {
				value := query.Get(param)

				switch rule {
				case "required":
					if value == "" {
						errs.add(param, value, "parameter is required")
					}
				case "numeric":
					if value != "" && !isNumeric(value) {
						errs.add(param, value, "must be numeric")
					}
				case "bool":
					if _, err := strconv.ParseBool(value); value != "" && err != nil {
						errs.add(param, value, "must be a boolean")
					}
				case "flow_context":
					if value != "" && !flow.Context(value).Valid() {
						errs.add(param, value, "must be a valid flow context (frontend, backend)")
					}
				}
			}

			if len(errs) > 0 {
				m.writeErrorResponse(w, http.StatusBadRequest, errs)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// WriteErrors writes validation errors as the JSON error document.
func WriteErrors(w http.ResponseWriter, statusCode int, errs ValidationErrors) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorData, err := MarshalValidationErrors(errs)
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"validation failed","message":"internal validation error"}`))
		return
	}
	_, _ = w.Write(errorData)
}

func (m *Middleware) writeErrorResponse(w http.ResponseWriter, statusCode int, errs ValidationErrors) {
	WriteErrors(w, statusCode, errs)
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
