package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/flowgraph/flowlogic/internal/core/flow"
)

// Validate is the shared validator instance with the flow tags registered.
var Validate *validator.Validate

var (
	flowRefPattern  = regexp.MustCompile(`^\S(.*\S)?$`)
	nodeTypePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
)

func init() {
	Validate = validator.New()

	mustRegister("flow_ref", validateFlowRef)
	mustRegister("flow_context", validateFlowContext)
	mustRegister("trigger_kind", validateTriggerKind)
	mustRegister("node_type", validateNodeType)

	// Report fields by their JSON names
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
}

func mustRegister(tag string, fn validator.Func) {
	if err := Validate.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validation: register %s: %v", tag, err))
	}
}

// Struct validates s against its validate tags and returns
// ValidationErrors on failure.
func Struct(s any) error {
	err := Validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	return formatValidationErrors(fieldErrs)
}

// formatValidationErrors converts validator errors to ValidationErrors,
// naming each field by its path below the root struct.
func formatValidationErrors(fieldErrs validator.ValidationErrors) ValidationErrors {
	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		out = append(out, ValidationError{
			Field:   field,
			Value:   fe.Value(),
			Message: getErrorMessage(fe),
		})
	}
	return out
}

// getErrorMessage returns a human-readable error message
func getErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field is required"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "min":
		return fmt.Sprintf("minimum value/length is %s", fe.Param())
	case "max":
		return fmt.Sprintf("maximum value/length is %s", fe.Param())
	case "hostname_port":
		return "must be host:port"
	case "flow_ref":
		return "must be a flow identifier without surrounding whitespace (at most 255 bytes)"
	case "flow_context":
		return "must be a valid flow context (frontend, backend)"
	case "trigger_kind":
		return "must be a valid trigger kind (manual, event, api, mount, schedule)"
	case "node_type":
		return "must be a node type name (lowercase letters, digits, underscore)"
	default:
		return fmt.Sprintf("validation failed: %s", fe.Tag())
	}
}

func validateFlowRef(fl validator.FieldLevel) bool {
	id := fl.Field().String()
	return len(id) <= 255 && flowRefPattern.MatchString(id)
}

func validateFlowContext(fl validator.FieldLevel) bool {
	return flow.Context(fl.Field().String()).Valid()
}

func validateTriggerKind(fl validator.FieldLevel) bool {
	return flow.TriggerKind(fl.Field().String()).Valid()
}

// validateNodeType checks the shape only. Types this build does not know
// still compile, to a marker comment.
func validateNodeType(fl validator.FieldLevel) bool {
	return nodeTypePattern.MatchString(fl.Field().String())
}

// ValidationConfig holds validation configuration
type ValidationConfig struct {
	// StrictMode also rejects snapshots whose flows reference node types
	// this build cannot compile.
	StrictMode bool `json:"strict_mode"`
	MaxErrors  int  `json:"max_errors"`
}

// DefaultValidationConfig returns default validation configuration
func DefaultValidationConfig() *ValidationConfig {
	return &ValidationConfig{
		StrictMode: false,
		MaxErrors:  20,
	}
}

// truncate caps the number of reported errors.
func (c *ValidationConfig) truncate(errs ValidationErrors) ValidationErrors {
	if c.MaxErrors > 0 && len(errs) > c.MaxErrors {
		return errs[:c.MaxErrors]
	}
	return errs
}

// ValidateWithConfig validates a struct and, when it implements Validator,
// its own invariants.
func ValidateWithConfig(s any, config *ValidationConfig) error {
	if config == nil {
		config = DefaultValidationConfig()
	}

	if err := Struct(s); err != nil {
		var errs ValidationErrors
		if errors.As(err, &errs) {
			return config.truncate(errs)
		}
		return err
	}
	if v, ok := s.(Validator); ok {
		return v.Validate()
	}
	return nil
}

type errorResponse struct {
	Errors []ValidationError `json:"errors"`
	Count  int               `json:"count"`
}

// MarshalValidationErrors marshals validation errors to JSON
func MarshalValidationErrors(errs ValidationErrors) ([]byte, error) {
	return json.Marshal(errorResponse{Errors: errs, Count: len(errs)})
}

// UnmarshalValidationErrors unmarshals validation errors from JSON
func UnmarshalValidationErrors(data []byte) (ValidationErrors, error) {
	var response errorResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, err
	}
	return ValidationErrors(response.Errors), nil
}
