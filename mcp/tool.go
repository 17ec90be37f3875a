package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

type Handler func(ctx context.Context, args json.RawMessage) (any, error)

type Tool struct {
	Name        string
	Description string
	InputSchema *Schema
	Handler     Handler
}

// ArgumentError reports required arguments that were not sent at all. The
// dispatcher answers it with CodeInvalidParams.
type ArgumentError struct {
	Tool string
	Err  error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %v", e.Tool, e.Err)
}

func (e *ArgumentError) Unwrap() error {
	return e.Err
}

// ValidationError reports arguments that were sent but hold bad values. It is
// returned to the caller as a tool error.
type ValidationError struct {
	Tool string
	Err  error
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

// NewTool adapts a typed handler. Arguments are decoded into T and checked
// against its validate tags before fn runs.
func NewTool[T any](name, description string, schema *Schema, fn func(ctx context.Context, in T) (any, error)) Tool {
	return Tool{
		Name:        name,
		Description: description,
		InputSchema: schema,
		Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
			var in T
			var raw any
			var decodeErr error
			if trimmed := bytes.TrimSpace(args); len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
				if err := json.Unmarshal(trimmed, &raw); err != nil {
					return nil, &ArgumentError{Tool: name, Err: err}
				}
				if _, ok := raw.(map[string]any); !ok {
					return nil, &ArgumentError{Tool: name, Err: errors.New("arguments must be an object")}
				}
				decodeErr = json.Unmarshal(trimmed, &in)
			}
			if err := validate.Struct(&in); err != nil {
				if verr := classify(name, schema, raw, err); decodeErr == nil || errors.As(verr, new(*ArgumentError)) {
					return nil, verr
				}
			}
			if decodeErr != nil {
				return nil, &ValidationError{Tool: name, Err: describeDecode(decodeErr)}
			}
			return fn(ctx, in)
		},
	}
}

// classify splits validation failures into absent required arguments and
// bad values. An argument counts as required when its validate tag or the
// input schema says so. Absent arguments win when both occur.
func classify(tool string, schema *Schema, raw any, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{Tool: tool, Err: err}
	}
	var missing, invalid []string
	for _, fe := range verrs {
		field := fieldPath(fe)
		if (fe.Tag() == "required" || schema.requires(field)) && !present(raw, field) {
			missing = append(missing, field+" is required")
			continue
		}
		invalid = append(invalid, describe(field, fe))
	}
	if len(missing) > 0 {
		return &ArgumentError{Tool: tool, Err: errors.New(strings.Join(missing, "; "))}
	}
	return &ValidationError{Tool: tool, Err: errors.New(strings.Join(invalid, "; "))}
}

func fieldPath(fe validator.FieldError) string {
	_, field, ok := strings.Cut(fe.Namespace(), ".")
	if !ok {
		return fe.Field()
	}
	return field
}

func describe(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return field + " must not be empty"
	case "gt", "gte", "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lt", "lte", "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "email":
		return field + " must be an email address"
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

func describeDecode(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return fmt.Errorf("%s must be a %s", typeErr.Field, jsonType(typeErr.Type))
	}
	return err
}

func jsonType(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	default:
		return "object"
	}
}

// present reports whether path, e.g. "items[0].productId", names a key that
// exists in the decoded arguments.
func present(raw any, path string) bool {
	cur := raw
	for _, seg := range strings.Split(path, ".") {
		key, rest, _ := strings.Cut(seg, "[")
		obj, ok := cur.(map[string]any)
		if !ok {
			return false
		}
		if cur, ok = obj[key]; !ok || cur == nil {
			return false
		}
		for rest != "" {
			idx, tail, _ := strings.Cut(rest, "]")
			rest = strings.TrimPrefix(tail, "[")
			n, err := strconv.Atoi(idx)
			arr, ok := cur.([]any)
			if err != nil || !ok || n < 0 || n >= len(arr) {
				return false
			}
			cur = arr[n]
		}
	}
	return true
}
