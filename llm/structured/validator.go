package structured

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// ParseError represents a validation error with field path.
type ParseError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors collects every schema violation found in a document.
type ValidationErrors struct {
	Errors []ParseError `json:"errors"`
}

// Error implements the error interface.
func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "validation failed"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed with %d errors: %s", len(e.Errors), strings.Join(msgs, "; "))
}

// Validate 校验 JSON 文档是否符合 schema
func Validate(data []byte, schema *JSONSchema) error {
	if schema == nil {
		return nil
	}

	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return &ValidationErrors{
			Errors: []ParseError{{Path: "", Message: fmt.Sprintf("invalid JSON: %v", err)}},
		}
	}

	var errs []ParseError
	validateValue(value, schema, "", &errs)
	if len(errs) > 0 {
		return &ValidationErrors{Errors: errs}
	}
	return nil
}

func validateValue(value any, schema *JSONSchema, path string, errs *[]ParseError) {
	if !matchesType(value, schema.Type) {
		*errs = append(*errs, ParseError{Path: path, Message: fmt.Sprintf("expected %s, got %s", schema.Type, jsonTypeName(value))})
		return
	}

	if len(schema.Enum) > 0 && !inEnum(value, schema.Enum) {
		*errs = append(*errs, ParseError{Path: path, Message: fmt.Sprintf("value %v is not one of %v", value, schema.Enum)})
	}

	switch v := value.(type) {
	case map[string]any:
		for _, req := range schema.Required {
			if _, ok := v[req]; !ok {
				*errs = append(*errs, ParseError{Path: joinPath(path, req), Message: "required field is missing"})
			}
		}
		keys := make([]string, 0, len(schema.Properties))
		for k := range schema.Properties {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if fv, ok := v[k]; ok && fv != nil {
				validateValue(fv, schema.Properties[k], joinPath(path, k), errs)
			}
		}
	case []any:
		if schema.Items != nil {
			for i, item := range v {
				validateValue(item, schema.Items, fmt.Sprintf("%s[%d]", path, i), errs)
			}
		}
	}
}

func matchesType(value any, t SchemaType) bool {
	switch t {
	case "":
		return true
	case TypeString:
		_, ok := value.(string)
		return ok
	case TypeBoolean:
		_, ok := value.(bool)
		return ok
	case TypeNumber:
		_, ok := value.(float64)
		return ok
	case TypeInteger:
		f, ok := value.(float64)
		return ok && f == math.Trunc(f)
	case TypeObject:
		_, ok := value.(map[string]any)
		return ok
	case TypeArray:
		_, ok := value.([]any)
		return ok
	}
	return false
}

func jsonTypeName(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	}
	return fmt.Sprintf("%T", value)
}

func inEnum(value any, enum []any) bool {
	for _, e := range enum {
		if fmt.Sprint(e) == fmt.Sprint(value) {
			return true
		}
	}
	return false
}

func joinPath(parent, field string) string {
	if parent == "" {
		return field
	}
	return parent + "." + field
}
