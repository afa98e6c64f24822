package structured

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// SchemaType represents JSON Schema types.
type SchemaType string

const (
	TypeString  SchemaType = "string"
	TypeNumber  SchemaType = "number"
	TypeInteger SchemaType = "integer"
	TypeBoolean SchemaType = "boolean"
	TypeObject  SchemaType = "object"
	TypeArray   SchemaType = "array"
)

// JSONSchema is the subset of JSON Schema needed to describe model outputs.
type JSONSchema struct {
	Type        SchemaType             `json:"type,omitempty"`
	Description string                 `json:"description,omitempty"`
	Properties  map[string]*JSONSchema `json:"properties,omitempty"`
	Required    []string               `json:"required,omitempty"`
	Items       *JSONSchema            `json:"items,omitempty"`
	Enum        []any                  `json:"enum,omitempty"`
}

// ToJSONIndent 以缩进格式输出 Schema
func (s *JSONSchema) ToJSONIndent() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// GenerateSchema 从 Go 类型生成 Schema
func GenerateSchema(t reflect.Type) (*JSONSchema, error) {
	return generateSchema(t, map[reflect.Type]bool{})
}

func generateSchema(t reflect.Type, visited map[reflect.Type]bool) (*JSONSchema, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.String:
		return &JSONSchema{Type: TypeString}, nil
	case reflect.Bool:
		return &JSONSchema{Type: TypeBoolean}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &JSONSchema{Type: TypeInteger}, nil
	case reflect.Float32, reflect.Float64:
		return &JSONSchema{Type: TypeNumber}, nil
	case reflect.Slice, reflect.Array:
		items, err := generateSchema(t.Elem(), visited)
		if err != nil {
			return nil, err
		}
		return &JSONSchema{Type: TypeArray, Items: items}, nil
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return nil, fmt.Errorf("unsupported map key type %s", t.Key())
		}
		return &JSONSchema{Type: TypeObject}, nil
	case reflect.Struct:
		if visited[t] {
			return nil, fmt.Errorf("recursive type %s is not supported", t)
		}
		visited[t] = true
		defer delete(visited, t)
		return generateStructSchema(t, visited)
	default:
		return nil, fmt.Errorf("unsupported kind %s", t.Kind())
	}
}

// generateStructSchema 为 struct 类型生成 schema。
func generateStructSchema(t reflect.Type, visited map[reflect.Type]bool) (*JSONSchema, error) {
	schema := &JSONSchema{Type: TypeObject, Properties: make(map[string]*JSONSchema)}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		fieldName := getJSONFieldName(field)
		if fieldName == "-" {
			continue
		}

		fieldSchema, err := generateSchema(field.Type, visited)
		if err != nil {
			return nil, fmt.Errorf("failed to generate schema for field %s: %w", field.Name, err)
		}

		options := parseTagOptions(field.Tag.Get("jsonschema"))
		if desc, ok := options["description"]; ok {
			fieldSchema.Description = desc
		}
		if enumStr, ok := options["enum"]; ok {
			for _, v := range strings.Split(enumStr, "|") {
				fieldSchema.Enum = append(fieldSchema.Enum, strings.TrimSpace(v))
			}
		}
		if _, ok := options["required"]; ok {
			schema.Required = append(schema.Required, fieldName)
		}

		schema.Properties[fieldName] = fieldSchema
	}

	return schema, nil
}

// getJSONFieldName 从 json 标签中提取字段名称，缺省时返回 struct 字段名称。
func getJSONFieldName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "" {
		return field.Name
	}
	return name
}

// parseTagOptions 解析 jsonschema 标签。description 必须放在最后，
// 其值可以包含逗号；enum 的取值以 | 分隔。
func parseTagOptions(tag string) map[string]string {
	options := make(map[string]string)
	if tag == "" {
		return options
	}

	if idx := strings.Index(tag, "description="); idx >= 0 {
		options["description"] = tag[idx+len("description="):]
		tag = tag[:idx]
	}

	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if key, value, ok := strings.Cut(part, "="); ok {
			options[key] = value
		} else {
			options[part] = ""
		}
	}
	return options
}
