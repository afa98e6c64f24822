package structured

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	schema, err := GenerateSchema(reflect.TypeOf(sampleVerdict{}))
	require.NoError(t, err)

	tests := []struct {
		name      string
		doc       string
		wantPaths []string
	}{
		{
			name: "valid",
			doc:  `{"is_acceptable": true, "reflection": "ok", "score": 0.5, "attempts": 2}`,
		},
		{
			name:      "missing required",
			doc:       `{"is_acceptable": false}`,
			wantPaths: []string{"reflection"},
		},
		{
			name:      "wrong type",
			doc:       `{"is_acceptable": "yes", "reflection": "ok"}`,
			wantPaths: []string{"is_acceptable"},
		},
		{
			name:      "enum violation",
			doc:       `{"is_acceptable": true, "reflection": "ok", "severity": "extreme"}`,
			wantPaths: []string{"severity"},
		},
		{
			name:      "integer with fraction",
			doc:       `{"is_acceptable": true, "reflection": "ok", "attempts": 1.5}`,
			wantPaths: []string{"attempts"},
		},
		{
			name:      "array item type",
			doc:       `{"is_acceptable": true, "reflection": "ok", "sources": ["a", 2]}`,
			wantPaths: []string{"sources[1]"},
		},
		{
			name: "null optional field is ignored",
			doc:  `{"is_acceptable": true, "reflection": "ok", "severity": null}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate([]byte(tt.doc), schema)
			if len(tt.wantPaths) == 0 {
				assert.NoError(t, err)
				return
			}
			var verrs *ValidationErrors
			require.True(t, errors.As(err, &verrs))
			var paths []string
			for _, e := range verrs.Errors {
				paths = append(paths, e.Path)
			}
			assert.Equal(t, tt.wantPaths, paths)
		})
	}
}

func TestValidate_InvalidJSON(t *testing.T) {
	schema := &JSONSchema{Type: TypeObject}
	err := Validate([]byte(`{not json`), schema)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON")

	assert.NoError(t, Validate([]byte(`{}`), nil))
}

func TestValidationErrors_Error(t *testing.T) {
	assert.Equal(t, "validation failed", (&ValidationErrors{}).Error())
	assert.Equal(t, "a: bad", (&ValidationErrors{Errors: []ParseError{{Path: "a", Message: "bad"}}}).Error())
	assert.Contains(t,
		(&ValidationErrors{Errors: []ParseError{{Path: "a", Message: "bad"}, {Message: "worse"}}}).Error(),
		"validation failed with 2 errors")
}
