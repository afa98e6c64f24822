package structured

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/researchflow/llm"
	"github.com/BaSui01/researchflow/testutil"
	"github.com/BaSui01/researchflow/testutil/mocks"
)

type critique struct {
	IsAcceptable bool   `json:"is_acceptable" jsonschema:"required"`
	Reflection   string `json:"reflection" jsonschema:"required"`
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced without language", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding prose", `Sure! {"a":1} Hope that helps.`, `{"a":1}`},
		{"no json", "nothing here", "nothing here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSON(tt.in))
		})
	}
}

func TestStructuredOutput_Generate(t *testing.T) {
	provider := mocks.NewMockProvider().
		WithResponse("```json\n{\"is_acceptable\": false, \"reflection\": \"cite the release year\"}\n```")

	so, err := NewStructuredOutput[critique](provider, WithModel("critic-model"), WithTemperature(0), WithMaxTokens(256))
	require.NoError(t, err)

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: "review"},
		{Role: llm.RoleUser, Content: "draft"},
	}
	got, err := so.Generate(testutil.TestContext(t), messages)
	require.NoError(t, err)
	assert.False(t, got.IsAcceptable)
	assert.Equal(t, "cite the release year", got.Reflection)

	call := provider.GetLastCall()
	require.NotNil(t, call)
	req := call.Request
	assert.Equal(t, "critic-model", req.Model)
	assert.Equal(t, 256, req.MaxTokens)
	require.NotNil(t, req.ResponseFormat)
	assert.Equal(t, llm.ResponseFormatJSON, req.ResponseFormat.Type)
	assert.Contains(t, string(req.ResponseFormat.Schema), "is_acceptable")

	require.Len(t, req.Messages, 3)
	testutil.AssertMessagesEqual(t, messages, req.Messages[:2])
	assert.Equal(t, llm.RoleSystem, req.Messages[2].Role)
	assert.Contains(t, req.Messages[2].Content, "JSON Schema:")
}

func TestStructuredOutput_ValidationFailure(t *testing.T) {
	provider := mocks.NewMockProvider().WithResponse(`{"is_acceptable": "maybe"}`)
	so, err := NewStructuredOutput[critique](provider)
	require.NoError(t, err)

	_, err = so.Generate(context.Background(), nil)
	var verrs *ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Len(t, verrs.Errors, 2)
}

func TestStructuredOutput_ProviderError(t *testing.T) {
	boom := errors.New("upstream down")
	so, err := NewStructuredOutput[critique](mocks.NewMockProvider().WithError(boom))
	require.NoError(t, err)

	_, err = so.Generate(context.Background(), nil)
	assert.ErrorIs(t, err, boom)
}

func TestNewStructuredOutput_Errors(t *testing.T) {
	_, err := NewStructuredOutput[critique](nil)
	assert.Error(t, err)

	_, err = NewStructuredOutput[chan int](mocks.NewMockProvider())
	assert.Error(t, err)
}

func TestStructuredOutput_Parse(t *testing.T) {
	so, err := NewStructuredOutput[critique](mocks.NewMockProvider())
	require.NoError(t, err)

	got, err := so.Parse(testutil.MustJSON(critique{IsAcceptable: true, Reflection: "ok"}))
	require.NoError(t, err)
	assert.True(t, got.IsAcceptable)
	assert.Equal(t, []string{"is_acceptable", "reflection"}, so.Schema().Required)
}
