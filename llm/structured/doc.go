// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
包 structured 提供基于 JSON Schema 的结构化输出能力。

从 Go 类型（json 与 jsonschema 标签）生成 Schema，将其写入系统提示并以
JSON 模式请求模型，然后从回复中提取 JSON、按 Schema 校验并反序列化为目标类型。

	type Verdict struct {
	    IsAcceptable bool   `json:"is_acceptable" jsonschema:"required,description=true if the draft is good"`
	    Reflection   string `json:"reflection" jsonschema:"description=what to improve"`
	}

	so, _ := structured.NewStructuredOutput[Verdict](provider)
	v, err := so.Generate(ctx, messages)
*/
package structured
