// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
包 llm 提供 researchflow 使用的大语言模型接入层。

# 概述

工作流只需要一次性（非流式）补全：起草节点生成答案草稿，评审节点
以 JSON 模式返回结构化评审结果。本包定义统一的请求/响应模型与 [Provider]
接口，具体的服务商适配位于 llm/providers 子包。

# 核心类型

  - [Provider]：Completion / HealthCheck / Name
  - [ChatRequest] / [ChatResponse]：聊天请求与响应
  - [ResponseFormat]：请求 JSON 输出（结构化评审使用）
  - [HealthStatus]：健康检查状态

Provider 返回的错误统一为 *types.Error，携带上游错误码、HTTP 状态与可重试标记。

# 相关子包

  - llm/providers：HTTP 错误映射、重试包装
  - llm/providers/gemini：Gemini generateContent
  - llm/providers/openaicompat：OpenAI 兼容 chat completions
  - llm/structured：基于 JSON Schema 的结构化输出
  - llm/factory：按配置名称创建 Provider
*/
package llm
