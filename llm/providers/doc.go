// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
# 概述

包 providers 提供跨模型服务商的通用适配能力，是 gemini 与 openaicompat
两个具体实现的公共基础层。

# 核心类型

  - BaseProviderConfig — 基础配置（APIKey、BaseURL、Model、Timeout）
  - RetryableProvider — 带指数退避重试的 Provider 包装器
  - RetryConfig — 重试策略配置（最大次数、初始延迟、退避因子）

# 核心函数

  - MapHTTPError — 将 HTTP 状态码映射为语义化的 *types.Error（含 Retryable 标记）
  - ReadErrorMessage — 解析上游 JSON 错误体
  - ChooseModel — 按优先级选择模型（请求 > 默认 > 兜底）
*/
package providers
