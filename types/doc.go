// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 researchflow 各层共享的基础类型。

# 概述

types 是最底层的公共包，不依赖任何内部包。workflow、agent、retrieval、
llm 与 checkpoint 后端通过这里的结构化错误体系对齐错误码、可重试性与
失败节点信息。

# 核心类型

  - Error / ErrorCode — 结构化错误，含 Retryable、Provider 标记与 Cause 链
  - IsRetryable       — 判断错误是否可重试
  - GetErrorCode      — 沿错误链提取错误码
  - IsErrorCode       — 判断错误链中是否包含指定错误码
*/
package types
