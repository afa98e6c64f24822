// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
包 retrieval 提供工作流 RESEARCH 节点使用的检索能力。

# 核心类型

  - [SearchProvider]：搜索后端接口（Tavily 等）
  - [Tavily]：Tavily Search API 客户端
  - [Adapter]：将搜索结果截断为 top-K，并转换为 (source, content) 片段；
    内置令牌桶限流与单次请求超时

检索失败不会被吞掉：Adapter 返回 RETRIEVAL_FAILED 错误，原始上游错误保留在 Cause 中。
*/
package retrieval
