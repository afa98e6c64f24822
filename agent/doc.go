// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package agent 提供 workflow 协作者的 LLM 实现。

# 核心类型

  - DraftGenerator — 以起草指令 + 问题 + 检索上下文调用 llm.Provider，
    返回首个候选的文本
  - Critic         — 通过 llm/structured 以 JSON 模式提取评审结论
    {is_acceptable, reflection}，并保证 reflection 非空

两者分别实现 workflow.DraftGenerator 与 workflow.Critic，可以使用不同的
Provider、模型与温度（起草偏创造性，评审使用温度 0）。
*/
package agent
