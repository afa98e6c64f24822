// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package workflow 提供 research → draft → critique 有界循环的状态机控制器。

# 概述

Controller 以显式枚举状态机驱动三个节点：RESEARCH 检索资料、GENERATE
起草答案、CRITIQUE 评审草稿。CRITIQUE 之后由纯函数 Route 决定终止或
回到 RESEARCH 进入下一轮。循环次数以 Config.MaxRetries 为上限，到达
上限仍未通过评审时返回最后一版草稿（BestEffort）。

# 核心接口与类型

  - State / Update     — 工作流状态与部分更新，nil 字段表示"不变"
  - Merge              — 将 Update 合并进 State（replace-on-write）
  - Node / Route       — 节点枚举与 CRITIQUE 之后的路由决策
  - Controller         — 节点分发表 + 每节点 checkpoint 的执行循环
  - Retriever          — 检索协作者（query, topK）→ 片段
  - DraftGenerator     — 起草协作者
  - Critic             — 评审协作者，返回 Verdict
  - CheckpointManager  — 按 thread 合并保存版本化 checkpoint
  - CheckpointStore    — checkpoint 后端接口（内存实现见本包，其余见 workflow/checkpoint）
  - Result / Status    — 调用方结果：Accepted / BestEffort / Empty

# 持久化与恢复

thread ID 为问题文本 SHA-256 的前 10 个十六进制字符。每个节点完成后
写入一个新版本 checkpoint，记录合并后的状态与下一个节点。同一问题再次
运行时从最新 checkpoint 继续；已终止的 thread 直接返回结果，不再调用
任何外部协作者。
*/
package workflow
